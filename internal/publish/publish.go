// Package publish uploads popreader artifacts (the binary store and the
// rendered summary) to object storage and fetches them back.
package publish

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/golang/snappy"
	"golang.org/x/sync/errgroup"

	"github.com/popreader/popreader/internal/logging"
	"github.com/popreader/popreader/internal/storage"
)

// CompressedSuffix marks objects stored as framed snappy streams.
const CompressedSuffix = ".sz"

const defaultConcurrency = 4

// Artifact is a local file to publish under Name, relative to the
// publisher's prefix.
type Artifact struct {
	LocalPath string
	Name      string
}

// Uploaded describes one published artifact.
type Uploaded struct {
	Artifact
	ObjectPath string
	Compressed bool
}

// Options configures a Publisher.
type Options struct {
	// Prefix is prepended to every object path
	Prefix string

	// Compress stores artifacts as framed snappy streams with a .sz suffix
	Compress bool

	// Concurrency bounds parallel uploads (default 4)
	Concurrency int

	// TempDir holds compressed temporaries (default os.TempDir())
	TempDir string
}

// Publisher uploads artifacts to an ObjectStorage.
type Publisher struct {
	storage storage.ObjectStorage
	opts    Options
	logger  *logging.Logger
}

// New creates a Publisher.
func New(store storage.ObjectStorage, opts Options, logger *logging.Logger) *Publisher {
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	if logger == nil {
		logger = logging.Noop()
	}
	return &Publisher{
		storage: store,
		opts:    opts,
		logger:  logger.WithComponent("publish"),
	}
}

// ObjectPath returns the object path an artifact name is published under.
func (p *Publisher) ObjectPath(name string) string {
	objectPath := path.Join(p.opts.Prefix, name)
	if p.opts.Compress {
		objectPath += CompressedSuffix
	}
	return objectPath
}

// Publish uploads artifacts concurrently. The result is in the order of
// artifacts. The first failure cancels the remaining uploads.
func (p *Publisher) Publish(ctx context.Context, artifacts []Artifact) ([]Uploaded, error) {
	uploaded := make([]Uploaded, len(artifacts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Concurrency)

	for i, a := range artifacts {
		g.Go(func() error {
			objectPath := p.ObjectPath(a.Name)
			err := p.upload(gctx, a.LocalPath, objectPath)
			p.logger.LogUpload(gctx, a.LocalPath, objectPath, err)
			if err != nil {
				return err
			}
			uploaded[i] = Uploaded{Artifact: a, ObjectPath: objectPath, Compressed: p.opts.Compress}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("publish: %w", err)
	}
	return uploaded, nil
}

func (p *Publisher) upload(ctx context.Context, localPath, objectPath string) error {
	if !p.opts.Compress {
		return p.storage.Upload(ctx, localPath, objectPath)
	}

	tmp, err := p.compressToTemp(localPath)
	if err != nil {
		return err
	}
	defer os.Remove(tmp)

	return p.storage.Upload(ctx, tmp, objectPath)
}

// compressToTemp writes a framed snappy copy of localPath to a temporary file.
func (p *Publisher) compressToTemp(localPath string) (string, error) {
	src, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open artifact %s: %w", localPath, err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp(p.opts.TempDir, filepath.Base(localPath)+".*"+CompressedSuffix)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	w := snappy.NewBufferedWriter(tmp)
	if _, err := io.Copy(w, src); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("compress %s: %w", localPath, err)
	}
	if err := w.Close(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("compress %s: %w", localPath, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return tmp.Name(), nil
}

// Fetch downloads objectPath into localPath. Objects ending in .sz are
// decompressed on the way.
func (p *Publisher) Fetch(ctx context.Context, objectPath, localPath string) error {
	if !strings.HasSuffix(objectPath, CompressedSuffix) {
		if err := p.storage.Download(ctx, objectPath, localPath); err != nil {
			return fmt.Errorf("fetch %s: %w", objectPath, err)
		}
		return nil
	}

	tmp, err := os.CreateTemp(p.opts.TempDir, "fetch-*"+CompressedSuffix)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := p.storage.Download(ctx, objectPath, tmpPath); err != nil {
		return fmt.Errorf("fetch %s: %w", objectPath, err)
	}
	if err := decompressFile(tmpPath, localPath); err != nil {
		return fmt.Errorf("fetch %s: %w", objectPath, err)
	}
	p.logger.InfoContext(ctx, "artifact fetched", "object_path", objectPath, "local_path", localPath)
	return nil
}

func decompressFile(srcPath, destPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return err
	}
	dst, err := os.Create(destPath)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, snappy.NewReader(src)); err != nil {
		dst.Close()
		return fmt.Errorf("decompress: %w", err)
	}
	return dst.Close()
}

// List returns the objects published under the prefix.
func (p *Publisher) List(ctx context.Context) ([]string, error) {
	return p.storage.ListObjects(ctx, p.opts.Prefix)
}
