// Package app provides the Dataset service: one owned store with its index,
// plus the optional snapshot catalog and artifact publisher around it.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/popreader/popreader/internal/aggregator"
	"github.com/popreader/popreader/internal/config"
	poperrors "github.com/popreader/popreader/internal/errors"
	"github.com/popreader/popreader/internal/index"
	"github.com/popreader/popreader/internal/ingest"
	"github.com/popreader/popreader/internal/logging"
	"github.com/popreader/popreader/internal/manifest"
	"github.com/popreader/popreader/internal/publish"
	"github.com/popreader/popreader/internal/ranking"
	"github.com/popreader/popreader/internal/storage"
	"github.com/popreader/popreader/internal/store"
	"github.com/popreader/popreader/pkg/types"
)

// Dataset owns the records of one popreader run. It is not safe for
// concurrent use.
type Dataset struct {
	cfg    *config.Config
	logger *logging.Logger

	store *store.Store
	index *index.Index

	catalog   manifest.Catalog      // nil when the manifest is disabled
	storage   storage.ObjectStorage // nil when storage type is none
	publisher *publish.Publisher

	// Latest snapshot registered or verified by this run
	snapshot *manifest.Snapshot
}

// Open resolves and validates cfg, creates the data directories and opens
// the catalog and object storage it names.
func Open(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*Dataset, error) {
	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}
	if logger == nil {
		logger = logging.Noop()
	}

	d := &Dataset{
		cfg:    cfg,
		logger: logger.WithComponent("dataset"),
		store:  store.New(),
	}

	if cfg.Manifest.Enabled {
		catalog, err := manifest.NewCatalog(cfg.Manifest.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize manifest catalog: %w", err)
		}
		d.catalog = catalog
		d.logger.Debug("manifest catalog initialized", "path", cfg.Manifest.Path)
	}

	if err := d.initStorage(ctx); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

func (d *Dataset) initStorage(ctx context.Context) error {
	var err error
	switch d.cfg.Storage.Type {
	case config.StorageNone:
		return nil
	case config.StorageLocal:
		d.storage, err = storage.NewLocalStorage(d.cfg.Storage.Path)
	case config.StorageS3:
		s3Cfg := storage.DefaultS3Config()
		if d.cfg.Storage.S3.Region != "" {
			s3Cfg.Region = d.cfg.Storage.S3.Region
		}
		s3Cfg.Endpoint = d.cfg.Storage.S3.Endpoint
		s3Cfg.UsePathStyle = d.cfg.Storage.S3.UsePathStyle
		d.storage, err = storage.NewS3Storage(ctx, d.cfg.Storage.S3.Bucket, s3Cfg)
	default:
		return poperrors.NewConfigError(fmt.Sprintf("unsupported storage type: %s", d.cfg.Storage.Type))
	}
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	d.publisher = publish.New(d.storage, publish.Options{
		Prefix:   d.cfg.Storage.Prefix,
		Compress: d.cfg.Storage.Compress,
		TempDir:  d.cfg.DataDir,
	}, d.logger)
	d.logger.Debug("storage initialized", "type", d.cfg.Storage.Type)
	return nil
}

// Ingest reads the configured input file into the store, persists it in
// ingestion order and builds the index. A malformed line aborts the ingest
// and leaves the store untouched.
func (d *Dataset) Ingest(ctx context.Context) (int, error) {
	reader := &ingest.Reader{
		Delimiter:          d.cfg.Input.Delimiter,
		HeaderLines:        d.cfg.Input.HeaderLines,
		ThousandsSeparator: d.cfg.Input.ThousandsSeparator,
	}

	records, err := reader.ReadFile(d.cfg.Input.Path)
	d.logger.LogIngest(ctx, d.cfg.Input.Path, len(records), err)
	if err != nil {
		return 0, err
	}

	// The current store and index stay in place until the new file is written.
	next := store.FromRecords(records)
	if err := d.persist(ctx, next, manifest.OrderingIngest); err != nil {
		return 0, err
	}
	d.store = next
	d.buildIndex(ctx)
	return d.store.Len(), nil
}

// Load reads the binary store file. When checksum verification is enabled
// and the catalog knows the file, a checksum mismatch fails the load with a
// CorruptStore error.
func (d *Dataset) Load(ctx context.Context) (int, error) {
	path := d.cfg.Store.Path
	records, sum, err := store.LoadFile(path)
	if err != nil {
		return 0, err
	}

	if d.catalog != nil && d.cfg.Store.VerifyChecksum {
		latest, err := d.catalog.LatestSnapshot(ctx, path)
		if err != nil {
			return 0, err
		}
		if latest != nil && latest.Checksum != sum {
			return 0, poperrors.NewCorruptStore(
				fmt.Sprintf("%s: checksum %016x does not match snapshot %s (%016x)", path, sum, latest.SnapshotID, latest.Checksum),
				nil,
			)
		}
		d.snapshot = latest
	}

	d.store = store.FromRecords(records)
	d.buildIndex(ctx)
	d.logger.InfoContext(ctx, "store loaded", "path", path, "records", len(records))
	return len(records), nil
}

// LookupByIdentifier returns the record with the given identifier. A miss
// returns ok == false.
func (d *Dataset) LookupByIdentifier(id int32) (types.Municipality, bool) {
	if d.index == nil {
		d.index = index.Build(d.store.Records())
	}
	return d.index.Lookup(id)
}

// ListByPopulationDescending ranks the store by population, largest first,
// re-persists it in that order and returns the ranked records. The index is
// not rebuilt since membership does not change. When the write fails the
// store keeps its previous order.
func (d *Dataset) ListByPopulationDescending(ctx context.Context) ([]types.Municipality, error) {
	ranked := store.FromRecords(d.Records())
	ranking.ByPopulation(ranked.Records())

	if err := d.persist(ctx, ranked, manifest.OrderingPopulation); err != nil {
		return nil, err
	}
	d.store = ranked
	return d.Records(), nil
}

// Summarize aggregates population by province and department, writes the
// summary file and returns the rendered text.
func (d *Dataset) Summarize() (string, error) {
	summary := aggregator.Aggregate(d.store.Records())
	text, err := summary.RenderFile(d.cfg.Output.SummaryPath)
	if err != nil {
		return "", err
	}
	d.logger.Info("summary written",
		"path", d.cfg.Output.SummaryPath,
		"provinces", summary.Len(),
		"population", summary.GrandTotal(),
	)
	return text, nil
}

// Records returns a copy of the records in current store order.
func (d *Dataset) Records() []types.Municipality {
	out := make([]types.Municipality, d.store.Len())
	copy(out, d.store.Records())
	return out
}

// Len returns the number of records in the store.
func (d *Dataset) Len() int {
	return d.store.Len()
}

// Snapshot returns the latest snapshot registered or verified by this run, or nil.
func (d *Dataset) Snapshot() *manifest.Snapshot {
	return d.snapshot
}

// Publish uploads the store file and, when present, the summary file.
// Objects are grouped under the current snapshot id.
func (d *Dataset) Publish(ctx context.Context) ([]publish.Uploaded, error) {
	if d.publisher == nil {
		return nil, poperrors.NewConfigError("publishing requires storage type local or s3")
	}

	group := d.publishGroup()
	artifacts := []publish.Artifact{{
		LocalPath: d.cfg.Store.Path,
		Name:      group + "/" + filepath.Base(d.cfg.Store.Path),
	}}
	if _, err := os.Stat(d.cfg.Output.SummaryPath); err == nil {
		artifacts = append(artifacts, publish.Artifact{
			LocalPath: d.cfg.Output.SummaryPath,
			Name:      group + "/" + filepath.Base(d.cfg.Output.SummaryPath),
		})
	}

	uploaded, err := d.publisher.Publish(ctx, artifacts)
	if err != nil {
		return nil, err
	}

	if d.catalog != nil && d.snapshot != nil {
		for _, u := range uploaded {
			err := d.catalog.RecordPublication(ctx, &manifest.Publication{
				ObjectPath: u.ObjectPath,
				SnapshotID: d.snapshot.SnapshotID,
				LocalPath:  u.LocalPath,
				Compressed: u.Compressed,
			})
			if err != nil {
				return nil, err
			}
		}
	}
	return uploaded, nil
}

func (d *Dataset) publishGroup() string {
	if d.snapshot != nil {
		return d.snapshot.SnapshotID
	}
	return uuid.New().String()
}

// Fetch downloads a published store into the configured store path, loads
// it and registers it as a new snapshot.
func (d *Dataset) Fetch(ctx context.Context, objectPath string) (int, error) {
	if d.publisher == nil {
		return 0, poperrors.NewConfigError("fetching requires storage type local or s3")
	}

	tmp := filepath.Join(filepath.Dir(d.cfg.Store.Path), fmt.Sprintf(".fetch.%s.tmp", uuid.New().String()))
	defer os.Remove(tmp)

	if err := d.publisher.Fetch(ctx, objectPath, tmp); err != nil {
		return 0, err
	}

	records, _, err := store.LoadFile(tmp)
	if err != nil {
		return 0, err
	}
	if err := os.Rename(tmp, d.cfg.Store.Path); err != nil {
		return 0, fmt.Errorf("install fetched store: %w", err)
	}

	d.store = store.FromRecords(records)
	ordering := manifest.OrderingIngest
	if ranking.IsRanked(records) {
		ordering = manifest.OrderingPopulation
	}
	if err := d.persistSnapshot(ctx, ordering, store.Result{
		Records:  len(records),
		Bytes:    sizeOf(d.cfg.Store.Path),
		Checksum: store.Checksum(records),
	}); err != nil {
		return 0, err
	}
	d.buildIndex(ctx)
	return len(records), nil
}

// History returns catalog snapshots, newest first.
func (d *Dataset) History(ctx context.Context, limit int) ([]*manifest.Snapshot, error) {
	if d.catalog == nil {
		return nil, poperrors.NewConfigError("history requires the manifest to be enabled")
	}
	return d.catalog.ListSnapshots(ctx, limit)
}

// Close releases the catalog.
func (d *Dataset) Close() error {
	if d.catalog != nil {
		return d.catalog.Close()
	}
	return nil
}

// persist writes s to the store file and registers the snapshot.
func (d *Dataset) persist(ctx context.Context, s *store.Store, ordering string) error {
	path := d.cfg.Store.Path
	res, err := s.PersistFile(path, d.cfg.Store.AtomicWrites)
	d.logger.LogPersist(ctx, path, res.Records, res.Bytes, err)
	if err != nil {
		return err
	}
	return d.persistSnapshot(ctx, ordering, res)
}

func (d *Dataset) persistSnapshot(ctx context.Context, ordering string, res store.Result) error {
	if d.catalog == nil {
		return nil
	}
	snap := &manifest.Snapshot{
		StorePath:   d.cfg.Store.Path,
		Ordering:    ordering,
		RecordCount: int64(res.Records),
		SizeBytes:   res.Bytes,
		Checksum:    res.Checksum,
		CreatedAt:   time.Now(),
	}
	if err := d.catalog.RegisterSnapshot(ctx, snap); err != nil {
		return err
	}
	d.snapshot = snap
	return nil
}

func (d *Dataset) buildIndex(ctx context.Context) {
	d.index = index.Build(d.store.Records())
	d.logger.LogDuplicates(ctx, d.index.Duplicates())
}

func sizeOf(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
