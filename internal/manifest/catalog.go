package manifest

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Snapshot orderings.
const (
	OrderingIngest     = "ingest"
	OrderingPopulation = "population"
)

// Catalog records persisted snapshots of the store.
type Catalog interface {
	// RegisterSnapshot adds a snapshot. An empty SnapshotID is filled in.
	RegisterSnapshot(ctx context.Context, snap *Snapshot) error

	// LatestSnapshot returns the most recent snapshot of storePath, or nil if none.
	LatestSnapshot(ctx context.Context, storePath string) (*Snapshot, error)

	// ListSnapshots returns snapshots newest first. A non-positive limit returns all.
	ListSnapshots(ctx context.Context, limit int) ([]*Snapshot, error)

	// RecordPublication notes that a local file of a snapshot was uploaded.
	RecordPublication(ctx context.Context, pub *Publication) error

	// ListPublications returns the uploads of one snapshot.
	ListPublications(ctx context.Context, snapshotID string) ([]*Publication, error)

	// Close closes the catalog database connection.
	Close() error
}

// Snapshot describes one persist of the store.
type Snapshot struct {
	SnapshotID  string
	StorePath   string
	Ordering    string
	RecordCount int64
	SizeBytes   int64
	Checksum    uint64
	CreatedAt   time.Time
}

// Publication describes one uploaded artifact.
type Publication struct {
	ObjectPath  string
	SnapshotID  string
	LocalPath   string
	Compressed  bool
	PublishedAt time.Time
}

// SQLiteCatalog implements Catalog using SQLite.
type SQLiteCatalog struct {
	db     *sql.DB
	dbPath string
	mu     sync.Mutex // Write-only lock

	insertSnapshotStmt *sql.Stmt
}

// NewCatalog opens (or creates) the catalog database at dbPath.
func NewCatalog(dbPath string) (*SQLiteCatalog, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("manifest: failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	catalog := &SQLiteCatalog{
		db:     db,
		dbPath: dbPath,
	}

	if err := catalog.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("manifest: failed to initialize schema: %w", err)
	}

	insertStmt, err := db.Prepare(`
		INSERT INTO snapshots (
			snapshot_id, store_path, ordering,
			record_count, size_bytes, checksum, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("manifest: failed to prepare insert statement: %w", err)
	}
	catalog.insertSnapshotStmt = insertStmt

	return catalog, nil
}

// initSchema creates all required tables and indexes.
func (c *SQLiteCatalog) initSchema() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, stmt := range AllSchemaSQL() {
		if _, err := c.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}

// RegisterSnapshot adds a snapshot to the catalog.
func (c *SQLiteCatalog) RegisterSnapshot(ctx context.Context, snap *Snapshot) error {
	switch snap.Ordering {
	case OrderingIngest, OrderingPopulation:
	default:
		return fmt.Errorf("manifest: invalid ordering %q", snap.Ordering)
	}
	if snap.SnapshotID == "" {
		snap.SnapshotID = uuid.New().String()
	}
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.insertSnapshotStmt.ExecContext(ctx,
		snap.SnapshotID, snap.StorePath, snap.Ordering,
		snap.RecordCount, snap.SizeBytes, formatChecksum(snap.Checksum),
		snap.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("manifest: failed to insert snapshot: %w", err)
	}
	return nil
}

// LatestSnapshot returns the most recent snapshot of storePath.
func (c *SQLiteCatalog) LatestSnapshot(ctx context.Context, storePath string) (*Snapshot, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT snapshot_id, store_path, ordering, record_count, size_bytes, checksum, created_at
		FROM snapshots
		WHERE store_path = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1`, storePath)

	snap, err := scanSnapshot(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("manifest: failed to get latest snapshot: %w", err)
	}
	return snap, nil
}

// ListSnapshots returns snapshots newest first.
func (c *SQLiteCatalog) ListSnapshots(ctx context.Context, limit int) ([]*Snapshot, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := c.db.QueryContext(ctx, `
		SELECT snapshot_id, store_path, ordering, record_count, size_bytes, checksum, created_at
		FROM snapshots
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("manifest: failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("manifest: failed to scan snapshot: %w", err)
		}
		snapshots = append(snapshots, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("manifest: error iterating snapshots: %w", err)
	}
	return snapshots, nil
}

// RecordPublication notes an uploaded artifact. Publishing the same object
// for the same snapshot again replaces the earlier entry.
func (c *SQLiteCatalog) RecordPublication(ctx context.Context, pub *Publication) error {
	if pub.PublishedAt.IsZero() {
		pub.PublishedAt = time.Now()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO publications (object_path, snapshot_id, local_path, compressed, published_at)
		VALUES (?, ?, ?, ?, ?)`,
		pub.ObjectPath, pub.SnapshotID, pub.LocalPath, pub.Compressed, pub.PublishedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("manifest: failed to insert publication: %w", err)
	}
	return nil
}

// ListPublications returns the uploads of one snapshot ordered by object path.
func (c *SQLiteCatalog) ListPublications(ctx context.Context, snapshotID string) ([]*Publication, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT object_path, snapshot_id, local_path, compressed, published_at
		FROM publications
		WHERE snapshot_id = ?
		ORDER BY object_path`, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("manifest: failed to query publications: %w", err)
	}
	defer rows.Close()

	var pubs []*Publication
	for rows.Next() {
		var (
			pub         Publication
			publishedAt int64
		)
		if err := rows.Scan(&pub.ObjectPath, &pub.SnapshotID, &pub.LocalPath, &pub.Compressed, &publishedAt); err != nil {
			return nil, fmt.Errorf("manifest: failed to scan publication: %w", err)
		}
		pub.PublishedAt = time.Unix(0, publishedAt)
		pubs = append(pubs, &pub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("manifest: error iterating publications: %w", err)
	}
	return pubs, nil
}

// Close closes the catalog database connection.
func (c *SQLiteCatalog) Close() error {
	if c.insertSnapshotStmt != nil {
		c.insertSnapshotStmt.Close()
	}
	return c.db.Close()
}

// Path returns the database file path.
func (c *SQLiteCatalog) Path() string {
	return c.dbPath
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSnapshot(row scanner) (*Snapshot, error) {
	var (
		snap      Snapshot
		checksum  string
		createdAt int64
	)
	err := row.Scan(
		&snap.SnapshotID, &snap.StorePath, &snap.Ordering,
		&snap.RecordCount, &snap.SizeBytes, &checksum, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	sum, err := strconv.ParseUint(checksum, 16, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid checksum %q: %w", checksum, err)
	}
	snap.Checksum = sum
	snap.CreatedAt = time.Unix(0, createdAt)
	return &snap, nil
}

func formatChecksum(sum uint64) string {
	return fmt.Sprintf("%016x", sum)
}
