// Package manifest provides the snapshot catalog for tracking persisted stores.
package manifest

// The snapshot catalog is a SQLite database (manifest.db) recording every
// persist of the binary store, together with the checksum needed to detect a
// file that changed behind the catalog's back, and every artifact published
// to object storage.

// CreateSnapshotsTableSQL creates the snapshots table.
// checksum holds the murmur3 64-bit sum as 16 hex digits, since SQLite
// integers cannot represent the upper half of the uint64 range.
const CreateSnapshotsTableSQL = `
CREATE TABLE IF NOT EXISTS snapshots (
    snapshot_id TEXT PRIMARY KEY,
    store_path TEXT NOT NULL,
    ordering TEXT NOT NULL,
    record_count INTEGER NOT NULL,
    size_bytes INTEGER NOT NULL,
    checksum TEXT NOT NULL,
    created_at INTEGER NOT NULL
)`

// CreatePublicationsTableSQL creates the publications table.
const CreatePublicationsTableSQL = `
CREATE TABLE IF NOT EXISTS publications (
    object_path TEXT NOT NULL,
    snapshot_id TEXT NOT NULL,
    local_path TEXT NOT NULL,
    compressed INTEGER NOT NULL DEFAULT 0,
    published_at INTEGER NOT NULL,
    PRIMARY KEY (object_path, snapshot_id),
    FOREIGN KEY (snapshot_id) REFERENCES snapshots(snapshot_id)
)`

// CreateIndexesSQL creates indexes for the catalog queries.
var CreateIndexesSQL = []string{
	// Latest snapshot per store file
	`CREATE INDEX IF NOT EXISTS idx_snapshots_store ON snapshots(store_path, created_at)`,

	// History listing
	`CREATE INDEX IF NOT EXISTS idx_snapshots_created ON snapshots(created_at)`,
}

// AllSchemaSQL returns every schema statement in execution order.
func AllSchemaSQL() []string {
	stmts := []string{CreateSnapshotsTableSQL, CreatePublicationsTableSQL}
	return append(stmts, CreateIndexesSQL...)
}
