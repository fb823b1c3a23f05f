package store

// schemaCacheEntries holds persisted task results. The table mirrors
// cache.Entry; expiry is stored as RFC3339 UTC text and enforced by
// DeleteExpired plus the in-memory tier's lazy read check.
const schemaCacheEntries = `
CREATE TABLE IF NOT EXISTS cache_entries (
    key TEXT PRIMARY KEY,
    task_id TEXT NOT NULL,
    value BLOB NOT NULL,
    created_at TEXT NOT NULL,
    expires_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cache_entries_expires ON cache_entries(expires_at);
`
