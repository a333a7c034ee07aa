package sqlite

// schemaVersion gates structural migration via PRAGMA user_version. The DDL
// below only creates what is absent, so a re-run against an existing database
// never destroys records from a prior version.
const schemaVersion = 1

// schema contains the database schema DDL.
const schema = `
-- State photos: at most one row per USPS state code.
CREATE TABLE IF NOT EXISTS state_photos (
    state_code TEXT PRIMARY KEY,
    image BLOB NOT NULL,
    updated_at DATETIME NOT NULL
);

-- Gallery photos: AUTOINCREMENT keeps deleted ids from ever being reused.
CREATE TABLE IF NOT EXISTS gallery_photos (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    image BLOB NOT NULL,
    created_at DATETIME NOT NULL
);

-- Settings
CREATE TABLE IF NOT EXISTS settings (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`
