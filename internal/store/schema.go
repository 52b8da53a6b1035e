package store

const schema = `
CREATE TABLE IF NOT EXISTS allowed_logs (
    path TEXT PRIMARY KEY,
    added_at TIMESTAMP NOT NULL,
    note TEXT
);

CREATE INDEX IF NOT EXISTS idx_allowed_logs_added ON allowed_logs(added_at);
`
