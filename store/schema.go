package store

// Schema creates the dossier tables. Amounts are stored as decimal text with
// two places so equality searches are exact.
const Schema = `
CREATE TABLE IF NOT EXISTS journals (
    code TEXT PRIMARY KEY,
    label TEXT NOT NULL DEFAULT '',
    kind TEXT NOT NULL                  -- AC, VE, BQ, CA, OD, AN
);

CREATE TABLE IF NOT EXISTS accounts (
    code TEXT PRIMARY KEY,
    label TEXT NOT NULL DEFAULT '',
    type TEXT NOT NULL DEFAULT 'GENERAL'
);

CREATE TABLE IF NOT EXISTS counterparties (
    code TEXT PRIMARY KEY,
    name TEXT NOT NULL DEFAULT '',
    kind TEXT NOT NULL DEFAULT 'AU',    -- CL, FO, SA, ET, OS, DI, AU
    account TEXT NOT NULL DEFAULT ''    -- collective account
);

CREATE TABLE IF NOT EXISTS documents (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    number TEXT NOT NULL UNIQUE,
    journal TEXT NOT NULL REFERENCES journals(code),
    date TEXT NOT NULL,                 -- YYYY-MM-DD
    reference TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_documents_journal_date
    ON documents(journal, date, number);

CREATE TABLE IF NOT EXISTS lines (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    document_id INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
    position INTEGER NOT NULL,
    ref TEXT NOT NULL,                  -- line UUID
    day INTEGER NOT NULL DEFAULT 0,
    account TEXT NOT NULL REFERENCES accounts(code),
    counterparty TEXT NOT NULL DEFAULT '',
    label TEXT NOT NULL DEFAULT '',
    due_date TEXT NOT NULL DEFAULT '',  -- YYYY-MM-DD or empty
    debit TEXT NOT NULL DEFAULT '0.00',
    credit TEXT NOT NULL DEFAULT '0.00'
);

CREATE INDEX IF NOT EXISTS idx_lines_document
    ON lines(document_id, position);
`
