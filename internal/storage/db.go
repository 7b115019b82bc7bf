// Package storage is the SQLite layer: a cache of standardized ledger
// tables (explicitly injected into the pipeline, reset on demand), the
// mailbox intake registry, and the run log.
package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"clrecon/internal"
	"clrecon/internal/util"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS contract_lines (
  seq TEXT NOT NULL,
  sourceSystem TEXT NOT NULL,
  contractNumber TEXT NOT NULL,
  mfn TEXT NOT NULL,
  mfnReduced TEXT NOT NULL,
  vendorPart TEXT,
  itemNumber TEXT,
  description TEXT,
  unitCost TEXT NOT NULL,
  uom TEXT,
  qoe REAL NOT NULL,
  effectiveDate TEXT NOT NULL,
  expirationDate TEXT NOT NULL,
  lineNumber TEXT,
  manufacturer TEXT,
  vendor TEXT,
  itemType TEXT,
  onHold TEXT,
  activeLine TEXT,
  lineState TEXT,
  contractStatus TEXT,
  fileName TEXT,
  activeRank TEXT NOT NULL,
  cachedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  PRIMARY KEY (sourceSystem, seq)
);
CREATE INDEX IF NOT EXISTS idx_lines_contract ON contract_lines(contractNumber);
CREATE INDEX IF NOT EXISTS idx_lines_key ON contract_lines(mfnReduced);

CREATE TABLE IF NOT EXISTS intake (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  provider TEXT NOT NULL,
  messageId TEXT NOT NULL,
  subject TEXT,
  sender TEXT,
  receivedAt TEXT,
  hash TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'fetched',
  rawRef TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(provider, messageId)
);

CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  operation TEXT NOT NULL,
  detailsJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

// SaveLines replaces the cached standardized table for one source.
func (d *DB) SaveLines(source internal.SourceSystem, lines []internal.ContractLine) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM contract_lines WHERE sourceSystem = ?`, string(source)); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
INSERT INTO contract_lines (
  seq, sourceSystem, contractNumber, mfn, mfnReduced, vendorPart, itemNumber,
  description, unitCost, uom, qoe, effectiveDate, expirationDate, lineNumber,
  manufacturer, vendor, itemType, onHold, activeLine, lineState, contractStatus,
  fileName, activeRank
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, l := range lines {
		if _, err := stmt.Exec(
			l.Seq, string(l.SourceSystem), l.ContractNumber, l.MFN, l.MFNReduced, l.VendorPart, l.ItemNumber,
			l.Description, l.UnitCost.String(), l.UOM, l.QOE,
			l.EffectiveDate.Format(internal.DateLayout), l.ExpirationDate.Format(internal.DateLayout),
			l.LineNumber, l.Manufacturer, l.Vendor, l.ItemType,
			l.OnHold, l.ActiveLine, l.LineState, l.ContractStatus,
			l.FileName, l.ActiveRank,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// LoadLines returns the cached table for a source. Whether a source has
// been cached at all is tracked separately in metadata, so an empty
// result here is not a miss.
func (d *DB) LoadLines(source internal.SourceSystem) ([]internal.ContractLine, error) {
	rows, err := d.conn.Query(`
SELECT seq, sourceSystem, contractNumber, mfn, mfnReduced, vendorPart, itemNumber,
       description, unitCost, uom, qoe, effectiveDate, expirationDate, lineNumber,
       manufacturer, vendor, itemType, onHold, activeLine, lineState, contractStatus,
       fileName, activeRank
FROM contract_lines WHERE sourceSystem = ? ORDER BY seq ASC
`, string(source))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.ContractLine
	for rows.Next() {
		var l internal.ContractLine
		var system, cost, effective, expiration string
		if err := rows.Scan(
			&l.Seq, &system, &l.ContractNumber, &l.MFN, &l.MFNReduced, &l.VendorPart, &l.ItemNumber,
			&l.Description, &cost, &l.UOM, &l.QOE, &effective, &expiration, &l.LineNumber,
			&l.Manufacturer, &l.Vendor, &l.ItemType, &l.OnHold, &l.ActiveLine, &l.LineState, &l.ContractStatus,
			&l.FileName, &l.ActiveRank,
		); err != nil {
			return nil, err
		}
		l.SourceSystem = internal.SourceSystem(system)
		if l.UnitCost, err = decimal.NewFromString(cost); err != nil {
			return nil, fmt.Errorf("cached unit cost %q for %s: %w", cost, l.Seq, err)
		}
		l.EffectiveDate = util.ParseDate(effective, internal.EpochSentinel)
		l.ExpirationDate = util.ParseDate(expiration, internal.EpochSentinel)
		out = append(out, l)
	}
	return out, rows.Err()
}

// ResetCache drops the cached standardized tables and their markers,
// all sources.
func (d *DB) ResetCache() error {
	if _, err := d.conn.Exec(`DELETE FROM contract_lines`); err != nil {
		return err
	}
	_, err := d.conn.Exec(`DELETE FROM metadata WHERE key LIKE 'cached:%'`)
	return err
}

func (d *DB) UpsertIntake(msg internal.IntakeMessage, hash, rawRef, status string) (internal.IntakeRow, error) {
	_, err := d.conn.Exec(`
INSERT INTO intake (provider, messageId, subject, sender, receivedAt, hash, status, rawRef)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(provider, messageId) DO UPDATE SET
  subject=excluded.subject,
  sender=excluded.sender,
  receivedAt=excluded.receivedAt,
  hash=excluded.hash,
  rawRef=excluded.rawRef,
  updatedAt=CURRENT_TIMESTAMP
`, msg.Provider, msg.MessageID, msg.Subject, msg.From, msg.ReceivedAt, hash, status, rawRef)
	if err != nil {
		return internal.IntakeRow{}, err
	}

	row, err := d.GetIntake(msg.Provider, msg.MessageID)
	if err != nil {
		return internal.IntakeRow{}, err
	}
	if row == nil {
		return internal.IntakeRow{}, errors.New("failed to upsert intake row")
	}
	return *row, nil
}

func (d *DB) GetIntake(provider, messageID string) (*internal.IntakeRow, error) {
	var row internal.IntakeRow
	err := d.conn.QueryRow(`
SELECT id, provider, messageId, subject, sender, receivedAt, hash, status, rawRef
FROM intake WHERE provider = ? AND messageId = ?
`, provider, messageID).Scan(
		&row.ID, &row.Provider, &row.MessageID, &row.Subject, &row.Sender, &row.ReceivedAt, &row.Hash, &row.Status, &row.RawRef,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (d *DB) ListIntakeByStatus(status string, limit int) ([]internal.IntakeRow, error) {
	rows, err := d.conn.Query(`
SELECT id, provider, messageId, subject, sender, receivedAt, hash, status, rawRef
FROM intake WHERE status = ? ORDER BY receivedAt ASC LIMIT ?
`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.IntakeRow
	for rows.Next() {
		var row internal.IntakeRow
		if err := rows.Scan(&row.ID, &row.Provider, &row.MessageID, &row.Subject, &row.Sender, &row.ReceivedAt, &row.Hash, &row.Status, &row.RawRef); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) UpdateIntakeStatus(id int, status string) error {
	_, err := d.conn.Exec(`UPDATE intake SET status = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, status, id)
	return err
}

// LogRun records one pipeline operation with its counters.
func (d *DB) LogRun(operation string, details map[string]any) error {
	blob, _ := json.Marshal(details)
	_, err := d.conn.Exec(`INSERT INTO runs (operation, detailsJson) VALUES (?, ?)`, operation, string(blob))
	return err
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}
