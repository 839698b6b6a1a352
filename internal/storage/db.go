package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"papeterie/internal"
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
CREATE TABLE IF NOT EXISTS products (
  id INTEGER PRIMARY KEY,
  name TEXT NOT NULL,
  ean TEXT,
  sku TEXT,
  priceTtc REAL NOT NULL DEFAULT 0,
  marginPercent REAL,
  stockQuantity INTEGER,
  eco INTEGER NOT NULL DEFAULT 0,
  category TEXT,
  updatedAt TEXT,
  raw_json TEXT NOT NULL,
  lastSeenAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_products_name ON products(name);
CREATE INDEX IF NOT EXISTS idx_products_ean ON products(ean);
CREATE INDEX IF NOT EXISTS idx_products_sku ON products(sku);

CREATE TABLE IF NOT EXISTS suppliers (
  id INTEGER PRIMARY KEY,
  name TEXT NOT NULL,
  email TEXT,
  leadTimeDays INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS supplier_prices (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  supplierId INTEGER NOT NULL,
  supplierReference TEXT NOT NULL,
  supplierPrice REAL NOT NULL,
  productName TEXT,
  ean TEXT,
  stockQuantity INTEGER NOT NULL DEFAULT 0,
  leadTimeDays INTEGER NOT NULL DEFAULT 0,
  minOrderQuantity INTEGER NOT NULL DEFAULT 0,
  importedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(supplierId, supplierReference),
  FOREIGN KEY(supplierId) REFERENCES suppliers(id)
);

CREATE TABLE IF NOT EXISTS emails (
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

CREATE TABLE IF NOT EXISTS uploads (
  id TEXT PRIMARY KEY,
  fileName TEXT NOT NULL,
  objectKey TEXT NOT NULL,
  size INTEGER NOT NULL,
  schoolName TEXT,
  classLevel TEXT,
  status TEXT NOT NULL DEFAULT 'uploaded',
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS list_matches (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  uploadId TEXT NOT NULL,
  lineNo INTEGER NOT NULL,
  label TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  mandatory INTEGER NOT NULL DEFAULT 1,
  constraints TEXT,
  status TEXT NOT NULL,
  confidence REAL NOT NULL,
  candidatesJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(uploadId, lineNo),
  FOREIGN KEY(uploadId) REFERENCES uploads(id)
);

CREATE TABLE IF NOT EXISTS carts (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  uploadId TEXT NOT NULL,
  tier TEXT NOT NULL,
  itemsJson TEXT NOT NULL,
  itemsCount INTEGER NOT NULL,
  totalTtc REAL NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(uploadId, tier),
  FOREIGN KEY(uploadId) REFERENCES uploads(id)
);

CREATE TABLE IF NOT EXISTS product_relations (
  sourceId INTEGER NOT NULL,
  targetId INTEGER NOT NULL,
  relationType TEXT NOT NULL,
  PRIMARY KEY(sourceId, targetId, relationType)
);

CREATE TABLE IF NOT EXISTS compatibility_matrix (
  productA INTEGER NOT NULL,
  productB INTEGER NOT NULL,
  PRIMARY KEY(productA, productB)
);

CREATE TABLE IF NOT EXISTS reco_events (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  productId INTEGER NOT NULL,
  context TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  traceId TEXT NOT NULL,
  kind TEXT NOT NULL,
  subject TEXT,
  timingsJson TEXT NOT NULL,
  countsJson TEXT NOT NULL,
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

func (d *DB) UpsertProducts(products []internal.ProductRecord) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
INSERT INTO products (id, name, ean, sku, priceTtc, marginPercent, stockQuantity, eco, category, updatedAt, raw_json, lastSeenAt)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(id) DO UPDATE SET
  name=excluded.name,
  ean=excluded.ean,
  sku=excluded.sku,
  priceTtc=excluded.priceTtc,
  marginPercent=excluded.marginPercent,
  stockQuantity=excluded.stockQuantity,
  eco=excluded.eco,
  category=excluded.category,
  updatedAt=excluded.updatedAt,
  raw_json=excluded.raw_json,
  lastSeenAt=CURRENT_TIMESTAMP
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range products {
		eco := 0
		if p.Eco {
			eco = 1
		}
		if _, err := stmt.Exec(p.ID, p.Name, p.EAN, p.SKU, p.PriceTTC, p.MarginPercent, p.StockQuantity, eco, p.Category, p.UpdatedAt, p.RawJSON); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (d *DB) ListProducts() ([]internal.ProductRecord, error) {
	rows, err := d.conn.Query(`
SELECT id, name, ean, sku, priceTtc, marginPercent, stockQuantity, eco, category, updatedAt, raw_json
FROM products`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.ProductRecord
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}

	return out, rows.Err()
}

func (d *DB) GetProduct(id int) (*internal.ProductRecord, error) {
	row := d.conn.QueryRow(`
SELECT id, name, ean, sku, priceTtc, marginPercent, stockQuantity, eco, category, updatedAt, raw_json
FROM products WHERE id = ?`, id)

	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(r rowScanner) (internal.ProductRecord, error) {
	var p internal.ProductRecord
	var eco int
	if err := r.Scan(&p.ID, &p.Name, &p.EAN, &p.SKU, &p.PriceTTC, &p.MarginPercent, &p.StockQuantity, &eco, &p.Category, &p.UpdatedAt, &p.RawJSON); err != nil {
		return internal.ProductRecord{}, err
	}
	p.Eco = eco != 0
	return p, nil
}

func (d *DB) UpsertSuppliers(suppliers []internal.SupplierRecord) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
INSERT INTO suppliers (id, name, email, leadTimeDays)
VALUES (?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  name=excluded.name,
  email=excluded.email,
  leadTimeDays=excluded.leadTimeDays
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, s := range suppliers {
		if _, err := stmt.Exec(s.ID, s.Name, s.Email, s.LeadTimeDays); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (d *DB) ListSuppliers() ([]internal.SupplierRecord, error) {
	rows, err := d.conn.Query(`SELECT id, name, email, leadTimeDays FROM suppliers ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.SupplierRecord
	for rows.Next() {
		var s internal.SupplierRecord
		if err := rows.Scan(&s.ID, &s.Name, &s.Email, &s.LeadTimeDays); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// FindSupplierByEmail resolves the sender of a pricing mail to a supplier.
func (d *DB) FindSupplierByEmail(email string) (*internal.SupplierRecord, error) {
	var s internal.SupplierRecord
	err := d.conn.QueryRow(`SELECT id, name, email, leadTimeDays FROM suppliers WHERE email = ?`, email).
		Scan(&s.ID, &s.Name, &s.Email, &s.LeadTimeDays)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (d *DB) UpsertSupplierPrices(supplierID int, rows []internal.NormalizedRow) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
INSERT INTO supplier_prices (supplierId, supplierReference, supplierPrice, productName, ean, stockQuantity, leadTimeDays, minOrderQuantity, importedAt)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(supplierId, supplierReference) DO UPDATE SET
  supplierPrice=excluded.supplierPrice,
  productName=excluded.productName,
  ean=excluded.ean,
  stockQuantity=excluded.stockQuantity,
  leadTimeDays=excluded.leadTimeDays,
  minOrderQuantity=excluded.minOrderQuantity,
  importedAt=CURRENT_TIMESTAMP
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.Exec(supplierID, r.SupplierReference, r.SupplierPrice, r.ProductName, r.EAN, r.StockQuantity, r.LeadTimeDays, r.MinOrderQuantity); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (d *DB) CountSupplierPrices(supplierID int) (int, error) {
	var count int
	err := d.conn.QueryRow(`SELECT COUNT(*) FROM supplier_prices WHERE supplierId = ?`, supplierID).Scan(&count)
	return count, err
}

func (d *DB) UpsertEmail(provider, messageID, subject, sender, receivedAt, hash, rawRef, status string) (internal.EmailRow, error) {
	_, err := d.conn.Exec(`
INSERT INTO emails (provider, messageId, subject, sender, receivedAt, hash, status, rawRef)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(provider, messageId) DO UPDATE SET
  subject=excluded.subject,
  sender=excluded.sender,
  receivedAt=excluded.receivedAt,
  hash=excluded.hash,
  rawRef=excluded.rawRef,
  updatedAt=CURRENT_TIMESTAMP
`, provider, messageID, subject, sender, receivedAt, hash, status, rawRef)
	if err != nil {
		return internal.EmailRow{}, err
	}

	row, err := d.GetEmailByProviderMessageID(provider, messageID)
	if err != nil {
		return internal.EmailRow{}, err
	}
	if row == nil {
		return internal.EmailRow{}, errors.New("failed to upsert email")
	}
	return *row, nil
}

func (d *DB) GetEmailByProviderMessageID(provider, messageID string) (*internal.EmailRow, error) {
	var row internal.EmailRow
	err := d.conn.QueryRow(`
SELECT id, provider, messageId, subject, sender, receivedAt, hash, status, rawRef
FROM emails WHERE provider = ? AND messageId = ?
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

func (d *DB) ListEmailsByStatus(status string, limit int) ([]internal.EmailRow, error) {
	rows, err := d.conn.Query(`
SELECT id, provider, messageId, subject, sender, receivedAt, hash, status, rawRef
FROM emails WHERE status = ? ORDER BY receivedAt ASC LIMIT ?
`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.EmailRow
	for rows.Next() {
		var row internal.EmailRow
		if err := rows.Scan(&row.ID, &row.Provider, &row.MessageID, &row.Subject, &row.Sender, &row.ReceivedAt, &row.Hash, &row.Status, &row.RawRef); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) UpdateEmailStatus(emailID int, status string) error {
	_, err := d.conn.Exec(`UPDATE emails SET status = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, status, emailID)
	return err
}

func (d *DB) InsertUpload(u internal.SchoolListUpload) error {
	_, err := d.conn.Exec(`
INSERT INTO uploads (id, fileName, objectKey, size, schoolName, classLevel, status)
VALUES (?, ?, ?, ?, ?, ?, 'uploaded')
`, u.ID, u.FileName, u.ObjectKey, u.Size, u.SchoolName, u.ClassLevel)
	return err
}

func (d *DB) GetUpload(id string) (*internal.SchoolListUpload, error) {
	var u internal.SchoolListUpload
	err := d.conn.QueryRow(`
SELECT id, fileName, objectKey, size, schoolName, classLevel, createdAt
FROM uploads WHERE id = ?
`, id).Scan(&u.ID, &u.FileName, &u.ObjectKey, &u.Size, &u.SchoolName, &u.ClassLevel, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (d *DB) UpdateUploadStatus(id, status string) error {
	_, err := d.conn.Exec(`UPDATE uploads SET status = ? WHERE id = ?`, status, id)
	return err
}

// ReplaceListMatches clears and rewrites the match rows of one upload so a
// re-run never mixes generations.
func (d *DB) ReplaceListMatches(uploadID string, matches []internal.SchoolListMatch) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM list_matches WHERE uploadId = ?`, uploadID); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
INSERT INTO list_matches (uploadId, lineNo, label, quantity, mandatory, constraints, status, confidence, candidatesJson)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, m := range matches {
		mandatory := 0
		if m.Item.Mandatory {
			mandatory = 1
		}
		candidatesJSON, _ := json.Marshal(m.Candidates)
		if _, err := stmt.Exec(uploadID, m.Item.LineNo, m.Item.Label, m.Item.Quantity, mandatory, m.Item.Constraints, string(m.Status), m.Confidence, string(candidatesJSON)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (d *DB) ListMatches(uploadID string) ([]internal.SchoolListMatch, error) {
	rows, err := d.conn.Query(`
SELECT lineNo, label, quantity, mandatory, constraints, status, confidence, candidatesJson
FROM list_matches WHERE uploadId = ? ORDER BY lineNo ASC
`, uploadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.SchoolListMatch
	for rows.Next() {
		var m internal.SchoolListMatch
		var mandatory int
		var status, candidatesJSON string
		if err := rows.Scan(&m.Item.LineNo, &m.Item.Label, &m.Item.Quantity, &mandatory, &m.Item.Constraints, &status, &m.Confidence, &candidatesJSON); err != nil {
			return nil, err
		}
		m.Item.Mandatory = mandatory != 0
		m.Status = internal.MatchStatus(status)
		_ = json.Unmarshal([]byte(candidatesJSON), &m.Candidates)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (d *DB) ReplaceCarts(uploadID string, carts []internal.TierCart) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM carts WHERE uploadId = ?`, uploadID); err != nil {
		return err
	}

	for _, c := range carts {
		itemsJSON, _ := json.Marshal(c.Items)
		if _, err := tx.Exec(`
INSERT INTO carts (uploadId, tier, itemsJson, itemsCount, totalTtc)
VALUES (?, ?, ?, ?, ?)
`, uploadID, string(c.Tier), string(itemsJSON), c.ItemsCount, c.TotalTTC); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (d *DB) ListCarts(uploadID string) ([]internal.TierCart, error) {
	rows, err := d.conn.Query(`
SELECT tier, itemsJson, itemsCount, totalTtc FROM carts WHERE uploadId = ?
`, uploadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.TierCart
	for rows.Next() {
		var c internal.TierCart
		var tier, itemsJSON string
		if err := rows.Scan(&tier, &itemsJSON, &c.ItemsCount, &c.TotalTTC); err != nil {
			return nil, err
		}
		c.Tier = internal.CartTier(tier)
		_ = json.Unmarshal([]byte(itemsJSON), &c.Items)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (d *DB) ReplaceRelations(sourceID int, relations map[int]internal.RelationType) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM product_relations WHERE sourceId = ?`, sourceID); err != nil {
		return err
	}
	for targetID, rel := range relations {
		if _, err := tx.Exec(`INSERT INTO product_relations (sourceId, targetId, relationType) VALUES (?, ?, ?)`, sourceID, targetID, string(rel)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListRelated returns relation targets of a product joined with catalog data.
func (d *DB) ListRelated(productID int) ([]internal.RecoProduct, error) {
	rows, err := d.conn.Query(`
SELECT r.targetId, r.relationType, p.name, p.priceTtc, p.marginPercent, p.stockQuantity
FROM product_relations r JOIN products p ON p.id = r.targetId
WHERE r.sourceId = ?
`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.RecoProduct
	for rows.Next() {
		var r internal.RecoProduct
		var relation string
		if err := rows.Scan(&r.ProductID, &relation, &r.Name, &r.PriceTTC, &r.MarginPercent, &r.StockQuantity); err != nil {
			return nil, err
		}
		r.Relation = internal.RelationType(relation)
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListCompatible reads the compatibility matrix in both directions.
func (d *DB) ListCompatible(productID int) ([]internal.RecoProduct, error) {
	rows, err := d.conn.Query(`
SELECT other, p.name, p.priceTtc, p.marginPercent, p.stockQuantity
FROM (
  SELECT productB AS other FROM compatibility_matrix WHERE productA = ?
  UNION
  SELECT productA AS other FROM compatibility_matrix WHERE productB = ?
) JOIN products p ON p.id = other
`, productID, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.RecoProduct
	for rows.Next() {
		var r internal.RecoProduct
		if err := rows.Scan(&r.ProductID, &r.Name, &r.PriceTTC, &r.MarginPercent, &r.StockQuantity); err != nil {
			return nil, err
		}
		r.Relation = internal.RelationCompatibility
		out = append(out, r)
	}
	return out, rows.Err()
}

// ReplaceCompatibility rewrites the whole compatibility matrix. The matrix
// is small enough that a full replace beats tracking deletions.
func (d *DB) ReplaceCompatibility(pairs []internal.CompatibilityPair) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM compatibility_matrix`); err != nil {
		return err
	}
	for _, p := range pairs {
		if _, err := tx.Exec(`
INSERT INTO compatibility_matrix (productA, productB) VALUES (?, ?)
ON CONFLICT(productA, productB) DO NOTHING
`, p.ProductA, p.ProductB); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (d *DB) InsertRecoEvent(productID int, context string) error {
	_, err := d.conn.Exec(`INSERT INTO reco_events (productId, context) VALUES (?, ?)`, productID, context)
	return err
}

func (d *DB) InsertRun(traceID, kind, subject string, timings map[string]float64, counts map[string]int) error {
	timingsJSON, _ := json.Marshal(timings)
	countsJSON, _ := json.Marshal(counts)
	_, err := d.conn.Exec(`INSERT INTO runs (traceId, kind, subject, timingsJson, countsJson) VALUES (?, ?, ?, ?, ?)`, traceID, kind, subject, string(timingsJSON), string(countsJSON))
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
