package colours

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/zeebo/blake3"
)

// Cache stores the generated artifacts of previous conversions, keyed by a
// hash of the source image and the settings used.
type Cache struct {
	db *sqlx.DB
}

// Entry is a cached pair of artifacts.
type Entry struct {
	Key      string `db:"hash"`
	Palettes string `db:"palettes"`
	Pixels   string `db:"pixels"`
}

// OpenCache opens or creates the cache database in file.
func OpenCache(file string) (*Cache, error) {
	db, err := sqlx.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000", file))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS asset (id INTEGER PRIMARY KEY NOT NULL, hash TEXT NOT NULL UNIQUE, palettes TEXT NOT NULL, pixels TEXT NOT NULL)"); err != nil {
		db.Close()
		return nil, err
	}

	return &Cache{
		db: db,
	}, nil
}

// Close closes the database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Find returns the entry for key, or nil if there isn't one.
func (c *Cache) Find(key string) (*Entry, error) {
	e := new(Entry)
	switch err := c.db.Get(e, "SELECT hash, palettes, pixels FROM asset WHERE hash = ?", key); err {
	case sql.ErrNoRows:
		return nil, nil
	case nil:
		return e, nil
	default:
		return nil, err
	}
}

// Store adds or replaces the entry.
func (c *Cache) Store(e *Entry) error {
	if _, err := c.db.NamedExec("INSERT OR REPLACE INTO asset (hash, palettes, pixels) VALUES (:hash, :palettes, :pixels)", e); err != nil {
		return err
	}
	return nil
}

// cacheKey hashes the source image bytes together with everything else
// that ends up in the artifacts.
func cacheKey(src []byte, fingerprint, source string) string {
	h := blake3.New()
	h.Write(src)
	for _, s := range []string{fingerprint, source} {
		io.WriteString(h, "\x00")
		io.WriteString(h, s)
	}
	return hex.EncodeToString(h.Sum(nil))
}
