package intake

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"

	"clrecon/internal"
	"clrecon/internal/storage"
)

// Store persists a fetched message: raw MIME on disk keyed by content
// hash, registry row in the database. Refetching the same message is a
// no-op on disk and an update in the registry.
type Store struct {
	db         *storage.DB
	rawMailDir string
}

func NewStore(db *storage.DB, rawMailDir string) *Store {
	return &Store{db: db, rawMailDir: rawMailDir}
}

func (s *Store) Save(msg internal.IntakeMessage) (internal.IntakeRow, error) {
	hashBytes := sha256.Sum256(msg.Raw)
	hash := hex.EncodeToString(hashBytes[:])

	if err := os.MkdirAll(s.rawMailDir, 0o755); err != nil {
		return internal.IntakeRow{}, err
	}

	rawPath := filepath.Join(s.rawMailDir, hash+".eml")
	if _, err := os.Stat(rawPath); os.IsNotExist(err) {
		if err := os.WriteFile(rawPath, msg.Raw, 0o644); err != nil {
			return internal.IntakeRow{}, err
		}
	}

	return s.db.UpsertIntake(msg, hash, rawPath, "fetched")
}
