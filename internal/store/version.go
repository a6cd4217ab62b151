package store

import (
	"encoding/json/v2"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"

	domainerrors "github.com/shelfmark/shelfmark/internal/errors"
)

// Schema versioning. The on-disk version is monotonic: upgrades happen in
// place when Open stamps the new version, downgrades are impossible without
// deleting the store. That constraint is inherited from the storage engine
// model, not something this code chooses.
const (
	// CodeVersion is the schema generation this build reads and writes.
	CodeVersion = 4
	// MinSupportedVersion is the oldest on-disk generation Open can upgrade
	// in place. Anything older predates the mutation-queue key layout and
	// must go through NormalizeVersion.
	MinSupportedVersion = 3

	schemaVersionKey = "meta:schema_version"
)

// VersionCheck is the schema version guard's verdict for a store path.
type VersionCheck struct {
	StoredVersion  int
	CodeVersion    int
	IsValid        bool
	NeedsMigration bool
}

// CheckVersion inspects the on-disk schema version at path without mutating
// anything. It must run before any other component opens the store.
//
//   - no store yet: valid, no migration (fresh install)
//   - stored < MinSupportedVersion: invalid, migration required (reset path)
//   - stored > CodeVersion: invalid, migration required. The user ran newer
//     code against this store and then downgraded; a forward-only versioned
//     store cannot resolve that in place
//   - stored < CodeVersion: valid, Open will upgrade in place
func CheckVersion(path string) (*VersionCheck, error) {
	check := &VersionCheck{CodeVersion: CodeVersion}

	if !storeExists(path) {
		check.IsValid = true
		return check, nil
	}

	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open store for version check: %w", err)
	}
	defer db.Close()

	stored, err := readSchemaVersion(db)
	if err != nil {
		return nil, err
	}
	check.StoredVersion = stored

	switch {
	case stored == 0:
		// Store directory exists but was never stamped - treat as fresh.
		check.IsValid = true
	case stored < MinSupportedVersion:
		check.NeedsMigration = true
	case stored > CodeVersion:
		check.NeedsMigration = true
	case stored < CodeVersion:
		check.IsValid = true
		check.NeedsMigration = true
	default:
		check.IsValid = true
	}

	return check, nil
}

// NormalizeVersion is the destructive recovery path for an invalid store:
// delete and recreate. Data loss is accepted and documented; the caller must
// restart the process afterwards so every component re-opens a fresh store.
//
// Returns ErrResetBlocked when another running session holds the store's
// directory lock - the user has to close other sessions first.
func NormalizeVersion(path string, logger *slog.Logger) error {
	if !storeExists(path) {
		return nil
	}

	// Acquire the directory lock before deleting so we never pull the store
	// out from under a live session.
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		if isLockError(err) {
			return domainerrors.ErrResetBlocked.WithCause(err)
		}
		// An unreadable store is exactly what we are about to delete anyway.
		if logger != nil {
			logger.Warn("store unreadable during reset, deleting anyway", "error", err)
		}
	} else {
		_ = db.Close()
	}

	if err := os.RemoveAll(path); err != nil {
		return domainerrors.ErrResetBlocked.WithCause(err)
	}

	if logger != nil {
		logger.Warn("local store reset, restart required", "path", path)
	}
	return nil
}

// stampSchemaVersion enforces the version invariant on open and records the
// current code version. Called by Open before any entity table is touched.
func (s *Store) stampSchemaVersion() error {
	stored, err := readSchemaVersion(s.db)
	if err != nil {
		return err
	}

	if stored > CodeVersion {
		return domainerrors.ErrVersionMismatch.WithDetails(map[string]int{
			"stored_version": stored,
			"code_version":   CodeVersion,
		})
	}
	if stored != 0 && stored < MinSupportedVersion {
		return domainerrors.ErrVersionMismatch.WithDetails(map[string]int{
			"stored_version":        stored,
			"min_supported_version": MinSupportedVersion,
		})
	}

	if stored == CodeVersion {
		return nil
	}

	// Fresh store or in-place upgrade: stamp the current version.
	data, err := json.Marshal(CodeVersion)
	if err != nil {
		return fmt.Errorf("marshal schema version: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(schemaVersionKey), data)
	})
}

// readSchemaVersion returns the stamped version, or 0 when the store has none.
func readSchemaVersion(db *badger.DB) (int, error) {
	var version int
	err := db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(schemaVersionKey))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &version)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}

// storeExists reports whether a store has ever been created at path.
func storeExists(path string) bool {
	entries, err := os.ReadDir(path)
	if err != nil {
		return false
	}
	return len(entries) > 0
}

// isLockError reports whether a badger open failure is the directory-lock
// conflict raised when another process has the store open.
func isLockError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "Cannot acquire directory lock")
}
