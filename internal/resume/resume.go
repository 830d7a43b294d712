// Package resume reads portage's list of packages still pending from an
// interrupted emerge invocation. The real list lives in a Python pickle;
// here it's modeled as a small embedded read-only key-value store with a
// "resume" key (the current list) and a "resume_backup" key (the list
// before the current command started), matching the two slots portage
// itself maintains.
package resume

import (
	"bytes"
	"encoding/gob"
	"fmt"

	bolt "go.etcd.io/bbolt"
)

// Kind selects which resume-list slot(s) to consult.
type Kind int

const (
	KindNo Kind = iota
	KindAuto
	KindMain
	KindBackup
	KindEither
)

// ParseKind parses the --resume CLI spelling.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "no", "n":
		return KindNo, nil
	case "auto", "a", "":
		return KindAuto, nil
	case "main", "m":
		return KindMain, nil
	case "backup", "b":
		return KindBackup, nil
	case "either", "e":
		return KindEither, nil
	default:
		return 0, fmt.Errorf("unknown resume kind %q", s)
	}
}

var (
	bucketName = []byte("resume")
	mainKey    = []byte("resume")
	backupKey  = []byte("resume_backup")
)

// Atom is one pending package from the resume list.
type Atom struct {
	Ebuild  string
	Version string
}

// Store is a read-only handle on the resume-list database.
type Store struct {
	db *bolt.DB
}

// Open opens path read-only. The store is never written by emlop: it only
// observes portage's own bookkeeping.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o444, &bolt.Options{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("open resume db %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// List returns the pending atoms for the requested Kind. emergeRunning
// reports whether at least one emerge process is currently alive, which
// only Auto consults: Auto uses the main list if and only if an emerge is
// running, and skips the store entirely otherwise (no backup fallback) —
// a resume list surviving from a command that already finished is not
// "pending" in any useful sense. Either unconditionally prefers main but
// falls back to backup; Main/Backup return exactly that slot (empty if
// absent); No always returns nil.
func (s *Store) List(kind Kind, emergeRunning bool) ([]Atom, error) {
	if kind == KindNo {
		return nil, nil
	}
	if kind == KindAuto && !emergeRunning {
		return nil, nil
	}
	main, err := s.read(mainKey)
	if err != nil {
		return nil, err
	}
	if kind == KindMain || kind == KindAuto {
		return main, nil
	}
	backup, err := s.read(backupKey)
	if err != nil {
		return nil, err
	}
	switch kind {
	case KindBackup:
		return backup, nil
	case KindEither:
		if len(main) > 0 {
			return main, nil
		}
		return backup, nil
	default:
		return nil, nil
	}
}

func (s *Store) read(key []byte) ([]Atom, error) {
	var atoms []Atom
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		if b == nil {
			return nil
		}
		v := b.Get(key)
		if v == nil {
			return nil
		}
		dec := gob.NewDecoder(bytes.NewReader(v))
		return dec.Decode(&atoms)
	})
	if err != nil {
		return nil, fmt.Errorf("reading resume list: %w", err)
	}
	return atoms, nil
}
