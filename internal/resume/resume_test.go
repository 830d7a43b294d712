package resume

import (
	"bytes"
	"encoding/gob"
	"path/filepath"
	"testing"

	bolt "go.etcd.io/bbolt"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/assert"
)

func seedDB(t *testing.T, main, backup []Atom) string {
	path := filepath.Join(t.TempDir(), "resume.db")
	db, err := bolt.Open(path, 0o644, nil)
	require.NoError(t, err)
	defer db.Close()

	enc := func(atoms []Atom) []byte {
		var buf bytes.Buffer
		require.NoError(t, gob.NewEncoder(&buf).Encode(atoms))
		return buf.Bytes()
	}

	err = db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketName)
		if err != nil {
			return err
		}
		if main != nil {
			if err := b.Put(mainKey, enc(main)); err != nil {
				return err
			}
		}
		if backup != nil {
			if err := b.Put(backupKey, enc(backup)); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
	return path
}

func TestResumeNoAlwaysEmpty(t *testing.T) {
	path := seedDB(t, []Atom{{"app-editors/vim", "8.0"}}, nil)
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.List(KindNo, true)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestResumeMainOnly(t *testing.T) {
	main := []Atom{{"app-editors/vim", "8.0"}}
	path := seedDB(t, main, nil)
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.List(KindMain, false)
	require.NoError(t, err)
	assert.Equal(t, main, got)

	got, err = s.List(KindBackup, false)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestResumeAutoPrefersMainWhenEmergeRunning(t *testing.T) {
	main := []Atom{{"app-editors/vim", "8.0"}}
	backup := []Atom{{"sys-devel/gcc", "6.4.0"}}
	path := seedDB(t, main, backup)
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.List(KindAuto, true)
	require.NoError(t, err)
	assert.Equal(t, main, got)
}

func TestResumeAutoSkipsWhenNoEmergeRunning(t *testing.T) {
	main := []Atom{{"app-editors/vim", "8.0"}}
	backup := []Atom{{"sys-devel/gcc", "6.4.0"}}
	path := seedDB(t, main, backup)
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.List(KindAuto, false)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestResumeAutoDoesNotFallBackToBackup(t *testing.T) {
	backup := []Atom{{"sys-devel/gcc", "6.4.0"}}
	path := seedDB(t, nil, backup)
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.List(KindAuto, true)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = s.List(KindEither, false)
	require.NoError(t, err)
	assert.Equal(t, backup, got)
}

func TestParseKind(t *testing.T) {
	for s, want := range map[string]Kind{"no": KindNo, "auto": KindAuto, "main": KindMain, "backup": KindBackup, "either": KindEither, "": KindAuto} {
		got, err := ParseKind(s)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseKind("bogus")
	assert.Error(t, err)
}
