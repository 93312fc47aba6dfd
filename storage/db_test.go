package storage

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
)

func testDatabase(t *testing.T, db Database) {
	t.Helper()

	key := []byte("token/state")
	if _, err := db.Get(key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing key: got %v, want ErrNotFound", err)
	}
	if ok, err := db.Has(key); err != nil || ok {
		t.Fatalf("Has on missing key: %v, %v", ok, err)
	}

	value := []byte{0x01, 0x02, 0x03}
	if err := db.Put(key, value); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := db.Get(key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(got, value) {
		t.Fatalf("get = %x, want %x", got, value)
	}
	if ok, err := db.Has(key); err != nil || !ok {
		t.Fatalf("Has on present key: %v, %v", ok, err)
	}

	// Overwrite replaces the value.
	next := []byte{0xff}
	if err := db.Put(key, next); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, err = db.Get(key)
	if err != nil {
		t.Fatalf("get after overwrite: %v", err)
	}
	if !bytes.Equal(got, next) {
		t.Fatalf("get = %x, want %x", got, next)
	}
}

func TestMemDB(t *testing.T) {
	db := NewMemDB()
	defer db.Close()
	testDatabase(t, db)
}

func TestMemDBCopiesBuffers(t *testing.T) {
	db := NewMemDB()
	defer db.Close()

	value := []byte{0x01, 0x02}
	if err := db.Put([]byte("k"), value); err != nil {
		t.Fatalf("put: %v", err)
	}
	value[0] = 0xaa
	got, err := db.Get([]byte("k"))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got[0] != 0x01 {
		t.Fatalf("stored value aliased the caller's buffer")
	}
	got[1] = 0xbb
	again, err := db.Get([]byte("k"))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if again[1] != 0x02 {
		t.Fatalf("returned value aliased the stored buffer")
	}
}

func TestLevelDB(t *testing.T) {
	db, err := NewLevelDB(filepath.Join(t.TempDir(), "db"))
	if err != nil {
		t.Fatalf("open leveldb: %v", err)
	}
	defer db.Close()
	testDatabase(t, db)
}

func TestLevelDBPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db")
	db, err := NewLevelDB(path)
	if err != nil {
		t.Fatalf("open leveldb: %v", err)
	}
	if err := db.Put([]byte("k"), []byte("v")); err != nil {
		t.Fatalf("put: %v", err)
	}
	db.Close()

	reopened, err := NewLevelDB(path)
	if err != nil {
		t.Fatalf("reopen leveldb: %v", err)
	}
	defer reopened.Close()
	got, err := reopened.Get([]byte("k"))
	if err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
	if !bytes.Equal(got, []byte("v")) {
		t.Fatalf("get = %q, want %q", got, "v")
	}
}
