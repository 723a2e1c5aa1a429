package pagedb

import (
	"crypto/sha256"
	"encoding/binary"
	"path/filepath"
)

// PageID names a page by the table it belongs to and its offset within that
// table's backing file. It is a plain comparable struct, so it works
// directly as a map key with no custom Hash method.
type PageID struct {
	TableID int64
	PageNo  int
}

// Ints returns the PageID as a two-integer tuple, the form written into a
// WAL record.
func (p PageID) Ints() [2]int64 {
	return [2]int64{p.TableID, int64(p.PageNo)}
}

// TableIDForPath derives a table's identifier from a hash of its backing
// file's absolute path. Two HeapFiles opened against the same path (e.g.
// across process restarts) therefore agree on table identity without any
// persisted mapping.
func TableIDForPath(path string) int64 {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	sum := sha256.Sum256([]byte(abs))
	return int64(binary.LittleEndian.Uint64(sum[:8]))
}
