package pagedb

import "sync/atomic"

// TransactionID identifies a transaction. It is opaque, unique, and
// comparable, so it can be used directly as a map key.
type TransactionID int64

var nextTID int64

// NewTID allocates a fresh, never-reused TransactionID.
func NewTID() TransactionID {
	return TransactionID(atomic.AddInt64(&nextTID, 1))
}
