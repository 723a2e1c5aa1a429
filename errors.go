package pagedb

import "fmt"

// GoDBErrorCode classifies the errors that cross the core's boundary. Callers
// branch on the code rather than matching error strings.
type GoDBErrorCode int

const (
	// TransactionAbortedError signals a deadlock victim (or another fatal
	// obstruction) inside GetPage. The caller's transaction is done: GetPage
	// has already run TransactionComplete(tid, commit=false) for it.
	TransactionAbortedError GoDBErrorCode = iota
	// BufferPoolFullError signals that eviction could not find a clean slot.
	BufferPoolFullError
	// TupleNotFoundError signals a delete/read against a slot that isn't there.
	TupleNotFoundError
	// MalformedDataError signals input that doesn't parse or doesn't fit:
	// bad DDL, an invalid argument, or a page handed to the wrong table/log.
	MalformedDataError
	// TypeMismatchError signals a field value that doesn't match its FieldType.
	TypeMismatchError
	// IncompatibleTypesError signals a predicate/merge over incomparable fields.
	IncompatibleTypesError
	// AmbiguousNameError signals a field lookup that matches more than one column.
	AmbiguousNameError
	// IOError wraps a failure from the WAL or the backing data file.
	IOError
)

// GoDBError is the single error value type used across the core. msg is a
// human-readable detail; code is what callers should dispatch on.
type GoDBError struct {
	code GoDBErrorCode
	msg  string
}

func NewGoDBError(code GoDBErrorCode, msg string) GoDBError {
	return GoDBError{code: code, msg: msg}
}

func (e GoDBError) Error() string {
	return fmt.Sprintf("%s: %s", e.code, e.msg)
}

// GetErrorCode returns the error kind so callers can dispatch without
// string matching.
func (e GoDBError) GetErrorCode() GoDBErrorCode {
	return e.code
}

func (c GoDBErrorCode) String() string {
	switch c {
	case TransactionAbortedError:
		return "transaction aborted"
	case BufferPoolFullError:
		return "buffer pool full"
	case TupleNotFoundError:
		return "tuple not found"
	case MalformedDataError:
		return "malformed data"
	case TypeMismatchError:
		return "type mismatch"
	case IncompatibleTypesError:
		return "incompatible types"
	case AmbiguousNameError:
		return "ambiguous name"
	case IOError:
		return "i/o error"
	default:
		return "unknown error"
	}
}

// IsTransactionAborted reports whether err signals a deadlock-victim abort,
// the only error GetPage's lock-wait path raises.
func IsTransactionAborted(err error) bool {
	gerr, ok := err.(GoDBError)
	return ok && gerr.code == TransactionAbortedError
}
