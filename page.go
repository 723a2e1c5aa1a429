package pagedb

// Page is the contract the buffer pool and table files need from a page,
// independent of its on-disk layout. heapPage is the only implementation in
// this module.
type Page interface {
	ID() PageID

	// Dirtier returns the transaction that last mutated this page since it
	// was last clean, or nil if the page is clean.
	Dirtier() *TransactionID

	// MarkDirty records tid as the page's dirtier, or clears the dirty bit
	// when tid is nil.
	MarkDirty(tid *TransactionID)

	// BeforeImage returns the snapshot taken at the last SetBeforeImage
	// call (when the page is read into the buffer pool, and after each
	// flush), used for WAL undo records.
	BeforeImage() Page

	// SetBeforeImage copies the page's current content as its new baseline.
	SetBeforeImage()

	NumFreeSlots() int

	InsertTuple(t *Tuple) (RecordID, error)
	DeleteTuple(rid RecordID) error

	// IteratorOverTuples returns a finite, restartable cursor over the
	// page's occupied slots.
	IteratorOverTuples() func() (*Tuple, error)

	toBytes() ([]byte, error)
}

// TableFile is the contract the Catalog hands back from openTable: a
// page-addressed heap file bound to a BufferPool.
type TableFile interface {
	TableID() int64
	Descriptor() *TupleDesc
	NumPages() int

	readPage(pid PageID) (Page, error)
	writePage(p Page) error

	InsertTuple(tid TransactionID, t *Tuple) ([]Page, error)
	DeleteTuple(tid TransactionID, t *Tuple) ([]Page, error)

	// Iterator returns a lazy, restartable cursor over every tuple in the
	// file, acquiring each page with ReadPerm as it goes.
	Iterator(tid TransactionID) (func() (*Tuple, error), error)
}
