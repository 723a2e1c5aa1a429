package pagedb

import (
	"os"
	"sync"
)

// HeapFile is an unordered collection of tuples backed by a single OS file,
// page k living at byte offset k*PageSize. Every page access goes through
// the bound BufferPool rather than touching the file directly.
type HeapFile struct {
	backingFile string
	tableID     int64
	desc        *TupleDesc
	bufPool     *BufferPool

	mu       sync.Mutex // serializes file-growth (append of a fresh page)
	numPages int
}

// NewHeapFile opens (creating if necessary) the backing file at path for a
// table of the given schema, bound to bp. The table's id is the stable hash
// of the file's absolute path, so re-opening the same path later yields the
// same identity without any persisted mapping.
func NewHeapFile(path string, desc *TupleDesc, bp *BufferPool) (*HeapFile, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0666)
	if err != nil {
		return nil, NewGoDBError(IOError, err.Error())
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, NewGoDBError(IOError, err.Error())
	}
	numPages := int(info.Size()) / PageSize
	if int(info.Size())%PageSize != 0 {
		numPages++
	}

	hf := &HeapFile{
		backingFile: path,
		tableID:     TableIDForPath(path),
		desc:        desc,
		bufPool:     bp,
		numPages:    numPages,
	}
	return hf, nil
}

func (f *HeapFile) TableID() int64         { return f.tableID }
func (f *HeapFile) Descriptor() *TupleDesc { return f.desc }
func (f *HeapFile) NumPages() int          { return f.numPages }
func (f *HeapFile) BackingFile() string    { return f.backingFile }

// readPage validates pid against this file's identity and page count, then
// reads exactly PageSize bytes from the appropriate offset.
func (f *HeapFile) readPage(pid PageID) (Page, error) {
	if pid.TableID != f.tableID {
		return nil, NewGoDBError(MalformedDataError, "page id belongs to a different table")
	}
	if pid.PageNo < 0 || pid.PageNo >= f.numPages {
		return nil, NewGoDBError(TupleNotFoundError, "page number out of range")
	}

	file, err := os.Open(f.backingFile)
	if err != nil {
		return nil, NewGoDBError(IOError, err.Error())
	}
	defer file.Close()

	data := make([]byte, PageSize)
	if _, err := file.ReadAt(data, int64(pid.PageNo)*int64(PageSize)); err != nil {
		return nil, NewGoDBError(IOError, err.Error())
	}

	page := &heapPage{id: pid, desc: f.desc}
	if err := page.initFromBytes(data); err != nil {
		return nil, NewGoDBError(IOError, err.Error())
	}
	return page, nil
}

// writePage writes a PageSize-byte page image at pageNumber*PageSize.
func (f *HeapFile) writePage(p Page) error {
	hp, ok := p.(*heapPage)
	if !ok {
		return NewGoDBError(MalformedDataError, "writePage given a non-heap page")
	}
	file, err := os.OpenFile(f.backingFile, os.O_CREATE|os.O_RDWR, 0666)
	if err != nil {
		return NewGoDBError(IOError, err.Error())
	}
	defer file.Close()

	data, err := hp.toBytes()
	if err != nil {
		return err
	}
	if _, err := file.WriteAt(data, int64(hp.id.PageNo)*int64(PageSize)); err != nil {
		return NewGoDBError(IOError, err.Error())
	}
	return nil
}

// InsertTuple scans existing pages for free space, obtaining each through
// the BufferPool with WritePerm; failing that, it appends a fresh page. It
// returns the single page it dirtied, already resident in the pool.
func (f *HeapFile) InsertTuple(tid TransactionID, t *Tuple) ([]Page, error) {
	for pageNo := 0; pageNo < f.NumPages(); pageNo++ {
		pid := PageID{TableID: f.tableID, PageNo: pageNo}
		page, err := f.bufPool.GetPage(tid, pid, WritePerm)
		if err != nil {
			return nil, err
		}
		if page.NumFreeSlots() > 0 {
			if _, err := page.InsertTuple(t); err != nil {
				return nil, err
			}
			return []Page{page}, nil
		}
	}
	page, err := f.appendEmptyPage()
	if err != nil {
		return nil, err
	}
	pooled, err := f.bufPool.GetPage(tid, page.ID(), WritePerm)
	if err != nil {
		return nil, err
	}
	if _, err := pooled.InsertTuple(t); err != nil {
		return nil, err
	}
	return []Page{pooled}, nil
}

// appendEmptyPage grows the file by one empty page and returns it. Growth is
// serialized by f.mu so two concurrent inserters never both append page k.
func (f *HeapFile) appendEmptyPage() (*heapPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	pid := PageID{TableID: f.tableID, PageNo: f.numPages}
	page, err := newHeapPage(pid, f.desc)
	if err != nil {
		return nil, err
	}
	if err := f.writePage(page); err != nil {
		return nil, err
	}
	f.numPages++
	return page, nil
}

// DeleteTuple removes t (named by t.Rid) from the page it lives on,
// obtaining that page through the BufferPool with WritePerm.
func (f *HeapFile) DeleteTuple(tid TransactionID, t *Tuple) ([]Page, error) {
	if t.Rid == nil {
		return nil, NewGoDBError(TupleNotFoundError, "tuple has no record id")
	}
	page, err := f.bufPool.GetPage(tid, t.Rid.PageID, WritePerm)
	if err != nil {
		return nil, err
	}
	if err := page.DeleteTuple(*t.Rid); err != nil {
		return nil, err
	}
	return []Page{page}, nil
}

// Iterator returns a lazy cursor walking page numbers in order, reading each
// page through the BufferPool with ReadPerm.
func (f *HeapFile) Iterator(tid TransactionID) (func() (*Tuple, error), error) {
	pageNo := 0
	var pageIter func() (*Tuple, error)

	next := func() (*Tuple, error) {
		for {
			if pageIter == nil {
				if pageNo >= f.NumPages() {
					return nil, nil
				}
				pid := PageID{TableID: f.tableID, PageNo: pageNo}
				page, err := f.bufPool.GetPage(tid, pid, ReadPerm)
				if err != nil {
					return nil, err
				}
				pageIter = page.IteratorOverTuples()
			}
			t, err := pageIter()
			if err != nil {
				return nil, err
			}
			if t == nil {
				pageIter = nil
				pageNo++
				continue
			}
			return t, nil
		}
	}
	return next, nil
}
