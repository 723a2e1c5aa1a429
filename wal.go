package pagedb

import (
	"bytes"
	"encoding/binary"
	"io"
	"log"
	"os"
	"sync"
)

// logRecordType distinguishes WAL record kinds.
type logRecordType int8

const (
	beginRecord logRecordType = iota
	commitRecord
	abortRecord
	updateRecord
)

func (t logRecordType) String() string {
	switch t {
	case beginRecord:
		return "begin"
	case commitRecord:
		return "commit"
	case abortRecord:
		return "abort"
	case updateRecord:
		return "update"
	default:
		return "unknown"
	}
}

// WAL is the write-ahead log the buffer pool writes through and forces
// before a dirty page leaves memory. Records are buffered in memory and
// only hit disk on Force.
type WAL struct {
	mu   sync.Mutex
	file *os.File
	buf  bytes.Buffer
}

// OpenWAL opens (creating if necessary) the log file at path.
func OpenWAL(path string) (*WAL, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return nil, NewGoDBError(IOError, err.Error())
	}
	return &WAL{file: f}, nil
}

func (w *WAL) writeHeader(typ logRecordType, tid TransactionID) {
	binary.Write(&w.buf, binary.LittleEndian, int8(typ))
	binary.Write(&w.buf, binary.LittleEndian, int64(tid))
}

func (w *WAL) writePageImage(p Page) error {
	data, err := p.toBytes()
	if err != nil {
		return err
	}
	if _, ok := p.(*heapPage); !ok {
		return NewGoDBError(MalformedDataError, "WAL can only log heap pages")
	}
	ids := p.ID().Ints()
	binary.Write(&w.buf, binary.LittleEndian, ids[0])
	binary.Write(&w.buf, binary.LittleEndian, ids[1])
	binary.Write(&w.buf, binary.LittleEndian, int32(len(data)))
	w.buf.Write(data)
	return nil
}

// LogBegin records that tid has started.
func (w *WAL) LogBegin(tid TransactionID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.writeHeader(beginRecord, tid)
}

// LogCommit records that tid committed.
func (w *WAL) LogCommit(tid TransactionID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.writeHeader(commitRecord, tid)
}

// LogAbort records that tid aborted.
func (w *WAL) LogAbort(tid TransactionID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.writeHeader(abortRecord, tid)
}

// LogWrite records tid's before/after images of a page it dirtied. The
// record must be Force()-d before the page itself is written to its data
// file -- LogWrite alone does not force.
func (w *WAL) LogWrite(tid TransactionID, before, after Page) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if before == nil || after == nil {
		return NewGoDBError(MalformedDataError, "update record needs both page images")
	}
	w.writeHeader(updateRecord, tid)
	if err := w.writePageImage(before); err != nil {
		return err
	}
	if err := w.writePageImage(after); err != nil {
		return err
	}
	return nil
}

// Force flushes buffered records to the OS file and fsyncs it. Every
// LogWrite for page P must be forced before P's data-file write.
func (w *WAL) Force() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.buf.Len() == 0 {
		return nil
	}
	if _, err := w.file.Write(w.buf.Bytes()); err != nil {
		return NewGoDBError(IOError, err.Error())
	}
	w.buf.Reset()
	if err := w.file.Sync(); err != nil {
		return NewGoDBError(IOError, err.Error())
	}
	return nil
}

func (w *WAL) Close() error {
	return w.file.Close()
}

// OutputPrettyLog logs each record's type and transaction to the standard
// logger. It does not reconstruct full page images.
func (w *WAL) OutputPrettyLog() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.file.Sync(); err != nil {
		return err
	}
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	defer w.file.Seek(0, io.SeekEnd)

	for {
		var typ int8
		if err := binary.Read(w.file, binary.LittleEndian, &typ); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		var tid int64
		if err := binary.Read(w.file, binary.LittleEndian, &tid); err != nil {
			return err
		}
		rt := logRecordType(typ)
		log.Printf("RECORD %s tid=%d", rt, tid)
		if rt == updateRecord {
			if err := skipPageImage(w.file); err != nil {
				return err
			}
			if err := skipPageImage(w.file); err != nil {
				return err
			}
		}
	}
}

func skipPageImage(r io.Reader) error {
	var tableID int64
	if err := binary.Read(r, binary.LittleEndian, &tableID); err != nil {
		return err
	}
	var pageNo int64
	if err := binary.Read(r, binary.LittleEndian, &pageNo); err != nil {
		return err
	}
	var size int32
	if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
		return err
	}
	buf := make([]byte, size)
	_, err := io.ReadFull(r, buf)
	return err
}
