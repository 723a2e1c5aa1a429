package pagedb

import "testing"

func TestWALLogWriteRequiresBothImages(t *testing.T) {
	dir := t.TempDir()
	wal, err := OpenWAL(dir + "/test.wal")
	if err != nil {
		t.Fatalf("OpenWAL: %v", err)
	}
	defer wal.Close()

	td := &TupleDesc{Fields: []FieldType{{Fname: "age", Ftype: IntType}}}
	page, err := newHeapPage(PageID{TableID: 1, PageNo: 0}, td)
	if err != nil {
		t.Fatalf("newHeapPage: %v", err)
	}

	if err := wal.LogWrite(NewTID(), nil, page); err == nil {
		t.Fatalf("expected an error logging an update with a nil before-image")
	}
}

func TestWALForceAndPrettyLog(t *testing.T) {
	dir := t.TempDir()
	wal, err := OpenWAL(dir + "/test.wal")
	if err != nil {
		t.Fatalf("OpenWAL: %v", err)
	}
	defer wal.Close()

	td := &TupleDesc{Fields: []FieldType{{Fname: "age", Ftype: IntType}}}
	before, err := newHeapPage(PageID{TableID: 1, PageNo: 0}, td)
	if err != nil {
		t.Fatalf("newHeapPage: %v", err)
	}
	before.SetBeforeImage()
	after, err := newHeapPage(PageID{TableID: 1, PageNo: 0}, td)
	if err != nil {
		t.Fatalf("newHeapPage: %v", err)
	}

	tid := NewTID()
	wal.LogBegin(tid)
	if err := wal.LogWrite(tid, before, after); err != nil {
		t.Fatalf("LogWrite: %v", err)
	}
	wal.LogCommit(tid)

	if err := wal.Force(); err != nil {
		t.Fatalf("Force: %v", err)
	}

	if err := wal.OutputPrettyLog(); err != nil {
		t.Fatalf("OutputPrettyLog: %v", err)
	}
}
