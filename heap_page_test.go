package pagedb

import "testing"

func makeHeapPageTestVars() (*TupleDesc, *heapPage) {
	td := &TupleDesc{Fields: []FieldType{
		{Fname: "name", Ftype: StringType},
		{Fname: "age", Ftype: IntType},
	}}
	pid := PageID{TableID: 1, PageNo: 0}
	page, err := newHeapPage(pid, td)
	if err != nil {
		panic(err)
	}
	return td, page
}

func TestHeapPageInsertAndDelete(t *testing.T) {
	_, page := makeHeapPageTestVars()
	free := page.NumFreeSlots()
	if free <= 0 {
		t.Fatalf("expected a positive number of free slots, got %d", free)
	}

	tup := &Tuple{Fields: []DBValue{StringField{Value: "josie"}, IntField{Value: 20}}}
	rid, err := page.InsertTuple(tup)
	if err != nil {
		t.Fatalf("InsertTuple: %v", err)
	}
	if page.NumFreeSlots() != free-1 {
		t.Errorf("expected one fewer free slot after insert")
	}

	if err := page.DeleteTuple(rid); err != nil {
		t.Fatalf("DeleteTuple: %v", err)
	}
	if page.NumFreeSlots() != free {
		t.Errorf("expected free slot count to return to %d, got %d", free, page.NumFreeSlots())
	}
}

func TestHeapPageDeleteUnknownSlot(t *testing.T) {
	_, page := makeHeapPageTestVars()
	err := page.DeleteTuple(RecordID{PageID: page.ID(), SlotNo: 0})
	if err == nil {
		t.Fatalf("expected an error deleting an empty slot")
	}
}

func TestHeapPageDeleteWrongPage(t *testing.T) {
	_, page := makeHeapPageTestVars()
	wrong := RecordID{PageID: PageID{TableID: 2, PageNo: 0}, SlotNo: 0}
	if err := page.DeleteTuple(wrong); err == nil {
		t.Fatalf("expected an error deleting a record id from a different page")
	}
}

func TestHeapPageToBytesRoundTrip(t *testing.T) {
	td, page := makeHeapPageTestVars()
	tups := []*Tuple{
		{Fields: []DBValue{StringField{Value: "josie"}, IntField{Value: 20}}},
		{Fields: []DBValue{StringField{Value: "annie"}, IntField{Value: 17}}},
	}
	for _, tup := range tups {
		if _, err := page.InsertTuple(tup); err != nil {
			t.Fatalf("InsertTuple: %v", err)
		}
	}

	data, err := page.toBytes()
	if err != nil {
		t.Fatalf("toBytes: %v", err)
	}
	if len(data) != PageSize {
		t.Fatalf("expected page image of %d bytes, got %d", PageSize, len(data))
	}

	roundTripped := &heapPage{id: page.ID(), desc: td}
	if err := roundTripped.initFromBytes(data); err != nil {
		t.Fatalf("initFromBytes: %v", err)
	}
	if roundTripped.NumFreeSlots() != page.NumFreeSlots() {
		t.Errorf("free slot count did not survive the round trip")
	}

	iter := roundTripped.IteratorOverTuples()
	count := 0
	for {
		tup, err := iter()
		if err != nil {
			t.Fatalf("IteratorOverTuples: %v", err)
		}
		if tup == nil {
			break
		}
		count++
	}
	if count != len(tups) {
		t.Errorf("expected %d tuples after round trip, got %d", len(tups), count)
	}
}

func TestHeapPageBeforeImage(t *testing.T) {
	_, page := makeHeapPageTestVars()
	if page.BeforeImage() != nil {
		t.Fatalf("expected no before-image before SetBeforeImage is called")
	}

	page.SetBeforeImage()
	before := page.BeforeImage()
	if before == nil {
		t.Fatalf("expected a before-image after SetBeforeImage")
	}

	tup := &Tuple{Fields: []DBValue{StringField{Value: "josie"}, IntField{Value: 20}}}
	if _, err := page.InsertTuple(tup); err != nil {
		t.Fatalf("InsertTuple: %v", err)
	}

	if before.NumFreeSlots() == page.NumFreeSlots() {
		t.Errorf("before-image should not reflect mutations made after it was taken")
	}
}
