package pagedb

import (
	"bytes"
	"encoding/binary"
)

// heapPage is the sole Page implementation: a fixed-size slot directory of
// fixed-width tuples (a 32-bit slot count and a 32-bit used-slot count,
// then the tuples themselves, zero-padded to PageSize).
type heapPage struct {
	id           PageID
	desc         *TupleDesc
	numSlots     int32
	numUsedSlots int32
	tuples       []*Tuple

	dirtier     *TransactionID
	beforeImage *heapPage
}

// newHeapPage allocates an empty page with the slot capacity implied by desc
// and PageSize.
func newHeapPage(id PageID, desc *TupleDesc) (*heapPage, error) {
	perTuple, err := desc.bytesPerTuple()
	if err != nil {
		return nil, err
	}
	if perTuple <= 0 {
		return nil, NewGoDBError(MalformedDataError, "tuple descriptor has zero width")
	}
	p := &heapPage{
		id:       id,
		desc:     desc,
		numSlots: int32(PageSize-8) / perTuple,
	}
	p.tuples = make([]*Tuple, p.numSlots)
	return p, nil
}

func (p *heapPage) ID() PageID { return p.id }

func (p *heapPage) Dirtier() *TransactionID { return p.dirtier }

func (p *heapPage) MarkDirty(tid *TransactionID) {
	p.dirtier = tid
}

func (p *heapPage) BeforeImage() Page {
	if p.beforeImage == nil {
		return nil
	}
	snapshot := *p.beforeImage
	return &snapshot
}

func (p *heapPage) SetBeforeImage() {
	snapshot := *p
	snapshot.tuples = make([]*Tuple, len(p.tuples))
	copy(snapshot.tuples, p.tuples)
	snapshot.dirtier = nil
	snapshot.beforeImage = nil
	p.beforeImage = &snapshot
}

func (p *heapPage) NumFreeSlots() int {
	return int(p.numSlots - p.numUsedSlots)
}

// InsertTuple places t in the first free slot, assigns its RecordID, and
// returns that RecordID. It does not mark the page dirty -- callers (the
// TableFile / BufferPool) own dirtying, since they know the acting
// transaction.
func (p *heapPage) InsertTuple(t *Tuple) (RecordID, error) {
	for slot, existing := range p.tuples {
		if existing != nil {
			continue
		}
		rid := RecordID{PageID: p.id, SlotNo: slot}
		p.tuples[slot] = &Tuple{Desc: *p.desc, Fields: t.Fields, Rid: &rid}
		p.numUsedSlots++
		t.Rid = &rid
		return rid, nil
	}
	return RecordID{}, NewGoDBError(BufferPoolFullError, "no free slots on page")
}

// DeleteTuple clears the slot named by rid. rid.PageID must match this
// page's id.
func (p *heapPage) DeleteTuple(rid RecordID) error {
	if rid.PageID != p.id {
		return NewGoDBError(TupleNotFoundError, "record id does not belong to this page")
	}
	if rid.SlotNo < 0 || rid.SlotNo >= len(p.tuples) || p.tuples[rid.SlotNo] == nil {
		return NewGoDBError(TupleNotFoundError, "slot is empty")
	}
	p.tuples[rid.SlotNo] = nil
	p.numUsedSlots--
	return nil
}

// IteratorOverTuples returns a finite, restartable cursor skipping empty slots.
func (p *heapPage) IteratorOverTuples() func() (*Tuple, error) {
	i := 0
	return func() (*Tuple, error) {
		for i < len(p.tuples) {
			t := p.tuples[i]
			i++
			if t != nil {
				return t, nil
			}
		}
		return nil, nil
	}
}

func (p *heapPage) toBytes() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, p.numSlots); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, p.numUsedSlots); err != nil {
		return nil, err
	}
	for _, t := range p.tuples {
		if t == nil {
			continue
		}
		if err := t.writeTo(buf); err != nil {
			return nil, err
		}
	}
	if buf.Len() < PageSize {
		buf.Write(make([]byte, PageSize-buf.Len()))
	}
	return buf.Bytes(), nil
}

// initFromBytes populates p from a raw PageSize-byte page image.
func (p *heapPage) initFromBytes(data []byte) error {
	buf := bytes.NewBuffer(data)
	if err := binary.Read(buf, binary.LittleEndian, &p.numSlots); err != nil {
		return err
	}
	if err := binary.Read(buf, binary.LittleEndian, &p.numUsedSlots); err != nil {
		return err
	}
	p.tuples = make([]*Tuple, p.numSlots)
	for i := 0; i < int(p.numUsedSlots); i++ {
		t, err := readTupleFrom(buf, p.desc)
		if err != nil {
			return err
		}
		rid := RecordID{PageID: p.id, SlotNo: i}
		t.Rid = &rid
		p.tuples[i] = t
	}
	return nil
}
