package pagedb

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
)

// DBType is the type of a tuple field: IntType or StringType.
type DBType int

const (
	IntType DBType = iota
	StringType
)

func (t DBType) String() string {
	switch t {
	case IntType:
		return "int"
	case StringType:
		return "string"
	default:
		return "unknown"
	}
}

// FieldType names one column of a TupleDesc: its name and its DBType.
// TableQualifier disambiguates same-named columns from different tables in
// a join result; the core itself never branches on it.
type FieldType struct {
	Fname          string
	TableQualifier string
	Ftype          DBType
}

// TupleDesc is the schema of a heap page's tuples: their field names and types.
type TupleDesc struct {
	Fields []FieldType
}

// equals compares two TupleDescs for structural equality: same length, same
// field names, same field types in order.
func (d1 *TupleDesc) equals(d2 *TupleDesc) bool {
	if len(d1.Fields) != len(d2.Fields) {
		return false
	}
	for i := range d1.Fields {
		if d1.Fields[i].Fname != d2.Fields[i].Fname || d1.Fields[i].Ftype != d2.Fields[i].Ftype {
			return false
		}
	}
	return true
}

// copy returns a TupleDesc with its own backing slice, so mutating the
// result never aliases the receiver's Fields.
func (d *TupleDesc) copy() *TupleDesc {
	fields := make([]FieldType, len(d.Fields))
	copy(fields, d.Fields)
	return &TupleDesc{Fields: fields}
}

// bytesPerTuple is the fixed on-disk width of a tuple matching this
// TupleDesc: every IntType field is 8 bytes, every StringType field is
// StringLength bytes.
func (d *TupleDesc) bytesPerTuple() (int32, error) {
	var size int32
	for _, f := range d.Fields {
		switch f.Ftype {
		case IntType:
			size += 8
		case StringType:
			size += int32(StringLength)
		default:
			return 0, NewGoDBError(TypeMismatchError, fmt.Sprintf("unknown field type for %s", f.Fname))
		}
	}
	return size, nil
}

// DBValue is the value stored in one tuple field. IntField and StringField
// are the only implementations the core needs; it never inspects the field
// beyond serializing and comparing it for equality.
type DBValue interface {
	dbValue()
}

type IntField struct {
	Value int64
}

func (IntField) dbValue() {}

type StringField struct {
	Value string
}

func (StringField) dbValue() {}

// RecordID identifies a tuple's slot within a page. insertTuple assigns one;
// deleteTuple requires it to name a page the caller actually holds.
type RecordID struct {
	PageID PageID
	SlotNo int
}

// Tuple is a schema plus its field values, and (once read from a page or
// inserted into one) the slot it lives in.
type Tuple struct {
	Desc   TupleDesc
	Fields []DBValue
	Rid    *RecordID
}

func writeStringField(b *bytes.Buffer, f StringField) error {
	padded := make([]byte, StringLength)
	copy(padded, []byte(f.Value))
	return binary.Write(b, binary.LittleEndian, padded)
}

func writeIntField(b *bytes.Buffer, f IntField) error {
	return binary.Write(b, binary.LittleEndian, f.Value)
}

// writeTo serializes the tuple's fields, in order, as fixed-width records.
func (t *Tuple) writeTo(b *bytes.Buffer) error {
	for _, field := range t.Fields {
		switch v := field.(type) {
		case StringField:
			if err := writeStringField(b, v); err != nil {
				return err
			}
		case IntField:
			if err := writeIntField(b, v); err != nil {
				return err
			}
		default:
			return NewGoDBError(TypeMismatchError, fmt.Sprintf("unsupported field type %T", field))
		}
	}
	return nil
}

func readStringField(b *bytes.Buffer) (StringField, error) {
	raw := make([]byte, StringLength)
	if err := binary.Read(b, binary.LittleEndian, raw); err != nil {
		return StringField{}, err
	}
	return StringField{Value: strings.TrimRight(string(raw), "\x00")}, nil
}

func readIntField(b *bytes.Buffer) (IntField, error) {
	var v int64
	if err := binary.Read(b, binary.LittleEndian, &v); err != nil {
		return IntField{}, err
	}
	return IntField{Value: v}, nil
}

// readTupleFrom deserializes one tuple matching desc from b.
func readTupleFrom(b *bytes.Buffer, desc *TupleDesc) (*Tuple, error) {
	t := &Tuple{Desc: *desc}
	for _, fd := range desc.Fields {
		switch fd.Ftype {
		case StringType:
			f, err := readStringField(b)
			if err != nil {
				return nil, err
			}
			t.Fields = append(t.Fields, f)
		default:
			f, err := readIntField(b)
			if err != nil {
				return nil, err
			}
			t.Fields = append(t.Fields, f)
		}
	}
	return t, nil
}

// equals compares two tuples for equality: same descriptor, same fields in
// order.
func (t1 *Tuple) equals(t2 *Tuple) bool {
	if t1 == nil || t2 == nil {
		return t1 == t2
	}
	if !t1.Desc.equals(&t2.Desc) || len(t1.Fields) != len(t2.Fields) {
		return false
	}
	for i := range t1.Fields {
		if t1.Fields[i] != t2.Fields[i] {
			return false
		}
	}
	return true
}
