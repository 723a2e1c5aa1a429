package pagedb

// Catalog maps table names to open TableFiles and their schemas, loading
// new tables from CREATE TABLE DDL. DDL is parsed with sqlparser exactly as
// a SQL front end would hand it to the storage layer, and a scalable Bloom
// filter of known table names lets OpenTable reject a typo'd or dropped
// table name before ever touching c.tables.

import (
	"fmt"
	"path/filepath"

	boom "github.com/tylertreat/BoomFilters"
	"github.com/xwb1989/sqlparser"
)

type Catalog struct {
	rootDir string
	bp      *BufferPool

	tables  map[string]*HeapFile
	schemas map[string]*TupleDesc
	seen    *boom.ScalableBloomFilter
}

// NewCatalog creates a catalog rooted at dir, where each table's backing
// file lives at dir/<name>.dat, registering opened tables with bp.
func NewCatalog(dir string, bp *BufferPool) *Catalog {
	return &Catalog{
		rootDir: dir,
		bp:      bp,
		tables:  make(map[string]*HeapFile),
		schemas: make(map[string]*TupleDesc),
		seen:    boom.NewDefaultScalableBloomFilter(0.01),
	}
}

// AddTable parses a single CREATE TABLE statement and opens (creating if
// necessary) its backing heap file, registering it with the BufferPool.
func (c *Catalog) AddTable(createStmt string) error {
	stmt, err := sqlparser.Parse(createStmt)
	if err != nil {
		return NewGoDBError(MalformedDataError, fmt.Sprintf("parsing DDL: %v", err))
	}
	ddl, ok := stmt.(*sqlparser.DDL)
	if !ok || ddl.Action != sqlparser.CreateStr || ddl.TableSpec == nil {
		return NewGoDBError(MalformedDataError, "expected a CREATE TABLE statement")
	}

	name := ddl.NewName.Name.String()
	desc, err := tupleDescFromColumns(ddl.TableSpec.Columns)
	if err != nil {
		return err
	}

	path := filepath.Join(c.rootDir, name+".dat")
	hf, err := NewHeapFile(path, desc, c.bp)
	if err != nil {
		return err
	}
	c.bp.RegisterTable(hf)

	c.tables[name] = hf
	c.schemas[name] = desc
	c.seen.Add([]byte(name))
	return nil
}

func tupleDescFromColumns(cols []sqlparser.ColumnDefinition) (*TupleDesc, error) {
	fields := make([]FieldType, 0, len(cols))
	for _, col := range cols {
		var ftype DBType
		switch col.Type.Type {
		case "int", "bigint", "integer":
			ftype = IntType
		case "varchar", "char", "text":
			ftype = StringType
		default:
			return nil, NewGoDBError(MalformedDataError, fmt.Sprintf("unsupported column type %q", col.Type.Type))
		}
		fields = append(fields, FieldType{Fname: col.Name.String(), Ftype: ftype})
	}
	return &TupleDesc{Fields: fields}, nil
}

// OpenTable returns the named table's TableFile. The Bloom filter check is
// a cheap way to fail fast on a name that was never added; a positive still
// requires the map lookup to confirm, since the filter can false-positive.
func (c *Catalog) OpenTable(name string) (TableFile, error) {
	if !c.seen.Test([]byte(name)) {
		return nil, NewGoDBError(TupleNotFoundError, fmt.Sprintf("no such table: %s", name))
	}
	hf, ok := c.tables[name]
	if !ok {
		return nil, NewGoDBError(TupleNotFoundError, fmt.Sprintf("no such table: %s", name))
	}
	return hf, nil
}

// SchemaOf returns the named table's schema.
func (c *Catalog) SchemaOf(name string) (*TupleDesc, error) {
	desc, ok := c.schemas[name]
	if !ok {
		return nil, NewGoDBError(TupleNotFoundError, fmt.Sprintf("no such table: %s", name))
	}
	return desc, nil
}
