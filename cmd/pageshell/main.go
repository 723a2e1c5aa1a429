// Command pageshell is an interactive shell for driving a pagedb engine
// directly at the page/tuple level, bypassing any query layer -- useful for
// poking at buffer-pool and lock behavior by hand.
package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/larkspur-db/pagedb"
)

type session struct {
	bp      *pagedb.BufferPool
	wal     *pagedb.WAL
	catalog *pagedb.Catalog
	tid     *pagedb.TransactionID
}

func main() {
	dataDir := "."
	if len(os.Args) > 1 {
		dataDir = os.Args[1]
	}

	lm := pagedb.NewLockManager()
	wal, err := pagedb.OpenWAL(dataDir + "/pagedb.wal")
	if err != nil {
		fmt.Fprintln(os.Stderr, "opening WAL:", err)
		os.Exit(1)
	}
	defer wal.Close()

	bp, err := pagedb.NewBufferPool(128, lm, wal)
	if err != nil {
		fmt.Fprintln(os.Stderr, "creating buffer pool:", err)
		os.Exit(1)
	}

	sess := &session{bp: bp, wal: wal, catalog: pagedb.NewCatalog(dataDir, bp)}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "pagedb> ",
		HistoryFile:     dataDir + "/.pageshell_history",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return
		}
		sess.dispatch(strings.TrimSpace(line))
	}
}

func (s *session) dispatch(line string) {
	if line == "" {
		return
	}
	fields := strings.Fields(line)
	cmd := fields[0]
	args := fields[1:]

	var err error
	switch cmd {
	case "begin":
		err = s.begin()
	case "commit":
		err = s.end(true)
	case "abort":
		err = s.end(false)
	case "createtable":
		err = s.catalog.AddTable(strings.SplitN(line, " ", 2)[1])
	case "get":
		err = s.get(args)
	case "flush":
		err = s.bp.FlushAllPages()
	case "log":
		err = s.wal.OutputPrettyLog()
	case "help":
		printHelp()
	case "quit", "exit":
		os.Exit(0)
	default:
		err = fmt.Errorf("unknown command %q (try \"help\")", cmd)
	}
	if err != nil {
		fmt.Println("error:", err)
	}
}

func (s *session) begin() error {
	if s.tid != nil {
		return fmt.Errorf("transaction %d already active", *s.tid)
	}
	tid := pagedb.NewTID()
	s.tid = &tid
	fmt.Println("started transaction", tid)
	return nil
}

func (s *session) end(commit bool) error {
	if s.tid == nil {
		return fmt.Errorf("no active transaction")
	}
	err := s.bp.TransactionComplete(*s.tid, commit)
	s.tid = nil
	return err
}

func (s *session) get(args []string) error {
	if s.tid == nil {
		return fmt.Errorf("no active transaction; run begin first")
	}
	if len(args) != 3 {
		return fmt.Errorf("usage: get <table> <pageNo> <r|w>")
	}
	tf, err := s.catalog.OpenTable(args[0])
	if err != nil {
		return err
	}
	pageNo, err := strconv.Atoi(args[1])
	if err != nil {
		return err
	}
	perm := pagedb.ReadPerm
	if args[2] == "w" {
		perm = pagedb.WritePerm
	}
	pid := pagedb.PageID{TableID: tf.TableID(), PageNo: pageNo}
	page, err := s.bp.GetPage(*s.tid, pid, perm)
	if err != nil {
		return err
	}
	fmt.Printf("page %v: %d free slot(s)\n", pid, page.NumFreeSlots())
	return nil
}

func printHelp() {
	fmt.Println(`commands:
  begin                         start a transaction
  commit / abort                end the active transaction
  createtable <CREATE TABLE ...> register a table from DDL
  get <table> <pageNo> <r|w>    fetch a page with the given permission
  flush                         force a checkpoint flush of all dirty pages
  log                           print the write-ahead log's records
  quit / exit                   leave the shell`)
}
