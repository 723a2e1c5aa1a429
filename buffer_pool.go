package pagedb

// BufferPool caches pages read from table files in a fixed-capacity slot
// array, evicting via a clock (second-chance) sweep, and is the sole path
// through which transactions observe or mutate pages -- every GetPage call
// first acquires the appropriate lock from the embedded LockManager. It
// never evicts a dirty page (NO-STEAL) and writes a transaction's dirtied
// pages through on commit (FORCE), logging to the WAL first.

import (
	"sync"
	"time"
)

type frame struct {
	page     Page
	occupied bool
	ref      bool
}

type BufferPool struct {
	mu       sync.Mutex
	frames   []frame
	index    map[PageID]int
	hand     int
	count    int
	lockMgr  *LockManager
	wal      *WAL
	tables   map[int64]TableFile
}

// NewBufferPool creates a pool with room for capacity pages, backed by lm
// for locking and wal for write-ahead logging. wal may be nil, in which case
// flushes skip logging entirely (useful for tests that don't care about
// durability).
func NewBufferPool(capacity int, lm *LockManager, wal *WAL) (*BufferPool, error) {
	if capacity <= 0 {
		return nil, NewGoDBError(MalformedDataError, "buffer pool capacity must be positive")
	}
	return &BufferPool{
		frames:  make([]frame, capacity),
		index:   make(map[PageID]int),
		lockMgr: lm,
		wal:     wal,
		tables:  make(map[int64]TableFile),
	}, nil
}

// RegisterTable makes tf reachable by GetPage/flush on a cache miss, keyed
// by its TableID. The Catalog calls this as tables are opened.
func (bp *BufferPool) RegisterTable(tf TableFile) {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	bp.tables[tf.TableID()] = tf
}

// GetPage returns the page identified by pid, reading it from its table
// file on a cache miss, after acquiring perm on behalf of tid. If the lock
// is held elsewhere it polls, checking for deadlock on every failed
// attempt; a detected deadlock aborts tid and returns TransactionAbortedError.
func (bp *BufferPool) GetPage(tid TransactionID, pid PageID, perm RWPerm) (Page, error) {
	for {
		if bp.lockMgr.Acquire(tid, pid, perm) {
			break
		}
		if bp.lockMgr.HasDeadlock(tid, pid) {
			bp.TransactionComplete(tid, false)
			return nil, NewGoDBError(TransactionAbortedError, "deadlock detected acquiring lock")
		}
		time.Sleep(lockPollInterval)
	}

	bp.mu.Lock()
	defer bp.mu.Unlock()

	if idx, ok := bp.index[pid]; ok {
		bp.frames[idx].ref = true
		return bp.frames[idx].page, nil
	}

	if bp.count >= len(bp.frames) {
		if err := bp.evictLocked(); err != nil {
			return nil, err
		}
	}

	tf, ok := bp.tables[pid.TableID]
	if !ok {
		return nil, NewGoDBError(MalformedDataError, "no table registered for page id")
	}
	page, err := tf.readPage(pid)
	if err != nil {
		return nil, err
	}
	page.SetBeforeImage()
	bp.insertLocked(pid, page)
	return page, nil
}

// evictLocked runs one clock sweep, clearing reference bits on its first
// pass over a page and evicting the first page it finds with the bit
// already clear and no dirtier. A page with an active dirtier is never a
// candidate -- that would violate NO-STEAL.
func (bp *BufferPool) evictLocked() error {
	n := len(bp.frames)
	for i := 0; i < 2*n+1; i++ {
		idx := bp.hand
		bp.hand = (bp.hand + 1) % n
		f := &bp.frames[idx]
		if !f.occupied {
			continue
		}
		if f.ref {
			f.ref = false
			continue
		}
		if f.page.Dirtier() != nil {
			continue
		}
		delete(bp.index, f.page.ID())
		*f = frame{}
		bp.count--
		return nil
	}
	return NewGoDBError(BufferPoolFullError, "buffer pool full of dirty pages")
}

func (bp *BufferPool) insertLocked(pid PageID, page Page) {
	for i := range bp.frames {
		if !bp.frames[i].occupied {
			bp.frames[i] = frame{page: page, occupied: true, ref: true}
			bp.index[pid] = i
			bp.count++
			return
		}
	}
}

// InsertTuple inserts t into tf on behalf of tid, marking whatever page tf
// chose as dirtied by tid.
func (bp *BufferPool) InsertTuple(tid TransactionID, tf TableFile, t *Tuple) error {
	dirtied, err := tf.InsertTuple(tid, t)
	if err != nil {
		return err
	}
	for _, p := range dirtied {
		p.MarkDirty(&tid)
	}
	return nil
}

// DeleteTuple deletes t from tf on behalf of tid, marking whatever page it
// lived on as dirtied by tid.
func (bp *BufferPool) DeleteTuple(tid TransactionID, tf TableFile, t *Tuple) error {
	dirtied, err := tf.DeleteTuple(tid, t)
	if err != nil {
		return err
	}
	for _, p := range dirtied {
		p.MarkDirty(&tid)
	}
	return nil
}

// flushPageLocked writes p's current image to its table file, logging the
// update (before and after images) to the WAL and forcing it first. It is a
// no-op for a page with no dirtier. Callers must hold bp.mu.
func (bp *BufferPool) flushPageLocked(pid PageID) error {
	idx, ok := bp.index[pid]
	if !ok {
		return nil
	}
	f := &bp.frames[idx]
	dirtier := f.page.Dirtier()
	if dirtier == nil {
		return nil
	}
	tf, ok := bp.tables[pid.TableID]
	if !ok {
		return NewGoDBError(MalformedDataError, "no table registered for page id")
	}
	if bp.wal != nil {
		before := f.page.BeforeImage()
		if err := bp.wal.LogWrite(*dirtier, before, f.page); err != nil {
			return err
		}
		if err := bp.wal.Force(); err != nil {
			return err
		}
	}
	if err := tf.writePage(f.page); err != nil {
		return err
	}
	f.page.MarkDirty(nil)
	f.page.SetBeforeImage()
	return nil
}

// FlushPage writes the named page's current image to disk if dirty.
func (bp *BufferPool) FlushPage(pid PageID) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	return bp.flushPageLocked(pid)
}

// FlushAllPages flushes every dirty page currently resident, regardless of
// which transaction dirtied it. Used by tests and by the shell's flush
// command. It stops at, and returns, the first flush error.
func (bp *BufferPool) FlushAllPages() error {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	for pid := range bp.index {
		if err := bp.flushPageLocked(pid); err != nil {
			return err
		}
	}
	return nil
}

// DiscardPage evicts pid from the pool without writing it back, regardless
// of its dirty bit. Used by TransactionComplete on abort.
func (bp *BufferPool) DiscardPage(pid PageID) {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	bp.discardPageLocked(pid)
}

func (bp *BufferPool) discardPageLocked(pid PageID) {
	idx, ok := bp.index[pid]
	if !ok {
		return
	}
	bp.frames[idx] = frame{}
	delete(bp.index, pid)
	bp.count--
}

// TransactionComplete ends tid, either committing or aborting. On commit it
// flushes every page tid dirtied (through the WAL) and rebaselines their
// before-images; on abort it discards tid's dirtied pages so the next
// GetPage re-reads the on-disk copy -- cheap rollback, since NO-STEAL
// eviction never writes a dirty page. A FlushPage or FlushAllPages call made
// while tid is still running does write tid's changes, and abort does not
// undo those. Locks are
// released only after this settles, preserving strict two-phase locking.
func (bp *BufferPool) TransactionComplete(tid TransactionID, commit bool) error {
	bp.mu.Lock()
	var firstErr error
	for pid, idx := range bp.index {
		f := &bp.frames[idx]
		dirtier := f.page.Dirtier()
		if dirtier == nil || *dirtier != tid {
			continue
		}
		if commit {
			if err := bp.flushPageLocked(pid); err != nil && firstErr == nil {
				firstErr = err
			}
		} else {
			bp.discardPageLocked(pid)
		}
	}
	if bp.wal != nil {
		if commit {
			bp.wal.LogCommit(tid)
		} else {
			bp.wal.LogAbort(tid)
		}
		if err := bp.wal.Force(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	bp.mu.Unlock()

	bp.lockMgr.ReleaseAll(tid)
	return firstErr
}

// HoldsLock reports whether tid currently holds any lock on pid.
func (bp *BufferPool) HoldsLock(tid TransactionID, pid PageID) bool {
	return bp.lockMgr.Holds(tid, pid)
}
