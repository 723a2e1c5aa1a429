package pagedb

import "sync"

// lockState is one (tid, permission) entry in a page's lock list. A page's
// list holds either any number of ReadPerm entries from distinct
// transactions, or exactly one WritePerm entry, or one ReadPerm and one
// WritePerm entry both owned by the same transaction -- an upgraded holder.
type lockState struct {
	tid  TransactionID
	perm RWPerm
}

// LockManager is a page-granularity shared/exclusive lock table with
// upgrade and waits-for-graph deadlock detection. All state is protected by
// a single mutex.
type LockManager struct {
	mu          sync.Mutex
	locksOnPage map[PageID][]lockState
	waitingFor  map[TransactionID]PageID
}

func NewLockManager() *LockManager {
	return &LockManager{
		locksOnPage: make(map[PageID][]lockState),
		waitingFor:  make(map[TransactionID]PageID),
	}
}

// Acquire attempts to grant tid the requested permission on pid. On success
// it records the lock and returns true. On failure it registers tid as
// waiting on pid and returns false; the caller is expected to retry (see
// BufferPool.GetPage's poll loop) after checking HasDeadlock.
func (lm *LockManager) Acquire(tid TransactionID, pid PageID, perm RWPerm) bool {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	var granted bool
	if perm == WritePerm {
		granted = lm.acquireExclusiveLocked(tid, pid)
	} else {
		granted = lm.acquireSharedLocked(tid, pid)
	}
	if granted {
		delete(lm.waitingFor, tid)
	} else {
		lm.waitingFor[tid] = pid
	}
	return granted
}

func (lm *LockManager) acquireSharedLocked(tid TransactionID, pid PageID) bool {
	entries := lm.locksOnPage[pid]
	if len(entries) == 0 {
		lm.locksOnPage[pid] = []lockState{{tid: tid, perm: ReadPerm}}
		return true
	}
	for _, e := range entries {
		if e.tid == tid && e.perm.stronger(ReadPerm) {
			return true
		}
	}
	for _, e := range entries {
		if e.perm == WritePerm {
			return false
		}
	}
	lm.locksOnPage[pid] = append(entries, lockState{tid: tid, perm: ReadPerm})
	return true
}

func (lm *LockManager) acquireExclusiveLocked(tid TransactionID, pid PageID) bool {
	entries := lm.locksOnPage[pid]
	if len(entries) == 0 {
		lm.locksOnPage[pid] = []lockState{{tid: tid, perm: WritePerm}}
		return true
	}

	onlyMine := true
	hasWriteMine := false
	for _, e := range entries {
		if e.tid != tid {
			onlyMine = false
			continue
		}
		if e.perm.stronger(WritePerm) {
			hasWriteMine = true
		}
	}
	if onlyMine {
		if hasWriteMine {
			return true
		}
		// Sole (or upgraded-sole) holder is tid with only ReadPerm so far:
		// upgrade by adding a WritePerm entry alongside it.
		lm.locksOnPage[pid] = append(entries, lockState{tid: tid, perm: WritePerm})
		return true
	}
	for _, e := range entries {
		if e.tid == tid && e.perm.stronger(WritePerm) {
			return true
		}
	}
	return false
}

// Unlock removes every lock tid holds on pid. It reports whether anything
// was removed.
func (lm *LockManager) Unlock(tid TransactionID, pid PageID) bool {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.unlockLocked(tid, pid)
}

func (lm *LockManager) unlockLocked(tid TransactionID, pid PageID) bool {
	entries := lm.locksOnPage[pid]
	kept := entries[:0]
	removed := false
	for _, e := range entries {
		if e.tid == tid {
			removed = true
			continue
		}
		kept = append(kept, e)
	}
	if len(kept) == 0 {
		delete(lm.locksOnPage, pid)
	} else {
		lm.locksOnPage[pid] = kept
	}
	return removed
}

// ReleaseAll unlocks every page tid holds a lock on, and clears any
// outstanding wait record for tid. Called at the end of
// BufferPool.TransactionComplete, after tid's pages are flushed or
// discarded, per strict two-phase locking.
func (lm *LockManager) ReleaseAll(tid TransactionID) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	for pid, entries := range lm.locksOnPage {
		for _, e := range entries {
			if e.tid == tid {
				lm.unlockLocked(tid, pid)
				break
			}
		}
	}
	delete(lm.waitingFor, tid)
}

// Holds reports whether tid currently holds any lock (Read or Write) on pid.
func (lm *LockManager) Holds(tid TransactionID, pid PageID) bool {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	for _, e := range lm.locksOnPage[pid] {
		if e.tid == tid {
			return true
		}
	}
	return false
}

// HasDeadlock reports whether granting tid's (hypothetical, currently
// blocked) request for pid would complete a cycle in the waits-for graph:
// tid is waiting on pid, held by some other transaction that is itself
// (transitively) waiting on a page tid currently holds. The whole traversal
// runs under lm.mu so it sees a consistent snapshot.
func (lm *LockManager) HasDeadlock(tid TransactionID, pid PageID) bool {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	visited := make(map[TransactionID]bool)

	var waitsBackToTid func(blocker TransactionID) bool
	waitsBackToTid = func(blocker TransactionID) bool {
		if visited[blocker] {
			return false
		}
		visited[blocker] = true

		waitedPage, isWaiting := lm.waitingFor[blocker]
		if !isWaiting {
			return false
		}
		for _, e := range lm.locksOnPage[waitedPage] {
			if e.tid == tid {
				return true
			}
		}
		for _, e := range lm.locksOnPage[waitedPage] {
			if e.tid != blocker && waitsBackToTid(e.tid) {
				return true
			}
		}
		return false
	}

	for _, e := range lm.locksOnPage[pid] {
		if e.tid == tid {
			continue
		}
		visited = make(map[TransactionID]bool)
		if waitsBackToTid(e.tid) {
			return true
		}
	}
	return false
}
