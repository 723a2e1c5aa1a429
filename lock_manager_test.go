package pagedb

import "testing"

func TestLockManagerMultipleReaders(t *testing.T) {
	lm := NewLockManager()
	pid := PageID{TableID: 1, PageNo: 0}
	t1, t2 := NewTID(), NewTID()

	if !lm.Acquire(t1, pid, ReadPerm) {
		t.Fatalf("expected t1 to acquire a read lock on an unlocked page")
	}
	if !lm.Acquire(t2, pid, ReadPerm) {
		t.Fatalf("expected t2 to acquire a read lock alongside t1")
	}
}

func TestLockManagerExclusiveBlocksReader(t *testing.T) {
	lm := NewLockManager()
	pid := PageID{TableID: 1, PageNo: 0}
	t1, t2 := NewTID(), NewTID()

	if !lm.Acquire(t1, pid, WritePerm) {
		t.Fatalf("expected t1 to acquire the write lock")
	}
	if lm.Acquire(t2, pid, ReadPerm) {
		t.Fatalf("expected t2's read request to block while t1 holds the write lock")
	}
}

func TestLockManagerUpgrade(t *testing.T) {
	lm := NewLockManager()
	pid := PageID{TableID: 1, PageNo: 0}
	tid := NewTID()

	if !lm.Acquire(tid, pid, ReadPerm) {
		t.Fatalf("expected the initial read acquire to succeed")
	}
	if !lm.Acquire(tid, pid, WritePerm) {
		t.Fatalf("expected tid to upgrade its sole read lock to a write lock")
	}
	if !lm.Holds(tid, pid) {
		t.Errorf("expected tid to still hold a lock on pid after upgrading")
	}
}

func TestLockManagerUpgradeBlockedByOtherReader(t *testing.T) {
	lm := NewLockManager()
	pid := PageID{TableID: 1, PageNo: 0}
	t1, t2 := NewTID(), NewTID()

	lm.Acquire(t1, pid, ReadPerm)
	lm.Acquire(t2, pid, ReadPerm)
	if lm.Acquire(t1, pid, WritePerm) {
		t.Fatalf("expected t1's upgrade to block while t2 also holds a read lock")
	}
}

func TestLockManagerReleaseAll(t *testing.T) {
	lm := NewLockManager()
	p0 := PageID{TableID: 1, PageNo: 0}
	p1 := PageID{TableID: 1, PageNo: 1}
	tid := NewTID()

	lm.Acquire(tid, p0, ReadPerm)
	lm.Acquire(tid, p1, WritePerm)
	lm.ReleaseAll(tid)

	if lm.Holds(tid, p0) || lm.Holds(tid, p1) {
		t.Errorf("expected ReleaseAll to drop every lock tid held")
	}

	other := NewTID()
	if !lm.Acquire(other, p1, WritePerm) {
		t.Errorf("expected p1's write lock to be available after tid released it")
	}
}

func TestLockManagerDeadlockDetection(t *testing.T) {
	lm := NewLockManager()
	p0 := PageID{TableID: 1, PageNo: 0}
	p1 := PageID{TableID: 1, PageNo: 1}
	t1, t2 := NewTID(), NewTID()

	// t1 holds p0, wants p1; t2 holds p1, wants p0: classic two-cycle.
	if !lm.Acquire(t1, p0, ReadPerm) {
		t.Fatalf("t1 should acquire p0")
	}
	if !lm.Acquire(t2, p1, ReadPerm) {
		t.Fatalf("t2 should acquire p1")
	}
	if lm.Acquire(t1, p1, WritePerm) {
		t.Fatalf("t1's request for p1 should block behind t2's read lock")
	}
	if lm.Acquire(t2, p0, WritePerm) {
		t.Fatalf("t2's request for p0 should block behind t1's read lock")
	}

	if !lm.HasDeadlock(t1, p1) {
		t.Errorf("expected a deadlock between t1 and t2")
	}
}

func TestLockManagerNoDeadlockWhenNotWaiting(t *testing.T) {
	lm := NewLockManager()
	p0 := PageID{TableID: 1, PageNo: 0}
	p1 := PageID{TableID: 1, PageNo: 1}
	t1, t2 := NewTID(), NewTID()

	lm.Acquire(t1, p0, ReadPerm)
	lm.Acquire(t2, p1, ReadPerm)

	if lm.HasDeadlock(t1, p1) {
		t.Errorf("t2 is not waiting on anything, so there is no cycle")
	}
}
