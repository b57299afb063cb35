package dbx

import "sync"

// Journal collects compensating actions for writes made against in-memory
// stores so a failed unit of work can be undone. A nil *Journal records
// nothing, which is how auto-commit callers use it.
type Journal struct {
	undo []func()
}

// Record registers fn to run on Rollback.
func (j *Journal) Record(fn func()) {
	if j == nil {
		return
	}
	j.undo = append(j.undo, fn)
}

// Rollback runs the recorded actions newest first and clears the journal.
func (j *Journal) Rollback() {
	if j == nil {
		return
	}
	for i := len(j.undo) - 1; i >= 0; i-- {
		j.undo[i]()
	}
	j.undo = nil
}

// NopLocker is a sync.Locker for code that already runs under an outer lock.
type NopLocker struct{}

func (NopLocker) Lock()   {}
func (NopLocker) Unlock() {}

var _ sync.Locker = NopLocker{}
