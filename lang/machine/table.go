package machine

// loadFactor is the maximum fraction of occupied slots (including
// tombstones) a Table tolerates before growing.
const loadFactor = 0.75

const minCapacity = 8

// entry is one slot of a Table. An empty slot has key == nil and value ==
// Nil; a tombstone (a deleted slot kept alive so probe chains stay
// continuous) has key == nil and value == True; every other combination is
// a live entry.
type entry struct {
	key   *ObjString
	value Value
}

func (e entry) isEmpty() bool     { return e.key == nil && e.value.IsNil() }
func (e entry) isTombstone() bool { return e.key == nil && !e.value.IsNil() }

// Table is Panda's runtime map: open-addressed, linear-probing, keyed by
// interned string identity (spec.md 4.2). It backs the globals table,
// instance field tables, class method tables, and the VM's string-intern
// table.
type Table struct {
	count   int // live entries plus tombstones
	entries []entry
}

// Count reports the number of live entries (tombstones excluded).
func (t *Table) Count() int {
	live := 0
	for _, e := range t.entries {
		if e.key != nil {
			live++
		}
	}
	return live
}

// find probes t.entries for key starting at its hash bucket, until it hits
// either the key itself or an empty slot. It remembers the first tombstone
// seen along the way so that Set can reuse it instead of growing the probe
// chain further. cap(t.entries) must be > 0.
func (t *Table) find(entries []entry, key *ObjString) int {
	mask := uint32(len(entries) - 1)
	idx := key.hash & mask
	var tombstone int = -1
	for {
		e := &entries[idx]
		switch {
		case e.key == nil:
			if e.value.IsNil() {
				// genuinely empty: stop here, preferring an earlier tombstone
				if tombstone != -1 {
					return tombstone
				}
				return int(idx)
			}
			// tombstone
			if tombstone == -1 {
				tombstone = int(idx)
			}
		case e.key == key:
			return int(idx)
		}
		idx = (idx + 1) & mask
	}
}

func (t *Table) adjustCapacity(newCap int) {
	entries := make([]entry, newCap)
	for i := range entries {
		entries[i] = entry{}
	}

	t.count = 0
	for _, old := range t.entries {
		if old.key == nil {
			continue
		}
		idx := t.find(entries, old.key)
		entries[idx] = entry{key: old.key, value: old.value}
		t.count++
	}
	t.entries = entries
}

// Get returns the value stored for key, or (Nil, false) if absent.
func (t *Table) Get(key *ObjString) (Value, bool) {
	if len(t.entries) == 0 {
		return Nil, false
	}
	idx := t.find(t.entries, key)
	e := &t.entries[idx]
	if e.key == nil {
		return Nil, false
	}
	return e.value, true
}

// Set stores value under key, growing the table first if necessary (load
// factor <= 0.75, spec.md invariant 7). It returns true if this inserted a
// brand new key, false if it updated an existing one.
func (t *Table) Set(key *ObjString, value Value) bool {
	if float64(t.count+1) > float64(len(t.entries))*loadFactor {
		newCap := minCapacity
		if len(t.entries) > 0 {
			newCap = len(t.entries) * 2
		}
		t.adjustCapacity(newCap)
	}

	idx := t.find(t.entries, key)
	e := &t.entries[idx]
	isNewKey := e.key == nil
	// count includes tombstones, so only bump it for a genuinely empty slot,
	// not when resurrecting a tombstone.
	if isNewKey && e.value.IsNil() {
		t.count++
	}
	e.key = key
	e.value = value
	return isNewKey
}

// Delete replaces the entry for key with a tombstone, preserving probe
// chain continuity for later lookups. It reports whether key was present.
func (t *Table) Delete(key *ObjString) bool {
	if len(t.entries) == 0 {
		return false
	}
	idx := t.find(t.entries, key)
	e := &t.entries[idx]
	if e.key == nil {
		return false
	}
	e.key = nil
	e.value = True
	return true
}

// AddAll copies every live entry of from into t, used by OP_INHERIT to copy
// a superclass's methods onto a subclass.
func (t *Table) AddAll(from *Table) {
	for _, e := range from.entries {
		if e.key != nil {
			t.Set(e.key, e.value)
		}
	}
}

// FindString is the sole key-lookup path during string interning: it
// compares candidate keys by length, then cached hash, then bytes, so that
// a new string literal can find its already-interned twin (if any) without
// ever allocating an ObjString for the comparison itself.
func (t *Table) FindString(chars string, hash uint32) *ObjString {
	if len(t.entries) == 0 {
		return nil
	}
	mask := uint32(len(t.entries) - 1)
	idx := hash & mask
	for {
		e := &t.entries[idx]
		switch {
		case e.key == nil:
			if e.value.IsNil() {
				return nil
			}
		case e.key.hash == hash && len(e.key.Chars) == len(chars) && e.key.Chars == chars:
			return e.key
		}
		idx = (idx + 1) & mask
	}
}

// deleteUnmarked removes every entry whose key is unmarked. It is the
// pre-sweep weak-reference cleanup the collector runs over the VM's
// string-intern table (spec.md 4.6): an entry here is the table's only
// reference to its key, so an unmarked key is about to be freed and must
// not be left dangling in the table.
func (t *Table) deleteUnmarked() {
	for _, e := range t.entries {
		if e.key != nil && !e.key.marked {
			t.Delete(e.key)
		}
	}
}
