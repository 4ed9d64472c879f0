package memory

import (
	"reactorcore/pkg/geom"
	"sync"

	"github.com/google/btree"
)

// Entry is one box of the partition together with its state.
type Entry struct {
	On  bool
	Box geom.Box
}

type Item struct {
	Seq   uint64
	Entry Entry
}

func (i Item) Less(than btree.Item) bool {
	return i.Seq < than.(Item).Seq
}

// EntryTable stores partition entries ordered by a sequence number that is
// assigned on insertion and never reused, so a position in the scan order
// stays valid while other entries are added or removed.
type EntryTable struct {
	tree *btree.BTree
	lock sync.RWMutex
	next uint64
}

func NewEntryTable(degree int) *EntryTable {
	return &EntryTable{
		tree: btree.New(degree),
	}
}

// Append stores e after every existing entry and returns its sequence number.
func (et *EntryTable) Append(e Entry) uint64 {
	et.lock.Lock()
	defer et.lock.Unlock()

	seq := et.next
	et.next++
	et.tree.ReplaceOrInsert(Item{Seq: seq, Entry: e})
	return seq
}

func (et *EntryTable) Get(seq uint64) (Entry, bool) {
	et.lock.RLock()
	defer et.lock.RUnlock()

	res := et.tree.Get(Item{Seq: seq})
	if res == nil {
		return Entry{}, false
	}
	return res.(Item).Entry, true
}

func (et *EntryTable) Delete(seq uint64) bool {
	et.lock.Lock()
	defer et.lock.Unlock()
	return et.tree.Delete(Item{Seq: seq}) != nil
}

// Collect returns, in order, the items at or after seq accepted by keep.
// The result is a copy; the table may be modified while it is consumed.
func (et *EntryTable) Collect(from uint64, keep func(Entry) bool) []Item {
	et.lock.RLock()
	defer et.lock.RUnlock()

	var out []Item
	et.tree.AscendGreaterOrEqual(Item{Seq: from}, func(i btree.Item) bool {
		item := i.(Item)
		if keep == nil || keep(item.Entry) {
			out = append(out, item)
		}
		return true
	})
	return out
}

func (et *EntryTable) Iterator(fn func(seq uint64, e Entry) bool) {
	et.lock.RLock()
	defer et.lock.RUnlock()

	et.tree.Ascend(func(i btree.Item) bool {
		item := i.(Item)
		return fn(item.Seq, item.Entry)
	})
}

// Next is the sequence number the following Append will use.
func (et *EntryTable) Next() uint64 {
	et.lock.RLock()
	defer et.lock.RUnlock()
	return et.next
}

func (et *EntryTable) Count() int {
	et.lock.RLock()
	defer et.lock.RUnlock()
	return et.tree.Len()
}

func (et *EntryTable) Clear() {
	et.lock.Lock()
	defer et.lock.Unlock()
	et.tree.Clear(false)
}
