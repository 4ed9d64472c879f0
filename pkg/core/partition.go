package core

import (
	"fmt"
	"reactorcore/pkg/core/memory"
	"reactorcore/pkg/geom"
)

type Entry = memory.Entry

// PartitionStats counts the work done by Insert since the partition was
// created or last reset.
type PartitionStats struct {
	Inserts   uint64
	Replaced  uint64 // stored entries cut by a later opposite-state step
	Fragments uint64 // boxes produced by those cuts and by splitting pieces
	Discarded uint64 // pieces already covered by a same-state entry
}

// Partition is a set of on/off boxes that never overlap. The union of the
// boxes marked on is exactly the set of lit cells after every step inserted
// so far, with later steps overriding earlier ones.
//
// A Partition is not safe for concurrent use.
type Partition struct {
	table *memory.EntryTable
	stats PartitionStats
}

func NewPartition() *Partition {
	return NewPartitionWithDegree(32)
}

// NewPartitionWithDegree sets the branching factor of the underlying btree.
func NewPartitionWithDegree(degree int) *Partition {
	return &Partition{table: memory.NewEntryTable(degree)}
}

// pending is a piece still to be reconciled against the stored entries
// starting at sequence number from.
type pending struct {
	piece geom.Box
	from  uint64
}

// Insert applies one step. Stored entries of the opposite state are trimmed
// to make room for box; parts of box already covered by entries of the same
// state are not stored twice.
func (p *Partition) Insert(on bool, box geom.Box) {
	p.stats.Inserts++
	work := []pending{{piece: box}}
	for len(work) > 0 {
		w := work[len(work)-1]
		work = work[:len(work)-1]
		work = p.reconcile(on, w, work)
	}
}

func (p *Partition) reconcile(on bool, w pending, work []pending) []pending {
	piece := w.piece
	candidates := p.table.Collect(w.from, func(e Entry) bool {
		return e.Box.Intersects(piece)
	})

	for _, c := range candidates {
		stored := c.Entry
		if !stored.Box.Intersects(piece) {
			continue
		}

		if stored.On == on {
			frags := piece.Remove(stored.Box)
			if len(frags) == 0 {
				p.stats.Discarded++
				return work
			}
			piece = frags[0]
			for _, f := range frags[1:] {
				work = append(work, pending{piece: f, from: c.Seq + 1})
			}
			p.stats.Fragments += uint64(len(frags) - 1)
			continue
		}

		// Entries appended here get sequence numbers past every candidate
		// and are disjoint from piece, so the scan never revisits them.
		p.table.Delete(c.Seq)
		p.stats.Replaced++
		for _, f := range stored.Box.Remove(piece) {
			p.table.Append(Entry{On: stored.On, Box: f})
			p.stats.Fragments++
		}
	}

	p.table.Append(Entry{On: on, Box: piece})
	return work
}

// Entries returns the stored entries in scan order.
func (p *Partition) Entries() []Entry {
	out := make([]Entry, 0, p.table.Count())
	p.table.Iterator(func(_ uint64, e Entry) bool {
		out = append(out, e)
		return true
	})
	return out
}

func (p *Partition) Len() int {
	return p.table.Count()
}

// LitVolume is the number of cells currently on.
func (p *Partition) LitVolume() int64 {
	var total int64
	p.table.Iterator(func(_ uint64, e Entry) bool {
		if e.On {
			total += e.Box.Volume()
		}
		return true
	})
	return total
}

// LitIn is the number of cells currently on inside region.
func (p *Partition) LitIn(region geom.Box) int64 {
	var total int64
	p.table.Iterator(func(_ uint64, e Entry) bool {
		if !e.On {
			return true
		}
		if o, ok := geom.Overlap(e.Box, region); ok {
			total += o.Volume()
		}
		return true
	})
	return total
}

// IsOn reports whether the single cell at pt is lit.
func (p *Partition) IsOn(pt geom.Point) bool {
	on := false
	p.table.Iterator(func(_ uint64, e Entry) bool {
		if e.Box.Contains(pt) {
			on = e.On
			return false
		}
		return true
	})
	return on
}

// Restore replaces the contents with entries that are already pairwise
// disjoint, such as a saved snapshot.
func (p *Partition) Restore(entries []Entry) error {
	p.Reset()
	for _, e := range entries {
		p.table.Append(e)
	}
	if err := p.CheckDisjoint(); err != nil {
		p.Reset()
		return err
	}
	return nil
}

func (p *Partition) Reset() {
	p.table.Clear()
	p.stats = PartitionStats{}
}

func (p *Partition) Stats() PartitionStats {
	return p.stats
}

// CheckDisjoint verifies that no two stored boxes overlap. It is quadratic
// in the number of entries.
func (p *Partition) CheckDisjoint() error {
	entries := p.Entries()
	for i := range entries {
		for j := i + 1; j < len(entries); j++ {
			if o, ok := geom.Overlap(entries[i].Box, entries[j].Box); ok {
				return fmt.Errorf("partition: entries %d (%v) and %d (%v) overlap at %v",
					i, entries[i].Box, j, entries[j].Box, o)
			}
		}
	}
	return nil
}
