// Package reboot replays a list of reboot steps through a fresh partition
// and reports how many cells end up lit.
package reboot

import (
	"reactorcore/pkg/core"
	"reactorcore/pkg/geom"
	"reactorcore/pkg/instr"
)

// InitRegion is the initialization procedure area.
var InitRegion = geom.Cube(50)

type Result struct {
	Region  int64 // lit cells inside the requested region
	Total   int64 // lit cells anywhere
	Entries int   // boxes in the final partition

	Partition *core.Partition
}

// Run applies every step in order.
func Run(steps []instr.Step, region geom.Box) Result {
	return RunN(steps, len(steps), region)
}

// RunN applies only the first n steps. A negative n or one past the end
// applies all of them.
func RunN(steps []instr.Step, n int, region geom.Box) Result {
	if n < 0 || n > len(steps) {
		n = len(steps)
	}
	p := core.NewPartition()
	for _, s := range steps[:n] {
		p.Insert(s.On, s.Box)
	}
	return Result{
		Region:  p.LitIn(region),
		Total:   p.LitVolume(),
		Entries: p.Len(),

		Partition: p,
	}
}
