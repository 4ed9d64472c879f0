package reboot

import (
	"strings"
	"testing"

	"reactorcore/pkg/geom"
	"reactorcore/pkg/instr"
)

const small = `on x=10..12,y=10..12,z=10..12
on x=11..13,y=11..13,z=11..13
off x=9..11,y=9..11,z=9..11
on x=10..10,y=10..10,z=10..10`

const larger = `on x=-20..26,y=-36..17,z=-47..7
on x=-20..33,y=-21..23,z=-26..28
on x=-22..28,y=-29..23,z=-38..16
on x=-46..7,y=-6..46,z=-50..-1
on x=-49..1,y=-3..46,z=-24..28
on x=2..47,y=-22..22,z=-23..27
on x=-27..23,y=-28..26,z=-21..29
on x=-39..5,y=-6..47,z=-3..44
on x=-30..21,y=-8..43,z=-13..34
on x=-22..26,y=-27..20,z=-29..19
off x=-48..-32,y=26..41,z=-47..-37
on x=-12..35,y=6..50,z=-50..-2
off x=-48..-32,y=-32..-16,z=-15..-5
on x=-18..26,y=-33..15,z=-7..46
off x=-40..-22,y=-38..-28,z=23..41
on x=-16..35,y=-41..10,z=-47..6
off x=-32..-23,y=11..30,z=-14..3
on x=-49..-5,y=-3..45,z=-29..18
off x=18..30,y=-20..-8,z=-3..13
on x=-41..9,y=-7..43,z=-33..15
on x=-54112..-39298,y=-85059..-49293,z=-27449..7877
on x=967..23432,y=45373..81175,z=27513..53682`

func parse(t *testing.T, s string) []instr.Step {
	t.Helper()
	steps, err := instr.ParseAll(strings.NewReader(s))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return steps
}

func TestRunSmall(t *testing.T) {
	res := Run(parse(t, small), InitRegion)
	if res.Total != 39 || res.Region != 39 {
		t.Fatalf("got %+v, want region=39 total=39", res)
	}
	if res.Partition == nil || res.Partition.Len() != res.Entries {
		t.Fatalf("result should carry the final partition, got %+v", res)
	}
	if err := res.Partition.CheckDisjoint(); err != nil {
		t.Fatal(err)
	}
	if !res.Partition.IsOn(geom.Point{X: 10, Y: 10, Z: 10}) {
		t.Fatal("cell 10,10,10 should be on in the returned partition")
	}
}

func TestRunInitRegion(t *testing.T) {
	steps := parse(t, larger)
	res := Run(steps, InitRegion)
	if want := bruteForce(steps, InitRegion); res.Region != want {
		t.Fatalf("region: got %d want %d", res.Region, want)
	}

	// The last two steps lie entirely outside the init region.
	head := RunN(steps, len(steps)-2, InitRegion)
	if head.Region != res.Region || head.Total != res.Region {
		t.Fatalf("first %d steps: %+v", len(steps)-2, head)
	}
	want := res.Region +
		geom.MustBox(-54112, -39298, -85059, -49293, -27449, 7877).Volume() +
		geom.MustBox(967, 23432, 45373, 81175, 27513, 53682).Volume()
	if res.Total != want {
		t.Fatalf("total: got %d want %d", res.Total, want)
	}
}

func TestRunN(t *testing.T) {
	steps := parse(t, small)
	tests := []struct {
		n    int
		want int64
	}{
		{0, 0},
		{1, 27},
		{2, 46},
		{3, 38},
		{4, 39},
		{-1, 39},
		{99, 39},
	}
	for _, tt := range tests {
		if got := RunN(steps, tt.n, InitRegion).Total; got != tt.want {
			t.Errorf("RunN(%d): got %d want %d", tt.n, got, tt.want)
		}
	}
}

// bruteForce counts lit cells of region on a dense grid.
func bruteForce(steps []instr.Step, region geom.Box) int64 {
	dx := region.Max.X - region.Min.X + 1
	dy := region.Max.Y - region.Min.Y + 1
	dz := region.Max.Z - region.Min.Z + 1
	grid := make([]bool, dx*dy*dz)
	for _, s := range steps {
		o, ok := geom.Overlap(s.Box, region)
		if !ok {
			continue
		}
		for x := o.Min.X; x <= o.Max.X; x++ {
			for y := o.Min.Y; y <= o.Max.Y; y++ {
				for z := o.Min.Z; z <= o.Max.Z; z++ {
					grid[((x-region.Min.X)*dy+(y-region.Min.Y))*dz+(z-region.Min.Z)] = s.On
				}
			}
		}
	}
	var n int64
	for _, on := range grid {
		if on {
			n++
		}
	}
	return n
}
