package geom

type cut struct {
	axis Axis
	high bool
}

// Cut planes in the order they are applied by Remove. Each axis is trimmed
// on its low face and then its high face before moving on.
var cutOrder = [6]cut{
	{X, false}, {X, true},
	{Y, false}, {Y, true},
	{Z, false}, {Z, true},
}

// Remove returns b minus o as at most six disjoint boxes. The result is b
// itself when the two do not overlap and empty when o encloses b.
func (b Box) Remove(o Box) []Box {
	overlap, ok := Overlap(b, o)
	if !ok {
		return []Box{b}
	}

	var out []Box
	rest := b
	for _, c := range cutOrder {
		var (
			offcut Box
			err    error
		)
		if !c.high {
			bound := overlap.Min.Get(c.axis)
			if rest.Min.Get(c.axis) >= bound {
				continue
			}
			offcut, rest, err = rest.Split(c.axis, bound)
		} else {
			bound := overlap.Max.Get(c.axis) + 1
			if rest.Max.Get(c.axis) < bound {
				continue
			}
			rest, offcut, err = rest.Split(c.axis, bound)
		}
		if err != nil {
			panic(err)
		}
		out = append(out, offcut)
	}
	if rest != overlap {
		panic("geom: remainder does not match overlap")
	}
	return out
}
