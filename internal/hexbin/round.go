package hexbin

import "math"

// Hex is an axial hexagon address. The implicit third cube coordinate is
// -Q-R.
type Hex struct {
	Q int `json:"q"`
	R int `json:"r"`
}

// roundHex snaps fractional axial coordinates to the nearest cell.
//
// Each cube coordinate is rounded half-to-even on its own; the one with
// the largest rounding error is then rebuilt from the other two so that
// x+y+z stays zero. Ties resolve in a fixed order: x is rebuilt only when
// its error strictly exceeds both others, otherwise z is rebuilt unless
// y's error strictly exceeds z's.
func roundHex(q, r float64) Hex {
	x := q
	z := r
	y := -x - z

	rx := math.RoundToEven(x)
	ry := math.RoundToEven(y)
	rz := math.RoundToEven(z)

	dx := math.Abs(rx - x)
	dy := math.Abs(ry - y)
	dz := math.Abs(rz - z)

	if dx > dy && dx > dz {
		rx = -(ry + rz)
	} else if !(dy > dz) {
		rz = -(rx + ry)
	}

	return Hex{Q: int(rx), R: int(rz)}
}

// coordsToHex maps a data-space point onto its cell.
func coordsToHex(x, y float64, o Orientation, xsize, ysize float64) Hex {
	return roundHex(o.toAxial(x, y, xsize, ysize))
}
