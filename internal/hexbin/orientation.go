package hexbin

import (
	"fmt"
	"math"
	"strings"
)

// Orientation selects which vertex of the hexagon points upward.
type Orientation int

const (
	// Pointy places a vertex at the top of each hexagon. This is the
	// default orientation.
	Pointy Orientation = iota
	// Flat places an edge at the top of each hexagon.
	Flat
)

// matrix is a row-major 2x2 transform.
type matrix [4]float64

var sqrt3 = math.Sqrt(3.0)

var (
	flatForward   = matrix{2.0 / 3.0, 0.0, -1.0 / 3.0, sqrt3 / 3.0}
	pointyForward = matrix{sqrt3 / 3.0, -1.0 / 3.0, 0.0, 2.0 / 3.0}

	flatInverse   = flatForward.inverse()
	pointyInverse = pointyForward.inverse()
)

func (m matrix) inverse() matrix {
	det := m[0]*m[3] - m[1]*m[2]
	return matrix{m[3] / det, -m[1] / det, -m[2] / det, m[0] / det}
}

// ParseOrientation accepts "pointy", "flat" and their "top" suffixed
// spellings ("pointytop", "flattop"), case-insensitively. An empty string
// yields Pointy.
func ParseOrientation(s string) (Orientation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "pointy", "pointytop":
		return Pointy, nil
	case "flat", "flattop":
		return Flat, nil
	}
	return Pointy, fmt.Errorf("%w: %q", ErrUnknownOrientation, s)
}

func (o Orientation) String() string {
	switch o {
	case Pointy:
		return "pointy"
	case Flat:
		return "flat"
	}
	return fmt.Sprintf("Orientation(%d)", int(o))
}

// MarshalText implements encoding.TextMarshaler.
func (o Orientation) MarshalText() ([]byte, error) {
	if o != Pointy && o != Flat {
		return nil, fmt.Errorf("%w: %d", ErrUnknownOrientation, int(o))
	}
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Orientation) UnmarshalText(b []byte) error {
	v, err := ParseOrientation(string(b))
	if err != nil {
		return err
	}
	*o = v
	return nil
}

func (o Orientation) forward() matrix {
	if o == Flat {
		return flatForward
	}
	return pointyForward
}

func (o Orientation) inverse() matrix {
	if o == Flat {
		return flatInverse
	}
	return pointyInverse
}

// startAngle is the angle in degrees of the first hexagon corner.
func (o Orientation) startAngle() float64 {
	if o == Flat {
		return 0
	}
	return 30
}

// toAxial converts a data-space point to fractional axial coordinates.
// The explicit float64 conversions stop the compiler fusing the
// multiply-adds, which would change the last bit on some architectures.
func (o Orientation) toAxial(x, y, xsize, ysize float64) (q, r float64) {
	m := o.forward()
	x = x / xsize
	y = -y / ysize
	q = float64(m[0]*x) + float64(m[1]*y)
	r = float64(m[2]*x) + float64(m[3]*y)
	return q, r
}
