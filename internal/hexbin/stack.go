package hexbin

import "fmt"

// Frame is one keyed sample set of a stack, e.g. one timestep.
type Frame struct {
	Key     string
	Samples Samples
}

// StackFrame is the binned form of a Frame.
type StackFrame struct {
	Key   string `json:"key"`
	Table *Table `json:"table"`
}

// SplitFrames groups s by keys, which must be as long as s. Frames come
// back in order of first appearance.
func SplitFrames(s Samples, keys []string) ([]Frame, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if len(keys) != s.Len() {
		return nil, fmt.Errorf("%w: %d frame keys for %d samples", ErrMismatchedLength, len(keys), s.Len())
	}
	var order []string
	members := make(map[string][]int)
	for i, k := range keys {
		if _, seen := members[k]; !seen {
			order = append(order, k)
		}
		members[k] = append(members[k], i)
	}
	frames := make([]Frame, len(order))
	for i, k := range order {
		frames[i] = Frame{Key: k, Samples: s.subset(members[k])}
	}
	return frames, nil
}

// StackExtent returns the union extent of the finite samples of all
// frames.
func StackExtent(frames []Frame) (xr, yr Range, ok bool) {
	for _, f := range frames {
		fx, fy, fok := f.Samples.Extent()
		if !fok {
			continue
		}
		if !ok {
			xr, yr, ok = fx, fy, true
			continue
		}
		xr, yr = xr.Union(fx), yr.Union(fy)
	}
	return xr, yr, ok
}

// BinStack bins every frame on one shared extent so that a cell covers
// the same area in each frame. Ranges pinned in cfg take precedence.
func BinStack(frames []Frame, cfg Config) ([]StackFrame, error) {
	if len(frames) == 0 {
		return nil, nil
	}
	if xr, yr, ok := StackExtent(frames); ok {
		if cfg.XRange == nil {
			cfg.XRange = &xr
		}
		if cfg.YRange == nil {
			cfg.YRange = &yr
		}
	}
	out := make([]StackFrame, len(frames))
	for i, f := range frames {
		t, err := Bin(f.Samples, cfg)
		if err != nil {
			return nil, fmt.Errorf("frame %q: %w", f.Key, err)
		}
		out[i] = StackFrame{Key: f.Key, Table: t}
	}
	return out, nil
}
