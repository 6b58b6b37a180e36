package render

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/banshee-data/hextiles/internal/fsutil"
	"github.com/banshee-data/hextiles/internal/hexbin"
	"github.com/banshee-data/hextiles/internal/monitoring"
	"github.com/banshee-data/hextiles/internal/security"
)

// Exporter writes figures into a fixed directory.
type Exporter struct {
	FS  fsutil.FileSystem
	Dir string
}

// NewExporter returns an Exporter writing to dir on the OS filesystem.
func NewExporter(dir string) *Exporter {
	return &Exporter{FS: fsutil.OSFileSystem{}, Dir: dir}
}

// Export renders t to <Dir>/<name>.<format> and returns the path written.
// name is sanitised and the result must stay inside Dir.
func (e *Exporter) Export(name string, f Format, t *hexbin.Table, o Options) (string, error) {
	if err := e.FS.MkdirAll(e.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(e.Dir, security.SanitizeFilename(name)+"."+string(f))
	if err := security.ValidatePathWithinDirectory(path, e.Dir); err != nil {
		return "", err
	}
	if err := WriteFile(e.FS, path, t, o, f); err != nil {
		return "", err
	}
	monitoring.Logf("exported %s (%d tiles)", path, t.Len())
	return path, nil
}

// FramePath returns the file used for one frame of a stack: the frame key
// is inserted between base's stem and extension.
func FramePath(base, key string) string {
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext) + "_" + security.SanitizeFilename(key) + ext
}

// WriteFrames writes one image per stack frame next to base and returns
// the paths in frame order. Frames share a colour scale unless
// o.ColorRange is set.
func WriteFrames(fsys fsutil.FileSystem, base string, stack []hexbin.StackFrame, o Options, f Format) ([]string, error) {
	o = o.withDefaults()
	if o.ColorRange == nil {
		r, ok, err := StackColorRange(stack, o)
		if err != nil {
			return nil, err
		}
		if ok {
			o.ColorRange = &r
		}
	}

	paths := make([]string, 0, len(stack))
	for _, fr := range stack {
		fo := o
		fo.Title = frameTitle(o.Title, fr.Key)
		path := FramePath(base, fr.Key)
		if err := WriteFile(fsys, path, fr.Table, fo, f); err != nil {
			return paths, fmt.Errorf("frame %q: %w", fr.Key, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// WriteFile renders t to path on fsys.
func WriteFile(fsys fsutil.FileSystem, path string, t *hexbin.Table, o Options, f Format) error {
	var buf bytes.Buffer
	if err := WriteImage(&buf, t, o, f); err != nil {
		return err
	}
	if err := fsys.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
