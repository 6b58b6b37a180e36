package security

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidatePathWithinDirectory(t *testing.T) {
	tmpDir := t.TempDir()

	exportDir := filepath.Join(tmpDir, "exports")
	outsideDir := filepath.Join(tmpDir, "outside")
	for _, d := range []string{exportDir, outsideDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", d, err)
		}
	}
	link := filepath.Join(exportDir, "link")
	if err := os.Symlink(outsideDir, link); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	tests := []struct {
		name      string
		filePath  string
		wantError bool
	}{
		{"file in dir", filepath.Join(exportDir, "tiles.png"), false},
		{"nested new file", filepath.Join(exportDir, "a", "b", "tiles.svg"), false},
		{"dir itself", exportDir, false},
		{"dot dot escape", filepath.Join(exportDir, "..", "outside", "x.png"), true},
		{"sibling dir", filepath.Join(outsideDir, "x.png"), true},
		{"through symlink", filepath.Join(link, "x.png"), true},
		{"prefix lookalike", exportDir + "-evil/x.png", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePathWithinDirectory(tt.filePath, exportDir)
			if tt.wantError {
				if !errors.Is(err, ErrPathTraversal) {
					t.Errorf("expected ErrPathTraversal, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidatePathWithinDirectory_MissingDir(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope")
	if err := ValidatePathWithinDirectory(filepath.Join(missing, "x.png"), missing); err == nil {
		t.Error("expected error for a directory that does not exist")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"tiles", "tiles"},
		{"my figure (v2)", "my_figure_v2"},
		{"../../etc/passwd", "etc_passwd"},
		{"frame 2024-01-01T00:00", "frame_2024-01-01T00_00"},
		{"__hidden__", "hidden"},
		{"a__b", "a__b"},
		{"", "unknown"},
		{"///", "unknown"},
		{"héxagone", "h_xagone"},
	}
	for _, tt := range tests {
		if got := SanitizeFilename(tt.in); got != tt.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	long := SanitizeFilename(strings.Repeat("a", 300))
	if len(long) != maxFilenameLen {
		t.Errorf("expected length %d, got %d", maxFilenameLen, len(long))
	}
}
