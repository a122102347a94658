package source

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/x448/float16"
	"golang.org/x/image/tiff"
)

// writeF16Session writes a raw float16 session fixture and returns its dir
func writeF16Session(t *testing.T, root, name, meta string, frames [][]float32) string {

	t.Helper()

	dir := filepath.Join(root, name)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, MetaFile), []byte(meta), 0o644); err != nil {
		t.Fatalf("write meta: %v", err)
	}

	var raw []byte

	for _, f := range frames {
		for _, v := range f {
			bits := float16.Fromfloat32(v).Bits()
			raw = binary.LittleEndian.AppendUint16(raw, bits)
		}
	}

	if err := os.WriteFile(filepath.Join(dir, "frames.f16"), raw, 0o644); err != nil {
		t.Fatalf("write frames: %v", err)
	}

	return dir
}

func TestLoadF16Session(t *testing.T) {

	root := t.TempDir()

	meta := "uuid = \"abc-123\"\nheight = 2\nwidth = 2\n"

	writeF16Session(t, root, "session1", meta, [][]float32{
		{1, 2, 3, 4},
		{5, 6, 7, 8},
	})

	refs, err := Discover(root)

	if err != nil {
		t.Fatalf("discover failed: %v", err)
	}

	if len(refs) != 1 {
		t.Fatalf("discovered %d sessions, want 1", len(refs))
	}

	if refs[0].Key() != "abc-123" {
		t.Fatalf("key = %q, want abc-123", refs[0].Key())
	}

	s, err := Load(refs[0])

	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if s.Len() != 2 || s.Dim() != 4 {
		t.Fatalf("session shape = %d frames of dim %d", s.Len(), s.Dim())
	}

	if s.Frames[1][3] != 8 {
		t.Fatalf("frame data mangled: %v", s.Frames[1])
	}

	if s.ValidCount() != 2 {
		t.Fatalf("valid count = %d, want 2", s.ValidCount())
	}
}

func TestLoadValidityMask(t *testing.T) {

	root := t.TempDir()

	meta := "uuid = \"mask-test\"\nheight = 1\nwidth = 2\nvalid_file = \"valid.dat\"\n"

	dir := writeF16Session(t, root, "session1", meta, [][]float32{
		{1, 2},
		{3, 4},
		{5, 6},
	})

	if err := os.WriteFile(filepath.Join(dir, "valid.dat"),
		[]byte{1, 0, 1}, 0o644); err != nil {
		t.Fatalf("write mask: %v", err)
	}

	refs, err := Discover(root)

	if err != nil {
		t.Fatalf("discover failed: %v", err)
	}

	s, err := Load(refs[0])

	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if s.ValidCount() != 2 {
		t.Fatalf("valid count = %d, want 2", s.ValidCount())
	}

	if s.Valid[1] || s.Frames[1] != nil {
		t.Fatal("dropped frame must be invalid with no pixel data")
	}
}

func TestLoadTIFFSession(t *testing.T) {

	root := t.TempDir()
	dir := filepath.Join(root, "session1")

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	meta := "uuid = \"tiff-test\"\nheight = 2\nwidth = 3\nformat = \"tiff\"\n"

	if err := os.WriteFile(filepath.Join(dir, MetaFile), []byte(meta), 0o644); err != nil {
		t.Fatalf("write meta: %v", err)
	}

	for n := 0; n < 2; n++ {

		img := image.NewGray16(image.Rect(0, 0, 3, 2))

		for y := 0; y < 2; y++ {
			for x := 0; x < 3; x++ {
				img.SetGray16(x, y, color.Gray16{Y: uint16(100*n + 10*y + x)})
			}
		}

		f, err := os.Create(filepath.Join(dir, fmt.Sprintf("frame_%d.tif", n)))

		if err != nil {
			t.Fatalf("create frame: %v", err)
		}

		if err := tiff.Encode(f, img, nil); err != nil {
			t.Fatalf("encode frame: %v", err)
		}

		f.Close()
	}

	refs, err := Discover(root)

	if err != nil {
		t.Fatalf("discover failed: %v", err)
	}

	s, err := Load(refs[0])

	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if s.Len() != 2 || s.Dim() != 6 {
		t.Fatalf("session shape = %d frames of dim %d", s.Len(), s.Dim())
	}

	if s.Frames[1][5] != 112 {
		t.Fatalf("frame data mangled: %v", s.Frames[1])
	}
}

func TestReadMetaDefaults(t *testing.T) {

	dir := t.TempDir()
	path := filepath.Join(dir, MetaFile)

	if err := os.WriteFile(path, []byte("height = 4\nwidth = 4\n"), 0o644); err != nil {
		t.Fatalf("write meta: %v", err)
	}

	m, err := ReadMeta(path)

	if err != nil {
		t.Fatalf("read meta failed: %v", err)
	}

	if m.UUID == "" {
		t.Fatal("missing uuid must be generated")
	}

	if m.Format != FormatF16Raw || m.FramesFile != "frames.f16" {
		t.Fatalf("unexpected defaults: %+v", m)
	}

	if m.FPS != 30 {
		t.Fatalf("fps default = %v, want 30", m.FPS)
	}
}

func TestReadMetaRejectsBadDims(t *testing.T) {

	dir := t.TempDir()
	path := filepath.Join(dir, MetaFile)

	if err := os.WriteFile(path, []byte("height = 0\nwidth = 4\n"), 0o644); err != nil {
		t.Fatalf("write meta: %v", err)
	}

	if _, err := ReadMeta(path); err == nil {
		t.Fatal("expected error for zero height")
	}
}
