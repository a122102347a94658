package pipeline

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/x448/float16"

	mousepca "github.com/seqlab/go-mousepca"
	"github.com/seqlab/go-mousepca/output"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// writeSession writes a raw float16 session fixture.  frames may be nil to
// produce a session whose stack file is missing.
func writeSession(t *testing.T, root, name, meta string, frames [][]float32) {

	t.Helper()

	dir := filepath.Join(root, name)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "session.toml"), []byte(meta), 0o644); err != nil {
		t.Fatalf("write meta: %v", err)
	}

	if frames == nil {
		return
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
}

// synthFrames builds frames with per-pixel structure plus noise so the
// covariance has full spread
func synthFrames(n, height, width int, seed int64) [][]float32 {

	rng := rand.New(rand.NewSource(seed))
	dim := height * width

	frames := make([][]float32, n)

	for i := range frames {

		f := make([]float32, dim)
		phase := float64(i) * 0.2

		for j := range f {
			f[j] = float32(40 + 8*math.Sin(phase+float64(j)) + rng.NormFloat64())
		}

		frames[i] = f
	}

	return frames
}

func testConfig(input, out string) Config {

	cfg := DefaultConfig()
	cfg.InputDir = input
	cfg.OutputDir = out
	cfg.Rank = 5
	cfg.ChunkSize = 16
	cfg.Workers = 2
	cfg.MinHeight = 0
	cfg.MaxHeight = 200
	cfg.Changepoints.NumProjections = 50
	cfg.Changepoints.KLags = 3

	return cfg
}

func sessionMeta(uuid string) string {
	return sessionMetaDims(uuid, 6, 6)
}

func sessionMetaDims(uuid string, height, width int) string {
	return fmt.Sprintf("uuid = %q\nheight = %d\nwidth = %d\n", uuid, height, width)
}

func TestTrainApplyChangepoints(t *testing.T) {

	input := t.TempDir()
	out := t.TempDir()

	for i := 0; i < 3; i++ {
		name := fmt.Sprintf("session%d", i)
		writeSession(t, input, name, sessionMeta(name),
			synthFrames(80, 6, 6, int64(i)))
	}

	cfg := testConfig(input, out)
	log := discardLogger()
	ctx := context.Background()

	report, err := Train(ctx, cfg, log)

	if err != nil {
		t.Fatalf("train failed: %v", err)
	}

	if len(report.Succeeded()) != 3 || len(report.Failures()) != 0 {
		t.Fatalf("train report: %d ok, %d failed, want 3 and 0",
			len(report.Succeeded()), len(report.Failures()))
	}

	basis, err := output.LoadBasis(cfg.BasisPath())

	if err != nil {
		t.Fatalf("basis did not round-trip: %v", err)
	}

	if basis.K() != 5 {
		t.Fatalf("basis rank = %d, want 5", basis.K())
	}

	if basis.Observations != 240 {
		t.Fatalf("basis observations = %d, want 240", basis.Observations)
	}

	report, err = Apply(ctx, cfg, log)

	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	if len(report.Succeeded()) != 3 {
		t.Fatalf("apply completed %d sessions, want 3", len(report.Succeeded()))
	}

	matrices, err := output.LoadScores(cfg.ScoresPath())

	if err != nil {
		t.Fatalf("scores did not round-trip: %v", err)
	}

	if len(matrices) != 3 {
		t.Fatalf("scores hold %d sessions, want 3", len(matrices))
	}

	for _, sm := range matrices {
		if len(sm.Scores) != 80 || sm.K != 5 {
			t.Fatalf("session %s scores are %dx%d, want 80x5",
				sm.Key, len(sm.Scores), sm.K)
		}
	}

	report, err = Changepoints(ctx, cfg, log)

	if err != nil {
		t.Fatalf("changepoints failed: %v", err)
	}

	if len(report.Succeeded()) != 3 {
		t.Fatalf("changepoints completed %d sessions, want 3",
			len(report.Succeeded()))
	}

	if _, err := os.Stat(cfg.ChangepointsPath()); err != nil {
		t.Fatalf("changepoints container missing: %v", err)
	}
}

func TestTrainContinuesPastBadSession(t *testing.T) {

	input := t.TempDir()
	out := t.TempDir()

	writeSession(t, input, "good", sessionMeta("good"),
		synthFrames(60, 6, 6, 1))

	// stack file never written, the session fails to load
	writeSession(t, input, "broken", sessionMeta("broken"), nil)

	cfg := testConfig(input, out)

	report, err := Train(context.Background(), cfg, discardLogger())

	if err != nil {
		t.Fatalf("train failed: %v", err)
	}

	if len(report.Succeeded()) != 1 {
		t.Fatalf("train completed %d sessions, want 1", len(report.Succeeded()))
	}

	if _, ok := report.Failures()["broken"]; !ok {
		t.Fatalf("broken session not in failures: %v", report.Failures())
	}

	if !report.Partial() {
		t.Fatal("report should be partial")
	}

	if _, err := os.Stat(cfg.BasisPath()); err != nil {
		t.Fatalf("basis container missing: %v", err)
	}
}

func TestTrainSkipsMismatchedSession(t *testing.T) {

	input := t.TempDir()
	out := t.TempDir()

	writeSession(t, input, "session0", sessionMeta("session0"),
		synthFrames(80, 6, 6, 1))

	// different frame dimensions than the rest of the corpus
	writeSession(t, input, "session1", sessionMetaDims("session1", 5, 5),
		synthFrames(80, 5, 5, 2))

	cfg := testConfig(input, out)
	cfg.Workers = 2

	report, err := Train(context.Background(), cfg, discardLogger())

	if err != nil {
		t.Fatalf("train failed: %v", err)
	}

	ok := report.Succeeded()

	if len(ok) != 1 || ok[0] != "session0" {
		t.Fatalf("succeeded = %v, want [session0]", ok)
	}

	cause, found := report.Failures()["session1"]

	if !found {
		t.Fatalf("mismatched session not in failures: %v", report.Failures())
	}

	var mismatch *mousepca.ShapeMismatchError

	if !errors.As(cause, &mismatch) {
		t.Fatalf("failure cause = %v, want ShapeMismatchError", cause)
	}

	if mismatch.Session != "session1" || mismatch.Want != 36 || mismatch.Got != 25 {
		t.Fatalf("mismatch = %+v, want session1 36 vs 25", mismatch)
	}

	basis, err := output.LoadBasis(cfg.BasisPath())

	if err != nil {
		t.Fatalf("basis did not round-trip: %v", err)
	}

	if basis.Dim() != 36 {
		t.Fatalf("basis dim = %d, want 36", basis.Dim())
	}
}

func TestClampHeightsCopies(t *testing.T) {

	prep := &preparer{minH: 10, maxH: 100}

	frame := mousepca.Frame{5, 50, 200, 60}

	s := &mousepca.Session{
		Key:    "band",
		Height: 2,
		Width:  2,
		Frames: []mousepca.Frame{frame},
		Valid:  []bool{true},
	}

	got := prep.clampHeights(s)

	want := mousepca.Frame{0, 50, 0, 60}

	for i, v := range got.Frames[0] {
		if v != want[i] {
			t.Fatalf("banded frame = %v, want %v", got.Frames[0], want)
		}
	}

	// the source frame must survive untouched
	orig := mousepca.Frame{5, 50, 200, 60}

	for i, v := range frame {
		if v != orig[i] {
			t.Fatalf("source frame mutated: %v", frame)
		}
	}
}

func TestApplyPreservesDroppedFrames(t *testing.T) {

	input := t.TempDir()
	out := t.TempDir()

	frames := synthFrames(40, 6, 6, 7)

	writeSession(t, input, "masked",
		sessionMeta("masked")+"valid_file = \"valid.bin\"\n", frames)

	mask := make([]byte, 40)

	for i := range mask {
		mask[i] = 1
	}

	mask[5] = 0

	maskPath := filepath.Join(input, "masked", "valid.bin")

	if err := os.WriteFile(maskPath, mask, 0o644); err != nil {
		t.Fatalf("write mask: %v", err)
	}

	cfg := testConfig(input, out)
	log := discardLogger()
	ctx := context.Background()

	if _, err := Train(ctx, cfg, log); err != nil {
		t.Fatalf("train failed: %v", err)
	}

	if _, err := Apply(ctx, cfg, log); err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	matrices, err := output.LoadScores(cfg.ScoresPath())

	if err != nil {
		t.Fatalf("scores did not round-trip: %v", err)
	}

	sm := matrices[0]

	if !mousepca.IsSentinel(sm.Scores[5]) {
		t.Fatalf("dropped frame row 5 is not a sentinel: %v", sm.Scores[5])
	}

	if mousepca.IsSentinel(sm.Scores[6]) {
		t.Fatal("valid frame row 6 became a sentinel")
	}
}

func TestApplyWithoutBasis(t *testing.T) {

	cfg := testConfig(t.TempDir(), t.TempDir())

	if _, err := Apply(context.Background(), cfg, discardLogger()); err == nil {
		t.Fatal("apply should fail without a trained basis")
	}
}

func TestConfigValidate(t *testing.T) {

	base := func() Config {
		cfg := DefaultConfig()
		cfg.InputDir = "in"
		cfg.OutputDir = "out"
		return cfg
	}

	cfg := base()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cfg = base()
	cfg.Rank = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("zero rank accepted")
	}

	cfg = base()
	cfg.InputDir = ""

	if err := cfg.Validate(); err == nil {
		t.Fatal("missing input_dir accepted")
	}

	cfg = base()
	cfg.ROIPolygon = []int{0, 0, 10}

	if err := cfg.Validate(); err == nil {
		t.Fatal("odd roi_polygon accepted")
	}

	cfg = base()
	cfg.MaxHeight = cfg.MinHeight

	if err := cfg.Validate(); err == nil {
		t.Fatal("empty height band accepted")
	}
}

func TestLoadConfig(t *testing.T) {

	dir := t.TempDir()
	path := filepath.Join(dir, "mousepca.toml")

	body := `
input_dir = "/data/sessions"
output_dir = "/data/out"
rank = 20
workers = 3

[changepoints]
k_lags = 4
`

	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)

	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Rank != 20 || cfg.Workers != 3 {
		t.Fatalf("overrides not applied: rank=%d workers=%d", cfg.Rank, cfg.Workers)
	}

	if cfg.ChunkSize != 4000 {
		t.Fatalf("chunk_size default lost: %d", cfg.ChunkSize)
	}

	if cfg.Changepoints.KLags != 4 {
		t.Fatalf("changepoints override not applied: %d", cfg.Changepoints.KLags)
	}

	if cfg.Changepoints.NumProjections != 300 {
		t.Fatalf("changepoints default lost: %d", cfg.Changepoints.NumProjections)
	}
}
