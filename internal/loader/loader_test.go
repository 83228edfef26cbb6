package loader

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeDirArchive(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

const sampleNodes = "id,label\n0,a\n1,b\n2,c\n"
const sampleObs = "step,src,dst\n0,0,1\n1,0,1\n1,1,2\n"

func TestLoad_Directory(t *testing.T) {
	dir := t.TempDir()
	writeDirArchive(t, dir, map[string]string{
		nodesFile: sampleNodes,
		obsFile:   sampleObs,
	})

	l := New(nil)
	rs, err := l.Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(rs.Nodes) != 3 {
		t.Fatalf("expected 3 nodes, got %d", len(rs.Nodes))
	}
	if len(rs.ObsSteps[1]) != 2 {
		t.Fatalf("expected 2 deduplicated edges at step 1, got %d", len(rs.ObsSteps[1]))
	}
	if rs.Meta["dataset_path"] != dir {
		t.Fatalf("expected dataset_path=%s, got %v", dir, rs.Meta["dataset_path"])
	}
}

func TestLoad_MissingRequiredFile(t *testing.T) {
	dir := t.TempDir()
	writeDirArchive(t, dir, map[string]string{nodesFile: sampleNodes})

	_, err := New(nil).Load(dir)
	if !errors.Is(err, ErrMissingRequiredFile) {
		t.Fatalf("expected ErrMissingRequiredFile, got %v", err)
	}
}

func TestLoad_MalformedCSV(t *testing.T) {
	dir := t.TempDir()
	writeDirArchive(t, dir, map[string]string{
		nodesFile: "id,label\nnotanumber,a\n",
		obsFile:   sampleObs,
	})

	_, err := New(nil).Load(dir)
	if !errors.Is(err, ErrMalformedCSV) {
		t.Fatalf("expected ErrMalformedCSV, got %v", err)
	}
}

func TestLoad_MetaAndTrueStepsOptional(t *testing.T) {
	dir := t.TempDir()
	writeDirArchive(t, dir, map[string]string{
		nodesFile: sampleNodes,
		obsFile:   sampleObs,
		metaFile:  `{"course_id": "course-x", "domain": "curriculum"}`,
	})

	rs, err := New(nil).Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if rs.Meta["course_id"] != "course-x" {
		t.Fatalf("expected course_id from meta.json, got %v", rs.Meta["course_id"])
	}
	if len(rs.TrueSteps) != 0 {
		t.Fatalf("expected empty true_steps, got %v", rs.TrueSteps)
	}
}

func TestLoad_DeterministicCourseIDWithoutMeta(t *testing.T) {
	dir := t.TempDir()
	writeDirArchive(t, dir, map[string]string{nodesFile: sampleNodes, obsFile: sampleObs})

	a, err := New(nil).Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	b, err := New(nil).Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if a.Meta["course_id"] != b.Meta["course_id"] {
		t.Fatalf("expected deterministic course_id, got %v vs %v", a.Meta["course_id"], b.Meta["course_id"])
	}
}

func TestLoad_ZipMatchesDirectory(t *testing.T) {
	dir := t.TempDir()
	writeDirArchive(t, dir, map[string]string{nodesFile: sampleNodes, obsFile: sampleObs})

	zipPath := filepath.Join(t.TempDir(), "archive.zip")
	zf, err := os.Create(zipPath)
	if err != nil {
		t.Fatalf("create zip: %v", err)
	}
	zw := zip.NewWriter(zf)
	for _, name := range []string{nodesFile, obsFile} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create %s: %v", name, err)
		}
		if _, err := w.Write(data); err != nil {
			t.Fatalf("zip write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip writer: %v", err)
	}
	zf.Close()

	dirStream, err := New(nil).Load(dir)
	if err != nil {
		t.Fatalf("Load dir: %v", err)
	}
	zipStream, err := New(nil).Load(zipPath)
	if err != nil {
		t.Fatalf("Load zip: %v", err)
	}

	if len(dirStream.Nodes) != len(zipStream.Nodes) {
		t.Fatalf("node count mismatch: %d vs %d", len(dirStream.Nodes), len(zipStream.Nodes))
	}
	for step, frame := range dirStream.ObsSteps {
		if len(zipStream.ObsSteps[step]) != len(frame) {
			t.Fatalf("step %d edge count mismatch", step)
		}
	}
}

func TestParseCell(t *testing.T) {
	cases := map[string]any{
		"5":       5,
		"5.5":     5.5,
		"hello":   "hello",
		"":        "",
		`{"a":1}`: map[string]any{"a": float64(1)},
	}
	for in, want := range cases {
		got := parseCell(in)
		switch w := want.(type) {
		case map[string]any:
			g, ok := got.(map[string]any)
			if !ok || g["a"] != w["a"] {
				t.Errorf("parseCell(%q) = %v, want %v", in, got, want)
			}
		default:
			if got != want {
				t.Errorf("parseCell(%q) = %v (%T), want %v (%T)", in, got, got, want, want)
			}
		}
	}
}
