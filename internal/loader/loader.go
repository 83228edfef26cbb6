// Package loader reads a canonical dataset archive (spec.md §6) — a zip file
// or an unpacked directory containing nodes.csv, edges_obs.csv, and
// optionally edges_true.csv / meta.json — into a streamdata.RawStream.
package loader

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/AcidicSwords/AxiomicAgent/internal/streamdata"
	"github.com/google/uuid"
)

const (
	nodesFile    = "nodes.csv"
	obsFile      = "edges_obs.csv"
	trueFile     = "edges_true.csv"
	metaFile     = "meta.json"
)

// Loader reads canonical dataset archives into RawStreams.
type Loader struct {
	Logger *slog.Logger
}

// New creates a Loader with the given logger (slog.Default() if nil),
// mirroring the teacher's nil-logger-falls-back-to-default convention
// (engine/ingest/ingest.go's Deps.Logger handling).
func New(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{Logger: logger}
}

// Load reads the archive at path (zip file or directory) and returns a
// normalized RawStream. nodes.csv and edges_obs.csv are required;
// edges_true.csv and meta.json are optional.
func (l *Loader) Load(path string) (*streamdata.RawStream, error) {
	ar, err := openArchive(path)
	if err != nil {
		return nil, NewLoadError(path, "", err)
	}
	defer ar.close()

	stream := streamdata.NewRawStream()
	stream.Meta["dataset_path"] = path

	if err := l.loadNodes(ar, path, stream); err != nil {
		return nil, err
	}
	if err := l.loadEdges(ar, path, obsFile, stream.ObsSteps, stream); err != nil {
		return nil, err
	}
	// edges_true.csv is optional: absence is not an error (spec.md §4.1).
	if err := l.loadEdgesOptional(ar, path, trueFile, stream.TrueSteps, stream); err != nil {
		return nil, err
	}
	if err := l.loadMeta(ar, path, stream); err != nil {
		return nil, err
	}

	if _, ok := stream.Meta["course_id"]; !ok {
		stream.Meta["course_id"] = uuid.NewSHA1(uuid.NameSpaceURL, []byte(path)).String()
	}

	return stream, nil
}

func (l *Loader) loadNodes(ar archiveReader, path string, stream *streamdata.RawStream) error {
	rc, ok, err := ar.open(nodesFile)
	if err != nil {
		return NewLoadError(path, nodesFile, err)
	}
	if !ok {
		return NewLoadError(path, nodesFile, ErrMissingRequiredFile)
	}
	defer rc.Close()

	rows, header, err := readCSV(rc)
	if err != nil {
		return NewLoadError(path, nodesFile, fmt.Errorf("%w: %v", ErrMalformedCSV, err))
	}
	idCol := colIndex(header, "id")
	if idCol < 0 {
		return NewLoadError(path, nodesFile, fmt.Errorf("%w: missing id column", ErrMalformedCSV))
	}
	labelCol := -1
	for _, cand := range []string{"label", "term", "concept"} {
		if c := colIndex(header, cand); c >= 0 {
			labelCol = c
			break
		}
	}

	for i, row := range rows {
		if idCol >= len(row) {
			return NewLoadError(path, nodesFile, fmt.Errorf("%w: row %d missing id", ErrMalformedCSV, i))
		}
		id, err := strconv.Atoi(strings.TrimSpace(row[idCol]))
		if err != nil {
			return NewLoadError(path, nodesFile, fmt.Errorf("%w: row %d id: %v", ErrMalformedCSV, i, err))
		}
		label := ""
		if labelCol >= 0 && labelCol < len(row) {
			label = row[labelCol]
		}
		attrs := make(map[string]any, len(header))
		for c, h := range header {
			if c == idCol || c >= len(row) {
				continue
			}
			attrs[h] = parseCell(row[c])
		}
		stream.Nodes[streamdata.NodeID(id)] = streamdata.NodeAttrs{Label: label, Attrs: attrs}
	}
	return nil
}

func (l *Loader) loadEdgesOptional(ar archiveReader, path, name string, dest map[int]streamdata.Frame, stream *streamdata.RawStream) error {
	_, ok, err := ar.open(name)
	if err != nil {
		return NewLoadError(path, name, err)
	}
	if !ok {
		return nil
	}
	return l.loadEdges(ar, path, name, dest, stream)
}

func (l *Loader) loadEdges(ar archiveReader, path, name string, dest map[int]streamdata.Frame, stream *streamdata.RawStream) error {
	rc, ok, err := ar.open(name)
	if err != nil {
		return NewLoadError(path, name, err)
	}
	if !ok {
		return NewLoadError(path, name, ErrMissingRequiredFile)
	}
	defer rc.Close()

	rows, header, err := readCSV(rc)
	if err != nil {
		return NewLoadError(path, name, fmt.Errorf("%w: %v", ErrMalformedCSV, err))
	}
	stepCol, srcCol, dstCol := colIndex(header, "step"), colIndex(header, "src"), colIndex(header, "dst")
	if stepCol < 0 || srcCol < 0 || dstCol < 0 {
		return NewLoadError(path, name, fmt.Errorf("%w: missing step/src/dst column", ErrMalformedCSV))
	}

	for i, row := range rows {
		if stepCol >= len(row) || srcCol >= len(row) || dstCol >= len(row) {
			return NewLoadError(path, name, fmt.Errorf("%w: row %d truncated", ErrMalformedCSV, i))
		}
		step, err := strconv.Atoi(strings.TrimSpace(row[stepCol]))
		if err != nil {
			return NewLoadError(path, name, fmt.Errorf("%w: row %d step: %v", ErrMalformedCSV, i, err))
		}
		src, err := strconv.Atoi(strings.TrimSpace(row[srcCol]))
		if err != nil {
			return NewLoadError(path, name, fmt.Errorf("%w: row %d src: %v", ErrMalformedCSV, i, err))
		}
		dst, err := strconv.Atoi(strings.TrimSpace(row[dstCol]))
		if err != nil {
			return NewLoadError(path, name, fmt.Errorf("%w: row %d dst: %v", ErrMalformedCSV, i, err))
		}
		frame, ok := dest[step]
		if !ok {
			frame = streamdata.NewFrame()
			dest[step] = frame
		}
		// Rows may repeat within a step; the frame dedups by (src,dst).
		frame.Add(streamdata.Edge{Src: streamdata.NodeID(src), Dst: streamdata.NodeID(dst)})
	}
	return nil
}

func (l *Loader) loadMeta(ar archiveReader, path string, stream *streamdata.RawStream) error {
	rc, ok, err := ar.open(metaFile)
	if err != nil {
		return NewLoadError(path, metaFile, err)
	}
	if !ok {
		return nil
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return NewLoadError(path, metaFile, fmt.Errorf("%w: %v", ErrMalformedJSON, err))
	}
	var parsed map[string]any
	if err := json.Unmarshal(data, &parsed); err != nil {
		return NewLoadError(path, metaFile, fmt.Errorf("%w: %v", ErrMalformedJSON, err))
	}
	for k, v := range parsed {
		stream.Meta[k] = v
	}
	return nil
}

func readCSV(r io.Reader) (rows [][]string, header []string, err error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	all, err := cr.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(all) == 0 {
		return nil, nil, nil
	}
	return all[1:], all[0], nil
}

func colIndex(header []string, name string) int {
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}

// parseCell infers string/int/float for a raw CSV cell. JSON-object-valued
// cells (spec.md §3: "JSON-encoded object") are decoded when they look like
// one; anything else is kept as a string.
func parseCell(raw string) any {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if i, err := strconv.Atoi(trimmed); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return f
	}
	if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") {
		var obj map[string]any
		if err := json.Unmarshal([]byte(trimmed), &obj); err == nil {
			return obj
		}
	}
	return raw
}
