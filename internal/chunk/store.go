package chunk

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var (
	ErrMissingHeader = errors.New("chunk directory has no header")
	ErrMissingChunk  = errors.New("chunk file not found")
)

// Store persists the flat sequence as a header plus independently loadable
// chunk files. Only one chunk needs to be resident at a time; callers must
// not assume otherwise. The store is codec-agnostic: the codec is picked
// once from the header's format tag.
type Store struct {
	dir    string
	header *Header
	codec  Codec
}

// Create initializes a chunk directory with the given header. Chunk files
// are written separately, one at a time.
func Create(dir string, header *Header) (*Store, error) {
	codec, err := CodecFor(header.Meta.Format)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create chunk directory: %w", err)
	}
	s := &Store{dir: dir, header: header, codec: codec}
	if err := s.writeJSON(filepath.Join(dir, HeaderFile), header); err != nil {
		return nil, err
	}
	return s, nil
}

// Open reads the header of an existing chunk directory.
func Open(dir string) (*Store, error) {
	data, err := os.ReadFile(filepath.Join(dir, HeaderFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrMissingHeader, dir)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	var header Header
	if err := json.Unmarshal(data, &header); err != nil {
		return nil, fmt.Errorf("parse header: %w", err)
	}
	if header.Meta.Chunks == nil {
		// Headers written before boundaries were recorded carry only
		// TotalEntries; treat them as a single chunk.
		header.Meta.Chunks = SplitBoundaries(header.Meta.TotalEntries, 0)
		header.Meta.ChunkCount = len(header.Meta.Chunks)
	}
	codec, err := CodecFor(header.Meta.Format)
	if err != nil {
		return nil, err
	}
	return &Store{dir: dir, header: &header, codec: codec}, nil
}

func (s *Store) Dir() string     { return s.dir }
func (s *Store) Header() *Header { return s.header }
func (s *Store) ChunkCount() int { return len(s.header.Meta.Chunks) }
func (s *Store) Format() string  { return s.codec.Format() }

// Boundary returns the recorded range of chunk i (0-based).
func (s *Store) Boundary(i int) Boundary {
	return s.header.Meta.Chunks[i]
}

// PartName returns the on-disk file name of chunk i (0-based index, 1-based
// file naming).
func PartName(i int) string {
	return fmt.Sprintf("part_%d.json", i+1)
}

// WriteChunk persists one chunk. Chunks are independent files, so a partial
// run leaves every finished chunk intact.
func (s *Store) WriteChunk(c *Chunk) error {
	if c.Index < 0 || c.Index >= s.ChunkCount() {
		return fmt.Errorf("chunk index %d out of range", c.Index)
	}
	want := s.Boundary(c.Index)
	if c.Start != want.Start || c.Count != want.Count || len(c.Texts) != want.Count {
		return fmt.Errorf("chunk %d does not match boundary [%d,%d)", c.Index, want.Start, want.End())
	}
	env := partEnvelope{
		SchemaVersion: SchemaVersion,
		Meta: partMeta{
			ChunkIndex: c.Index + 1,
			ChunkCount: s.ChunkCount(),
			StartIndex: c.Start,
			Count:      c.Count,
		},
	}
	if err := s.codec.encode(&env, c); err != nil {
		return err
	}
	return s.writeJSON(filepath.Join(s.dir, PartName(c.Index)), env)
}

// ReadChunk loads exactly one chunk's texts into memory.
func (s *Store) ReadChunk(i int) (*Chunk, error) {
	if i < 0 || i >= s.ChunkCount() {
		return nil, fmt.Errorf("chunk index %d out of range", i)
	}
	path := filepath.Join(s.dir, PartName(i))
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrMissingChunk, path)
		}
		return nil, fmt.Errorf("read chunk: %w", err)
	}

	want := s.Boundary(i)

	var probe struct {
		SchemaVersion int `json:"SchemaVersion"`
	}
	if err := json.Unmarshal(data, &probe); err != nil || probe.SchemaVersion == 0 {
		return decodeLegacy(data, want, i)
	}
	if probe.SchemaVersion != SchemaVersion {
		return nil, fmt.Errorf("%w: unsupported schema version %d", ErrBadSchema, probe.SchemaVersion)
	}

	var env partEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("parse chunk %s: %w", path, err)
	}
	if env.Meta.StartIndex != want.Start || env.Meta.Count != want.Count {
		return nil, fmt.Errorf("%w: chunk %d meta [%d,+%d) disagrees with header [%d,+%d)",
			ErrBadSchema, i, env.Meta.StartIndex, env.Meta.Count, want.Start, want.Count)
	}

	c := &Chunk{Index: i, Start: want.Start, Count: want.Count}
	if err := s.codec.decode(&env, c); err != nil {
		return nil, err
	}
	return c, nil
}

// WriteAll splits the flat texts along the header boundaries and writes
// every chunk file. Used at extraction.
func (s *Store) WriteAll(texts []string) error {
	if len(texts) != s.header.Meta.TotalEntries {
		return fmt.Errorf("have %d texts, header expects %d", len(texts), s.header.Meta.TotalEntries)
	}
	for i, b := range s.header.Meta.Chunks {
		c := &Chunk{Index: i, Start: b.Start, Count: b.Count, Texts: texts[b.Start:b.End()]}
		if err := s.WriteChunk(c); err != nil {
			return err
		}
	}
	return nil
}

// ReadAll assembles the full flat sequence from every chunk file. Missing
// indices stay empty only if a chunk file is absent and ignoreMissing is
// set; otherwise the first missing chunk aborts the read.
func (s *Store) ReadAll(ignoreMissing bool) ([]string, error) {
	texts := make([]string, s.header.Meta.TotalEntries)
	for i := range s.header.Meta.Chunks {
		c, err := s.ReadChunk(i)
		if err != nil {
			if ignoreMissing && errors.Is(err, ErrMissingChunk) {
				continue
			}
			return nil, err
		}
		copy(texts[c.Start:c.Start+c.Count], c.Texts)
	}
	return texts, nil
}

func (s *Store) writeJSON(path string, v interface{}) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}
