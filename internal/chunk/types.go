package chunk

import (
	"github.com/mistward/fmgtrans/internal/corpus"
)

const (
	// SchemaVersion is the current chunk file schema. Version 0 covers the
	// legacy shapes written before the schema was versioned.
	SchemaVersion = 1

	// HeaderFile is the structural map file inside a chunk directory.
	HeaderFile = "0_header.json"
)

// Boundary addresses one contiguous slice of the flat sequence.
type Boundary struct {
	Start int `json:"StartIndex"`
	Count int `json:"Count"`
}

func (b Boundary) End() int { return b.Start + b.Count }

// Meta is the header preamble.
type Meta struct {
	SourceTopName string     `json:"SourceTopName"`
	Version       int        `json:"Version"`
	TotalEntries  int        `json:"TotalEntries"`
	ChunkCount    int        `json:"ChunkCount"`
	Chunks        []Boundary `json:"Chunks"`
	Format        string     `json:"Format"`
}

// Header is the structural map persisted once at extraction. It is the sole
// source of truth for reconstruction and never changes afterwards.
type Header struct {
	Meta      Meta           `json:"Meta"`
	Structure []corpus.Group `json:"Structure"`
	EntryIDs  []int64        `json:"EntryIDs"`
}

// Chunk is one loadable slice of the flat sequence. Originals is only
// populated by the table codec, which stores both columns.
type Chunk struct {
	Index     int
	Start     int
	Count     int
	Texts     []string
	Originals []string
}

// partMeta is the per-file addressing block. ChunkIndex is 1-based on disk,
// matching the part_<n>.json naming.
type partMeta struct {
	ChunkIndex int `json:"ChunkIndex"`
	ChunkCount int `json:"ChunkCount"`
	StartIndex int `json:"StartIndex"`
	Count      int `json:"Count"`
}

// partEnvelope is the on-disk chunk file. Exactly one of Entries or Rows is
// set, depending on the codec.
type partEnvelope struct {
	SchemaVersion int      `json:"SchemaVersion"`
	Meta          partMeta `json:"Meta"`
	Entries       []string `json:"Entries,omitempty"`
	Rows          []Row    `json:"Rows,omitempty"`
}

// Row is one table-codec record.
type Row struct {
	Original   string `json:"Original"`
	Translated string `json:"Translated"`
}

// SplitBoundaries partitions [0, n) into chunk boundaries. A non-positive
// chunkSize yields a single chunk holding everything.
func SplitBoundaries(n, chunkSize int) []Boundary {
	if chunkSize <= 0 || chunkSize >= n {
		return []Boundary{{Start: 0, Count: n}}
	}
	bounds := make([]Boundary, 0, (n+chunkSize-1)/chunkSize)
	for start := 0; start < n; start += chunkSize {
		count := chunkSize
		if start+count > n {
			count = n - start
		}
		bounds = append(bounds, Boundary{Start: start, Count: count})
	}
	return bounds
}

// NewHeader builds the immutable header for a flattened corpus.
func NewHeader(flat *corpus.Flattened, chunkSize int, format string) (*Header, error) {
	if _, err := CodecFor(format); err != nil {
		return nil, err
	}
	bounds := SplitBoundaries(len(flat.Texts), chunkSize)
	return &Header{
		Meta: Meta{
			SourceTopName: flat.TopName,
			Version:       SchemaVersion,
			TotalEntries:  len(flat.Texts),
			ChunkCount:    len(bounds),
			Chunks:        bounds,
			Format:        format,
		},
		Structure: flat.Groups,
		EntryIDs:  flat.EntryIDs,
	}, nil
}
