package chunk

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mistward/fmgtrans/internal/corpus"
)

func testFlattened(n int) *corpus.Flattened {
	flat := &corpus.Flattened{
		TopName: "item.msgbnd.dcx",
		Groups: []corpus.Group{
			{WrapperName: "w", WrapperID: 1, FmgName: "f"},
		},
	}
	for i := 0; i < n; i++ {
		flat.Groups[0].EntryIndexes = append(flat.Groups[0].EntryIndexes, i)
		flat.EntryIDs = append(flat.EntryIDs, int64(100+i))
		flat.Texts = append(flat.Texts, fmt.Sprintf("text %d", i))
	}
	return flat
}

func TestSplitBoundaries_PartitionsWithoutGapsOrOverlap(t *testing.T) {
	bounds := SplitBoundaries(10, 3)
	require.Len(t, bounds, 4)

	next := 0
	for _, b := range bounds {
		assert.Equal(t, next, b.Start)
		assert.Greater(t, b.Count, 0)
		next = b.End()
	}
	assert.Equal(t, 10, next)
	assert.Equal(t, 1, bounds[3].Count)
}

func TestSplitBoundaries_SingleChunkCases(t *testing.T) {
	assert.Equal(t, []Boundary{{Start: 0, Count: 7}}, SplitBoundaries(7, 0))
	assert.Equal(t, []Boundary{{Start: 0, Count: 7}}, SplitBoundaries(7, -1))
	assert.Equal(t, []Boundary{{Start: 0, Count: 7}}, SplitBoundaries(7, 7))
	assert.Equal(t, []Boundary{{Start: 0, Count: 7}}, SplitBoundaries(7, 100))
}

func TestNewHeader_RejectsUnknownFormat(t *testing.T) {
	_, err := NewHeader(testFlattened(3), 2, "csv")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestStore_WriteAllReadAll_RoundTrip(t *testing.T) {
	flat := testFlattened(10)
	header, err := NewHeader(flat, 3, FormatArray)
	require.NoError(t, err)

	dir := t.TempDir()
	store, err := Create(dir, header)
	require.NoError(t, err)
	require.NoError(t, store.WriteAll(flat.Texts))

	// part_1..part_4 plus the header exist on disk.
	for i := 0; i < 4; i++ {
		_, err := os.Stat(filepath.Join(dir, PartName(i)))
		assert.NoError(t, err, PartName(i))
	}

	reopened, err := Open(dir)
	require.NoError(t, err)
	assert.Equal(t, 4, reopened.ChunkCount())
	assert.Equal(t, FormatArray, reopened.Format())

	texts, err := reopened.ReadAll(false)
	require.NoError(t, err)
	assert.Equal(t, flat.Texts, texts)
}

func TestStore_ReadChunk_LoadsOneSlice(t *testing.T) {
	flat := testFlattened(10)
	header, err := NewHeader(flat, 4, FormatArray)
	require.NoError(t, err)

	store, err := Create(t.TempDir(), header)
	require.NoError(t, err)
	require.NoError(t, store.WriteAll(flat.Texts))

	c, err := store.ReadChunk(1)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Index)
	assert.Equal(t, 4, c.Start)
	assert.Equal(t, 4, c.Count)
	assert.Equal(t, flat.Texts[4:8], c.Texts)
}

func TestStore_WriteChunk_RejectsBoundaryMismatch(t *testing.T) {
	flat := testFlattened(6)
	header, err := NewHeader(flat, 3, FormatArray)
	require.NoError(t, err)
	store, err := Create(t.TempDir(), header)
	require.NoError(t, err)

	err = store.WriteChunk(&Chunk{Index: 0, Start: 1, Count: 3, Texts: flat.Texts[1:4]})
	assert.Error(t, err)

	err = store.WriteChunk(&Chunk{Index: 0, Start: 0, Count: 3, Texts: flat.Texts[:2]})
	assert.Error(t, err)

	err = store.WriteChunk(&Chunk{Index: 5, Start: 0, Count: 3, Texts: flat.Texts[:3]})
	assert.Error(t, err)
}

func TestOpen_MissingHeader(t *testing.T) {
	_, err := Open(t.TempDir())
	assert.ErrorIs(t, err, ErrMissingHeader)
}

func TestStore_ReadChunk_Missing(t *testing.T) {
	flat := testFlattened(6)
	header, err := NewHeader(flat, 3, FormatArray)
	require.NoError(t, err)
	store, err := Create(t.TempDir(), header)
	require.NoError(t, err)

	_, err = store.ReadChunk(0)
	assert.ErrorIs(t, err, ErrMissingChunk)
}

func TestStore_ReadAll_IgnoreMissingLeavesGapsEmpty(t *testing.T) {
	flat := testFlattened(6)
	header, err := NewHeader(flat, 3, FormatArray)
	require.NoError(t, err)
	store, err := Create(t.TempDir(), header)
	require.NoError(t, err)

	// Only the second chunk is present.
	b := store.Boundary(1)
	require.NoError(t, store.WriteChunk(&Chunk{Index: 1, Start: b.Start, Count: b.Count, Texts: flat.Texts[b.Start:b.End()]}))

	_, err = store.ReadAll(false)
	assert.ErrorIs(t, err, ErrMissingChunk)

	texts, err := store.ReadAll(true)
	require.NoError(t, err)
	assert.Equal(t, []string{"", "", "", "text 3", "text 4", "text 5"}, texts)
}

func TestStore_TableCodec_RoundTripKeepsBothColumns(t *testing.T) {
	flat := testFlattened(4)
	header, err := NewHeader(flat, 0, FormatTable)
	require.NoError(t, err)

	dir := t.TempDir()
	store, err := Create(dir, header)
	require.NoError(t, err)
	require.NoError(t, store.WriteAll(flat.Texts))

	// Overwrite with translations while keeping the original column.
	translated := []string{"甲", "乙", "丙", "丁"}
	require.NoError(t, store.WriteChunk(&Chunk{
		Index:     0,
		Start:     0,
		Count:     4,
		Texts:     translated,
		Originals: flat.Texts,
	}))

	c, err := store.ReadChunk(0)
	require.NoError(t, err)
	assert.Equal(t, translated, c.Texts)
	assert.Equal(t, flat.Texts, c.Originals)
}

func TestStore_TableCodec_FreshChunkMirrorsSourceIntoOriginal(t *testing.T) {
	flat := testFlattened(3)
	header, err := NewHeader(flat, 0, FormatTable)
	require.NoError(t, err)

	store, err := Create(t.TempDir(), header)
	require.NoError(t, err)
	require.NoError(t, store.WriteAll(flat.Texts))

	c, err := store.ReadChunk(0)
	require.NoError(t, err)
	assert.Equal(t, flat.Texts, c.Texts)
	assert.Equal(t, flat.Texts, c.Originals)
}

func TestStore_ReadChunk_RejectsMetaHeaderDisagreement(t *testing.T) {
	flat := testFlattened(6)
	header, err := NewHeader(flat, 3, FormatArray)
	require.NoError(t, err)

	dir := t.TempDir()
	store, err := Create(dir, header)
	require.NoError(t, err)

	// A chunk file whose meta claims a different range than the header.
	rogue := `{"SchemaVersion":1,"Meta":{"ChunkIndex":1,"ChunkCount":2,"StartIndex":2,"Count":3},"Entries":["a","b","c"]}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, PartName(0)), []byte(rogue), 0644))

	_, err = store.ReadChunk(0)
	assert.ErrorIs(t, err, ErrBadSchema)
}

func TestStore_ReadChunk_LegacyBareArray(t *testing.T) {
	flat := testFlattened(3)
	header, err := NewHeader(flat, 0, FormatArray)
	require.NoError(t, err)

	dir := t.TempDir()
	store, err := Create(dir, header)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, PartName(0)), []byte(`["a","b","c"]`), 0644))

	c, err := store.ReadChunk(0)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, c.Texts)
}

func TestStore_ReadChunk_LegacyEnvelopeWithoutSchemaVersion(t *testing.T) {
	flat := testFlattened(2)
	header, err := NewHeader(flat, 0, FormatArray)
	require.NoError(t, err)

	dir := t.TempDir()
	store, err := Create(dir, header)
	require.NoError(t, err)

	legacy := `{"Meta":{"ChunkIndex":1,"ChunkCount":1,"StartIndex":0,"Count":2},"Entries":["x","y"]}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, PartName(0)), []byte(legacy), 0644))

	c, err := store.ReadChunk(0)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, c.Texts)
}

func TestStore_ReadChunk_LegacyRejectsUnrecognizedShape(t *testing.T) {
	flat := testFlattened(2)
	header, err := NewHeader(flat, 0, FormatArray)
	require.NoError(t, err)

	dir := t.TempDir()
	store, err := Create(dir, header)
	require.NoError(t, err)

	for _, bad := range []string{
		`{"Texts":["x","y"]}`,
		`{"Meta":{},"Rows":[{"Original":"x","Translated":"y"}]}`,
		`["only one"]`,
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, PartName(0)), []byte(bad), 0644))
		_, err = store.ReadChunk(0)
		assert.ErrorIs(t, err, ErrBadSchema, bad)
	}
}

func TestOpen_HeaderWithoutBoundariesFallsBackToSingleChunk(t *testing.T) {
	dir := t.TempDir()
	header := `{
		"Meta": {"SourceTopName": "x", "TotalEntries": 5, "Format": "array"},
		"Structure": [],
		"EntryIDs": [1, 2, 3, 4, 5]
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, HeaderFile), []byte(header), 0644))

	store, err := Open(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, store.ChunkCount())
	assert.Equal(t, Boundary{Start: 0, Count: 5}, store.Boundary(0))
}

func TestCodecFor_EmptyFormatDefaultsToArray(t *testing.T) {
	codec, err := CodecFor("")
	require.NoError(t, err)
	assert.Equal(t, FormatArray, codec.Format())
}
