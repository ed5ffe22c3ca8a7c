package fmg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_ValidDocument(t *testing.T) {
	data := []byte(`{
		"Name": "item.msgbnd.dcx",
		"FmgWrappers": [
			{
				"Name": "Weapon Names",
				"ID": 12,
				"Fmg": {
					"Name": "WeaponName",
					"Version": 2,
					"BigEndian": false,
					"Unicode": true,
					"Entries": [
						{"ID": 100, "Text": "Longsword"},
						{"ID": 101, "Text": ""}
					]
				}
			}
		]
	}`)

	doc, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "item.msgbnd.dcx", doc.Name)
	require.Len(t, doc.Wrappers, 1)

	w := doc.Wrappers[0]
	assert.Equal(t, "Weapon Names", w.Name)
	assert.Equal(t, int64(12), w.ID)
	assert.Equal(t, "WeaponName", w.Fmg.Name)
	require.Len(t, w.Fmg.Entries, 2)
	assert.Equal(t, int64(100), w.Fmg.Entries[0].ID)
	assert.Equal(t, "Longsword", w.Fmg.Entries[0].Text)
	assert.Equal(t, "", w.Fmg.Entries[1].Text)

	// Meta fields survive opaquely.
	assert.JSONEq(t, "2", string(w.Fmg.Version))
	assert.JSONEq(t, "false", string(w.Fmg.BigEndian))
	assert.JSONEq(t, "true", string(w.Fmg.Unicode))
	assert.Nil(t, w.Fmg.Compression)
}

func TestDecode_EntryWithoutID(t *testing.T) {
	data := []byte(`{
		"Name": "x",
		"FmgWrappers": [
			{"Name": "w", "ID": 1, "Fmg": {"Name": "f", "Entries": [{"Text": "no id"}]}}
		]
	}`)

	_, err := Decode(data)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedDocument)
}

func TestDecode_WrapperWithoutFmg(t *testing.T) {
	data := []byte(`{"Name": "x", "FmgWrappers": [{"Name": "w", "ID": 1}]}`)

	_, err := Decode(data)
	assert.ErrorIs(t, err, ErrMalformedDocument)
}

func TestDecode_NotJSON(t *testing.T) {
	_, err := Decode([]byte("not json"))
	assert.ErrorIs(t, err, ErrMalformedDocument)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	doc := &Document{
		Name: "menu",
		Wrappers: []Wrapper{
			{
				Name: "Dialog",
				ID:   3,
				Fmg: FMG{
					Name: "EventText",
					Entries: []Entry{
						{ID: 1, Text: "祝福を得た"},
						{ID: 2, Text: "<br>line"},
					},
				},
			},
		},
	}

	path := filepath.Join(t.TempDir(), "menu.json")
	require.NoError(t, Save(path, doc))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, doc, got)

	// Non-ASCII and angle brackets are written unescaped.
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "祝福を得た")
	assert.Contains(t, string(raw), "<br>line")
}

func TestTotalEntries(t *testing.T) {
	doc := &Document{
		Wrappers: []Wrapper{
			{Fmg: FMG{Entries: []Entry{{ID: 1}, {ID: 2}}}},
			{Fmg: FMG{}},
			{Fmg: FMG{Entries: []Entry{{ID: 3}}}},
		},
	}
	assert.Equal(t, 3, doc.TotalEntries())
}
