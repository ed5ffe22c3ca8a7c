package corpus

import "encoding/json"

// Group records one wrapper's identity plus the global flat indices of its
// entries, in original order. The texts themselves live in the flat
// sequence; the group only points at them.
type Group struct {
	WrapperName  string `json:"WrapperName"`
	WrapperID    int64  `json:"WrapperID"`
	FmgName      string `json:"FmgName"`
	EntryIndexes []int  `json:"EntryIndexes"`

	// FMG meta fields, restored verbatim at merge time.
	FmgVersion     json.RawMessage `json:"FmgVersion,omitempty"`
	FmgBigEndian   json.RawMessage `json:"FmgBigEndian,omitempty"`
	FmgUnicode     json.RawMessage `json:"FmgUnicode,omitempty"`
	FmgCompression json.RawMessage `json:"FmgCompression,omitempty"`
}

// Flattened is the result of indexing a document: the structural map plus
// the flat text sequence it addresses.
type Flattened struct {
	TopName  string
	Groups   []Group
	EntryIDs []int64
	Texts    []string
}
