package fmg

import "encoding/json"

// Entry is the atomic translatable unit of an FMG corpus.
type Entry struct {
	ID   int64  `json:"ID"`
	Text string `json:"Text"`
}

// FMG is a named list of entries plus the format metadata the game tooling
// expects back untouched. The meta fields are carried opaquely so that
// whatever the exporter wrote survives a round trip.
type FMG struct {
	Name        string          `json:"Name"`
	Entries     []Entry         `json:"Entries"`
	Version     json.RawMessage `json:"Version,omitempty"`
	BigEndian   json.RawMessage `json:"BigEndian,omitempty"`
	Unicode     json.RawMessage `json:"Unicode,omitempty"`
	Compression json.RawMessage `json:"Compression,omitempty"`
}

// Wrapper is the outer container around one FMG.
type Wrapper struct {
	Name string `json:"Name"`
	ID   int64  `json:"ID"`
	Fmg  FMG    `json:"Fmg"`
}

// Document is a full FMG corpus as exported to JSON.
type Document struct {
	Name     string    `json:"Name"`
	Wrappers []Wrapper `json:"FmgWrappers"`
}

// TotalEntries counts entries across all wrappers.
func (d *Document) TotalEntries() int {
	n := 0
	for _, w := range d.Wrappers {
		n += len(w.Fmg.Entries)
	}
	return n
}
