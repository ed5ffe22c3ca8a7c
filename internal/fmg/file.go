package fmg

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrMalformedDocument marks a corpus file whose shape cannot be indexed.
// Fatal for the extraction run that hit it; nothing is written.
var ErrMalformedDocument = errors.New("malformed corpus document")

// Wire shapes with pointer fields so that missing required keys are
// distinguishable from zero values.
type rawEntry struct {
	ID   *int64  `json:"ID"`
	Text *string `json:"Text"`
}

type rawFMG struct {
	Name        *string         `json:"Name"`
	Entries     []rawEntry      `json:"Entries"`
	Version     json.RawMessage `json:"Version"`
	BigEndian   json.RawMessage `json:"BigEndian"`
	Unicode     json.RawMessage `json:"Unicode"`
	Compression json.RawMessage `json:"Compression"`
}

type rawWrapper struct {
	Name *string `json:"Name"`
	ID   *int64  `json:"ID"`
	Fmg  *rawFMG `json:"Fmg"`
}

type rawDocument struct {
	Name     *string      `json:"Name"`
	Wrappers []rawWrapper `json:"FmgWrappers"`
}

// Load reads and validates a corpus file.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus file: %w", err)
	}
	return Decode(data)
}

// Decode parses a corpus document, enforcing that every wrapper and entry
// carries its required fields.
func Decode(data []byte) (*Document, error) {
	var raw rawDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}

	doc := &Document{}
	if raw.Name != nil {
		doc.Name = *raw.Name
	}
	for wi, rw := range raw.Wrappers {
		if rw.Fmg == nil {
			return nil, fmt.Errorf("%w: wrapper %d has no Fmg", ErrMalformedDocument, wi)
		}
		if rw.ID == nil {
			return nil, fmt.Errorf("%w: wrapper %d has no ID", ErrMalformedDocument, wi)
		}
		w := Wrapper{ID: *rw.ID}
		if rw.Name != nil {
			w.Name = *rw.Name
		}
		f := FMG{
			Version:     rw.Fmg.Version,
			BigEndian:   rw.Fmg.BigEndian,
			Unicode:     rw.Fmg.Unicode,
			Compression: rw.Fmg.Compression,
		}
		if rw.Fmg.Name != nil {
			f.Name = *rw.Fmg.Name
		}
		for ei, re := range rw.Fmg.Entries {
			if re.ID == nil {
				return nil, fmt.Errorf("%w: wrapper %d entry %d has no ID", ErrMalformedDocument, wi, ei)
			}
			e := Entry{ID: *re.ID}
			if re.Text != nil {
				e.Text = *re.Text
			}
			f.Entries = append(f.Entries, e)
		}
		w.Fmg = f
		doc.Wrappers = append(doc.Wrappers, w)
	}
	return doc, nil
}

// Save writes a document as indented JSON without escaping non-ASCII text.
func Save(path string, doc *Document) error {
	data, err := Encode(doc)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write corpus file: %w", err)
	}
	return nil
}

func Encode(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode corpus document: %w", err)
	}
	return buf.Bytes(), nil
}
