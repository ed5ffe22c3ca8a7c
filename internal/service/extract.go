// Package service wires the corpus, chunk store, pipeline and persistence
// layers into the operations the CLI and HTTP API expose.
package service

import (
	"fmt"

	"github.com/mistward/fmgtrans/internal/chunk"
	"github.com/mistward/fmgtrans/internal/corpus"
	"github.com/mistward/fmgtrans/internal/fmg"
	"github.com/mistward/fmgtrans/pkg/file"
	"github.com/mistward/fmgtrans/pkg/log"
)

// Extract flattens a corpus file into a chunk directory next to it and
// returns the opened store.
func Extract(sourcePath string, chunkSize int, format string) (*chunk.Store, error) {
	doc, err := fmg.Load(sourcePath)
	if err != nil {
		return nil, err
	}

	flat := corpus.Extract(doc)
	header, err := chunk.NewHeader(flat, chunkSize, format)
	if err != nil {
		return nil, err
	}

	dir := file.ExtractedDir(sourcePath)
	store, err := chunk.Create(dir, header)
	if err != nil {
		return nil, err
	}
	if err := store.WriteAll(flat.Texts); err != nil {
		return nil, err
	}

	log.Info("extracted %d entries into %d chunks at %s",
		header.Meta.TotalEntries, header.Meta.ChunkCount, dir)
	return store, nil
}

// Merge reassembles a chunk directory into a corpus document. With
// allowPartial set, missing chunk files leave empty text instead of
// aborting; useful after a stopped run.
func Merge(folder, outPath string, allowPartial bool) (string, error) {
	store, err := chunk.Open(folder)
	if err != nil {
		return "", err
	}

	texts, err := store.ReadAll(allowPartial)
	if err != nil {
		return "", err
	}

	header := store.Header()
	doc := corpus.Merge(header.Meta.SourceTopName, header.Structure, header.EntryIDs, texts)

	if outPath == "" {
		outPath = file.MergedPath(folder)
	}
	if err := fmg.Save(outPath, doc); err != nil {
		return "", err
	}

	log.Info("merged %d entries into %s", header.Meta.TotalEntries, outPath)
	return outPath, nil
}

// Verify checks the structural round trip: extract followed by merge must
// reproduce every entry ID and text exactly.
func Verify(doc *fmg.Document) error {
	flat := corpus.Extract(doc)
	rebuilt := corpus.Merge(flat.TopName, flat.Groups, flat.EntryIDs, flat.Texts)

	if len(rebuilt.Wrappers) != len(doc.Wrappers) {
		return fmt.Errorf("wrapper count changed: %d != %d", len(rebuilt.Wrappers), len(doc.Wrappers))
	}
	for i, w := range doc.Wrappers {
		rw := rebuilt.Wrappers[i]
		if len(rw.Fmg.Entries) != len(w.Fmg.Entries) {
			return fmt.Errorf("wrapper %d entry count changed", i)
		}
		for j, e := range w.Fmg.Entries {
			re := rw.Fmg.Entries[j]
			if re.ID != e.ID || re.Text != e.Text {
				return fmt.Errorf("wrapper %d entry %d does not survive the round trip", i, j)
			}
		}
	}
	return nil
}
