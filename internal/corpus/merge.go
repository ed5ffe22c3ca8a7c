package corpus

import (
	"github.com/mistward/fmgtrans/internal/fmg"
)

// Merge rebuilds the original document shape from the structural map and a
// flat text sequence. Indices outside the sequence produce empty text; that
// only happens when an output chunk went missing, and the merge still yields
// a structurally complete document. Merge is pure and idempotent.
func Merge(topName string, groups []Group, entryIDs []int64, texts []string) *fmg.Document {
	doc := &fmg.Document{
		Name:     topName,
		Wrappers: make([]fmg.Wrapper, 0, len(groups)),
	}

	for _, g := range groups {
		entries := make([]fmg.Entry, 0, len(g.EntryIndexes))
		for _, idx := range g.EntryIndexes {
			var id int64
			if idx >= 0 && idx < len(entryIDs) {
				id = entryIDs[idx]
			}
			var text string
			if idx >= 0 && idx < len(texts) {
				text = texts[idx]
			}
			entries = append(entries, fmg.Entry{ID: id, Text: text})
		}
		doc.Wrappers = append(doc.Wrappers, fmg.Wrapper{
			Name: g.WrapperName,
			ID:   g.WrapperID,
			Fmg: fmg.FMG{
				Name:        g.FmgName,
				Entries:     entries,
				Version:     g.FmgVersion,
				BigEndian:   g.FmgBigEndian,
				Unicode:     g.FmgUnicode,
				Compression: g.FmgCompression,
			},
		})
	}

	return doc
}
