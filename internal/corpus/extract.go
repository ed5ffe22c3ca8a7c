package corpus

import (
	"github.com/mistward/fmgtrans/internal/fmg"
)

// Extract flattens a document into a globally indexed text sequence plus the
// structural map needed to reverse it. Indices are assigned in document
// order, 0-based and monotonic, so extraction is deterministic for a given
// input order.
func Extract(doc *fmg.Document) *Flattened {
	flat := &Flattened{
		TopName:  doc.Name,
		Groups:   make([]Group, 0, len(doc.Wrappers)),
		EntryIDs: make([]int64, 0, doc.TotalEntries()),
		Texts:    make([]string, 0, doc.TotalEntries()),
	}

	for _, w := range doc.Wrappers {
		g := Group{
			WrapperName:    w.Name,
			WrapperID:      w.ID,
			FmgName:        w.Fmg.Name,
			EntryIndexes:   make([]int, 0, len(w.Fmg.Entries)),
			FmgVersion:     w.Fmg.Version,
			FmgBigEndian:   w.Fmg.BigEndian,
			FmgUnicode:     w.Fmg.Unicode,
			FmgCompression: w.Fmg.Compression,
		}
		for _, e := range w.Fmg.Entries {
			idx := len(flat.EntryIDs)
			g.EntryIndexes = append(g.EntryIndexes, idx)
			flat.EntryIDs = append(flat.EntryIDs, e.ID)
			flat.Texts = append(flat.Texts, e.Text)
		}
		flat.Groups = append(flat.Groups, g)
	}

	return flat
}
