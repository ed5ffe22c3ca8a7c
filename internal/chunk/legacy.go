package chunk

import (
	"encoding/json"
	"fmt"
)

// Legacy (pre-versioning) chunk files came in exactly two shapes: a bare
// JSON string array, and a {Meta, Entries} object without a SchemaVersion.
// Both map onto the array codec. Anything else is rejected rather than
// shape-sniffed.
func decodeLegacy(data []byte, want Boundary, index int) (*Chunk, error) {
	var bare []string
	if err := json.Unmarshal(data, &bare); err == nil {
		if len(bare) != want.Count {
			return nil, fmt.Errorf("%w: legacy array has %d entries, boundary count %d", ErrBadSchema, len(bare), want.Count)
		}
		return &Chunk{Index: index, Start: want.Start, Count: want.Count, Texts: bare}, nil
	}

	var env partEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSchema, err)
	}
	if env.Rows != nil || env.Entries == nil {
		return nil, fmt.Errorf("%w: unrecognized legacy chunk shape", ErrBadSchema)
	}
	if len(env.Entries) != want.Count {
		return nil, fmt.Errorf("%w: legacy chunk has %d entries, boundary count %d", ErrBadSchema, len(env.Entries), want.Count)
	}
	return &Chunk{Index: index, Start: want.Start, Count: want.Count, Texts: env.Entries}, nil
}
