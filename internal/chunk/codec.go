package chunk

import (
	"errors"
	"fmt"
)

const (
	// FormatArray stores a chunk as an ordered string array.
	FormatArray = "array"
	// FormatTable stores a chunk as original/translated row pairs.
	FormatTable = "table"
)

var (
	ErrUnknownFormat = errors.New("unknown chunk format")
	ErrBadSchema     = errors.New("chunk file does not match its schema")
)

// Codec encodes one chunk's payload into a part envelope and back. The set
// of codecs is closed; the store selects one once, at header-read time, and
// its addressing logic never branches on the format again.
type Codec interface {
	Format() string
	encode(env *partEnvelope, c *Chunk) error
	decode(env *partEnvelope, c *Chunk) error
}

// CodecFor resolves a header format tag to its codec.
func CodecFor(format string) (Codec, error) {
	switch format {
	case FormatArray, "":
		return arrayCodec{}, nil
	case FormatTable:
		return tableCodec{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

type arrayCodec struct{}

func (arrayCodec) Format() string { return FormatArray }

func (arrayCodec) encode(env *partEnvelope, c *Chunk) error {
	env.Entries = c.Texts
	return nil
}

func (arrayCodec) decode(env *partEnvelope, c *Chunk) error {
	if env.Rows != nil {
		return fmt.Errorf("%w: array chunk carries rows", ErrBadSchema)
	}
	if len(env.Entries) != env.Meta.Count {
		return fmt.Errorf("%w: %d entries, meta count %d", ErrBadSchema, len(env.Entries), env.Meta.Count)
	}
	c.Texts = env.Entries
	return nil
}

type tableCodec struct{}

func (tableCodec) Format() string { return FormatTable }

func (tableCodec) encode(env *partEnvelope, c *Chunk) error {
	rows := make([]Row, len(c.Texts))
	for i, t := range c.Texts {
		rows[i].Translated = t
		// An untranslated chunk has no separate original column yet.
		rows[i].Original = t
		if i < len(c.Originals) {
			rows[i].Original = c.Originals[i]
		}
	}
	env.Rows = rows
	return nil
}

func (tableCodec) decode(env *partEnvelope, c *Chunk) error {
	if env.Entries != nil {
		return fmt.Errorf("%w: table chunk carries a bare entry array", ErrBadSchema)
	}
	if len(env.Rows) != env.Meta.Count {
		return fmt.Errorf("%w: %d rows, meta count %d", ErrBadSchema, len(env.Rows), env.Meta.Count)
	}
	texts := make([]string, len(env.Rows))
	originals := make([]string, len(env.Rows))
	for i, r := range env.Rows {
		texts[i] = r.Translated
		originals[i] = r.Original
	}
	c.Texts = texts
	c.Originals = originals
	return nil
}
