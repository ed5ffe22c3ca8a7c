// Package provider defines the narrow translation capability the pipeline
// consumes, plus the built-in implementations.
package provider

import (
	"context"
	"errors"

	"golang.org/x/text/language"
)

// ErrMisaligned marks a provider response the pipeline cannot line up with
// its request: wrong length or unparsable. The whole batch is treated as
// failed; individual items are never retried.
var ErrMisaligned = errors.New("provider response does not align with request")

// Translator translates an ordered batch of texts. The response must have
// the same length and positional alignment as the input.
type Translator interface {
	Translate(ctx context.Context, texts []string, target language.Tag, instructions string) ([]string, error)
}

// BackTranslator optionally translates texts back toward the source
// language for fidelity scoring, under the same alignment contract. An
// empty string in the result means no back-translation was produced for
// that position.
type BackTranslator interface {
	BackTranslate(ctx context.Context, texts []string) ([]string, error)
}
