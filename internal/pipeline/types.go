// Package pipeline runs the chunked batch translation: splitting each chunk
// into token-budgeted batches, draining them through a pool of workers, and
// flushing translated chunks back to a store, with cooperative pause and
// stop.
package pipeline

import (
	"golang.org/x/text/language"

	"github.com/mistward/fmgtrans/internal/batch"
	"github.com/mistward/fmgtrans/internal/fidelity"
)

// Mode selects which token budget the splitter uses. Both modes run the
// same algorithm.
type Mode string

const (
	// ModeAuto uses the global MaxTokens ceiling.
	ModeAuto Mode = "auto"
	// ModeManual uses the user-chosen ManualTokens per-batch ceiling.
	ModeManual Mode = "manual"
)

// Phase is the per-chunk state machine position.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseSplitting Phase = "splitting"
	PhaseDraining  Phase = "draining"
	PhaseFlushing  Phase = "flushing"
	PhaseDone      Phase = "done"
)

// Options configures one translation session.
type Options struct {
	Workers       int
	Mode          Mode
	MaxTokens     int
	ManualTokens  int
	CharsPerToken int

	TargetLanguage language.Tag
	Instructions   string

	SkipEmpty      bool
	SkipTranslated bool

	BackCheck         bool
	FidelityThreshold float64
}

func (o *Options) normalize() {
	if o.Workers <= 0 {
		o.Workers = 1
	}
	if o.Mode != ModeManual {
		o.Mode = ModeAuto
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = 1000
	}
	if o.ManualTokens <= 0 {
		o.ManualTokens = 800
	}
	if o.CharsPerToken <= 0 {
		o.CharsPerToken = batch.DefaultCharsPerToken
	}
	if o.FidelityThreshold <= 0 {
		o.FidelityThreshold = fidelity.DefaultThreshold
	}
}

// Budget returns the token ceiling for the active mode.
func (o Options) Budget() int {
	if o.Mode == ModeManual {
		return o.ManualTokens
	}
	return o.MaxTokens
}

// Status is a snapshot of a session's position in the run.
type Status struct {
	Phase        Phase    `json:"phase"`
	CurrentChunk int      `json:"current_chunk"`
	ChunkCount   int      `json:"chunk_count"`
	Paused       bool     `json:"paused"`
	Stopping     bool     `json:"stopping"`
	Progress     Progress `json:"progress"`
}

// Sink receives the session's diagnostic side channel: batch failures and
// back-translation fidelity records. Implementations must be safe for
// concurrent use; the session calls them from multiple workers.
type Sink interface {
	RecordFailure(chunkFile string, start, end int, cause error)
	RecordFidelity(chunkFile string, recs []fidelity.Record)
}
