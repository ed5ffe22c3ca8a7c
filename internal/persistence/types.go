package persistence

import "time"

type RunStatus string

const (
	RunRunning  RunStatus = "running"
	RunStopped  RunStatus = "stopped"
	RunFinished RunStatus = "finished"
	RunFailed   RunStatus = "failed"
)

// Run is one translation run over an extracted corpus directory.
type Run struct {
	ID             string    `json:"id"`
	CorpusDir      string    `json:"corpus_dir"`
	TargetLanguage string    `json:"target_language"`
	Status         RunStatus `json:"status"`
	Done           int       `json:"done"`
	Total          int       `json:"total"`
	Error          string    `json:"error,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// BatchFailure records a provider batch that fell back to source text.
type BatchFailure struct {
	ID         int64     `json:"id"`
	RunID      string    `json:"run_id"`
	ChunkFile  string    `json:"chunk_file"`
	StartIndex int       `json:"start_index"`
	EndIndex   int       `json:"end_index"`
	Cause      string    `json:"cause"`
	CreatedAt  time.Time `json:"created_at"`
}

// FidelityCheck records one back-translation measurement for human review.
type FidelityCheck struct {
	ID            int64     `json:"id"`
	RunID         string    `json:"run_id"`
	ChunkFile     string    `json:"chunk_file"`
	GlobalIndex   int       `json:"global_index"`
	BackText      string    `json:"back_text"`
	Score         float64   `json:"score"`
	LowConfidence bool      `json:"low_confidence"`
	CreatedAt     time.Time `json:"created_at"`
}
