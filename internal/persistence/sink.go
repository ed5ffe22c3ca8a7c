package persistence

import (
	"context"

	"github.com/mistward/fmgtrans/internal/fidelity"
	"github.com/mistward/fmgtrans/pkg/log"
)

// RunSink adapts the store to the pipeline's diagnostic sink for one run.
// Write errors are logged and swallowed; diagnostics must never take the
// pipeline down.
type RunSink struct {
	store   *SQLiteStore
	runID   string
	checker fidelity.Checker
}

func NewRunSink(store *SQLiteStore, runID string, checker fidelity.Checker) *RunSink {
	return &RunSink{store: store, runID: runID, checker: checker}
}

func (s *RunSink) RecordFailure(chunkFile string, start, end int, cause error) {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	err := s.store.AddBatchFailure(context.Background(), &BatchFailure{
		RunID:      s.runID,
		ChunkFile:  chunkFile,
		StartIndex: start,
		EndIndex:   end,
		Cause:      msg,
	})
	if err != nil {
		log.Error("record batch failure for run %s: %v", s.runID, err)
	}
}

func (s *RunSink) RecordFidelity(chunkFile string, recs []fidelity.Record) {
	checks := make([]*FidelityCheck, 0, len(recs))
	for _, r := range recs {
		checks = append(checks, &FidelityCheck{
			RunID:         s.runID,
			ChunkFile:     chunkFile,
			GlobalIndex:   r.GlobalIndex,
			BackText:      r.BackText,
			Score:         r.Score,
			LowConfidence: s.checker.Low(r.Score),
		})
	}
	if err := s.store.AddFidelityChecks(context.Background(), checks); err != nil {
		log.Error("record fidelity checks for run %s: %v", s.runID, err)
	}
}
