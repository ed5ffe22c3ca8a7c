package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/mistward/fmgtrans/internal/fidelity"
	"github.com/mistward/fmgtrans/pkg/log"
)

const backCheckFile = "back_checks.json"

// backCheckLog mirrors fidelity records into back_checks.json next to the
// output chunks, keyed by chunk file name. Append-only under a lock.
type backCheckLog struct {
	path string

	mu      sync.Mutex
	entries map[string][]fidelity.Record
}

func newBackCheckLog(dir string) *backCheckLog {
	l := &backCheckLog{
		path:    filepath.Join(dir, backCheckFile),
		entries: make(map[string][]fidelity.Record),
	}
	// Carry over records from an earlier partial run of the same corpus.
	if data, err := os.ReadFile(l.path); err == nil {
		if err := json.Unmarshal(data, &l.entries); err != nil {
			log.Warn("ignoring unreadable %s: %v", backCheckFile, err)
			l.entries = make(map[string][]fidelity.Record)
		}
	}
	return l
}

func (l *backCheckLog) RecordFailure(string, int, int, error) {}

func (l *backCheckLog) RecordFidelity(chunkFile string, recs []fidelity.Record) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries[chunkFile] = append(l.entries[chunkFile], recs...)
	data, err := json.MarshalIndent(l.entries, "", "  ")
	if err != nil {
		log.Error("encode %s: %v", backCheckFile, err)
		return
	}
	if err := os.WriteFile(l.path, data, 0644); err != nil {
		log.Error("write %s: %v", backCheckFile, err)
	}
}
