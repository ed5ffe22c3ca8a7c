package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/mistward/fmgtrans/internal/chunk"
	"github.com/mistward/fmgtrans/pkg/file"
	"github.com/mistward/fmgtrans/pkg/log"
)

// Watcher periodically scans a directory for extracted corpora that have no
// complete translated counterpart yet and queues them on the runner.
type Watcher struct {
	runner   *Runner
	dir      string
	cronExpr string

	cron *cron.Cron
	mu   sync.Mutex // serializes scans
}

func NewWatcher(runner *Runner, dir, cronExpr string) *Watcher {
	return &Watcher{
		runner:   runner,
		dir:      dir,
		cronExpr: cronExpr,
	}
}

func (w *Watcher) CronExpr() string { return w.cronExpr }

// Start schedules the scan. The first scan runs on the first tick, not
// immediately; call Scan for an eager pass.
func (w *Watcher) Start() error {
	w.cron = cron.New()
	if _, err := w.cron.AddFunc(w.cronExpr, w.Scan); err != nil {
		return err
	}
	w.cron.Start()
	log.Info("watching %s on schedule %q", w.dir, w.cronExpr)
	return nil
}

func (w *Watcher) Stop() context.Context {
	if w.cron == nil {
		return context.Background()
	}
	return w.cron.Stop()
}

// Scan walks the watch directory once.
func (w *Watcher) Scan() {
	w.mu.Lock()
	defer w.mu.Unlock()

	entries, err := os.ReadDir(w.dir)
	if err != nil {
		log.Error("scan %s: %v", w.dir, err)
		return
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		// Output directories live next to their sources; never re-translate
		// a translation.
		if strings.HasSuffix(entry.Name(), "_translated") {
			continue
		}
		folder := filepath.Join(w.dir, entry.Name())
		if !needsTranslation(folder) {
			continue
		}
		handle, err := w.runner.Start(context.Background(), folder)
		if err != nil {
			log.Warn("skipping %s: %v", folder, err)
			continue
		}
		log.Info("queued %s as %s", folder, handle.ID)
	}
}

// needsTranslation reports whether folder is an extracted corpus whose
// translated counterpart is absent or incomplete.
func needsTranslation(folder string) bool {
	if _, err := chunk.Open(folder); err != nil {
		return false
	}

	out, err := chunk.Open(file.TranslatedDir(folder))
	if err != nil {
		return true
	}
	for i := 0; i < out.ChunkCount(); i++ {
		if _, err := os.Stat(filepath.Join(out.Dir(), chunk.PartName(i))); err != nil {
			return true
		}
	}
	return false
}
