package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mistward/fmgtrans/internal/chunk"
	"github.com/mistward/fmgtrans/internal/config"
	"github.com/mistward/fmgtrans/internal/fidelity"
	"github.com/mistward/fmgtrans/internal/llm"
	"github.com/mistward/fmgtrans/internal/persistence"
	"github.com/mistward/fmgtrans/internal/pipeline"
	"github.com/mistward/fmgtrans/internal/provider"
	"github.com/mistward/fmgtrans/pkg/log"
)

// persistEvery bounds how often a running session's progress is written
// back to the run store.
const persistEvery = 2 * time.Second

// Handle tracks one live translation session.
type Handle struct {
	ID      string
	Folder  string
	Session *pipeline.Session

	done chan struct{}

	mu  sync.Mutex
	err error
}

// Done is closed when the session's Run has returned.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Err returns the session error, if any, once Done is closed.
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// Runner owns live sessions and their run records. The presentation layers
// (CLI, HTTP) only ever talk to the Runner; sessions know nothing about
// either.
type Runner struct {
	cfg     *config.Config
	store   *persistence.SQLiteStore // optional
	factory func() (provider.Translator, error)

	mu      sync.Mutex
	seq     uint64
	handles map[string]*Handle
	active  map[string]string // folder -> run ID
}

type RunnerOption func(*Runner)

// WithTranslatorFactory overrides how the runner builds its provider.
// Used by tests and embedders.
func WithTranslatorFactory(f func() (provider.Translator, error)) RunnerOption {
	return func(r *Runner) { r.factory = f }
}

func NewRunner(cfg *config.Config, store *persistence.SQLiteStore, opts ...RunnerOption) *Runner {
	r := &Runner{
		cfg:     cfg,
		store:   store,
		handles: make(map[string]*Handle),
		active:  make(map[string]string),
	}
	r.factory = r.newConfiguredTranslator
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewTranslator builds the provider the runner will hand to sessions.
func (r *Runner) NewTranslator() (provider.Translator, error) {
	return r.factory()
}

func (r *Runner) newConfiguredTranslator() (provider.Translator, error) {
	switch r.cfg.Translate.Provider {
	case config.ProviderGoogle:
		return provider.NewGoogle(r.cfg.Translate.BackLanguage), nil
	case config.ProviderOpenAI:
		return provider.NewOpenAI(&llm.Config{
			APIKey:      r.cfg.LLM.APIKey,
			APIURL:      r.cfg.LLM.APIURL,
			Model:       r.cfg.LLM.Model,
			MaxTokens:   r.cfg.LLM.MaxTokens,
			Temperature: r.cfg.LLM.Temperature,
			Timeout:     r.cfg.LLM.Timeout,
		}, r.cfg.Translate.BackLanguage)
	default:
		return nil, fmt.Errorf("unknown provider %q", r.cfg.Translate.Provider)
	}
}

// Start opens the chunk directory and launches a translation session over
// it. A folder can only have one live session at a time.
func (r *Runner) Start(ctx context.Context, folder string) (*Handle, error) {
	r.mu.Lock()
	if id, busy := r.active[folder]; busy {
		r.mu.Unlock()
		return nil, fmt.Errorf("folder %s is already being translated by run %s", folder, id)
	}
	r.seq++
	id := fmt.Sprintf("run-%d", r.seq)
	r.active[folder] = id
	r.mu.Unlock()

	store, err := chunk.Open(folder)
	if err != nil {
		r.release(folder)
		return nil, err
	}
	translator, err := r.NewTranslator()
	if err != nil {
		r.release(folder)
		return nil, err
	}

	opts := r.cfg.PipelineOptions()
	var sinks []pipeline.Sink
	if r.store != nil {
		sinks = append(sinks, persistence.NewRunSink(r.store, id, fidelity.NewChecker(opts.FidelityThreshold)))
	}

	session := pipeline.New(store, translator, opts, sinks...)
	handle := &Handle{
		ID:      id,
		Folder:  folder,
		Session: session,
		done:    make(chan struct{}),
	}

	total := store.Header().Meta.TotalEntries
	r.persistCreate(ctx, handle, total)

	r.mu.Lock()
	r.handles[id] = handle
	r.mu.Unlock()

	go r.run(handle)
	return handle, nil
}

func (r *Runner) run(h *Handle) {
	defer close(h.done)
	defer r.release(h.Folder)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var stopPersist atomic.Bool
	go func() {
		for !stopPersist.Load() {
			time.Sleep(persistEvery)
			r.persistProgress(ctx, h, persistence.RunRunning, "")
		}
	}()

	err := h.Session.Run(ctx)
	stopPersist.Store(true)

	h.mu.Lock()
	h.err = err
	h.mu.Unlock()

	status := persistence.RunFinished
	errMsg := ""
	switch {
	case err != nil:
		status = persistence.RunFailed
		errMsg = err.Error()
		log.Error("run %s failed: %v", h.ID, err)
	case h.Session.Stopping():
		status = persistence.RunStopped
	}
	r.persistProgress(context.Background(), h, status, errMsg)
}

func (r *Runner) release(folder string) {
	r.mu.Lock()
	delete(r.active, folder)
	r.mu.Unlock()
}

// Get returns a live handle by run ID.
func (r *Runner) Get(id string) (*Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handles[id]
	return h, ok
}

// List returns live handles ordered by run ID.
func (r *Runner) List() []*Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	handles := make([]*Handle, 0, len(r.handles))
	for _, h := range r.handles {
		handles = append(handles, h)
	}
	sort.Slice(handles, func(i, j int) bool { return handles[i].ID < handles[j].ID })
	return handles
}

func (r *Runner) persistCreate(ctx context.Context, h *Handle, total int) {
	if r.store == nil {
		return
	}
	err := r.store.CreateRun(ctx, &persistence.Run{
		ID:             h.ID,
		CorpusDir:      h.Folder,
		TargetLanguage: r.cfg.Translate.TargetLanguage.String(),
		Status:         persistence.RunRunning,
		Total:          total,
	})
	if err != nil {
		log.Error("persist run %s: %v", h.ID, err)
	}
}

func (r *Runner) persistProgress(ctx context.Context, h *Handle, status persistence.RunStatus, errMsg string) {
	if r.store == nil {
		return
	}
	p := h.Session.Progress()
	if err := r.store.UpdateRun(ctx, h.ID, status, p.Done, p.Total, errMsg); err != nil {
		log.Error("persist progress for run %s: %v", h.ID, err)
	}
}
