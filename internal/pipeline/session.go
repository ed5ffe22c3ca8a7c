package pipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"

	"github.com/mistward/fmgtrans/internal/batch"
	"github.com/mistward/fmgtrans/internal/chunk"
	"github.com/mistward/fmgtrans/internal/fidelity"
	"github.com/mistward/fmgtrans/internal/provider"
	"github.com/mistward/fmgtrans/pkg/file"
	"github.com/mistward/fmgtrans/pkg/log"
)

// pausePoll bounds how often a paused worker re-checks the pause and stop
// flags instead of burning CPU.
const pausePoll = 100 * time.Millisecond

// Session owns one translation run over a chunk store: its cancellation and
// pause flags, its progress, and its diagnostic sinks. It knows nothing
// about any presentation layer; callers poll Progress and Status.
type Session struct {
	in         *chunk.Store
	out        *chunk.Store
	translator provider.Translator
	back       provider.BackTranslator
	opts       Options
	checker    fidelity.Checker
	sinks      []Sink

	progress Tracker
	paused   atomic.Bool
	stopCh   chan struct{}
	stopOnce sync.Once

	mu           sync.Mutex
	phase        Phase
	currentChunk int
}

// New creates a session. Back-translation runs only when opts.BackCheck is
// set and the translator also implements provider.BackTranslator.
func New(in *chunk.Store, translator provider.Translator, opts Options, sinks ...Sink) *Session {
	opts.normalize()
	s := &Session{
		in:         in,
		translator: translator,
		opts:       opts,
		checker:    fidelity.NewChecker(opts.FidelityThreshold),
		sinks:      sinks,
		stopCh:     make(chan struct{}),
		phase:      PhaseIdle,
	}
	if opts.BackCheck {
		if back, ok := translator.(provider.BackTranslator); ok {
			s.back = back
		} else {
			log.Warn("back-translation requested but provider does not support it")
		}
	}
	return s
}

// Pause makes workers idle-wait without dequeuing. In-flight provider
// calls are not aborted.
func (s *Session) Pause() { s.paused.Store(true) }

// Resume clears the pause flag.
func (s *Session) Resume() { s.paused.Store(false) }

// Stop requests a graceful shutdown: workers finish their current batch,
// the current chunk is flushed with source text in every untouched slot,
// and remaining chunks are left alone.
func (s *Session) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

func (s *Session) Paused() bool { return s.paused.Load() }

func (s *Session) Stopping() bool {
	select {
	case <-s.stopCh:
		return true
	default:
		return false
	}
}

func (s *Session) Progress() Progress { return s.progress.Snapshot() }

func (s *Session) Status() Status {
	s.mu.Lock()
	phase, current := s.phase, s.currentChunk
	s.mu.Unlock()
	return Status{
		Phase:        phase,
		CurrentChunk: current,
		ChunkCount:   s.in.ChunkCount(),
		Paused:       s.Paused(),
		Stopping:     s.Stopping(),
		Progress:     s.Progress(),
	}
}

// OutputDir returns where translated chunks are flushed.
func (s *Session) OutputDir() string {
	return file.TranslatedDir(s.in.Dir())
}

// Run processes every chunk strictly one at a time, so memory stays
// bounded to a single chunk's entries regardless of corpus size. It
// returns nil on a user stop; only structural failures are errors.
func (s *Session) Run(ctx context.Context) error {
	header := s.in.Header()

	total := 0
	for _, b := range header.Meta.Chunks {
		total += b.Count
	}
	s.progress.SetTotal(total)

	out, err := chunk.Create(s.OutputDir(), header)
	if err != nil {
		return fmt.Errorf("create output store: %w", err)
	}
	s.out = out

	if s.back != nil {
		s.sinks = append(s.sinks, newBackCheckLog(out.Dir()))
	}

	for i := 0; i < s.in.ChunkCount(); i++ {
		if s.Stopping() || ctx.Err() != nil {
			log.Warn("stop requested, leaving chunks %d..%d untranslated", i+1, s.in.ChunkCount())
			break
		}
		if err := s.runChunk(ctx, i); err != nil {
			return err
		}
	}

	s.setPhase(PhaseDone, s.in.ChunkCount())
	if s.Stopping() {
		log.Warn("translation stopped by user, finished chunks were flushed")
	} else {
		log.Info("all chunks processed")
	}
	return nil
}

func (s *Session) runChunk(ctx context.Context, index int) error {
	s.setPhase(PhaseSplitting, index)

	c, err := s.in.ReadChunk(index)
	if err != nil {
		return fmt.Errorf("read chunk %d: %w", index, err)
	}

	// The output buffer is pre-sized and pre-filled with source text, so a
	// failed or never-started batch leaves its range gap-free.
	results := make([]string, c.Count)
	copy(results, c.Texts)

	batches := batch.Split(c.Texts, s.opts.Budget(), s.opts.CharsPerToken)
	queue := make(chan batch.Batch, len(batches))
	for _, b := range batches {
		queue <- b
	}
	close(queue)

	s.setPhase(PhaseDraining, index)

	// Batches partition the chunk's index range disjointly, so workers
	// write into results without locking; only the queue, the progress
	// counters and the sinks are contended.
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < s.opts.Workers; w++ {
		g.Go(func() error {
			return s.worker(gctx, c, queue, results)
		})
	}
	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}

	s.setPhase(PhaseFlushing, index)
	outChunk := &chunk.Chunk{
		Index:     index,
		Start:     c.Start,
		Count:     c.Count,
		Texts:     results,
		Originals: c.Texts,
	}
	if err := s.out.WriteChunk(outChunk); err != nil {
		return fmt.Errorf("flush chunk %d: %w", index, err)
	}
	log.Info("chunk %s done (%d entries)", chunk.PartName(index), c.Count)
	return nil
}

// worker drains batches until the queue is empty or a stop arrives. The
// stop flag is re-checked at dequeue time and again before each provider
// call; an in-flight call is allowed to finish.
func (s *Session) worker(ctx context.Context, c *chunk.Chunk, queue <-chan batch.Batch, results []string) error {
	for {
		if s.Stopping() {
			return nil
		}
		if s.paused.Load() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-s.stopCh:
				return nil
			case <-time.After(pausePoll):
			}
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopCh:
			return nil
		case b, ok := <-queue:
			if !ok {
				return nil
			}
			if s.Stopping() {
				return nil
			}
			s.runBatch(ctx, c, b, results)
			s.progress.Add(b.Len())
		}
	}
}

func (s *Session) runBatch(ctx context.Context, c *chunk.Chunk, b batch.Batch, results []string) {
	part := chunk.PartName(c.Index)

	// Skip rules peel off items that need no provider call; the rest keep
	// their batch-relative positions via subIdx.
	sub := make([]string, 0, b.Len())
	subIdx := make([]int, 0, b.Len())
	for off, text := range b.Texts {
		if s.skip(text) {
			continue
		}
		sub = append(sub, text)
		subIdx = append(subIdx, b.Start+off)
	}
	if len(sub) == 0 {
		return
	}

	translated, err := s.translator.Translate(ctx, sub, s.opts.TargetLanguage, s.opts.Instructions)
	if err == nil && len(translated) != len(sub) {
		err = fmt.Errorf("%w: sent %d texts, got %d", provider.ErrMisaligned, len(sub), len(translated))
	}
	if err != nil {
		// The whole batch falls back to source text; no per-item retry.
		log.Warn("batch %s[%d:%d] failed, keeping source text: %v", part, b.Start, b.End, err)
		s.recordFailure(part, c.Start+b.Start, c.Start+b.End, err)
		return
	}

	for k, t := range translated {
		results[subIdx[k]] = t
	}

	if s.back != nil {
		s.backCheck(ctx, c, part, subIdx, sub, translated)
	}
}

// backCheck scores a round trip through the provider. Failures here are
// advisory only and never touch the translated output.
func (s *Session) backCheck(ctx context.Context, c *chunk.Chunk, part string, subIdx []int, sources, translated []string) {
	backTexts, err := s.back.BackTranslate(ctx, translated)
	if err != nil || len(backTexts) != len(translated) {
		log.Warn("back-translation for %s failed: %v", part, err)
		return
	}

	recs := make([]fidelity.Record, 0, len(backTexts))
	for k, back := range backTexts {
		if back == "" {
			continue
		}
		score := s.checker.Score(sources[k], back)
		globalIndex := c.Start + subIdx[k]
		recs = append(recs, fidelity.Record{GlobalIndex: globalIndex, BackText: back, Score: score})
		if s.checker.Low(score) {
			log.Warn("low back-translation fidelity %s#%d (score=%.2f)", part, globalIndex, score)
		}
	}
	if len(recs) == 0 {
		return
	}
	for _, sink := range s.sinks {
		sink.RecordFidelity(part, recs)
	}
}

func (s *Session) recordFailure(part string, start, end int, cause error) {
	for _, sink := range s.sinks {
		sink.RecordFailure(part, start, end, cause)
	}
}

func (s *Session) skip(text string) bool {
	if s.opts.SkipEmpty && text == "" {
		return true
	}
	if s.opts.SkipTranslated && alreadyInLanguage(text, s.opts.TargetLanguage) {
		return true
	}
	return false
}

// alreadyInLanguage reports whether a text already reads as the target
// language, so re-translating it would be wasted provider budget.
func alreadyInLanguage(text string, target language.Tag) bool {
	if text == "" {
		return false
	}
	base, conf := target.Base()
	if conf == language.No {
		return false
	}
	return whatlanggo.DetectLang(text).Iso6391() == base.String()
}

func (s *Session) setPhase(phase Phase, current int) {
	s.mu.Lock()
	s.phase = phase
	s.currentChunk = current
	s.mu.Unlock()
}
