// Package upload drives a single audio file through selection, submission
// and result. Every transition goes through Reduce under one lock, and at
// most one transcription request is in flight at a time.
//
// Selecting a new file while a request is in flight cancels that request
// and its late result is dropped, so a stale transcript can never replace a
// newer selection.
package upload

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/alkime/scribe/internal/audio"
	"github.com/alkime/scribe/pkg/channels"
)

const subscriberTimeout = time.Second

// Transcriber turns an audio file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, file audio.File) (string, error)
}

// Workflow owns the selected file and the submission lifecycle.
type Workflow struct {
	transcriber Transcriber
	logger      *slog.Logger

	mu          sync.Mutex
	state       State
	gen         uint64
	cancel      context.CancelFunc
	broadcaster *channels.Broadcaster[State]
	updates     chan<- State
	unpublished int

	inflight sync.WaitGroup
}

// Option configures a Workflow.
type Option func(*Workflow)

// WithLogger sets the workflow logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Workflow) {
		w.logger = logger
	}
}

// New creates an idle workflow that submits through t.
func New(t Transcriber, opts ...Option) *Workflow {
	w := &Workflow{
		transcriber: t,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Observe delivers every subsequent snapshot, starting with the current
// one, to each subscriber until ctx is done. Subscribers are given up to
// a second to accept each snapshot; State stays authoritative when one is
// missed. It may be called once per workflow.
func (w *Workflow) Observe(ctx context.Context, subscribers ...chan<- State) error {
	bc := channels.NewBroadcaster[State]()
	for _, sub := range subscribers {
		if err := bc.SubscribeWithTimeout(sub, subscriberTimeout); err != nil {
			return err
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.broadcaster != nil {
		return errors.New("workflow is already observed")
	}

	// the broadcaster closes its input only after publishing has stopped
	runCtx, stop := context.WithCancel(context.WithoutCancel(ctx))

	input, err := bc.Run(runCtx)
	if err != nil {
		stop()
		return err
	}

	w.broadcaster = bc
	w.updates = input
	w.publish()

	go w.endObservation(ctx, bc, stop)

	return nil
}

// Observing reports whether snapshots are still being published.
func (w *Workflow) Observing() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.updates != nil
}

// ObserverStats reports per-subscriber delivery health in subscription
// order, or nil when the workflow was never observed.
func (w *Workflow) ObserverStats() []channels.SubscriberStats {
	w.mu.Lock()
	bc := w.broadcaster
	w.mu.Unlock()

	if bc == nil {
		return nil
	}

	return bc.Stats()
}

func (w *Workflow) endObservation(ctx context.Context, bc *channels.Broadcaster[State], stop context.CancelFunc) {
	<-ctx.Done()

	w.mu.Lock()
	w.updates = nil
	unpublished := w.unpublished
	w.mu.Unlock()

	stop()
	bc.Wait()

	for i, stats := range bc.Stats() {
		if stats.Dropped > 0 || stats.Inactive {
			w.logger.Warn("Observer missed snapshots",
				"subscriber", i,
				"dropped", stats.Dropped,
				"inactive", stats.Inactive,
			)
		}
	}

	if unpublished > 0 {
		w.logger.Warn("Snapshots were not published", "count", unpublished)
	}
}

// State returns the current snapshot.
func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.state
}

// SelectFile makes f the selected file and moves to Ready, clearing any
// transcript or error. An in-flight request is cancelled and its result
// discarded.
func (w *Workflow) SelectFile(f audio.File) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state.Status == StatusSubmitting {
		w.logger.Debug("Discarding in-flight transcription for new selection",
			"previous", w.state.FileName(),
			"next", f.Name,
		)
		w.abandon()
	}

	w.apply(FileSelected{File: f})
}

// Submit starts transcribing the selected file. With no file selected it
// returns ErrNoFileSelected and makes no request. While a request is
// already in flight it does nothing. The request runs on its own goroutine
// and is bound to ctx.
func (w *Workflow) Submit(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.state.HasFile {
		w.apply(SubmitRejected{Err: ErrNoFileSelected})
		return ErrNoFileSelected
	}

	if w.state.Status == StatusSubmitting {
		w.logger.Debug("Ignoring submit while a transcription is in flight", "file", w.state.FileName())
		return nil
	}

	w.gen++
	gen := w.gen
	file := w.state.File

	reqCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.apply(SubmitStarted{})

	w.logger.Info("Submitting for transcription",
		"file", file.Name,
		"media_type", file.MediaType,
		"bytes", file.Size,
	)

	w.inflight.Go(func() {
		defer cancel()

		text, err := w.transcriber.Transcribe(reqCtx, file)
		w.complete(gen, text, err)
	})

	return nil
}

// Cancel abandons the in-flight request, if any, and returns to Ready.
func (w *Workflow) Cancel() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state.Status != StatusSubmitting {
		return
	}

	w.logger.Info("Transcription cancelled", "file", w.state.FileName())
	w.abandon()
	w.apply(SubmitCancelled{})
}

// Wait blocks until no submission goroutine is running.
func (w *Workflow) Wait() {
	w.inflight.Wait()
}

func (w *Workflow) complete(gen uint64, text string, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if gen != w.gen || w.state.Status != StatusSubmitting {
		w.logger.Debug("Dropping stale transcription result", "generation", gen)
		return
	}

	w.cancel = nil

	if err != nil {
		w.logger.Error("Transcription failed", "file", w.state.FileName(), "error", err)
		w.apply(TranscriptionFailed{Err: err})

		return
	}

	w.logger.Info("Transcription complete", "file", w.state.FileName(), "chars", len(text))
	w.apply(TranscriptionSucceeded{Transcript: text})
}

// abandon cancels the in-flight request and invalidates its generation.
// Callers hold mu.
func (w *Workflow) abandon() {
	w.gen++
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
}

// apply runs Reduce and publishes the result. Callers hold mu.
func (w *Workflow) apply(ev Event) {
	w.state = Reduce(w.state, ev)
	w.publish()
}

// publish hands the snapshot to the broadcaster without waiting, so mu is
// never held on a slow subscriber. Callers hold mu.
func (w *Workflow) publish() {
	if w.updates == nil {
		return
	}

	if err := channels.SendNonBlock(w.updates, w.state); err != nil {
		w.unpublished++
		w.logger.Debug("Snapshot not published", "status", w.state.Status, "error", err)
	}
}
