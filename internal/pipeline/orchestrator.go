// Package pipeline composes the acquisition and computation stages and
// tracks where the pipeline stands between them.
package pipeline

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"plafond/internal/cache"
	"plafond/internal/compute"
	"plafond/internal/domain"
)

// State is how far the pipeline has progressed.
type State int

const (
	// StateUninitialized means no cache exists; run cannot start.
	StateUninitialized State = iota
	// StateDownloaded means a cache generation is in place.
	StateDownloaded
	// StateComputed means at least one run has produced results from
	// the current process.
	StateComputed
)

func (s State) String() string {
	switch s {
	case StateDownloaded:
		return "DOWNLOADED"
	case StateComputed:
		return "COMPUTED"
	default:
		return "UNINITIALIZED"
	}
}

// ProbeState derives the on-disk pipeline state from the cache path.
// A cache that exists but cannot be opened still counts as downloaded;
// the next run surfaces the real error.
func ProbeState(cachePath string) State {
	store, err := cache.Open(cachePath)
	if err == nil {
		store.Close()
		return StateDownloaded
	}

	var missing *domain.CacheMissingError
	if errors.As(err, &missing) {
		return StateUninitialized
	}
	return StateDownloaded
}

// Downloader is the acquisition stage as the orchestrator sees it.
type Downloader interface {
	Download(ctx context.Context) (domain.CacheWriteOutcome, error)
}

// Orchestrator sequences download and run. The two stages share
// nothing but the cache file, so each run opens its own read-only
// view; a download swapping the file mid-run cannot corrupt a reader.
type Orchestrator struct {
	downloader Downloader
	cachePath  string
	baseLog    zerolog.Logger
	log        zerolog.Logger

	mu    sync.Mutex
	state State
}

// New creates an orchestrator. The initial state is probed from disk,
// so a cache produced by an earlier process counts as downloaded.
func New(downloader Downloader, cachePath string, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		downloader: downloader,
		cachePath:  cachePath,
		baseLog:    log,
		log:        log.With().Str("component", "pipeline").Logger(),
		state:      ProbeState(cachePath),
	}
}

// State reports the current pipeline state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) transition(next State) {
	o.mu.Lock()
	prev := o.state
	o.state = next
	o.mu.Unlock()

	if prev != next {
		o.log.Debug().Stringer("from", prev).Stringer("to", next).Msg("Pipeline state changed")
	}
}

// Download runs the acquisition stage. On success the pipeline is in
// the downloaded state, whatever it was before; results computed from
// an older generation are considered stale.
func (o *Orchestrator) Download(ctx context.Context) (domain.CacheWriteOutcome, error) {
	outcome, err := o.downloader.Download(ctx)
	if err != nil {
		return outcome, err
	}

	o.transition(StateDownloaded)
	return outcome, nil
}

// Run computes ceilings for the targets from the current cache
// generation. Without a cache it fails fast with *CacheMissingError
// before any computation starts.
func (o *Orchestrator) Run(ctx context.Context, targets []domain.RequestTarget) ([]domain.CeilingResult, error) {
	store, err := cache.Open(o.cachePath)
	if err != nil {
		var missing *domain.CacheMissingError
		if errors.As(err, &missing) {
			o.transition(StateUninitialized)
		}
		return nil, err
	}
	defer store.Close()

	results, err := compute.NewService(store, o.baseLog).Run(ctx, targets)
	if err != nil {
		return nil, err
	}

	o.transition(StateComputed)
	return results, nil
}
