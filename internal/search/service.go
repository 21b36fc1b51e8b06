// Package search orchestrates one performer search: run the agent under a
// deadline, validate its answer, then expire and insert records.
package search

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/jonathan/showstart-scout/internal/agent"
	"github.com/jonathan/showstart-scout/internal/db"
	"github.com/jonathan/showstart-scout/internal/listings"
	"github.com/jonathan/showstart-scout/internal/types"
)

// DefaultMaxConcurrent bounds detached searches when Options leaves it unset.
const DefaultMaxConcurrent = 2

// Options configures a Service.
type Options struct {
	Agent agent.Agent
	Store db.Store
	// SearchURL is the site's keyword search page. Defaults to DefaultSearchURL.
	SearchURL string
	// MaxConcurrent bounds detached searches started by Submit.
	MaxConcurrent int64
	Clock         func() time.Time
	Verbose       bool
}

// Service runs searches. It is safe for concurrent use.
type Service struct {
	agent     agent.Agent
	store     db.Store
	searchURL string
	clock     func() time.Time
	verbose   bool

	locks *keyedMutex
	sem   *semaphore.Weighted

	mu      sync.Mutex
	wg      sync.WaitGroup
	closing atomic.Bool
	baseCtx context.Context
	cancel  context.CancelFunc
}

// New creates a Service. Missing dependencies are reported by Ready, not here.
func New(opts Options) *Service {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = DefaultMaxConcurrent
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.SearchURL == "" {
		opts.SearchURL = DefaultSearchURL
	}

	baseCtx, cancel := context.WithCancel(context.Background())
	return &Service{
		agent:     opts.Agent,
		store:     opts.Store,
		searchURL: opts.SearchURL,
		clock:     opts.Clock,
		verbose:   opts.Verbose,
		locks:     newKeyedMutex(),
		sem:       semaphore.NewWeighted(opts.MaxConcurrent),
		baseCtx:   baseCtx,
		cancel:    cancel,
	}
}

// Ready reports ErrServiceUnavailable when the agent or store is missing or the service is closing.
func (s *Service) Ready() error {
	if err := s.configured(); err != nil {
		return err
	}
	if s.closing.Load() {
		return fmt.Errorf("%w: shutting down", ErrServiceUnavailable)
	}
	return nil
}

func (s *Service) configured() error {
	if s == nil || s.agent == nil || s.store == nil {
		return ErrServiceUnavailable
	}
	return nil
}

type runResult struct {
	result *agent.Result
	err    error
}

// Search runs one search and always returns a well-formed outcome.
// A timeout of zero waits for the agent to finish.
func (s *Service) Search(ctx context.Context, rapperName string, timeout time.Duration) *types.SearchOutcome {
	rapperName = strings.TrimSpace(rapperName)
	started := s.clock()
	outcome := &types.SearchOutcome{
		RapperName:   rapperName,
		Performances: []types.PerformanceListing{},
		SearchTime:   started,
	}

	// Detached searches queued before Close still run, so only dependencies are checked here.
	if err := s.configured(); err != nil {
		return outcome.Fail(err.Error())
	}
	if rapperName == "" {
		return outcome.Fail(ErrInvalidRequest.Error())
	}

	directive, err := BuildDirective(s.searchURL, rapperName)
	if err != nil {
		return outcome.Fail(fmt.Sprintf("failed to build directive: %v", err))
	}

	runCtx, cancel := context.WithCancel(ctx)
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	log.Printf("[search] Starting search for %q (timeout %s)", rapperName, timeout)
	start := time.Now()

	// Buffered so an abandoned run can still deliver and exit.
	done := make(chan runResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- runResult{err: fmt.Errorf("agent panicked: %v", r)}
			}
		}()
		res, err := s.agent.Run(runCtx, directive)
		done <- runResult{result: res, err: err}
	}()

	var run runResult
	select {
	case run = <-done:
	case <-runCtx.Done():
		run = runResult{err: runCtx.Err()}
	}
	elapsed := time.Since(start)

	if run.err != nil && errors.Is(run.err, context.DeadlineExceeded) && timeout > 0 {
		log.Printf("[search] Search for %q timed out after %s", rapperName, timeout)
		seconds := wholeSeconds(timeout)
		outcome.ExecutionStats = types.ExecutionStats{
			DurationSeconds: elapsed.Seconds(),
			Timeout:         true,
			TimeoutSeconds:  seconds,
		}
		return outcome.Fail(fmt.Errorf("%w after %d seconds", ErrAgentTimeout, seconds).Error())
	}

	outcome.ExecutionStats = foldStats(run.result, elapsed)
	if run.err != nil {
		log.Printf("[search] Agent failed for %q: %v", rapperName, run.err)
		outcome.ExecutionStats.Errors = append(outcome.ExecutionStats.Errors, run.err.Error())
		return outcome.Fail(fmt.Sprintf("agent run failed: %v", run.err))
	}
	if run.result == nil {
		log.Printf("[search] Agent for %q returned no result", rapperName)
		return outcome.Fail(ErrNoResult.Error())
	}

	found, err := listings.Validate(run.result.FinalText)
	if err != nil {
		log.Printf("[search] Agent result for %q rejected: %v", rapperName, err)
		return outcome.Fail(err.Error())
	}

	// The agent's work is done; persist even if the caller has gone away.
	outcome.Persistence = s.persist(context.WithoutCancel(ctx), rapperName, found)
	outcome.Success = true
	outcome.Performances = found
	outcome.TotalCount = len(found)

	log.Printf("[search] Search for %q finished: %d performances, %d inserted, %d failed",
		rapperName, len(found), outcome.Persistence.Inserted, outcome.Persistence.Failed)
	return outcome
}

// wholeSeconds rounds d up to whole seconds.
func wholeSeconds(d time.Duration) int {
	return int((d + time.Second - 1) / time.Second)
}

// foldStats copies agent statistics, dropping nil step errors.
func foldStats(res *agent.Result, elapsed time.Duration) types.ExecutionStats {
	stats := types.ExecutionStats{DurationSeconds: elapsed.Seconds()}
	if res == nil {
		return stats
	}
	stats.TotalSteps = res.Stats.Steps
	stats.IsDone = res.Stats.Done
	stats.IsSuccessful = res.Stats.Successful
	if res.Stats.Duration > 0 {
		stats.DurationSeconds = res.Stats.Duration.Seconds()
	}
	for _, err := range res.Stats.Errors {
		if err != nil {
			stats.Errors = append(stats.Errors, err.Error())
		}
	}
	return stats
}

// persist expires the performer's past rows then inserts the new ones.
// Cleanup and insert failures are logged and counted, never returned.
func (s *Service) persist(ctx context.Context, rapperName string, found []types.PerformanceListing) *types.PersistenceStats {
	unlock := s.locks.Lock(rapperName)
	defer unlock()

	stats := &types.PersistenceStats{}

	expired, err := s.store.ExpirePast(ctx, rapperName)
	if err != nil {
		log.Printf("[search] Cleanup of past performances for %q failed: %v", rapperName, err)
		stats.CleanupError = err.Error()
	} else {
		stats.Expired = expired
		if s.verbose && expired > 0 {
			log.Printf("[search] Expired %d past performances for %q", expired, rapperName)
		}
	}

	now := s.clock()
	for i, listing := range found {
		record := NewRecord(rapperName, listing, now)
		if record.DateFallback {
			stats.DateFallbacks++
			log.Printf("[search] Could not parse date %q for %q, using today", listing.Date, rapperName)
		}

		n, err := s.store.Insert(ctx, &record)
		if err != nil {
			stats.Failed++
			log.Printf("[search] Insert %d/%d for %q failed: %v", i+1, len(found), rapperName, err)
			continue
		}
		stats.Inserted += n
	}
	return stats
}

// Submit starts a detached search and returns its task id immediately.
// Results and failures go to the log only.
func (s *Service) Submit(rapperName string, timeout time.Duration) (string, error) {
	rapperName = strings.TrimSpace(rapperName)
	if rapperName == "" {
		return "", ErrInvalidRequest
	}

	s.mu.Lock()
	if err := s.Ready(); err != nil {
		s.mu.Unlock()
		return "", err
	}
	taskID := uuid.New().String()
	s.wg.Add(1)
	s.mu.Unlock()

	go s.runDetached(taskID, rapperName, timeout)

	log.Printf("[search] Accepted task %s for %q", taskID, rapperName)
	return taskID, nil
}

func (s *Service) runDetached(taskID, rapperName string, timeout time.Duration) {
	defer s.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[search] Task %s panicked: %v", taskID, r)
		}
	}()

	if err := s.sem.Acquire(s.baseCtx, 1); err != nil {
		log.Printf("[search] Task %s dropped before start: %v", taskID, err)
		return
	}
	defer s.sem.Release(1)

	outcome := s.Search(s.baseCtx, rapperName, timeout)
	if !outcome.Success {
		msg := ""
		if outcome.ErrorMessage != nil {
			msg = *outcome.ErrorMessage
		}
		log.Printf("[search] Task %s for %q failed: %s", taskID, rapperName, msg)
		return
	}
	log.Printf("[search] Task %s for %q completed with %d performances", taskID, rapperName, outcome.TotalCount)
}

// Close stops accepting submissions and waits for detached searches.
// When ctx ends first, running searches are cancelled and ctx's error is returned.
func (s *Service) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closing.Store(true)
	s.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		<-drained
		return ctx.Err()
	}
}
