// Package sync pushes dotenv content to storage backends and pulls it back,
// fanning writes out to every configured backend in parallel.
package sync

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/envkeeper/envkeeper/pkg/dotenv"
	"github.com/envkeeper/envkeeper/pkg/storage"
)

const defaultMaxConcurrent = 4

// Syncer coordinates push, pull, and prune operations across backends.
type Syncer struct {
	logger        zerolog.Logger
	maxConcurrent int
}

// New creates a Syncer. maxConcurrent limits parallel backend writes; zero
// or negative applies the default.
func New(logger zerolog.Logger, maxConcurrent int) *Syncer {
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}
	return &Syncer{logger: logger, maxConcurrent: maxConcurrent}
}

// PushOptions adjusts how an environment is written to the backends.
type PushOptions struct {
	// Write options forwarded to every backend.
	Write storage.WriteOptions

	// Snapshot additionally stores a timestamped copy next to the live
	// object, enabling Prune-managed history.
	Snapshot bool
}

// Push writes content to every backend in parallel and returns one Result
// per backend. A failing backend never hides the results of the others;
// the returned error summarizes how many backends failed.
func (s *Syncer) Push(ctx context.Context, backends []storage.Backend, name string, content []byte, opts PushOptions) ([]storage.Result, error) {
	if len(backends) == 0 {
		s.logger.Warn().Msg("no backends to push to")
		return nil, nil
	}

	s.logger.Info().
		Int("backends", len(backends)).
		Int("max_concurrent", s.maxConcurrent).
		Str("name", name).
		Msg("starting parallel push")

	sem := semaphore.NewWeighted(int64(s.maxConcurrent))
	g, gCtx := errgroup.WithContext(ctx)
	resultsChan := make(chan storage.Result, len(backends))

	snapshotTime := time.Now()

	for _, backend := range backends {
		backend := backend

		g.Go(func() error {
			if err := sem.Acquire(gCtx, 1); err != nil {
				return fmt.Errorf("failed to acquire semaphore: %w", err)
			}
			defer sem.Release(1)

			start := time.Now()

			s.logger.Debug().
				Str("backend", backend.Name()).
				Str("type", backend.Type()).
				Str("name", name).
				Msg("starting push")

			err := backend.Write(gCtx, name, content, opts.Write)
			if err == nil && opts.Snapshot {
				err = backend.Write(gCtx, SnapshotName(name, snapshotTime), content, opts.Write)
			}
			duration := time.Since(start)

			if err != nil {
				s.logger.Error().
					Err(err).
					Str("backend", backend.Name()).
					Dur("duration", duration).
					Msg("push failed")
			} else {
				s.logger.Info().
					Str("backend", backend.Name()).
					Dur("duration", duration).
					Msg("push succeeded")
			}

			resultsChan <- storage.Result{
				BackendName: backend.Name(),
				BackendType: backend.Type(),
				Success:     err == nil,
				Error:       err,
				Duration:    duration,
			}

			// Failures are reported through the Result so one failing
			// backend does not cancel the others
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		close(resultsChan)
		return nil, err
	}
	close(resultsChan)

	var results []storage.Result
	failures := 0
	for result := range resultsChan {
		if !result.Success {
			failures++
		}
		results = append(results, result)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].BackendName < results[j].BackendName
	})

	s.logger.Info().
		Int("successful", len(results)-failures).
		Int("failed", failures).
		Msg("parallel push completed")

	if failures > 0 {
		return results, fmt.Errorf("push failed on %d of %d backends", failures, len(backends))
	}
	return results, nil
}

// Pull downloads an environment from the backend and parses it into a
// DotEnv, exporting its variables to the process environment.
func (s *Syncer) Pull(ctx context.Context, backend storage.Backend, name string) (*dotenv.DotEnv, error) {
	s.logger.Debug().
		Str("backend", backend.Name()).
		Str("name", name).
		Msg("pulling environment")

	content, err := backend.Read(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("pull %s from %s: %w", name, backend.Name(), err)
	}

	d, err := dotenv.Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("parse %s from %s: %w", name, backend.Name(), err)
	}

	s.logger.Info().
		Str("backend", backend.Name()).
		Str("name", name).
		Int("variables", d.Len()).
		Msg("pulled environment")

	return d, nil
}

// Prune deletes the oldest snapshots of an environment, keeping the most
// recent keep snapshots. It returns the object paths that were deleted.
func (s *Syncer) Prune(ctx context.Context, backend storage.Backend, name string, keep int) ([]string, error) {
	if keep < 0 {
		return nil, fmt.Errorf("keep must be non-negative, got %d", keep)
	}

	files, err := backend.List(ctx, SnapshotPattern(name))
	if err != nil {
		return nil, fmt.Errorf("list snapshots of %s on %s: %w", name, backend.Name(), err)
	}

	type snapshot struct {
		path      string
		timestamp time.Time
	}
	var snapshots []snapshot
	for _, file := range files {
		timestamp, err := ParseSnapshotTime(file.Path)
		if err != nil {
			s.logger.Warn().
				Err(err).
				Str("file", file.Path).
				Msg("skipping object with unparseable snapshot name")
			continue
		}
		snapshots = append(snapshots, snapshot{path: file.Path, timestamp: timestamp})
	}

	if len(snapshots) <= keep {
		s.logger.Debug().
			Int("snapshots", len(snapshots)).
			Int("keep", keep).
			Msg("within retention limit, nothing to prune")
		return nil, nil
	}

	// Oldest first; everything beyond the keep newest goes
	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].timestamp.Before(snapshots[j].timestamp)
	})
	toDelete := snapshots[:len(snapshots)-keep]

	var deleted []string
	failures := 0
	for _, snap := range toDelete {
		if err := backend.Delete(ctx, snap.path); err != nil {
			s.logger.Error().
				Err(err).
				Str("file", snap.path).
				Msg("failed to delete snapshot")
			failures++
			continue
		}
		s.logger.Info().
			Str("file", snap.path).
			Time("timestamp", snap.timestamp).
			Msg("deleted snapshot")
		deleted = append(deleted, snap.path)
	}

	if failures > 0 {
		return deleted, fmt.Errorf("failed to delete %d of %d snapshots", failures, len(toDelete))
	}
	return deleted, nil
}
