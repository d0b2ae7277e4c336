// Package checker drives samples through a graph of states, each served by
// a pool of workers, and counts the samples that failed a check on the way.
package checker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrNotInitialized = errors.New("not initialized")
	ErrStateNotFound  = errors.New("state not found")
)

// Sample is the unit of work. State names the state that handles it next;
// an empty State completes the sample.
type Sample struct {
	State string
	Data  any
}

func (s Sample) String() string {
	return fmt.Sprintf("(%s) %v", s.State, s.Data)
}

type DoFunc func(ctx context.Context, in Sample) (Sample, error)
type CheckFunc func(before, after Sample) error
type SourceFunc func(ctx context.Context) (Sample, error)

type State struct {
	ID      string
	Workers int

	doFunc    DoFunc
	checkFunc CheckFunc
	in        chan Sample

	sugar *zap.SugaredLogger
}

func NewState(id string, workers int, logger *zap.Logger) *State {
	if workers < 1 {
		workers = 1
	}
	return &State{
		ID:      id,
		Workers: workers,
		sugar:   logger.Sugar(),
		in:      make(chan Sample, 4*workers),
	}
}

func (s *State) String() string {
	return fmt.Sprintf("%s workers=%d", s.ID, s.Workers)
}

func (s *State) SetDoFunc(f DoFunc) {
	s.doFunc = f
}

func (s *State) SetCheckFunc(f CheckFunc) {
	s.checkFunc = f
}

// Stats counts samples by outcome.
type Stats struct {
	Started   uint64
	Completed uint64
	Failures  uint64
}

type Supervisor struct {
	states map[string]*State
	source SourceFunc

	started   atomic.Uint64
	completed atomic.Uint64
	failures  atomic.Uint64

	sugar *zap.SugaredLogger
}

func NewSupervisor(logger *zap.Logger) *Supervisor {
	return &Supervisor{
		states: make(map[string]*State),
		sugar:  logger.Sugar(),
	}
}

// Add registers s. It must be called before Run.
func (sv *Supervisor) Add(s *State) error {
	if s == nil {
		return errors.New("state is nil")
	}
	if _, ok := sv.states[s.ID]; ok {
		return fmt.Errorf("state %s already added", s.ID)
	}

	sv.states[s.ID] = s
	sv.sugar.Infof("added %v", s)
	return nil
}

func (sv *Supervisor) SetSourceFunc(f SourceFunc) {
	sv.source = f
}

func (sv *Supervisor) Stats() Stats {
	return Stats{
		Started:   sv.started.Load(),
		Completed: sv.completed.Load(),
		Failures:  sv.failures.Load(),
	}
}

// Run feeds samples from the source until ctx is done. It returns the
// first source error, or nil once every worker has stopped.
func (sv *Supervisor) Run(ctx context.Context) error {
	if sv.source == nil || len(sv.states) == 0 {
		return ErrNotInitialized
	}
	for id, state := range sv.states {
		if state.doFunc == nil {
			return fmt.Errorf("%w: state %s has no do func", ErrNotInitialized, id)
		}
	}

	sv.sugar.Infoln("starting ...")
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return sv.feed(gctx)
	})
	for _, state := range sv.states {
		state := state
		for i := 0; i < state.Workers; i++ {
			g.Go(func() error {
				sv.work(gctx, state)
				return nil
			})
		}
		sv.sugar.Infof("%v started", state)
	}

	err := g.Wait()
	sv.sugar.Infow("all workers stopped", "stats", sv.Stats())
	return err
}

func (sv *Supervisor) feed(ctx context.Context) error {
	for {
		sample, err := sv.source(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return fmt.Errorf("source: %w", err)
		}

		sv.started.Add(1)
		if err := sv.route(ctx, sample); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

// route hands sample to its next state, blocking until there is room.
func (sv *Supervisor) route(ctx context.Context, sample Sample) error {
	if sample.State == "" {
		sv.completed.Add(1)
		return nil
	}

	state, ok := sv.states[sample.State]
	if !ok {
		return fmt.Errorf("%w: %s", ErrStateNotFound, sample.State)
	}

	select {
	case state.in <- sample:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (sv *Supervisor) work(ctx context.Context, s *State) {
	for {
		select {
		case <-ctx.Done():
			s.sugar.Debugw("worker done", "state", s.ID)
			return
		case before := <-s.in:
			after, err := s.doFunc(ctx, before)
			if ctx.Err() != nil {
				return
			}
			if err == nil && s.checkFunc != nil {
				err = s.checkFunc(before, after)
			}
			if err != nil {
				sv.failures.Add(1)
				s.sugar.Errorw("sample failed", "state", s.ID, "sample", before, "error", err)
				continue
			}

			if err := sv.route(ctx, after); err != nil {
				if ctx.Err() != nil {
					return
				}
				sv.failures.Add(1)
				s.sugar.Errorw("route", "state", s.ID, "error", err)
			}
		}
	}
}

// Every emits samples for the entry states in turn, one per interval.
// A zero interval emits as fast as the states consume them.
func Every(interval time.Duration, entries ...string) SourceFunc {
	var next atomic.Uint64
	return func(ctx context.Context) (Sample, error) {
		if len(entries) == 0 {
			return Sample{}, ErrNotInitialized
		}
		if interval > 0 {
			t := time.NewTimer(interval)
			defer t.Stop()
			select {
			case <-t.C:
			case <-ctx.Done():
				return Sample{}, ctx.Err()
			}
		}
		i := next.Add(1) - 1
		return Sample{State: entries[i%uint64(len(entries))]}, nil
	}
}
