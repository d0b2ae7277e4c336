package checker

import (
	"context"
	"errors"
	"math/rand/v2"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	createState = "create"
	splitState  = "split"
	road1State  = "road1"
	road2State  = "road2"
)

var (
	once   sync.Once
	logger *zap.Logger
)

func getTestLogger() *zap.Logger {
	once.Do(func() {
		logger = zap.NewNop()
	})
	return logger
}

func check(before, after Sample) error {
	if !reflect.DeepEqual(before.Data, after.Data) {
		return errors.New("data changed")
	}
	return nil
}

func TestSupervisor_Run(t *testing.T) {
	sv := NewSupervisor(getTestLogger())

	var road1, road2 atomic.Uint64

	create := NewState(createState, 2, getTestLogger())
	create.SetDoFunc(func(_ context.Context, in Sample) (Sample, error) {
		return Sample{State: splitState, Data: 101}, nil
	})

	split := NewState(splitState, 2, getTestLogger())
	split.SetCheckFunc(check)
	split.SetDoFunc(func(_ context.Context, in Sample) (Sample, error) {
		in.State = road1State
		if rand.IntN(2) == 0 {
			in.State = road2State
		}
		return in, nil
	})

	r1 := NewState(road1State, 1, getTestLogger())
	r1.SetCheckFunc(check)
	r1.SetDoFunc(func(_ context.Context, in Sample) (Sample, error) {
		road1.Add(1)
		return Sample{Data: in.Data}, nil
	})

	r2 := NewState(road2State, 1, getTestLogger())
	r2.SetCheckFunc(check)
	r2.SetDoFunc(func(_ context.Context, in Sample) (Sample, error) {
		road2.Add(1)
		return Sample{Data: in.Data}, nil
	})

	for _, s := range []*State{create, split, r1, r2} {
		require.NoError(t, sv.Add(s))
	}
	sv.SetSourceFunc(Every(time.Millisecond, createState))

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	require.NoError(t, sv.Run(ctx))

	stats := sv.Stats()
	require.Zero(t, stats.Failures)
	require.NotZero(t, stats.Completed)
	require.LessOrEqual(t, stats.Completed, stats.Started)
	require.LessOrEqual(t, stats.Completed, road1.Load()+road2.Load())
}

func TestSupervisor_CountsFailures(t *testing.T) {
	sv := NewSupervisor(getTestLogger())

	var calls atomic.Uint64
	flaky := NewState(createState, 1, getTestLogger())
	flaky.SetDoFunc(func(_ context.Context, in Sample) (Sample, error) {
		if calls.Add(1)%2 == 0 {
			return in, errors.New("lost")
		}
		return Sample{}, nil
	})
	require.NoError(t, sv.Add(flaky))
	sv.SetSourceFunc(Every(time.Millisecond, createState))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	require.NoError(t, sv.Run(ctx))

	stats := sv.Stats()
	require.NotZero(t, stats.Failures)
	require.NotZero(t, stats.Completed)
}

func TestSupervisor_NotInitialized(t *testing.T) {
	sv := NewSupervisor(getTestLogger())
	require.ErrorIs(t, sv.Run(context.Background()), ErrNotInitialized)

	require.NoError(t, sv.Add(NewState(createState, 1, getTestLogger())))
	sv.SetSourceFunc(Every(0, createState))
	// no do func
	require.ErrorIs(t, sv.Run(context.Background()), ErrNotInitialized)

	require.Error(t, sv.Add(nil))
	require.Error(t, sv.Add(NewState(createState, 1, getTestLogger())))
}

func TestSupervisor_UnknownState(t *testing.T) {
	sv := NewSupervisor(getTestLogger())

	s := NewState(createState, 1, getTestLogger())
	s.SetDoFunc(func(_ context.Context, in Sample) (Sample, error) {
		return Sample{}, nil
	})
	require.NoError(t, sv.Add(s))
	sv.SetSourceFunc(Every(0, "nowhere"))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.ErrorIs(t, sv.Run(ctx), ErrStateNotFound)
}

func TestEvery_RoundRobin(t *testing.T) {
	src := Every(0, "a", "b")
	ctx := context.Background()

	var got []string
	for i := 0; i < 4; i++ {
		s, err := src(ctx)
		require.NoError(t, err)
		got = append(got, s.State)
	}
	require.Equal(t, []string{"a", "b", "a", "b"}, got)

	ctx, cancel := context.WithCancel(ctx)
	cancel()
	_, err := Every(time.Hour, "a")(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
