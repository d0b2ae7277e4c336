package checker

import (
	"context"
	"fmt"
	"math/rand/v2"
	"reflect"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/S0me0neR0man/ourledger/internal/objects"
)

// Target is the client side of one record type.
type Target[T, P any] interface {
	Get(ctx context.Context, id uint64) (T, error)
	Create(ctx context.Context, p P) (T, error)
	Update(ctx context.Context, id uint64, p P) (T, error)
	Delete(ctx context.Context, id uint64) (T, error)
}

// GenFunc makes a valid payload. It is called from many goroutines.
type GenFunc[P any] func() P

// tracked is the client's belief about one stored record.
type tracked[T any] struct {
	ID      uint64
	Rec     T
	Deleted bool
}

func (t tracked[T]) String() string {
	return fmt.Sprintf("id=%d deleted=%v rec=%+v", t.ID, t.Deleted, t.Rec)
}

// Attach adds the states exercising one record type to sv: create, get,
// then update or delete, then a final get. It returns the entry state.
func Attach[T, P any](sv *Supervisor, kind objects.Kind[T, P], target Target[T, P], gen GenFunc[P], workers int, logger *zap.Logger) (string, error) {
	var (
		create = kind.Name + "/create"
		get    = kind.Name + "/get"
		update = kind.Name + "/update"
		remove = kind.Name + "/delete"
		verify = kind.Name + "/verify"
		shape  = kind.Shape
	)

	s := NewState(create, workers, logger)
	s.SetDoFunc(func(ctx context.Context, in Sample) (Sample, error) {
		p := gen()
		rec, err := target.Create(ctx, p)
		if err != nil {
			return in, fmt.Errorf("create: %w", err)
		}
		if err := samePayload(kind, rec, p); err != nil {
			return in, fmt.Errorf("create: %w", err)
		}
		return Sample{State: get, Data: tracked[T]{ID: shape.ID(rec), Rec: rec}}, nil
	})
	states := []*State{s}

	s = NewState(get, workers, logger)
	s.SetDoFunc(func(ctx context.Context, in Sample) (Sample, error) {
		t := in.Data.(tracked[T])
		got, err := target.Get(ctx, t.ID)
		if err != nil {
			return in, fmt.Errorf("get %d: %w", t.ID, err)
		}
		next := update
		if rand.IntN(2) == 0 {
			next = remove
		}
		return Sample{State: next, Data: tracked[T]{ID: t.ID, Rec: got}}, nil
	})
	s.SetCheckFunc(sameRecord[T])
	states = append(states, s)

	s = NewState(update, workers, logger)
	s.SetDoFunc(func(ctx context.Context, in Sample) (Sample, error) {
		t := in.Data.(tracked[T])
		p := gen()
		rec, err := target.Update(ctx, t.ID, p)
		if err != nil {
			return in, fmt.Errorf("update %d: %w", t.ID, err)
		}
		if err := samePayload(kind, rec, p); err != nil {
			return in, fmt.Errorf("update %d: %w", t.ID, err)
		}
		return Sample{State: verify, Data: tracked[T]{ID: t.ID, Rec: rec}}, nil
	})
	states = append(states, s)

	s = NewState(remove, workers, logger)
	s.SetDoFunc(func(ctx context.Context, in Sample) (Sample, error) {
		t := in.Data.(tracked[T])
		rec, err := target.Delete(ctx, t.ID)
		if err != nil {
			return in, fmt.Errorf("delete %d: %w", t.ID, err)
		}
		return Sample{State: verify, Data: tracked[T]{ID: t.ID, Rec: rec, Deleted: true}}, nil
	})
	s.SetCheckFunc(sameRecord[T])
	states = append(states, s)

	s = NewState(verify, workers, logger)
	s.SetDoFunc(func(ctx context.Context, in Sample) (Sample, error) {
		t := in.Data.(tracked[T])
		got, err := target.Get(ctx, t.ID)
		if t.Deleted {
			if status.Code(err) != codes.NotFound {
				return in, fmt.Errorf("get %d after delete: want NotFound, got %v", t.ID, err)
			}
			return Sample{}, nil
		}
		if err != nil {
			return in, fmt.Errorf("get %d after update: %w", t.ID, err)
		}
		if !reflect.DeepEqual(got, t.Rec) {
			return in, fmt.Errorf("get %d after update: stored %+v, updated %+v", t.ID, got, t.Rec)
		}
		return Sample{}, nil
	})
	states = append(states, s)

	for _, st := range states {
		if err := sv.Add(st); err != nil {
			return "", err
		}
	}
	return create, nil
}

// sameRecord checks that a step saw the record the previous step left.
func sameRecord[T any](before, after Sample) error {
	b, a := before.Data.(tracked[T]), after.Data.(tracked[T])
	if !reflect.DeepEqual(b.Rec, a.Rec) {
		return fmt.Errorf("record %d changed: before %+v, after %+v", b.ID, b.Rec, a.Rec)
	}
	return nil
}

// samePayload checks that rec carries the normalized fields of p.
func samePayload[T, P any](kind objects.Kind[T, P], rec T, p P) error {
	shape := kind.Shape
	if shape.Normalize != nil {
		p = shape.Normalize(p)
	}
	if !reflect.DeepEqual(kind.PayloadToStruct(p).AsMap(), payloadOf(kind, rec)) {
		return fmt.Errorf("record %d: stored %+v, sent %+v", shape.ID(rec), rec, p)
	}
	return nil
}

// payloadOf projects the payload fields of rec.
func payloadOf[T, P any](kind objects.Kind[T, P], rec T) map[string]interface{} {
	all := kind.ToStruct(rec).AsMap()
	res := make(map[string]interface{}, len(kind.Fields))
	for _, f := range kind.Fields {
		res[f.Name] = all[f.Name]
	}
	return res
}
