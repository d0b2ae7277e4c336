package ledgerdb

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/S0me0neR0man/ourledger/internal/memory"
	"github.com/S0me0neR0man/ourledger/internal/validate"
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

type item struct {
	ID        uint64  `codec:"id"`
	Name      string  `codec:"name"`
	Amount    float64 `codec:"amount"`
	Date      uint64  `codec:"date"`
	CreatedAt uint64  `codec:"created_at"`
	UpdatedAt *uint64 `codec:"updated_at"`
}

type itemPayload struct {
	Name   string
	Amount float64
	Date   uint64
}

func itemShape() Shape[item, itemPayload] {
	name := func(p itemPayload) string { return p.Name }
	return Shape[item, itemPayload]{
		Name:             "item",
		CounterPartition: 0,
		RecordPartition:  1,
		Normalize: func(p itemPayload) itemPayload {
			p.Name = strings.TrimSpace(p.Name)
			return p
		},
		Rules: validate.NewChain(
			validate.NotBlank("name", name),
			validate.MaxLength("name", 64, name),
			validate.Positive("amount", func(p itemPayload) float64 { return p.Amount }),
			validate.Timestamp("date", func(p itemPayload) uint64 { return p.Date }),
		),
		Create: func(id uint64, p itemPayload, now uint64) item {
			return item{ID: id, Name: p.Name, Amount: p.Amount, Date: p.Date, CreatedAt: now}
		},
		Apply: func(rec item, p itemPayload, now uint64) item {
			rec.Name, rec.Amount, rec.Date = p.Name, p.Amount, p.Date
			rec.UpdatedAt = &now
			return rec
		},
		ID:     func(r item) uint64 { return r.ID },
		Amount: func(r item) float64 { return r.Amount },
		Date:   func(r item) uint64 { return r.Date },
	}
}

func openVolatile(t *testing.T, opts ...Option) *Ledger[item, itemPayload] {
	t.Helper()
	m, err := memory.NewManager(memory.NewVolatile(), getTestLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })

	l, err := Open(m, itemShape(), getTestLogger(), opts...)
	require.NoError(t, err)
	return l
}

// fixedClock returns t0, t0+1ns, t0+2ns, ...
func fixedClock(t0 time.Time) func() time.Time {
	var mu sync.Mutex
	cur := t0
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		cur = cur.Add(time.Nanosecond)
		return cur
	}
}

func payload(name string, amount float64, date uint64) itemPayload {
	return itemPayload{Name: name, Amount: amount, Date: date}
}
