package checker

import (
	"fmt"
	"math/rand/v2"

	"github.com/S0me0neR0man/ourledger/internal/objects"
)

var (
	descriptions = []string{"coffee", "lunch", "train ticket", "books", "café au lait"}
	topics       = []string{"lunch", "release day", "team name"}
	choices      = []string{"yes", "no", "abstain", "pizza", "sushi"}
)

// amount returns a positive value with two decimals.
func amount() float64 {
	return float64(rand.IntN(100_000)+1) / 100
}

// timestamp returns a nanosecond unix time within the last ten years.
func timestamp() uint64 {
	const base = 1_450_000_000_000_000_000
	return base + rand.Uint64N(315_000_000_000_000_000)
}

func ExpensePayloads() GenFunc[objects.ExpensePayload] {
	return func() objects.ExpensePayload {
		return objects.ExpensePayload{
			Description: fmt.Sprintf("%s #%d", descriptions[rand.IntN(len(descriptions))], rand.IntN(1000)),
			Amount:      amount(),
			Date:        timestamp(),
		}
	}
}

func VotePayloads() GenFunc[objects.VotePayload] {
	return func() objects.VotePayload {
		return objects.VotePayload{
			Topic:  topics[rand.IntN(len(topics))],
			Choice: choices[rand.IntN(len(choices))],
			Weight: amount(),
			CastAt: timestamp(),
		}
	}
}
