// Package validate checks create/update payloads before they reach the store.
package validate

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode"
)

// ErrInvalidInput is matched by every Violation.
var ErrInvalidInput = errors.New("invalid input")

// Rule names reported in Violation.Rule.
const (
	RuleNotBlank  = "not_blank"
	RuleMaxLength = "max_length"
	RulePositive  = "positive"
	RuleTimestamp = "timestamp"
	// RuleFormat and RuleRequired are reported for malformed requests.
	RuleFormat   = "format"
	RuleRequired = "required"
)

// Violation describes the first rule a payload failed.
type Violation struct {
	Field string
	Rule  string
	Msg   string
}

func (v *Violation) Error() string {
	return v.Msg
}

func (v *Violation) Is(target error) bool {
	return target == ErrInvalidInput
}

// Rule checks one property of a payload and returns a *Violation or nil.
type Rule[P any] func(P) error

// Chain runs rules in attach order and stops at the first violation.
type Chain[P any] struct {
	rules []Rule[P]
}

func NewChain[P any](rules ...Rule[P]) *Chain[P] {
	c := &Chain[P]{}
	return c.Attach(rules...)
}

// Attach appends rules to the chain
func (c *Chain[P]) Attach(rules ...Rule[P]) *Chain[P] {
	c.rules = append(c.rules, rules...)
	return c
}

// Check returns the first violation, or nil when p passes every rule.
func (c *Chain[P]) Check(p P) error {
	for _, rule := range c.rules {
		if err := rule(p); err != nil {
			return err
		}
	}
	return nil
}

// NotBlank rejects empty and all-whitespace text.
func NotBlank[P any](field string, get func(P) string) Rule[P] {
	return func(p P) error {
		if strings.TrimSpace(get(p)) == "" {
			return &Violation{Field: field, Rule: RuleNotBlank, Msg: title(field) + " cannot be empty"}
		}
		return nil
	}
}

// MaxLength rejects text longer than n bytes.
func MaxLength[P any](field string, n int, get func(P) string) Rule[P] {
	return func(p P) error {
		if l := len(get(p)); l > n {
			return &Violation{
				Field: field,
				Rule:  RuleMaxLength,
				Msg:   fmt.Sprintf("%s must be at most %d bytes, got %d", title(field), n, l),
			}
		}
		return nil
	}
}

// Positive rejects amounts that are not strictly greater than zero, NaN
// included, and infinite amounts.
func Positive[P any](field string, get func(P) float64) Rule[P] {
	return func(p P) error {
		v := get(p)
		if !(v > 0) {
			return &Violation{Field: field, Rule: RulePositive, Msg: title(field) + " must be greater than zero"}
		}
		if math.IsInf(v, 1) {
			return &Violation{Field: field, Rule: RulePositive, Msg: title(field) + " must be a finite number"}
		}
		return nil
	}
}

// Timestamp rejects the zero sentinel.
func Timestamp[P any](field string, get func(P) uint64) Rule[P] {
	return func(p P) error {
		if get(p) == 0 {
			return &Violation{Field: field, Rule: RuleTimestamp, Msg: title(field) + " must be a valid timestamp"}
		}
		return nil
	}
}

func title(field string) string {
	field = strings.ReplaceAll(field, "_", " ")
	for i, r := range field {
		return string(unicode.ToUpper(r)) + field[i+len(string(r)):]
	}
	return field
}
