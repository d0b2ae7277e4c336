package objects

import (
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/S0me0neR0man/ourledger/internal/validate"
)

const (
	ExpensesService = "ourledger.Expenses"

	MaxDescriptionLen = 512

	expenseCounterPartition = 0
	expenseRecordPartition  = 1
)

type Expense struct {
	ID          uint64  `codec:"id"`
	Description string  `codec:"description"`
	Amount      float64 `codec:"amount"`
	Date        uint64  `codec:"date"`
	CreatedAt   uint64  `codec:"created_at"`
	UpdatedAt   *uint64 `codec:"updated_at"`
}

// ExpensePayload is the client-supplied part of an Expense.
type ExpensePayload struct {
	Description string
	Amount      float64
	Date        uint64
}

func expenseDescription(p ExpensePayload) string { return p.Description }

var expenseRules = validate.NewChain(
	validate.NotBlank("description", expenseDescription),
	validate.MaxLength("description", MaxDescriptionLen, expenseDescription),
	validate.Positive("amount", func(p ExpensePayload) float64 { return p.Amount }),
	validate.Timestamp("date", func(p ExpensePayload) uint64 { return p.Date }),
)

func Expenses() Kind[Expense, ExpensePayload] {
	k := Kind[Expense, ExpensePayload]{
		Descriptor: Descriptor{
			Name:    "expense",
			Service: ExpensesService,
			Fields: []Field{
				{Name: "description", Type: TextType, Usage: "what the money was spent on"},
				{Name: "amount", Type: NumberType, Usage: "amount spent, greater than zero"},
				{Name: "date", Type: TimestampType, Usage: "unix timestamp of the expense"},
			},
			Amount: "amount",
			Date:   "date",
		},
		ToStruct:          expenseToStruct,
		FromStruct:        expenseFromStruct,
		PayloadToStruct:   expensePayloadToStruct,
		PayloadFromStruct: expensePayloadFromStruct,
	}

	k.Shape.Name = k.Name
	k.Shape.CounterPartition = expenseCounterPartition
	k.Shape.RecordPartition = expenseRecordPartition
	k.Shape.Rules = expenseRules
	k.Shape.Normalize = func(p ExpensePayload) ExpensePayload {
		p.Description = normalizeText(p.Description)
		return p
	}
	k.Shape.Create = func(id uint64, p ExpensePayload, now uint64) Expense {
		return Expense{ID: id, Description: p.Description, Amount: p.Amount, Date: p.Date, CreatedAt: now}
	}
	k.Shape.Apply = func(e Expense, p ExpensePayload, now uint64) Expense {
		e.Description, e.Amount, e.Date = p.Description, p.Amount, p.Date
		e.UpdatedAt = &now
		return e
	}
	k.Shape.ID = func(e Expense) uint64 { return e.ID }
	k.Shape.Amount = func(e Expense) float64 { return e.Amount }
	k.Shape.Date = func(e Expense) uint64 { return e.Date }
	return k
}

func expenseToStruct(e Expense) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"id":          Uint64Value(e.ID),
		"description": structpb.NewStringValue(e.Description),
		"amount":      structpb.NewNumberValue(e.Amount),
		"date":        Uint64Value(e.Date),
		"created_at":  Uint64Value(e.CreatedAt),
		"updated_at":  OptionalUint64Value(e.UpdatedAt),
	}}
}

func expenseFromStruct(s *structpb.Struct) (Expense, error) {
	var (
		e   Expense
		err error
	)
	if e.ID, err = Uint64Field(s, "id"); err != nil {
		return e, err
	}
	p, err := expensePayloadFromStruct(s)
	if err != nil {
		return e, err
	}
	e.Description, e.Amount, e.Date = p.Description, p.Amount, p.Date
	if e.CreatedAt, err = Uint64Field(s, "created_at"); err != nil {
		return e, err
	}
	if e.UpdatedAt, err = OptionalUint64Field(s, "updated_at"); err != nil {
		return e, err
	}
	return e, nil
}

func expensePayloadToStruct(p ExpensePayload) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"description": structpb.NewStringValue(p.Description),
		"amount":      structpb.NewNumberValue(p.Amount),
		"date":        Uint64Value(p.Date),
	}}
}

func expensePayloadFromStruct(s *structpb.Struct) (ExpensePayload, error) {
	var (
		p   ExpensePayload
		err error
	)
	if p.Description, err = TextField(s, "description"); err != nil {
		return p, err
	}
	if p.Amount, err = NumberField(s, "amount"); err != nil {
		return p, err
	}
	if p.Date, err = Uint64Field(s, "date"); err != nil {
		return p, err
	}
	return p, nil
}
