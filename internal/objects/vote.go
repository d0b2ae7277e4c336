package objects

import (
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/S0me0neR0man/ourledger/internal/validate"
)

const (
	VotesService = "ourledger.Votes"

	MaxTopicLen  = 256
	MaxChoiceLen = 256

	voteCounterPartition = 2
	voteRecordPartition  = 3
)

type Vote struct {
	ID        uint64  `codec:"id"`
	Topic     string  `codec:"topic"`
	Choice    string  `codec:"choice"`
	Weight    float64 `codec:"weight"`
	CastAt    uint64  `codec:"cast_at"`
	CreatedAt uint64  `codec:"created_at"`
	UpdatedAt *uint64 `codec:"updated_at"`
}

type VotePayload struct {
	Topic  string
	Choice string
	Weight float64
	CastAt uint64
}

func voteTopic(p VotePayload) string  { return p.Topic }
func voteChoice(p VotePayload) string { return p.Choice }

var voteRules = validate.NewChain(
	validate.NotBlank("topic", voteTopic),
	validate.MaxLength("topic", MaxTopicLen, voteTopic),
	validate.NotBlank("choice", voteChoice),
	validate.MaxLength("choice", MaxChoiceLen, voteChoice),
	validate.Positive("weight", func(p VotePayload) float64 { return p.Weight }),
	validate.Timestamp("cast_at", func(p VotePayload) uint64 { return p.CastAt }),
)

func Votes() Kind[Vote, VotePayload] {
	k := Kind[Vote, VotePayload]{
		Descriptor: Descriptor{
			Name:    "vote",
			Service: VotesService,
			Fields: []Field{
				{Name: "topic", Type: TextType, Usage: "what is being voted on"},
				{Name: "choice", Type: TextType, Usage: "the option voted for"},
				{Name: "weight", Type: NumberType, Usage: "weight of the vote, greater than zero"},
				{Name: "cast_at", Type: TimestampType, Usage: "unix timestamp the vote was cast"},
			},
			Amount: "weight",
			Date:   "cast_at",
		},
		ToStruct:          voteToStruct,
		FromStruct:        voteFromStruct,
		PayloadToStruct:   votePayloadToStruct,
		PayloadFromStruct: votePayloadFromStruct,
	}

	k.Shape.Name = k.Name
	k.Shape.CounterPartition = voteCounterPartition
	k.Shape.RecordPartition = voteRecordPartition
	k.Shape.Rules = voteRules
	k.Shape.Normalize = func(p VotePayload) VotePayload {
		p.Topic = normalizeText(p.Topic)
		p.Choice = normalizeText(p.Choice)
		return p
	}
	k.Shape.Create = func(id uint64, p VotePayload, now uint64) Vote {
		return Vote{ID: id, Topic: p.Topic, Choice: p.Choice, Weight: p.Weight, CastAt: p.CastAt, CreatedAt: now}
	}
	k.Shape.Apply = func(v Vote, p VotePayload, now uint64) Vote {
		v.Topic, v.Choice, v.Weight, v.CastAt = p.Topic, p.Choice, p.Weight, p.CastAt
		v.UpdatedAt = &now
		return v
	}
	k.Shape.ID = func(v Vote) uint64 { return v.ID }
	k.Shape.Amount = func(v Vote) float64 { return v.Weight }
	k.Shape.Date = func(v Vote) uint64 { return v.CastAt }
	return k
}

func voteToStruct(v Vote) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"id":         Uint64Value(v.ID),
		"topic":      structpb.NewStringValue(v.Topic),
		"choice":     structpb.NewStringValue(v.Choice),
		"weight":     structpb.NewNumberValue(v.Weight),
		"cast_at":    Uint64Value(v.CastAt),
		"created_at": Uint64Value(v.CreatedAt),
		"updated_at": OptionalUint64Value(v.UpdatedAt),
	}}
}

func voteFromStruct(s *structpb.Struct) (Vote, error) {
	var (
		v   Vote
		err error
	)
	if v.ID, err = Uint64Field(s, "id"); err != nil {
		return v, err
	}
	p, err := votePayloadFromStruct(s)
	if err != nil {
		return v, err
	}
	v.Topic, v.Choice, v.Weight, v.CastAt = p.Topic, p.Choice, p.Weight, p.CastAt
	if v.CreatedAt, err = Uint64Field(s, "created_at"); err != nil {
		return v, err
	}
	if v.UpdatedAt, err = OptionalUint64Field(s, "updated_at"); err != nil {
		return v, err
	}
	return v, nil
}

func votePayloadToStruct(p VotePayload) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"topic":   structpb.NewStringValue(p.Topic),
		"choice":  structpb.NewStringValue(p.Choice),
		"weight":  structpb.NewNumberValue(p.Weight),
		"cast_at": Uint64Value(p.CastAt),
	}}
}

func votePayloadFromStruct(s *structpb.Struct) (VotePayload, error) {
	var (
		p   VotePayload
		err error
	)
	if p.Topic, err = TextField(s, "topic"); err != nil {
		return p, err
	}
	if p.Choice, err = TextField(s, "choice"); err != nil {
		return p, err
	}
	if p.Weight, err = NumberField(s, "weight"); err != nil {
		return p, err
	}
	if p.CastAt, err = Uint64Field(s, "cast_at"); err != nil {
		return p, err
	}
	return p, nil
}
