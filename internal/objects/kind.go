// Package objects defines the record types served by ourledger and their
// wire form.
package objects

import (
	"golang.org/x/text/unicode/norm"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/S0me0neR0man/ourledger/internal/ledgerdb"
)

type FieldType int

const (
	TextType FieldType = iota
	NumberType
	TimestampType
)

// Field is one payload field.
type Field struct {
	Name  string
	Type  FieldType
	Usage string
}

// Descriptor is the type-independent part of a Kind.
type Descriptor struct {
	Name    string
	Service string
	// Fields lists the payload fields in validation order.
	Fields []Field
	// Amount names the summed and sorted field, Date the ranged one.
	Amount string
	Date   string
}

// Columns returns every record field in display order.
func (d Descriptor) Columns() []string {
	cols := make([]string, 0, len(d.Fields)+3)
	cols = append(cols, "id")
	for _, f := range d.Fields {
		cols = append(cols, f.Name)
	}
	return append(cols, "created_at", "updated_at")
}

// Kind bundles the storage shape of a record type with its wire codec.
type Kind[T, P any] struct {
	Descriptor
	Shape ledgerdb.Shape[T, P]

	ToStruct          func(T) *structpb.Struct
	FromStruct        func(*structpb.Struct) (T, error)
	PayloadToStruct   func(P) *structpb.Struct
	PayloadFromStruct func(*structpb.Struct) (P, error)
}

// Descriptors lists every served record type.
func Descriptors() []Descriptor {
	return []Descriptor{Expenses().Descriptor, Votes().Descriptor}
}

func normalizeText(s string) string {
	return norm.NFC.String(s)
}
