package model

import (
	"database/sql"
	"encoding/json"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NoneLiteral is the marker the model writes for a value it could not determine.
const NoneLiteral = "None"

// FieldState distinguishes an absent value from an explicit "None" and a real value.
type FieldState int

const (
	// FieldUnknown means the value was never extracted (NULL in storage).
	FieldUnknown FieldState = iota
	// FieldNone means the value was explicitly reported as not determinable.
	FieldNone
	// FieldSet means the field carries a concrete value.
	FieldSet
)

func (s FieldState) String() string {
	switch s {
	case FieldNone:
		return "none"
	case FieldSet:
		return "set"
	default:
		return "unknown"
	}
}

// Field is a tri-state optional string: unknown, explicitly none, or a value.
type Field struct {
	State FieldState
	Value string
}

// Unknown returns a field that carries no information.
func Unknown() Field { return Field{} }

// None returns a field explicitly marked as not determinable.
func None() Field { return Field{State: FieldNone, Value: NoneLiteral} }

// Value returns a field carrying s. The "None" literal (any case) and blank
// strings collapse to None.
func Value(s string) Field {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, NoneLiteral) {
		return None()
	}
	return Field{State: FieldSet, Value: s}
}

// IsKnown reports whether the field holds either a value or an explicit none.
func (f Field) IsKnown() bool { return f.State != FieldUnknown }

// IsSet reports whether the field holds a concrete value.
func (f Field) IsSet() bool { return f.State == FieldSet }

// String returns the stored representation: "" for unknown, "None" for none.
func (f Field) String() string {
	switch f.State {
	case FieldNone:
		return NoneLiteral
	case FieldSet:
		return f.Value
	default:
		return ""
	}
}

// MarshalJSON encodes unknown as null, none as "None", and values as strings.
func (f Field) MarshalJSON() ([]byte, error) {
	if f.State == FieldUnknown {
		return []byte("null"), nil
	}
	return json.Marshal(f.String())
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (f *Field) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = Unknown()
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return eris.Wrap(err, "model: decode field")
	}
	*f = Value(s)
	return nil
}

// Scan implements sql.Scanner. NULL maps to unknown.
func (f *Field) Scan(src any) error {
	var ns sql.NullString
	if err := ns.Scan(src); err != nil {
		return eris.Wrap(err, "model: scan field")
	}
	if !ns.Valid {
		*f = Unknown()
		return nil
	}
	*f = Value(ns.String)
	return nil
}

// NullString returns the SQL representation. Unknown is written as NULL.
func (f Field) NullString() sql.NullString {
	if f.State == FieldUnknown {
		return sql.NullString{}
	}
	return sql.NullString{String: f.String(), Valid: true}
}

// Field names produced by extraction that map onto link columns.
const (
	FieldEmail       = "email"
	FieldContactName = "contact_name"
	FieldPronoun     = "pronoun"
	FieldIndustry    = "industry"
	FieldCity        = "city"
	FieldArea        = "area"
)

// FieldColumns lists the extracted field names persisted on a link, in column order.
var FieldColumns = []string{FieldEmail, FieldContactName, FieldPronoun, FieldIndustry, FieldCity, FieldArea}

// IsFieldColumn reports whether name is a persisted extracted field.
func IsFieldColumn(name string) bool {
	return slices.Contains(FieldColumns, name)
}

// Pronoun markers returned for contact names.
const (
	PronounInformal = "du"
	PronounFormal   = "i"
)

// NormalizeField applies the presentation rules used when a field is edited
// through the API: emails are lower-cased, names and places title-cased.
// Unknown and none fields pass through unchanged.
func NormalizeField(name string, f Field) Field {
	if !f.IsSet() {
		return f
	}
	switch name {
	case FieldEmail:
		return Value(strings.ToLower(f.Value))
	case FieldContactName, FieldIndustry, FieldCity, FieldArea:
		return Value(cases.Title(language.Danish).String(f.Value))
	default:
		return f
	}
}
