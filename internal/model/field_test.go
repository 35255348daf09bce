package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		in    string
		state FieldState
		want  string
	}{
		{"plain value", "Aarhus", FieldSet, "Aarhus"},
		{"trimmed value", "  john@acme.dk ", FieldSet, "john@acme.dk"},
		{"none literal", "None", FieldNone, "None"},
		{"none literal lower", "none", FieldNone, "None"},
		{"blank", "   ", FieldNone, "None"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := Value(tt.in)
			assert.Equal(t, tt.state, f.State)
			assert.Equal(t, tt.want, f.String())
		})
	}
}

func TestField_JSON(t *testing.T) {
	t.Parallel()

	type wrapper struct {
		A Field `json:"a"`
		B Field `json:"b"`
		C Field `json:"c"`
	}

	in := wrapper{A: Unknown(), B: None(), C: Value("Lars")}
	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":null,"b":"None","c":"Lars"}`, string(data))

	var out wrapper
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestField_UnmarshalJSON_RejectsNonString(t *testing.T) {
	t.Parallel()

	var f Field
	err := json.Unmarshal([]byte(`42`), &f)
	assert.Error(t, err)
}

func TestField_Scan(t *testing.T) {
	t.Parallel()

	var f Field
	require.NoError(t, f.Scan(nil))
	assert.False(t, f.IsKnown())

	require.NoError(t, f.Scan("None"))
	assert.Equal(t, FieldNone, f.State)

	require.NoError(t, f.Scan([]byte("roofing")))
	assert.True(t, f.IsSet())
	assert.Equal(t, "roofing", f.Value)
}

func TestField_NullString(t *testing.T) {
	t.Parallel()

	assert.False(t, Unknown().NullString().Valid)

	ns := None().NullString()
	assert.True(t, ns.Valid)
	assert.Equal(t, "None", ns.String)
}

func TestNormalizeField(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "john@acme.dk", NormalizeField(FieldEmail, Value("John@ACME.dk")).Value)
	assert.Equal(t, "Lars", NormalizeField(FieldContactName, Value("lars")).Value)
	assert.Equal(t, "East Jutland", NormalizeField(FieldArea, Value("east jutland")).Value)
	assert.Equal(t, "du", NormalizeField(FieldPronoun, Value("du")).Value)
	assert.Equal(t, FieldNone, NormalizeField(FieldCity, None()).State)
	assert.False(t, NormalizeField(FieldCity, Unknown()).IsKnown())
}

func TestIsFieldColumn(t *testing.T) {
	t.Parallel()

	assert.True(t, IsFieldColumn("email"))
	assert.True(t, IsFieldColumn("pronoun"))
	assert.False(t, IsFieldColumn("e-mail"))
	assert.False(t, IsFieldColumn("parsed"))
}

func TestLink_IsLead(t *testing.T) {
	t.Parallel()

	l := Link{Parsed: true, Email: Value("a@b.com")}
	assert.True(t, l.IsLead())

	l.Email = None()
	assert.False(t, l.IsLead())

	l = Link{Parsed: false, Email: Value("a@b.com")}
	assert.False(t, l.IsLead())
}
