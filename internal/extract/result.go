package extract

import (
	"bytes"
	"encoding/json"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/freakspace/leadtool/internal/llm"
	"github.com/freakspace/leadtool/internal/model"
)

// ErrDecode is returned when a payload is not a JSON object.
var ErrDecode = eris.New("extract: decode payload")

// singular fields take the first element when the model answers with a list.
var singular = []string{
	model.FieldEmail,
	model.FieldContactName,
	model.FieldPronoun,
	model.FieldCity,
	model.FieldArea,
}

// Result is the accumulated key/value mapping for one link. A key that is
// present with model.None() was answered "None"; an absent key was never
// answered.
type Result map[string]model.Field

// DecodeResult parses a completion payload into a Result.
func DecodeResult(raw string) (Result, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(llm.StripFence(raw))))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, eris.Wrap(ErrDecode, err.Error())
	}
	if obj == nil {
		return nil, eris.Wrap(ErrDecode, "payload is null")
	}

	res := make(Result, len(obj))
	for k, v := range obj {
		if f, ok := toField(k, v); ok {
			res[k] = f
		}
	}
	return res, nil
}

func toField(key string, v any) (model.Field, bool) {
	switch x := v.(type) {
	case nil:
		return model.None(), true
	case string:
		return model.Value(x), true
	case json.Number:
		return model.Value(x.String()), true
	case bool:
		return model.Value(strconv.FormatBool(x)), true
	case []any:
		var parts []string
		for _, item := range x {
			if f, ok := toField(key, item); ok && f.IsSet() {
				parts = append(parts, f.Value)
			}
		}
		if len(parts) == 0 {
			return model.None(), true
		}
		if slices.Contains(singular, key) {
			return model.Value(parts[0]), true
		}
		return model.Value(strings.Join(parts, ", ")), true
	default:
		return model.Field{}, false
	}
}

// Merge copies other into r. Keys in other win.
func (r Result) Merge(other Result) {
	for k, v := range other {
		r[k] = v
	}
}

// Missing returns the fields not yet present in r, in request order.
// Presence is structural: a "None" answer counts as present.
func (r Result) Missing(fields []string) []string {
	var out []string
	for _, f := range fields {
		if _, ok := r[f]; !ok {
			out = append(out, f)
		}
	}
	return out
}

// Has reports whether every field is present.
func (r Result) Has(fields []string) bool {
	return len(r.Missing(fields)) == 0
}

// Columns splits r into values that map onto link columns and the sorted
// names of keys that do not.
func (r Result) Columns() (cols map[string]model.Field, ignored []string) {
	cols = make(map[string]model.Field, len(r))
	for k, v := range r {
		if model.IsFieldColumn(k) {
			cols[k] = v
			continue
		}
		ignored = append(ignored, k)
	}
	sort.Strings(ignored)
	return cols, ignored
}
