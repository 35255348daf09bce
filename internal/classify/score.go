package classify

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/freakspace/leadtool/internal/llm"
	"github.com/freakspace/leadtool/internal/model"
)

// ErrDecode is returned when a reply carries no usable classification.
var ErrDecode = eris.New("classify: decode reply")

// Verdict is one decoded classification reply.
type Verdict struct {
	// Classification is Score rounded to the nearest integer, as stored.
	Classification int

	// Score is the value the model returned.
	Score float64

	Description string
}

type verdictPayload struct {
	Classification json.RawMessage `json:"classification"`
	Description    any             `json:"description"`
}

// DecodeVerdict parses a reply such as {"classification": 7, "description": "..."}.
// The score may be a number or a numeric string and must lie in 0..10.
func DecodeVerdict(raw string) (Verdict, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(llm.StripFence(raw))))
	dec.UseNumber()

	var p verdictPayload
	if err := dec.Decode(&p); err != nil {
		return Verdict{}, eris.Wrap(ErrDecode, err.Error())
	}
	if len(p.Classification) == 0 || string(p.Classification) == "null" {
		return Verdict{}, eris.Wrap(ErrDecode, "missing classification")
	}

	score, err := parseScore(p.Classification)
	if err != nil {
		return Verdict{}, err
	}

	v := Verdict{Classification: int(math.Round(score)), Score: score}
	switch d := p.Description.(type) {
	case string:
		v.Description = strings.TrimSpace(d)
	case nil:
	default:
		if b, err := json.Marshal(d); err == nil {
			v.Description = string(b)
		}
	}
	return v, nil
}

func parseScore(raw json.RawMessage) (float64, error) {
	s := strings.TrimSpace(string(raw))
	if unq, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unq)
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, eris.Wrapf(ErrDecode, "classification %s is not a number", raw)
	}

	if rounded := int(math.Round(f)); rounded < model.ClassificationUnset || rounded > model.ClassificationMax {
		return 0, eris.Wrapf(ErrDecode, "classification %s out of range", raw)
	}
	return f, nil
}
