package feature

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

/*
ErrMalformedInstance is returned (wrapped) when a row cannot be parsed into
an Instance for the known fields.
*/
var ErrMalformedInstance = errors.New("malformed instance")

/*
Instance is a parsed row of the dataset. Each position holds either a
string for categorical fields or a float64 for numeric fields.
*/
type Instance []interface{}

/*
ParseInstance takes a comma-separated row and the fields of the dataset and
returns the Instance for it. Tokens are trimmed before parsing. A row with
a number of tokens different from the number of fields, or with a token
that cannot be parsed as a number for a numeric field, results in an
error wrapping ErrMalformedInstance.
*/
func ParseInstance(row string, fields []*Field) (Instance, error) {
	tokens := strings.Split(row, ",")
	if len(tokens) != len(fields) {
		return nil, errors.Wrapf(ErrMalformedInstance, "expected %d tokens, got %d in row %q", len(fields), len(tokens), row)
	}
	inst := make(Instance, len(tokens))
	for i, t := range tokens {
		t = strings.TrimSpace(t)
		if fields[i].IsNumeric() {
			v, err := strconv.ParseFloat(t, 64)
			if err != nil {
				return nil, errors.Wrapf(ErrMalformedInstance, "field %d expects a number, got %q in row %q", i, t, row)
			}
			inst[i] = v
		} else {
			inst[i] = t
		}
	}
	return inst, nil
}

// IsBlank returns whether a row holds nothing but whitespace
func IsBlank(row string) bool {
	return strings.TrimSpace(row) == ""
}

// Category returns the categorical value at the given position
func (inst Instance) Category(i int) (string, bool) {
	if i < 0 || i >= len(inst) {
		return "", false
	}
	s, ok := inst[i].(string)
	return s, ok
}

// Number returns the numeric value at the given position
func (inst Instance) Number(i int) (float64, bool) {
	if i < 0 || i >= len(inst) {
		return 0, false
	}
	v, ok := inst[i].(float64)
	return v, ok
}

/*
Token returns the value at the given position rendered back into a token.
Numbers are formatted with the shortest representation that parses back
to the same value.
*/
func (inst Instance) Token(i int) string {
	if v, ok := inst.Number(i); ok {
		return FormatNumber(v)
	}
	s, _ := inst.Category(i)
	return s
}

// FormatNumber renders a number into a token that parses back to it
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
