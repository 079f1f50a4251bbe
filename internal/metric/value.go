package metric

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

type kind uint8

const (
	kindNull kind = iota
	kindNumber
	kindText
)

// Value is the outcome of one metric: a number, a textual rendering for
// statistics that are not scalars (confidence intervals), or null when the
// metric is undefined for the data.
type Value struct {
	kind kind
	num  float64
	text string
}

func Null() Value {
	return Value{}
}

// Number wraps f. NaN and infinities are undefined and become null.
func Number(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Null()
	}
	return Value{kind: kindNumber, num: f}
}

func Text(s string) Value {
	return Value{kind: kindText, text: s}
}

func (v Value) IsNull() bool { return v.kind == kindNull }

// Float64 returns the numeric value and whether v holds one.
func (v Value) Float64() (float64, bool) {
	return v.num, v.kind == kindNumber
}

func (v Value) String() string {
	switch v.kind {
	case kindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case kindText:
		return v.text
	default:
		return "null"
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case kindNumber:
		return json.Marshal(v.num)
	case kindText:
		return json.Marshal(v.text)
	default:
		return []byte("null"), nil
	}
}

// MarshalCSV renders null as an empty field.
func (v Value) MarshalCSV() (string, error) {
	if v.IsNull() {
		return "", nil
	}
	return v.String(), nil
}

func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*v = Null()
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Text(s)
	default:
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			return fmt.Errorf("metric value must be a number, string or null: %s", data)
		}
		*v = Number(f)
	}
	return nil
}
