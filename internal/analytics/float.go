package analytics

import (
	"encoding/json"
	"math"
	"strconv"
)

// Float is a float64 that survives JSON encoding when infinite. Positive
// infinity encodes as the string "Infinity".
type Float float64

// Infinity is the profit factor of a record set with wins and no losses.
var Infinity = Float(math.Inf(1))

// IsInf reports whether f is positive infinity.
func (f Float) IsInf() bool {
	return math.IsInf(float64(f), 1)
}

// String formats finite values with the shortest representation.
func (f Float) String() string {
	if f.IsInf() {
		return "Infinity"
	}
	return strconv.FormatFloat(float64(f), 'f', -1, 64)
}

func (f Float) MarshalJSON() ([]byte, error) {
	if math.IsInf(float64(f), 0) || math.IsNaN(float64(f)) {
		return json.Marshal(f.String())
	}
	return json.Marshal(float64(f))
}

func (f *Float) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == "Infinity" {
			*f = Infinity
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		*f = Float(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Float(v)
	return nil
}
