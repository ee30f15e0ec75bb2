package geometry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// noneText is the text form of an unset scalar, shared by the PRR header,
// config files, and snapshots.
const noneText = "None"

// Scalar is an optional float64. The zero value is unset.
type Scalar struct {
	value float64
	set   bool
}

// Some returns a set scalar holding v.
func Some(v float64) Scalar { return Scalar{value: v, set: true} }

// Unset returns an unset scalar.
func Unset() Scalar { return Scalar{} }

// Get returns the value and whether it is set.
func (s Scalar) Get() (float64, bool) { return s.value, s.set }

// IsSet reports whether the scalar holds a value.
func (s Scalar) IsSet() bool { return s.set }

// Or returns the value, or def when unset.
func (s Scalar) Or(def float64) float64 {
	if !s.set {
		return def
	}
	return s.value
}

// Valid reports whether the scalar is unset or a positive finite number.
func (s Scalar) Valid() bool {
	if !s.set {
		return true
	}
	return s.value > 0 && !math.IsInf(s.value, 0) && !math.IsNaN(s.value)
}

// String returns "None" for an unset scalar and the shortest exact decimal
// form otherwise.
func (s Scalar) String() string {
	if !s.set {
		return noneText
	}
	return strconv.FormatFloat(s.value, 'g', -1, 64)
}

// MarshalText implements encoding.TextMarshaler.
func (s Scalar) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. "None" and the empty
// string decode to an unset scalar.
func (s *Scalar) UnmarshalText(text []byte) error {
	t := strings.TrimSpace(string(text))
	if t == "" || t == noneText {
		*s = Scalar{}
		return nil
	}
	v, err := strconv.ParseFloat(t, 64)
	if err != nil {
		return fmt.Errorf("invalid scalar %q: %w", t, err)
	}
	*s = Some(v)
	return nil
}

// MarshalJSON encodes an unset scalar as null.
func (s Scalar) MarshalJSON() ([]byte, error) {
	if !s.set {
		return []byte("null"), nil
	}
	return json.Marshal(s.value)
}

// UnmarshalJSON decodes null as unset.
func (s *Scalar) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*s = Scalar{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = Some(v)
	return nil
}
