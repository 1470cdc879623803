package core

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Kind discriminates the closed set of scalar value shapes a cell can hold.
type Kind int

const (
	// KindNull is the SQL NULL value.
	KindNull Kind = iota
	// KindBool is a boolean value.
	KindBool
	// KindNumber is a numeric value (all SQL numerics collapse to float64).
	KindNumber
	// KindString is a text value.
	KindString
	// KindOpaque is a JSON object or array round-tripped as-is, never
	// individually typed.
	KindOpaque
)

// String returns the string representation of Kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindOpaque:
		return "opaque"
	default:
		return "unknown"
	}
}

// Scalar is a tagged variant holding one cell value. The zero value is NULL.
//
// Modeling cells as a closed variant (rather than `any`) keeps Coerce and
// IdentityOf total functions: every case is handled, and adding a kind is a
// compile-visible change.
type Scalar struct {
	kind Kind
	b    bool
	n    float64
	s    string // string payload, or raw JSON for KindOpaque
}

// Null returns the NULL scalar.
func Null() Scalar {
	return Scalar{kind: KindNull}
}

// Bool returns a boolean scalar.
func Bool(v bool) Scalar {
	return Scalar{kind: KindBool, b: v}
}

// Number returns a numeric scalar.
func Number(v float64) Scalar {
	return Scalar{kind: KindNumber, n: v}
}

// String returns a text scalar.
func String(v string) Scalar {
	return Scalar{kind: KindString, s: v}
}

// Opaque returns a scalar that carries raw JSON verbatim.
func Opaque(raw json.RawMessage) Scalar {
	return Scalar{kind: KindOpaque, s: string(raw)}
}

// Kind reports which variant this scalar holds.
func (s Scalar) Kind() Kind { return s.kind }

// IsNull reports whether the scalar is NULL.
func (s Scalar) IsNull() bool { return s.kind == KindNull }

// AsBool returns the boolean payload. Valid only for KindBool.
func (s Scalar) AsBool() bool { return s.b }

// AsNumber returns the numeric payload. Valid only for KindNumber.
func (s Scalar) AsNumber() float64 { return s.n }

// AsString returns the text payload. Valid only for KindString and KindOpaque.
func (s Scalar) AsString() string { return s.s }

// Value converts the scalar into a driver-bindable value.
func (s Scalar) Value() any {
	switch s.kind {
	case KindBool:
		return s.b
	case KindNumber:
		return s.n
	case KindString, KindOpaque:
		return s.s
	default:
		return nil
	}
}

// Display renders the scalar the way a user types it: NULL as "null",
// booleans as "true"/"false", numbers in their shortest round-trippable form.
// Coerce(s.Display()) reproduces s for null, bool and number scalars.
func (s Scalar) Display() string {
	switch s.kind {
	case KindBool:
		return strconv.FormatBool(s.b)
	case KindNumber:
		return formatNumber(s.n)
	case KindString, KindOpaque:
		return s.s
	default:
		return "null"
	}
}

// Encode produces the canonical encoding used for row identities.
// The encoding is injective across kinds and never contains the identity
// delimiter: null/bool/number encodings are plain ASCII words, and string or
// opaque payloads are quoted with control characters escaped.
func (s Scalar) Encode() string {
	switch s.kind {
	case KindBool:
		return strconv.FormatBool(s.b)
	case KindNumber:
		return formatNumber(s.n)
	case KindString:
		return strconv.Quote(s.s)
	case KindOpaque:
		return "j" + strconv.Quote(s.s)
	default:
		return "null"
	}
}

// Equal reports value equality between two scalars.
func (s Scalar) Equal(other Scalar) bool {
	if s.kind != other.kind {
		return false
	}
	switch s.kind {
	case KindBool:
		return s.b == other.b
	case KindNumber:
		return s.n == other.n
	case KindString, KindOpaque:
		return s.s == other.s
	default:
		return true
	}
}

// MarshalJSON implements json.Marshaler.
func (s Scalar) MarshalJSON() ([]byte, error) {
	switch s.kind {
	case KindBool:
		return json.Marshal(s.b)
	case KindNumber:
		if math.IsInf(s.n, 0) || math.IsNaN(s.n) {
			// JSON has no encoding for these; fall back to their text form.
			return json.Marshal(formatNumber(s.n))
		}
		return json.Marshal(s.n)
	case KindString:
		return json.Marshal(s.s)
	case KindOpaque:
		return []byte(s.s), nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON implements json.Unmarshaler. Objects and arrays become
// opaque scalars; everything else maps onto its typed variant.
func (s *Scalar) UnmarshalJSON(data []byte) error {
	i := 0
	for i < len(data) && (data[i] == ' ' || data[i] == '\t' || data[i] == '\n' || data[i] == '\r') {
		i++
	}
	if i == len(data) {
		return fmt.Errorf("empty JSON value")
	}
	switch data[i] {
	case 'n':
		*s = Null()
		return nil
	case 't', 'f':
		var v bool
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = Bool(v)
		return nil
	case '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = String(v)
		return nil
	case '{', '[':
		raw := make(json.RawMessage, len(data))
		copy(raw, data)
		*s = Opaque(raw)
		return nil
	default:
		var v float64
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = Number(v)
		return nil
	}
}

// formatNumber renders a float64 without losing precision, preferring the
// plain decimal form for integral values so identities and display stay
// readable ("1000000", not "1e+06").
func formatNumber(n float64) string {
	if n == math.Trunc(n) && math.Abs(n) < 1e15 && !math.IsInf(n, 0) {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	return strconv.FormatFloat(n, 'g', -1, 64)
}
