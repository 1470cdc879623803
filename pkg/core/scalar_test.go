package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScalar_Encode(t *testing.T) {
	tests := []struct {
		name  string
		value Scalar
		want  string
	}{
		{name: "null", value: Null(), want: "null"},
		{name: "true", value: Bool(true), want: "true"},
		{name: "integer", value: Number(5), want: "5"},
		{name: "large integer stays decimal", value: Number(1000000), want: "1000000"},
		{name: "float", value: Number(2.5), want: "2.5"},
		{name: "string is quoted", value: String("abc"), want: `"abc"`},
		{name: "string null differs from null", value: String("null"), want: `"null"`},
		{name: "string digits differ from number", value: String("5"), want: `"5"`},
		{name: "control chars escaped", value: String("a\x1fb"), want: `"ab"`},
		{name: "opaque prefixed", value: Opaque(json.RawMessage(`{"a":1}`)), want: `j"{\"a\":1}"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.value.Encode())
		})
	}
}

func TestScalar_JSONRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   string
		kind Kind
	}{
		{name: "null", in: `null`, kind: KindNull},
		{name: "bool", in: `true`, kind: KindBool},
		{name: "number", in: `12.5`, kind: KindNumber},
		{name: "string", in: `"hi"`, kind: KindString},
		{name: "object is opaque", in: `{"a":[1,2]}`, kind: KindOpaque},
		{name: "array is opaque", in: `[1,2,3]`, kind: KindOpaque},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s Scalar
			require.NoError(t, json.Unmarshal([]byte(tt.in), &s))
			assert.Equal(t, tt.kind, s.Kind())

			out, err := json.Marshal(s)
			require.NoError(t, err)
			assert.JSONEq(t, tt.in, string(out))
		})
	}
}

func TestScalar_Value(t *testing.T) {
	assert.Nil(t, Null().Value())
	assert.Equal(t, true, Bool(true).Value())
	assert.Equal(t, 3.5, Number(3.5).Value())
	assert.Equal(t, "x", String("x").Value())
}

func TestRow_UnmarshalJSON(t *testing.T) {
	var row Row
	require.NoError(t, json.Unmarshal([]byte(`[1, "a", null, false, {"k":"v"}]`), &row))
	require.Len(t, row, 5)
	assert.Equal(t, KindNumber, row[0].Kind())
	assert.Equal(t, KindString, row[1].Kind())
	assert.Equal(t, KindNull, row[2].Kind())
	assert.Equal(t, KindBool, row[3].Kind())
	assert.Equal(t, KindOpaque, row[4].Kind())
}
