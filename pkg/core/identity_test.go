package core

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityOf(t *testing.T) {
	columns := []string{"id", "name", "age"}

	tests := []struct {
		name string
		row  Row
		pk   []string
		want string
	}{
		{
			name: "single integer key",
			row:  Row{Number(5), String("Bob"), Number(30)},
			pk:   []string{"id"},
			want: "5",
		},
		{
			name: "composite key joins in declared order",
			row:  Row{Number(5), String("Bob"), Number(30)},
			pk:   []string{"name", "id"},
			want: `"Bob"` + "\x1f" + "5",
		},
		{
			name: "empty pk spec means no identity",
			row:  Row{Number(5), String("Bob"), Number(30)},
			pk:   nil,
			want: "",
		},
		{
			name: "missing pk column encodes as null",
			row:  Row{Number(5)},
			pk:   []string{"age"},
			want: "null",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IdentityOf(tt.row, tt.pk, columns))
		})
	}
}

// Rows that differ only in non-key columns share an identity; rows with
// different key values never collide.
func TestIdentityOf_StableAcrossNonKeyChanges(t *testing.T) {
	columns := []string{"id", "name"}
	a := Row{Number(7), String("before")}
	b := Row{Number(7), String("after")}

	require.Equal(t, IdentityOf(a, []string{"id"}, columns), IdentityOf(b, []string{"id"}, columns))
}

func TestIdentityOf_NoCollisions(t *testing.T) {
	columns := []string{"a", "b", "c"}
	pk := []string{"a", "b"}
	rng := rand.New(rand.NewSource(1))

	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		// Distinct key tuples: a unique integer plus a random string part.
		row := Row{
			Number(float64(i)),
			String(fmt.Sprintf("k-%d-%d", i, rng.Intn(1000))),
			Number(rng.Float64()),
		}
		id := IdentityOf(row, pk, columns)
		_, dup := seen[id]
		require.False(t, dup, "identity collision for row %d: %q", i, id)
		seen[id] = struct{}{}
	}
}

// Adversarial values must not collide through the delimiter.
func TestIdentityOf_DelimiterInjection(t *testing.T) {
	columns := []string{"a", "b"}
	pk := []string{"a", "b"}

	x := Row{String("p\x1fq"), String("r")}
	y := Row{String("p"), String("q\x1fr")}

	assert.NotEqual(t, IdentityOf(x, pk, columns), IdentityOf(y, pk, columns))
}
