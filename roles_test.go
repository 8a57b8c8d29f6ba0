package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyStarTopology(t *testing.T) {
	p := Policy{Hub: "B", Submitter: "C"}

	tests := []struct {
		from, to Role
		want     bool
	}{
		{"A", "B", true},  // spoke to hub
		{"B", "A", true},  // hub to spoke
		{"A", "C", false}, // spoke to spoke
		{"B", "B", false}, // hub to itself
		{"A", "A", false}, // spoke to itself
		{"B", "F", true},
		{"F", "B", true},
		{"Z", "B", false}, // unknown sender
		{"B", "Z", false}, // unknown recipient
	}

	for _, tc := range tests {
		assert.Equalf(t, tc.want, p.Allowed(tc.from, tc.to), "Allowed(%s, %s)", tc.from, tc.to)
	}
}

func TestCardsShareExactlyOneSymbol(t *testing.T) {
	shared := map[string]int{}
	for _, role := range rolePool {
		for _, symbol := range roleCards[role] {
			shared[symbol]++
		}
	}

	var common []string
	for symbol, n := range shared {
		if n == len(rolePool) {
			common = append(common, symbol)
		}
	}

	require.Equal(t, []string{"spiral"}, common)
}

func TestCardForReturnsCopy(t *testing.T) {
	card := cardFor("A")
	require.NotEmpty(t, card)

	card[0] = "tampered"
	assert.NotEqual(t, "tampered", roleCards["A"][0])
}

func TestCardHas(t *testing.T) {
	assert.True(t, cardHas("A", "spiral"))
	assert.True(t, cardHas("A", "circle"))
	assert.False(t, cardHas("B", "circle"))
	assert.False(t, cardHas("Z", "spiral"))
}

func TestValidRole(t *testing.T) {
	for _, role := range rolePool {
		assert.True(t, validRole(role))
	}
	assert.False(t, validRole("G"))
	assert.False(t, validRole(""))
}
