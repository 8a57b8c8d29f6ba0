package main

import "strings"

// Role is one symbol from the fixed assignable alphabet. Each group hands
// out every role at most once; a participant keeps theirs until disconnect.
type Role string

// MaxGroups bounds the admin-configurable group count.
const MaxGroups = 10

const (
	answerModeTrust    = "trust"
	answerModeValidate = "validate"
)

// rolePool is the full alphabet, in assignment-display order.
var rolePool = []Role{"A", "B", "C", "D", "E", "F"}

// roleCards holds each role's private symbol card. Exactly one symbol
// ("spiral") appears on every card; finding it is the point of the game.
var roleCards = map[Role][]string{
	"A": {"circle", "square", "spiral", "anchor", "key"},
	"B": {"triangle", "spiral", "ladder", "key", "drum"},
	"C": {"spiral", "clock", "square", "feather", "lantern"},
	"D": {"anchor", "feather", "spiral", "dice", "bell"},
	"E": {"clock", "bell", "spiral", "circle", "mask"},
	"F": {"mask", "drum", "lantern", "spiral", "triangle"},
}

func validRole(r Role) bool {
	_, ok := roleCards[r]
	return ok
}

func roleAlphabet() string {
	names := make([]string, len(rolePool))
	for i, r := range rolePool {
		names[i] = string(r)
	}
	return strings.Join(names, " ")
}

func cardFor(r Role) []string {
	card := roleCards[r]
	out := make([]string, len(card))
	copy(out, card)
	return out
}

func cardHas(r Role, symbol string) bool {
	for _, s := range roleCards[r] {
		if s == symbol {
			return true
		}
	}
	return false
}

// Policy fixes which role sits at the center of the messaging star and
// which role may submit the group answer. Both are set once at startup
// and shared by all groups.
type Policy struct {
	Hub       Role
	Submitter Role
}

// Allowed reports whether a participant holding from may send a private
// message to the participant holding to. The topology is a star: the hub
// talks to everyone, everyone else talks only to the hub, and no role may
// target itself.
func (p Policy) Allowed(from, to Role) bool {
	if !validRole(from) || !validRole(to) || from == to {
		return false
	}
	return from == p.Hub || to == p.Hub
}
