package core

import (
	"fmt"
	"strconv"
)

// ParticipantID identifies a group member. Identities are opaque to the
// engine; the only properties it relies on are equality and ordering.
type ParticipantID int64

// Less orders identities ascending. It is the tie-break used when two
// balances are exactly equal.
func (p ParticipantID) Less(other ParticipantID) bool {
	return p < other
}

func (p ParticipantID) String() string {
	return strconv.FormatInt(int64(p), 10)
}

// ParseParticipantID parses the decimal form produced by String.
func ParseParticipantID(s string) (ParticipantID, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid participant id %q: %w", s, err)
	}
	return ParticipantID(v), nil
}
