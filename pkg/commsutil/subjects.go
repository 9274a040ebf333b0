package commsutil

import (
	"fmt"
	"strings"
)

// Default COMMS subjects.
const (
	SubjectTraffic = "node.traffic"
)

// Traffic directions, relative to the node.
const (
	DirectionIn  = "in"
	DirectionOut = "out"
)

// unnamedNode stands in for the node id before the handshake has completed.
const unnamedNode = "_"

// BuildTrafficSubject builds the subject a traffic event is published on,
// e.g. node.traffic.n1.in.
func BuildTrafficSubject(base, nodeID, direction string) string {
	if base == "" {
		base = SubjectTraffic
	}
	return fmt.Sprintf("%s.%s.%s", base, SubjectToken(nodeID), direction)
}

// SubjectToken makes s usable as a single subject token: dots, wildcards and
// whitespace become underscores; an empty s becomes "_".
func SubjectToken(s string) string {
	if s == "" {
		return unnamedNode
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		}
		return r
	}, s)
}
