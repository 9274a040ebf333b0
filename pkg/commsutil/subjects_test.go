package commsutil

import "testing"

func TestBuildTrafficSubject(t *testing.T) {
	tests := []struct {
		name      string
		base      string
		nodeID    string
		direction string
		want      string
	}{
		{"inbound", "node.traffic", "n1", DirectionIn, "node.traffic.n1.in"},
		{"outbound", "node.traffic", "n1", DirectionOut, "node.traffic.n1.out"},
		{"before init", "node.traffic", "", DirectionIn, "node.traffic._.in"},
		{"default base", "", "n2", DirectionOut, "node.traffic.n2.out"},
		{"custom base", "harness.tap", "n3", DirectionIn, "harness.tap.n3.in"},
		{"dotted node id", "node.traffic", "dc1.n1", DirectionIn, "node.traffic.dc1_n1.in"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildTrafficSubject(tt.base, tt.nodeID, tt.direction)
			if got != tt.want {
				t.Errorf("BuildTrafficSubject(%q, %q, %q) = %q, want %q", tt.base, tt.nodeID, tt.direction, got, tt.want)
			}
		})
	}
}

func TestSubjectToken(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"n1", "n1"},
		{"", "_"},
		{"a.b", "a_b"},
		{"*", "_"},
		{"a>b", "a_b"},
		{"node one", "node_one"},
	}
	for _, tt := range tests {
		if got := SubjectToken(tt.in); got != tt.want {
			t.Errorf("SubjectToken(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
