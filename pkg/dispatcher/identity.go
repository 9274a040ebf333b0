package dispatcher

import "github.com/morezero/echo-node/pkg/message"

// Identity is the node's name and cluster membership, installed once by init.
type Identity struct {
	nodeID  string
	nodeIDs []string
}

// NewIdentity validates an init payload's node_id and node_ids. Duplicate
// members are collapsed; nodeID must be one of them.
func NewIdentity(nodeID string, nodeIDs []string) (Identity, error) {
	if nodeID == "" {
		return Identity{}, message.BadRequest("node_id must be a non-empty string")
	}
	seen := make(map[string]bool, len(nodeIDs))
	members := make([]string, 0, len(nodeIDs))
	for _, id := range nodeIDs {
		if id == "" {
			return Identity{}, message.BadRequest("node_ids must not contain empty ids")
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		members = append(members, id)
	}
	if !seen[nodeID] {
		return Identity{}, message.BadRequest("node_id %q is not listed in node_ids", nodeID)
	}
	return Identity{nodeID: nodeID, nodeIDs: members}, nil
}

// NodeID returns this node's id, or "" before init.
func (i Identity) NodeID() string { return i.nodeID }

// NodeIDs returns a copy of the cluster membership, self included.
func (i Identity) NodeIDs() []string {
	return append([]string(nil), i.nodeIDs...)
}

// Peers returns the members other than this node.
func (i Identity) Peers() []string {
	peers := make([]string, 0, len(i.nodeIDs))
	for _, id := range i.nodeIDs {
		if id != i.nodeID {
			peers = append(peers, id)
		}
	}
	return peers
}

// isZero reports whether the identity has not been installed.
func (i Identity) isZero() bool { return i.nodeID == "" }
