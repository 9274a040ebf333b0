// Package events defines traffic events and the publishers that carry them
// off the node. Publishing is observational: it never affects replies.
package events

// TrafficEvent describes one wire line read or written by the node.
type TrafficEvent struct {
	Session   string `json:"session"`
	Node      string `json:"node,omitempty"`
	Direction string `json:"direction"`
	Type      string `json:"type,omitempty"`
	Line      string `json:"line"`
	Timestamp string `json:"timestamp"`
}
