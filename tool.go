package warden

import (
	"maps"
	"slices"
)

// ToolDescriptor is a static catalog entry describing an external capability.
// Read-only reference data, not persisted state.
type ToolDescriptor struct {
	ID          string
	Name        string
	Description string
}

// catalog is the static tool catalog. Conversations reference entries by ID
// but do not own them.
var catalog = []ToolDescriptor{
	{ID: "do-nmap", Name: "Nmap Scanner", Description: "Network exploration and security auditing tool"},
	{ID: "do-sqlmap", Name: "SQLMap", Description: "Automatic SQL injection detection tool"},
	{ID: "do-ffuf", Name: "FFUF", Description: "Fast web fuzzer written in Go"},
	{ID: "do-masscan", Name: "Masscan", Description: "TCP port scanner, asynchronous"},
	{ID: "do-sslscan", Name: "SSLScan", Description: "Tests SSL/TLS enabled services"},
}

// Catalog returns the static tool catalog in display order.
func Catalog() []ToolDescriptor {
	return slices.Clone(catalog)
}

// ToolName returns the display name for a tool ID, falling back to the ID
// itself for unknown tools.
func ToolName(id string) string {
	for _, t := range catalog {
		if t.ID == id {
			return t.Name
		}
	}
	return id
}

// ToolSet is a set of activated tool IDs. Union is the only mutation path:
// the set never shrinks for the lifetime of its conversation.
type ToolSet map[string]struct{}

// NewToolSet creates a ToolSet from the given IDs.
func NewToolSet(ids ...string) ToolSet {
	s := make(ToolSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports whether id is in the set.
func (s ToolSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Union returns a new set containing every member of s plus the given IDs.
// Adding an already-present ID is a no-op.
func (s ToolSet) Union(ids []string) ToolSet {
	out := make(ToolSet, len(s)+len(ids))
	maps.Copy(out, s)
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}

// IDs returns the members in sorted order.
func (s ToolSet) IDs() []string {
	return slices.Sorted(maps.Keys(s))
}

// Len returns the number of members.
func (s ToolSet) Len() int { return len(s) }
