package notification

import (
	"github.com/trezcool/masomo-absences/core/roster"
)

// RecipientSet is an insertion-ordered set of roster entries, deduplicated by id.
type RecipientSet struct {
	entries []roster.Entry
	seen    map[string]bool
}

func NewRecipientSet() *RecipientSet {
	return &RecipientSet{seen: make(map[string]bool)}
}

// Add appends the entries not already in the set; the first occurrence wins.
func (rs *RecipientSet) Add(entries ...roster.Entry) {
	for _, e := range entries {
		if e.ID == "" || rs.seen[e.ID] {
			continue
		}
		rs.seen[e.ID] = true
		rs.entries = append(rs.entries, e)
	}
}

func (rs *RecipientSet) Has(id string) bool { return rs.seen[id] }
func (rs *RecipientSet) Len() int           { return len(rs.entries) }

func (rs *RecipientSet) Entries() []roster.Entry {
	out := make([]roster.Entry, len(rs.entries))
	copy(out, rs.entries)
	return out
}

func (rs *RecipientSet) IDs() []string {
	ids := make([]string, 0, len(rs.entries))
	for _, e := range rs.entries {
		ids = append(ids, e.ID)
	}
	return ids
}
