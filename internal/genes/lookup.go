package genes

// MatchKind says which identifier a lookup matched on.
type MatchKind string

const (
	MatchID      MatchKind = "systematic_id"
	MatchName    MatchKind = "name"
	MatchSynonym MatchKind = "synonym"
)

// Match is the result of looking up a single gene reference.
type Match struct {
	Query string
	Kind  MatchKind
	Gene  *Gene
}

// Updated reports whether the query was an outdated synonym.
func (m *Match) Updated() bool {
	return m.Kind == MatchSynonym
}

// Lookup finds the gene referred to by query, trying the systematic ID, the
// display name and finally the synonyms.
func (t *Table) Lookup(query string) (*Match, bool) {
	if g, ok := t.byID[query]; ok {
		return &Match{Query: query, Kind: MatchID, Gene: g}, true
	}
	if id, ok := t.nameToID[query]; ok {
		return &Match{Query: query, Kind: MatchName, Gene: t.byID[id]}, true
	}
	if id, ok := t.synonymToID[query]; ok {
		return &Match{Query: query, Kind: MatchSynonym, Gene: t.byID[id]}, true
	}
	return nil, false
}
