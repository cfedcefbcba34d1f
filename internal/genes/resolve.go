package genes

import (
	"fmt"
	"strings"
)

// SplitTokens splits free text into gene tokens. Commas are treated as line
// breaks, every token is trimmed and empty tokens are dropped.
func SplitTokens(text string) []string {
	text = strings.ReplaceAll(text, ",", "\n")
	var tokens []string
	for _, line := range strings.Split(text, "\n") {
		if tok := strings.TrimSpace(line); tok != "" {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

// Resolution is the outcome of resolving a list of gene tokens.
type Resolution struct {
	Total      int      // non-empty tokens examined
	Resolved   []string // systematic IDs, in token order
	Unresolved []string // tokens matching neither an ID nor a name, in token order
}

// Resolve maps tokens to systematic IDs. A token is looked up as a
// systematic ID first and as a display name second; matching is exact and
// case-sensitive. Tokens are trimmed and empty tokens are skipped.
// Unmatched tokens are reported in Unresolved rather than returned as an error.
func Resolve(tokens []string, idToName, nameToID map[string]string) Resolution {
	var res Resolution
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		res.Total++
		if _, ok := idToName[tok]; ok {
			res.Resolved = append(res.Resolved, tok)
			continue
		}
		if id, ok := nameToID[tok]; ok {
			res.Resolved = append(res.Resolved, id)
			continue
		}
		res.Unresolved = append(res.Unresolved, tok)
	}
	return res
}

// Resolve resolves tokens against the table's IDs and names.
func (t *Table) Resolve(tokens []string) Resolution {
	return Resolve(tokens, t.idToName, t.nameToID)
}

// Summary renders the resolution counts for display.
func (r Resolution) Summary() string {
	return fmt.Sprintf("There are %d genes in the list.\n%d were found.\nThe following %d genes were not found:\n%s",
		r.Total, len(r.Resolved), len(r.Unresolved), strings.Join(r.Unresolved, "\n"))
}
