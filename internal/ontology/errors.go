package ontology

import (
	"fmt"
	"strings"
)

// MalformedOntologyError reports a term graph that is not a valid DAG:
// a cycle, a self parent, a duplicate or empty ID, or an is_a edge to an
// undefined term.
type MalformedOntologyError struct {
	Reason string
	Terms  []string
}

func (e *MalformedOntologyError) Error() string {
	if len(e.Terms) == 0 {
		return "malformed ontology: " + e.Reason
	}
	return fmt.Sprintf("malformed ontology: %s: %s", e.Reason, strings.Join(e.Terms, ", "))
}
