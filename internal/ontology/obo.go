// Package ontology loads term graphs (GO, FYPO) in OBO format together with
// GAF gene annotations, split by namespace.
package ontology

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

const scannerBufferSize = 1 << 20 // 1 MB

// Term is a single [Term] stanza.
type Term struct {
	ID        string
	Name      string
	Namespace string
	AltIDs    []string
	IsA       []string // direct is_a parents
	PartOf    []string // direct part_of parents
	Obsolete  bool
}

// Parents returns the is_a and part_of parents of the term.
func (t *Term) Parents() []string {
	out := make([]string, 0, len(t.IsA)+len(t.PartOf))
	out = append(out, t.IsA...)
	return append(out, t.PartOf...)
}

// Header holds the OBO document header tags we keep.
type Header struct {
	FormatVersion    string
	DataVersion      string
	Ontology         string
	DefaultNamespace string
}

// ParseOBO reads the [Term] stanzas of an OBO document. Other stanza types
// are skipped. Terms without a namespace get the header default-namespace.
func ParseOBO(r io.Reader) (Header, []*Term, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), scannerBufferSize)

	var hdr Header
	var terms []*Term
	var cur *Term
	inHeader := true
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '!' {
			continue
		}
		if line[0] == '[' {
			inHeader = false
			cur = nil
			if line == "[Term]" {
				cur = &Term{}
				terms = append(terms, cur)
			}
			continue
		}

		key, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		val = stripComment(strings.TrimSpace(val))

		if inHeader {
			parseHeaderLine(&hdr, key, val)
			continue
		}
		if cur == nil {
			continue
		}

		switch key {
		case "id":
			cur.ID = val
		case "name":
			cur.Name = val
		case "namespace":
			cur.Namespace = val
		case "alt_id":
			cur.AltIDs = append(cur.AltIDs, val)
		case "is_a":
			cur.IsA = append(cur.IsA, firstField(val))
		case "relationship":
			// relationship: part_of GO:0005634 ! nucleus
			fields := strings.Fields(val)
			if len(fields) >= 2 && fields[0] == "part_of" {
				cur.PartOf = append(cur.PartOf, fields[1])
			}
		case "is_obsolete":
			cur.Obsolete = val == "true"
		}
	}
	if err := scanner.Err(); err != nil {
		return hdr, nil, fmt.Errorf("read obo line %d: %w", lineNo, err)
	}

	for _, t := range terms {
		if t.Namespace == "" {
			t.Namespace = hdr.DefaultNamespace
		}
	}
	return hdr, terms, nil
}

func parseHeaderLine(hdr *Header, key, val string) {
	switch key {
	case "format-version":
		hdr.FormatVersion = val
	case "data-version":
		hdr.DataVersion = val
	case "ontology":
		hdr.Ontology = val
	case "default-namespace":
		hdr.DefaultNamespace = val
	}
}

// stripComment removes a trailing "! comment".
func stripComment(s string) string {
	if i := strings.Index(s, " !"); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}

func firstField(s string) string {
	if f := strings.Fields(s); len(f) > 0 {
		return f[0]
	}
	return ""
}
