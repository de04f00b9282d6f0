package resolver

import (
	"strings"

	"github.com/nnrg-cse/nnrg-assistant-go/internal/knowledge"
)

// Expander appends canonical terms to a query whenever a synonym, subject
// abbreviation or department abbreviation occurs in it as a substring.
// The original text is kept; terms are only appended.
type Expander struct {
	synonyms    []knowledge.Synonym
	subjects    []knowledge.Abbreviation
	departments []knowledge.Abbreviation
	canonical   []string
}

// NewExpander creates an expander over the store's vocabularies.
func NewExpander(store *knowledge.Store) *Expander {
	e := &Expander{
		synonyms:    store.Synonyms(),
		subjects:    store.SubjectAbbreviations(),
		departments: store.DepartmentAbbreviations(),
	}
	for _, syn := range e.synonyms {
		e.canonical = append(e.canonical, syn.Term)
	}
	for _, a := range e.subjects {
		e.canonical = append(e.canonical, a.Name)
	}
	for _, a := range e.departments {
		e.canonical = append(e.canonical, a.Name)
	}
	return e
}

// Expand returns the lowercased query followed by its canonical terms.
//
// Matching is plain substring containment, so short keys fire inside
// longer words ("os" in "hostel"). An input that already is the expansion
// of one of its own prefixes is returned unchanged, which makes Expand
// idempotent.
func (e *Expander) Expand(query string) string {
	lower := strings.ToLower(query)
	for i := 0; i < len(lower); i++ {
		if lower[i] == ' ' && e.termAt(lower[i+1:]) && e.expandLower(lower[:i]) == lower {
			return lower
		}
	}
	return e.expandLower(lower)
}

// Terms returns the canonical terms Expand would append, in order.
func (e *Expander) Terms(query string) []string {
	return e.terms(strings.ToLower(query))
}

// termAt reports whether s starts with a canonical term. Only such
// positions can end the original text of a prior expansion.
func (e *Expander) termAt(s string) bool {
	for _, t := range e.canonical {
		if strings.HasPrefix(s, t) {
			return true
		}
	}
	return false
}

func (e *Expander) expandLower(lower string) string {
	terms := e.terms(lower)
	if len(terms) == 0 {
		return lower
	}
	var b strings.Builder
	b.Grow(len(lower) + 16*len(terms))
	b.WriteString(lower)
	for _, t := range terms {
		b.WriteByte(' ')
		b.WriteString(t)
	}
	return b.String()
}

func (e *Expander) terms(lower string) []string {
	var terms []string
	for _, syn := range e.synonyms {
		for _, form := range syn.Forms {
			if strings.Contains(lower, form) {
				terms = append(terms, syn.Term)
				break
			}
		}
	}
	for _, a := range e.subjects {
		if strings.Contains(lower, a.Abbr) {
			terms = append(terms, a.Name)
		}
	}
	for _, a := range e.departments {
		if strings.Contains(lower, a.Abbr) {
			terms = append(terms, a.Name)
		}
	}
	return terms
}
