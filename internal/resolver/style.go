package resolver

import (
	"strings"

	"github.com/nnrg-cse/nnrg-assistant-go/internal/knowledge"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/textutil"
)

var (
	broMarkers    = []string{"bro", "dude", "yo"}
	casualMarkers = []string{"sup", "hey", "hiya", "wassup", "what's up", "whats up"}
)

// DetectStyle infers the communication style of a single query.
// "yo" also matches inside "you", so "what can you do" reads as bro.
func DetectStyle(query string) knowledge.Style {
	lower := strings.ToLower(query)
	switch {
	case textutil.ContainsAny(lower, broMarkers...):
		return knowledge.StyleBro
	case textutil.ContainsAny(lower, casualMarkers...):
		return knowledge.StyleCasual
	default:
		return knowledge.StyleFormal
	}
}
