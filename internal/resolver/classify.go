package resolver

import (
	"strings"

	"github.com/nnrg-cse/nnrg-assistant-go/internal/knowledge"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/textutil"
)

// Context words that turn a "bus" mention into a transport question.
var transportContext = []string{"transport", "travel", "timing", "route", "service"}

// Context words that make a subject abbreviation read as a syllabus question.
var syllabusContext = []string{
	"syllabus", "course", "subject", "curriculum", "teach", "learn", "study",
	"content", "topics", "units", "chapters", "what is in", "what's in",
	"tell me about", "show me", "explain",
}

var (
	leaderTitles   = []string{"director", "principal", "chairman"}
	hodPhrases     = []string{"hod", "head of department", "department head"}
	deptListPhrase = []string{"how many", "what are", "list"}
	whoPhrases     = []string{"who", "name"}
)

// Classifier holds the topic predicates. Every predicate lowercases the
// raw query and tests substrings; none of them look at the expansion.
type Classifier struct {
	store    *knowledge.Store
	syllabus []string
	trans    []string
}

// NewClassifier creates a classifier over the store's vocabularies.
func NewClassifier(store *knowledge.Store) *Classifier {
	return &Classifier{
		store:    store,
		syllabus: store.SynonymForms("syllabus"),
		trans:    store.SynonymForms("transport"),
	}
}

// OnTopic reports whether the query concerns the institution or education.
// Checked in order: institution markers, education keywords, knowledge
// keys, synonyms, basic greetings, questions about the assistant.
func (c *Classifier) OnTopic(query string) bool {
	lower := strings.ToLower(query)
	vocab := c.store.OnTopic()

	if textutil.ContainsAny(lower, vocab.Markers...) {
		return true
	}
	if textutil.ContainsAny(lower, vocab.EducationKeywords...) {
		return true
	}
	for _, cat := range c.store.Categories() {
		for _, e := range cat.Entries {
			if strings.Contains(lower, e.Key) {
				return true
			}
		}
	}
	for _, syn := range c.store.Synonyms() {
		if textutil.ContainsAny(lower, syn.Forms...) {
			return true
		}
	}
	if textutil.ContainsAny(lower, vocab.Greetings...) {
		return true
	}
	return textutil.ContainsAny(lower, vocab.BotQuestions...)
}

// busWithTransportContext reports "bus" plus a transport context word.
func busWithTransportContext(lower string) bool {
	return strings.Contains(lower, "bus") && textutil.ContainsAny(lower, transportContext...)
}

// IsSyllabus reports whether the query asks for a syllabus. A syllabus
// synonym counts unless "bus" appears with a transport context word; a
// subject abbreviation counts when a syllabus context word is present.
func (c *Classifier) IsSyllabus(query string) bool {
	lower := strings.ToLower(query)
	if textutil.ContainsAny(lower, c.syllabus...) {
		return !busWithTransportContext(lower)
	}
	for _, a := range c.store.SubjectAbbreviations() {
		if strings.Contains(lower, a.Abbr) && textutil.ContainsAny(lower, syllabusContext...) {
			return true
		}
	}
	return false
}

// IsTransport reports whether the query asks about transport: "bus" with a
// transport context word, "bus" with no syllabus synonym around it, or any
// transport synonym on its own. "bus" next to a syllabus synonym without
// context stays a syllabus question.
func (c *Classifier) IsTransport(query string) bool {
	lower := strings.ToLower(query)
	if busWithTransportContext(lower) {
		return true
	}
	if strings.Contains(lower, "bus") && !textutil.ContainsAny(lower, c.syllabus...) {
		return true
	}
	return textutil.ContainsAny(lower, c.trans...)
}

// IsPersonnel reports whether the query asks about college personnel.
func (c *Classifier) IsPersonnel(query string) bool {
	lower := strings.ToLower(query)
	switch {
	case textutil.ContainsAny(lower, leaderTitles...) && strings.Contains(lower, "nnrg"):
		return true
	case textutil.ContainsAny(lower, hodPhrases...) && textutil.ContainsAny(lower, whoPhrases...):
		return true
	case isDepartmentListing(lower):
		return true
	}
	return false
}

func isDepartmentListing(lower string) bool {
	return strings.Contains(lower, "department") && textutil.ContainsAny(lower, deptListPhrase...)
}
