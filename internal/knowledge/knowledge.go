// Package knowledge holds the static knowledge base of the assistant:
// categorized topic entries, syllabus texts, synonym groups, subject and
// department abbreviations, personality lines and canned messages.
//
// Every collection is an ordered slice. Lookups that scan for the first
// match rely on that order, so the data file order is part of the
// behaviour.
package knowledge

import (
	"fmt"
	"strings"
)

// Style is the communication style inferred from a user's query.
type Style string

// Supported styles. StyleFormal is the default.
const (
	StyleFormal Style = "formal"
	StyleCasual Style = "casual"
	StyleBro    Style = "bro"
)

// Styles lists every style in a stable order.
var Styles = []Style{StyleFormal, StyleCasual, StyleBro}

// ParseStyle converts s into a Style.
func ParseStyle(s string) (Style, error) {
	switch Style(strings.ToLower(strings.TrimSpace(s))) {
	case StyleFormal:
		return StyleFormal, nil
	case StyleCasual:
		return StyleCasual, nil
	case StyleBro:
		return StyleBro, nil
	}
	return StyleFormal, fmt.Errorf("unknown style %q", s)
}

// Value is the answer held by an entry: either Literal or Computed.
type Value interface {
	Render() string
	isValue()
}

// Literal is a fixed answer text.
type Literal string

// Render returns the text itself.
func (l Literal) Render() string { return string(l) }
func (Literal) isValue()         {}

// Computed produces its answer when rendered (current date, current time).
type Computed func() string

// Render evaluates the closure.
func (c Computed) Render() string { return c() }
func (Computed) isValue()         {}

// Entry maps a topic key to its answer.
type Entry struct {
	Key   string
	Value Value
}

// Text renders the entry's answer.
func (e Entry) Text() string {
	if e.Value == nil {
		return ""
	}
	return e.Value.Render()
}

// IsComputed reports whether the entry is evaluated on demand.
func (e Entry) IsComputed() bool {
	_, ok := e.Value.(Computed)
	return ok
}

// Category is a named, ordered group of entries.
type Category struct {
	Name    string
	Entries []Entry
}

// Find returns the entry with key.
func (c Category) Find(key string) (Entry, bool) {
	for _, e := range c.Entries {
		if e.Key == key {
			return e, true
		}
	}
	return Entry{}, false
}

// Syllabus is the syllabus text of one course.
type Syllabus struct {
	Course string
	Text   string
}

// Synonym maps alternate surface forms to a canonical term.
type Synonym struct {
	Term  string
	Forms []string
}

// Abbreviation maps a short form to its canonical name.
type Abbreviation struct {
	Abbr string
	Name string
}

// Phrase is a trigger key with its canned reply.
type Phrase struct {
	Key  string
	Text string
}

// QuickLink is a fixed shortcut that answers straight from the store.
type QuickLink struct {
	ID       string
	Label    string
	Emoji    string
	Query    string
	Category string
	Key      string
}

// SiteKeyword routes expanded-query substrings to an entry for the site
// data responder.
type SiteKeyword struct {
	Match    []string
	Category string
	Key      string
}

// OnTopic holds the vocabularies that mark a query as relevant.
type OnTopic struct {
	Markers           []string
	EducationKeywords []string
	Greetings         []string
	BotQuestions      []string
}

// Messages are the canned texts used outside the topic entries.
type Messages struct {
	Welcome             string
	HODUnspecified      string
	SyllabusUnspecified string
	ConnectionError     string
	// SiteTemplate has a single %s verb for the user's query.
	SiteTemplate string
	OffTopic     map[Style]string
	Fallback     map[Style]string
}

// OffTopicFor returns the off-topic refusal for style.
func (m Messages) OffTopicFor(style Style) string {
	if s, ok := m.OffTopic[style]; ok {
		return s
	}
	return m.OffTopic[StyleFormal]
}

// FallbackFor returns the static apology for style.
func (m Messages) FallbackFor(style Style) string {
	if s, ok := m.Fallback[style]; ok {
		return s
	}
	return m.Fallback[StyleFormal]
}

// SiteText renders the "visit the website" template for query.
func (m Messages) SiteText(query string) string {
	return fmt.Sprintf(m.SiteTemplate, query)
}

// Store is the immutable knowledge base.
// It is safe for concurrent use once built.
type Store struct {
	categories  []Category
	syllabus    []Syllabus
	synonyms    []Synonym
	subjects    []Abbreviation
	departments []Abbreviation
	greetings   map[Style][]Phrase
	questions   map[Style][]Phrase
	quickLinks  []QuickLink
	siteKeys    []SiteKeyword
	onTopic     OnTopic
	messages    Messages
}

// Categories returns the categories in scan order.
func (s *Store) Categories() []Category { return s.categories }

// Category returns the category called name.
func (s *Store) Category(name string) (Category, bool) {
	for _, c := range s.categories {
		if c.Name == name {
			return c, true
		}
	}
	return Category{}, false
}

// Lookup returns the entry category/key.
func (s *Store) Lookup(category, key string) (Entry, bool) {
	c, ok := s.Category(category)
	if !ok {
		return Entry{}, false
	}
	return c.Find(key)
}

// Answer renders category/key, or returns "" when absent.
func (s *Store) Answer(category, key string) string {
	e, ok := s.Lookup(category, key)
	if !ok {
		return ""
	}
	return e.Text()
}

// Syllabus returns the syllabus entries in scan order.
func (s *Store) Syllabus() []Syllabus { return s.syllabus }

// SyllabusFor returns the syllabus text of course.
func (s *Store) SyllabusFor(course string) (string, bool) {
	for _, sy := range s.syllabus {
		if sy.Course == course {
			return sy.Text, true
		}
	}
	return "", false
}

// Synonyms returns the synonym groups in scan order.
func (s *Store) Synonyms() []Synonym { return s.synonyms }

// SynonymForms returns the surface forms of term.
func (s *Store) SynonymForms(term string) []string {
	for _, syn := range s.synonyms {
		if syn.Term == term {
			return syn.Forms
		}
	}
	return nil
}

// SubjectAbbreviations returns the subject-level abbreviation map.
func (s *Store) SubjectAbbreviations() []Abbreviation { return s.subjects }

// DepartmentAbbreviations returns the department-level abbreviation map.
func (s *Store) DepartmentAbbreviations() []Abbreviation { return s.departments }

// Greetings returns the greeting phrases for style.
func (s *Store) Greetings(style Style) []Phrase { return s.greetings[style] }

// Questions returns the self-referential question phrases for style.
func (s *Store) Questions(style Style) []Phrase { return s.questions[style] }

// QuickLinks returns the quick links in display order.
func (s *Store) QuickLinks() []QuickLink { return s.quickLinks }

// QuickLink returns the quick link with id.
func (s *Store) QuickLink(id string) (QuickLink, bool) {
	for _, q := range s.quickLinks {
		if q.ID == id {
			return q, true
		}
	}
	return QuickLink{}, false
}

// SiteKeywords returns the site responder routing table.
func (s *Store) SiteKeywords() []SiteKeyword { return s.siteKeys }

// OnTopic returns the on-topic vocabularies.
func (s *Store) OnTopic() OnTopic { return s.onTopic }

// Messages returns the canned messages.
func (s *Store) Messages() Messages { return s.messages }

// Stats summarizes the store contents, for logs and the verify tool.
func (s *Store) Stats() map[string]int {
	entries := 0
	for _, c := range s.categories {
		entries += len(c.Entries)
	}
	return map[string]int{
		"categories":  len(s.categories),
		"entries":     entries,
		"syllabus":    len(s.syllabus),
		"synonyms":    len(s.synonyms),
		"subjects":    len(s.subjects),
		"departments": len(s.departments),
		"quick_links": len(s.quickLinks),
	}
}
