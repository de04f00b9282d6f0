package knowledge

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed data/knowledge.yaml
var defaultData []byte

// DefaultData returns a copy of the embedded knowledge file.
func DefaultData() []byte {
	return bytes.Clone(defaultData)
}

type document struct {
	Categories []struct {
		Name    string `yaml:"name"`
		Entries []struct {
			Key      string `yaml:"key"`
			Text     string `yaml:"text"`
			Computed string `yaml:"computed"`
		} `yaml:"entries"`
	} `yaml:"categories"`
	Syllabus []struct {
		Course string `yaml:"course"`
		Text   string `yaml:"text"`
	} `yaml:"syllabus"`
	Synonyms []struct {
		Term  string   `yaml:"term"`
		Forms []string `yaml:"forms"`
	} `yaml:"synonyms"`
	SubjectAbbreviations    []abbrDoc `yaml:"subject_abbreviations"`
	DepartmentAbbreviations []abbrDoc `yaml:"department_abbreviations"`
	Personality             struct {
		Greetings map[string][]phraseDoc `yaml:"greetings"`
		Questions map[string][]phraseDoc `yaml:"questions"`
	} `yaml:"personality"`
	QuickLinks []struct {
		ID       string `yaml:"id"`
		Label    string `yaml:"label"`
		Emoji    string `yaml:"emoji"`
		Query    string `yaml:"query"`
		Category string `yaml:"category"`
		Key      string `yaml:"key"`
	} `yaml:"quick_links"`
	Messages struct {
		Welcome             string            `yaml:"welcome"`
		HODUnspecified      string            `yaml:"hod_unspecified"`
		SyllabusUnspecified string            `yaml:"syllabus_unspecified"`
		ConnectionError     string            `yaml:"connection_error"`
		SiteTemplate        string            `yaml:"site_template"`
		OffTopic            map[string]string `yaml:"off_topic"`
		Fallback            map[string]string `yaml:"fallback"`
	} `yaml:"messages"`
	OnTopic struct {
		Markers           []string `yaml:"markers"`
		EducationKeywords []string `yaml:"education_keywords"`
		Greetings         []string `yaml:"greetings"`
		BotQuestions      []string `yaml:"bot_questions"`
	} `yaml:"on_topic"`
	SiteKeywords []struct {
		Match    []string `yaml:"match"`
		Category string   `yaml:"category"`
		Key      string   `yaml:"key"`
	} `yaml:"site_keywords"`
}

type abbrDoc struct {
	Abbr string `yaml:"abbr"`
	Name string `yaml:"name"`
}

type phraseDoc struct {
	Key  string `yaml:"key"`
	Text string `yaml:"text"`
}

// Option configures how a store is built.
type Option func(*options)

type options struct {
	now      func() time.Time
	location *time.Location
}

// WithClock sets the clock used by computed entries.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLocation sets the time zone used by computed entries.
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		if loc != nil {
			o.location = loc
		}
	}
}

// Default builds the store from the embedded knowledge file.
func Default(opts ...Option) (*Store, error) {
	return Load(bytes.NewReader(defaultData), opts...)
}

// MustDefault is Default for tests and tools; it panics on a broken
// embedded file.
func MustDefault(opts ...Option) *Store {
	s, err := Default(opts...)
	if err != nil {
		panic(fmt.Sprintf("knowledge: embedded data: %v", err))
	}
	return s
}

// LoadFile builds the store from a YAML file on disk.
func LoadFile(path string, opts ...Option) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open knowledge file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Load(f, opts...)
}

// Load decodes YAML from r, builds the store and validates it.
func Load(r io.Reader, opts ...Option) (*Store, error) {
	o := options{now: time.Now, location: time.Local}
	for _, opt := range opts {
		opt(&o)
	}

	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode knowledge: %w", err)
	}

	s, err := build(&doc, o)
	if err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("validate knowledge: %w", err)
	}
	return s, nil
}

func build(doc *document, o options) (*Store, error) {
	s := &Store{
		greetings: make(map[Style][]Phrase, len(Styles)),
		questions: make(map[Style][]Phrase, len(Styles)),
	}

	var errs []error
	for _, c := range doc.Categories {
		cat := Category{Name: c.Name, Entries: make([]Entry, 0, len(c.Entries))}
		for _, e := range c.Entries {
			switch {
			case e.Computed != "" && e.Text != "":
				errs = append(errs, fmt.Errorf("%s/%s: text and computed are exclusive", c.Name, e.Key))
			case e.Computed != "":
				fn, err := computedValue(e.Computed, o)
				if err != nil {
					errs = append(errs, fmt.Errorf("%s/%s: %w", c.Name, e.Key, err))
					continue
				}
				cat.Entries = append(cat.Entries, Entry{Key: e.Key, Value: fn})
			default:
				cat.Entries = append(cat.Entries, Entry{Key: e.Key, Value: Literal(e.Text)})
			}
		}
		s.categories = append(s.categories, cat)
	}

	for _, sy := range doc.Syllabus {
		s.syllabus = append(s.syllabus, Syllabus{Course: sy.Course, Text: sy.Text})
	}
	for _, syn := range doc.Synonyms {
		s.synonyms = append(s.synonyms, Synonym{Term: syn.Term, Forms: syn.Forms})
	}
	s.subjects = abbreviations(doc.SubjectAbbreviations)
	s.departments = abbreviations(doc.DepartmentAbbreviations)

	for name, list := range doc.Personality.Greetings {
		style, err := ParseStyle(name)
		if err != nil {
			errs = append(errs, fmt.Errorf("greetings: %w", err))
			continue
		}
		s.greetings[style] = phrases(list)
	}
	for name, list := range doc.Personality.Questions {
		style, err := ParseStyle(name)
		if err != nil {
			errs = append(errs, fmt.Errorf("questions: %w", err))
			continue
		}
		s.questions[style] = phrases(list)
	}

	for _, q := range doc.QuickLinks {
		s.quickLinks = append(s.quickLinks, QuickLink(q))
	}
	for _, k := range doc.SiteKeywords {
		s.siteKeys = append(s.siteKeys, SiteKeyword(k))
	}
	s.onTopic = OnTopic(doc.OnTopic)

	m := doc.Messages
	s.messages = Messages{
		Welcome:             m.Welcome,
		HODUnspecified:      m.HODUnspecified,
		SyllabusUnspecified: m.SyllabusUnspecified,
		ConnectionError:     m.ConnectionError,
		SiteTemplate:        m.SiteTemplate,
		OffTopic:            styleMap(m.OffTopic, "off_topic", &errs),
		Fallback:            styleMap(m.Fallback, "fallback", &errs),
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return s, nil
}

func abbreviations(list []abbrDoc) []Abbreviation {
	out := make([]Abbreviation, 0, len(list))
	for _, a := range list {
		out = append(out, Abbreviation(a))
	}
	return out
}

func phrases(list []phraseDoc) []Phrase {
	out := make([]Phrase, 0, len(list))
	for _, p := range list {
		out = append(out, Phrase(p))
	}
	return out
}

func styleMap(in map[string]string, section string, errs *[]error) map[Style]string {
	out := make(map[Style]string, len(in))
	for name, text := range in {
		style, err := ParseStyle(name)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("%s: %w", section, err))
			continue
		}
		out[style] = text
	}
	return out
}

// Validate checks referential integrity of the store.
func (s *Store) Validate() error {
	var errs []error

	if len(s.categories) == 0 {
		errs = append(errs, errors.New("no categories"))
	}
	for _, c := range s.categories {
		for _, e := range c.Entries {
			if e.Key == "" {
				errs = append(errs, fmt.Errorf("category %s: entry without key", c.Name))
			}
			if !e.IsComputed() && e.Text() == "" {
				errs = append(errs, fmt.Errorf("%s/%s: empty answer", c.Name, e.Key))
			}
		}
	}

	for _, q := range s.quickLinks {
		if _, ok := s.Lookup(q.Category, q.Key); !ok {
			errs = append(errs, fmt.Errorf("quick link %s: missing entry %s/%s", q.ID, q.Category, q.Key))
		}
		if q.Query == "" {
			errs = append(errs, fmt.Errorf("quick link %s: empty query", q.ID))
		}
	}
	for _, k := range s.siteKeys {
		if _, ok := s.Lookup(k.Category, k.Key); !ok {
			errs = append(errs, fmt.Errorf("site keyword %v: missing entry %s/%s", k.Match, k.Category, k.Key))
		}
	}

	departments, _ := s.Category("departments")
	hods, _ := s.Category("hod")
	for _, d := range s.departments {
		if _, ok := departments.Find(d.Name); !ok {
			errs = append(errs, fmt.Errorf("department abbreviation %s: missing departments/%s", d.Abbr, d.Name))
		}
		if _, ok := hods.Find(d.Name); !ok {
			errs = append(errs, fmt.Errorf("department abbreviation %s: missing hod/%s", d.Abbr, d.Name))
		}
	}
	if len(s.SynonymForms("syllabus")) == 0 {
		errs = append(errs, errors.New("synonyms: syllabus group is required"))
	}
	if len(s.SynonymForms("transport")) == 0 {
		errs = append(errs, errors.New("synonyms: transport group is required"))
	}

	for _, style := range Styles {
		if len(s.greetings[style]) == 0 {
			errs = append(errs, fmt.Errorf("greetings: style %s missing", style))
		}
		if len(s.questions[style]) == 0 {
			errs = append(errs, fmt.Errorf("questions: style %s missing", style))
		}
		if s.messages.OffTopic[style] == "" {
			errs = append(errs, fmt.Errorf("off_topic: style %s missing", style))
		}
		if s.messages.Fallback[style] == "" {
			errs = append(errs, fmt.Errorf("fallback: style %s missing", style))
		}
	}

	m := s.messages
	for name, v := range map[string]string{
		"welcome":              m.Welcome,
		"hod_unspecified":      m.HODUnspecified,
		"syllabus_unspecified": m.SyllabusUnspecified,
		"connection_error":     m.ConnectionError,
	} {
		if v == "" {
			errs = append(errs, fmt.Errorf("messages.%s is empty", name))
		}
	}
	if strings.Count(m.SiteTemplate, "%s") != 1 {
		errs = append(errs, errors.New("messages.site_template must contain exactly one %s"))
	}

	return errors.Join(errs...)
}
