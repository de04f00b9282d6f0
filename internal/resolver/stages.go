package resolver

import (
	"strings"

	"github.com/nnrg-cse/nnrg-assistant-go/internal/textutil"
)

// Stage names, in execution order.
const (
	StagePersonality   = "personality"
	StagePersonnel     = "personnel"
	StageDepartment    = "department"
	StageTransport     = "transport"
	StageSyllabus      = "syllabus"
	StageDateTime      = "date_time"
	StageFacilities    = "facilities"
	StageCollegeFacts  = "college_facts"
	StageDean          = "dean"
	StageAboutNNRG     = "about_nnrg"
	StageCategorySweep = "category_sweep"
	StageProgramsFees  = "programs_fees"
	StageMemory        = "memory"
)

// Stage is one named step of the pipeline.
type Stage struct {
	Name string
	run  func(q *Query, mem Memory) (string, bool)
}

func (r *Resolver) buildStages() []Stage {
	return []Stage{
		{StagePersonality, r.personality},
		{StagePersonnel, r.personnel},
		{StageDepartment, r.department},
		{StageTransport, r.transport},
		{StageSyllabus, r.syllabus},
		{StageDateTime, r.dateTime},
		{StageFacilities, r.facilities},
		{StageCollegeFacts, r.collegeFacts},
		{StageDean, r.dean},
		{StageAboutNNRG, r.aboutNNRG},
		{StageCategorySweep, r.categorySweep},
		{StageProgramsFees, r.programsFees},
		{StageMemory, r.memory},
	}
}

func (r *Resolver) personality(q *Query, _ Memory) (string, bool) {
	for _, p := range r.store.Greetings(q.Style) {
		if q.Lower == p.Key || strings.Contains(q.Lower, p.Key) {
			return p.Text, true
		}
	}
	for _, p := range r.store.Questions(q.Style) {
		if strings.Contains(q.Lower, p.Key) {
			return p.Text, true
		}
	}
	return "", false
}

func (r *Resolver) personnel(q *Query, _ Memory) (string, bool) {
	if !r.classifier.IsPersonnel(q.Raw) {
		return "", false
	}
	lower := q.Lower
	if strings.Contains(lower, "nnrg") {
		for _, title := range leaderTitles {
			if strings.Contains(lower, title) {
				return r.answer("about", title)
			}
		}
	}
	if isDepartmentListing(lower) {
		return r.answer("about", "departments")
	}
	if textutil.ContainsAny(lower, hodPhrases...) {
		for _, d := range r.store.DepartmentAbbreviations() {
			if strings.Contains(lower, d.Abbr) {
				return r.answer("hod", d.Name)
			}
		}
		return r.store.Messages().HODUnspecified, true
	}
	return "", false
}

func (r *Resolver) department(q *Query, _ Memory) (string, bool) {
	if strings.Contains(q.Expanded, "hod") || strings.Contains(q.Expanded, "head") {
		return "", false
	}
	for _, d := range r.store.DepartmentAbbreviations() {
		if strings.Contains(q.Expanded, d.Abbr) {
			if text, ok := r.answer("departments", d.Name); ok {
				return text, true
			}
		}
	}
	return "", false
}

func (r *Resolver) transport(q *Query, _ Memory) (string, bool) {
	if !r.classifier.IsTransport(q.Raw) {
		return "", false
	}
	return r.answer("facilities", "transport")
}

// syllabusStopwords are dropped before matching words against course names.
var syllabusStopwords = textutil.Set(
	"syllabus", "course", "subject", "about", "tell", "show", "what",
	"the", "for", "and", "can", "you", "me", "please",
)

func (r *Resolver) syllabus(q *Query, _ Memory) (string, bool) {
	lower := q.Lower
	for _, a := range r.store.SubjectAbbreviations() {
		if strings.Contains(lower, a.Abbr) {
			if text, ok := r.store.SyllabusFor(a.Name); ok {
				return text, true
			}
		}
	}
	entries := r.store.Syllabus()
	for _, s := range entries {
		if strings.Contains(lower, s.Course) {
			return s.Text, true
		}
	}
	if !r.classifier.IsSyllabus(q.Raw) {
		return "", false
	}
	for _, word := range strings.Fields(lower) {
		if len(word) <= 2 {
			continue
		}
		if _, stop := syllabusStopwords[word]; stop {
			continue
		}
		for _, s := range entries {
			if strings.Contains(s.Course, word) || strings.Contains(word, s.Course) {
				return s.Text, true
			}
		}
	}
	return r.store.Messages().SyllabusUnspecified, true
}

func (r *Resolver) dateTime(q *Query, _ Memory) (string, bool) {
	switch {
	case textutil.ContainsAny(q.Expanded, "date", "today"):
		return r.answer("general", "date")
	case textutil.ContainsAny(q.Expanded, "time", "now"):
		return r.answer("general", "time")
	}
	return "", false
}

// facilityRule maps a set of stemmed tokens to a knowledge entry.
type facilityRule struct {
	stems    map[string]struct{}
	category string
	key      string
}

var facilityRules = []facilityRule{
	{textutil.Set("sport", "game", "play", "athlet", "exercis"), "facilities", "sports"},
	{textutil.Set("cafeteria", "canteen", "food", "eat", "dining", "meal"), "facilities", "cafeteria"},
	{textutil.Set("librari", "book", "read", "studi", "journal"), "facilities", "library"},
	{textutil.Set("lab", "laboratori", "workshop", "practic", "experi"), "facilities", "labs"},
	{textutil.Set("event", "fest", "celebr", "function", "activ"), "events", "upcoming"},
	{textutil.Set("ragging", "bully", "harass", "safety", "secur"), "facilities", "anti-ragging"},
	{textutil.Set("medic", "health", "doctor", "clinic", "hospital"), "facilities", "medical facilities"},
	{textutil.Set("hostel", "accommod", "dorm", "resid", "stay"), "facilities", "hostel accommodation"},
	{textutil.Set("wifi", "internet", "connect", "network"), "facilities", "wi-fi campus"},
}

func (r *Resolver) facilities(q *Query, _ Memory) (string, bool) {
	for _, rule := range facilityRules {
		if textutil.AnyIn(q.Stemmed, rule.stems) {
			return r.answer(rule.category, rule.key)
		}
	}
	return "", false
}

func (r *Resolver) collegeFacts(q *Query, _ Memory) (string, bool) {
	college, ok := r.store.Category("college")
	if !ok {
		return "", false
	}
	for _, e := range college.Entries {
		if strings.Contains(q.Expanded, e.Key) {
			return e.Text(), true
		}
	}
	return "", false
}

func (r *Resolver) dean(q *Query, _ Memory) (string, bool) {
	if !strings.Contains(q.Expanded, "dean") {
		return "", false
	}
	return r.answer("about", "dean")
}

var aboutNNRGPhrases = []string{"nnrg", "about nnrg", "tell me about nnrg", "what is nnrg"}

func (r *Resolver) aboutNNRG(q *Query, _ Memory) (string, bool) {
	for _, p := range aboutNNRGPhrases {
		if q.Expanded == p {
			return r.answer("about", "nnrg")
		}
	}
	return "", false
}

func (r *Resolver) categorySweep(q *Query, _ Memory) (string, bool) {
	for _, c := range r.store.Categories() {
		for _, e := range c.Entries {
			if strings.Contains(q.Expanded, e.Key) {
				return e.Text(), true
			}
		}
	}
	return "", false
}

var (
	programStems = textutil.Set("program", "cours", "degre", "studi")
	feeStems     = textutil.Set("fee", "cost", "tuition", "payment", "expens")
)

func (r *Resolver) programsFees(q *Query, _ Memory) (string, bool) {
	switch {
	case textutil.AnyIn(q.Stemmed, programStems):
		return r.answer("academics", "ug programs")
	case textutil.AnyIn(q.Stemmed, feeStems):
		return r.answer("academics", "fee structure")
	}
	return "", false
}

func (r *Resolver) memory(q *Query, mem Memory) (string, bool) {
	if mem == nil {
		return "", false
	}
	for _, t := range mem.Turns() {
		if textutil.Similarity(q.Expanded, t.Query) > r.threshold {
			return t.Response, true
		}
	}
	return "", false
}

func (r *Resolver) answer(category, key string) (string, bool) {
	e, ok := r.store.Lookup(category, key)
	if !ok {
		return "", false
	}
	return e.Text(), true
}
