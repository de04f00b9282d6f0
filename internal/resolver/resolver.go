// Package resolver implements the rule-based query resolution pipeline:
// synonym and abbreviation expansion, topic classification, knowledge
// lookups and a similarity search over the session's prior turns.
//
// Resolution runs an ordered list of named stages and stops at the first
// stage that produces an answer. The order is the tie-break between
// overlapping keyword sets and is exposed by Stages.
package resolver

import (
	"strings"

	"github.com/nnrg-cse/nnrg-assistant-go/internal/knowledge"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/session"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/textutil"
)

// DefaultMemoryThreshold is the similarity a prior turn must exceed to be
// reused.
const DefaultMemoryThreshold = 0.7

// Memory is the view of conversation memory the resolver needs.
type Memory interface {
	Turns() []session.Turn
}

// Query is the set of derived forms of one raw query. The raw text is
// never modified.
type Query struct {
	Raw      string
	Lower    string
	Expanded string
	Stemmed  []string
	Style    knowledge.Style
}

// Result is the outcome of Resolve.
type Result struct {
	Answer string
	// Stage is the name of the stage that answered, empty when Found is false.
	Stage string
	Found bool
	Query Query
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithMemoryThreshold overrides DefaultMemoryThreshold.
func WithMemoryThreshold(threshold float64) Option {
	return func(r *Resolver) {
		if threshold > 0 && threshold <= 1 {
			r.threshold = threshold
		}
	}
}

// Resolver runs the pipeline. It holds no per-session state and is safe
// for concurrent use.
type Resolver struct {
	store      *knowledge.Store
	expander   *Expander
	classifier *Classifier
	threshold  float64
	stages     []Stage
}

// New creates a resolver over store.
func New(store *knowledge.Store, opts ...Option) *Resolver {
	r := &Resolver{
		store:      store,
		expander:   NewExpander(store),
		classifier: NewClassifier(store),
		threshold:  DefaultMemoryThreshold,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.stages = r.buildStages()
	return r
}

// Store returns the knowledge store the resolver reads.
func (r *Resolver) Store() *knowledge.Store { return r.store }

// Expander returns the query expander.
func (r *Resolver) Expander() *Expander { return r.expander }

// Classifier returns the topic classifier.
func (r *Resolver) Classifier() *Classifier { return r.classifier }

// Stages returns the stage names in execution order.
func (r *Resolver) Stages() []string {
	names := make([]string, len(r.stages))
	for i, s := range r.stages {
		names[i] = s.Name
	}
	return names
}

// Prepare derives the lowercase, expanded and stemmed forms of raw.
func (r *Resolver) Prepare(raw string) Query {
	expanded := r.expander.Expand(raw)
	return Query{
		Raw:      raw,
		Lower:    strings.ToLower(raw),
		Expanded: expanded,
		Stemmed:  textutil.StemAll(textutil.Tokenize(expanded)),
		Style:    DetectStyle(raw),
	}
}

// Resolve runs every stage in order against raw and returns the first
// answer. mem may be nil. Resolve does not modify mem.
func (r *Resolver) Resolve(raw string, mem Memory) Result {
	q := r.Prepare(raw)
	for _, s := range r.stages {
		if answer, ok := s.run(&q, mem); ok {
			return Result{Answer: answer, Stage: s.Name, Found: true, Query: q}
		}
	}
	return Result{Query: q}
}
