// Package main checks the knowledge data for consistency and prints a
// pass/fail table. It exits non-zero when any check fails.
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/nnrg-cse/nnrg-assistant-go/internal/knowledge"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/resolver"
)

var fileFlag = flag.String("file", "", "Knowledge YAML file to verify (default: embedded data)")

type verifyResult struct {
	name    string
	passed  bool
	message string
}

// stageProbes are queries the embedded data must route to a given stage.
var stageProbes = []struct {
	query string
	stage string
}{
	{"hello", resolver.StagePersonality},
	{"who is the principal of nnrg", resolver.StagePersonnel},
	{"tell me about cse", resolver.StageDepartment},
	{"bus timing", resolver.StageTransport},
	{"dbms syllabus", resolver.StageSyllabus},
	{"what time is it", resolver.StageDateTime},
	{"campus wifi", resolver.StageFacilities},
	{"is nnrg good", resolver.StageCollegeFacts},
	{"what about the dean", resolver.StageDean},
	{"nnrg", resolver.StageAboutNNRG},
	{"library", resolver.StageCategorySweep},
}

func main() {
	flag.Parse()

	fmt.Println("🔍 NNRG Assistant - Knowledge Verification Tool")
	fmt.Println("===============================================")

	source := "embedded"
	var (
		store *knowledge.Store
		err   error
	)
	if *fileFlag != "" {
		source = *fileFlag
		store, err = knowledge.LoadFile(*fileFlag)
	} else {
		store, err = knowledge.Default()
	}

	results := []verifyResult{{
		name:    "Load and validate",
		passed:  err == nil,
		message: loadMessage(source, err),
	}}
	if err == nil {
		results = append(results, verifyStore(store, *fileFlag == "")...)
	}

	if printResults(results) > 0 {
		os.Exit(1)
	}
}

func loadMessage(source string, err error) string {
	if err != nil {
		return fmt.Sprintf("%s: %v", source, err)
	}
	return source
}

func verifyStore(store *knowledge.Store, embedded bool) []verifyResult {
	results := []verifyResult{verifyStats(store)}
	results = append(results, verifyMessages(store.Messages())...)
	results = append(results, verifyQuickLinks(store)...)
	if embedded {
		results = append(results, verifyStages(resolver.New(store))...)
	}
	return results
}

func verifyStats(store *knowledge.Store) verifyResult {
	stats := store.Stats()
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, stats[k])
	}
	return verifyResult{
		name:    "Store contents",
		passed:  stats["categories"] > 0 && stats["entries"] > 0,
		message: strings.Join(parts, " "),
	}
}

func verifyMessages(m knowledge.Messages) []verifyResult {
	results := []verifyResult{
		nonEmpty("Welcome message", m.Welcome),
		nonEmpty("HOD prompt", m.HODUnspecified),
		nonEmpty("Syllabus prompt", m.SyllabusUnspecified),
		nonEmpty("Connection error message", m.ConnectionError),
		{
			name:    "Site template",
			passed:  strings.Count(m.SiteTemplate, "%s") == 1,
			message: fmt.Sprintf("%d %%s verb(s), want 1", strings.Count(m.SiteTemplate, "%s")),
		},
	}
	for _, style := range knowledge.Styles {
		results = append(results,
			nonEmpty(fmt.Sprintf("Off-topic reply (%s)", style), m.OffTopic[style]),
			nonEmpty(fmt.Sprintf("Fallback reply (%s)", style), m.Fallback[style]),
		)
	}
	return results
}

func nonEmpty(name, text string) verifyResult {
	if strings.TrimSpace(text) == "" {
		return verifyResult{name: name, message: "missing"}
	}
	return verifyResult{name: name, passed: true, message: fmt.Sprintf("%d chars", len([]rune(text)))}
}

func verifyQuickLinks(store *knowledge.Store) []verifyResult {
	links := store.QuickLinks()
	results := []verifyResult{{
		name:    "Quick link count",
		passed:  len(links) > 0 && len(links) < 13,
		message: fmt.Sprintf("%d links (LINE allows 12 plus the reset item)", len(links)),
	}}

	seen := make(map[string]bool, len(links))
	var dupes, blank []string
	for _, l := range links {
		if seen[l.ID] {
			dupes = append(dupes, l.ID)
		}
		seen[l.ID] = true
		if store.Answer(l.Category, l.Key) == "" {
			blank = append(blank, l.ID)
		}
	}
	results = append(results,
		verifyResult{name: "Quick link ids unique", passed: len(dupes) == 0, message: listMessage(dupes)},
		verifyResult{name: "Quick link answers", passed: len(blank) == 0, message: listMessage(blank)},
	)
	return results
}

func verifyStages(r *resolver.Resolver) []verifyResult {
	results := make([]verifyResult, 0, len(stageProbes))
	for _, p := range stageProbes {
		res := r.Resolve(p.query, nil)
		results = append(results, verifyResult{
			name:    fmt.Sprintf("Stage %s", p.stage),
			passed:  res.Found && res.Stage == p.stage,
			message: fmt.Sprintf("%q answered by %q", p.query, res.Stage),
		})
	}
	return results
}

func listMessage(items []string) string {
	if len(items) == 0 {
		return "ok"
	}
	return "offending: " + strings.Join(items, ", ")
}

// printResults prints the table and returns the number of failures.
func printResults(results []verifyResult) int {
	fmt.Println("\n📊 Verification Results:")
	fmt.Println("========================")

	passed, failed := 0, 0
	for _, r := range results {
		status := "❌"
		if r.passed {
			status = "✅"
			passed++
		} else {
			failed++
		}
		fmt.Printf("%s %s: %s\n", status, r.name, r.message)
	}

	fmt.Printf("\n📈 Summary: %d passed, %d failed\n", passed, failed)
	return failed
}
