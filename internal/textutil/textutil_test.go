package textutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"simple", "Hello World", []string{"hello", "world"}},
		{"punctuation runs", "what's up?!", []string{"what", "s", "up"}},
		{"leading and trailing separators", "  --bus timing--  ", []string{"bus", "timing"}},
		{"underscore is a word char", "snake_case word", []string{"snake_case", "word"}},
		{"digits", "M1 and m2", []string{"m1", "and", "m2"}},
		{"hyphen splits", "anti-ragging", []string{"anti", "ragging"}},
		{"non ascii separates", "café menu", []string{"caf", "menu"}},
		{"empty", "", []string{}},
		{"only separators", " ,.; ", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Tokenize(tt.input))
		})
	}
}

func TestStem(t *testing.T) {
	t.Parallel()
	tests := []struct {
		word string
		want string
	}{
		{"bus", "bus"},
		{"eat", "eat"},
		{"ring", "r"},
		{"timing", "tim"},
		{"playing", "play"},
		{"played", "play"},
		{"books", "book"},
		{"library", "library"},
		{"studies", "studie"},
		{"syllabus", "syllabu"},
		{"need", "ne"},
		{"things", "thing"},
		{"seed", "se"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Stem(tt.word), "Stem(%q)", tt.word)
	}
}

func TestSimilarity(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "exam results", "exam results", 1},
		{"stemmed forms match", "exam result", "exams results", 1},
		{"disjoint", "library", "hostel", 0},
		{"partial", "when are the exam results out", "when are exam results out", 5.0 / 6.0},
		{"duplicates count once", "bus bus bus", "bus route", 0.5},
		{"both empty", "", "   ", 0},
		{"one empty", "hello", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, Similarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestContainsAny(t *testing.T) {
	t.Parallel()
	assert.True(t, ContainsAny("what is the syllabus", "bus", "train"))
	assert.False(t, ContainsAny("hostel", "bus", "train"))
	assert.False(t, ContainsAny("anything"))
}

func TestFirstContained(t *testing.T) {
	t.Parallel()
	got, ok := FirstContained("tell me about the canteen", []string{"food court", "canteen", "mess"})
	assert.True(t, ok)
	assert.Equal(t, "canteen", got)

	_, ok = FirstContained("library", []string{"canteen"})
	assert.False(t, ok)
}

func TestTruncate(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "hello", Truncate("hello", 10))
	assert.Equal(t, "hel...", Truncate("hello", 3))
	assert.Equal(t, "👋👋...", Truncate("👋👋👋", 2))
	assert.Equal(t, "", Truncate("hello", 0))
}

func TestIsBlank(t *testing.T) {
	t.Parallel()
	assert.True(t, IsBlank(""))
	assert.True(t, IsBlank(" \t\n"))
	assert.False(t, IsBlank(" a "))
}
