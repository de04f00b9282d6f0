package genai

import (
	"strings"

	"github.com/nnrg-cse/nnrg-assistant-go/internal/knowledge"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/session"
)

const institutionContext = `You are an AI assistant for NNRG (Nalla Narasimha Reddy Education Society's Group of Institutions), a premier educational institution in Hyderabad, India.
Provide helpful, accurate, and concise information about the college.
Format your responses in a readable way with line breaks between paragraphs.
If you don't know the answer, suggest the user to visit the official website (https://nnrg.edu.in/) or contact the college directly.
Only answer questions related to NNRG or education. If asked about unrelated topics, politely explain you were developed specifically for NNRG-related queries.
If asked who created you or who developed you, mention that you were developed by CSE B 4th year students.`

// StyleDirective returns the tone instruction for style.
func StyleDirective(style knowledge.Style) string {
	switch style {
	case knowledge.StyleBro:
		return `Use casual, friendly language with terms like "bro" in your responses.`
	case knowledge.StyleCasual:
		return "Use casual, friendly language in your responses."
	default:
		return "Use professional, helpful language in your responses."
	}
}

// SystemPrompt builds the system message for style.
func SystemPrompt(style knowledge.Style) string {
	return institutionContext + "\n" + StyleDirective(style)
}

// BuildMessages turns the last HistoryTurns turns into alternating
// user/assistant messages and appends the current query.
func BuildMessages(history []session.Turn, query string) []Message {
	if len(history) > HistoryTurns {
		history = history[len(history)-HistoryTurns:]
	}
	msgs := make([]Message, 0, 2*len(history)+1)
	for _, t := range history {
		msgs = append(msgs,
			Message{Role: RoleUser, Content: t.Query},
			Message{Role: RoleAssistant, Content: t.Response},
		)
	}
	return append(msgs, Message{Role: RoleUser, Content: strings.TrimSpace(query)})
}
