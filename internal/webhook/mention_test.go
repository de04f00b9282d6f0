package webhook

import (
	"testing"

	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
	"github.com/stretchr/testify/assert"
)

func self(index, length int32) webhook.UserMentionee {
	return webhook.UserMentionee{Index: index, Length: length, IsSelf: true}
}

func TestIsBotMentioned(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		msg  webhook.TextMessageContent
		want bool
	}{
		{"no mention", webhook.TextMessageContent{Text: "hello"}, false},
		{"bot mentioned", webhook.TextMessageContent{
			Text:    "@Bot fees",
			Mention: &webhook.Mention{Mentionees: []webhook.MentioneeInterface{self(0, 4)}},
		}, true},
		{"other user", webhook.TextMessageContent{
			Text: "@Ann fees",
			Mention: &webhook.Mention{Mentionees: []webhook.MentioneeInterface{
				webhook.UserMentionee{Index: 0, Length: 4, UserId: "U2"},
			}},
		}, false},
		{"everyone", webhook.TextMessageContent{
			Text:    "@All fees",
			Mention: &webhook.Mention{Mentionees: []webhook.MentioneeInterface{webhook.AllMentionee{Index: 0, Length: 4}}},
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isBotMentioned(tt.msg))
		})
	}
}

func TestRemoveBotMentions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		text      string
		mentionee []webhook.MentioneeInterface
		want      string
	}{
		{"leading", "@Bot what are the fees", []webhook.MentioneeInterface{self(0, 4)}, "what are the fees"},
		{"middle", "hi @Bot  hostel  fees", []webhook.MentioneeInterface{self(3, 4)}, "hi hostel fees"},
		{"two mentions", "@Bot fees @Bot", []webhook.MentioneeInterface{self(0, 4), self(10, 4)}, "fees"},
		{"keeps other users", "@Ann @Bot fees", []webhook.MentioneeInterface{
			webhook.UserMentionee{Index: 0, Length: 4},
			self(5, 4),
		}, "@Ann fees"},
		{"multibyte", "🎓 @Bot programs", []webhook.MentioneeInterface{self(2, 4)}, "🎓 programs"},
		{"out of range", "@Bot", []webhook.MentioneeInterface{self(2, 10)}, "@B"},
		{"past the end", "fees", []webhook.MentioneeInterface{self(10, 4)}, "fees"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := removeBotMentions(tt.text, &webhook.Mention{Mentionees: tt.mentionee})
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Equal(t, "  untouched ", removeBotMentions("  untouched ", nil))
}
