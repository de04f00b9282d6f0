// Package lineutil builds LINE messages and actions within the Messaging
// API limits.
package lineutil

import (
	"strings"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	"github.com/nnrg-cse/nnrg-assistant-go/internal/knowledge"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/textutil"
)

// Postback data understood by the webhook.
const (
	PostbackQuickLinkPrefix = "ql:"
	PostbackReset           = "reset"
)

// QuickReplyItem represents an item in a quick reply.
type QuickReplyItem struct {
	ImageURL string
	Action   messaging_api.ActionInterface
}

// Action is an alias for the LINE SDK action interface for convenience.
type Action = messaging_api.ActionInterface

// NewTextMessage creates a text message, truncated to the API limit.
func NewTextMessage(text string) *messaging_api.TextMessage {
	return &messaging_api.TextMessage{
		Text: textutil.Truncate(text, MaxTextMessageLength-3),
	}
}

// NewQuickReply creates a quick reply component. Items beyond the API
// limit are dropped.
func NewQuickReply(items []QuickReplyItem) *messaging_api.QuickReply {
	if len(items) > MaxQuickReplyItemCount {
		items = items[:MaxQuickReplyItemCount]
	}
	out := make([]messaging_api.QuickReplyItem, len(items))
	for i, item := range items {
		out[i] = messaging_api.QuickReplyItem{
			ImageUrl: item.ImageURL,
			Action:   item.Action,
		}
	}
	return &messaging_api.QuickReply{Items: out}
}

// NewPostbackAction creates a postback action. The label is shown on the
// button and echoed into the chat when tapped.
func NewPostbackAction(label, data string) Action {
	label = truncateLabel(label)
	return &messaging_api.PostbackAction{
		Label:       label,
		DisplayText: label,
		Data:        data,
	}
}

// NewMessageAction creates an action that sends text as the user.
func NewMessageAction(label, text string) Action {
	return &messaging_api.MessageAction{
		Label: truncateLabel(label),
		Text:  text,
	}
}

// QuickLinkItems returns one postback button per quick link, followed by
// a reset button.
func QuickLinkItems(links []knowledge.QuickLink) []QuickReplyItem {
	items := make([]QuickReplyItem, 0, len(links)+1)
	for _, link := range links {
		label := link.Label
		if link.Emoji != "" {
			label = link.Emoji + " " + label
		}
		items = append(items, QuickReplyItem{
			Action: NewPostbackAction(label, PostbackQuickLinkPrefix+link.ID),
		})
	}
	items = append(items, QuickReplyItem{Action: NewPostbackAction("🔄 Start over", PostbackReset)})
	return items
}

// NewTextMessageWithQuickReply creates a text message carrying items.
func NewTextMessageWithQuickReply(text string, items ...QuickReplyItem) *messaging_api.TextMessage {
	msg := NewTextMessage(text)
	if len(items) > 0 {
		msg.QuickReply = NewQuickReply(items)
	}
	return msg
}

// ParseQuickLink extracts the quick link id from postback data.
func ParseQuickLink(data string) (string, bool) {
	id, ok := strings.CutPrefix(data, PostbackQuickLinkPrefix)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

func truncateLabel(label string) string {
	runes := []rune(label)
	if len(runes) <= MaxQuickReplyLabel {
		return label
	}
	return string(runes[:MaxQuickReplyLabel])
}
