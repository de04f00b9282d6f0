package webhook

import "github.com/line/line-bot-sdk-go/v8/linebot/webhook"

// eventMeta is what the handler needs from any supported event.
type eventMeta struct {
	kind       string // metric label; empty for unsupported events
	id         string
	replyToken string
	userID     string
	direct     bool // one-to-one chat
}

func eventMetaOf(event webhook.EventInterface) eventMeta {
	var (
		m      eventMeta
		source webhook.SourceInterface
	)
	switch e := event.(type) {
	case webhook.MessageEvent:
		m = eventMeta{kind: "message", id: e.WebhookEventId, replyToken: e.ReplyToken}
		source = e.Source
	case webhook.PostbackEvent:
		m = eventMeta{kind: "postback", id: e.WebhookEventId, replyToken: e.ReplyToken}
		source = e.Source
	case webhook.FollowEvent:
		m = eventMeta{kind: "follow", id: e.WebhookEventId, replyToken: e.ReplyToken}
		source = e.Source
	default:
		return eventMeta{}
	}
	m.userID, m.direct = sourceUser(source)
	return m
}

// sourceUser returns the sending user's id and whether the chat is
// one-to-one. Group members who have not consented have no user id.
func sourceUser(source webhook.SourceInterface) (string, bool) {
	switch s := source.(type) {
	case webhook.UserSource:
		return s.UserId, true
	case webhook.GroupSource:
		return s.UserId, false
	case webhook.RoomSource:
		return s.UserId, false
	}
	return "", false
}
