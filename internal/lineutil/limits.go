package lineutil

// LINE API limits (rune counts).
// References: https://developers.line.biz/en/reference/messaging-api/
const (
	MaxTextMessageLength = 5000 // Text message max content length
	MaxPostbackData      = 300  // Postback action data length

	// Quick Reply Limits
	MaxQuickReplyItemCount = 13 // Max items in a quick reply
	MaxQuickReplyLabel     = 20 // Max label length for quick reply item

	MaxMessagesPerReply = 5
	MaxEventsPerWebhook = 100
)
