// Package messaging abstracts the chat platform: sending replies with
// optional quick-reply buttons and fetching uploaded message content.
package messaging

import (
	"context"
	"io"

	"github.com/tsumugi-lab/lifelog/internal/models"
)

// Service sends outbound replies. Each inbound event carries a single-use
// reply token; implementations send at most one reply per token.
type Service interface {
	// Reply sends a text reply, optionally with tappable choices.
	Reply(ctx context.Context, replyToken, text string, choices []models.QuickReplyOption) error
}

// MediaFetcher downloads the binary content of an uploaded message, such
// as a recorded voice note.
type MediaFetcher interface {
	// GetMessageContent returns the content stream for a message ID. The
	// caller closes the reader.
	GetMessageContent(ctx context.Context, messageID string) (io.ReadCloser, error)
}
