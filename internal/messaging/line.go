package messaging

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	"github.com/tsumugi-lab/lifelog/internal/models"
)

// LineService implements Service and MediaFetcher on the LINE Messaging
// API.
type LineService struct {
	api  *messaging_api.MessagingApiAPI
	blob *messaging_api.MessagingApiBlobAPI
}

// NewLineService creates a LINE messaging service from a channel access
// token.
func NewLineService(channelToken string) (*LineService, error) {
	if channelToken == "" {
		return nil, fmt.Errorf("LINE channel access token not set")
	}
	api, err := messaging_api.NewMessagingApiAPI(channelToken)
	if err != nil {
		return nil, fmt.Errorf("create messaging API client: %w", err)
	}
	blob, err := messaging_api.NewMessagingApiBlobAPI(channelToken)
	if err != nil {
		return nil, fmt.Errorf("create blob API client: %w", err)
	}
	slog.Debug("messaging.NewLineService created")
	return &LineService{api: api, blob: blob}, nil
}

// Reply sends a text message for the given reply token. Choices become
// quick-reply buttons under the message.
func (s *LineService) Reply(ctx context.Context, replyToken, text string, choices []models.QuickReplyOption) error {
	msg := messaging_api.TextMessage{Text: text}
	if len(choices) > 0 {
		items := make([]messaging_api.QuickReplyItem, 0, len(choices))
		for _, c := range choices {
			items = append(items, messaging_api.QuickReplyItem{
				Action: &messaging_api.MessageAction{Label: c.Label, Text: c.Text},
			})
		}
		msg.QuickReply = &messaging_api.QuickReply{Items: items}
	}

	_, err := s.api.ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: replyToken,
		Messages:   []messaging_api.MessageInterface{msg},
	})
	if err != nil {
		return fmt.Errorf("reply message: %w", err)
	}
	slog.Debug("LINE reply sent", "choices", len(choices))
	return nil
}

// GetMessageContent downloads the uploaded content of a message, typically
// a voice note awaiting transcription.
func (s *LineService) GetMessageContent(ctx context.Context, messageID string) (io.ReadCloser, error) {
	resp, err := s.blob.GetMessageContent(messageID)
	if err != nil {
		return nil, fmt.Errorf("get message content %s: %w", messageID, err)
	}
	return resp.Body, nil
}
