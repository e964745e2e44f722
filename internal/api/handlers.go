package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/line/line-bot-sdk-go/v8/linebot"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"

	"github.com/tsumugi-lab/lifelog/internal/models"
)

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// callbackHandler verifies and decodes a webhook delivery, acknowledges it,
// and hands the events to asynchronous processing. LINE retries
// undelivered callbacks, so the 200 goes out before any slow work.
func (s *Server) callbackHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	cb, err := webhook.ParseRequest(s.cfg.ChannelSecret, r)
	if err != nil {
		if errors.Is(err, linebot.ErrInvalidSignature) {
			slog.Warn("Webhook signature verification failed")
			w.WriteHeader(http.StatusBadRequest)
		} else {
			slog.Error("Webhook parse failed", "error", err)
			w.WriteHeader(http.StatusInternalServerError)
		}
		return
	}

	events := decodeEvents(cb)
	w.WriteHeader(http.StatusOK)

	ctx := context.WithoutCancel(r.Context())
	for _, ev := range events {
		go s.processEvent(ctx, ev)
	}
}

// decodeEvents extracts the message events this service handles: text and
// audio messages from user sources. Everything else is dropped.
func decodeEvents(cb *webhook.CallbackRequest) []models.Event {
	var events []models.Event
	for _, event := range cb.Events {
		me, ok := event.(webhook.MessageEvent)
		if !ok {
			continue
		}
		source, ok := me.Source.(webhook.UserSource)
		if !ok {
			continue
		}

		ev := models.Event{
			UserID:     source.UserId,
			ReplyToken: me.ReplyToken,
			Time:       me.Timestamp,
		}
		switch msg := me.Message.(type) {
		case webhook.TextMessageContent:
			ev.MessageID = msg.Id
			ev.Kind = models.EventKindText
			ev.Text = msg.Text
		case webhook.AudioMessageContent:
			ev.MessageID = msg.Id
			ev.Kind = models.EventKindAudio
		default:
			continue
		}
		events = append(events, ev)
	}
	return events
}

// processEvent handles one decoded event: per-user serialization, dedup,
// transcription for voice notes, then flow dispatch.
func (s *Server) processEvent(ctx context.Context, ev models.Event) {
	// Known redeliveries are dropped before queueing on the user lock.
	// RecordInbound below stays authoritative for concurrent deliveries.
	if dup, err := s.cfg.Dedup.IsDuplicate(ev.MessageID); err == nil && dup {
		slog.Debug("Duplicate webhook event skipped", "messageID", ev.MessageID, "userID", ev.UserID)
		return
	}

	lock := s.userLock(ev.UserID)
	lock.Lock()
	defer lock.Unlock()

	fresh, err := s.cfg.Dedup.RecordInbound(ev.MessageID, ev.UserID)
	if err != nil {
		slog.Error("Dedup record failed", "error", err, "messageID", ev.MessageID)
		return
	}
	if !fresh {
		slog.Debug("Duplicate webhook event skipped", "messageID", ev.MessageID, "userID", ev.UserID)
		return
	}

	if ev.IsAudio() {
		text, err := s.transcribe(ctx, ev.MessageID)
		if err != nil {
			slog.Error("Voice transcription failed", "error", err, "messageID", ev.MessageID)
			if rerr := s.cfg.Messenger.Reply(ctx, ev.ReplyToken, MsgTranscriptionFailed, nil); rerr != nil {
				slog.Error("Transcription failure reply failed", "error", rerr)
			}
			return
		}
		ev.Text = text
	}

	if err := s.cfg.Router.Route(ctx, ev); err != nil {
		slog.Error("Event routing failed", "error", err, "userID", ev.UserID, "messageID", ev.MessageID)
		return
	}

	if err := s.cfg.Dedup.MarkProcessed(ev.MessageID); err != nil {
		slog.Error("Dedup mark processed failed", "error", err, "messageID", ev.MessageID)
	}
}

func (s *Server) transcribe(ctx context.Context, messageID string) (string, error) {
	content, err := s.cfg.Media.GetMessageContent(ctx, messageID)
	if err != nil {
		return "", err
	}
	defer content.Close()
	return s.cfg.Transcriber.Transcribe(ctx, content)
}
