package api

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"

	"github.com/tsumugi-lab/lifelog/internal/models"
	"github.com/tsumugi-lab/lifelog/internal/store"
)

type mockRouter struct {
	events []models.Event
	err    error
}

func (m *mockRouter) Route(ctx context.Context, ev models.Event) error {
	m.events = append(m.events, ev)
	return m.err
}

type mockMessenger struct {
	texts []string
}

func (m *mockMessenger) Reply(ctx context.Context, replyToken, text string, choices []models.QuickReplyOption) error {
	m.texts = append(m.texts, text)
	return nil
}

type mockMedia struct {
	content string
	err     error
}

func (m *mockMedia) GetMessageContent(ctx context.Context, messageID string) (io.ReadCloser, error) {
	if m.err != nil {
		return nil, m.err
	}
	return io.NopCloser(strings.NewReader(m.content)), nil
}

type mockTranscriber struct {
	text string
	err  error
}

func (m *mockTranscriber) Transcribe(ctx context.Context, audio io.Reader) (string, error) {
	return m.text, m.err
}

type fixture struct {
	server      *Server
	router      *mockRouter
	messenger   *mockMessenger
	media       *mockMedia
	transcriber *mockTranscriber
	dedup       *store.InMemoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		router:      &mockRouter{},
		messenger:   &mockMessenger{},
		media:       &mockMedia{content: "audio-bytes"},
		transcriber: &mockTranscriber{text: "音声の内容"},
		dedup:       store.NewInMemoryStore(),
	}
	srv, err := NewServer(Config{
		ChannelSecret: "test-secret",
		Router:        f.router,
		Messenger:     f.messenger,
		Media:         f.media,
		Transcriber:   f.transcriber,
		Dedup:         f.dedup,
	})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	f.server = srv
	return f
}

func sign(secret, body string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestHealthHandler(t *testing.T) {
	f := newFixture(t)
	h := f.server.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("expected 200 OK, got %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}

func TestCallbackHandler_InvalidSignature(t *testing.T) {
	f := newFixture(t)
	body := `{"destination":"U000","events":[]}`

	req := httptest.NewRequest(http.MethodPost, "/callback", strings.NewReader(body))
	req.Header.Set("X-Line-Signature", "not-a-valid-signature")
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad signature, got %d", rec.Code)
	}
}

func TestCallbackHandler_ValidSignature(t *testing.T) {
	f := newFixture(t)
	body := `{"destination":"U000","events":[]}`

	req := httptest.NewRequest(http.MethodPost, "/callback", strings.NewReader(body))
	req.Header.Set("X-Line-Signature", sign("test-secret", body))
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 for signed delivery, got %d", rec.Code)
	}
}

func TestCallbackHandler_MethodNotAllowed(t *testing.T) {
	f := newFixture(t)
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}

func TestDecodeEvents(t *testing.T) {
	cb := &webhook.CallbackRequest{
		Events: []webhook.EventInterface{
			webhook.MessageEvent{
				ReplyToken: "rt-1",
				Timestamp:  1700000000000,
				Source:     webhook.UserSource{UserId: "U1"},
				Message:    webhook.TextMessageContent{Id: "m1", Text: "memo"},
			},
			webhook.MessageEvent{
				ReplyToken: "rt-2",
				Source:     webhook.UserSource{UserId: "U2"},
				Message:    webhook.AudioMessageContent{Id: "m2", Duration: 2500},
			},
			// Non-user sources and non-message content are dropped.
			webhook.MessageEvent{
				ReplyToken: "rt-3",
				Source:     webhook.GroupSource{GroupId: "G1"},
				Message:    webhook.TextMessageContent{Id: "m3", Text: "ignored"},
			},
			webhook.MessageEvent{
				ReplyToken: "rt-4",
				Source:     webhook.UserSource{UserId: "U3"},
				Message:    webhook.StickerMessageContent{Id: "m4"},
			},
		},
	}

	events := decodeEvents(cb)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].UserID != "U1" || events[0].Kind != models.EventKindText || events[0].Text != "memo" {
		t.Errorf("unexpected text event: %+v", events[0])
	}
	if events[0].Time != 1700000000000 {
		t.Errorf("timestamp not carried: %d", events[0].Time)
	}
	if events[1].UserID != "U2" || events[1].Kind != models.EventKindAudio || events[1].Text != "" {
		t.Errorf("unexpected audio event: %+v", events[1])
	}
}

func TestProcessEvent_TextRoutedAndMarked(t *testing.T) {
	f := newFixture(t)
	ev := models.Event{UserID: "U1", ReplyToken: "rt", MessageID: "m1", Kind: models.EventKindText, Text: "memo"}

	f.server.processEvent(context.Background(), ev)

	if len(f.router.events) != 1 || f.router.events[0].Text != "memo" {
		t.Fatalf("event not routed: %+v", f.router.events)
	}
	dup, _ := f.dedup.IsDuplicate("m1")
	if !dup {
		t.Error("message not recorded in dedup store")
	}
}

func TestProcessEvent_DuplicateSkipped(t *testing.T) {
	f := newFixture(t)
	ev := models.Event{UserID: "U1", ReplyToken: "rt", MessageID: "m1", Kind: models.EventKindText, Text: "memo"}

	f.server.processEvent(context.Background(), ev)
	f.server.processEvent(context.Background(), ev)

	if len(f.router.events) != 1 {
		t.Errorf("duplicate delivery must be routed once, got %d", len(f.router.events))
	}
}

func TestProcessEvent_AudioTranscribed(t *testing.T) {
	f := newFixture(t)
	ev := models.Event{UserID: "U1", ReplyToken: "rt", MessageID: "m1", Kind: models.EventKindAudio}

	f.server.processEvent(context.Background(), ev)

	if len(f.router.events) != 1 {
		t.Fatalf("audio event not routed")
	}
	routed := f.router.events[0]
	if routed.Text != "音声の内容" || !routed.IsAudio() {
		t.Errorf("expected transcribed audio event, got %+v", routed)
	}
}

func TestProcessEvent_TranscriptionFailure(t *testing.T) {
	f := newFixture(t)
	f.transcriber.err = errors.New("whisper down")
	ev := models.Event{UserID: "U1", ReplyToken: "rt", MessageID: "m1", Kind: models.EventKindAudio}

	f.server.processEvent(context.Background(), ev)

	if len(f.router.events) != 0 {
		t.Error("failed transcription must not reach the router")
	}
	if len(f.messenger.texts) != 1 || f.messenger.texts[0] != MsgTranscriptionFailed {
		t.Errorf("expected apology reply, got %v", f.messenger.texts)
	}
}

func TestProcessEvent_MediaFetchFailure(t *testing.T) {
	f := newFixture(t)
	f.media.err = errors.New("blob unavailable")
	ev := models.Event{UserID: "U1", ReplyToken: "rt", MessageID: "m1", Kind: models.EventKindAudio}

	f.server.processEvent(context.Background(), ev)

	if len(f.router.events) != 0 {
		t.Error("failed download must not reach the router")
	}
	if len(f.messenger.texts) != 1 || f.messenger.texts[0] != MsgTranscriptionFailed {
		t.Errorf("expected apology reply, got %v", f.messenger.texts)
	}
}

func TestNewServer_Validation(t *testing.T) {
	if _, err := NewServer(Config{}); err == nil {
		t.Error("expected error without channel secret")
	}
	if _, err := NewServer(Config{ChannelSecret: "s"}); err == nil {
		t.Error("expected error without dependencies")
	}

	full := func() Config {
		return Config{
			ChannelSecret: "s",
			Router:        &mockRouter{},
			Messenger:     &mockMessenger{},
			Media:         &mockMedia{},
			Transcriber:   &mockTranscriber{},
			Dedup:         store.NewInMemoryStore(),
		}
	}
	if _, err := NewServer(full()); err != nil {
		t.Fatalf("expected fully wired config to pass, got %v", err)
	}

	// Miswiring any dependency must fail at startup, not on the first
	// event that needs it.
	tests := []struct {
		name string
		omit func(*Config)
	}{
		{"router", func(c *Config) { c.Router = nil }},
		{"messenger", func(c *Config) { c.Messenger = nil }},
		{"dedup", func(c *Config) { c.Dedup = nil }},
		{"media", func(c *Config) { c.Media = nil }},
		{"transcriber", func(c *Config) { c.Transcriber = nil }},
	}
	for _, tt := range tests {
		cfg := full()
		tt.omit(&cfg)
		if _, err := NewServer(cfg); err == nil {
			t.Errorf("expected error without %s", tt.name)
		}
	}
}
