// Package genai provides GenAI-enhanced operations using OpenAI API.

package genai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// ErrNoChoicesReturned is returned when the API response has no choices.
var ErrNoChoicesReturned = errors.New("no choices returned")

// chatService defines the minimal interface for chat completions.
type chatService interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// transcriptionService defines the minimal interface for audio transcription.
type transcriptionService interface {
	New(ctx context.Context, params openai.AudioTranscriptionNewParams, opts ...option.RequestOption) (*openai.Transcription, error)
}

// ClientInterface defines the language-model operations the flows consume.
type ClientInterface interface {
	// Summarize condenses Japanese text to roughly 200 characters.
	Summarize(ctx context.Context, text string) (string, error)

	// GenerateHint produces one single-line reflective question for the
	// given regret theme, avoiding prior inputs and prior hints.
	GenerateHint(ctx context.Context, theme string, priorInputs, priorHints []string) (string, error)

	// Transcribe converts recorded speech to text.
	Transcribe(ctx context.Context, audio io.Reader) (string, error)
}

// Client wraps the OpenAI chat and transcription services.
type Client struct {
	chat           chatService
	transcriptions transcriptionService
	model          openai.ChatModel
}

// Opts holds configuration options for creating a client.
type Opts struct {
	APIKey string
	Model  openai.ChatModel
}

// Option modifies Opts.
type Option func(*Opts)

// WithAPIKey sets the OpenAI API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithModel overrides the chat model.
func WithModel(model openai.ChatModel) Option {
	return func(o *Opts) { o.Model = model }
}

// NewClient initializes a GenAI client. An API key is required.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key not set")
	}
	if cfg.Model == "" {
		cfg.Model = openai.ChatModelGPT4o
	}

	cli := openai.NewClient(option.WithAPIKey(cfg.APIKey))
	slog.Debug("genai.NewClient created", "model", cfg.Model)
	return &Client{
		chat:           &cli.Chat.Completions,
		transcriptions: &cli.Audio.Transcriptions,
		model:          cfg.Model,
	}, nil
}

// Summarize condenses text with a 200-character Japanese summary prompt.
func (c *Client) Summarize(ctx context.Context, text string) (string, error) {
	prompt := fmt.Sprintf("以下を200字以内で要約してください。\n\n%s", text)
	out, err := c.complete(ctx, "あなたは日本語の要約AIです。", prompt)
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// GenerateHint produces a reflective question for a life5 regret theme.
// Only the first line of the completion is returned.
func (c *Client) GenerateHint(ctx context.Context, theme string, priorInputs, priorHints []string) (string, error) {
	prompt := hintPrompt(theme, priorInputs, priorHints)
	out, err := c.complete(ctx, "あなたは人生の問いや気づきを与えるプロの質問家です。", prompt)
	if err != nil {
		return "", fmt.Errorf("generate hint: %w", err)
	}
	line, _, _ := strings.Cut(strings.TrimSpace(out), "\n")
	return line, nil
}

// Transcribe converts recorded speech to text with whisper-1. The upload
// carries an .m4a filename: the endpoint infers the codec from the file
// extension, and LINE delivers voice notes as m4a.
func (c *Client) Transcribe(ctx context.Context, audio io.Reader) (string, error) {
	res, err := c.transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		Model: openai.AudioModelWhisper1,
		File:  openai.File(audio, "audio.m4a", "audio/m4a"),
	})
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	return strings.TrimSpace(res.Text), nil
}

func (c *Client) complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := c.chat.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoicesReturned
	}
	return resp.Choices[0].Message.Content, nil
}

// hintPrompt builds the theme-specific hint prompt. The 挑戦経験 theme uses
// a dedicated prompt with example questions; other themes share a generic
// template.
func hintPrompt(theme string, priorInputs, priorHints []string) string {
	var b strings.Builder
	if theme == "挑戦経験" {
		b.WriteString("あなたはユーザーが人生で挑戦したいことや経験したいことに気づくための質問家です。\n")
		b.WriteString("以下の条件で、挑戦・経験テーマの気づきや自己対話になる問いかけやヒントを日本語で1つだけ出してください。\n")
		b.WriteString("【これまでの入力例】\n")
		writeBullets(&b, priorInputs)
		if len(priorHints) > 0 {
			b.WriteString("【これまでのヒント】\n")
			writeBullets(&b, priorHints)
		}
		b.WriteString("【出力要件】\n")
		b.WriteString("- 何に挑戦したいか、どんな経験を本当はしたいのか考えるきっかけになること\n")
		b.WriteString("- たとえば「子供の頃の夢は？」「今やってみたいと思ってるけど先延ばしにしてることは？」「挑戦したいけど一歩踏み出せていないことは？」「やってみたかったけど諦めたことは？」など、自分の“やりたい”を思い出させる問いや気づきのヒントを1つだけ出す。\n")
		b.WriteString("- なるべく被らない内容、簡潔に1行で。")
		return b.String()
	}

	b.WriteString("あなたは人生の後悔を防ぐための気づきや自己対話のプロ質問家です。\n")
	fmt.Fprintf(&b, "テーマ: %s\n", theme)
	if len(priorInputs) > 0 {
		b.WriteString("【これまでの入力例】\n")
		writeBullets(&b, priorInputs)
	}
	if len(priorHints) > 0 {
		b.WriteString("【これまでのヒント】\n")
		writeBullets(&b, priorHints)
	}
	b.WriteString("これらと重複しない、ユーザーが深く考えるきっかけになるようなヒントや問いを日本語で1つだけ、1行で出してください。")
	return b.String()
}

func writeBullets(b *strings.Builder, items []string) {
	for _, item := range items {
		if strings.TrimSpace(item) == "" {
			continue
		}
		fmt.Fprintf(b, "・%s\n", item)
	}
}
