package flow

import (
	"context"
	"fmt"

	"github.com/tsumugi-lab/lifelog/internal/models"
)

// sentReply captures one Messenger.Reply call.
type sentReply struct {
	replyToken string
	text       string
	choices    []models.QuickReplyOption
}

type fakeMessenger struct {
	replies []sentReply
	err     error
}

func (m *fakeMessenger) Reply(ctx context.Context, replyToken, text string, choices []models.QuickReplyOption) error {
	m.replies = append(m.replies, sentReply{replyToken: replyToken, text: text, choices: choices})
	return m.err
}

func (m *fakeMessenger) last() sentReply {
	if len(m.replies) == 0 {
		return sentReply{}
	}
	return m.replies[len(m.replies)-1]
}

// fakeLanguageModel echoes input unless a function is injected.
type fakeLanguageModel struct {
	summarizeFn func(text string) (string, error)
	hintFn      func(theme string, priorInputs, priorHints []string) (string, error)

	summarizeCalls int
	hintCalls      int
}

func (m *fakeLanguageModel) Summarize(ctx context.Context, text string) (string, error) {
	m.summarizeCalls++
	if m.summarizeFn != nil {
		return m.summarizeFn(text)
	}
	return text, nil
}

func (m *fakeLanguageModel) GenerateHint(ctx context.Context, theme string, priorInputs, priorHints []string) (string, error) {
	m.hintCalls++
	if m.hintFn != nil {
		return m.hintFn(theme, priorInputs, priorHints)
	}
	return fmt.Sprintf("hint-%d", m.hintCalls), nil
}

type patchCall struct {
	recordID string
	key      string
	value    string
}

type memoCall struct {
	category    string
	subcategory string
	content     string
}

type fakeRecorder struct {
	lifeErr   error
	reviewErr error
	patchErr  error
	memoErr   error

	lifeCreates   []string // q1 summaries
	reviewCreates []string // user IDs
	patches       []patchCall
	memos         []memoCall
}

func (r *fakeRecorder) CreateLifeRecord(ctx context.Context, userID, q1Summary string) (string, error) {
	if r.lifeErr != nil {
		return "", r.lifeErr
	}
	r.lifeCreates = append(r.lifeCreates, q1Summary)
	return fmt.Sprintf("life-%d", len(r.lifeCreates)), nil
}

func (r *fakeRecorder) CreateReviewRecord(ctx context.Context, userID string) (string, error) {
	if r.reviewErr != nil {
		return "", r.reviewErr
	}
	r.reviewCreates = append(r.reviewCreates, userID)
	return fmt.Sprintf("review-%d", len(r.reviewCreates)), nil
}

func (r *fakeRecorder) PatchRecord(ctx context.Context, recordID, key, value string) error {
	if r.patchErr != nil {
		return r.patchErr
	}
	r.patches = append(r.patches, patchCall{recordID: recordID, key: key, value: value})
	return nil
}

func (r *fakeRecorder) AppendMemo(ctx context.Context, category, subcategory, content string) error {
	if r.memoErr != nil {
		return r.memoErr
	}
	r.memos = append(r.memos, memoCall{category: category, subcategory: subcategory, content: content})
	return nil
}

func (r *fakeRecorder) lastPatch() patchCall {
	if len(r.patches) == 0 {
		return patchCall{}
	}
	return r.patches[len(r.patches)-1]
}

func textEvent(userID, text string) models.Event {
	return models.Event{UserID: userID, ReplyToken: "rt-" + userID, MessageID: "m1", Kind: models.EventKindText, Text: text}
}

func audioEvent(userID, transcript string) models.Event {
	return models.Event{UserID: userID, ReplyToken: "rt-" + userID, MessageID: "m1", Kind: models.EventKindAudio, Text: transcript}
}
