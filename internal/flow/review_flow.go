package flow

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/tsumugi-lab/lifelog/internal/models"
)

// Messages sent by the review flow.
const (
	MsgReviewStarInvalid   = "1〜5 の★で選んでください。"
	MsgReviewEmotionPrompt = "感情タグを１つ選んでください。"
	MsgReviewNotePrompt    = "必要なら100字以内で感情の補足を入力してください（スキップ可）"
	MsgReviewComplete      = "✅ Reviewの入力が完了しました。ありがとう！"
)

// ReviewFlow implements the 11-question daily retrospective. Starting a
// review snapshots the latest value and mission cached by life5, discards
// any in-progress life5 state, and creates the external record up front;
// each accepted answer is persisted incrementally.
type ReviewFlow struct {
	stateManager StateManager
	messenger    Messenger
	lm           LanguageModel
	recorder     Recorder
}

// NewReviewFlow creates a review flow engine.
func NewReviewFlow(stateManager StateManager, messenger Messenger, lm LanguageModel, recorder Recorder) *ReviewFlow {
	return &ReviewFlow{stateManager: stateManager, messenger: messenger, lm: lm, recorder: recorder}
}

// ProcessEvent handles one inbound event, reporting whether the review
// flow consumed it.
func (f *ReviewFlow) ProcessEvent(ctx context.Context, ev models.Event) (bool, error) {
	if strings.EqualFold(ev.Text, ReviewCommand) {
		return true, f.start(ctx, ev)
	}

	state, err := f.stateManager.GetCurrentState(ctx, ev.UserID, models.FlowTypeReview)
	if err != nil {
		return false, err
	}
	if state != models.StateReviewActive {
		return false, nil
	}

	step, err := f.currentStep(ctx, ev.UserID)
	if err != nil {
		return false, err
	}
	q := ReviewQuestions[step]

	if ev.IsAudio() && !q.AllowsAudio() {
		return true, f.messenger.Reply(ctx, ev.ReplyToken, MsgLife5ButtonSteering, nil)
	}

	switch q.Type {
	case QuestionStar:
		return true, f.handleStar(ctx, ev, step, q)
	case QuestionStarReason:
		return true, f.handleStarReason(ctx, ev, step, q)
	case QuestionEmotion:
		return true, f.handleEmotion(ctx, ev, step, q)
	default:
		return true, f.handleText(ctx, ev, step, q)
	}
}

// start resets both review and life5 state: the latest value and mission
// cached by life5 are copied into the review run before life5's state is
// discarded.
func (f *ReviewFlow) start(ctx context.Context, ev models.Event) error {
	slog.Debug("ReviewFlow starting", "userID", ev.UserID)

	latestValue, err := f.stateManager.GetStateData(ctx, ev.UserID, models.FlowTypeLife5, models.DataKeyLatestValue)
	if err != nil {
		return err
	}
	latestMission, err := f.stateManager.GetStateData(ctx, ev.UserID, models.FlowTypeLife5, models.DataKeyLatestMission)
	if err != nil {
		return err
	}

	if err := f.stateManager.ResetState(ctx, ev.UserID, models.FlowTypeReview); err != nil {
		return err
	}
	if err := f.stateManager.ResetState(ctx, ev.UserID, models.FlowTypeLife5); err != nil {
		return err
	}

	if err := f.stateManager.SetCurrentState(ctx, ev.UserID, models.FlowTypeReview, models.StateReviewActive); err != nil {
		return err
	}
	if err := f.setStep(ctx, ev.UserID, 0); err != nil {
		return err
	}
	if err := f.stateManager.SetStateData(ctx, ev.UserID, models.FlowTypeReview, models.DataKeyReviewLatestValue, latestValue); err != nil {
		return err
	}
	if err := f.stateManager.SetStateData(ctx, ev.UserID, models.FlowTypeReview, models.DataKeyReviewLatestMission, latestMission); err != nil {
		return err
	}

	recordID, err := f.recorder.CreateReviewRecord(ctx, ev.UserID)
	if err != nil {
		slog.Error("ReviewFlow record create failed", "error", err, "userID", ev.UserID)
		recordID = ""
	}
	if err := f.stateManager.SetStateData(ctx, ev.UserID, models.FlowTypeReview, models.DataKeyReviewRecordID, recordID); err != nil {
		return err
	}

	return f.askQuestion(ctx, ev.UserID, ev.ReplyToken, 0, "")
}

func (f *ReviewFlow) handleStar(ctx context.Context, ev models.Event, step int, q ReviewQuestion) error {
	val, ok := ParseStarRating(ev.Text)
	if !ok {
		return f.messenger.Reply(ctx, ev.ReplyToken, MsgReviewStarInvalid, nil)
	}

	if err := f.stateManager.SetStateData(ctx, ev.UserID, models.FlowTypeReview, models.AnswerKey(q.Key), val); err != nil {
		return err
	}

	// Guard against a missed create at start: the first star question
	// creates the record lazily if no handle exists yet.
	if q.Key == "ValueStar" {
		recordID, err := f.stateManager.GetStateData(ctx, ev.UserID, models.FlowTypeReview, models.DataKeyReviewRecordID)
		if err != nil {
			return err
		}
		if recordID == "" {
			recordID, err = f.recorder.CreateReviewRecord(ctx, ev.UserID)
			if err != nil {
				slog.Error("ReviewFlow lazy record create failed", "error", err, "userID", ev.UserID)
				recordID = ""
			}
			if err := f.stateManager.SetStateData(ctx, ev.UserID, models.FlowTypeReview, models.DataKeyReviewRecordID, recordID); err != nil {
				return err
			}
		}
	}

	f.patchRecord(ctx, ev.UserID, q.Key, val)

	if err := f.setStep(ctx, ev.UserID, step+1); err != nil {
		return err
	}
	return f.askQuestion(ctx, ev.UserID, ev.ReplyToken, step+1, val)
}

func (f *ReviewFlow) handleStarReason(ctx context.Context, ev models.Event, step int, q ReviewQuestion) error {
	captured := ev.Text
	if ev.IsAudio() {
		captured = summarizeOrTruncate(ctx, f.lm, captured, q.MaxLength)
	} else if !slices.Contains(q.Choices, captured) && utf8.RuneCountInString(captured) > q.MaxLength {
		captured = summarizeOrTruncate(ctx, f.lm, captured, q.MaxLength)
	}

	if err := f.stateManager.SetStateData(ctx, ev.UserID, models.FlowTypeReview, models.AnswerKey(q.Key), captured); err != nil {
		return err
	}
	f.patchRecord(ctx, ev.UserID, q.Key, captured)

	if err := f.setStep(ctx, ev.UserID, step+1); err != nil {
		return err
	}
	return f.askQuestion(ctx, ev.UserID, ev.ReplyToken, step+1, "")
}

// handleEmotion runs the two-phase emotion question. The tag pick is
// persisted immediately, before the note is known; only the note phase
// advances the cursor.
func (f *ReviewFlow) handleEmotion(ctx context.Context, ev models.Event, step int, q ReviewQuestion) error {
	pending, err := f.stateManager.GetStateData(ctx, ev.UserID, models.FlowTypeReview, models.DataKeyReviewPendingTag)
	if err != nil {
		return err
	}

	if pending == "" {
		if !slices.Contains(q.Choices, ev.Text) {
			choices := make([]models.QuickReplyOption, 0, len(q.Choices))
			for _, tag := range q.Choices {
				choices = append(choices, models.Option(tag))
			}
			return f.messenger.Reply(ctx, ev.ReplyToken, MsgReviewEmotionPrompt, choices)
		}

		if err := f.stateManager.SetStateData(ctx, ev.UserID, models.FlowTypeReview, models.DataKeyReviewPendingTag, ev.Text); err != nil {
			return err
		}
		f.patchRecord(ctx, ev.UserID, q.Key, ev.Text)
		return f.messenger.Reply(ctx, ev.ReplyToken, MsgReviewNotePrompt, []models.QuickReplyOption{models.Option(SkipLabel)})
	}

	note := ""
	if ev.Text != SkipLabel {
		note = ev.Text
		if ev.IsAudio() || utf8.RuneCountInString(note) > q.MaxLength {
			note = summarizeOrTruncate(ctx, f.lm, note, q.MaxLength)
		}
	}

	if err := f.stateManager.SetStateData(ctx, ev.UserID, models.FlowTypeReview, models.AnswerKey(q.Key), pending); err != nil {
		return err
	}
	if err := f.stateManager.SetStateData(ctx, ev.UserID, models.FlowTypeReview, models.AnswerKey("EmotionNote"), note); err != nil {
		return err
	}
	if err := f.stateManager.SetStateData(ctx, ev.UserID, models.FlowTypeReview, models.DataKeyReviewPendingTag, ""); err != nil {
		return err
	}
	f.patchRecord(ctx, ev.UserID, q.Key, pending)
	f.patchRecord(ctx, ev.UserID, "EmotionNote", note)

	if err := f.setStep(ctx, ev.UserID, step+1); err != nil {
		return err
	}
	return f.askQuestion(ctx, ev.UserID, ev.ReplyToken, step+1, "")
}

func (f *ReviewFlow) handleText(ctx context.Context, ev models.Event, step int, q ReviewQuestion) error {
	captured := CaptureText(ctx, f.lm, ev.Text, q.MaxLength, ev.IsAudio())

	if err := f.stateManager.SetStateData(ctx, ev.UserID, models.FlowTypeReview, models.AnswerKey(q.Key), captured); err != nil {
		return err
	}
	f.patchRecord(ctx, ev.UserID, q.Key, captured)

	if step+1 >= len(ReviewQuestions) {
		if err := f.stateManager.ResetState(ctx, ev.UserID, models.FlowTypeReview); err != nil {
			return err
		}
		slog.Info("ReviewFlow completed", "userID", ev.UserID)
		return f.messenger.Reply(ctx, ev.ReplyToken, MsgReviewComplete, nil)
	}

	if err := f.setStep(ctx, ev.UserID, step+1); err != nil {
		return err
	}
	return f.askQuestion(ctx, ev.UserID, ev.ReplyToken, step+1, "")
}

// askQuestion sends the prompt for the given question. prevStar carries
// the just-accepted star value into the follow-up reason label.
func (f *ReviewFlow) askQuestion(ctx context.Context, userID, replyToken string, step int, prevStar string) error {
	if step >= len(ReviewQuestions) {
		return nil
	}
	q := ReviewQuestions[step]

	switch {
	case q.Key == "ValueStar":
		latestValue, err := f.stateManager.GetStateData(ctx, userID, models.FlowTypeReview, models.DataKeyReviewLatestValue)
		if err != nil {
			return err
		}
		label := q.Label
		if latestValue != "" {
			label = fmt.Sprintf("今日の価値観は「%s」でした。%s", latestValue, q.Label)
		}
		return f.messenger.Reply(ctx, replyToken, label, starOptions())

	case q.Key == "MissionStar":
		latestMission, err := f.stateManager.GetStateData(ctx, userID, models.FlowTypeReview, models.DataKeyReviewLatestMission)
		if err != nil {
			return err
		}
		label := q.Label
		if latestMission != "" {
			label = fmt.Sprintf("今日のミッションは「%s」でした。%s", latestMission, q.Label)
		}
		return f.messenger.Reply(ctx, replyToken, label, starOptions())

	case q.Type == QuestionStarReason:
		label := strings.ReplaceAll(q.Label, "{N}", prevStar)
		choices := make([]models.QuickReplyOption, 0, len(q.Choices))
		for _, choice := range q.Choices {
			choices = append(choices, models.Option(choice))
		}
		return f.messenger.Reply(ctx, replyToken, label, choices)

	case q.Type == QuestionEmotion:
		choices := make([]models.QuickReplyOption, 0, len(q.Choices))
		for _, tag := range q.Choices {
			choices = append(choices, models.Option(tag))
		}
		return f.messenger.Reply(ctx, replyToken, q.Label, choices)

	default:
		return f.messenger.Reply(ctx, replyToken, q.Label, nil)
	}
}

// starOptions builds the five star quick replies: the label shows the
// glyph run, the sent text is the bare digit.
func starOptions() []models.QuickReplyOption {
	choices := make([]models.QuickReplyOption, 0, 5)
	for n := 1; n <= 5; n++ {
		choices = append(choices, models.QuickReplyOption{
			Label: strings.Repeat("★", n) + strings.Repeat("☆", 5-n),
			Text:  strconv.Itoa(n),
		})
	}
	return choices
}

func (f *ReviewFlow) currentStep(ctx context.Context, userID string) (int, error) {
	raw, err := f.stateManager.GetStateData(ctx, userID, models.FlowTypeReview, models.DataKeyReviewStep)
	if err != nil {
		return 0, err
	}
	step, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("corrupt review step cursor %q: %w", raw, err)
	}
	if step < 0 || step >= len(ReviewQuestions) {
		return 0, fmt.Errorf("review step cursor %d out of range", step)
	}
	return step, nil
}

func (f *ReviewFlow) setStep(ctx context.Context, userID string, step int) error {
	return f.stateManager.SetStateData(ctx, userID, models.FlowTypeReview, models.DataKeyReviewStep, strconv.Itoa(step))
}

// patchRecord writes one field of the review record if one was created.
func (f *ReviewFlow) patchRecord(ctx context.Context, userID, key, value string) {
	recordID, err := f.stateManager.GetStateData(ctx, userID, models.FlowTypeReview, models.DataKeyReviewRecordID)
	if err != nil || recordID == "" {
		slog.Debug("ReviewFlow no record to patch", "userID", userID, "key", key)
		return
	}
	if err := f.recorder.PatchRecord(ctx, recordID, key, value); err != nil {
		slog.Error("ReviewFlow record patch failed", "error", err, "userID", userID, "key", key)
	}
}
