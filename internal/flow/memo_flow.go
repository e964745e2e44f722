package flow

import (
	"context"
	"log/slog"

	"github.com/tsumugi-lab/lifelog/internal/models"
)

// Messages sent by the memo flow.
const (
	MsgMemoMenu              = "何をしますか？"
	MsgMemoCategoryPrompt    = "カテゴリを選んでください"
	MsgMemoSubcategoryPrompt = "どちらのアイデアですか？"
	MsgMemoContentPrompt     = "内容を入力してください"
	MsgMemoSaved             = "メモを保存しました！"
	MsgMemoSavedAudio        = "メモを保存しました！（音声入力）"
	MsgMemoAudioNotAllowed   = "音声は内容入力のタイミングでのみ使えます。"
)

// MemoFlow implements the 4-state memo capture wizard: mode select,
// category select, optional subcategory select, content input. While a
// memo is in progress the flow claims every event for that user.
type MemoFlow struct {
	stateManager StateManager
	messenger    Messenger
	recorder     Recorder
}

// NewMemoFlow creates a memo flow engine.
func NewMemoFlow(stateManager StateManager, messenger Messenger, recorder Recorder) *MemoFlow {
	return &MemoFlow{stateManager: stateManager, messenger: messenger, recorder: recorder}
}

// ProcessEvent handles one inbound event. It reports whether the memo flow
// consumed the event; unconsumed events fall through to the other flows.
func (f *MemoFlow) ProcessEvent(ctx context.Context, ev models.Event) (bool, error) {
	if ev.Text == MemoCommand && !ev.IsAudio() {
		return true, f.start(ctx, ev)
	}

	state, err := f.stateManager.GetCurrentState(ctx, ev.UserID, models.FlowTypeMemo)
	if err != nil {
		return false, err
	}
	if state == "" {
		return false, nil
	}

	// Audio is accepted only once the flow is waiting for content.
	if ev.IsAudio() && state != models.StateMemoContentInput {
		return true, f.messenger.Reply(ctx, ev.ReplyToken, MsgMemoAudioNotAllowed, nil)
	}

	switch state {
	case models.StateMemoModeSelect:
		return true, f.handleModeSelect(ctx, ev)
	case models.StateMemoCategorySelect:
		return true, f.handleCategorySelect(ctx, ev)
	case models.StateMemoSubcategorySelect:
		return true, f.handleSubcategorySelect(ctx, ev)
	case models.StateMemoContentInput:
		return true, f.handleContentInput(ctx, ev)
	default:
		slog.Error("MemoFlow unexpected state", "state", state, "userID", ev.UserID)
		return false, nil
	}
}

func (f *MemoFlow) start(ctx context.Context, ev models.Event) error {
	slog.Debug("MemoFlow starting", "userID", ev.UserID)
	if err := f.stateManager.ResetState(ctx, ev.UserID, models.FlowTypeMemo); err != nil {
		return err
	}
	if err := f.stateManager.SetCurrentState(ctx, ev.UserID, models.FlowTypeMemo, models.StateMemoModeSelect); err != nil {
		return err
	}

	choices := make([]models.QuickReplyOption, 0, len(MemoModeOptions))
	for _, mode := range MemoModeOptions {
		choices = append(choices, models.Option(mode))
	}
	return f.messenger.Reply(ctx, ev.ReplyToken, MsgMemoMenu, choices)
}

func (f *MemoFlow) handleModeSelect(ctx context.Context, ev models.Event) error {
	if ev.Text != MemoModeMemo {
		// The other menu entries have no flow behind them yet.
		return f.messenger.Reply(ctx, ev.ReplyToken, MsgUnhandled, nil)
	}

	if err := f.stateManager.SetCurrentState(ctx, ev.UserID, models.FlowTypeMemo, models.StateMemoCategorySelect); err != nil {
		return err
	}

	choices := make([]models.QuickReplyOption, 0, len(MemoCategories))
	for _, cat := range MemoCategories {
		choices = append(choices, models.Option(cat.Name))
	}
	return f.messenger.Reply(ctx, ev.ReplyToken, MsgMemoCategoryPrompt, choices)
}

func (f *MemoFlow) handleCategorySelect(ctx context.Context, ev models.Event) error {
	category := ev.Text
	if err := f.stateManager.SetStateData(ctx, ev.UserID, models.FlowTypeMemo, models.DataKeyMemoCategory, category); err != nil {
		return err
	}

	if cat, ok := MemoCategoryByName(category); ok && cat.RequiresSubcategory {
		if err := f.stateManager.SetCurrentState(ctx, ev.UserID, models.FlowTypeMemo, models.StateMemoSubcategorySelect); err != nil {
			return err
		}
		choices := make([]models.QuickReplyOption, 0, len(cat.Subcategories))
		for _, sub := range cat.Subcategories {
			choices = append(choices, models.Option(sub))
		}
		return f.messenger.Reply(ctx, ev.ReplyToken, MsgMemoSubcategoryPrompt, choices)
	}

	if err := f.stateManager.SetCurrentState(ctx, ev.UserID, models.FlowTypeMemo, models.StateMemoContentInput); err != nil {
		return err
	}
	return f.messenger.Reply(ctx, ev.ReplyToken, MsgMemoContentPrompt, nil)
}

func (f *MemoFlow) handleSubcategorySelect(ctx context.Context, ev models.Event) error {
	if err := f.stateManager.SetStateData(ctx, ev.UserID, models.FlowTypeMemo, models.DataKeyMemoSubcategory, ev.Text); err != nil {
		return err
	}
	if err := f.stateManager.SetCurrentState(ctx, ev.UserID, models.FlowTypeMemo, models.StateMemoContentInput); err != nil {
		return err
	}
	return f.messenger.Reply(ctx, ev.ReplyToken, MsgMemoContentPrompt, nil)
}

func (f *MemoFlow) handleContentInput(ctx context.Context, ev models.Event) error {
	category, err := f.stateManager.GetStateData(ctx, ev.UserID, models.FlowTypeMemo, models.DataKeyMemoCategory)
	if err != nil {
		return err
	}
	subcategory, err := f.stateManager.GetStateData(ctx, ev.UserID, models.FlowTypeMemo, models.DataKeyMemoSubcategory)
	if err != nil {
		return err
	}

	// Persistence is best-effort: a failed append is logged and the user
	// still receives the saved confirmation.
	if err := f.recorder.AppendMemo(ctx, category, subcategory, ev.Text); err != nil {
		slog.Error("MemoFlow append failed", "error", err, "userID", ev.UserID, "category", category, "subcategory", subcategory)
	}

	if err := f.stateManager.ResetState(ctx, ev.UserID, models.FlowTypeMemo); err != nil {
		return err
	}

	confirmation := MsgMemoSaved
	if ev.IsAudio() {
		confirmation = MsgMemoSavedAudio
	}
	slog.Info("MemoFlow memo saved", "userID", ev.UserID, "category", category, "audio", ev.IsAudio())
	return f.messenger.Reply(ctx, ev.ReplyToken, confirmation, nil)
}
