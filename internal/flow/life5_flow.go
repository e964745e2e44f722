package flow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/tsumugi-lab/lifelog/internal/models"
)

// Messages sent by the life5 flow.
const (
	MsgLife5Intro = "人生＝時間（生まれてから死ぬまで）\n" +
		"満足した人生で終わりたい？後悔したまま？\n" +
		"死ぬ間際の後悔トップ３は ①健康 ②挑戦経験 ③人間関係\n\n" +
		"今日はどのテーマを考える？"
	MsgLife5ClusterPrompt  = "後悔しないために重要だと思う価値観を選んでください（2つまで）"
	MsgLife5PairPrompt     = "どちらがより大事？"
	MsgLife5CardPrompt     = "一番大事だと思う価値観を1つ選んでください"
	MsgLife5Complete       = "✅ すべて回答しました。ありがとう！"
	MsgLife5HintFallback   = "（ヒント生成に失敗しました）"
	MsgLife5ButtonSteering = "このステップはボタンで選んでください。"
)

// Life5Flow implements the branching goal/values elicitation wizard: theme
// selection, regret narrative with an on-demand hint loop, two-of-six
// cluster selection, a bounded pairwise tournament, a card sort, and four
// closing reflection prompts.
type Life5Flow struct {
	stateManager StateManager
	messenger    Messenger
	lm           LanguageModel
	recorder     Recorder
}

// NewLife5Flow creates a life5 flow engine.
func NewLife5Flow(stateManager StateManager, messenger Messenger, lm LanguageModel, recorder Recorder) *Life5Flow {
	return &Life5Flow{stateManager: stateManager, messenger: messenger, lm: lm, recorder: recorder}
}

// ProcessEvent handles one inbound event, reporting whether the life5 flow
// consumed it.
func (f *Life5Flow) ProcessEvent(ctx context.Context, ev models.Event) (bool, error) {
	if strings.EqualFold(ev.Text, Life5Command) {
		return true, f.start(ctx, ev)
	}

	// Theme selection restarts the flow from any life5 state.
	if theme, ok := strings.CutPrefix(ev.Text, ThemePrefix); ok {
		if _, known := ThemeQuestions[theme]; known {
			return true, f.handleThemeSelect(ctx, ev, theme)
		}
		return false, nil
	}

	state, err := f.stateManager.GetCurrentState(ctx, ev.UserID, models.FlowTypeLife5)
	if err != nil {
		return false, err
	}
	if state == "" {
		return false, nil
	}

	if state == models.StateLife5Q1 && ev.Text == HintCommand {
		return true, f.handleHint(ctx, ev)
	}
	if state == models.StateLife5Q1 {
		return true, f.handleQ1(ctx, ev)
	}

	// These steps require a button selection.
	if ev.IsAudio() && (state == models.StateLife5Cluster || state == models.StateLife5Pairwise || state == models.StateLife5CardSort) {
		return true, f.messenger.Reply(ctx, ev.ReplyToken, MsgLife5ButtonSteering, nil)
	}

	switch state {
	case models.StateLife5Cluster:
		if sel, ok := strings.CutPrefix(ev.Text, ClusterPrefix); ok {
			return true, f.handleClusterSelect(ctx, ev, sel)
		}
	case models.StateLife5Pairwise:
		if val, ok := strings.CutPrefix(ev.Text, PairPrefix); ok {
			return true, f.handlePairChoice(ctx, ev, val)
		}
	case models.StateLife5CardSort:
		if card, ok := strings.CutPrefix(ev.Text, CardPrefix); ok {
			return true, f.handleCardSort(ctx, ev, card)
		}
	case models.StateLife5Q2Reason:
		return true, f.handleQ2Reason(ctx, ev)
	case models.StateLife5After:
		return true, f.handleAfter(ctx, ev)
	}
	return false, nil
}

func (f *Life5Flow) start(ctx context.Context, ev models.Event) error {
	slog.Debug("Life5Flow starting", "userID", ev.UserID)
	if err := f.stateManager.ResetState(ctx, ev.UserID, models.FlowTypeLife5); err != nil {
		return err
	}
	if err := f.stateManager.SetCurrentState(ctx, ev.UserID, models.FlowTypeLife5, models.StateLife5Theme); err != nil {
		return err
	}

	choices := make([]models.QuickReplyOption, 0, len(ThemeLabels))
	for _, theme := range ThemeLabels {
		choices = append(choices, models.QuickReplyOption{Label: theme, Text: ThemePrefix + theme})
	}
	return f.messenger.Reply(ctx, ev.ReplyToken, MsgLife5Intro, choices)
}

func (f *Life5Flow) handleThemeSelect(ctx context.Context, ev models.Event, theme string) error {
	slog.Debug("Life5Flow theme selected", "userID", ev.UserID, "theme", theme)
	if err := f.stateManager.ResetState(ctx, ev.UserID, models.FlowTypeLife5); err != nil {
		return err
	}
	if err := f.stateManager.SetCurrentState(ctx, ev.UserID, models.FlowTypeLife5, models.StateLife5Q1); err != nil {
		return err
	}
	if err := f.stateManager.SetStateData(ctx, ev.UserID, models.FlowTypeLife5, models.DataKeyLife5Theme, theme); err != nil {
		return err
	}
	return f.messenger.Reply(ctx, ev.ReplyToken, ThemeQuestions[theme], nil)
}

// handleHint generates one AI hint for the regret narrative without
// advancing the step. Prior input and prior hints are passed along so
// consecutive hints do not repeat.
func (f *Life5Flow) handleHint(ctx context.Context, ev models.Event) error {
	theme, err := f.stateManager.GetStateData(ctx, ev.UserID, models.FlowTypeLife5, models.DataKeyLife5Theme)
	if err != nil {
		return err
	}
	q1Text, err := f.stateManager.GetStateData(ctx, ev.UserID, models.FlowTypeLife5, models.DataKeyLife5Q1Text)
	if err != nil {
		return err
	}
	hints, err := f.loadStrings(ctx, ev.UserID, models.DataKeyLife5Hints)
	if err != nil {
		return err
	}

	hint, err := f.lm.GenerateHint(ctx, theme, []string{q1Text}, hints)
	if err != nil {
		slog.Warn("Life5Flow hint generation failed", "error", err, "userID", ev.UserID, "theme", theme)
		hint = MsgLife5HintFallback
	}

	hints = append(hints, hint)
	if err := f.storeStrings(ctx, ev.UserID, models.DataKeyLife5Hints, hints); err != nil {
		return err
	}
	return f.messenger.Reply(ctx, ev.ReplyToken, fmt.Sprintf("ヒント：\n・%s", hint), nil)
}

func (f *Life5Flow) handleQ1(ctx context.Context, ev models.Event) error {
	if err := f.stateManager.SetStateData(ctx, ev.UserID, models.FlowTypeLife5, models.DataKeyLife5Q1Text, ev.Text); err != nil {
		return err
	}

	summary := summarizeOrTruncate(ctx, f.lm, ev.Text, SummaryLimit)

	recordID, err := f.recorder.CreateLifeRecord(ctx, ev.UserID, summary)
	if err != nil {
		// Progress continues in memory; later answers simply have nowhere
		// to persist.
		slog.Error("Life5Flow record create failed", "error", err, "userID", ev.UserID)
		recordID = ""
	}
	if err := f.stateManager.SetStateData(ctx, ev.UserID, models.FlowTypeLife5, models.DataKeyLife5RecordID, recordID); err != nil {
		return err
	}
	if err := f.storeStrings(ctx, ev.UserID, models.DataKeyLife5Clusters, nil); err != nil {
		return err
	}
	if err := f.stateManager.TransitionState(ctx, ev.UserID, models.FlowTypeLife5, models.StateLife5Q1, models.StateLife5Cluster); err != nil {
		return err
	}

	text := fmt.Sprintf("🔹あなたの要約：\n%s\n\n%s", summary, MsgLife5ClusterPrompt)
	return f.messenger.Reply(ctx, ev.ReplyToken, text, clusterOptions(nil))
}

func (f *Life5Flow) handleClusterSelect(ctx context.Context, ev models.Event, sel string) error {
	selected, err := f.loadStrings(ctx, ev.UserID, models.DataKeyLife5Clusters)
	if err != nil {
		return err
	}

	// Unknown labels and repeat picks are ignored, not errors.
	if !slices.Contains(ClusterLabels, sel) || slices.Contains(selected, sel) {
		slog.Debug("Life5Flow cluster pick ignored", "userID", ev.UserID, "selection", sel)
		return nil
	}

	selected = append(selected, sel)
	if err := f.storeStrings(ctx, ev.UserID, models.DataKeyLife5Clusters, selected); err != nil {
		return err
	}

	if len(selected) < RequiredClusters {
		text := fmt.Sprintf("もう1つ選んでください（%s）", strings.Join(selected, ","))
		return f.messenger.Reply(ctx, ev.ReplyToken, text, clusterOptions(selected))
	}

	var values []string
	for _, cluster := range selected {
		values = append(values, Clusters[cluster]...)
	}
	t := NewTournament(values, MaxPairwise)
	if err := f.storeTournament(ctx, ev.UserID, t); err != nil {
		return err
	}
	if err := f.stateManager.TransitionState(ctx, ev.UserID, models.FlowTypeLife5, models.StateLife5Cluster, models.StateLife5Pairwise); err != nil {
		return err
	}

	a, b, _ := t.Current()
	return f.replyPair(ctx, ev.ReplyToken, a, b)
}

func (f *Life5Flow) handlePairChoice(ctx context.Context, ev models.Event, val string) error {
	t, err := f.loadTournament(ctx, ev.UserID)
	if err != nil {
		return err
	}

	t.Choose(val)
	if err := f.storeTournament(ctx, ev.UserID, t); err != nil {
		return err
	}

	if a, b, ok := t.Current(); ok {
		return f.replyPair(ctx, ev.ReplyToken, a, b)
	}

	cards := t.TopCandidates(CardSortSize)
	if err := f.storeStrings(ctx, ev.UserID, models.DataKeyLife5Cards, cards); err != nil {
		return err
	}
	if err := f.stateManager.TransitionState(ctx, ev.UserID, models.FlowTypeLife5, models.StateLife5Pairwise, models.StateLife5CardSort); err != nil {
		return err
	}

	choices := make([]models.QuickReplyOption, 0, len(cards))
	for _, card := range cards {
		choices = append(choices, models.QuickReplyOption{Label: card, Text: CardPrefix + card})
	}
	return f.messenger.Reply(ctx, ev.ReplyToken, MsgLife5CardPrompt, choices)
}

func (f *Life5Flow) handleCardSort(ctx context.Context, ev models.Event, card string) error {
	cards, err := f.loadStrings(ctx, ev.UserID, models.DataKeyLife5Cards)
	if err != nil {
		return err
	}
	if !slices.Contains(cards, card) {
		slog.Debug("Life5Flow card pick ignored", "userID", ev.UserID, "card", card)
		return nil
	}

	// The winning value is cached for review prompt interpolation.
	if err := f.stateManager.SetStateData(ctx, ev.UserID, models.FlowTypeLife5, models.DataKeyLatestValue, card); err != nil {
		return err
	}
	if err := f.stateManager.SetStateData(ctx, ev.UserID, models.FlowTypeLife5, models.DataKeyLife5Most, card); err != nil {
		return err
	}
	if err := f.stateManager.TransitionState(ctx, ev.UserID, models.FlowTypeLife5, models.StateLife5CardSort, models.StateLife5Q2Reason); err != nil {
		return err
	}

	text := fmt.Sprintf("なぜ「%s」を選びましたか？理由を教えてください。", card)
	return f.messenger.Reply(ctx, ev.ReplyToken, text, nil)
}

func (f *Life5Flow) handleQ2Reason(ctx context.Context, ev models.Event) error {
	most, err := f.stateManager.GetStateData(ctx, ev.UserID, models.FlowTypeLife5, models.DataKeyLife5Most)
	if err != nil {
		return err
	}

	summary := summarizeOrTruncate(ctx, f.lm, fmt.Sprintf("%s（理由：%s）", most, ev.Text), SummaryLimit)
	f.patchRecord(ctx, ev.UserID, "Q2_Summary", summary)

	if err := f.stateManager.TransitionState(ctx, ev.UserID, models.FlowTypeLife5, models.StateLife5Q2Reason, models.StateLife5After); err != nil {
		return err
	}
	if err := f.stateManager.SetStateData(ctx, ev.UserID, models.FlowTypeLife5, models.DataKeyLife5AfterStep, "2"); err != nil {
		return err
	}

	text := fmt.Sprintf("🔹あなたの要約：\n%s\n\nあなたの最重要価値観は「%s」です！\n\n次へ進みます\n\n%s", summary, most, Life5Questions[2])
	return f.messenger.Reply(ctx, ev.ReplyToken, text, nil)
}

// handleAfter processes the sequential reflection prompts. The answer to
// slot n is persisted as Q{n+1}_Summary; the final answer's raw text is
// cached as the user's latest mission for review prompt interpolation.
func (f *Life5Flow) handleAfter(ctx context.Context, ev models.Event) error {
	stepStr, err := f.stateManager.GetStateData(ctx, ev.UserID, models.FlowTypeLife5, models.DataKeyLife5AfterStep)
	if err != nil {
		return err
	}
	step, err := strconv.Atoi(stepStr)
	if err != nil {
		return fmt.Errorf("corrupt after-step cursor %q: %w", stepStr, err)
	}

	// The summary is always computed: it is echoed in the reply even when
	// there is no record to patch.
	summary := summarizeOrTruncate(ctx, f.lm, ev.Text, SummaryLimit)
	f.patchRecord(ctx, ev.UserID, fmt.Sprintf("Q%d_Summary", step+1), summary)

	if step+1 < len(Life5Questions) {
		if err := f.stateManager.SetStateData(ctx, ev.UserID, models.FlowTypeLife5, models.DataKeyLife5AfterStep, strconv.Itoa(step+1)); err != nil {
			return err
		}
		text := fmt.Sprintf("🔹あなたの要約：\n%s\n\n%s", summary, Life5Questions[step+1])
		return f.messenger.Reply(ctx, ev.ReplyToken, text, nil)
	}

	return f.complete(ctx, ev, summary)
}

// complete removes the flow state while retaining the latest value and the
// final answer as the latest mission, both visible to a later review run.
func (f *Life5Flow) complete(ctx context.Context, ev models.Event, summary string) error {
	latestValue, err := f.stateManager.GetStateData(ctx, ev.UserID, models.FlowTypeLife5, models.DataKeyLatestValue)
	if err != nil {
		return err
	}
	if err := f.stateManager.ResetState(ctx, ev.UserID, models.FlowTypeLife5); err != nil {
		return err
	}
	if err := f.stateManager.SetStateData(ctx, ev.UserID, models.FlowTypeLife5, models.DataKeyLatestValue, latestValue); err != nil {
		return err
	}
	if err := f.stateManager.SetStateData(ctx, ev.UserID, models.FlowTypeLife5, models.DataKeyLatestMission, ev.Text); err != nil {
		return err
	}

	slog.Info("Life5Flow completed", "userID", ev.UserID, "latestValue", latestValue)
	text := fmt.Sprintf("🔹あなたの要約：\n%s\n\n%s", summary, MsgLife5Complete)
	return f.messenger.Reply(ctx, ev.ReplyToken, text, nil)
}

// patchRecord writes one field of the life record if one was created. A
// missing handle or failed patch is logged and swallowed.
func (f *Life5Flow) patchRecord(ctx context.Context, userID, key, value string) {
	recordID, err := f.stateManager.GetStateData(ctx, userID, models.FlowTypeLife5, models.DataKeyLife5RecordID)
	if err != nil || recordID == "" {
		slog.Debug("Life5Flow no record to patch", "userID", userID, "key", key)
		return
	}
	if err := f.recorder.PatchRecord(ctx, recordID, key, value); err != nil {
		slog.Error("Life5Flow record patch failed", "error", err, "userID", userID, "key", key)
	}
}

func (f *Life5Flow) replyPair(ctx context.Context, replyToken, a, b string) error {
	text := fmt.Sprintf("%s\nA: %s\nB: %s", MsgLife5PairPrompt, a, b)
	choices := []models.QuickReplyOption{
		{Label: "A:" + a, Text: PairPrefix + a},
		{Label: "B:" + b, Text: PairPrefix + b},
	}
	return f.messenger.Reply(ctx, replyToken, text, choices)
}

// clusterOptions builds the cluster quick replies, omitting already
// selected clusters.
func clusterOptions(selected []string) []models.QuickReplyOption {
	choices := make([]models.QuickReplyOption, 0, len(ClusterLabels))
	for _, cl := range ClusterLabels {
		if slices.Contains(selected, cl) {
			continue
		}
		choices = append(choices, models.QuickReplyOption{Label: cl, Text: ClusterPrefix + cl})
	}
	return choices
}

func (f *Life5Flow) loadStrings(ctx context.Context, userID string, key models.DataKey) ([]string, error) {
	raw, err := f.stateManager.GetStateData(ctx, userID, models.FlowTypeLife5, key)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("corrupt state data for %s: %w", key, err)
	}
	return out, nil
}

func (f *Life5Flow) storeStrings(ctx context.Context, userID string, key models.DataKey, values []string) error {
	if values == nil {
		values = []string{}
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("marshal state data for %s: %w", key, err)
	}
	return f.stateManager.SetStateData(ctx, userID, models.FlowTypeLife5, key, string(raw))
}

func (f *Life5Flow) loadTournament(ctx context.Context, userID string) (*Tournament, error) {
	raw, err := f.stateManager.GetStateData(ctx, userID, models.FlowTypeLife5, models.DataKeyLife5Tournament)
	if err != nil {
		return nil, err
	}
	var t Tournament
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		return nil, fmt.Errorf("corrupt tournament state: %w", err)
	}
	return &t, nil
}

func (f *Life5Flow) storeTournament(ctx context.Context, userID string, t *Tournament) error {
	raw, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal tournament state: %w", err)
	}
	return f.stateManager.SetStateData(ctx, userID, models.FlowTypeLife5, models.DataKeyLife5Tournament, string(raw))
}
