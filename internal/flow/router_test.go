package flow

import (
	"context"
	"testing"

	"github.com/tsumugi-lab/lifelog/internal/models"
)

func newRouterFixture() (*Router, *InMemoryStateManager, *fakeMessenger) {
	sm := NewInMemoryStateManager()
	msg := &fakeMessenger{}
	lm := &fakeLanguageModel{}
	rec := &fakeRecorder{}
	memo := NewMemoFlow(sm, msg, rec)
	review := NewReviewFlow(sm, msg, lm, rec)
	life5 := NewLife5Flow(sm, msg, lm, rec)
	return NewRouter(memo, review, life5, msg), sm, msg
}

func TestRouter_CommandsReachTheirFlows(t *testing.T) {
	tests := []struct {
		input    string
		wantText string
	}{
		{input: "memo", wantText: MsgMemoMenu},
		{input: "/review", wantText: ReviewQuestions[0].Label},
		{input: "/life5", wantText: MsgLife5Intro},
	}
	for _, tc := range tests {
		r, _, msg := newRouterFixture()
		if err := r.Route(context.Background(), textEvent("u1", tc.input)); err != nil {
			t.Fatalf("Route(%q) failed: %v", tc.input, err)
		}
		if msg.last().text != tc.wantText {
			t.Errorf("Route(%q): expected %q, got %q", tc.input, tc.wantText, msg.last().text)
		}
	}
}

func TestRouter_TrimsSurroundingWhitespace(t *testing.T) {
	r, sm, _ := newRouterFixture()
	ctx := context.Background()

	if err := r.Route(ctx, textEvent("u1", "  memo \n")); err != nil {
		t.Fatalf("Route failed: %v", err)
	}
	state, _ := sm.GetCurrentState(ctx, "u1", models.FlowTypeMemo)
	if state != models.StateMemoModeSelect {
		t.Errorf("padded command must start the memo flow, got %q", state)
	}
}

func TestRouter_ActiveMemoClaimsOtherCommands(t *testing.T) {
	r, sm, msg := newRouterFixture()
	ctx := context.Background()

	if err := r.Route(ctx, textEvent("u1", "memo")); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := r.Route(ctx, textEvent("u1", "/review")); err != nil {
		t.Fatalf("Route failed: %v", err)
	}

	// The memo flow answered; the review flow never started.
	if msg.last().text != MsgUnhandled {
		t.Errorf("expected memo steering reply, got %q", msg.last().text)
	}
	state, _ := sm.GetCurrentState(ctx, "u1", models.FlowTypeReview)
	if state != "" {
		t.Errorf("review must not start behind an active memo, got %q", state)
	}
}

func TestRouter_UnclaimedEventGetsFallback(t *testing.T) {
	r, _, msg := newRouterFixture()

	if err := r.Route(context.Background(), textEvent("u1", "おはよう")); err != nil {
		t.Fatalf("Route failed: %v", err)
	}
	if msg.last().text != MsgUnhandled {
		t.Errorf("expected fallback reply, got %q", msg.last().text)
	}
}

func TestRouter_FlowsAreIndependentPerUser(t *testing.T) {
	r, sm, _ := newRouterFixture()
	ctx := context.Background()

	if err := r.Route(ctx, textEvent("u1", "memo")); err != nil {
		t.Fatalf("u1 start failed: %v", err)
	}
	if err := r.Route(ctx, textEvent("u2", "/life5")); err != nil {
		t.Fatalf("u2 start failed: %v", err)
	}

	u1Memo, _ := sm.GetCurrentState(ctx, "u1", models.FlowTypeMemo)
	u2Life5, _ := sm.GetCurrentState(ctx, "u2", models.FlowTypeLife5)
	u2Memo, _ := sm.GetCurrentState(ctx, "u2", models.FlowTypeMemo)
	if u1Memo != models.StateMemoModeSelect || u2Life5 != models.StateLife5Theme {
		t.Errorf("expected independent states, got u1=%q u2=%q", u1Memo, u2Life5)
	}
	if u2Memo != "" {
		t.Errorf("u2 must have no memo state, got %q", u2Memo)
	}
}
