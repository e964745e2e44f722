// Package flow provides concrete implementations of state management.
package flow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tsumugi-lab/lifelog/internal/models"
)

// InMemoryStateManager implements StateManager with process-local storage.
// Flow state deliberately does not survive restarts; it exists only for the
// lifetime of the process. All methods are safe for concurrent use, but
// callers must serialize read-modify-write sequences for a single user
// (the API layer holds a per-user lock around event handling).
type InMemoryStateManager struct {
	mu     sync.RWMutex
	states map[string]map[models.FlowType]*models.FlowState
}

// NewInMemoryStateManager creates an empty in-memory state manager.
func NewInMemoryStateManager() *InMemoryStateManager {
	slog.Debug("Creating InMemoryStateManager")
	return &InMemoryStateManager{states: make(map[string]map[models.FlowType]*models.FlowState)}
}

func (sm *InMemoryStateManager) get(userID string, flowType models.FlowType) *models.FlowState {
	if byFlow, ok := sm.states[userID]; ok {
		return byFlow[flowType]
	}
	return nil
}

func (sm *InMemoryStateManager) getOrCreate(userID string, flowType models.FlowType) *models.FlowState {
	byFlow, ok := sm.states[userID]
	if !ok {
		byFlow = make(map[models.FlowType]*models.FlowState)
		sm.states[userID] = byFlow
	}
	st, ok := byFlow[flowType]
	if !ok {
		now := time.Now()
		st = &models.FlowState{
			UserID:    userID,
			FlowType:  flowType,
			StateData: make(map[models.DataKey]string),
			CreatedAt: now,
			UpdatedAt: now,
		}
		byFlow[flowType] = st
	}
	return st
}

// GetCurrentState retrieves the current state for a user in a flow.
func (sm *InMemoryStateManager) GetCurrentState(ctx context.Context, userID string, flowType models.FlowType) (models.StateType, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	st := sm.get(userID, flowType)
	if st == nil {
		return "", nil
	}
	return st.CurrentState, nil
}

// SetCurrentState updates the current state for a user in a flow, creating
// the flow state record if it does not exist.
func (sm *InMemoryStateManager) SetCurrentState(ctx context.Context, userID string, flowType models.FlowType, state models.StateType) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	st := sm.getOrCreate(userID, flowType)
	st.CurrentState = state
	st.UpdatedAt = time.Now()

	slog.Debug("StateManager SetCurrentState", "userID", userID, "flowType", flowType, "state", state)
	return nil
}

// GetStateData retrieves additional data associated with the user's state.
// Missing keys return an empty string.
func (sm *InMemoryStateManager) GetStateData(ctx context.Context, userID string, flowType models.FlowType, key models.DataKey) (string, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	st := sm.get(userID, flowType)
	if st == nil || st.StateData == nil {
		return "", nil
	}
	return st.StateData[key], nil
}

// SetStateData stores additional data associated with the user's state,
// creating the flow state record (with an empty current state) if needed.
func (sm *InMemoryStateManager) SetStateData(ctx context.Context, userID string, flowType models.FlowType, key models.DataKey, value string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	st := sm.getOrCreate(userID, flowType)
	st.StateData[key] = value
	st.UpdatedAt = time.Now()

	slog.Debug("StateManager SetStateData", "userID", userID, "flowType", flowType, "key", key)
	return nil
}

// TransitionState transitions from one state to another.
func (sm *InMemoryStateManager) TransitionState(ctx context.Context, userID string, flowType models.FlowType, fromState, toState models.StateType) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	st := sm.get(userID, flowType)
	current := models.StateType("")
	if st != nil {
		current = st.CurrentState
	}
	if current != fromState {
		err := fmt.Errorf("invalid state transition: expected %s, current is %s", fromState, current)
		slog.Error("StateManager TransitionState invalid transition", "error", err, "userID", userID, "flowType", flowType)
		return err
	}

	st = sm.getOrCreate(userID, flowType)
	st.CurrentState = toState
	st.UpdatedAt = time.Now()

	slog.Info("StateManager TransitionState succeeded", "userID", userID, "flowType", flowType, "from", fromState, "to", toState)
	return nil
}

// ResetState removes all state data for a user in a flow.
func (sm *InMemoryStateManager) ResetState(ctx context.Context, userID string, flowType models.FlowType) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if byFlow, ok := sm.states[userID]; ok {
		delete(byFlow, flowType)
		if len(byFlow) == 0 {
			delete(sm.states, userID)
		}
	}

	slog.Debug("StateManager ResetState", "userID", userID, "flowType", flowType)
	return nil
}
