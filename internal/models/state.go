// Package models defines state management structures for lifelog flows.
package models

import "time"

// FlowState represents the progress of one user in one flow. Flow state is
// held only in memory for the lifetime of the process.
type FlowState struct {
	UserID       string             `json:"user_id"`
	FlowType     FlowType           `json:"flow_type"`
	CurrentState StateType          `json:"current_state"`
	StateData    map[DataKey]string `json:"state_data,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}
