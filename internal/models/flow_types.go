// Package models defines flow type definitions to avoid circular imports.
package models

// FlowType identifies one of the independent guided conversations.
type FlowType string

// StateType represents a specific state within a flow.
type StateType string

// DataKey represents a key for storing state-specific data.
type DataKey string

// Flow type constants. A user has at most one FlowState per flow type;
// dispatch precedence between them is memo > review > life5.
const (
	FlowTypeMemo   FlowType = "memo"
	FlowTypeLife5  FlowType = "life5"
	FlowTypeReview FlowType = "review"
)

// State constants for the memo flow.
const (
	StateMemoModeSelect        StateType = "MODE_SELECT"
	StateMemoCategorySelect    StateType = "CATEGORY_SELECT"
	StateMemoSubcategorySelect StateType = "SUBCATEGORY_SELECT"
	StateMemoContentInput      StateType = "CONTENT_INPUT"
)

// State constants for the life5 flow.
const (
	StateLife5Theme    StateType = "THEME"
	StateLife5Q1       StateType = "Q1"
	StateLife5Cluster  StateType = "CLUSTER"
	StateLife5Pairwise StateType = "PAIRWISE"
	StateLife5CardSort StateType = "CARDSORT"
	StateLife5Q2Reason StateType = "Q2_REASON"
	StateLife5After    StateType = "AFTER"
)

// State constants for the review flow. The review flow tracks its position
// with a numeric step cursor in state data; the single ACTIVE state marks
// the flow as claimed.
const (
	StateReviewActive StateType = "REVIEW_ACTIVE"
)

// Data key constants for the memo flow.
const (
	DataKeyMemoCategory    DataKey = "memoCategory"
	DataKeyMemoSubcategory DataKey = "memoSubcategory"
)

// Data key constants for the life5 flow.
const (
	DataKeyLife5Theme      DataKey = "life5Theme"      // chosen regret theme
	DataKeyLife5Q1Text     DataKey = "life5Q1Text"     // raw regret narrative
	DataKeyLife5Hints      DataKey = "life5Hints"      // JSON array of generated hints
	DataKeyLife5RecordID   DataKey = "life5RecordID"   // external row handle, may stay empty
	DataKeyLife5Clusters   DataKey = "life5Clusters"   // JSON array of selected cluster labels
	DataKeyLife5Tournament DataKey = "life5Tournament" // JSON-encoded pairwise tournament
	DataKeyLife5Cards      DataKey = "life5Cards"      // JSON array of card-sort candidates
	DataKeyLife5Most       DataKey = "life5Most"       // winning value from the card sort
	DataKeyLife5AfterStep  DataKey = "life5AfterStep"  // cursor into the Q3..Q5 prompt slots
	DataKeyLatestValue     DataKey = "latestValue"     // carried into review prompts
	DataKeyLatestMission   DataKey = "latestMission"   // carried into review prompts
)

// Data key constants for the review flow.
const (
	DataKeyReviewStep          DataKey = "reviewStep"          // numeric question cursor
	DataKeyReviewRecordID      DataKey = "reviewRecordID"      // external row handle, may stay empty
	DataKeyReviewLatestValue   DataKey = "reviewLatestValue"   // snapshot taken from life5 at start
	DataKeyReviewLatestMission DataKey = "reviewLatestMission" // snapshot taken from life5 at start
	DataKeyReviewPendingTag    DataKey = "reviewPendingTag"    // emotion tag awaiting its note
	DataKeyReviewAnswerPrefix  DataKey = "answer."             // per-question captured values
)

// AnswerKey returns the state data key holding the captured answer for a
// review question.
func AnswerKey(questionKey string) DataKey {
	return DataKeyReviewAnswerPrefix + DataKey(questionKey)
}
