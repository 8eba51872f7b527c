package models

import "time"

// RetentionScope selects which items a policy applies to.
type RetentionScope string

const (
	ScopeGlobal RetentionScope = "global"
	ScopeVault  RetentionScope = "vault"
	ScopeType   RetentionScope = "type"
	ScopeUser   RetentionScope = "user"
)

// RetentionCondition is the trigger evaluated against an item.
type RetentionCondition string

const (
	// CondAgeOver matches items created longer than Threshold ago.
	CondAgeOver RetentionCondition = "age_over"
	// CondNotAccessedFor matches items whose last access (or creation,
	// if never accessed) is older than Threshold.
	CondNotAccessedFor RetentionCondition = "not_accessed_for"
)

// RetentionAction is applied to a matched item through the engine.
type RetentionAction string

const (
	ActionArchive  RetentionAction = "archive"
	ActionDelete   RetentionAction = "delete"
	ActionCompress RetentionAction = "compress"
)

// RetentionRule maps a condition to an action with an extra delay before
// the action fires.
type RetentionRule struct {
	Condition RetentionCondition
	Threshold time.Duration
	Action    RetentionAction
	Delay     time.Duration
}

// RetentionPolicy groups ordered rules under a scope. Target carries the
// scope argument: a vault id, a content type, or a user id. Empty for the
// global scope.
type RetentionPolicy struct {
	ID      string
	Scope   RetentionScope
	Target  string
	Rules   []RetentionRule
	Enabled bool
}
