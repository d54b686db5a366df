// Package core provides the generic node/flow execution framework the
// agent loop is built from: a Prep/Exec/Post lifecycle per node, with
// action-based routing between nodes.
package core

// Action names the outcome of a node's Post step, used to route to the
// next node in a Flow.
type Action string

const (
	ActionContinue Action = "continue"
	ActionEnd      Action = "end"
	ActionSuccess  Action = "success"
	ActionFailure  Action = "failure"
	ActionDefault  Action = "default"
	ActionTool     Action = "tool"
	ActionAnswer   Action = "answer"
)
