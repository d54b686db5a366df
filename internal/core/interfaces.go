package core

import "context"

// BaseNode defines the core interface for all nodes in a flow, following
// the three-phase execution model: Prep -> Exec -> Post.
//
// Type parameters:
//   - State: the shared state passed through the flow
//   - PrepResult: the type returned by Prep and consumed by Exec
//   - ExecResults: the type returned by Exec and consumed by Post
type BaseNode[State any, PrepResult any, ExecResults any] interface {
	// Prep reads from shared state and generates work items for Exec.
	Prep(state *State) []PrepResult

	// Exec performs the core logic on a single work item.
	Exec(ctx context.Context, prepResult PrepResult) (ExecResults, error)

	// Post handles results from Exec and determines the next action.
	Post(state *State, prepRes []PrepResult, execResults ...ExecResults) Action

	// ExecFallback provides a default result if Exec fails after all retries.
	ExecFallback(err error) ExecResults
}

// Workflow is a unit of execution that can be connected to other workflows.
// Both Node and Flow implement it, enabling composition.
type Workflow[State any] interface {
	Run(ctx context.Context, state *State) Action
	GetSuccessor(action Action) Workflow[State]
	AddSuccessor(successor Workflow[State], action ...Action) Workflow[State]
}
