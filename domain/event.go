package domain

// ChangeAction tags a change event with the mutation that produced it.
type ChangeAction string

const (
	ActionCreate ChangeAction = "create"
	ActionUpdate ChangeAction = "update"
	ActionDelete ChangeAction = "delete"
)

// Valid reports whether the action is one of the known mutation kinds.
func (a ChangeAction) Valid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

// ChangeEvent is pushed to every live client after a task mutation.
// Task holds the row image returned by the store for that mutation.
type ChangeEvent struct {
	Action ChangeAction `json:"action"`
	Task   Task         `json:"task"`
}
