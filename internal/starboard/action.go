package starboard

// Action is the outcome of a single observation.
type Action int

const (
	// ActionNone means nothing was mirrored or updated.
	ActionNone Action = iota
	// ActionCreated means new starboard content and a record were created.
	ActionCreated
	// ActionUpdated means an existing record's count was updated.
	ActionUpdated
)

func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionCreated:
		return "created"
	case ActionUpdated:
		return "updated"
	default:
		return "unknown"
	}
}
