package valueobjects

// UpdateAction is the direction of a graph mutation. Only unit deltas are
// ever applied to popularity and correlation weights.
type UpdateAction int

const (
	ActionIncrement UpdateAction = 1
	ActionDecrement UpdateAction = -1
)

// Delta returns the signed amount applied by the action
func (a UpdateAction) Delta() int64 {
	return int64(a)
}

func (a UpdateAction) String() string {
	switch a {
	case ActionIncrement:
		return "INCREMENT"
	case ActionDecrement:
		return "DECREMENT"
	default:
		return "UNKNOWN"
	}
}
