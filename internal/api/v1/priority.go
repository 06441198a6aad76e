package v1

import "fmt"

// Priority orders delivery. CRITICAL drains before HIGH, and so on.
type Priority int

const (
	PriorityCritical Priority = 0
	PriorityHigh     Priority = 1
	PriorityNormal   Priority = 2
	PriorityLow      Priority = 3
)

// Valid reports whether p is one of the four known priorities.
func (p Priority) Valid() bool {
	return p >= PriorityCritical && p <= PriorityLow
}

func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityHigh:
		return "high"
	case PriorityNormal:
		return "normal"
	case PriorityLow:
		return "low"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}
