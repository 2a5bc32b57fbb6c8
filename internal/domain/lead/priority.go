package lead

// Priority ranks how urgently a lead should be worked
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// DefaultPriority is assigned when the intake does not specify one
const DefaultPriority = PriorityMedium

// IsValid checks if the priority is known
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// String returns the string representation of Priority
func (p Priority) String() string {
	return string(p)
}
