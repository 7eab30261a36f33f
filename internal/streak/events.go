package streak

// EventKind tags engine events for subscribers that only care about one type.
type EventKind string

const (
	KindMilestoneReached EventKind = "milestone_reached"
	KindResetOccurred    EventKind = "reset_occurred"
)

// Event is emitted by the engine alongside the updated category.
type Event interface {
	Kind() EventKind
}

// MilestoneReached is emitted when a completion lands exactly on a threshold.
type MilestoneReached struct {
	CategoryID   uint   `json:"categoryId"`
	CategoryName string `json:"categoryName"`
	Days         int    `json:"days"`
}

func (MilestoneReached) Kind() EventKind { return KindMilestoneReached }

// ResetOccurred is emitted when an inactive category is zeroed.
type ResetOccurred struct {
	CategoryID     uint   `json:"categoryId"`
	CategoryName   string `json:"categoryName"`
	PreviousStreak int    `json:"previousStreak"`
}

func (ResetOccurred) Kind() EventKind { return KindResetOccurred }
