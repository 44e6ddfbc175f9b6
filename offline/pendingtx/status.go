package pendingtx

// Status is the lifecycle state of a pending transaction. The set is closed:
// unknown strings read back from storage fail IsValid and are rejected on
// write.
type Status string

const (
	StatusInitiated  Status = "INITIATED"
	StatusProcessing Status = "PROCESSING"
	StatusUploading  Status = "UPLOADING"
	StatusVerifying  Status = "VERIFYING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

func (s Status) String() string {
	return string(s)
}

// IsValid reports whether s is a known lifecycle state.
func (s Status) IsValid() bool {
	switch s {
	case StatusInitiated, StatusProcessing, StatusUploading, StatusVerifying, StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether s ends the lifecycle. Terminal records are
// removed from the pending set rather than updated in place.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransitionTo reports whether moving from s to next is a legal step.
// Every non-terminal state may jump straight to a terminal one: a fast
// settlement can complete a payment before any intermediate update lands.
func (s Status) CanTransitionTo(next Status) bool {
	if !s.IsValid() || !next.IsValid() {
		return false
	}

	if s.IsTerminal() {
		return false
	}

	if next.IsTerminal() {
		return true
	}

	switch s {
	case StatusInitiated:
		return next == StatusProcessing || next == StatusUploading
	case StatusProcessing:
		return next == StatusVerifying
	case StatusUploading:
		return next == StatusProcessing || next == StatusVerifying
	default:
		// VERIFYING only resolves terminally.
		return false
	}
}
