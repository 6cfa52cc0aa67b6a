package enums

import "fmt"

// PromptStatus describes the publication state of a listing.
type PromptStatus string

const (
	PromptStatusActive   PromptStatus = "active"
	PromptStatusInactive PromptStatus = "inactive"
	PromptStatusDraft    PromptStatus = "draft"
)

var validPromptStatuses = []PromptStatus{
	PromptStatusActive,
	PromptStatusInactive,
	PromptStatusDraft,
}

// String returns the literal string for the status.
func (s PromptStatus) String() string {
	return string(s)
}

// IsValid reports whether the status is known.
func (s PromptStatus) IsValid() bool {
	for _, candidate := range validPromptStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParsePromptStatus converts raw input into a PromptStatus.
func ParsePromptStatus(value string) (PromptStatus, error) {
	for _, candidate := range validPromptStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid prompt status %q", value)
}
