package enums

import (
	"fmt"
	"strings"
)

// ReportStatus tracks the handling of a marble waste report.
type ReportStatus string

const (
	ReportStatusPending    ReportStatus = "pending"
	ReportStatusInProgress ReportStatus = "in_progress"
	ReportStatusCompleted  ReportStatus = "completed"
)

var validReportStatuses = []ReportStatus{
	ReportStatusPending,
	ReportStatusInProgress,
	ReportStatusCompleted,
}

// String implements fmt.Stringer.
func (r ReportStatus) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ReportStatus.
func (r ReportStatus) IsValid() bool {
	for _, candidate := range validReportStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseReportStatus converts raw input into a ReportStatus.
func ParseReportStatus(value string) (ReportStatus, error) {
	for _, candidate := range validReportStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid report status %q", value)
}

// ReportPriority ranks reports for the field team.
type ReportPriority string

const (
	ReportPriorityLow    ReportPriority = "low"
	ReportPriorityMedium ReportPriority = "medium"
	ReportPriorityHigh   ReportPriority = "high"
)

var validReportPriorities = []ReportPriority{
	ReportPriorityLow,
	ReportPriorityMedium,
	ReportPriorityHigh,
}

// String implements fmt.Stringer.
func (r ReportPriority) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ReportPriority.
func (r ReportPriority) IsValid() bool {
	for _, candidate := range validReportPriorities {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseReportPriority converts raw input into a ReportPriority. The admin
// detail screen historically sent "normal" for the middle tier.
func ParseReportPriority(value string) (ReportPriority, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "normal" {
		return ReportPriorityMedium, nil
	}
	for _, candidate := range validReportPriorities {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid report priority %q", value)
}
