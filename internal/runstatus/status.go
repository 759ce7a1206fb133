package runstatus

import (
	"fmt"
	"strings"
)

// Category names a pipeline status track in the status store.
type Category string

const (
	CategorySequencing Category = "sequencing"
	CategoryConversion Category = "conversion"
)

// Status is one value of the shared status vocabulary.
type Status string

const (
	StatusInitial          Status = "initial"
	StatusReady            Status = "ready"
	StatusInProgress       Status = "in_progress"
	StatusComplete         Status = "complete"
	StatusCompleteWarnings Status = "complete_warnings"
	StatusFailed           Status = "failed"
	StatusClosed           Status = "closed"
	StatusCanceled         Status = "canceled"
	StatusSkipped          Status = "skipped"
)

var allStatuses = []Status{
	StatusInitial,
	StatusReady,
	StatusInProgress,
	StatusComplete,
	StatusCompleteWarnings,
	StatusFailed,
	StatusClosed,
	StatusCanceled,
	StatusSkipped,
}

var terminalStatuses = map[Status]struct{}{
	StatusComplete:         {},
	StatusCompleteWarnings: {},
	StatusFailed:           {},
	StatusClosed:           {},
	StatusCanceled:         {},
	StatusSkipped:          {},
}

// AllStatuses returns the ordered vocabulary.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus normalizes value into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allStatuses {
		if status == normalized {
			return status, true
		}
	}
	return normalized, false
}

// Known reports whether s is part of the vocabulary.
func (s Status) Known() bool {
	_, ok := ParseStatus(string(s))
	return ok
}

// Terminal reports whether no further stage action should be taken for s.
// Unknown values are never terminal.
func (s Status) Terminal() bool {
	_, ok := terminalStatuses[s]
	return ok
}

func (s Status) String() string { return string(s) }

// DeliveryType describes which conversion handling a run requires.
type DeliveryType struct {
	Seq bool
	BCL bool
}

// ParseDeliveryType accepts the store's delivery type values: seq, bcl, and
// seq_bcl (in either order, joined by '_', '+' or ',').
func ParseDeliveryType(value string) (DeliveryType, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return DeliveryType{}, fmt.Errorf("empty delivery type")
	}
	var dt DeliveryType
	for _, part := range strings.FieldsFunc(normalized, func(r rune) bool {
		return r == '_' || r == '+' || r == ',' || r == ' '
	}) {
		switch part {
		case "seq":
			dt.Seq = true
		case "bcl":
			dt.BCL = true
		default:
			return DeliveryType{}, fmt.Errorf("unknown delivery type %q", value)
		}
	}
	return dt, nil
}

// Any reports whether the run needs conversion handling at all.
func (d DeliveryType) Any() bool { return d.Seq || d.BCL }

func (d DeliveryType) String() string {
	switch {
	case d.Seq && d.BCL:
		return "seq_bcl"
	case d.Seq:
		return "seq"
	case d.BCL:
		return "bcl"
	default:
		return "none"
	}
}
