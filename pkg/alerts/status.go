package alerts

import (
	"fmt"
	"strings"
)

// Status is the closed lifecycle vocabulary. Valid sequences are prefixes of
// new→acknowledged→resolved, new→resolved, new→ignored and
// new→acknowledged→ignored; resolved and ignored are terminal.
type Status string

const (
	StatusNew          Status = "new"
	StatusAcknowledged Status = "acknowledged"
	StatusResolved     Status = "resolved"
	StatusIgnored      Status = "ignored"
)

var allStatuses = []Status{StatusNew, StatusAcknowledged, StatusResolved, StatusIgnored}

var transitions = map[Status][]Status{
	StatusNew:          {StatusAcknowledged, StatusResolved, StatusIgnored},
	StatusAcknowledged: {StatusResolved, StatusIgnored},
	StatusResolved:     {},
	StatusIgnored:      {},
}

func (s Status) Terminal() bool {
	return s == StatusResolved || s == StatusIgnored
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// legacyStatuses maps the vocabularies still used by older camera firmware
// and dashboard builds onto the closed set. Only accepted on input; never
// emitted.
var legacyStatuses = map[string]Status{
	"active":         StatusNew,
	"open":           StatusNew,
	"pending":        StatusNew,
	"ack":            StatusAcknowledged,
	"closed":         StatusResolved,
	"handled":        StatusResolved,
	"falsepositive":  StatusIgnored,
	"false_positive": StatusIgnored,
	"dismissed":      StatusIgnored,
}

// ParseStatus normalizes raw payload status values, current or legacy.
func ParseStatus(raw string) (Status, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	for _, status := range allStatuses {
		if normalized == string(status) {
			return status, nil
		}
	}
	if status, ok := legacyStatuses[normalized]; ok {
		return status, nil
	}
	return "", fmt.Errorf("unknown alert status %q", raw)
}

// ParseStatusSet parses a comma-separated status filter.
func ParseStatusSet(raw string) ([]Status, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var statuses []Status
	for _, part := range strings.Split(raw, ",") {
		status, err := ParseStatus(part)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}
