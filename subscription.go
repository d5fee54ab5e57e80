package saga

import (
	"fmt"
	"strings"
)

// Subscription is a cascade rule: when the subject action produces a result
// with the given status, every target action is dispatched. Targets keep
// registration order.
type Subscription struct {
	Subject string
	Status  Status
	Targets []string
}

// Key returns the subject key serviceId.action.status this subscription
// fires on.
func (s *Subscription) Key() string {
	return SubjectKey(s.Subject, s.Status)
}

func (s *Subscription) clone() *Subscription {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Targets = append([]string(nil), s.Targets...)
	return &cp
}

// SubjectKey builds the cascade lookup key for a subject full name and a
// result status.
func SubjectKey(subjectFullName string, status Status) string {
	return subjectFullName + "." + string(status)
}

// ParseSubjectKey splits a serviceId.action.status key into the subject full
// name and status.
func ParseSubjectKey(key string) (subject string, status Status, err error) {
	parts := strings.Split(strings.TrimSpace(key), ".")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", "", invalidIdentity(fmt.Sprintf("subject key %q is not a serviceId.action.status triple", key), nil, nil)
	}
	return parts[0] + "." + parts[1], Status(parts[2]), nil
}
