package records

import (
	"regexp"
	"strconv"
	"strings"
)

// Natural keys are derived strings used only for cross-store duplicate
// detection. They are never stored as primary identifiers. Two records
// whose keys match are treated as the same real-world entity no matter
// how their local or remote identifiers differ.

const keySeparator = "|"

var (
	whitespaceRun  = regexp.MustCompile(`\s+`)
	disallowedRune = regexp.MustCompile(`[^a-z0-9_]`)
)

// ClientKey derives the natural key for a client: lowercase, trimmed,
// whitespace runs collapsed to a single underscore, every character
// outside [a-z0-9_] stripped. An empty name yields an empty key, which
// raises the collision risk for incomplete records but never fails.
func ClientKey(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	key = whitespaceRun.ReplaceAllString(key, "_")
	return disallowedRune.ReplaceAllString(key, "")
}

// UserKey derives the natural key for a user account.
func UserKey(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// OrderKeyField names one component of the service-order natural key.
type OrderKeyField string

const (
	OrderFieldClient     OrderKeyField = "client"
	OrderFieldDate       OrderKeyField = "date"
	OrderFieldTechnician OrderKeyField = "technician"
	OrderFieldVisitCount OrderKeyField = "visit_count"
)

// MatchPolicy selects which fields define service-order identity during
// reconciliation. The source data never settled on one answer, so the
// fields are configuration rather than a hardcoded rule.
type MatchPolicy struct {
	Fields []OrderKeyField
}

// DefaultMatchPolicy matches on client + date + technician + visit
// count. This key is coarse: two distinct orders sharing all four
// values collide and are treated as duplicates.
func DefaultMatchPolicy() MatchPolicy {
	return MatchPolicy{Fields: []OrderKeyField{
		OrderFieldClient,
		OrderFieldDate,
		OrderFieldTechnician,
		OrderFieldVisitCount,
	}}
}

// OrderKey derives the natural key for a service order by joining the
// policy's fields with "|". Missing fields contribute empty segments.
func (p MatchPolicy) OrderKey(order ServiceOrder) string {
	fields := p.Fields
	if len(fields) == 0 {
		fields = DefaultMatchPolicy().Fields
	}
	segments := make([]string, 0, len(fields))
	for _, field := range fields {
		switch field {
		case OrderFieldClient:
			segments = append(segments, order.ClientID)
		case OrderFieldDate:
			segments = append(segments, order.Date)
		case OrderFieldTechnician:
			segments = append(segments, order.Technician)
		case OrderFieldVisitCount:
			segments = append(segments, strconv.Itoa(len(order.Visits)))
		default:
			segments = append(segments, "")
		}
	}
	return strings.Join(segments, keySeparator)
}

// SameOrder is the secondary merge heuristic: a direct field comparison
// of technician, date, and client. It reduces false negatives from the
// coarse composite key when visit counts drifted between stores.
func SameOrder(a, b ServiceOrder) bool {
	return a.Technician == b.Technician &&
		a.Date == b.Date &&
		a.ClientID == b.ClientID
}
