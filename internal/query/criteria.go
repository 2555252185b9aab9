package query

import (
	"fmt"
	"strings"
	"time"
)

// Priority is one of the fixed task priority levels.
type Priority string

const (
	PriorityNone   Priority = ""
	PriorityHigh   Priority = "alta"
	PriorityMedium Priority = "media"
	PriorityLow    Priority = "baja"
)

// Priorities lists the selectable priorities in display order.
var Priorities = []Priority{PriorityHigh, PriorityMedium, PriorityLow}

// ParsePriority accepts the wire names plus their English aliases.
func ParsePriority(raw string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return PriorityNone, nil
	case "alta", "high":
		return PriorityHigh, nil
	case "media", "medium":
		return PriorityMedium, nil
	case "baja", "low":
		return PriorityLow, nil
	default:
		return PriorityNone, fmt.Errorf("unknown priority %q", raw)
	}
}

// Completion is a tri-state completion constraint.
type Completion int

const (
	CompletionAny Completion = iota
	CompletionDone
	CompletionPending
)

func (c Completion) String() string {
	switch c {
	case CompletionDone:
		return "done"
	case CompletionPending:
		return "pending"
	default:
		return "any"
	}
}

// ParseCompletion is the inverse of Completion.String.
func ParseCompletion(raw string) (Completion, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "any":
		return CompletionAny, nil
	case "done", "true", "completed":
		return CompletionDone, nil
	case "pending", "false", "open":
		return CompletionPending, nil
	default:
		return CompletionAny, fmt.Errorf("unknown completion %q", raw)
	}
}

// Field names one filter dimension of Criteria.
type Field string

const (
	FieldSearch     Field = "search"
	FieldCompletion Field = "completed"
	FieldPriority   Field = "priority"
	FieldCategory   Field = "category"
	FieldTag        Field = "tag"
	FieldDueRange   Field = "due"
)

// Fields lists every filter field in canonical order.
var Fields = []Field{FieldSearch, FieldCompletion, FieldPriority, FieldCategory, FieldTag, FieldDueRange}

const dateLayout = "2006-01-02"

// Criteria is the user's filter selection. It only holds value fields, so a
// copy never aliases another; the With* methods return modified copies.
type Criteria struct {
	Search     string
	Completion Completion
	Priority   Priority
	CategoryID string
	TagID      string
	DueFrom    time.Time
	DueTo      time.Time
}

// WithSearch returns a copy with the free-text search replaced.
func (c Criteria) WithSearch(text string) Criteria {
	c.Search = strings.TrimSpace(text)
	return c
}

// WithCompletion returns a copy with the completion constraint replaced.
func (c Criteria) WithCompletion(v Completion) Criteria {
	c.Completion = v
	return c
}

// WithPriority returns a copy with the priority constraint replaced.
func (c Criteria) WithPriority(p Priority) Criteria {
	c.Priority = p
	return c
}

// WithCategory returns a copy constrained to a category id.
func (c Criteria) WithCategory(id string) Criteria {
	c.CategoryID = strings.TrimSpace(id)
	return c
}

// WithTag returns a copy constrained to a tag id.
func (c Criteria) WithTag(id string) Criteria {
	c.TagID = strings.TrimSpace(id)
	return c
}

// WithDueRange returns a copy with due date bounds truncated to UTC days.
// A zero time leaves that side open.
func (c Criteria) WithDueRange(from, to time.Time) Criteria {
	c.DueFrom = day(from)
	c.DueTo = day(to)
	return c
}

// Without returns a copy with one filter field cleared.
func (c Criteria) Without(f Field) Criteria {
	switch f {
	case FieldSearch:
		c.Search = ""
	case FieldCompletion:
		c.Completion = CompletionAny
	case FieldPriority:
		c.Priority = PriorityNone
	case FieldCategory:
		c.CategoryID = ""
	case FieldTag:
		c.TagID = ""
	case FieldDueRange:
		c.DueFrom = time.Time{}
		c.DueTo = time.Time{}
	}
	return c
}

// Has reports whether field f constrains the result.
func (c Criteria) Has(f Field) bool {
	switch f {
	case FieldSearch:
		return c.Search != ""
	case FieldCompletion:
		return c.Completion != CompletionAny
	case FieldPriority:
		return c.Priority != PriorityNone
	case FieldCategory:
		return c.CategoryID != ""
	case FieldTag:
		return c.TagID != ""
	case FieldDueRange:
		return !c.DueFrom.IsZero() || !c.DueTo.IsZero()
	}
	return false
}

// Active returns the constrained fields in canonical order.
func (c Criteria) Active() []Field {
	var out []Field
	for _, f := range Fields {
		if c.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

// IsZero reports whether no field is constrained.
func (c Criteria) IsZero() bool {
	return len(c.Active()) == 0
}

// Equal compares two criteria structurally.
func (c Criteria) Equal(o Criteria) bool {
	return c.Search == o.Search &&
		c.Completion == o.Completion &&
		c.Priority == o.Priority &&
		c.CategoryID == o.CategoryID &&
		c.TagID == o.TagID &&
		c.DueFrom.Equal(o.DueFrom) &&
		c.DueTo.Equal(o.DueTo)
}

// Diff returns the fields whose values differ between c and o.
func (c Criteria) Diff(o Criteria) []Field {
	var out []Field
	for _, f := range Fields {
		if c.value(f) != o.value(f) {
			out = append(out, f)
		}
	}
	return out
}

// Validate rejects values that can never reach the API.
func (c Criteria) Validate() error {
	if _, err := ParsePriority(string(c.Priority)); err != nil {
		return err
	}
	if c.Completion < CompletionAny || c.Completion > CompletionPending {
		return fmt.Errorf("invalid completion %d", c.Completion)
	}
	if !c.DueFrom.IsZero() && !c.DueTo.IsZero() && c.DueTo.Before(c.DueFrom) {
		return fmt.Errorf("due range ends before it starts")
	}
	return nil
}

// value renders one field in its wire form; "" means unconstrained.
func (c Criteria) value(f Field) string {
	switch f {
	case FieldSearch:
		return c.Search
	case FieldCompletion:
		switch c.Completion {
		case CompletionDone:
			return "true"
		case CompletionPending:
			return "false"
		}
		return ""
	case FieldPriority:
		return string(c.Priority)
	case FieldCategory:
		return c.CategoryID
	case FieldTag:
		return c.TagID
	case FieldDueRange:
		if !c.Has(FieldDueRange) {
			return ""
		}
		return formatDate(c.DueFrom) + ".." + formatDate(c.DueTo)
	}
	return ""
}

// Label renders a short human description of one active field.
func (c Criteria) Label(f Field) string {
	switch f {
	case FieldSearch:
		return fmt.Sprintf("%q", c.Search)
	case FieldCompletion:
		return c.Completion.String()
	case FieldPriority:
		return "priority " + string(c.Priority)
	case FieldCategory:
		return "category " + c.CategoryID
	case FieldTag:
		return "#" + c.TagID
	case FieldDueRange:
		return "due " + c.value(FieldDueRange)
	}
	return string(f)
}

func day(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateLayout)
}

// ParseDate parses a YYYY-MM-DD day; empty input yields the zero time.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(dateLayout, raw, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", raw, err)
	}
	return t, nil
}

// FormatDate renders a day as YYYY-MM-DD, or "" for the zero time.
func FormatDate(t time.Time) string {
	return formatDate(t)
}
