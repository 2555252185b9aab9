package query

import (
	"fmt"
	"strings"
)

// SortField is one of the sortable task attributes.
type SortField string

const (
	SortTitle     SortField = "title"
	SortPriority  SortField = "priority"
	SortDueDate   SortField = "due_date"
	SortCreatedAt SortField = "created_at"
	SortUpdatedAt SortField = "updated_at"
)

// SortFields lists the sortable fields in cycling order.
var SortFields = []SortField{SortCreatedAt, SortUpdatedAt, SortDueDate, SortPriority, SortTitle}

// Direction is the sort direction.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// SortOrder pairs a field with a direction.
type SortOrder struct {
	Field     SortField
	Direction Direction
}

// DefaultOrder is created time, newest first.
func DefaultOrder() SortOrder {
	return SortOrder{Field: SortCreatedAt, Direction: Descending}
}

// IsDefault reports whether o equals DefaultOrder.
func (o SortOrder) IsDefault() bool {
	return o == DefaultOrder()
}

// Reversed flips the direction.
func (o SortOrder) Reversed() SortOrder {
	if o.Direction == Ascending {
		o.Direction = Descending
	} else {
		o.Direction = Ascending
	}
	return o
}

// Next cycles to the following sort field, keeping the direction.
func (o SortOrder) Next() SortOrder {
	for i, f := range SortFields {
		if f == o.Field {
			o.Field = SortFields[(i+1)%len(SortFields)]
			return o
		}
	}
	o.Field = SortFields[0]
	return o
}

// Validate rejects unknown fields and directions.
func (o SortOrder) Validate() error {
	if _, err := ParseSortField(string(o.Field)); err != nil {
		return err
	}
	if o.Direction != Ascending && o.Direction != Descending {
		return fmt.Errorf("unknown sort direction %q", o.Direction)
	}
	return nil
}

func (o SortOrder) String() string {
	return string(o.Field) + " " + string(o.Direction)
}

// ParseSortField accepts the wire names and a few short aliases.
func ParseSortField(raw string) (SortField, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "title":
		return SortTitle, nil
	case "priority":
		return SortPriority, nil
	case "due_date", "due":
		return SortDueDate, nil
	case "created_at", "created":
		return SortCreatedAt, nil
	case "updated_at", "updated":
		return SortUpdatedAt, nil
	default:
		return "", fmt.Errorf("unknown sort field %q", raw)
	}
}
