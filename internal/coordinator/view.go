package coordinator

import (
	"time"

	"github.com/five82/tasksync/internal/api"
	"github.com/five82/tasksync/internal/errclass"
	"github.com/five82/tasksync/internal/query"
)

// Status is the lifecycle of the current query.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "idle"
	}
}

// View is what the presentation layer renders. Rows must be treated as
// read-only; the same slice is handed to every subscriber.
type View struct {
	Status    Status
	Signature query.Signature
	Criteria  query.Criteria
	Order     query.SortOrder

	// Rows belong to RowsSignature. The coordinator drops them as soon as
	// the selection moves to another signature.
	Rows          []api.Task
	RowsSignature query.Signature
	FetchedAt     time.Time

	// UsingFallback marks rows served from the cache because the network is
	// unavailable. Stale reports that those rows outlived their freshness.
	UsingFallback bool
	Stale         bool

	// Error is set only when Status is StatusError.
	Error               *errclass.Classification
	OfflineDurationText string

	// Terminal is set after an auth failure; no further fetches happen.
	Terminal bool
}

// Ready reports whether the view holds rows the user can act on.
func (v View) Ready() bool {
	return v.Status == StatusSuccess
}

// VisibleRows returns the rows only when they belong to the current
// signature.
func (v View) VisibleRows() []api.Task {
	if v.RowsSignature != v.Signature {
		return nil
	}
	return v.Rows
}
