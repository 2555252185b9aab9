// Package query models the user's filter and sort selection.
//
// # Overview
//
// Criteria and SortOrder are plain values: copying one never aliases another,
// and every With*/Without method returns a new value. State wraps the current
// pair for a view session and publishes each mutation to subscribers.
//
// # Signatures
//
// SignatureOf encodes a selection with url.Values.Encode, which sorts keys.
// Unconstrained fields are omitted, so two equal selections always encode to
// the same string no matter which order the fields were set in:
//
//	a := query.Criteria{}.WithPriority(query.PriorityHigh).WithTag("home")
//	b := query.Criteria{}.WithTag("home").WithPriority(query.PriorityHigh)
//	query.SignatureOf(a, query.DefaultOrder()) == query.SignatureOf(b, query.DefaultOrder())
//
// The signature keys the result cache and is sent verbatim as the API query
// string.
//
// # Change Notification
//
// State.Set, SetOrder, Clear and Restore swap the value under a mutex and then
// call every subscriber in the caller's goroutine with a Change that lists
// the fields that moved. A mutation that leaves the value unchanged notifies
// nobody. Clear resets criteria and order in one Change so no half-reset
// selection is ever observed.
package query
