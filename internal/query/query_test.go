package query

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestSignatureOf_IndependentOfFieldOrder(t *testing.T) {
	due := time.Date(2026, 3, 4, 15, 0, 0, 0, time.UTC)

	a := Criteria{}.WithPriority(PriorityHigh).WithTag("home").WithSearch("milk").WithDueRange(due, time.Time{})
	b := Criteria{}.WithDueRange(due, time.Time{}).WithSearch(" milk ").WithTag("home").WithPriority(PriorityHigh)

	sa := SignatureOf(a, DefaultOrder())
	sb := SignatureOf(b, DefaultOrder())
	if sa != sb {
		t.Fatalf("signatures differ: %q vs %q", sa, sb)
	}
	if !a.Equal(b) {
		t.Fatalf("criteria should be equal: %#v vs %#v", a, b)
	}
}

func TestSignatureOf_DistinguishesSelections(t *testing.T) {
	base := Criteria{}.WithPriority(PriorityHigh)
	tests := []struct {
		name string
		c    Criteria
		o    SortOrder
	}{
		{"other priority", Criteria{}.WithPriority(PriorityMedium), DefaultOrder()},
		{"reversed order", base, DefaultOrder().Reversed()},
		{"other field", base, SortOrder{Field: SortTitle, Direction: Descending}},
		{"extra tag", base.WithTag("x"), DefaultOrder()},
	}
	want := SignatureOf(base, DefaultOrder())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SignatureOf(tt.c, tt.o); got == want {
				t.Fatalf("SignatureOf = %q, want something other than %q", got, want)
			}
		})
	}
}

func TestSignatureOf_EmptySelection(t *testing.T) {
	got := SignatureOf(Criteria{}, DefaultOrder())
	if got != "dir=desc&sort=created_at" {
		t.Fatalf("SignatureOf(empty) = %q", got)
	}
}

func TestCriteria_WithoutAndActive(t *testing.T) {
	c := Criteria{}.WithPriority(PriorityLow).WithCompletion(CompletionDone).WithCategory("work")
	if diff := cmp.Diff([]Field{FieldCompletion, FieldPriority, FieldCategory}, c.Active()); diff != "" {
		t.Fatalf("Active() mismatch (-want +got):\n%s", diff)
	}

	trimmed := c.Without(FieldPriority)
	if trimmed.Has(FieldPriority) {
		t.Fatalf("Without(priority) left priority set: %#v", trimmed)
	}
	if !c.Has(FieldPriority) {
		t.Fatalf("Without mutated the receiver")
	}
	if trimmed.Without(FieldCompletion).Without(FieldCategory).IsZero() != true {
		t.Fatalf("expected zero criteria after removing every field")
	}
}

func TestCriteria_Validate(t *testing.T) {
	from := time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, -1)
	if err := (Criteria{}).WithDueRange(from, to).Validate(); err == nil {
		t.Fatalf("Validate accepted inverted due range")
	}
	if err := (Criteria{Priority: "urgent"}).Validate(); err == nil {
		t.Fatalf("Validate accepted unknown priority")
	}
	if err := (Criteria{}).WithPriority(PriorityMedium).Validate(); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
}

func TestSortOrder_NextCyclesAndValidates(t *testing.T) {
	o := DefaultOrder()
	seen := map[SortField]bool{}
	for range SortFields {
		if err := o.Validate(); err != nil {
			t.Fatalf("Validate(%v) = %v", o, err)
		}
		seen[o.Field] = true
		o = o.Next()
	}
	if len(seen) != len(SortFields) {
		t.Fatalf("Next visited %d fields, want %d", len(seen), len(SortFields))
	}
	if o != DefaultOrder() {
		t.Fatalf("Next did not wrap around: %v", o)
	}
	if err := (SortOrder{Field: "size", Direction: Ascending}).Validate(); err == nil {
		t.Fatalf("Validate accepted unknown field")
	}
}

func TestParsePriorityAliases(t *testing.T) {
	tests := map[string]Priority{"high": PriorityHigh, "MEDIA": PriorityMedium, " low ": PriorityLow, "": PriorityNone}
	for in, want := range tests {
		got, err := ParsePriority(in)
		if err != nil || got != want {
			t.Fatalf("ParsePriority(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParsePriority("urgent"); err == nil {
		t.Fatalf("ParsePriority(urgent) returned nil error")
	}
}

func TestState_NotifiesSynchronouslyWithChangedFields(t *testing.T) {
	s := NewState()
	var got []Change
	s.Subscribe(func(ch Change) {
		c, _ := s.Get()
		if !c.Equal(ch.Criteria) {
			t.Errorf("Get() inside callback = %#v, want %#v", c, ch.Criteria)
		}
		got = append(got, ch)
	})

	s.Set(Criteria{}.WithPriority(PriorityHigh))
	if len(got) != 1 {
		t.Fatalf("got %d notifications after Set, want 1", len(got))
	}
	if !got[0].Touches(FieldPriority) || got[0].OrderChanged {
		t.Fatalf("change = %+v, want priority only", got[0])
	}

	s.SetOrder(SortOrder{Field: SortTitle, Direction: Ascending})
	if len(got) != 2 || !got[1].OrderChanged || len(got[1].Fields) != 0 {
		t.Fatalf("order change = %+v", got[len(got)-1])
	}
}

func TestState_NoopMutationDoesNotNotify(t *testing.T) {
	s := NewState()
	calls := 0
	s.Subscribe(func(Change) { calls++ })

	s.Set(Criteria{})
	s.SetOrder(DefaultOrder())
	s.Clear()
	if calls != 0 {
		t.Fatalf("calls = %d, want 0", calls)
	}
}

func TestState_ClearResetsBothTogether(t *testing.T) {
	s := NewState()
	s.Set(Criteria{}.WithTag("x"))
	s.SetOrder(SortOrder{Field: SortTitle, Direction: Ascending})

	var changes []Change
	s.Subscribe(func(ch Change) { changes = append(changes, ch) })
	s.Clear()

	if len(changes) != 1 {
		t.Fatalf("Clear produced %d changes, want 1", len(changes))
	}
	ch := changes[0]
	if !ch.Cleared || !ch.OrderChanged || !ch.Touches(FieldTag) {
		t.Fatalf("Clear change = %+v", ch)
	}
	if ch.Signature() != SignatureOf(Criteria{}, DefaultOrder()) {
		t.Fatalf("Clear signature = %q", ch.Signature())
	}
}

func TestState_Unsubscribe(t *testing.T) {
	s := NewState()
	calls := 0
	unsub := s.Subscribe(func(Change) { calls++ })
	s.Set(Criteria{}.WithSearch("a"))
	unsub()
	s.Set(Criteria{}.WithSearch("b"))
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}
