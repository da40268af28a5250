package selection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vilo/internal/stay"
)

var today = stay.MustParse("2024-06-01")

func date(s string) stay.Date { return stay.MustParse(s) }

func TestTransitions(t *testing.T) {
	tests := []struct {
		name        string
		from        State
		to          State
		shouldAllow bool
	}{
		{"empty to awaiting end", StateEmpty, StateAwaitingEnd, true},
		{"awaiting end to complete", StateAwaitingEnd, StateComplete, true},
		{"awaiting end restarts", StateAwaitingEnd, StateAwaitingEnd, true},
		{"complete restarts", StateComplete, StateAwaitingEnd, true},
		{"complete resets", StateComplete, StateEmpty, true},
		// Invalid transitions
		{"empty to complete", StateEmpty, StateComplete, false},
		{"complete to complete", StateComplete, StateComplete, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.shouldAllow, CanTransition(tt.from, tt.to))
		})
	}
}

func TestClick_CompletesValidRange(t *testing.T) {
	s := New(Rules{MinStayNights: 2, MaxStayNights: 7})

	assert.Equal(t, OutcomeStarted, s.Click(date("2024-06-10"), today, nil))
	assert.Equal(t, StateAwaitingEnd, s.State())

	assert.Equal(t, OutcomeCompleted, s.Click(date("2024-06-13"), today, nil))
	assert.Equal(t, StateComplete, s.State())

	r := s.Range()
	assert.Equal(t, date("2024-06-10"), r.Start)
	assert.Equal(t, date("2024-06-13"), r.End)
	assert.Equal(t, 3, r.Nights())
}

func TestClick_BelowMinimumStayIsRejected(t *testing.T) {
	s := New(Rules{MinStayNights: 2})
	s.Click(date("2024-06-10"), today, nil)

	assert.Equal(t, OutcomeTooShort, s.Click(date("2024-06-11"), today, nil))
	assert.Equal(t, StateAwaitingEnd, s.State())
	assert.Equal(t, date("2024-06-10"), s.Range().Start)
	assert.True(t, s.Range().End.IsZero())
}

func TestClick_AboveMaximumStayIsRejected(t *testing.T) {
	s := New(Rules{MinStayNights: 1, MaxStayNights: 3})
	s.Click(date("2024-06-10"), today, nil)

	assert.Equal(t, OutcomeTooLong, s.Click(date("2024-06-14"), today, nil))
	assert.Equal(t, StateAwaitingEnd, s.State())
	assert.Equal(t, date("2024-06-10"), s.Range().Start)

	assert.Equal(t, OutcomeCompleted, s.Click(date("2024-06-13"), today, nil))
}

func TestClick_CrossingUnavailableRestarts(t *testing.T) {
	unavailable := stay.NewDateSet(date("2024-06-12"))
	s := New(Rules{})
	s.Click(date("2024-06-10"), today, unavailable)

	assert.Equal(t, OutcomeCrossedUnavailable, s.Click(date("2024-06-15"), today, unavailable))
	assert.Equal(t, StateAwaitingEnd, s.State())
	assert.Equal(t, date("2024-06-15"), s.Range().Start)
	assert.True(t, s.Range().End.IsZero())
}

func TestClick_UnavailableDayCannotBeEnd(t *testing.T) {
	unavailable := stay.NewDateSet(date("2024-06-12"))
	s := New(Rules{})
	s.Click(date("2024-06-10"), today, unavailable)

	// The blocked day itself can't be clicked, but a stay ending before it can.
	assert.Equal(t, OutcomeIgnoredUnavailable, s.Click(date("2024-06-12"), today, unavailable))
	assert.Equal(t, OutcomeCompleted, s.Click(date("2024-06-11"), today, unavailable))
}

func TestClick_SameOrEarlierDateResetsStart(t *testing.T) {
	for _, clicked := range []string{"2024-06-10", "2024-06-08"} {
		t.Run(clicked, func(t *testing.T) {
			s := New(Rules{})
			s.Click(date("2024-06-10"), today, nil)

			assert.Equal(t, OutcomeRestarted, s.Click(date(clicked), today, nil))
			assert.Equal(t, StateAwaitingEnd, s.State())
			assert.Equal(t, date(clicked), s.Range().Start)
			assert.True(t, s.Range().End.IsZero())
		})
	}
}

func TestClick_CompleteRestartsOnNextClick(t *testing.T) {
	s := New(Rules{})
	s.Click(date("2024-06-10"), today, nil)
	s.Click(date("2024-06-12"), today, nil)
	require.Equal(t, StateComplete, s.State())

	assert.Equal(t, OutcomeRestarted, s.Click(date("2024-06-20"), today, nil))
	assert.Equal(t, StateAwaitingEnd, s.State())
	assert.Equal(t, stay.StayRange{Start: date("2024-06-20")}, s.Range())
}

func TestClick_PastAndUnavailableAreNoOps(t *testing.T) {
	unavailable := stay.NewDateSet(date("2024-06-05"))
	s := New(Rules{})

	assert.Equal(t, OutcomeIgnoredPast, s.Click(date("2024-05-31"), today, unavailable))
	assert.Equal(t, OutcomeIgnoredUnavailable, s.Click(date("2024-06-05"), today, unavailable))
	assert.Equal(t, StateEmpty, s.State())
	assert.Equal(t, stay.StayRange{}, s.Range())

	// Today itself is selectable.
	assert.Equal(t, OutcomeStarted, s.Click(today, today, unavailable))
}

func TestReset(t *testing.T) {
	s := New(Rules{})
	s.Click(date("2024-06-10"), today, nil)
	s.Reset()
	assert.Equal(t, StateEmpty, s.State())
	assert.Equal(t, stay.StayRange{}, s.Range())
}

func TestOutcomeAdvanced(t *testing.T) {
	assert.True(t, OutcomeCompleted.Advanced())
	assert.True(t, OutcomeCrossedUnavailable.Advanced())
	assert.False(t, OutcomeTooShort.Advanced())
	assert.False(t, OutcomeIgnoredPast.Advanced())
}

func TestSessionStore(t *testing.T) {
	store := NewSessionStore(time.Hour)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	assert.Nil(t, store.Get("a"))

	created := store.GetOrCreate("a", 1, Rules{MinStayNights: 2})
	require.NotNil(t, created)
	assert.Equal(t, int64(1), created.RoomID)
	assert.Same(t, created, store.Get("a"))

	existing := store.GetOrCreate("a", 1, Rules{MinStayNights: 3})
	assert.Same(t, created, existing)
	assert.Equal(t, 3, existing.Selector.Rules().MinStayNights)

	// A different room under the same key starts over.
	other := store.GetOrCreate("a", 2, Rules{})
	assert.NotSame(t, created, other)

	store.Delete("a")
	assert.Nil(t, store.Get("a"))
}

func TestSessionStoreCleanup(t *testing.T) {
	store := NewSessionStore(30 * time.Minute)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	store.GetOrCreate("old", 1, Rules{})
	now = now.Add(20 * time.Minute)
	store.GetOrCreate("fresh", 1, Rules{})
	now = now.Add(15 * time.Minute)

	assert.Nil(t, store.Get("old"))
	assert.NotNil(t, store.Get("fresh"))
	assert.Equal(t, 1, store.Cleanup())
	assert.Equal(t, 1, store.Len())
}
