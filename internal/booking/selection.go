package booking

import (
	"context"

	"github.com/google/uuid"

	"vilo/internal/config"
	"vilo/internal/metrics"
	"vilo/internal/selection"
	"vilo/internal/stay"
)

// SelectionView is the state of a calendar selection after a click.
type SelectionView struct {
	SessionID string            `json:"session_id"`
	RoomID    int64             `json:"room_id"`
	State     selection.State   `json:"state"`
	Outcome   selection.Outcome `json:"outcome,omitempty"`
	Range     stay.StayRange    `json:"range"`
	Nights    int               `json:"nights"`
	Quote     *QuoteResult      `json:"quote,omitempty"`
}

func sessionKey(tenant *config.TenantConfig, sessionID string) string {
	return tenant.ID + ":" + sessionID
}

// Select applies a day click to the session's selection for a room. An empty
// sessionID starts a new session. A completed selection carries a quote for one guest
// when the stay can be priced.
func (s *Service) Select(ctx context.Context, tenant *config.TenantConfig, sessionID string, roomID int64, d stay.Date) (*SelectionView, error) {
	room, err := s.Room(ctx, tenant, roomID)
	if err != nil {
		return nil, err
	}
	if !room.IsActive {
		return nil, ErrRoomInactive
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	session := s.sessions.GetOrCreate(sessionKey(tenant, sessionID), roomID, rulesFor(room))
	sel := session.Selector

	lo, hi := d, d
	if start := sel.Range().Start; !start.IsZero() {
		if start.Before(lo) {
			lo = start
		}
		if start.After(hi) {
			hi = start
		}
	}
	unavailable, err := s.loadUnavailable(ctx, roomID, stay.NewRange(lo, hi.AddDays(1)))
	if err != nil {
		return nil, err
	}

	outcome := sel.Click(d, s.Today(tenant), unavailable)
	metrics.IncSelection(string(outcome))

	view := s.selectionView(sessionID, roomID, sel)
	view.Outcome = outcome
	if view.State == selection.StateComplete {
		view.Quote = s.selectionQuote(ctx, tenant, roomID, view.Range)
	}
	return view, nil
}

// Selection returns the current selection of a session, or nil when none is live.
func (s *Service) Selection(ctx context.Context, tenant *config.TenantConfig, sessionID string) *SelectionView {
	session := s.sessions.Get(sessionKey(tenant, sessionID))
	if session == nil {
		return nil
	}
	view := s.selectionView(sessionID, session.RoomID, session.Selector)
	if view.State == selection.StateComplete {
		view.Quote = s.selectionQuote(ctx, tenant, session.RoomID, view.Range)
	}
	return view
}

// ResetSelection drops a session.
func (s *Service) ResetSelection(tenant *config.TenantConfig, sessionID string) {
	s.sessions.Delete(sessionKey(tenant, sessionID))
}

func (s *Service) selectionView(sessionID string, roomID int64, sel *selection.Selector) *SelectionView {
	r := sel.Range()
	view := &SelectionView{
		SessionID: sessionID,
		RoomID:    roomID,
		State:     sel.State(),
		Range:     r,
	}
	if r.IsComplete() {
		view.Nights = r.Nights()
	}
	return view
}

func (s *Service) selectionQuote(ctx context.Context, tenant *config.TenantConfig, roomID int64, r stay.StayRange) *QuoteResult {
	q, _, err := s.quote(ctx, tenant, &QuoteRequest{RoomID: roomID, CheckIn: r.Start, CheckOut: r.End, Guests: 1})
	if err != nil {
		s.logger.Debug().Err(err).Int64("room_id", roomID).Msg("Selection not quotable")
		return nil
	}
	return q
}
