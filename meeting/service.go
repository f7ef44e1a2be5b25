package meeting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrMissingFields signals an incomplete booking form.
	ErrMissingFields = errors.New("meeting: name, email, date and timeSlot are required")
	// ErrInvalidDate signals a date that is neither RFC 3339 nor YYYY-MM-DD.
	ErrInvalidDate = errors.New("meeting: invalid date")
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Schedule validates the form and stores the meeting.
func (s *Service) Schedule(ctx context.Context, req CreateRequest) (Meeting, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.TimeSlot = strings.TrimSpace(req.TimeSlot)
	req.Date = strings.TrimSpace(req.Date)

	if req.Name == "" || req.Email == "" || req.Date == "" || req.TimeSlot == "" {
		return Meeting{}, ErrMissingFields
	}

	date, err := parseDate(req.Date)
	if err != nil {
		return Meeting{}, err
	}

	return s.repo.Create(ctx, Meeting{
		Name:     req.Name,
		Email:    req.Email,
		Role:     blankToNil(req.Role),
		Date:     date,
		TimeSlot: req.TimeSlot,
		Agenda:   blankToNil(req.Agenda),
		UserID:   blankToNil(req.UserID),
	})
}

// List returns all meetings, earliest first.
func (s *Service) List(ctx context.Context) ([]Meeting, error) {
	return s.repo.List(ctx)
}

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w %q", ErrInvalidDate, raw)
}

func blankToNil(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
