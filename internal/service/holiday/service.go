package holiday

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/holiday"
	"github.com/google/uuid"
)

type HolidayServiceImpl struct {
	holiday.HolidayRepository
}

func NewHolidayService(holidayRepo holiday.HolidayRepository) *HolidayServiceImpl {
	return &HolidayServiceImpl{HolidayRepository: holidayRepo}
}

// ListByYear implements holiday.HolidayService.
func (s *HolidayServiceImpl) ListByYear(ctx context.Context, year int) ([]holiday.HolidayResponse, error) {
	entries, err := s.HolidayRepository.ListByYear(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("failed to list holidays: %w", err)
	}

	responses := make([]holiday.HolidayResponse, 0, len(entries))
	for _, e := range entries {
		responses = append(responses, mapToResponse(e))
	}
	sort.Slice(responses, func(i, j int) bool { return responses[i].Date < responses[j].Date })
	return responses, nil
}

// Create implements holiday.HolidayService.
func (s *HolidayServiceImpl) Create(ctx context.Context, req holiday.CreateHolidayRequest) (*holiday.HolidayResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	date, err := NormalizeDate(req.Date)
	if err != nil {
		return nil, err
	}
	t, _ := time.Parse(DateLayout, date)

	existing, err := s.HolidayRepository.ListByYear(ctx, t.Year())
	if err != nil {
		return nil, fmt.Errorf("failed to list holidays: %w", err)
	}
	for _, e := range existing {
		if key, err := NormalizeDate(e.Date); err == nil && key == date && e.Type == holiday.Type(req.Type) {
			return nil, holiday.ErrHolidayExists
		}
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate holiday id: %w", err)
	}

	created, err := s.HolidayRepository.Create(ctx, holiday.Entry{
		ID:        id.String(),
		Date:      date,
		Name:      strings.TrimSpace(req.Name),
		Type:      holiday.Type(req.Type),
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create holiday: %w", err)
	}

	slog.Info("Holiday created", "date", created.Date, "type", created.Type)
	resp := mapToResponse(*created)
	return &resp, nil
}

// Classifier fetches the calendars of the given years and indexes them.
func (s *HolidayServiceImpl) Classifier(ctx context.Context, years []int) (*Classifier, error) {
	var entries []holiday.Entry
	for _, year := range years {
		yearEntries, err := s.HolidayRepository.ListByYear(ctx, year)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch holiday calendar for %d: %w", year, err)
		}
		entries = append(entries, yearEntries...)
	}
	return NewClassifier(entries), nil
}

func mapToResponse(e holiday.Entry) holiday.HolidayResponse {
	date := e.Date
	if key, err := NormalizeDate(e.Date); err == nil {
		date = key
	}
	return holiday.HolidayResponse{
		ID:   e.ID,
		Date: date,
		Name: e.Name,
		Type: e.Type,
	}
}
