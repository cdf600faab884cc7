package expense

import (
	"strings"
	"time"

	"github.com/frahmantamala/trip-expense/internal"
	"github.com/frahmantamala/trip-expense/internal/core/common/validation"
	"github.com/frahmantamala/trip-expense/internal/core/money"
	"github.com/frahmantamala/trip-expense/internal/currency"
	"github.com/frahmantamala/trip-expense/internal/expense/split"
	"github.com/frahmantamala/trip-expense/internal/settlement"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
)

type CreateExpenseDTO struct {
	ContributorID string             `json:"contributorId,omitempty"`
	Amount        float64            `json:"amount"`
	Currency      string             `json:"currency"`
	Description   string             `json:"description"`
	Category      string             `json:"category,omitempty"`
	Date          string             `json:"date,omitempty"`
	SplitBetween  []string           `json:"splitBetween,omitempty"`
	SplitType     string             `json:"splitType,omitempty"`
	ManualSplits  map[string]float64 `json:"manualSplits,omitempty"`
}

// Validate checks the request shape and normalizes it in place. Membership rules need the trip
// and are checked by the service.
func (d *CreateExpenseDTO) Validate() *internal.AppError {
	d.ContributorID = strings.TrimSpace(d.ContributorID)
	d.Currency = currency.Normalize(d.Currency)
	d.Description = strings.TrimSpace(d.Description)
	d.Category = normalizeCategory(d.Category)
	d.SplitType = strings.ToLower(strings.TrimSpace(d.SplitType))

	v := validation.NewValidator()
	v.Field("amount", d.Amount).
		Positive(internal.ErrCodeInvalidAmount).
		MaxFloat(1_000_000_000, internal.ErrCodeInvalidAmount)
	v.Field("currency", d.Currency).Required().CurrencyCode()
	v.Field("description", d.Description).Required().MaxLength(500)
	v.Field("category", d.Category).MaxLength(50)
	v.Field("splitType", d.SplitType).OneOf(internal.ErrCodeInvalidSplitType, string(split.SplitTypeEven), string(split.SplitTypeManual))
	v.Field("date", d.Date).Custom(func(value interface{}) *internal.AppError {
		if _, err := ParseDate(d.Date); err != nil {
			return internal.NewValidationFieldError("date", "date must be YYYY-MM-DD or RFC3339", internal.ErrCodeInvalidDate)
		}
		return nil
	})
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}

	if money.Cents(d.Amount) <= 0 {
		return internal.NewValidationFieldError("amount", "amount must be at least 0.01", internal.ErrCodeInvalidAmount)
	}
	d.Amount = money.Round(d.Amount)

	if date, _ := ParseDate(d.Date); !date.IsZero() {
		if appErr := validation.ValidateExpenseDate(date); appErr != nil {
			return appErr
		}
	}
	return nil
}

type UpdateExpenseDTO struct {
	Description *string `json:"description,omitempty"`
	Category    *string `json:"category,omitempty"`
	Date        *string `json:"date,omitempty"`
}

func (d *UpdateExpenseDTO) Validate() *internal.AppError {
	if d.Description == nil && d.Category == nil && d.Date == nil {
		return internal.NewValidationError("nothing to update", internal.ErrCodeInvalidRequestBody)
	}

	v := validation.NewValidator()
	if d.Description != nil {
		desc := strings.TrimSpace(*d.Description)
		d.Description = &desc
		v.Field("description", desc).Required().MaxLength(500)
	}
	if d.Category != nil {
		cat := normalizeCategory(*d.Category)
		d.Category = &cat
		v.Field("category", cat).MaxLength(50)
	}
	if d.Date != nil {
		date, err := ParseDate(*d.Date)
		if err != nil || date.IsZero() {
			return internal.NewValidationFieldError("date", "date must be YYYY-MM-DD or RFC3339", internal.ErrCodeInvalidDate)
		}
		v.Field("date", date).NotFuture()
	}
	return v.Validate()
}

// ContentUpdate carries the fields a contributor may edit after creation.
type ContentUpdate struct {
	Description *string
	Category    *string
	Date        *time.Time
}

// ListQuery is the raw query string of the trip expense listing.
type ListQuery struct {
	Page        int
	Limit       int
	Category    string
	Currency    string
	Contributor string
	Member      string
	Status      string
	From        string
	To          string
}

// ListFilter is what repositories filter on. DateTo is exclusive; Limit <= 0 means no paging.
type ListFilter struct {
	TripID        string
	Category      string
	Currency      string
	ContributorID string
	MemberID      string
	Status        string
	DateFrom      *time.Time
	DateTo        *time.Time
	Limit         int
	Offset        int
}

func (q ListQuery) ToFilter(tripID string, maxLimit int) (ListFilter, *internal.AppError) {
	if q.Page == 0 {
		q.Page = DefaultPage
	}
	if q.Limit == 0 {
		q.Limit = DefaultLimit
	}

	v := validation.NewValidator()
	v.Field("page", q.Page).IntRange(1, 1_000_000, internal.ErrCodeInvalidPagination)
	v.Field("limit", q.Limit).IntRange(1, maxLimit, internal.ErrCodeInvalidPagination)
	v.Field("currency", q.Currency).CurrencyCode()
	v.Field("status", q.Status).OneOf(internal.ErrCodeInvalidFilter,
		string(settlement.StatusPending), string(settlement.StatusPartial), string(settlement.StatusSettled))
	if appErr := v.Validate(); appErr != nil {
		return ListFilter{}, appErr
	}

	f := ListFilter{
		TripID:        tripID,
		Category:      normalizeOptionalCategory(q.Category),
		Currency:      currency.Normalize(q.Currency),
		ContributorID: strings.TrimSpace(q.Contributor),
		MemberID:      strings.TrimSpace(q.Member),
		Status:        strings.ToLower(q.Status),
		Limit:         q.Limit,
		Offset:        (q.Page - 1) * q.Limit,
	}

	from, err := ParseDate(q.From)
	if err != nil {
		return ListFilter{}, internal.NewValidationFieldError("from", "from must be YYYY-MM-DD or RFC3339", internal.ErrCodeInvalidFilter)
	}
	if !from.IsZero() {
		f.DateFrom = &from
	}
	to, err := ParseDate(q.To)
	if err != nil {
		return ListFilter{}, internal.NewValidationFieldError("to", "to must be YYYY-MM-DD or RFC3339", internal.ErrCodeInvalidFilter)
	}
	if !to.IsZero() {
		// a bare date includes the whole day
		if len(strings.TrimSpace(q.To)) == len(time.DateOnly) {
			to = to.AddDate(0, 0, 1)
		} else {
			to = to.Add(time.Nanosecond)
		}
		f.DateTo = &to
	}
	if f.DateFrom != nil && f.DateTo != nil && !f.DateFrom.Before(*f.DateTo) {
		return ListFilter{}, internal.NewValidationFieldError("to", "to must not be before from", internal.ErrCodeInvalidFilter)
	}
	return f, nil
}

// ParseDate accepts YYYY-MM-DD or RFC3339 and returns UTC. Empty input is the zero time.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func normalizeCategory(c string) string {
	c = normalizeOptionalCategory(c)
	if c == "" {
		return DefaultCategory
	}
	return c
}

func normalizeOptionalCategory(c string) string {
	return strings.ToLower(strings.TrimSpace(c))
}
