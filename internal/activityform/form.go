// Package activityform validates the add-activity form and submits it to the
// itinerary store. Validation failures never reach the store.
package activityform

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/pkordes/trip-itinerary/backend/internal/domain"
)

// Field names a form input.
type Field string

const (
	FieldTitle       Field = "title"
	FieldLocation    Field = "location"
	FieldDescription Field = "description"
	FieldStartTime   Field = "start_time"
	FieldEndTime     Field = "end_time"
)

const (
	msgTitleRequired = "Activity name is required"
	msgEndAfterStart = "End time must be after start time"
	msgTimeFormat    = "Use HH:mm"
)

// ErrBusy is returned by Submit while an earlier submit is still running.
var ErrBusy = errors.New("submit already in progress")

// Values is the raw text of the form. Times are "HH:mm" or empty.
type Values struct {
	Title       string
	Location    string
	Description string
	StartTime   string
	EndTime     string
}

// ValidationError carries one message per invalid field.
type ValidationError struct {
	Fields map[Field]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		names = append(names, string(f))
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = n + ": " + e.Fields[Field(n)]
	}
	return "invalid activity: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return domain.ErrValidation }

// Validate checks v and returns the item to insert: text trimmed, empty
// optional fields nil.
func Validate(v Values) (domain.NewItem, error) {
	errs := map[Field]string{}

	title := strings.TrimSpace(v.Title)
	if title == "" {
		errs[FieldTitle] = msgTitleRequired
	}

	start, err := parseTime(v.StartTime)
	if err != nil {
		errs[FieldStartTime] = msgTimeFormat
	}
	end, err := parseTime(v.EndTime)
	if err != nil {
		errs[FieldEndTime] = msgTimeFormat
	}
	if start != nil && end != nil && *end <= *start {
		errs[FieldEndTime] = msgEndAfterStart
	}

	if len(errs) > 0 {
		return domain.NewItem{}, &ValidationError{Fields: errs}
	}
	return domain.NewItem{
		Title:       title,
		Location:    optional(v.Location),
		Description: optional(v.Description),
		StartTime:   start,
		EndTime:     end,
	}, nil
}

func parseTime(s string) (*domain.ClockTime, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	c, err := domain.ParseClockTime(s)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Adder is the store operation a form submits to.
type Adder interface {
	AddItem(ctx context.Context, dayID uuid.UUID, item domain.NewItem) (domain.Item, error)
}

// Form is the add-activity form of one day.
type Form struct {
	adder     Adder
	dayID     uuid.UUID
	createdBy *uuid.UUID

	mu         sync.Mutex
	values     Values
	errs       map[Field]string
	open       bool
	submitting bool
}

// New returns a closed, empty form for dayID.
func New(adder Adder, dayID uuid.UUID) *Form {
	return &Form{adder: adder, dayID: dayID, errs: map[Field]string{}}
}

// SetCreator records who is adding activities through the form.
func (f *Form) SetCreator(id uuid.UUID) {
	f.mu.Lock()
	f.createdBy = &id
	f.mu.Unlock()
}

// Open shows the form.
func (f *Form) Open() {
	f.mu.Lock()
	f.open = true
	f.mu.Unlock()
}

// Close hides the form and clears its values and errors.
func (f *Form) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reset()
}

func (f *Form) reset() {
	f.values = Values{}
	f.errs = map[Field]string{}
	f.open = false
}

// IsOpen reports whether the form is shown.
func (f *Form) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

// Set writes one field and clears that field's error.
func (f *Form) Set(field Field, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch field {
	case FieldTitle:
		f.values.Title = value
	case FieldLocation:
		f.values.Location = value
	case FieldDescription:
		f.values.Description = value
	case FieldStartTime:
		f.values.StartTime = value
	case FieldEndTime:
		f.values.EndTime = value
	default:
		return fmt.Errorf("activityform.Form.Set: %w: unknown field %q", domain.ErrValidation, field)
	}
	delete(f.errs, field)
	return nil
}

// Fill sets every field from v.
func (f *Form) Fill(v Values) {
	f.mu.Lock()
	f.values = v
	f.errs = map[Field]string{}
	f.mu.Unlock()
}

// Values returns the current field values.
func (f *Form) Values() Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values
}

// Errors returns the field errors of the last submit.
func (f *Form) Errors() map[Field]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[Field]string, len(f.errs))
	for k, v := range f.errs {
		out[k] = v
	}
	return out
}

// Submit validates the form and adds the activity. On success the form resets
// and closes. On failure it stays open with its values so the user can retry;
// a *ValidationError means the store was not called.
func (f *Form) Submit(ctx context.Context) (domain.Item, error) {
	f.mu.Lock()
	if f.submitting {
		f.mu.Unlock()
		return domain.Item{}, ErrBusy
	}
	item, err := Validate(f.values)
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			f.errs = ve.Fields
		}
		f.mu.Unlock()
		return domain.Item{}, err
	}
	f.errs = map[Field]string{}
	item.CreatedBy = f.createdBy
	f.submitting = true
	f.mu.Unlock()

	created, err := f.adder.AddItem(ctx, f.dayID, item)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitting = false
	if err != nil {
		return domain.Item{}, fmt.Errorf("activityform.Form.Submit: %w", err)
	}
	f.reset()
	return created, nil
}
