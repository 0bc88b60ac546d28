package tasksvc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

type Category string

const (
	CategoryWork     Category = "work"
	CategoryPersonal Category = "personal"
	CategoryStudy    Category = "study"
)

// Task is a to-do record. OwnerID is fixed at creation.
type Task struct {
	ID          string     `json:"_id" gorm:"primaryKey;size:36"`
	Title       string     `json:"title" gorm:"not null"`
	Description string     `json:"description"`
	Category    Category   `json:"category" gorm:"size:16;not null"`
	Completed   bool       `json:"completed"`
	DueDate     *time.Time `json:"dueDate"`
	OwnerID     string     `json:"ownerId" gorm:"size:36;index:idx_tasks_owner_created,priority:1"`
	CreatedAt   time.Time  `json:"createdAt" gorm:"index:idx_tasks_owner_created,priority:2"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// MarshalJSON writes a task without an owner, which can only be a sample,
// with just the fields anonymous callers are shown.
func (t Task) MarshalJSON() ([]byte, error) {
	type task Task
	if t.OwnerID != "" {
		return json.Marshal(task(t))
	}
	return json.Marshal(sample{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Category:    t.Category,
		Completed:   t.Completed,
		DueDate:     t.DueDate,
	})
}

type sample struct {
	ID          string     `json:"_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    Category   `json:"category"`
	Completed   bool       `json:"completed"`
	DueDate     *time.Time `json:"dueDate"`
}

// Draft holds the fields a caller supplies when creating a task.
type Draft struct {
	Title       string   `json:"title" validate:"required"`
	Description string   `json:"description"`
	Category    Category `json:"category" validate:"required,oneof=work personal study"`
	DueDate     Date     `json:"dueDate" validate:"-"`
}

// Validate checks d with its title trimmed.
func (d Draft) Validate() error {
	d.Title = strings.TrimSpace(d.Title)
	return invalidTask(validate.Struct(d))
}

// Patch is a partial update. Nil fields are left untouched; a zero DueDate
// clears the due date.
type Patch struct {
	Title       *string   `json:"title,omitempty" validate:"omitempty,min=1"`
	Description *string   `json:"description,omitempty"`
	Category    *Category `json:"category,omitempty" validate:"omitempty,oneof=work personal study"`
	DueDate     *Date     `json:"dueDate,omitempty" validate:"-"`
	Completed   *bool     `json:"completed,omitempty"`
}

// Validate checks p with its title trimmed.
func (p Patch) Validate() error {
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		p.Title = &title
	}
	return invalidTask(validate.Struct(p))
}

// UnmarshalJSON rejects unknown fields and an explicit null for title,
// category or completed. A null description or dueDate clears the field.
func (p *Patch) UnmarshalJSON(b []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}

	type patch Patch
	var v patch
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return err
	}

	for _, name := range []string{"title", "category", "completed"} {
		if isNull(fields[name]) {
			return fmt.Errorf("%w: %s must not be null", ErrInvalidArgument, name)
		}
	}
	if isNull(fields["description"]) {
		v.Description = new(string)
	}
	if isNull(fields["dueDate"]) {
		v.DueDate = &Date{}
	}

	*p = Patch(v)
	return nil
}

func isNull(raw json.RawMessage) bool {
	return raw != nil && bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

var validate = validator.New()

func invalidTask(err error) error {
	if err == nil {
		return nil
	}

	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	fe := errs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%w: %s is required", ErrInvalidArgument, field)
	case "min":
		return fmt.Errorf("%w: %s must not be blank", ErrInvalidArgument, field)
	case "oneof":
		return fmt.Errorf("%w: %s must be one of %s", ErrInvalidArgument, field, strings.ReplaceAll(fe.Param(), " ", ", "))
	}
	return fmt.Errorf("%w: %s is invalid", ErrInvalidArgument, field)
}

// Apply returns t with the supplied fields of p merged in.
func (p Patch) Apply(t Task) Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.DueDate != nil {
		t.DueDate = p.DueDate.Ptr()
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	return t
}

const dateLayout = "2006-01-02"

// Date is a due date as submitted by clients: either a calendar day
// (YYYY-MM-DD, read as UTC midnight) or an RFC 3339 timestamp. The zero value
// means no date.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: dueDate must be a string", ErrInvalidArgument)
	}

	s = strings.TrimSpace(s)
	if s == "" {
		d.Time = time.Time{}
		return nil
	}

	t, err := ParseDate(s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(d.Time.Format(time.RFC3339))
}

// Ptr returns the date as stored on a Task.
func (d Date) Ptr() *time.Time {
	if d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}

// ParseDate accepts YYYY-MM-DD or RFC 3339 and returns the instant in UTC.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.ParseInLocation(dateLayout, s, time.UTC); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: dueDate %q is not a date", ErrInvalidArgument, s)
	}
	return t.UTC(), nil
}

// Auth is the identity resolved for a request. The zero value is anonymous.
type Auth struct {
	UserID string
}

func (a Auth) Anonymous() bool {
	return a.UserID == ""
}

// Samples returns the placeholder records shown to anonymous callers. They
// are due on the current UTC day and never stored.
func Samples(now time.Time) []Task {
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	due1, due2 := today, today

	return []Task{
		{
			ID:          "sample1",
			Title:       "Sample Todo 1",
			Description: "This is a sample todo. Login to manage your own tasks.",
			Category:    CategoryPersonal,
			DueDate:     &due1,
		},
		{
			ID:          "sample2",
			Title:       "Sample Todo 2",
			Description: "Register and login to save your todos!",
			Category:    CategoryWork,
			DueDate:     &due2,
		},
	}
}

// TaskRepository stores tasks. Unknown or malformed ids yield ErrTaskNotFound.
type TaskRepository interface {
	Create(ctx context.Context, t Task) (Task, error)
	// FindAll returns the owner's tasks, newest first.
	FindAll(ctx context.Context, ownerID string) ([]Task, error)
	Find(ctx context.Context, taskID string) (Task, error)
	Update(ctx context.Context, taskID string, p Patch, updatedAt time.Time) (Task, error)
	// Delete removes the task and returns it as it was.
	Delete(ctx context.Context, taskID string) (Task, error)
}

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrUnauthorized    = errors.New("Unauthorized")
	ErrTaskNotFound    = errors.New("Todo not found")
)
