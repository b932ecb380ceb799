package school

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"gorm.io/datatypes"
)

// Homework is owned by exactly one Student, referenced by StudentID.
type Homework struct {
	bun.BaseModel `bun:"table:homework,alias:h" gorm:"-" json:"-"`

	ID          int64           `gorm:"primaryKey;autoIncrement" bun:"id,pk,autoincrement" json:"id"`
	Description string          `gorm:"column:description;size:255;not null" bun:"description,notnull" json:"description" validate:"required,max=255"`
	Deadline    *datatypes.Date `gorm:"column:deadline" bun:"deadline,type:date" json:"deadline,omitempty"`
	Mark        int             `gorm:"column:mark" bun:"mark" json:"mark"`
	StudentID   *int64          `gorm:"column:student_id;index" bun:"student_id" json:"student_id,omitempty"`
}

// NewHomework returns a transient homework. A zero deadline is stored as NULL.
func NewHomework(description string, deadline time.Time, mark int) *Homework {
	hw := &Homework{Description: description, Mark: mark}
	hw.SetDeadline(deadline)
	return hw
}

func (Homework) TableName() string { return "homework" }

func (h *Homework) EntityID() int64 { return h.ID }
func (h *Homework) IsNew() bool     { return h.ID == 0 }

// SetDeadline keeps only the calendar date of t.
func (h *Homework) SetDeadline(t time.Time) {
	if t.IsZero() {
		h.Deadline = nil
		return
	}
	d := datatypes.Date(time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC))
	h.Deadline = &d
}

// DeadlineDate returns the deadline and whether one is set.
func (h *Homework) DeadlineDate() (time.Time, bool) {
	if h.Deadline == nil {
		return time.Time{}, false
	}
	return time.Time(*h.Deadline), true
}

// OwnerID returns the owning student's identity, or 0 when unowned.
func (h *Homework) OwnerID() int64 {
	if h.StudentID == nil {
		return 0
	}
	return *h.StudentID
}

// Equal compares by identity. Homeworks without one are never equal.
func (h *Homework) Equal(other *Homework) bool {
	if h == nil || other == nil || h.ID == 0 || other.ID == 0 {
		return false
	}
	return h.ID == other.ID
}

func (h *Homework) Validate(ctx context.Context) error {
	return validateStruct(h)
}

func (h *Homework) String() string {
	deadline := "none"
	if d, ok := h.DeadlineDate(); ok {
		deadline = d.Format(time.DateOnly)
	}
	return fmt.Sprintf("Homework{id=%d, description=%q, deadline=%s, mark=%d}", h.ID, h.Description, deadline, h.Mark)
}
