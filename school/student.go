// Package school holds the Student aggregate, its owned Homework records and
// the repositories that persist them through a gpa.Session.
package school

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

// Student is the aggregate root. It owns its Homeworks.
type Student struct {
	bun.BaseModel `bun:"table:student,alias:s" gorm:"-" json:"-"`

	ID        int64       `gorm:"primaryKey;autoIncrement" bun:"id,pk,autoincrement" json:"id"`
	FirstName string      `gorm:"column:first_name;size:100" bun:"first_name" json:"first_name" validate:"max=100"`
	LastName  string      `gorm:"column:last_name;size:100" bun:"last_name" json:"last_name" validate:"max=100"`
	Email     string      `gorm:"column:email;size:255;uniqueIndex;not null" bun:"email,unique,notnull" json:"email" validate:"required,email,max=255"`
	Homeworks []*Homework `gorm:"foreignKey:StudentID;constraint:OnDelete:CASCADE" bun:"-" json:"homeworks,omitempty" validate:"omitempty,dive"`

	// homeworksLoaded is false for students read without their collection.
	homeworksLoaded bool
}

// NewStudent returns a transient student with an empty, loaded collection.
func NewStudent(firstName, lastName, email string) *Student {
	return &Student{
		FirstName:       firstName,
		LastName:        lastName,
		Email:           email,
		Homeworks:       []*Homework{},
		homeworksLoaded: true,
	}
}

func (Student) TableName() string { return "student" }

func (s *Student) EntityID() int64 { return s.ID }
func (s *Student) IsNew() bool     { return s.ID == 0 }

// HomeworksLoaded reports whether Homeworks reflects the stored collection.
// Shallow reads leave it false.
func (s *Student) HomeworksLoaded() bool {
	return s.homeworksLoaded
}

// AddHomework appends hw and points it at this student.
func (s *Student) AddHomework(hw *Homework) {
	if hw == nil {
		return
	}
	if s.ID != 0 {
		id := s.ID
		hw.StudentID = &id
	}
	s.Homeworks = append(s.Homeworks, hw)
}

// RemoveHomework drops hw from the collection by identity, or by pointer for
// transient homeworks. The row is deleted on the next save or update.
func (s *Student) RemoveHomework(hw *Homework) bool {
	if hw == nil {
		return false
	}
	for i, existing := range s.Homeworks {
		if existing == hw || existing.Equal(hw) {
			s.Homeworks = append(s.Homeworks[:i], s.Homeworks[i+1:]...)
			hw.StudentID = nil
			return true
		}
	}
	return false
}

// Equal compares by identity. Students without one are never equal.
func (s *Student) Equal(other *Student) bool {
	if s == nil || other == nil || s.ID == 0 || other.ID == 0 {
		return false
	}
	return s.ID == other.ID
}

func (s *Student) Validate(ctx context.Context) error {
	return validateStruct(s)
}

func (s *Student) String() string {
	return fmt.Sprintf("Student{id=%d, firstName=%q, lastName=%q, email=%q}", s.ID, s.FirstName, s.LastName, s.Email)
}

// markLoaded sets the collection as loaded, normalizing nil to empty.
func (s *Student) markLoaded() {
	if s.Homeworks == nil {
		s.Homeworks = []*Homework{}
	}
	s.homeworksLoaded = true
}
