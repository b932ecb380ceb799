package school

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/melmanss/gpa"
	"gorm.io/datatypes"
)

// StudentRepository persists Student aggregates. Writes cascade to homeworks.
type StudentRepository struct {
	*gpa.BaseRepository[Student, int64]
}

var _ gpa.Repository[Student, int64] = (*StudentRepository)(nil)

func NewStudentRepository(session *gpa.Session) *StudentRepository {
	return &StudentRepository{
		BaseRepository: gpa.NewRepository(session, gpa.RepositoryOptions[Student, int64]{
			Name:    "student",
			Cascade: homeworkCascade{},
			Reload:  reloadWithHomeworks,
		}),
	}
}

// FindByEmail returns the student with the given email, or nil when absent.
func (r *StudentRepository) FindByEmail(ctx context.Context, email string) (*Student, error) {
	var found *Student
	err := r.Session().Read(ctx, func(st gpa.Store) error {
		dest := &Student{}
		if err := st.First(ctx, dest, gpa.Where("email", gpa.OpEqual, email)); err != nil {
			return err
		}
		found = dest
		return nil
	})
	if gpa.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return found, nil
}

// FindByIDWithHomeworks loads the student and its homeworks in one query.
func (r *StudentRepository) FindByIDWithHomeworks(ctx context.Context, id int64) (*Student, error) {
	var students []*Student
	err := r.Session().Read(ctx, func(st gpa.Store) error {
		var err error
		students, err = fetchWithHomeworks(ctx, st, " WHERE s.id = ?", id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(students) == 0 {
		return nil, nil
	}
	return students[0], nil
}

// FindAllWithHomeworks loads every student with its homeworks in one query.
func (r *StudentRepository) FindAllWithHomeworks(ctx context.Context) ([]*Student, error) {
	var students []*Student
	err := r.Session().Read(ctx, func(st gpa.Store) error {
		var err error
		students, err = fetchWithHomeworks(ctx, st, "")
		return err
	})
	if err != nil {
		return nil, err
	}
	return students, nil
}

// LoadHomeworks fills the collection of a shallow student through the open session.
func (r *StudentRepository) LoadHomeworks(ctx context.Context, s *Student) error {
	if s == nil {
		return gpa.NewError(gpa.ErrorTypeInvalidArgument, "student must not be nil")
	}
	if s.IsNew() {
		s.markLoaded()
		return nil
	}
	return r.Session().Read(ctx, func(st gpa.Store) error {
		var homeworks []*Homework
		if err := st.Find(ctx, &homeworks,
			gpa.Where("student_id", gpa.OpEqual, s.ID),
			gpa.OrderBy("id", gpa.OrderAsc),
		); err != nil {
			return err
		}
		s.Homeworks = homeworks
		s.markLoaded()
		return nil
	})
}

func reloadWithHomeworks(ctx context.Context, tx gpa.Store, id int64) (*Student, error) {
	students, err := fetchWithHomeworks(ctx, tx, " WHERE s.id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(students) == 0 {
		return nil, gpa.NewError(gpa.ErrorTypeNotFound, fmt.Sprintf("student %d does not exist", id))
	}
	return students[0], nil
}

const studentWithHomeworksQuery = `SELECT s.id AS s_id, s.first_name AS s_first_name, s.last_name AS s_last_name, s.email AS s_email,
h.id AS h_id, h.description AS h_description, h.deadline AS h_deadline, h.mark AS h_mark
FROM student s
LEFT JOIN homework h ON h.student_id = s.id`

// studentHomeworkRow is one row of the student/homework join.
type studentHomeworkRow struct {
	StudentID   int64          `gorm:"column:s_id" bun:"s_id"`
	FirstName   string         `gorm:"column:s_first_name" bun:"s_first_name"`
	LastName    string         `gorm:"column:s_last_name" bun:"s_last_name"`
	Email       string         `gorm:"column:s_email" bun:"s_email"`
	HomeworkID  sql.NullInt64  `gorm:"column:h_id" bun:"h_id"`
	Description sql.NullString `gorm:"column:h_description" bun:"h_description"`
	Deadline    sql.NullTime   `gorm:"column:h_deadline" bun:"h_deadline"`
	Mark        sql.NullInt64  `gorm:"column:h_mark" bun:"h_mark"`
}

func fetchWithHomeworks(ctx context.Context, st gpa.Store, where string, args ...interface{}) ([]*Student, error) {
	var rows []studentHomeworkRow
	query := studentWithHomeworksQuery + where + " ORDER BY s.id, h.id"
	if err := st.RawQuery(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return foldRows(rows), nil
}

// foldRows groups join rows ordered by student id into aggregates.
func foldRows(rows []studentHomeworkRow) []*Student {
	students := make([]*Student, 0)
	var current *Student
	for _, row := range rows {
		if current == nil || current.ID != row.StudentID {
			current = &Student{
				ID:        row.StudentID,
				FirstName: row.FirstName,
				LastName:  row.LastName,
				Email:     row.Email,
			}
			current.markLoaded()
			students = append(students, current)
		}
		if !row.HomeworkID.Valid {
			continue
		}

		ownerID := row.StudentID
		hw := &Homework{
			ID:          row.HomeworkID.Int64,
			Description: row.Description.String,
			Mark:        int(row.Mark.Int64),
			StudentID:   &ownerID,
		}
		if row.Deadline.Valid {
			d := datatypes.Date(row.Deadline.Time)
			hw.Deadline = &d
		}
		current.Homeworks = append(current.Homeworks, hw)
	}
	return students
}
