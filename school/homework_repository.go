package school

import (
	"context"
	"fmt"

	"github.com/melmanss/gpa"
)

// HomeworkRepository persists homeworks individually. Every write needs an owner.
type HomeworkRepository struct {
	*gpa.BaseRepository[Homework, int64]
}

var _ gpa.Repository[Homework, int64] = (*HomeworkRepository)(nil)

func NewHomeworkRepository(session *gpa.Session) *HomeworkRepository {
	return &HomeworkRepository{
		BaseRepository: gpa.NewRepository(session, gpa.RepositoryOptions[Homework, int64]{
			Name:  "homework",
			Check: ownerExists,
		}),
	}
}

func (r *HomeworkRepository) Save(ctx context.Context, hw *Homework) error {
	if err := requireOwner(hw); err != nil {
		return err
	}
	return r.BaseRepository.Save(ctx, hw)
}

func (r *HomeworkRepository) Update(ctx context.Context, hw *Homework) (*Homework, error) {
	if err := requireOwner(hw); err != nil {
		return nil, err
	}
	return r.BaseRepository.Update(ctx, hw)
}

// FindByStudentID lists the homeworks of a student ordered by id.
func (r *HomeworkRepository) FindByStudentID(ctx context.Context, studentID int64) ([]*Homework, error) {
	return r.FindAll(ctx,
		gpa.Where("student_id", gpa.OpEqual, studentID),
		gpa.OrderBy("id", gpa.OrderAsc),
	)
}

func requireOwner(hw *Homework) error {
	if hw == nil {
		return gpa.NewError(gpa.ErrorTypeInvalidArgument, "homework must not be nil")
	}
	if hw.StudentID == nil || *hw.StudentID == 0 {
		return gpa.NewError(gpa.ErrorTypeInvalidArgument, "homework must belong to a student")
	}
	return nil
}

// ownerExists refuses a homework whose student row is missing. It runs in the
// write transaction, so the owner cannot vanish before the homework is written.
func ownerExists(ctx context.Context, tx gpa.Store, hw *Homework) error {
	if err := requireOwner(hw); err != nil {
		return err
	}
	count, err := tx.Count(ctx, &Student{}, gpa.Where("id", gpa.OpEqual, *hw.StudentID))
	if err != nil {
		return err
	}
	if count == 0 {
		return gpa.NewError(gpa.ErrorTypeConstraint, fmt.Sprintf("student %d does not exist", *hw.StudentID))
	}
	return nil
}
