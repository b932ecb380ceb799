package school

import (
	"context"

	"github.com/melmanss/gpa"
)

// homeworkCascade keeps a student's homework rows in step with its collection.
type homeworkCascade struct{}

var (
	_ gpa.Cascade[Student]         = homeworkCascade{}
	_ gpa.CascadeSnapshot[Student] = homeworkCascade{}
)

// Persist points every homework at the owner, inserts new ones and updates
// the rest. When the collection is loaded, rows the owner no longer lists are deleted.
func (homeworkCascade) Persist(ctx context.Context, tx gpa.Store, owner *Student) error {
	kept := make([]interface{}, 0, len(owner.Homeworks))
	for _, hw := range owner.Homeworks {
		if hw == nil {
			continue
		}
		ownerID := owner.ID
		hw.StudentID = &ownerID

		if err := upsertHomework(ctx, tx, hw); err != nil {
			return err
		}
		kept = append(kept, hw.ID)
	}

	if !owner.homeworksLoaded {
		return nil
	}

	opts := []gpa.QueryOption{gpa.Where("student_id", gpa.OpEqual, owner.ID)}
	if len(kept) > 0 {
		opts = append(opts, gpa.WhereNotIn("id", kept))
	}
	_, err := tx.Delete(ctx, &Homework{}, opts...)
	return err
}

// Remove deletes every homework row of the owner.
func (homeworkCascade) Remove(ctx context.Context, tx gpa.Store, ownerID any) error {
	_, err := tx.Delete(ctx, &Homework{}, gpa.Where("student_id", gpa.OpEqual, ownerID))
	return err
}

// Snapshot records the identity and owner link of each homework so a rolled
// back write does not leave ids of rows that no longer exist.
func (homeworkCascade) Snapshot(owner *Student) func() {
	type saved struct {
		hw        *Homework
		id        int64
		studentID *int64
	}
	states := make([]saved, 0, len(owner.Homeworks))
	for _, hw := range owner.Homeworks {
		if hw != nil {
			states = append(states, saved{hw: hw, id: hw.ID, studentID: hw.StudentID})
		}
	}
	return func() {
		for _, st := range states {
			st.hw.ID = st.id
			st.hw.StudentID = st.studentID
		}
	}
}

func upsertHomework(ctx context.Context, tx gpa.Store, hw *Homework) error {
	if hw.IsNew() {
		return tx.Insert(ctx, hw)
	}
	rows, err := tx.Update(ctx, hw)
	if err != nil {
		return err
	}
	if rows == 0 {
		return tx.Insert(ctx, hw)
	}
	return nil
}
