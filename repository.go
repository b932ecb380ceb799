package gpa

import (
	"context"
	"fmt"
)

// =====================================
// Generic Repository
// =====================================

// RepositoryOptions configures a BaseRepository.
type RepositoryOptions[T any, ID comparable] struct {
	// Name identifies the entity in errors and logs.
	Name string
	// IDColumn is the primary key column, "id" when empty.
	IDColumn string
	// Cascade synchronizes owned children on write and delete.
	Cascade Cascade[T]
	// Check runs inside the write transaction of Save and Update, before the
	// entity row is written. An error rolls the write back.
	Check func(ctx context.Context, tx Store, entity *T) error
	// Reload builds the copy returned by Update. It runs inside the write
	// transaction. When nil the row is re-read by primary key.
	Reload func(ctx context.Context, tx Store, id ID) (*T, error)
}

// BaseRepository implements Repository for any T whose pointer implements Entity[ID].
type BaseRepository[T any, ID comparable] struct {
	session *Session
	opts    RepositoryOptions[T, ID]
}

var _ Repository[struct{}, int64] = (*BaseRepository[struct{}, int64])(nil)

// NewRepository binds a repository to a session.
func NewRepository[T any, ID comparable](session *Session, opts RepositoryOptions[T, ID]) *BaseRepository[T, ID] {
	if opts.IDColumn == "" {
		opts.IDColumn = "id"
	}
	if opts.Name == "" {
		var zero T
		opts.Name = fmt.Sprintf("%T", zero)
	}
	return &BaseRepository[T, ID]{session: session, opts: opts}
}

// Session returns the session the repository is bound to.
func (r *BaseRepository[T, ID]) Session() *Session {
	return r.session
}

func (r *BaseRepository[T, ID]) Save(ctx context.Context, entity *T) error {
	ent, err := r.entity(entity)
	if err != nil {
		return err
	}
	if err := validate(ctx, entity); err != nil {
		return err
	}

	restore := r.snapshot(entity)
	err = r.session.Write(ctx, "saving "+r.opts.Name, func(tx Store) error {
		if err := r.check(ctx, tx, entity); err != nil {
			return err
		}
		if err := r.write(ctx, tx, entity, ent); err != nil {
			return err
		}
		if r.opts.Cascade != nil {
			return r.opts.Cascade.Persist(ctx, tx, entity)
		}
		return nil
	})
	if err != nil {
		restore()
		return err
	}
	return nil
}

// write inserts a transient entity, or updates an identified one and inserts it when no row matched.
func (r *BaseRepository[T, ID]) write(ctx context.Context, tx Store, entity *T, ent Entity[ID]) error {
	if ent.IsNew() {
		return tx.Insert(ctx, entity)
	}
	rows, err := tx.Update(ctx, entity)
	if err != nil {
		return err
	}
	if rows == 0 {
		return tx.Insert(ctx, entity)
	}
	return nil
}

func (r *BaseRepository[T, ID]) FindByID(ctx context.Context, id ID) (*T, error) {
	var found *T
	err := r.session.Read(ctx, func(st Store) error {
		dest := new(T)
		if err := st.First(ctx, dest, Where(r.opts.IDColumn, OpEqual, id)); err != nil {
			return err
		}
		found = dest
		return nil
	})
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return found, nil
}

func (r *BaseRepository[T, ID]) FindAll(ctx context.Context, opts ...QueryOption) ([]*T, error) {
	r.session.Logger().Debug("finding all", "entity", r.opts.Name, "query", NewQuery(opts...).String())

	var out []*T
	err := r.session.Read(ctx, func(st Store) error {
		return st.Find(ctx, &out, opts...)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *BaseRepository[T, ID]) Update(ctx context.Context, entity *T) (*T, error) {
	ent, err := r.entity(entity)
	if err != nil {
		return nil, err
	}
	if ent.IsNew() {
		return nil, NewError(ErrorTypeInvalidArgument, fmt.Sprintf("cannot update %s without an identity", r.opts.Name))
	}
	if err := validate(ctx, entity); err != nil {
		return nil, err
	}

	var reconciled *T
	restore := r.snapshot(entity)
	err = r.session.Write(ctx, "updating "+r.opts.Name, func(tx Store) error {
		if err := r.check(ctx, tx, entity); err != nil {
			return err
		}
		rows, err := tx.Update(ctx, entity)
		if err != nil {
			return err
		}
		if rows == 0 {
			return NewError(ErrorTypeNotFound, fmt.Sprintf("%s %v does not exist", r.opts.Name, ent.EntityID()))
		}
		if r.opts.Cascade != nil {
			if err := r.opts.Cascade.Persist(ctx, tx, entity); err != nil {
				return err
			}
		}
		reconciled, err = r.reload(ctx, tx, ent.EntityID())
		return err
	})
	if err != nil {
		restore()
		return nil, err
	}
	return reconciled, nil
}

func (r *BaseRepository[T, ID]) check(ctx context.Context, tx Store, entity *T) error {
	if r.opts.Check == nil {
		return nil
	}
	return r.opts.Check(ctx, tx, entity)
}

// snapshot captures the entity, and the children its cascade mutates, so a
// rolled back write leaves no store-assigned identities behind.
func (r *BaseRepository[T, ID]) snapshot(entity *T) func() {
	saved := *entity
	var restoreChildren func()
	if s, ok := r.opts.Cascade.(CascadeSnapshot[T]); ok {
		restoreChildren = s.Snapshot(entity)
	}
	return func() {
		*entity = saved
		if restoreChildren != nil {
			restoreChildren()
		}
	}
}

func (r *BaseRepository[T, ID]) reload(ctx context.Context, tx Store, id ID) (*T, error) {
	if r.opts.Reload != nil {
		return r.opts.Reload(ctx, tx, id)
	}
	dest := new(T)
	if err := tx.First(ctx, dest, Where(r.opts.IDColumn, OpEqual, id)); err != nil {
		return nil, err
	}
	return dest, nil
}

func (r *BaseRepository[T, ID]) DeleteByID(ctx context.Context, id ID) (bool, error) {
	var deleted bool
	err := r.session.Write(ctx, "deleting "+r.opts.Name, func(tx Store) error {
		if r.opts.Cascade != nil {
			if err := r.opts.Cascade.Remove(ctx, tx, id); err != nil {
				return err
			}
		}
		rows, err := tx.Delete(ctx, new(T), Where(r.opts.IDColumn, OpEqual, id))
		if err != nil {
			return err
		}
		deleted = rows > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

func (r *BaseRepository[T, ID]) entity(entity *T) (Entity[ID], error) {
	if entity == nil {
		return nil, NewError(ErrorTypeInvalidArgument, fmt.Sprintf("%s must not be nil", r.opts.Name))
	}
	ent, ok := any(entity).(Entity[ID])
	if !ok {
		return nil, NewError(ErrorTypeInvalidArgument, fmt.Sprintf("%T does not implement Entity", entity))
	}
	return ent, nil
}

func validate(ctx context.Context, entity interface{}) error {
	v, ok := entity.(ValidationHook)
	if !ok {
		return nil
	}
	if err := v.Validate(ctx); err != nil {
		if IsValidation(err) {
			return err
		}
		return NewErrorWithCause(ErrorTypeValidation, "validation failed", err)
	}
	return nil
}
