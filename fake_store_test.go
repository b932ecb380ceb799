package gpa

import (
	"context"
	"errors"
	"sort"
)

type widget struct {
	ID   int64
	Name string
}

func (w *widget) EntityID() int64 { return w.ID }
func (w *widget) IsNew() bool     { return w.ID == 0 }

func (w *widget) Validate(ctx context.Context) error {
	if w.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

// memoryStore is a Store over a map of widgets. Transactions snapshot and restore the map.
type memoryStore struct {
	rows      map[int64]widget
	nextID    int64
	inTx      bool
	closed    int
	failWrite error
	commits   int
	rollbacks int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{rows: make(map[int64]widget)}
}

func (s *memoryStore) Insert(ctx context.Context, entity interface{}) error {
	if s.failWrite != nil {
		return s.failWrite
	}
	w := entity.(*widget)
	if w.ID == 0 {
		s.nextID++
		w.ID = s.nextID
	}
	s.rows[w.ID] = *w
	return nil
}

func (s *memoryStore) Update(ctx context.Context, entity interface{}) (int64, error) {
	if s.failWrite != nil {
		return 0, s.failWrite
	}
	w := entity.(*widget)
	if _, ok := s.rows[w.ID]; !ok {
		return 0, nil
	}
	s.rows[w.ID] = *w
	return 1, nil
}

func (s *memoryStore) matchID(opts []QueryOption) (int64, bool) {
	for _, c := range NewQuery(opts...).Conditions {
		if c.Field() == "id" && c.Operator() == OpEqual {
			return c.Value().(int64), true
		}
	}
	return 0, false
}

func (s *memoryStore) First(ctx context.Context, dest interface{}, opts ...QueryOption) error {
	id, _ := s.matchID(opts)
	row, ok := s.rows[id]
	if !ok {
		return NewError(ErrorTypeNotFound, "record not found")
	}
	*dest.(*widget) = row
	return nil
}

func (s *memoryStore) Find(ctx context.Context, dest interface{}, opts ...QueryOption) error {
	out := make([]*widget, 0, len(s.rows))
	for _, row := range s.rows {
		row := row
		out = append(out, &row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	*dest.(*[]*widget) = out
	return nil
}

func (s *memoryStore) Count(ctx context.Context, model interface{}, opts ...QueryOption) (int64, error) {
	return int64(len(s.rows)), nil
}

func (s *memoryStore) Delete(ctx context.Context, model interface{}, opts ...QueryOption) (int64, error) {
	id, ok := s.matchID(opts)
	if !ok {
		return 0, NewError(ErrorTypeValidation, "missing where clause")
	}
	if _, exists := s.rows[id]; !exists {
		return 0, nil
	}
	delete(s.rows, id)
	return 1, nil
}

func (s *memoryStore) RawQuery(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return NewError(ErrorTypeUnsupported, "raw queries are not supported")
}

func (s *memoryStore) Transaction(ctx context.Context, fn TransactionFunc) (err error) {
	if s.inTx {
		return fn(s)
	}
	snapshot := make(map[int64]widget, len(s.rows))
	for k, v := range s.rows {
		snapshot[k] = v
	}
	nextID := s.nextID
	s.inTx = true
	defer func() {
		s.inTx = false
		if r := recover(); r != nil {
			s.rows, s.nextID = snapshot, nextID
			s.rollbacks++
			panic(r)
		}
	}()

	if err := fn(s); err != nil {
		s.rows, s.nextID = snapshot, nextID
		s.rollbacks++
		return err
	}
	s.commits++
	return nil
}

func (s *memoryStore) Close() error {
	s.closed++
	return nil
}

// recordingCascade records the owners it was asked to persist or remove.
type recordingCascade struct {
	persisted []int64
	removed   []any
	failWith  error
}

func (c *recordingCascade) Persist(ctx context.Context, tx Store, owner *widget) error {
	if c.failWith != nil {
		return c.failWith
	}
	c.persisted = append(c.persisted, owner.ID)
	return nil
}

func (c *recordingCascade) Remove(ctx context.Context, tx Store, ownerID any) error {
	c.removed = append(c.removed, ownerID)
	return nil
}
