package gpa

import "context"

// =====================================
// Core Repository Interfaces
// =====================================

// Repository is the generic data-access contract for an entity type T with identity type ID.
// Writes run in their own transaction. Reads that find nothing return a nil entity and a nil error.
type Repository[T any, ID comparable] interface {
	// Save inserts a transient entity, assigning its identity, or merges an
	// entity whose identity is already set. Owned children are cascaded.
	Save(ctx context.Context, entity *T) error

	// FindByID returns the entity with the given identity, or nil when absent.
	FindByID(ctx context.Context, id ID) (*T, error)

	// FindAll returns every entity matching the options. Owned collections are not populated.
	FindAll(ctx context.Context, opts ...QueryOption) ([]*T, error)

	// Update reconciles an identified entity and its owned collection into the
	// store and returns the store-consistent copy.
	Update(ctx context.Context, entity *T) (*T, error)

	// DeleteByID removes the entity and its owned children.
	// It reports false when no row existed.
	DeleteByID(ctx context.Context, id ID) (bool, error)
}

// Entity is implemented by pointers to persisted types.
type Entity[ID comparable] interface {
	EntityID() ID
	// IsNew reports whether the store has not assigned an identity yet.
	IsNew() bool
}

// Cascade synchronizes the children owned by an aggregate of type T.
// Both methods run inside the owner's write transaction.
type Cascade[T any] interface {
	// Persist writes the owned collection after the owner row has been written.
	Persist(ctx context.Context, tx Store, owner *T) error
	// Remove deletes every child of the owner before the owner row is deleted.
	Remove(ctx context.Context, tx Store, ownerID any) error
}

// CascadeSnapshot is implemented by cascades that assign state to children
// during Persist. The returned func puts that state back after a rollback.
type CascadeSnapshot[T any] interface {
	Snapshot(owner *T) (restore func())
}

// =====================================
// Store Interface
// =====================================

// Store is a handle to one store connection, implemented by each adapter.
// Adapters never write associations implicitly.
type Store interface {
	// Insert writes a new row and fills the entity's generated identity.
	Insert(ctx context.Context, entity interface{}) error

	// Update writes every column of the entity by primary key and reports the matched row count.
	Update(ctx context.Context, entity interface{}) (int64, error)

	// First loads the first matching row into dest. A miss is ErrorTypeNotFound.
	First(ctx context.Context, dest interface{}, opts ...QueryOption) error

	// Find loads every matching row into dest, a pointer to a slice.
	Find(ctx context.Context, dest interface{}, opts ...QueryOption) error

	// Count counts the rows of model's table matching the options.
	Count(ctx context.Context, model interface{}, opts ...QueryOption) (int64, error)

	// Delete removes the rows of model's table matching the options.
	// At least one condition is required.
	Delete(ctx context.Context, model interface{}, opts ...QueryOption) (int64, error)

	// RawQuery runs a SELECT and scans the result into dest.
	RawQuery(ctx context.Context, dest interface{}, query string, args ...interface{}) error

	// Transaction runs fn in a transaction: commit on nil, rollback on error or panic.
	// Calling it on a transactional Store joins the outer transaction.
	Transaction(ctx context.Context, fn TransactionFunc) error

	// Close releases the connection. Calling it twice is a no-op.
	Close() error
}

// TransactionFunc is the body of a transaction
type TransactionFunc func(tx Store) error
