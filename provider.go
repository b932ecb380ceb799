package gpa

import (
	"context"
)

// =====================================
// Provider Interfaces
// =====================================

// Provider is implemented by each storage adapter.
type Provider interface {
	// OpenSession acquires a dedicated connection and wraps it in a Session.
	// The caller must Close the session.
	OpenSession(ctx context.Context) (*Session, error)

	// Migrate creates the tables of the given models if they are missing.
	// It bootstraps tests and demos; it is not migration tooling.
	Migrate(ctx context.Context, models ...interface{}) error

	// Configure applies new pool settings to the provider.
	Configure(config Config) error

	// Health checks if the database connection is healthy and responsive.
	Health() error

	// Close shuts down the provider and releases all resources.
	Close() error

	// SupportedFeatures returns a list of features this provider supports.
	SupportedFeatures() []Feature

	// ProviderInfo returns metadata about this provider.
	ProviderInfo() ProviderInfo
}

// ProviderFactory creates new provider instances
type ProviderFactory interface {
	Create(config Config) (Provider, error)
	SupportedDrivers() []string
}

