// package models defines the data model for the venue management service
package models

import (
	"context"
	"time"
)

// Model defines the base interface for all persistent models.
type Model interface {
	Metadata() *Meta // Metadata returns the identity and lifecycle fields
	Validate() error // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the interface for data access operations.
// Implementations handle database interactions for specific model types.
type Repository[T Model] interface {
	Create(ctx context.Context, model T) error                      // Create inserts a new model into the database
	Get(ctx context.Context, id string) (T, error)                  // Get retrieves a model by its ID
	Update(ctx context.Context, model T) error                      // Update modifies an existing model in the database
	Delete(ctx context.Context, id string) error                    // Delete soft-deletes a model by its ID
	List(ctx context.Context, criteria map[string]any) ([]T, error) // List retrieves all models matching the given criteria
}

// Meta holds identity and lifecycle fields shared by every persistent entity.
//
// Sequence numbers give stable, human-readable ordering independent of UUIDs.
type Meta struct {
	ID        string     `json:"id"`
	Sequence  int        `json:"sequence"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// Metadata implements [Model].
func (m *Meta) Metadata() *Meta { return m }

// Touch sets UpdatedAt, and CreatedAt when it is still zero.
func (m *Meta) Touch(now time.Time) {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
}

// IsDeleted reports whether the entity has been soft-deleted.
func (m *Meta) IsDeleted() bool { return m.DeletedAt != nil }
