package order

import (
	"context"

	"github.com/google/uuid"
	"github.com/shadiyar7/repair-platform-sub000/internal/domain/shared"
)

// Repository persists orders. Every write after Create is a compare-and-swap
// on the aggregate version.
type Repository interface {
	// FindByID finds an order by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)

	// FindByNumber finds an order by its public number, the id external systems know
	FindByNumber(ctx context.Context, number string) (*Order, error)

	// FindByTrackingToken finds an order by its public tracking token
	FindByTrackingToken(ctx context.Context, token string) (*Order, error)

	// FindBySignatureDocument finds the order holding a provider document id
	FindBySignatureDocument(ctx context.Context, documentID string) (*Order, error)

	// FindCartByUser returns the user's open cart
	FindCartByUser(ctx context.Context, userID uuid.UUID) (*Order, error)

	// FindByUser lists a user's orders, newest first
	FindByUser(ctx context.Context, userID uuid.UUID, filter shared.Filter) ([]*Order, int64, error)

	// Create inserts a new order with its items
	Create(ctx context.Context, o *Order) error

	// SaveWithLock writes the order and its items if the stored version still
	// matches o.Version, then increments o.Version. A stale version yields
	// shared.ErrConflictingUpdate.
	SaveWithLock(ctx context.Context, o *Order) error
}
