package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/drift-pay/drift-gateway/pkg/models"
)

var (
	// ErrNotFound is returned for an unknown payment id
	ErrNotFound = errors.New("payment intent not found")
	// ErrAlreadyExists is returned when putting an id that is already stored
	ErrAlreadyExists = errors.New("payment intent already exists")
	// ErrVersionConflict is returned when a compare-and-swap sees a newer revision
	ErrVersionConflict = errors.New("payment intent version conflict")
)

// maxUpdateAttempts bounds the compare-and-swap retries of Update
const maxUpdateAttempts = 16

// Store holds payment intents. Intents are never deleted.
// Implementations return copies: mutating a returned intent never changes the stored one.
type Store interface {
	Get(ctx context.Context, id string) (*models.PaymentIntent, error)
	// Put stores a new intent at version 1
	Put(ctx context.Context, intent *models.PaymentIntent) (*models.PaymentIntent, error)
	// CompareAndSwap replaces the intent if its stored version is still expectedVersion
	CompareAndSwap(ctx context.Context, id string, expectedVersion uint64, intent *models.PaymentIntent) (*models.PaymentIntent, error)
	// List returns all intents, oldest first
	List(ctx context.Context) ([]*models.PaymentIntent, error)
}

// Update applies fn to the latest revision of an intent and writes it back, retrying on version conflicts.
// fn may be called more than once and must only mutate the intent it is given.
func Update(ctx context.Context, s Store, id string, fn func(intent *models.PaymentIntent) error) (*models.PaymentIntent, error) {
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		current, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		expected := current.Version
		if err := fn(current); err != nil {
			return nil, err
		}
		updated, err := s.CompareAndSwap(ctx, id, expected, current)
		if errors.Is(err, ErrVersionConflict) {
			continue
		}
		return updated, err
	}
	return nil, fmt.Errorf("failed to update %s after %d attempts: %w", id, maxUpdateAttempts, ErrVersionConflict)
}
