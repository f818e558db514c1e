package store

import (
	"context"
	"sync"
	"time"

	"github.com/drift-pay/drift-gateway/pkg/logger"
	"github.com/drift-pay/drift-gateway/pkg/metrics"
	"github.com/drift-pay/drift-gateway/pkg/models"
)

const (
	// DefaultMirrorQueueSize is the number of pending records an AsyncMirror buffers
	DefaultMirrorQueueSize = 256

	mirrorWriteTimeout = 10 * time.Second
)

// Mirror persists transaction records outside the intent store
type Mirror interface {
	Upsert(ctx context.Context, record models.TransactionRecord) error
}

// AsyncMirror forwards records to a Mirror from a background worker so callers never block.
// Records are dropped, and logged, when the queue is full.
type AsyncMirror struct {
	mirror Mirror
	queue  chan models.TransactionRecord
	logger logger.Logger

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewAsyncMirror starts a worker writing to mirror
func NewAsyncMirror(mirror Mirror, queueSize int, logger logger.Logger) *AsyncMirror {
	if queueSize <= 0 {
		queueSize = DefaultMirrorQueueSize
	}
	m := &AsyncMirror{
		mirror: mirror,
		queue:  make(chan models.TransactionRecord, queueSize),
		logger: logger,
		done:   make(chan struct{}),
	}
	go m.run()
	return m
}

// Upsert enqueues the record and returns immediately
func (m *AsyncMirror) Upsert(_ context.Context, record models.TransactionRecord) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		metrics.MirrorWrites.WithLabelValues("dropped").Inc()
		return nil
	}

	select {
	case m.queue <- record:
	default:
		metrics.MirrorWrites.WithLabelValues("dropped").Inc()
		m.logger.Error("Mirror queue full, dropping record for %s (%s)", record.PaymentID, record.Status)
	}
	return nil
}

func (m *AsyncMirror) run() {
	defer close(m.done)
	for record := range m.queue {
		ctx, cancel := context.WithTimeout(context.Background(), mirrorWriteTimeout)
		err := m.mirror.Upsert(ctx, record)
		cancel()
		if err != nil {
			metrics.MirrorWrites.WithLabelValues("error").Inc()
			m.logger.Error("Failed to mirror payment %s: %v", record.PaymentID, err)
			continue
		}
		metrics.MirrorWrites.WithLabelValues("success").Inc()
		m.logger.Debug("Mirrored payment %s as %s", record.PaymentID, record.Status)
	}
}

// Close stops accepting records and waits for the queued ones to be written
func (m *AsyncMirror) Close() {
	m.mu.Lock()
	if !m.closed {
		m.closed = true
		close(m.queue)
	}
	m.mu.Unlock()
	<-m.done
}

// MirroredStore is a Store that mirrors every successful write
type MirroredStore struct {
	Store
	mirror Mirror
	logger logger.Logger
}

// WithMirror wraps a store so that puts and swaps are mirrored
func WithMirror(store Store, mirror Mirror, logger logger.Logger) *MirroredStore {
	return &MirroredStore{Store: store, mirror: mirror, logger: logger}
}

func (s *MirroredStore) Put(ctx context.Context, intent *models.PaymentIntent) (*models.PaymentIntent, error) {
	stored, err := s.Store.Put(ctx, intent)
	if err != nil {
		return nil, err
	}
	s.upsert(ctx, stored)
	return stored, nil
}

func (s *MirroredStore) CompareAndSwap(ctx context.Context, id string, expectedVersion uint64, intent *models.PaymentIntent) (*models.PaymentIntent, error) {
	stored, err := s.Store.CompareAndSwap(ctx, id, expectedVersion, intent)
	if err != nil {
		return nil, err
	}
	s.upsert(ctx, stored)
	return stored, nil
}

func (s *MirroredStore) upsert(ctx context.Context, intent *models.PaymentIntent) {
	if err := s.mirror.Upsert(ctx, models.NewTransactionRecord(intent)); err != nil {
		s.logger.Error("Failed to mirror payment %s: %v", intent.ID, err)
	}
}
