// Package resilience shields callers from a failing version store.
package resilience

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"deepcae-backend/application/ports"
	"deepcae-backend/domain/core/entities"
	"deepcae-backend/domain/core/valueobjects"
	pkgerrors "deepcae-backend/pkg/errors"
)

// BreakerConfig holds circuit breaker tuning for the version store.
type BreakerConfig struct {
	Name        string
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration
	// FailureThreshold is the failure ratio that trips the breaker once
	// MinRequests have been observed.
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig returns conservative defaults: trip at an 80%
// failure rate over at least 5 requests, retry after a minute.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		MaxRequests:      5,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

// breakerStore wraps a VersionStore with a circuit breaker so a down
// backend is not hammered by the sweep loop or request handlers.
type breakerStore struct {
	inner   ports.VersionStore
	breaker *gobreaker.CircuitBreaker
}

// NewBreakerStore decorates a version store with a circuit breaker.
func NewBreakerStore(inner ports.VersionStore, config BreakerConfig, logger *zap.Logger) ports.VersionStore {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < config.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= config.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: isStoreSuccess,
	})

	return &breakerStore{inner: inner, breaker: breaker}
}

// isStoreSuccess keeps domain outcomes from tripping the breaker. A
// conflict or a missing node proves the store answered; only
// infrastructure failures count against it.
func isStoreSuccess(err error) bool {
	if err == nil {
		return true
	}
	return pkgerrors.IsValidation(err) ||
		pkgerrors.IsConflict(err) ||
		pkgerrors.IsConcurrency(err) ||
		pkgerrors.IsNotFound(err)
}

func (s *breakerStore) GetNode(ctx context.Context, nodeID valueobjects.NodeID) (*entities.NodeRecord, error) {
	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.inner.GetNode(ctx, nodeID)
	})
	if err != nil {
		return nil, s.translate(err)
	}
	record, _ := result.(*entities.NodeRecord)
	return record, nil
}

func (s *breakerStore) UpdateNodeData(ctx context.Context, nodeID valueobjects.NodeID, newData valueobjects.Document, description, author string) (*entities.Version, error) {
	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.inner.UpdateNodeData(ctx, nodeID, newData, description, author)
	})
	if err != nil {
		return nil, s.translate(err)
	}
	version, _ := result.(*entities.Version)
	return version, nil
}

func (s *breakerStore) GetAllNodes(ctx context.Context) ([]*entities.NodeRecord, error) {
	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.inner.GetAllNodes(ctx)
	})
	if err != nil {
		return nil, s.translate(err)
	}
	records, _ := result.([]*entities.NodeRecord)
	return records, nil
}

// translate maps breaker rejections onto the store's error surface;
// everything else passes through untouched.
func (s *breakerStore) translate(err error) error {
	switch err {
	case gobreaker.ErrOpenState, gobreaker.ErrTooManyRequests:
		return pkgerrors.NewUnavailableError("version store")
	default:
		return err
	}
}
