package services

import (
	"context"
	"sync"
	"time"

	"deepcae-backend/application/ports"
	"deepcae-backend/domain/versioning"
	pkgerrors "deepcae-backend/pkg/errors"
	"go.uber.org/zap"
)

// SnapshotScheduler periodically checkpoints nodes whose current
// version is old and large enough per the snapshot policy. Per-node
// failures are logged and swallowed so one broken node cannot starve
// the sweep for others.
type SnapshotScheduler struct {
	store     ports.VersionStore
	snapshots *SnapshotService
	locker    ports.NodeLocker
	logger    *zap.Logger

	mu        sync.RWMutex
	policy    versioning.SnapshotPolicy
	sweepHook func(snapshotted, skipped int, duration time.Duration)

	policyChanged chan struct{}
	stopChan      chan struct{}
	stoppedChan   chan struct{}
}

// NewSnapshotScheduler creates a scheduler around the given policy.
func NewSnapshotScheduler(
	store ports.VersionStore,
	snapshots *SnapshotService,
	locker ports.NodeLocker,
	policy versioning.SnapshotPolicy,
	logger *zap.Logger,
) *SnapshotScheduler {
	if policy.Interval <= 0 {
		policy = versioning.DefaultSnapshotPolicy()
	}
	return &SnapshotScheduler{
		store:         store,
		snapshots:     snapshots,
		locker:        locker,
		policy:        policy,
		logger:        logger,
		policyChanged: make(chan struct{}, 1),
		stopChan:      make(chan struct{}),
		stoppedChan:   make(chan struct{}),
	}
}

// Policy returns the active snapshot policy.
func (s *SnapshotScheduler) Policy() versioning.SnapshotPolicy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.policy
}

// SetPolicy replaces the snapshot policy. Safe to call while the
// scheduler runs; the sweep loop resets its ticker on the next wakeup.
func (s *SnapshotScheduler) SetPolicy(policy versioning.SnapshotPolicy) {
	if policy.Interval <= 0 {
		policy = versioning.DefaultSnapshotPolicy()
	}

	s.mu.Lock()
	unchanged := s.policy == policy
	s.policy = policy
	s.mu.Unlock()
	if unchanged {
		return
	}

	s.logger.Info("Snapshot policy updated",
		zap.Duration("interval", policy.Interval),
		zap.Int("sizeThreshold", policy.SizeThreshold),
	)

	select {
	case s.policyChanged <- struct{}{}:
	default:
	}
}

// SetSweepHook registers a callback observing each sweep's outcome.
func (s *SnapshotScheduler) SetSweepHook(hook func(snapshotted, skipped int, duration time.Duration)) {
	s.mu.Lock()
	s.sweepHook = hook
	s.mu.Unlock()
}

// Start begins the background sweep loop.
func (s *SnapshotScheduler) Start(ctx context.Context) {
	policy := s.Policy()
	s.logger.Info("Starting snapshot scheduler",
		zap.Duration("interval", policy.Interval),
		zap.Int("sizeThreshold", policy.SizeThreshold),
	)

	go s.sweepLoop(ctx)
}

// Stop gracefully stops the scheduler and waits for the loop to exit.
func (s *SnapshotScheduler) Stop() {
	s.logger.Info("Stopping snapshot scheduler")
	close(s.stopChan)
	<-s.stoppedChan
	s.logger.Info("Snapshot scheduler stopped")
}

// sweepLoop is the main scheduling loop.
func (s *SnapshotScheduler) sweepLoop(ctx context.Context) {
	defer close(s.stoppedChan)

	ticker := time.NewTicker(s.Policy().Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Context cancelled, stopping snapshot scheduler")
			return
		case <-s.stopChan:
			s.logger.Info("Stop signal received")
			return
		case <-s.policyChanged:
			ticker.Reset(s.Policy().Interval)
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one pass over every node. Locked nodes are skipped, never
// waited on; no lock is held between nodes.
func (s *SnapshotScheduler) Sweep(ctx context.Context) {
	now := time.Now()
	policy := s.Policy()

	nodes, err := s.store.GetAllNodes(ctx)
	if err != nil {
		s.logger.Error("Snapshot sweep could not list nodes", zap.Error(err))
		return
	}

	snapshotted := 0
	skipped := 0
	failed := 0

	for _, record := range nodes {
		current := record.Current()
		if current == nil {
			continue
		}
		if s.locker.IsLocked(record.ID()) {
			s.logger.Debug("Skipping locked node", zap.String("nodeID", record.ID().String()))
			skipped++
			continue
		}
		if !policy.ShouldSnapshot(current, now) {
			continue
		}

		if _, err := s.snapshots.CreateSnapshot(ctx, record.ID(), "auto snapshot", "system"); err != nil {
			if pkgerrors.IsConcurrency(err) {
				// the node got busy between the check and the write
				skipped++
				continue
			}
			s.logger.Error("Automatic snapshot failed",
				zap.String("nodeID", record.ID().String()),
				zap.Error(err),
			)
			failed++
			continue
		}
		snapshotted++
	}

	if snapshotted > 0 || failed > 0 {
		s.logger.Info("Snapshot sweep completed",
			zap.Int("nodes", len(nodes)),
			zap.Int("snapshotted", snapshotted),
			zap.Int("skipped", skipped),
			zap.Int("failed", failed),
		)
	}

	s.mu.RLock()
	hook := s.sweepHook
	s.mu.RUnlock()
	if hook != nil {
		hook(snapshotted, skipped, time.Since(now))
	}
}
