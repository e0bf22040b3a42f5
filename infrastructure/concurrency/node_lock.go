package concurrency

import (
	"context"
	"fmt"
	"sync"
	"time"

	"deepcae-backend/application/ports"
	"deepcae-backend/domain/core/valueobjects"
	pkgerrors "deepcae-backend/pkg/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MemoryNodeLocker is the process-local advisory lock set. Acquisition
// is fail-fast: a held node yields a ConcurrencyError immediately, it
// never queues. Locks carry no TTL; scoped acquisition guarantees
// release on every exit path.
type MemoryNodeLocker struct {
	logger *zap.Logger

	mu   sync.Mutex
	held map[string]*heldLock

	contentionHook func(nodeID, operation string)
}

type heldLock struct {
	lockID     string
	operation  string
	acquiredAt time.Time
}

// NewMemoryNodeLocker creates an empty locker.
func NewMemoryNodeLocker(logger *zap.Logger) *MemoryNodeLocker {
	return &MemoryNodeLocker{
		logger: logger,
		held:   make(map[string]*heldLock),
	}
}

// SetContentionHook installs a callback invoked on every failed
// acquisition. The metrics collector hangs its contention counter
// here.
func (l *MemoryNodeLocker) SetContentionHook(hook func(nodeID, operation string)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.contentionHook = hook
}

// Acquire takes the node's lock for the named operation.
func (l *MemoryNodeLocker) Acquire(ctx context.Context, nodeID valueobjects.NodeID, operation string) (ports.NodeLock, error) {
	key := nodeID.String()

	l.mu.Lock()
	if current, ok := l.held[key]; ok {
		hook := l.contentionHook
		l.mu.Unlock()
		l.logger.Debug("Node lock contended",
			zap.String("nodeID", key),
			zap.String("operation", operation),
			zap.String("heldBy", current.operation),
		)
		if hook != nil {
			hook(key, operation)
		}
		return nil, pkgerrors.NewConcurrencyError(fmt.Sprintf("node %s", key))
	}
	held := &heldLock{
		lockID:     uuid.NewString(),
		operation:  operation,
		acquiredAt: time.Now(),
	}
	l.held[key] = held
	l.mu.Unlock()

	l.logger.Debug("Node lock acquired",
		zap.String("nodeID", key),
		zap.String("operation", operation),
		zap.String("lockID", held.lockID),
	)
	return &nodeLock{locker: l, key: key, lockID: held.lockID}, nil
}

// IsLocked reports whether the node is currently locked.
func (l *MemoryNodeLocker) IsLocked(nodeID valueobjects.NodeID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.held[nodeID.String()]
	return ok
}

// release drops the lock if this holder still owns it.
func (l *MemoryNodeLocker) release(key, lockID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if current, ok := l.held[key]; ok && current.lockID == lockID {
		delete(l.held, key)
	}
}

// nodeLock is one acquisition; Release is idempotent.
type nodeLock struct {
	locker *MemoryNodeLocker
	key    string
	lockID string
	once   sync.Once
}

// Release returns the lock. Calling it again is a no-op.
func (nl *nodeLock) Release() {
	nl.once.Do(func() {
		nl.locker.release(nl.key, nl.lockID)
	})
}
