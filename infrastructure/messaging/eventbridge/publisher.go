// Package eventbridge publishes domain events to AWS EventBridge.
package eventbridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"deepcae-backend/domain/events"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"
)

// maxEntriesPerCall is the PutEvents API limit.
const maxEntriesPerCall = 10

const (
	maxAttempts    = 3
	initialBackoff = 100 * time.Millisecond
)

// Publisher sends domain events to an EventBridge bus. Consumers
// (websocket notify, downstream pipelines) subscribe through
// EventBridge rules, not through this type.
type Publisher struct {
	client       *eventbridge.Client
	eventBusName string
	source       string
	logger       *zap.Logger
}

// NewPublisher creates an EventBridge publisher for the named bus.
func NewPublisher(client *eventbridge.Client, eventBusName string, logger *zap.Logger) *Publisher {
	return &Publisher{
		client:       client,
		eventBusName: eventBusName,
		source:       events.SourceBackend,
		logger:       logger,
	}
}

// PublishEvent sends a single event.
func (p *Publisher) PublishEvent(ctx context.Context, event events.DomainEvent) error {
	return p.PublishBatch(ctx, []events.DomainEvent{event})
}

// PublishBatch sends events in PutEvents-sized chunks. Entries that
// fail with a retryable code are resent with exponential backoff;
// already-accepted entries are never resent.
func (p *Publisher) PublishBatch(ctx context.Context, domainEvents []events.DomainEvent) error {
	entries := p.buildEntries(domainEvents)

	for start := 0; start < len(entries); start += maxEntriesPerCall {
		end := start + maxEntriesPerCall
		if end > len(entries) {
			end = len(entries)
		}
		if err := p.publishEntries(ctx, entries[start:end]); err != nil {
			return err
		}
	}

	return nil
}

// buildEntries converts domain events to PutEvents entries. An event
// that cannot be serialized is logged and dropped rather than failing
// the whole batch.
func (p *Publisher) buildEntries(domainEvents []events.DomainEvent) []types.PutEventsRequestEntry {
	entries := make([]types.PutEventsRequestEntry, 0, len(domainEvents))

	for _, event := range domainEvents {
		detail, err := json.Marshal(event)
		if err != nil {
			p.logger.Error("Failed to marshal event",
				zap.String("eventType", event.GetEventType()),
				zap.Error(err),
			)
			continue
		}

		entries = append(entries, types.PutEventsRequestEntry{
			EventBusName: aws.String(p.eventBusName),
			Source:       aws.String(p.source),
			DetailType:   aws.String(event.GetEventType()),
			Detail:       aws.String(string(detail)),
			Time:         aws.Time(event.GetTimestamp()),
			Resources: []string{
				fmt.Sprintf("arn:aws:deepcae::%s", event.GetAggregateID()),
			},
		})
	}

	return entries
}

// publishEntries sends one chunk, retrying only the entries that
// failed.
func (p *Publisher) publishEntries(ctx context.Context, entries []types.PutEventsRequestEntry) error {
	backoff := initialBackoff

	for attempt := 1; ; attempt++ {
		failed, err := p.sendOnce(ctx, entries)
		if err == nil {
			return nil
		}
		if attempt >= maxAttempts || !isRetryable(err) {
			return err
		}

		p.logger.Warn("Retrying event publication",
			zap.Int("attempt", attempt),
			zap.Int("failedEntries", len(failed)),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)

		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			return ctx.Err()
		}

		entries = failed
	}
}

// sendOnce performs one PutEvents call and returns the entries that
// were not accepted.
func (p *Publisher) sendOnce(ctx context.Context, entries []types.PutEventsRequestEntry) ([]types.PutEventsRequestEntry, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	result, err := p.client.PutEvents(ctx, &eventbridge.PutEventsInput{
		Entries: entries,
	})
	if err != nil {
		return entries, fmt.Errorf("failed to publish events to EventBridge: %w", err)
	}

	if result.FailedEntryCount == 0 {
		p.logger.Debug("Events published to EventBridge",
			zap.Int("count", len(entries)),
			zap.String("eventBus", p.eventBusName),
		)
		return nil, nil
	}

	failed := make([]types.PutEventsRequestEntry, 0, result.FailedEntryCount)
	for i, resultEntry := range result.Entries {
		if resultEntry.ErrorCode == nil {
			continue
		}
		p.logger.Error("EventBridge rejected event",
			zap.String("detailType", aws.ToString(entries[i].DetailType)),
			zap.String("errorCode", aws.ToString(resultEntry.ErrorCode)),
			zap.String("errorMessage", aws.ToString(resultEntry.ErrorMessage)),
		)
		failed = append(failed, entries[i])
	}

	return failed, fmt.Errorf("%d of %d events failed to publish", len(failed), len(entries))
}

// isRetryable reports whether a publish error is worth another
// attempt. Server faults and throttling are; client faults are not.
func isRetryable(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if apiErr.ErrorFault() == smithy.FaultServer {
			return true
		}
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "InternalException", "InternalFailure", "ServiceUnavailableException":
			return true
		}
		return false
	}

	// Transport errors and partial-batch failures arrive as plain
	// errors.
	return true
}
