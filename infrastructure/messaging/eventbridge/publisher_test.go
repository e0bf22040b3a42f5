package eventbridge

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"deepcae-backend/domain/events"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type unserializableEvent struct {
	events.BaseEvent
	Blocker chan int `json:"blocker"`
}

func TestBuildEntries(t *testing.T) {
	publisher := NewPublisher(nil, "deepcae-events", zap.NewNop())

	now := time.Now()
	batch := []events.DomainEvent{
		events.BaseEvent{AggregateID: "meshA", EventType: events.TypeSnapshotCreated, Timestamp: now, Version: 1},
		events.BaseEvent{AggregateID: "meshB", EventType: events.TypeTagCreated, Timestamp: now, Version: 1},
	}

	entries := publisher.buildEntries(batch)
	require.Len(t, entries, 2)

	first := entries[0]
	assert.Equal(t, "deepcae-events", aws.ToString(first.EventBusName))
	assert.Equal(t, events.SourceBackend, aws.ToString(first.Source))
	assert.Equal(t, "snapshot_created", aws.ToString(first.DetailType))
	assert.Contains(t, aws.ToString(first.Detail), `"aggregate_id":"meshA"`)
	require.Len(t, first.Resources, 1)
	assert.Equal(t, "arn:aws:deepcae::meshA", first.Resources[0])

	assert.Equal(t, "tag_created", aws.ToString(entries[1].DetailType))
}

func TestBuildEntries_DropsUnserializableEvents(t *testing.T) {
	publisher := NewPublisher(nil, "deepcae-events", zap.NewNop())

	batch := []events.DomainEvent{
		unserializableEvent{
			BaseEvent: events.BaseEvent{AggregateID: "meshA", EventType: events.TypeSnapshotCreated, Timestamp: time.Now()},
			Blocker:   make(chan int),
		},
		events.BaseEvent{AggregateID: "meshB", EventType: events.TypeTagCreated, Timestamp: time.Now()},
	}

	entries := publisher.buildEntries(batch)
	require.Len(t, entries, 1)
	assert.Equal(t, "tag_created", aws.ToString(entries[0].DetailType))
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "throttling is retryable",
			err:  &smithy.GenericAPIError{Code: "ThrottlingException", Fault: smithy.FaultClient},
			want: true,
		},
		{
			name: "server fault is retryable",
			err:  &smithy.GenericAPIError{Code: "SomethingBroke", Fault: smithy.FaultServer},
			want: true,
		},
		{
			name: "validation error is not retryable",
			err:  &smithy.GenericAPIError{Code: "ValidationException", Fault: smithy.FaultClient},
			want: false,
		},
		{
			name: "wrapped api error is unwrapped",
			err:  fmt.Errorf("publish: %w", &smithy.GenericAPIError{Code: "ValidationException", Fault: smithy.FaultClient}),
			want: false,
		},
		{
			name: "transport error is retryable",
			err:  errors.New("connection reset by peer"),
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryable(tt.err))
		})
	}
}
