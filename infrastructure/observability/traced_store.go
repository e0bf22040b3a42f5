package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"deepcae-backend/application/ports"
	"deepcae-backend/domain/core/entities"
	"deepcae-backend/domain/core/valueobjects"
)

// tracedVersionStore wraps a VersionStore with per-operation spans.
type tracedVersionStore struct {
	inner  ports.VersionStore
	tracer trace.Tracer
}

// TraceVersionStore decorates a version store so every operation
// produces a span. The wrapped store is returned unchanged when the
// tracer is nil.
func TraceVersionStore(inner ports.VersionStore, tracer trace.Tracer) ports.VersionStore {
	if tracer == nil {
		return inner
	}
	return &tracedVersionStore{inner: inner, tracer: tracer}
}

func (s *tracedVersionStore) GetNode(ctx context.Context, nodeID valueobjects.NodeID) (*entities.NodeRecord, error) {
	ctx, span := s.tracer.Start(ctx, "VersionStore.GetNode",
		trace.WithAttributes(attribute.String("node.id", nodeID.String())),
	)
	defer span.End()

	record, err := s.inner.GetNode(ctx, nodeID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return record, err
}

func (s *tracedVersionStore) UpdateNodeData(ctx context.Context, nodeID valueobjects.NodeID, newData valueobjects.Document, description, author string) (*entities.Version, error) {
	ctx, span := s.tracer.Start(ctx, "VersionStore.UpdateNodeData",
		trace.WithAttributes(
			attribute.String("node.id", nodeID.String()),
			attribute.Int("payload.bytes", newData.SizeBytes()),
		),
	)
	defer span.End()

	version, err := s.inner.UpdateNodeData(ctx, nodeID, newData, description, author)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.String("version.id", version.ID().String()))
	return version, nil
}

func (s *tracedVersionStore) GetAllNodes(ctx context.Context) ([]*entities.NodeRecord, error) {
	ctx, span := s.tracer.Start(ctx, "VersionStore.GetAllNodes")
	defer span.End()

	records, err := s.inner.GetAllNodes(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("node.count", len(records)))
	return records, nil
}
