// Package dynamodb implements the version store on a single DynamoDB
// table. Layout:
//
//	PK = NODE#<node>  SK = META              node head, current sequence
//	PK = NODE#<node>  SK = VERSION#<seq>     one immutable item per version
//
// Version sort keys are zero-padded so lexical order matches sequence
// order. The META item guards appends with a conditional update; two
// writers racing for the same sequence lose deterministically even
// across instances, where the in-process node lock cannot see them.
package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"deepcae-backend/domain/core/entities"
	"deepcae-backend/domain/core/valueobjects"
	pkgerrors "deepcae-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

const (
	skMeta          = "META"
	skVersionPrefix = "VERSION#"

	entityTypeNode    = "NODE"
	entityTypeVersion = "VERSION"
)

// VersionStore persists node histories in DynamoDB.
type VersionStore struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewVersionStore creates a DynamoDB-backed version store.
func NewVersionStore(client *dynamodb.Client, tableName string, logger *zap.Logger) *VersionStore {
	return &VersionStore{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// metaItem is the node head record.
type metaItem struct {
	PK            string `dynamodbav:"PK"`
	SK            string `dynamodbav:"SK"`
	EntityType    string `dynamodbav:"EntityType"`
	NodeID        string `dynamodbav:"NodeID"`
	CurrentSeq    int    `dynamodbav:"CurrentSeq"`
	LastTimestamp string `dynamodbav:"LastTimestamp"`
	UpdatedAt     string `dynamodbav:"UpdatedAt"`
}

// versionItem is one immutable version of a node's data.
type versionItem struct {
	PK          string `dynamodbav:"PK"`
	SK          string `dynamodbav:"SK"`
	EntityType  string `dynamodbav:"EntityType"`
	NodeID      string `dynamodbav:"NodeID"`
	Sequence    int    `dynamodbav:"Sequence"`
	Data        string `dynamodbav:"Data"`
	Description string `dynamodbav:"Description"`
	Author      string `dynamodbav:"Author"`
	Timestamp   string `dynamodbav:"Timestamp"`
	SizeBytes   int    `dynamodbav:"SizeBytes"`
	Checksum    string `dynamodbav:"Checksum"`
}

func nodePK(nodeID valueobjects.NodeID) string {
	return fmt.Sprintf("NODE#%s", nodeID.String())
}

func versionSK(seq int) string {
	return fmt.Sprintf("%s%010d", skVersionPrefix, seq)
}

// GetNode loads a node record with its full history. A missing node
// returns (nil, nil).
func (s *VersionStore) GetNode(ctx context.Context, nodeID valueobjects.NodeID) (*entities.NodeRecord, error) {
	keyEx := expression.Key("PK").Equal(expression.Value(nodePK(nodeID)))
	expr, err := expression.NewBuilder().WithKeyCondition(keyEx).Build()
	if err != nil {
		return nil, pkgerrors.NewInternalError("building node query expression").WithCause(err)
	}

	var items []map[string]types.AttributeValue
	var lastKey map[string]types.AttributeValue
	for {
		input := &dynamodb.QueryInput{
			TableName:                 aws.String(s.tableName),
			KeyConditionExpression:    expr.KeyCondition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ConsistentRead:            aws.Bool(true),
			ExclusiveStartKey:         lastKey,
		}

		result, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, pkgerrors.NewDatabaseError("query node history", err)
		}
		items = append(items, result.Items...)

		lastKey = result.LastEvaluatedKey
		if len(lastKey) == 0 {
			break
		}
	}

	if len(items) == 0 {
		return nil, nil
	}
	return s.reconstructRecord(nodeID, items)
}

// UpdateNodeData appends a new version and moves the node head to it.
// The append and the head move commit in one transaction; a sequence
// collision from a concurrent writer maps to a concurrency error.
func (s *VersionStore) UpdateNodeData(ctx context.Context, nodeID valueobjects.NodeID, newData valueobjects.Document, description, author string) (*entities.Version, error) {
	meta, err := s.getMeta(ctx, nodeID)
	if err != nil {
		return nil, err
	}

	nextSeq := 1
	prevSeq := 0
	timestamp := time.Now().UTC()
	if meta != nil {
		nextSeq = meta.CurrentSeq + 1
		prevSeq = meta.CurrentSeq
		if last, err := time.Parse(time.RFC3339Nano, meta.LastTimestamp); err == nil && !timestamp.After(last) {
			timestamp = last.Add(time.Nanosecond)
		}
	}

	versionID, err := valueobjects.NewVersionID(nodeID, nextSeq)
	if err != nil {
		return nil, err
	}
	version, err := entities.ReconstructVersion(versionID, newData, description, author, timestamp)
	if err != nil {
		return nil, err
	}

	vItem := versionItem{
		PK:          nodePK(nodeID),
		SK:          versionSK(nextSeq),
		EntityType:  entityTypeVersion,
		NodeID:      nodeID.String(),
		Sequence:    nextSeq,
		Data:        string(newData.CanonicalJSON()),
		Description: description,
		Author:      author,
		Timestamp:   timestamp.Format(time.RFC3339Nano),
		SizeBytes:   newData.SizeBytes(),
		Checksum:    newData.Checksum(),
	}
	versionAV, err := attributevalue.MarshalMap(vItem)
	if err != nil {
		return nil, pkgerrors.NewInternalError("marshaling version item").WithCause(err)
	}

	mItem := metaItem{
		PK:            nodePK(nodeID),
		SK:            skMeta,
		EntityType:    entityTypeNode,
		NodeID:        nodeID.String(),
		CurrentSeq:    nextSeq,
		LastTimestamp: timestamp.Format(time.RFC3339Nano),
		UpdatedAt:     timestamp.Format(time.RFC3339Nano),
	}
	metaAV, err := attributevalue.MarshalMap(mItem)
	if err != nil {
		return nil, pkgerrors.NewInternalError("marshaling node head item").WithCause(err)
	}

	input := &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Put: &types.Put{
					TableName:           aws.String(s.tableName),
					Item:                versionAV,
					ConditionExpression: aws.String("attribute_not_exists(PK)"),
				},
			},
			{
				Put: &types.Put{
					TableName:           aws.String(s.tableName),
					Item:                metaAV,
					ConditionExpression: aws.String("attribute_not_exists(PK) OR CurrentSeq = :prev"),
					ExpressionAttributeValues: map[string]types.AttributeValue{
						":prev": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", prevSeq)},
					},
				},
			},
		},
	}

	if _, err := s.client.TransactWriteItems(ctx, input); err != nil {
		if isConditionalFailure(err) {
			s.logger.Warn("Version append lost a sequence race",
				zap.String("nodeID", nodeID.String()),
				zap.Int("sequence", nextSeq),
			)
			return nil, pkgerrors.NewConcurrencyError(fmt.Sprintf("node %s", nodeID))
		}
		return nil, pkgerrors.NewDatabaseError("append version", err)
	}

	s.logger.Debug("Version appended",
		zap.String("nodeID", nodeID.String()),
		zap.String("versionID", versionID.String()),
		zap.Int("sizeBytes", newData.SizeBytes()),
	)
	return version, nil
}

// GetAllNodes returns every node record. The sweep scans for META
// items and loads each node's history; histories are loaded per node
// so one oversized history cannot blow the scan page budget.
func (s *VersionStore) GetAllNodes(ctx context.Context) ([]*entities.NodeRecord, error) {
	filter := expression.Name("SK").Equal(expression.Value(skMeta))
	expr, err := expression.NewBuilder().WithFilter(filter).Build()
	if err != nil {
		return nil, pkgerrors.NewInternalError("building node scan expression").WithCause(err)
	}

	var nodeIDs []valueobjects.NodeID
	var lastKey map[string]types.AttributeValue
	for {
		input := &dynamodb.ScanInput{
			TableName:                 aws.String(s.tableName),
			FilterExpression:          expr.Filter(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ExclusiveStartKey:         lastKey,
		}

		result, err := s.client.Scan(ctx, input)
		if err != nil {
			return nil, pkgerrors.NewDatabaseError("scan nodes", err)
		}

		for _, raw := range result.Items {
			var item metaItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				return nil, pkgerrors.NewInternalError("unmarshaling node head item").WithCause(err)
			}
			nodeID, err := valueobjects.NewNodeID(item.NodeID)
			if err != nil {
				s.logger.Warn("Skipping node head with invalid id", zap.String("raw", item.NodeID))
				continue
			}
			nodeIDs = append(nodeIDs, nodeID)
		}

		lastKey = result.LastEvaluatedKey
		if len(lastKey) == 0 {
			break
		}
	}

	sort.Slice(nodeIDs, func(i, j int) bool { return nodeIDs[i].String() < nodeIDs[j].String() })

	records := make([]*entities.NodeRecord, 0, len(nodeIDs))
	for _, nodeID := range nodeIDs {
		record, err := s.GetNode(ctx, nodeID)
		if err != nil {
			return nil, err
		}
		if record == nil {
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

// getMeta reads the node head with a consistent read, nil when the
// node does not exist yet.
func (s *VersionStore) getMeta(ctx context.Context, nodeID valueobjects.NodeID) (*metaItem, error) {
	input := &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: nodePK(nodeID)},
			"SK": &types.AttributeValueMemberS{Value: skMeta},
		},
		ConsistentRead: aws.Bool(true),
	}

	result, err := s.client.GetItem(ctx, input)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("read node head", err)
	}
	if len(result.Item) == 0 {
		return nil, nil
	}

	var item metaItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, pkgerrors.NewInternalError("unmarshaling node head item").WithCause(err)
	}
	return &item, nil
}

// reconstructRecord rebuilds a NodeRecord from queried items.
func (s *VersionStore) reconstructRecord(nodeID valueobjects.NodeID, items []map[string]types.AttributeValue) (*entities.NodeRecord, error) {
	versions := make([]*entities.Version, 0, len(items))
	for _, raw := range items {
		var sk struct {
			SK string `dynamodbav:"SK"`
		}
		if err := attributevalue.UnmarshalMap(raw, &sk); err != nil {
			return nil, pkgerrors.NewInternalError("unmarshaling item key").WithCause(err)
		}
		if sk.SK == skMeta {
			continue
		}

		var item versionItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			return nil, pkgerrors.NewInternalError("unmarshaling version item").WithCause(err)
		}

		version, err := s.reconstructVersion(nodeID, item)
		if err != nil {
			return nil, err
		}
		versions = append(versions, version)
	}

	record, err := entities.ReconstructNodeRecord(nodeID, versions)
	if err != nil {
		return nil, pkgerrors.Wrap(err, fmt.Sprintf("reconstructing node %s", nodeID))
	}
	return record, nil
}

func (s *VersionStore) reconstructVersion(nodeID valueobjects.NodeID, item versionItem) (*entities.Version, error) {
	doc, err := valueobjects.DocumentFromJSON([]byte(item.Data))
	if err != nil {
		return nil, pkgerrors.Wrap(err, fmt.Sprintf("decoding version %d of node %s", item.Sequence, nodeID))
	}
	if item.Checksum != "" && item.Checksum != doc.Checksum() {
		s.logger.Warn("Stored checksum does not match payload",
			zap.String("nodeID", nodeID.String()),
			zap.Int("sequence", item.Sequence),
		)
	}

	versionID, err := valueobjects.NewVersionID(nodeID, item.Sequence)
	if err != nil {
		return nil, err
	}
	timestamp, err := time.Parse(time.RFC3339Nano, item.Timestamp)
	if err != nil {
		return nil, pkgerrors.NewInternalError(fmt.Sprintf("version %d of node %s carries an invalid timestamp", item.Sequence, nodeID)).WithCause(err)
	}
	return entities.ReconstructVersion(versionID, doc, item.Description, item.Author, timestamp)
}

// isConditionalFailure reports whether err is a lost conditional write,
// either directly or as a cancelled transaction reason.
func isConditionalFailure(err error) bool {
	var conditionFailed *types.ConditionalCheckFailedException
	if errors.As(err, &conditionFailed) {
		return true
	}
	var cancelled *types.TransactionCanceledException
	if errors.As(err, &cancelled) {
		for _, reason := range cancelled.CancellationReasons {
			if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
				return true
			}
		}
	}
	return false
}
