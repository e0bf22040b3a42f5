// Package main implements the websocket notify handler. Version events
// arriving from EventBridge are fanned out to every connected client;
// connections that are gone are pruned from the registration table.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi"
	apigwtypes "github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi/types"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const connectionPartition = "CONN"

var (
	dbClient         *dynamodb.Client
	apiClient        *apigatewaymanagementapi.Client
	connectionsTable string
)

func init() {
	connectionsTable = os.Getenv("CONNECTIONS_TABLE_NAME")
	wsEndpoint := os.Getenv("WEBSOCKET_API_ENDPOINT")
	if connectionsTable == "" || wsEndpoint == "" {
		log.Fatal("CONNECTIONS_TABLE_NAME and WEBSOCKET_API_ENDPOINT must be set")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.TODO())
	if err != nil {
		log.Fatalf("Unable to load SDK config: %v", err)
	}
	dbClient = dynamodb.NewFromConfig(awsCfg)
	apiClient = apigatewaymanagementapi.NewFromConfig(awsCfg, func(o *apigatewaymanagementapi.Options) {
		o.BaseEndpoint = &wsEndpoint
	})
}

// versionEventDetail carries the fields shared by every version event.
type versionEventDetail struct {
	NodeID    string `json:"node_id"`
	VersionID string `json:"version_id"`
}

// notification is the payload pushed to connected CAE clients.
type notification struct {
	Action    string `json:"action"`
	EventType string `json:"event_type"`
	NodeID    string `json:"node_id,omitempty"`
	VersionID string `json:"version_id,omitempty"`
}

func handler(ctx context.Context, event events.EventBridgeEvent) error {
	var detail versionEventDetail
	if err := json.Unmarshal(event.Detail, &detail); err != nil {
		log.Printf("ERROR: could not unmarshal event detail: %v", err)
		return err
	}

	message, err := json.Marshal(notification{
		Action:    "versionEvent",
		EventType: event.DetailType,
		NodeID:    detail.NodeID,
		VersionID: detail.VersionID,
	})
	if err != nil {
		return err
	}

	result, err := dbClient.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(connectionsTable),
		KeyConditionExpression: aws.String("PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: connectionPartition},
		},
	})
	if err != nil {
		log.Printf("ERROR: failed to query connections: %v", err)
		return err
	}

	for _, item := range result.Items {
		sk, ok := item["SK"].(*types.AttributeValueMemberS)
		if !ok {
			continue
		}
		connectionID := sk.Value

		_, err := apiClient.PostToConnection(ctx, &apigatewaymanagementapi.PostToConnectionInput{
			ConnectionId: &connectionID,
			Data:         message,
		})
		if err == nil {
			continue
		}

		var gone *apigwtypes.GoneException
		if errors.As(err, &gone) {
			log.Printf("Pruning stale connection %s", connectionID)
			_, _ = dbClient.DeleteItem(ctx, &dynamodb.DeleteItemInput{
				TableName: aws.String(connectionsTable),
				Key: map[string]types.AttributeValue{
					"PK": item["PK"],
					"SK": item["SK"],
				},
			})
		} else {
			log.Printf("ERROR: failed to post to connection %s: %v", connectionID, err)
		}
	}
	return nil
}

func main() {
	lambda.Start(handler)
}
