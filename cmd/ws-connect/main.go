// Package main implements the websocket $connect handler. Clients
// authenticate with a Supabase access token and are registered for
// version-event fan-out.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/supabase-community/supabase-go"
)

// connectionTTL bounds how long a registration can outlive its socket.
const connectionTTL = 2 * time.Hour

// connectionPartition keys every registration into one partition so the
// notify handler can fan out with a single query.
const connectionPartition = "CONN"

var (
	dbClient         *dynamodb.Client
	supabaseClient   *supabase.Client
	connectionsTable string
)

func init() {
	connectionsTable = os.Getenv("CONNECTIONS_TABLE_NAME")
	supabaseURL := os.Getenv("SUPABASE_URL")
	supabaseKey := os.Getenv("SUPABASE_SERVICE_ROLE_KEY")
	if connectionsTable == "" || supabaseURL == "" || supabaseKey == "" {
		log.Fatal("CONNECTIONS_TABLE_NAME, SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY must be set")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.TODO())
	if err != nil {
		log.Fatalf("Unable to load SDK config: %v", err)
	}
	dbClient = dynamodb.NewFromConfig(awsCfg)

	client, err := supabase.NewClient(supabaseURL, supabaseKey, nil)
	if err != nil {
		log.Fatalf("Unable to create Supabase client: %v", err)
	}
	supabaseClient = client
}

func handler(ctx context.Context, req events.APIGatewayWebsocketProxyRequest) (events.APIGatewayProxyResponse, error) {
	token, ok := req.QueryStringParameters["token"]
	if !ok || token == "" {
		log.Println("WARN: connection request missing token")
		return events.APIGatewayProxyResponse{StatusCode: http.StatusUnauthorized}, nil
	}

	// WithToken scopes the client to the caller; the request context
	// rides on the underlying HTTP call.
	user, err := supabaseClient.Auth.WithToken(token).GetUser()
	if err != nil {
		log.Printf("ERROR: invalid token: %v", err)
		return events.APIGatewayProxyResponse{StatusCode: http.StatusUnauthorized}, nil
	}

	connectionID := req.RequestContext.ConnectionID
	expireAt := time.Now().Add(connectionTTL).Unix()

	_, err = dbClient.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(connectionsTable),
		Item: map[string]types.AttributeValue{
			"PK":           &types.AttributeValueMemberS{Value: connectionPartition},
			"SK":           &types.AttributeValueMemberS{Value: connectionID},
			"user_id":      &types.AttributeValueMemberS{Value: user.ID.String()},
			"email":        &types.AttributeValueMemberS{Value: user.Email},
			"connected_at": &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
			"expireAt":     &types.AttributeValueMemberN{Value: strconv.FormatInt(expireAt, 10)},
		},
	})
	if err != nil {
		log.Printf("ERROR: failed to save connection: %v", err)
		return events.APIGatewayProxyResponse{StatusCode: http.StatusInternalServerError}, nil
	}

	log.Printf("Connected user %s with connection %s", user.ID.String(), connectionID)
	return events.APIGatewayProxyResponse{StatusCode: http.StatusOK}, nil
}

func main() {
	lambda.Start(handler)
}
