package database

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"project/util"
)

// GetDynamoClient builds a client from the default AWS chain. BAGEL_
// prefixed DYNAMO_REGION, DYNAMO_ACCESS_KEY_ID/DYNAMO_SECRET_ACCESS_KEY and
// DYNAMO_ENDPOINT override the region, the credentials and the endpoint.
func GetDynamoClient(ctx context.Context) (*dynamodb.Client, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(util.GetEnv("DYNAMO_REGION", DEFAULT_REGION)),
	}
	if key := util.GetEnv("DYNAMO_ACCESS_KEY_ID", ""); key != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(key, util.GetEnv("DYNAMO_SECRET_ACCESS_KEY", ""), ""),
		))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		log.Printf("GetDynamoClient: unable to load SDK config %v\n", err)
		return nil, err
	}

	endpoint := util.GetEnv("DYNAMO_ENDPOINT", "")
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.EndpointResolver = dynamodb.EndpointResolverFromURL(endpoint)
		}
	}), nil
}

// EnsureTable creates the distance table keyed by Partition and Vertex
// unless it exists.
func EnsureTable(ctx context.Context, svc *dynamodb.Client, tableName string) error {
	_, err := svc.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(tableName)})
	if err == nil {
		return nil
	}
	var notFound *types.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return err
	}
	return CreateTable(ctx, svc, tableName)
}

func CreateTable(ctx context.Context, svc *dynamodb.Client, tableName string) error {
	definition := &dynamodb.CreateTableInput{
		AttributeDefinitions: []types.AttributeDefinition{
			{
				AttributeName: aws.String("Partition"),
				AttributeType: types.ScalarAttributeTypeN,
			},
			{
				AttributeName: aws.String("Vertex"),
				AttributeType: types.ScalarAttributeTypeS,
			},
		},
		KeySchema: []types.KeySchemaElement{
			{
				AttributeName: aws.String("Partition"),
				KeyType:       types.KeyTypeHash,
			},
			{
				AttributeName: aws.String("Vertex"),
				KeyType:       types.KeyTypeRange,
			},
		},
		TableName:   aws.String(tableName),
		BillingMode: types.BillingModePayPerRequest,
	}

	out, err := svc.CreateTable(ctx, definition)
	if err != nil {
		return err
	}
	log.Printf("CreateTable: created %v (%v)\n", tableName, out.TableDescription.TableStatus)
	return waitForTable(ctx, svc, tableName)
}

func waitForTable(ctx context.Context, db *dynamodb.Client, tn string) error {
	w := dynamodb.NewTableExistsWaiter(db)
	return w.Wait(ctx,
		&dynamodb.DescribeTableInput{
			TableName: aws.String(tn),
		},
		2*time.Minute,
		func(o *dynamodb.TableExistsWaiterOptions) {
			o.MaxDelay = 5 * time.Second
			o.MinDelay = 1 * time.Second
		})
}
