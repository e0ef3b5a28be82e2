package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/cenkalti/backoff/v4"
)

const maxBatchRetries = 5

// DistanceItem is the DynamoDB item of one SSSP result.
type DistanceItem struct {
	Partition int     `dynamodbav:"Partition"`
	Vertex    string  `dynamodbav:"Vertex"`
	Distance  float64 `dynamodbav:"Distance"`
}

// BatchWriter is the part of the DynamoDB client the sink needs.
type BatchWriter interface {
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// DynamoSink puts rows in batches of MAXIMUM_ITEMS_PER_BATCH.
type DynamoSink struct {
	ctx         context.Context
	svc         BatchWriter
	tableName   string
	partitionId int
	pending     []types.WriteRequest
	batches     int
}

func NewDynamoSink(ctx context.Context, tableName string, partitionId int) (*DynamoSink, error) {
	if tableName == "" {
		tableName = CENTRAL_DB_NAME
	}
	svc, err := GetDynamoClient(ctx)
	if err != nil {
		return nil, err
	}
	if err := EnsureTable(ctx, svc, tableName); err != nil {
		log.Printf("NewDynamoSink: table %v unavailable: %v\n", tableName, err)
		return nil, err
	}
	return NewDynamoSinkWithClient(ctx, svc, tableName, partitionId), nil
}

func NewDynamoSinkWithClient(ctx context.Context, svc BatchWriter, tableName string, partitionId int) *DynamoSink {
	return &DynamoSink{ctx: ctx, svc: svc, tableName: tableName, partitionId: partitionId}
}

func (s *DynamoSink) WriteDistance(row DistanceRow) error {
	item, err := attributevalue.MarshalMap(DistanceItem{
		Partition: s.partitionId,
		Vertex:    row.Vertex,
		Distance:  row.Distance,
	})
	if err != nil {
		return err
	}
	s.pending = append(s.pending, types.WriteRequest{PutRequest: &types.PutRequest{Item: item}})
	if len(s.pending) == MAXIMUM_ITEMS_PER_BATCH {
		return s.flush(s.ctx)
	}
	return nil
}

func (s *DynamoSink) WritePair(row PairRow) error {
	return PairsUnsupported(DYNAMODB)
}

func (s *DynamoSink) flush(ctx context.Context) error {
	requests := s.pending
	s.pending = nil

	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = 100 * time.Millisecond
	err := backoff.RetryNotify(func() error {
		out, err := s.svc.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{s.tableName: requests},
		})
		if err != nil {
			log.Printf("flush: failed to upload batch %v: %v\n", s.batches+1, err)
			return backoff.Permanent(err)
		}
		requests = out.UnprocessedItems[s.tableName]
		if len(requests) > 0 {
			return fmt.Errorf("dynamodb: %d items left unprocessed in %v", len(requests), s.tableName)
		}
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(retry, maxBatchRetries-1), ctx), func(err error, wait time.Duration) {
		log.Printf("flush: %v, retrying in %v\n", err, wait)
	})
	if err != nil {
		return err
	}
	s.batches++
	return nil
}

func (s *DynamoSink) Close(ctx context.Context) error {
	if len(s.pending) > 0 {
		if err := s.flush(ctx); err != nil {
			return err
		}
	}
	log.Printf("Close: %v batches added to %v\n", s.batches, s.tableName)
	return nil
}
