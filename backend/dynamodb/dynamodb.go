// Package dynamodb provides a backend.Backend stored in a DynamoDB table.
//
// Table schema:
//   - Partition key: key (string) - the full record key
//   - Attribute data (binary) - the record bytes
//
// Create table with:
//
//	aws dynamodb create-table \
//	  --table-name relate-records \
//	  --attribute-definitions AttributeName=key,AttributeType=S \
//	  --key-schema AttributeName=key,KeyType=HASH \
//	  --billing-mode PAY_PER_REQUEST
//
// Listing is a filtered Scan; prefer it for small stores or infrequent listing.
package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/hupe1980/relate/backend"
)

// MaxItemSize is the DynamoDB item size limit, including attribute names.
const MaxItemSize = 400 * 1024

const (
	attrKey  = "key"
	attrData = "data"
)

// ErrTooLarge is returned when a record does not fit in one item.
var ErrTooLarge = errors.New("dynamodb: record exceeds item size limit")

// Client is the interface for DynamoDB operations.
type Client interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// Backend implements backend.Backend on DynamoDB.
type Backend struct {
	client Client
	table  string
}

// Options configures New.
type Options struct {
	Region   string
	Endpoint string
	Client   Client
}

// New creates a backend for table. Unless Options.Client is set, the client is
// built from the default AWS configuration chain.
func New(ctx context.Context, table string, optFns ...func(o *Options)) (*Backend, error) {
	var opts Options
	for _, fn := range optFns {
		fn(&opts)
	}

	client := opts.Client
	if client == nil {
		var cfgFns []func(*config.LoadOptions) error
		if opts.Region != "" {
			cfgFns = append(cfgFns, config.WithRegion(opts.Region))
		}
		cfg, err := config.LoadDefaultConfig(ctx, cfgFns...)
		if err != nil {
			return nil, fmt.Errorf("dynamodb: load aws config: %w", err)
		}
		client = dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
			if opts.Endpoint != "" {
				o.BaseEndpoint = aws.String(opts.Endpoint)
			}
		})
	}

	return NewWithClient(client, table), nil
}

// NewWithClient creates a backend from an existing client.
func NewWithClient(client Client, table string) *Backend {
	return &Backend{client: client, table: table}
}

func itemKey(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrKey: &types.AttributeValueMemberS{Value: key},
	}
}

// Get reads a record with a strongly consistent read.
func (b *Backend) Get(ctx context.Context, key string) ([]byte, error) {
	resp, err := b.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(b.table),
		Key:            itemKey(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("dynamodb: get %s: %w", key, err)
	}
	if resp.Item == nil {
		return nil, backend.ErrNotFound
	}

	data, ok := resp.Item[attrData].(*types.AttributeValueMemberB)
	if !ok {
		return nil, fmt.Errorf("dynamodb: item %s has no binary data attribute", key)
	}
	return data.Value, nil
}

// Put writes a record as one item.
func (b *Backend) Put(ctx context.Context, key string, data []byte) error {
	if key == "" {
		return fmt.Errorf("%w: empty key", backend.ErrInvalidKey)
	}
	if len(key)+len(data)+len(attrKey)+len(attrData) > MaxItemSize {
		return fmt.Errorf("%w: %s (%d bytes)", ErrTooLarge, key, len(data))
	}

	if data == nil {
		data = []byte{}
	}
	_, err := b.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(b.table),
		Item: map[string]types.AttributeValue{
			attrKey:  &types.AttributeValueMemberS{Value: key},
			attrData: &types.AttributeValueMemberB{Value: data},
		},
	})
	if err != nil {
		return fmt.Errorf("dynamodb: put %s: %w", key, err)
	}
	return nil
}

// Delete removes a record. Deleting a missing item succeeds.
func (b *Backend) Delete(ctx context.Context, key string) error {
	_, err := b.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(b.table),
		Key:       itemKey(key),
	})
	if err != nil {
		return fmt.Errorf("dynamodb: delete %s: %w", key, err)
	}
	return nil
}

// List scans the table for keys beginning with prefix.
func (b *Backend) List(ctx context.Context, prefix string) ([]string, error) {
	input := &dynamodb.ScanInput{
		TableName:                aws.String(b.table),
		ProjectionExpression:     aws.String("#k"),
		ExpressionAttributeNames: map[string]string{"#k": attrKey},
		ConsistentRead:           aws.Bool(true),
	}
	if prefix != "" {
		input.FilterExpression = aws.String("begins_with(#k, :prefix)")
		input.ExpressionAttributeValues = map[string]types.AttributeValue{
			":prefix": &types.AttributeValueMemberS{Value: prefix},
		}
	}

	var keys []string
	paginator := dynamodb.NewScanPaginator(b.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("dynamodb: scan: %w", err)
		}
		for _, item := range page.Items {
			if k, ok := item[attrKey].(*types.AttributeValueMemberS); ok {
				keys = append(keys, k.Value)
			}
		}
	}

	slices.Sort(keys)
	return keys, nil
}
