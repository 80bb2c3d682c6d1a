package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
)

const (
	// DefaultDynamoDBTable is the table used when none is configured.
	DefaultDynamoDBTable = "browser-test-history"

	// Schema of the DynamoDB table
	tablePartitionKey = "record_id"

	// dynamoDBWriteTimeout bounds each PutItem, retries included.
	dynamoDBWriteTimeout = 5 * time.Second
)

// DynamoDBStore mirrors records into a DynamoDB table. Every put is conditional on the record not
// existing yet, so an existing item is never overwritten.
type DynamoDBStore struct {
	dynamodb     *dynamodb.DynamoDB
	table        string
	writeTimeout time.Duration
}

// DynamoDBOptions configures OpenDynamoDB. Endpoint is only needed for a local DynamoDB.
type DynamoDBOptions struct {
	Table    string
	Region   string
	Endpoint string
}

// OpenDynamoDB connects using the standard AWS credential chain and creates the table if it does
// not exist.
func OpenDynamoDB(ctx context.Context, opts DynamoDBOptions) (*DynamoDBStore, error) {
	config := aws.NewConfig()
	if opts.Region != "" {
		config = config.WithRegion(opts.Region)
	}
	if opts.Endpoint != "" {
		config = config.WithEndpoint(opts.Endpoint)
	}
	sess, err := session.NewSession(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	table := opts.Table
	if table == "" {
		table = DefaultDynamoDBTable
	}
	d := &DynamoDBStore{dynamodb: dynamodb.New(sess), table: table, writeTimeout: dynamoDBWriteTimeout}
	if err := d.ensureTable(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *DynamoDBStore) ensureTable(ctx context.Context) error {
	_, err := d.dynamodb.DescribeTableWithContext(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(d.table)})
	if err == nil {
		return nil
	}
	var aerr awserr.Error
	if !errors.As(err, &aerr) || aerr.Code() != dynamodb.ErrCodeResourceNotFoundException {
		return fmt.Errorf("failed to describe table %s: %w", d.table, err)
	}
	_, err = d.dynamodb.CreateTableWithContext(ctx, &dynamodb.CreateTableInput{
		AttributeDefinitions: []*dynamodb.AttributeDefinition{
			{
				AttributeName: aws.String(tablePartitionKey),
				AttributeType: aws.String("S"),
			},
		},
		KeySchema: []*dynamodb.KeySchemaElement{
			{
				AttributeName: aws.String(tablePartitionKey),
				KeyType:       aws.String("HASH"),
			},
		},
		BillingMode: aws.String(dynamodb.BillingModePayPerRequest),
		TableName:   aws.String(d.table),
	})
	if err != nil {
		return fmt.Errorf("failed to create table %s: %w", d.table, err)
	}
	return d.dynamodb.WaitUntilTableExistsWithContext(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(d.table)})
}

func (d *DynamoDBStore) Name() string { return "dynamodb:" + d.table }

func (d *DynamoDBStore) Append(ctx context.Context, r Record) error {
	ctx, cancel := context.WithTimeout(ctx, d.writeTimeout)
	defer cancel()
	_, err := d.dynamodb.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(d.table),
		Item:                recordItem(r),
		ConditionExpression: aws.String("attribute_not_exists(" + tablePartitionKey + ")"),
	})
	if err != nil {
		return &StoreWriteError{Backend: d.Name(), RecordID: r.RecordID, Err: err}
	}
	return nil
}

func recordItem(r Record) map[string]*dynamodb.AttributeValue {
	item := make(map[string]*dynamodb.AttributeValue, len(Columns))
	for i, v := range r.Row() {
		if v == "" {
			continue // empty strings are not allowed in key attributes, and are just noise elsewhere
		}
		if Columns[i] == "duration_seconds" {
			item[Columns[i]] = &dynamodb.AttributeValue{N: aws.String(v)}
			continue
		}
		item[Columns[i]] = &dynamodb.AttributeValue{S: aws.String(v)}
	}
	return item
}

func (d *DynamoDBStore) Close() error { return nil }
