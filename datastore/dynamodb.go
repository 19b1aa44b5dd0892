package datastore

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/jason-edstrom/silver-carnival/config"
	"github.com/jason-edstrom/silver-carnival/driver"
)

const (
	tablePartitionKey = "namespace"
	tableSortKey      = "key"
	valueAttribute    = "value"

	// BatchWriteItem accepts at most this many requests.
	maxBatchWrite = 25
)

// DynamoDBConfig is read from the DynamoDB section.
type DynamoDBConfig struct {
	Region string
	// Endpoint overrides the AWS endpoint, for instance to use DynamoDB Local.
	Endpoint string
	Table    string
	// AccessKeyID and SecretAccessKey select static credentials. When empty, the default AWS
	// credential chain is used.
	AccessKeyID     string
	SecretAccessKey string
	// DeleteTableOnClose drops the table when the test ends.
	DeleteTableOnClose bool
}

func LoadDynamoDBConfig(cfg *config.Config) DynamoDBConfig {
	c := DynamoDBConfig{Region: "us-east-1", Table: "maqs-tests"}
	if cfg == nil {
		return c
	}
	c.Region = cfg.SectionValue("DynamoDB", "Region", c.Region)
	c.Endpoint = cfg.SectionValue("DynamoDB", "Endpoint", "")
	c.Table = cfg.SectionValue("DynamoDB", "Table", c.Table)
	c.AccessKeyID = cfg.SectionValue("DynamoDB", "AccessKeyId", "")
	c.SecretAccessKey = cfg.SectionValue("DynamoDB", "SecretAccessKey", "")
	c.DeleteTableOnClose = cfg.Bool("DynamoDB", "DeleteTableOnClose", false)
	return c
}

// DynamoDBStore keeps each map field as an item whose partition key is prefix:key and whose
// sort key is the field name.
type DynamoDBStore struct {
	dynamodb *dynamodb.DynamoDB
	config   DynamoDBConfig
}

// NewDynamoDBBackend creates the table on Create if it does not exist yet.
func NewDynamoDBBackend(c DynamoDBConfig) driver.Backend[*DynamoDBStore] {
	return driver.Funcs[*DynamoDBStore]{
		CreateFunc: func(ctx context.Context) (*DynamoDBStore, error) {
			awsConfig := aws.NewConfig().WithRegion(c.Region)
			if c.Endpoint != "" {
				awsConfig = awsConfig.WithEndpoint(c.Endpoint)
			}
			if c.AccessKeyID != "" {
				awsConfig = awsConfig.WithCredentials(credentials.NewStaticCredentials(c.AccessKeyID, c.SecretAccessKey, ""))
			}
			sess, err := session.NewSession(awsConfig)
			if err != nil {
				return nil, fmt.Errorf("creating AWS session: %w", err)
			}
			d := &DynamoDBStore{dynamodb: dynamodb.New(sess), config: c}
			if err := d.ensureTable(ctx); err != nil {
				return nil, err
			}
			return d, nil
		},
		DisposeFunc: func(ctx context.Context, d *DynamoDBStore) error {
			if !d.config.DeleteTableOnClose {
				return nil
			}
			_, err := d.dynamodb.DeleteTableWithContext(ctx, &dynamodb.DeleteTableInput{TableName: aws.String(d.config.Table)})
			return err
		},
	}
}

func (d *DynamoDBStore) Client() *dynamodb.DynamoDB { return d.dynamodb }

func (d *DynamoDBStore) DSN() string {
	if d.config.Endpoint != "" {
		return "dynamodb://" + d.config.Endpoint + "/" + d.config.Table
	}
	return "dynamodb://" + d.config.Region + "/" + d.config.Table
}

func (d *DynamoDBStore) ensureTable(ctx context.Context) error {
	table := aws.String(d.config.Table)
	_, err := d.dynamodb.DescribeTableWithContext(ctx, &dynamodb.DescribeTableInput{TableName: table})
	if err == nil {
		return nil
	}
	if aerr, ok := err.(awserr.Error); !ok || aerr.Code() != dynamodb.ErrCodeResourceNotFoundException {
		return fmt.Errorf("describing table %s: %w", d.config.Table, err)
	}
	_, err = d.dynamodb.CreateTableWithContext(ctx, &dynamodb.CreateTableInput{
		AttributeDefinitions: []*dynamodb.AttributeDefinition{
			{AttributeName: aws.String(tablePartitionKey), AttributeType: aws.String(dynamodb.ScalarAttributeTypeS)},
			{AttributeName: aws.String(tableSortKey), AttributeType: aws.String(dynamodb.ScalarAttributeTypeS)},
		},
		KeySchema: []*dynamodb.KeySchemaElement{
			{AttributeName: aws.String(tablePartitionKey), KeyType: aws.String(dynamodb.KeyTypeHash)},
			{AttributeName: aws.String(tableSortKey), KeyType: aws.String(dynamodb.KeyTypeRange)},
		},
		ProvisionedThroughput: &dynamodb.ProvisionedThroughput{
			ReadCapacityUnits:  aws.Int64(1),
			WriteCapacityUnits: aws.Int64(1),
		},
		TableName: table,
	})
	if err != nil {
		return fmt.Errorf("creating table %s: %w", d.config.Table, err)
	}
	return d.dynamodb.WaitUntilTableExistsWithContext(ctx, &dynamodb.DescribeTableInput{TableName: table})
}

func (d *DynamoDBStore) query(ctx context.Context, namespace string) ([]map[string]*dynamodb.AttributeValue, error) {
	var items []map[string]*dynamodb.AttributeValue
	err := d.dynamodb.QueryPagesWithContext(ctx, &dynamodb.QueryInput{
		TableName:      aws.String(d.config.Table),
		ConsistentRead: aws.Bool(true),
		KeyConditions: map[string]*dynamodb.Condition{
			tablePartitionKey: {
				ComparisonOperator: aws.String(dynamodb.ComparisonOperatorEq),
				AttributeValueList: []*dynamodb.AttributeValue{{S: aws.String(namespace)}},
			},
		},
	}, func(page *dynamodb.QueryOutput, _ bool) bool {
		items = append(items, page.Items...)
		return true
	})
	return items, err
}

func (d *DynamoDBStore) GetMap(ctx context.Context, prefix, key string) (map[string]string, error) {
	items, err := d.query(ctx, addPrefix(prefix, key))
	if err != nil {
		return nil, err
	}
	results := make(map[string]string, len(items))
	for _, item := range items {
		results[aws.StringValue(item[tableSortKey].S)] = aws.StringValue(item[valueAttribute].S)
	}
	return results, nil
}

// WriteMap puts every field of data and deletes the fields stored before that are not in
// data.
func (d *DynamoDBStore) WriteMap(ctx context.Context, prefix, key string, data map[string]string) error {
	namespace := addPrefix(prefix, key)
	existing, err := d.query(ctx, namespace)
	if err != nil {
		return err
	}
	unused := make(map[string]bool, len(existing))
	for _, item := range existing {
		unused[aws.StringValue(item[tableSortKey].S)] = true
	}

	requests := make([]*dynamodb.WriteRequest, 0, len(data)+len(unused))
	for field, value := range data {
		requests = append(requests, &dynamodb.WriteRequest{
			PutRequest: &dynamodb.PutRequest{Item: map[string]*dynamodb.AttributeValue{
				tablePartitionKey: {S: aws.String(namespace)},
				tableSortKey:      {S: aws.String(field)},
				valueAttribute:    {S: aws.String(value)},
			}},
		})
		delete(unused, field)
	}
	for field := range unused {
		requests = append(requests, &dynamodb.WriteRequest{
			DeleteRequest: &dynamodb.DeleteRequest{Key: map[string]*dynamodb.AttributeValue{
				tablePartitionKey: {S: aws.String(namespace)},
				tableSortKey:      {S: aws.String(field)},
			}},
		})
	}
	if err := d.batchWriteRequests(ctx, requests); err != nil {
		return fmt.Errorf("failed to write %d item(s) in batches: %w", len(requests), err)
	}
	return nil
}

// Reset deletes every item in the table.
func (d *DynamoDBStore) Reset(ctx context.Context) error {
	var requests []*dynamodb.WriteRequest
	err := d.dynamodb.ScanPagesWithContext(ctx, &dynamodb.ScanInput{
		TableName:            aws.String(d.config.Table),
		ProjectionExpression: aws.String("#ns, #k"),
		ExpressionAttributeNames: map[string]*string{
			"#ns": aws.String(tablePartitionKey),
			"#k":  aws.String(tableSortKey),
		},
	}, func(page *dynamodb.ScanOutput, _ bool) bool {
		for _, item := range page.Items {
			requests = append(requests, &dynamodb.WriteRequest{
				DeleteRequest: &dynamodb.DeleteRequest{Key: item},
			})
		}
		return true
	})
	if err != nil {
		return err
	}
	return d.batchWriteRequests(ctx, requests)
}

func (d *DynamoDBStore) Close() error { return nil }

// batchWriteRequests runs requests in batches, retrying whatever DynamoDB reports as
// unprocessed.
func (d *DynamoDBStore) batchWriteRequests(ctx context.Context, requests []*dynamodb.WriteRequest) error {
	for len(requests) > 0 {
		n := len(requests)
		if n > maxBatchWrite {
			n = maxBatchWrite
		}
		batch := requests[:n]
		requests = requests[n:]

		out, err := d.dynamodb.BatchWriteItemWithContext(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]*dynamodb.WriteRequest{d.config.Table: batch},
		})
		if err != nil {
			return err
		}
		requests = append(requests, out.UnprocessedItems[d.config.Table]...)
	}
	return nil
}
