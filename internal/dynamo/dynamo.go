// Package dynamo stores price records in Amazon DynamoDB.
//
// Tables use partition key "ticker" and sort key "date", both strings. The
// five numeric attributes are written as N, or NULL when the observation is
// absent. PutItem replaces the whole item, which gives last-write-wins upserts.
package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/trogers1052/stock-history-loader/internal/models"
	"github.com/trogers1052/stock-history-loader/internal/store"
)

const (
	attrTicker = "ticker"
	attrDate   = "date"

	DefaultReadCapacity  = 5
	DefaultWriteCapacity = 5
	DefaultWaitTimeout   = 5 * time.Minute
)

// API is the subset of the DynamoDB client used by Store
type API interface {
	ListTables(ctx context.Context, params *dynamodb.ListTablesInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ListTablesOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Options tune table provisioning
type Options struct {
	ReadCapacity  int64
	WriteCapacity int64
	// WaitTimeout bounds how long EnsureTable waits for a new table to become active
	WaitTimeout time.Duration
	// PollInterval is the minimum delay between readiness checks
	PollInterval time.Duration
}

// Store implements store.Store on DynamoDB
type Store struct {
	client API
	creds  aws.CredentialsProvider
	opts   Options
	log    logrus.FieldLogger
}

// New creates a Store. creds may be nil when the client resolves credentials on its own.
func New(client API, creds aws.CredentialsProvider, opts Options, log logrus.FieldLogger) *Store {
	if opts.ReadCapacity == 0 {
		opts.ReadCapacity = DefaultReadCapacity
	}
	if opts.WriteCapacity == 0 {
		opts.WriteCapacity = DefaultWriteCapacity
	}
	if opts.WaitTimeout == 0 {
		opts.WaitTimeout = DefaultWaitTimeout
	}
	return &Store{client: client, creds: creds, opts: opts, log: log}
}

// EnsureTable implements store.Store
func (s *Store) EnsureTable(ctx context.Context, table string) error {
	if err := s.checkCredentials(ctx); err != nil {
		return err
	}

	exists, err := s.tableExists(ctx, table)
	if err != nil {
		return fmt.Errorf("failed to check table %s: %w", table, wrap(err))
	}
	if exists {
		s.log.WithField("table", table).Info("table already exists")
		return nil
	}

	s.log.WithField("table", table).Info("creating table")
	_, err = s.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(table),
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(attrTicker), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String(attrDate), KeyType: types.KeyTypeRange},
		},
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(attrTicker), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String(attrDate), AttributeType: types.ScalarAttributeTypeS},
		},
		ProvisionedThroughput: &types.ProvisionedThroughput{
			ReadCapacityUnits:  aws.Int64(s.opts.ReadCapacity),
			WriteCapacityUnits: aws.Int64(s.opts.WriteCapacity),
		},
	})
	var inUse *types.ResourceInUseException
	if err != nil && !errors.As(err, &inUse) {
		return fmt.Errorf("failed to create table %s: %w", table, wrap(err))
	}

	waiter := dynamodb.NewTableExistsWaiter(s.client, func(o *dynamodb.TableExistsWaiterOptions) {
		if s.opts.PollInterval > 0 {
			o.MinDelay = s.opts.PollInterval
		}
	})
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(table)}, s.opts.WaitTimeout); err != nil {
		return fmt.Errorf("failed waiting for table %s: %w", table, wrap(err))
	}

	s.log.WithField("table", table).Info("table created")
	return nil
}

func (s *Store) tableExists(ctx context.Context, table string) (bool, error) {
	p := dynamodb.NewListTablesPaginator(s.client, &dynamodb.ListTablesInput{})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return false, err
		}
		for _, name := range page.TableNames {
			if name == table {
				return true, nil
			}
		}
	}
	return false, nil
}

// PutRecord implements store.Store
func (s *Store) PutRecord(ctx context.Context, table string, rec models.PriceRecord) error {
	if err := s.checkCredentials(ctx); err != nil {
		return err
	}

	_, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(table),
		Item:      encodeItem(rec),
	})
	if err != nil {
		return fmt.Errorf("failed to put %s on %s: %w", rec.Ticker, rec.Date, wrap(err))
	}
	return nil
}

// GetRecord implements store.Store
func (s *Store) GetRecord(ctx context.Context, table, ticker, date string) (*models.PriceRecord, error) {
	if err := s.checkCredentials(ctx); err != nil {
		return nil, err
	}

	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(table),
		Key:            itemKey(ticker, date),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get %s on %s: %w", ticker, date, wrap(err))
	}
	if len(out.Item) == 0 {
		return nil, fmt.Errorf("%w: %s on %s", store.ErrNotFound, ticker, date)
	}

	rec, err := decodeItem(out.Item)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListRecords implements store.Store
func (s *Store) ListRecords(ctx context.Context, table, ticker string) ([]models.PriceRecord, error) {
	if err := s.checkCredentials(ctx); err != nil {
		return nil, err
	}

	p := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
		TableName:              aws.String(table),
		KeyConditionExpression: aws.String("#t = :t"),
		ExpressionAttributeNames: map[string]string{
			"#t": attrTicker,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t": &types.AttributeValueMemberS{Value: ticker},
		},
		ScanIndexForward: aws.Bool(true),
		ConsistentRead:   aws.Bool(true),
	})

	var records []models.PriceRecord
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to query %s: %w", ticker, wrap(err))
		}
		for _, item := range page.Items {
			rec, err := decodeItem(item)
			if err != nil {
				return nil, err
			}
			records = append(records, rec)
		}
	}
	return records, nil
}

func (s *Store) checkCredentials(ctx context.Context) error {
	if s.creds == nil {
		return nil
	}
	if _, err := s.creds.Retrieve(ctx); err != nil {
		return fmt.Errorf("%w: %w", store.ErrCredentials, err)
	}
	return nil
}

// wrap tags an SDK error as a store request failure, keeping the cause
func wrap(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %s: %w", store.ErrRequest, apiErr.ErrorCode(), err)
	}
	return fmt.Errorf("%w: %w", store.ErrRequest, err)
}

func itemKey(ticker, date string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrTicker: &types.AttributeValueMemberS{Value: ticker},
		attrDate:   &types.AttributeValueMemberS{Value: date},
	}
}

func encodeItem(rec models.PriceRecord) map[string]types.AttributeValue {
	item := itemKey(rec.Ticker, rec.Date)
	item["Open"] = numberAttr(rec.Open)
	item["High"] = numberAttr(rec.High)
	item["Low"] = numberAttr(rec.Low)
	item["Close"] = numberAttr(rec.Close)
	item["Volume"] = numberAttr(rec.Volume)
	return item
}

func numberAttr(d decimal.NullDecimal) types.AttributeValue {
	if !d.Valid {
		return &types.AttributeValueMemberNULL{Value: true}
	}
	return &types.AttributeValueMemberN{Value: d.Decimal.String()}
}

func decodeItem(item map[string]types.AttributeValue) (models.PriceRecord, error) {
	var rec models.PriceRecord

	ticker, ok := item[attrTicker].(*types.AttributeValueMemberS)
	if !ok {
		return rec, fmt.Errorf("item has no %s attribute", attrTicker)
	}
	date, ok := item[attrDate].(*types.AttributeValueMemberS)
	if !ok {
		return rec, fmt.Errorf("item has no %s attribute", attrDate)
	}
	rec.Ticker = ticker.Value
	rec.Date = date.Value

	fields := []struct {
		name string
		out  *decimal.NullDecimal
	}{
		{"Open", &rec.Open},
		{"High", &rec.High},
		{"Low", &rec.Low},
		{"Close", &rec.Close},
		{"Volume", &rec.Volume},
	}
	for _, f := range fields {
		n, ok := item[f.name].(*types.AttributeValueMemberN)
		if !ok {
			// NULL or missing
			continue
		}
		d, err := decimal.NewFromString(n.Value)
		if err != nil {
			return rec, fmt.Errorf("invalid %s %q for %s on %s: %w", f.name, n.Value, rec.Ticker, rec.Date, err)
		}
		*f.out = decimal.NewNullDecimal(d)
	}
	return rec, nil
}
