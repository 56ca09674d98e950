package repository

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type tableSchema struct {
	name    string
	indexes []string
}

// Schemas lists every table with the attributes its GSIs are keyed on. Each
// GSI is named "<attribute>-index".
func schemas() []tableSchema {
	return []tableSchema{
		{name: getenvDefault("JOBS_TABLE", defaultJobsTableName), indexes: []string{"customer_id", "mechanic_id", "status"}},
		{name: getenvDefault("BIDS_TABLE", defaultBidsTableName), indexes: []string{"job_id"}},
		{name: getenvDefault("CHANGE_ORDERS_TABLE", defaultChangeOrdersTableName), indexes: []string{"job_id", "status"}},
		{name: getenvDefault("ESCROW_PAYMENTS_TABLE", defaultEscrowPaymentsTableName), indexes: []string{"change_order_id", "job_id"}},
	}
}

// EnsureTables creates missing tables with on-demand billing. Meant for
// local DynamoDB; production tables are provisioned outside the service.
func EnsureTables(ctx context.Context, ddb *dynamodb.Client) error {
	for _, s := range schemas() {
		_, err := ddb.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.name)})
		if err == nil {
			continue
		}
		var nf *types.ResourceNotFoundException
		if !errors.As(err, &nf) {
			return fmt.Errorf("describe table %s: %w", s.name, err)
		}

		_, err = ddb.CreateTable(ctx, createTableInput(s))
		var inUse *types.ResourceInUseException
		if err != nil && !errors.As(err, &inUse) {
			return fmt.Errorf("create table %s: %w", s.name, err)
		}
		log.Printf("[dynamodb][schema] table created name=%s indexes=%v", s.name, s.indexes)
	}
	return nil
}

func createTableInput(s tableSchema) *dynamodb.CreateTableInput {
	in := &dynamodb.CreateTableInput{
		TableName:   aws.String(s.name),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("id"), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("id"), KeyType: types.KeyTypeHash},
		},
	}
	for _, attr := range s.indexes {
		in.AttributeDefinitions = append(in.AttributeDefinitions, types.AttributeDefinition{
			AttributeName: aws.String(attr),
			AttributeType: types.ScalarAttributeTypeS,
		})
		in.GlobalSecondaryIndexes = append(in.GlobalSecondaryIndexes, types.GlobalSecondaryIndex{
			IndexName: aws.String(attr + "-index"),
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String(attr), KeyType: types.KeyTypeHash},
			},
			Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
		})
	}
	return in
}
