package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"mecanica_marketplace/internal/domain/entities"
	"mecanica_marketplace/internal/usecase/interfaces"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	defaultBidsTableName = "bids"
	bidsJobIDIndex       = "job_id-index"

	// DynamoDB rejects transactions with more than 100 actions.
	maxTransactItems = 100
)

type bidItem struct {
	ID                string  `dynamodbav:"id"`
	JobID             string  `dynamodbav:"job_id"`
	MechanicID        string  `dynamodbav:"mechanic_id"`
	CustomerID        string  `dynamodbav:"customer_id"`
	Price             float64 `dynamodbav:"price"`
	Message           string  `dynamodbav:"message,omitempty"`
	EstimatedDuration string  `dynamodbav:"estimated_duration,omitempty"`
	Status            string  `dynamodbav:"status"`
	Version           int64   `dynamodbav:"version"`
	CreatedAt         string  `dynamodbav:"created_at"`
	UpdatedAt         string  `dynamodbav:"updated_at"`
	ResolvedAt        string  `dynamodbav:"resolved_at,omitempty"`
}

// BidDynamoRepository persists Bid entities in DynamoDB.
//
// Table requirements:
//   - PK: id (string)
//   - GSI: job_id-index (PK: job_id)

type BidDynamoRepository struct {
	t table
}

var _ interfaces.IBidRepository = (*BidDynamoRepository)(nil)

func NewBidDynamoRepository(ddb DynamoDBAPI) *BidDynamoRepository {
	return &BidDynamoRepository{t: table{ddb: ddb, name: getenvDefault("BIDS_TABLE", defaultBidsTableName)}}
}

func (r *BidDynamoRepository) Create(ctx context.Context, b entities.Bid) (entities.Bid, error) {
	b.Version = 1
	if err := r.t.create(ctx, toBidItem(b)); err != nil {
		return entities.Bid{}, err
	}
	return b, nil
}

func (r *BidDynamoRepository) GetByID(ctx context.Context, id string) (entities.Bid, error) {
	var it bidItem
	found, err := r.t.get(ctx, id, &it)
	if err != nil || !found {
		return entities.Bid{}, err
	}
	return fromBidItem(it), nil
}

func (r *BidDynamoRepository) ListByJobID(ctx context.Context, jobID string) ([]entities.Bid, error) {
	raws, err := r.t.queryIndex(ctx, bidsJobIDIndex, "job_id", jobID)
	if err != nil {
		return nil, err
	}
	bids := make([]entities.Bid, 0, len(raws))
	for _, raw := range raws {
		var it bidItem
		if err := attributevalue.UnmarshalMap(raw, &it); err != nil {
			return nil, err
		}
		bids = append(bids, fromBidItem(it))
	}
	sort.Slice(bids, func(a, b int) bool { return bids[a].ID < bids[b].ID })
	return bids, nil
}

func (r *BidDynamoRepository) Update(ctx context.Context, b entities.Bid) (entities.Bid, error) {
	expected := b.Version
	b.Version++
	if err := r.t.replace(ctx, toBidItem(b), expected); err != nil {
		return entities.Bid{}, err
	}
	return b, nil
}

// ResolveForJob writes the accepted bid and the declined siblings in one
// TransactWriteItems call, each put conditioned on the version that was read.
// Every candidate is read consistently by id: the ids come from bidIDs, which
// the job records under its lock, plus whatever the job index already lists
// for jobs written before bidIDs existed. Ids that no longer resolve to a bid
// of this job are skipped.
func (r *BidDynamoRepository) ResolveForJob(ctx context.Context, jobID, acceptedBidID string, bidIDs []string, at time.Time) ([]entities.Bid, error) {
	accepted, err := r.GetByID(ctx, acceptedBidID)
	if err != nil {
		return nil, err
	}
	if accepted.ID == "" || accepted.JobID != jobID || accepted.Status != entities.BidStatusPending {
		return nil, interfaces.ErrVersionConflict
	}

	candidates := make(map[string]struct{}, len(bidIDs))
	for _, id := range bidIDs {
		candidates[id] = struct{}{}
	}
	indexed, err := r.ListByJobID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	for _, b := range indexed {
		candidates[b.ID] = struct{}{}
	}
	delete(candidates, acceptedBidID)

	resolved := make(map[string]entities.Bid, len(candidates)+1)
	var puts []types.TransactWriteItem
	addPut := func(b entities.Bid, status entities.BidStatus) error {
		expected := b.Version
		b.Resolve(status, at)
		b.Version++
		put, err := r.t.versionedPut(toBidItem(b), expected)
		if err != nil {
			return err
		}
		puts = append(puts, types.TransactWriteItem{Put: put})
		resolved[b.ID] = b
		return nil
	}

	if err := addPut(accepted, entities.BidStatusAccepted); err != nil {
		return nil, err
	}
	for id := range candidates {
		b, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if b.ID == "" || b.JobID != jobID {
			continue
		}
		if b.Status != entities.BidStatusPending {
			resolved[b.ID] = b
			continue
		}
		if err := addPut(b, entities.BidStatusDeclined); err != nil {
			return nil, err
		}
	}

	if len(puts) > maxTransactItems {
		return nil, fmt.Errorf("resolve bids for job %s: %d writes exceed the transaction limit of %d", jobID, len(puts), maxTransactItems)
	}
	if _, err := r.t.ddb.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: puts}); err != nil {
		return nil, mapConditionErr(err)
	}

	out := make([]entities.Bid, 0, len(resolved))
	for _, b := range resolved {
		out = append(out, b)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out, nil
}

func (r *BidDynamoRepository) DeleteByJobID(ctx context.Context, jobID string) error {
	return r.t.deleteByIndex(ctx, bidsJobIDIndex, "job_id", jobID)
}

func toBidItem(b entities.Bid) bidItem {
	return bidItem{
		ID:                b.ID,
		JobID:             b.JobID,
		MechanicID:        b.MechanicID,
		CustomerID:        b.CustomerID,
		Price:             b.Price,
		Message:           b.Message,
		EstimatedDuration: b.EstimatedDuration,
		Status:            string(b.Status),
		Version:           b.Version,
		CreatedAt:         formatTime(b.CreatedAt),
		UpdatedAt:         formatTime(b.UpdatedAt),
		ResolvedAt:        formatTimePtr(b.ResolvedAt),
	}
}

func fromBidItem(it bidItem) entities.Bid {
	return entities.Bid{
		ID:                it.ID,
		JobID:             it.JobID,
		MechanicID:        it.MechanicID,
		CustomerID:        it.CustomerID,
		Price:             it.Price,
		Message:           it.Message,
		EstimatedDuration: it.EstimatedDuration,
		Status:            entities.BidStatus(it.Status),
		Version:           it.Version,
		CreatedAt:         parseTime(it.CreatedAt),
		UpdatedAt:         parseTime(it.UpdatedAt),
		ResolvedAt:        parseTimePtr(it.ResolvedAt),
	}
}
