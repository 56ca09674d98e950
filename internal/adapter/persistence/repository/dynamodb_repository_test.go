package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"mecanica_marketplace/internal/domain/entities"
	"mecanica_marketplace/internal/usecase/interfaces"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// fakeDynamo records the requests it receives and answers from canned data.
type fakeDynamo struct {
	putErr      error
	puts        []*dynamodb.PutItemInput
	items       map[string]map[string]types.AttributeValue
	gets        []*dynamodb.GetItemInput
	queryItems  []map[string]types.AttributeValue
	queries     []*dynamodb.QueryInput
	transacts   []*dynamodb.TransactWriteItemsInput
	transactErr error
	deleted     []string
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.puts = append(f.puts, in)
	return &dynamodb.PutItemOutput{}, f.putErr
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.gets = append(f.gets, in)
	return &dynamodb.GetItemOutput{Item: f.items[in.Key["id"].(*types.AttributeValueMemberS).Value]}, nil
}

func (f *fakeDynamo) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.deleted = append(f.deleted, in.Key["id"].(*types.AttributeValueMemberS).Value)
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.queries = append(f.queries, in)
	return &dynamodb.QueryOutput{Items: f.queryItems}, nil
}

func (f *fakeDynamo) Scan(_ context.Context, _ *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	return &dynamodb.ScanOutput{Items: f.queryItems}, nil
}

func (f *fakeDynamo) TransactWriteItems(_ context.Context, in *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	f.transacts = append(f.transacts, in)
	return &dynamodb.TransactWriteItemsOutput{}, f.transactErr
}

func mustMarshal(t *testing.T, v any) map[string]types.AttributeValue {
	t.Helper()
	av, err := attributevalue.MarshalMap(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return av
}

func sampleJob() entities.Job {
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	started := created.Add(26 * time.Hour)
	j := entities.Job{
		ID:                  "job_1",
		CustomerID:          "cust-1",
		MechanicID:          "mech-1",
		Title:               "Brake pads",
		Description:         "Front pads squeak",
		ServiceType:         "brakes",
		Location:            "Sao Paulo",
		Status:              entities.JobStatusCompleted,
		AcceptedBidID:       "bid_1",
		Price:               120,
		EstimatedCost:       100,
		AdditionalWorkTotal: 50,
		Schedule:            &entities.JobSchedule{ScheduledDate: created.Add(24 * time.Hour), TimeSlot: "morning"},
		Completion:          &entities.JobCompletion{Notes: "done", Photos: []string{"a.jpg"}, FinalPrice: 170, CompletedAt: started.Add(time.Hour)},
		ChangeOrderIDs:      []string{"co_1"},
		BidIDs:              []string{"bid_1", "bid_2"},
		Version:             7,
		CreatedAt:           created,
		UpdatedAt:           started.Add(time.Hour),
		StartedAt:           &started,
	}
	j.AppendTimeline(entities.TimelineEntry{Status: entities.JobStatusPosted, Timestamp: created, Description: "Job posted", Actor: "cust-1"})
	j.AppendTimeline(entities.TimelineEntry{Status: entities.JobStatusCompleted, Timestamp: started.Add(time.Hour), Description: "Job completed", Actor: "mech-1"})
	return j
}

func TestJobItem_RoundTrip(t *testing.T) {
	j := sampleJob()
	av := mustMarshal(t, toJobItem(j))

	var it jobItem
	if err := attributevalue.UnmarshalMap(av, &it); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	got := fromJobItem(it)
	if !reflect.DeepEqual(got, j) {
		t.Fatalf("round trip mismatch:\nwant %+v\ngot  %+v", j, got)
	}
}

func TestJobItem_RoundTripWithoutPhotosOrBids(t *testing.T) {
	j := sampleJob()
	j.Completion.Photos = nil
	j.BidIDs = nil

	var it jobItem
	if err := attributevalue.UnmarshalMap(mustMarshal(t, toJobItem(j)), &it); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got := fromJobItem(it); !reflect.DeepEqual(got, j) {
		t.Fatalf("round trip mismatch:\nwant %+v\ngot  %+v", j, got)
	}
}

func TestJobItem_UnassignedOmitsMechanicKey(t *testing.T) {
	j := entities.Job{ID: "job_2", CustomerID: "cust-1", Status: entities.JobStatusPosted, ChangeOrderIDs: []string{}}
	av := mustMarshal(t, toJobItem(j))
	if _, ok := av["mechanic_id"]; ok {
		t.Fatalf("expected mechanic_id to be absent for an unassigned job")
	}
}

func TestChangeOrderAndEscrowItems_RoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	co := entities.ChangeOrder{
		ID: "co_1", JobID: "job_1", MechanicID: "mech-1", CustomerID: "cust-1", Title: "Rotors",
		LineItems:   []entities.ChangeOrderLineItem{{Description: "rotor", Quantity: 2, UnitPrice: 25, Total: 50}},
		TotalAmount: 50, Status: entities.ChangeOrderStatusEscrow, PausedJob: true, EscrowPaymentID: "esc_1",
		ExpiresAt: now.Add(48 * time.Hour), Version: 3, CreatedAt: now, UpdatedAt: now, ResolvedAt: &now,
	}
	var coIt changeOrderItem
	if err := attributevalue.UnmarshalMap(mustMarshal(t, toChangeOrderItem(co)), &coIt); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got := fromChangeOrderItem(coIt); !reflect.DeepEqual(got, co) {
		t.Fatalf("change order mismatch:\nwant %+v\ngot  %+v", co, got)
	}

	p := entities.EscrowPayment{
		ID: "esc_1", ChangeOrderID: "co_1", JobID: "job_1", CustomerID: "cust-1", MechanicID: "mech-1",
		Amount: 50, Status: entities.EscrowStatusHeld, ProviderPaymentID: "123", ProviderStatus: "authorized",
		ProviderResponse: json.RawMessage(`{"id":"123","status":"authorized"}`), Version: 1, HeldAt: now,
	}
	var pIt escrowPaymentItem
	if err := attributevalue.UnmarshalMap(mustMarshal(t, toEscrowPaymentItem(p)), &pIt); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if pIt.ProviderPayload["status"] != "authorized" {
		t.Fatalf("expected provider payload document, got %v", pIt.ProviderPayload)
	}
	if got := fromEscrowPaymentItem(pIt); !reflect.DeepEqual(got, p) {
		t.Fatalf("escrow mismatch:\nwant %+v\ngot  %+v", p, got)
	}
}

func TestJobDynamoRepository_Create(t *testing.T) {
	t.Run("sets version and guards id", func(t *testing.T) {
		f := &fakeDynamo{}
		repo := NewJobDynamoRepository(f)
		got, err := repo.Create(context.Background(), entities.Job{ID: "job_1", CustomerID: "c", Status: entities.JobStatusPosted})
		if err != nil {
			t.Fatalf("expected nil error, got %v", err)
		}
		if got.Version != 1 {
			t.Fatalf("expected version 1, got %d", got.Version)
		}
		if aws.ToString(f.puts[0].ConditionExpression) != "attribute_not_exists(#id)" {
			t.Fatalf("unexpected condition %q", aws.ToString(f.puts[0].ConditionExpression))
		}
	})

	t.Run("conditional failure maps to version conflict", func(t *testing.T) {
		f := &fakeDynamo{putErr: &types.ConditionalCheckFailedException{Message: aws.String("exists")}}
		_, err := NewJobDynamoRepository(f).Create(context.Background(), entities.Job{ID: "job_1"})
		if !errors.Is(err, interfaces.ErrVersionConflict) {
			t.Fatalf("expected ErrVersionConflict, got %v", err)
		}
	})
}

func TestJobDynamoRepository_UpdateIsConditionalOnVersion(t *testing.T) {
	f := &fakeDynamo{}
	repo := NewJobDynamoRepository(f)
	j := sampleJob()

	got, err := repo.Update(context.Background(), j)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if got.Version != 8 {
		t.Fatalf("expected version 8, got %d", got.Version)
	}
	in := f.puts[0]
	expected := in.ExpressionAttributeValues[":expected"].(*types.AttributeValueMemberN).Value
	if expected != "7" {
		t.Fatalf("expected condition on version 7, got %s", expected)
	}
	stored := in.Item["version"].(*types.AttributeValueMemberN).Value
	if stored != "8" {
		t.Fatalf("expected stored version 8, got %s", stored)
	}
}

func TestJobDynamoRepository_ListUsesIndexes(t *testing.T) {
	open := toJobItem(entities.Job{ID: "job_1", CustomerID: "c1", Status: entities.JobStatusPosted})
	f := &fakeDynamo{queryItems: []map[string]types.AttributeValue{mustMarshal(t, open)}}
	repo := NewJobDynamoRepository(f)

	jobs, err := repo.List(context.Background(), entities.JobFilter{Statuses: []entities.JobStatus{entities.JobStatusPosted, entities.JobStatusBidding}})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(f.queries) != 2 || aws.ToString(f.queries[0].IndexName) != jobsStatusIndex {
		t.Fatalf("expected two status-index queries, got %d", len(f.queries))
	}
	// Both canned responses return the same posted job; the bidding query is a
	// duplicate that the status filter keeps, so two entries come back.
	if len(jobs) != 2 || jobs[0].ID != "job_1" {
		t.Fatalf("unexpected jobs %+v", jobs)
	}
}

func TestBidDynamoRepository_ResolveForJob(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	accepted := entities.Bid{ID: "bid_2", JobID: "job_1", MechanicID: "m2", Status: entities.BidStatusPending, Version: 1}
	siblings := []entities.Bid{
		{ID: "bid_1", JobID: "job_1", MechanicID: "m1", Status: entities.BidStatusPending, Version: 2},
		accepted,
		{ID: "bid_3", JobID: "job_1", MechanicID: "m3", Status: entities.BidStatusRejected, Version: 2},
	}
	bidIDs := []string{"bid_1", "bid_2", "bid_3"}
	newFake := func() *fakeDynamo {
		f := &fakeDynamo{items: map[string]map[string]types.AttributeValue{}}
		for _, b := range siblings {
			f.items[b.ID] = mustMarshal(t, toBidItem(b))
			f.queryItems = append(f.queryItems, mustMarshal(t, toBidItem(b)))
		}
		return f
	}

	t.Run("one transaction with conditioned puts", func(t *testing.T) {
		f := newFake()
		got, err := NewBidDynamoRepository(f).ResolveForJob(context.Background(), "job_1", "bid_2", bidIDs, now)
		if err != nil {
			t.Fatalf("expected nil error, got %v", err)
		}
		if len(f.transacts) != 1 || len(f.transacts[0].TransactItems) != 2 {
			t.Fatalf("expected 1 transaction with 2 puts, got %+v", f.transacts)
		}
		want := map[string]entities.BidStatus{"bid_1": entities.BidStatusDeclined, "bid_2": entities.BidStatusAccepted, "bid_3": entities.BidStatusRejected}
		if len(got) != 3 {
			t.Fatalf("expected 3 bids, got %d", len(got))
		}
		for _, b := range got {
			if b.Status != want[b.ID] {
				t.Fatalf("bid %s: expected %s, got %s", b.ID, want[b.ID], b.Status)
			}
		}
		for _, in := range f.gets {
			if !aws.ToBool(in.ConsistentRead) {
				t.Fatalf("expected consistent reads, got %+v", in)
			}
		}
	})

	t.Run("bid missing from the lagging index is still declined", func(t *testing.T) {
		f := newFake()
		// The index has only caught up with the accepted bid.
		f.queryItems = []map[string]types.AttributeValue{mustMarshal(t, toBidItem(accepted))}

		got, err := NewBidDynamoRepository(f).ResolveForJob(context.Background(), "job_1", "bid_2", bidIDs, now)
		if err != nil {
			t.Fatalf("expected nil error, got %v", err)
		}
		if len(f.transacts) != 1 || len(f.transacts[0].TransactItems) != 2 {
			t.Fatalf("expected 1 transaction with 2 puts, got %+v", f.transacts)
		}
		var declined bool
		for _, b := range got {
			if b.ID == "bid_1" {
				declined = b.Status == entities.BidStatusDeclined
			}
		}
		if !declined {
			t.Fatalf("expected bid_1 to be declined, got %+v", got)
		}
	})

	t.Run("unknown ids and foreign bids are skipped", func(t *testing.T) {
		f := newFake()
		f.items["bid_9"] = mustMarshal(t, toBidItem(entities.Bid{ID: "bid_9", JobID: "job_2", Status: entities.BidStatusPending, Version: 1}))

		got, err := NewBidDynamoRepository(f).ResolveForJob(context.Background(), "job_1", "bid_2", append(bidIDs, "bid_8", "bid_9"), now)
		if err != nil {
			t.Fatalf("expected nil error, got %v", err)
		}
		if len(got) != 3 || len(f.transacts[0].TransactItems) != 2 {
			t.Fatalf("expected only job_1 bids to be resolved, got %+v", got)
		}
	})

	t.Run("writes beyond the transaction limit fail without writing", func(t *testing.T) {
		f := newFake()
		ids := []string{"bid_2"}
		for i := 0; i < maxTransactItems; i++ {
			id := fmt.Sprintf("bid_x%03d", i)
			f.items[id] = mustMarshal(t, toBidItem(entities.Bid{ID: id, JobID: "job_1", Status: entities.BidStatusPending, Version: 1}))
			ids = append(ids, id)
		}
		_, err := NewBidDynamoRepository(f).ResolveForJob(context.Background(), "job_1", "bid_2", ids, now)
		if err == nil {
			t.Fatalf("expected an error")
		}
		if len(f.transacts) != 0 {
			t.Fatalf("expected no transaction, got %d", len(f.transacts))
		}
	})

	t.Run("cancelled transaction maps to version conflict", func(t *testing.T) {
		f := newFake()
		f.transactErr = &types.TransactionCanceledException{Message: aws.String("ConditionalCheckFailed")}
		_, err := NewBidDynamoRepository(f).ResolveForJob(context.Background(), "job_1", "bid_2", bidIDs, now)
		if !errors.Is(err, interfaces.ErrVersionConflict) {
			t.Fatalf("expected ErrVersionConflict, got %v", err)
		}
	})

	t.Run("already resolved bid conflicts before writing", func(t *testing.T) {
		f := newFake()
		resolved := accepted
		resolved.Status = entities.BidStatusDeclined
		f.items["bid_2"] = mustMarshal(t, toBidItem(resolved))
		_, err := NewBidDynamoRepository(f).ResolveForJob(context.Background(), "job_1", "bid_2", bidIDs, now)
		if !errors.Is(err, interfaces.ErrVersionConflict) {
			t.Fatalf("expected ErrVersionConflict, got %v", err)
		}
		if len(f.transacts) != 0 {
			t.Fatalf("expected no transaction, got %d", len(f.transacts))
		}
	})
}

func TestEscrowPaymentDynamoRepository_OneEscrowPerChangeOrder(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	held := func(providerID string) entities.EscrowPayment {
		return entities.EscrowPayment{
			ID: entities.EscrowPaymentIDFor("co_1"), ChangeOrderID: "co_1", JobID: "job_1",
			Amount: 50, Status: entities.EscrowStatusHeld, ProviderPaymentID: providerID, HeldAt: now,
		}
	}

	t.Run("second create for the same change order conflicts", func(t *testing.T) {
		f := &fakeDynamo{}
		repo := NewEscrowPaymentDynamoRepository(f)
		if _, err := repo.Create(ctx, held("mp-1")); err != nil {
			t.Fatalf("expected nil error, got %v", err)
		}
		f.putErr = &types.ConditionalCheckFailedException{Message: aws.String("exists")}
		if _, err := repo.Create(ctx, held("mp-2")); !errors.Is(err, interfaces.ErrVersionConflict) {
			t.Fatalf("expected ErrVersionConflict, got %v", err)
		}
		first := f.puts[0].Item["id"].(*types.AttributeValueMemberS).Value
		second := f.puts[1].Item["id"].(*types.AttributeValueMemberS).Value
		if first != "esc_1" || second != first {
			t.Fatalf("expected both writes on esc_1, got %s and %s", first, second)
		}
	})

	t.Run("lookup is a consistent read of the derived id", func(t *testing.T) {
		f := &fakeDynamo{items: map[string]map[string]types.AttributeValue{
			"esc_1": mustMarshal(t, toEscrowPaymentItem(held("mp-1"))),
		}}
		got, err := NewEscrowPaymentDynamoRepository(f).GetByChangeOrderID(ctx, "co_1")
		if err != nil {
			t.Fatalf("expected nil error, got %v", err)
		}
		if got.ProviderPaymentID != "mp-1" {
			t.Fatalf("unexpected escrow %+v", got)
		}
		if len(f.queries) != 0 {
			t.Fatalf("expected no index query, got %d", len(f.queries))
		}
		if !aws.ToBool(f.gets[0].ConsistentRead) {
			t.Fatalf("expected a consistent read")
		}
	})

	t.Run("records with random ids are found through the index", func(t *testing.T) {
		legacy := held("mp-0")
		legacy.ID = "esc_legacy"
		item := mustMarshal(t, toEscrowPaymentItem(legacy))
		f := &fakeDynamo{
			items:      map[string]map[string]types.AttributeValue{"esc_legacy": item},
			queryItems: []map[string]types.AttributeValue{item},
		}
		got, err := NewEscrowPaymentDynamoRepository(f).GetByChangeOrderID(ctx, "co_1")
		if err != nil {
			t.Fatalf("expected nil error, got %v", err)
		}
		if got.ID != "esc_legacy" {
			t.Fatalf("expected esc_legacy, got %+v", got)
		}
	})
}

func TestChangeOrderDynamoRepository_DeleteByJobID(t *testing.T) {
	f := &fakeDynamo{queryItems: []map[string]types.AttributeValue{
		mustMarshal(t, toChangeOrderItem(entities.ChangeOrder{ID: "co_1", JobID: "job_1"})),
		mustMarshal(t, toChangeOrderItem(entities.ChangeOrder{ID: "co_2", JobID: "job_1"})),
	}}
	if err := NewChangeOrderDynamoRepository(f).DeleteByJobID(context.Background(), "job_1"); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !reflect.DeepEqual(f.deleted, []string{"co_1", "co_2"}) {
		t.Fatalf("unexpected deletes %v", f.deleted)
	}
}

func TestCreateTableInput(t *testing.T) {
	in := createTableInput(tableSchema{name: "jobs", indexes: []string{"customer_id", "status"}})
	if len(in.GlobalSecondaryIndexes) != 2 || aws.ToString(in.GlobalSecondaryIndexes[1].IndexName) != "status-index" {
		t.Fatalf("unexpected indexes %+v", in.GlobalSecondaryIndexes)
	}
	if len(in.AttributeDefinitions) != 3 {
		t.Fatalf("expected 3 attribute definitions, got %d", len(in.AttributeDefinitions))
	}
}
