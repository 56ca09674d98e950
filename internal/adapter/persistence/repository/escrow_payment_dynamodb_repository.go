package repository

import (
	"context"
	"encoding/json"
	"sort"

	"mecanica_marketplace/internal/domain/entities"
	"mecanica_marketplace/internal/usecase/interfaces"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
)

const (
	defaultEscrowPaymentsTableName   = "escrow_payments"
	escrowPaymentsChangeOrderIDIndex = "change_order_id-index"
	escrowPaymentsJobIDIndex         = "job_id-index"
)

type escrowPaymentItem struct {
	ID                string                 `dynamodbav:"id"`
	ChangeOrderID     string                 `dynamodbav:"change_order_id"`
	JobID             string                 `dynamodbav:"job_id"`
	CustomerID        string                 `dynamodbav:"customer_id"`
	MechanicID        string                 `dynamodbav:"mechanic_id"`
	Amount            float64                `dynamodbav:"amount"`
	Status            string                 `dynamodbav:"status"`
	ProviderPaymentID string                 `dynamodbav:"provider_payment_id,omitempty"`
	ProviderStatus    string                 `dynamodbav:"provider_status,omitempty"`
	ProviderPayload   map[string]interface{} `dynamodbav:"provider_payload,omitempty"`
	ProviderRaw       string                 `dynamodbav:"provider_payload_raw,omitempty"`
	Version           int64                  `dynamodbav:"version"`
	HeldAt            string                 `dynamodbav:"held_at"`
	ReleasedAt        string                 `dynamodbav:"released_at,omitempty"`
}

// EscrowPaymentDynamoRepository persists EscrowPayment entities in DynamoDB.
// The provider response is kept both as a document (for console queries) and
// raw (for an exact round trip).
//
// Table requirements:
//   - PK: id (string)
//   - GSI: change_order_id-index (PK: change_order_id)
//   - GSI: job_id-index (PK: job_id)

type EscrowPaymentDynamoRepository struct {
	t table
}

var _ interfaces.IEscrowPaymentRepository = (*EscrowPaymentDynamoRepository)(nil)

func NewEscrowPaymentDynamoRepository(ddb DynamoDBAPI) *EscrowPaymentDynamoRepository {
	return &EscrowPaymentDynamoRepository{t: table{ddb: ddb, name: getenvDefault("ESCROW_PAYMENTS_TABLE", defaultEscrowPaymentsTableName)}}
}

// Create fails with ErrVersionConflict when the id is taken. Escrow ids are
// derived from the change order, so this also rejects a second escrow for it.
func (r *EscrowPaymentDynamoRepository) Create(ctx context.Context, p entities.EscrowPayment) (entities.EscrowPayment, error) {
	p.Version = 1
	if err := r.t.create(ctx, toEscrowPaymentItem(p)); err != nil {
		return entities.EscrowPayment{}, err
	}
	return p, nil
}

func (r *EscrowPaymentDynamoRepository) GetByID(ctx context.Context, id string) (entities.EscrowPayment, error) {
	var it escrowPaymentItem
	found, err := r.t.get(ctx, id, &it)
	if err != nil || !found {
		return entities.EscrowPayment{}, err
	}
	return fromEscrowPaymentItem(it), nil
}

// GetByChangeOrderID reads the escrow under the id derived from the change
// order with a consistent read. Records written before ids were derived are
// found through the change order index.
func (r *EscrowPaymentDynamoRepository) GetByChangeOrderID(ctx context.Context, changeOrderID string) (entities.EscrowPayment, error) {
	p, err := r.GetByID(ctx, entities.EscrowPaymentIDFor(changeOrderID))
	if err != nil {
		return entities.EscrowPayment{}, err
	}
	if p.ID != "" && p.ChangeOrderID == changeOrderID {
		return p, nil
	}

	raws, err := r.t.queryIndex(ctx, escrowPaymentsChangeOrderIDIndex, "change_order_id", changeOrderID)
	if err != nil || len(raws) == 0 {
		return entities.EscrowPayment{}, err
	}
	items := make([]escrowPaymentItem, 0, len(raws))
	for _, raw := range raws {
		var it escrowPaymentItem
		if err := attributevalue.UnmarshalMap(raw, &it); err != nil {
			return entities.EscrowPayment{}, err
		}
		items = append(items, it)
	}
	sort.Slice(items, func(a, b int) bool { return items[a].ID < items[b].ID })
	return r.GetByID(ctx, items[0].ID)
}

func (r *EscrowPaymentDynamoRepository) Update(ctx context.Context, p entities.EscrowPayment) (entities.EscrowPayment, error) {
	expected := p.Version
	p.Version++
	if err := r.t.replace(ctx, toEscrowPaymentItem(p), expected); err != nil {
		return entities.EscrowPayment{}, err
	}
	return p, nil
}

func (r *EscrowPaymentDynamoRepository) DeleteByJobID(ctx context.Context, jobID string) error {
	return r.t.deleteByIndex(ctx, escrowPaymentsJobIDIndex, "job_id", jobID)
}

func toEscrowPaymentItem(p entities.EscrowPayment) escrowPaymentItem {
	it := escrowPaymentItem{
		ID:                p.ID,
		ChangeOrderID:     p.ChangeOrderID,
		JobID:             p.JobID,
		CustomerID:        p.CustomerID,
		MechanicID:        p.MechanicID,
		Amount:            p.Amount,
		Status:            string(p.Status),
		ProviderPaymentID: p.ProviderPaymentID,
		ProviderStatus:    p.ProviderStatus,
		ProviderRaw:       string(p.ProviderResponse),
		Version:           p.Version,
		HeldAt:            formatTime(p.HeldAt),
		ReleasedAt:        formatTimePtr(p.ReleasedAt),
	}
	if len(p.ProviderResponse) > 0 {
		var doc map[string]interface{}
		if err := json.Unmarshal(p.ProviderResponse, &doc); err == nil {
			it.ProviderPayload = doc
		}
	}
	return it
}

func fromEscrowPaymentItem(it escrowPaymentItem) entities.EscrowPayment {
	p := entities.EscrowPayment{
		ID:                it.ID,
		ChangeOrderID:     it.ChangeOrderID,
		JobID:             it.JobID,
		CustomerID:        it.CustomerID,
		MechanicID:        it.MechanicID,
		Amount:            it.Amount,
		Status:            entities.EscrowStatus(it.Status),
		ProviderPaymentID: it.ProviderPaymentID,
		ProviderStatus:    it.ProviderStatus,
		Version:           it.Version,
		HeldAt:            parseTime(it.HeldAt),
		ReleasedAt:        parseTimePtr(it.ReleasedAt),
	}
	if it.ProviderRaw != "" {
		p.ProviderResponse = json.RawMessage(it.ProviderRaw)
	}
	return p
}
