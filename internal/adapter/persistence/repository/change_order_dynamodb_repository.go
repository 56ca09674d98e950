package repository

import (
	"context"
	"sort"

	"mecanica_marketplace/internal/domain/entities"
	"mecanica_marketplace/internal/usecase/interfaces"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	defaultChangeOrdersTableName = "change_orders"
	changeOrdersJobIDIndex       = "job_id-index"
	changeOrdersStatusIndex      = "status-index"
)

type lineItem struct {
	Description string  `dynamodbav:"description"`
	Quantity    int     `dynamodbav:"quantity"`
	UnitPrice   float64 `dynamodbav:"unit_price"`
	Total       float64 `dynamodbav:"total"`
}

type changeOrderItem struct {
	ID               string     `dynamodbav:"id"`
	JobID            string     `dynamodbav:"job_id"`
	MechanicID       string     `dynamodbav:"mechanic_id"`
	CustomerID       string     `dynamodbav:"customer_id"`
	Title            string     `dynamodbav:"title"`
	Description      string     `dynamodbav:"description,omitempty"`
	LineItems        []lineItem `dynamodbav:"line_items"`
	TotalAmount      float64    `dynamodbav:"total_amount"`
	Status           string     `dynamodbav:"status"`
	ResolutionReason string     `dynamodbav:"resolution_reason,omitempty"`
	PausedJob        bool       `dynamodbav:"paused_job"`
	EscrowPaymentID  string     `dynamodbav:"escrow_payment_id,omitempty"`
	ExpiresAt        string     `dynamodbav:"expires_at"`
	Version          int64      `dynamodbav:"version"`
	CreatedAt        string     `dynamodbav:"created_at"`
	UpdatedAt        string     `dynamodbav:"updated_at"`
	ResolvedAt       string     `dynamodbav:"resolved_at,omitempty"`
	PaidAt           string     `dynamodbav:"paid_at,omitempty"`
}

// ChangeOrderDynamoRepository persists ChangeOrder entities in DynamoDB.
//
// Table requirements:
//   - PK: id (string)
//   - GSI: job_id-index (PK: job_id)
//   - GSI: status-index (PK: status)

type ChangeOrderDynamoRepository struct {
	t table
}

var _ interfaces.IChangeOrderRepository = (*ChangeOrderDynamoRepository)(nil)

func NewChangeOrderDynamoRepository(ddb DynamoDBAPI) *ChangeOrderDynamoRepository {
	return &ChangeOrderDynamoRepository{t: table{ddb: ddb, name: getenvDefault("CHANGE_ORDERS_TABLE", defaultChangeOrdersTableName)}}
}

func (r *ChangeOrderDynamoRepository) Create(ctx context.Context, c entities.ChangeOrder) (entities.ChangeOrder, error) {
	c.Version = 1
	if err := r.t.create(ctx, toChangeOrderItem(c)); err != nil {
		return entities.ChangeOrder{}, err
	}
	return c, nil
}

func (r *ChangeOrderDynamoRepository) GetByID(ctx context.Context, id string) (entities.ChangeOrder, error) {
	var it changeOrderItem
	found, err := r.t.get(ctx, id, &it)
	if err != nil || !found {
		return entities.ChangeOrder{}, err
	}
	return fromChangeOrderItem(it), nil
}

func (r *ChangeOrderDynamoRepository) ListByJobID(ctx context.Context, jobID string) ([]entities.ChangeOrder, error) {
	raws, err := r.t.queryIndex(ctx, changeOrdersJobIDIndex, "job_id", jobID)
	if err != nil {
		return nil, err
	}
	return decodeChangeOrders(raws)
}

func (r *ChangeOrderDynamoRepository) ListByStatus(ctx context.Context, status entities.ChangeOrderStatus) ([]entities.ChangeOrder, error) {
	raws, err := r.t.queryIndex(ctx, changeOrdersStatusIndex, "status", string(status))
	if err != nil {
		return nil, err
	}
	return decodeChangeOrders(raws)
}

func decodeChangeOrders(raws []map[string]types.AttributeValue) ([]entities.ChangeOrder, error) {
	out := make([]entities.ChangeOrder, 0, len(raws))
	for _, raw := range raws {
		var it changeOrderItem
		if err := attributevalue.UnmarshalMap(raw, &it); err != nil {
			return nil, err
		}
		out = append(out, fromChangeOrderItem(it))
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out, nil
}

func (r *ChangeOrderDynamoRepository) Update(ctx context.Context, c entities.ChangeOrder) (entities.ChangeOrder, error) {
	expected := c.Version
	c.Version++
	if err := r.t.replace(ctx, toChangeOrderItem(c), expected); err != nil {
		return entities.ChangeOrder{}, err
	}
	return c, nil
}

func (r *ChangeOrderDynamoRepository) DeleteByJobID(ctx context.Context, jobID string) error {
	return r.t.deleteByIndex(ctx, changeOrdersJobIDIndex, "job_id", jobID)
}

func toChangeOrderItem(c entities.ChangeOrder) changeOrderItem {
	it := changeOrderItem{
		ID:               c.ID,
		JobID:            c.JobID,
		MechanicID:       c.MechanicID,
		CustomerID:       c.CustomerID,
		Title:            c.Title,
		Description:      c.Description,
		LineItems:        make([]lineItem, 0, len(c.LineItems)),
		TotalAmount:      c.TotalAmount,
		Status:           string(c.Status),
		ResolutionReason: c.ResolutionReason,
		PausedJob:        c.PausedJob,
		EscrowPaymentID:  c.EscrowPaymentID,
		ExpiresAt:        formatTime(c.ExpiresAt),
		Version:          c.Version,
		CreatedAt:        formatTime(c.CreatedAt),
		UpdatedAt:        formatTime(c.UpdatedAt),
		ResolvedAt:       formatTimePtr(c.ResolvedAt),
		PaidAt:           formatTimePtr(c.PaidAt),
	}
	for _, li := range c.LineItems {
		it.LineItems = append(it.LineItems, lineItem{
			Description: li.Description,
			Quantity:    li.Quantity,
			UnitPrice:   li.UnitPrice,
			Total:       li.Total,
		})
	}
	return it
}

func fromChangeOrderItem(it changeOrderItem) entities.ChangeOrder {
	c := entities.ChangeOrder{
		ID:               it.ID,
		JobID:            it.JobID,
		MechanicID:       it.MechanicID,
		CustomerID:       it.CustomerID,
		Title:            it.Title,
		Description:      it.Description,
		LineItems:        make([]entities.ChangeOrderLineItem, 0, len(it.LineItems)),
		TotalAmount:      it.TotalAmount,
		Status:           entities.ChangeOrderStatus(it.Status),
		ResolutionReason: it.ResolutionReason,
		PausedJob:        it.PausedJob,
		EscrowPaymentID:  it.EscrowPaymentID,
		ExpiresAt:        parseTime(it.ExpiresAt),
		Version:          it.Version,
		CreatedAt:        parseTime(it.CreatedAt),
		UpdatedAt:        parseTime(it.UpdatedAt),
		ResolvedAt:       parseTimePtr(it.ResolvedAt),
		PaidAt:           parseTimePtr(it.PaidAt),
	}
	for _, li := range it.LineItems {
		c.LineItems = append(c.LineItems, entities.ChangeOrderLineItem{
			Description: li.Description,
			Quantity:    li.Quantity,
			UnitPrice:   li.UnitPrice,
			Total:       li.Total,
		})
	}
	return c
}
