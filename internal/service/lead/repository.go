package lead

import (
	"context"
	"sort"
	"sync"

	"chat-widget/internal/database"
	"chat-widget/internal/model"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type Repository interface {
	CreateLead(ctx context.Context, lead model.LeadItem) error
	// ListLeads returns leads oldest first. An empty widgetID lists all.
	ListLeads(ctx context.Context, widgetID string) ([]model.LeadItem, error)
	HasLeadForSession(ctx context.Context, sessionID string) (bool, error)
}

type MemoryRepository struct {
	mu    sync.RWMutex
	leads []model.LeadItem
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (m *MemoryRepository) CreateLead(_ context.Context, lead model.LeadItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leads = append(m.leads, lead)
	return nil
}

func (m *MemoryRepository) ListLeads(_ context.Context, widgetID string) ([]model.LeadItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	leads := make([]model.LeadItem, 0, len(m.leads))
	for _, l := range m.leads {
		if widgetID == "" || l.WidgetID == widgetID {
			leads = append(leads, l)
		}
	}
	return leads, nil
}

func (m *MemoryRepository) HasLeadForSession(_ context.Context, sessionID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, l := range m.leads {
		if l.SessionID == sessionID {
			return true, nil
		}
	}
	return false, nil
}

// DynamoClient is the subset of database.DynamoDBClient the repository uses.
type DynamoClient interface {
	PutItem(ctx context.Context, tableName string, item interface{}) error
	QueryAll(ctx context.Context, tableName string, indexName *string, keyCondExpr string, exprAttrValues map[string]types.AttributeValue, scanIndexForward *bool) ([]map[string]types.AttributeValue, error)
	ScanAll(ctx context.Context, tableName string) ([]map[string]types.AttributeValue, error)
}

var _ DynamoClient = (*database.DynamoDBClient)(nil)

type DynamoRepository struct {
	client DynamoClient
	table  string
}

func NewDynamoRepository(client DynamoClient, table string) Repository {
	if table == "" {
		table = model.LeadsTable
	}
	return &DynamoRepository{client: client, table: table}
}

func (r *DynamoRepository) CreateLead(ctx context.Context, lead model.LeadItem) error {
	return r.client.PutItem(ctx, r.table, lead)
}

func (r *DynamoRepository) ListLeads(ctx context.Context, widgetID string) ([]model.LeadItem, error) {
	var (
		items []map[string]types.AttributeValue
		err   error
	)
	if widgetID == "" {
		items, err = r.client.ScanAll(ctx, r.table)
	} else {
		items, err = r.client.QueryAll(
			ctx,
			r.table,
			aws.String(model.LeadsByWidgetIndex),
			"widgetId = :widgetId",
			map[string]types.AttributeValue{
				":widgetId": database.AttrString(widgetID),
			},
			nil,
		)
	}
	if err != nil {
		return nil, err
	}

	leads := make([]model.LeadItem, 0, len(items))
	for _, item := range items {
		var lead model.LeadItem
		if err := attributevalue.UnmarshalMap(item, &lead); err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}

	// Scans come back in hash order.
	sort.SliceStable(leads, func(i, j int) bool {
		return leads[i].CreatedAt < leads[j].CreatedAt
	})
	return leads, nil
}

func (r *DynamoRepository) HasLeadForSession(ctx context.Context, sessionID string) (bool, error) {
	items, err := r.client.QueryAll(
		ctx,
		r.table,
		aws.String(model.LeadsBySessionIndex),
		"sessionId = :sessionId",
		map[string]types.AttributeValue{
			":sessionId": database.AttrString(sessionID),
		},
		nil,
	)
	if err != nil {
		return false, err
	}
	return len(items) > 0, nil
}
