package notionsync

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"
)

// NotionClient talks to the Notion API with an integration token.
type NotionClient struct {
	client *notionapi.Client
}

// NewNotionClient creates a client for the integration token.
func NewNotionClient(token string) *NotionClient {
	return &NotionClient{client: notionapi.NewClient(notionapi.Token(token))}
}

// CreatePage adds one row to the ledger database.
func (n *NotionClient) CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error) {
	page, err := n.client.Page.Create(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(databaseID),
		},
		Properties: properties,
	})
	if err != nil {
		return nil, fmt.Errorf("NotionClient.CreatePage: database %s: %w", databaseID, err)
	}
	return page, nil
}

// QueryDatabase runs a filtered query against the ledger database.
func (n *NotionClient) QueryDatabase(ctx context.Context, databaseID string, query *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	resp, err := n.client.Database.Query(ctx, notionapi.DatabaseID(databaseID), query)
	if err != nil {
		return nil, fmt.Errorf("NotionClient.QueryDatabase: database %s: %w", databaseID, err)
	}
	return resp, nil
}

// RetrieveDatabase fetches the database schema.
func (n *NotionClient) RetrieveDatabase(ctx context.Context, databaseID string) (*notionapi.Database, error) {
	db, err := n.client.Database.Get(ctx, notionapi.DatabaseID(databaseID))
	if err != nil {
		return nil, fmt.Errorf("NotionClient.RetrieveDatabase: database %s: %w", databaseID, err)
	}
	return db, nil
}

var _ NotionService = (*NotionClient)(nil)
