package notionsync

import (
	"context"
	"fmt"
	"strings"

	"github.com/dvloznov/kitchen-ledger/internal/domain"
	"github.com/dvloznov/kitchen-ledger/internal/logger"
	"github.com/jomei/notionapi"
)

// Mirror copies ingested transactions into a Notion database, one page per
// transaction keyed by the "Transaction ID" property.
type Mirror struct {
	service    NotionService
	databaseID string
}

// NewMirror creates a mirror writing to the given database.
func NewMirror(service NotionService, databaseID string) *Mirror {
	return &Mirror{service: service, databaseID: databaseID}
}

// MirrorTransaction creates the page for tx unless one already exists.
func (m *Mirror) MirrorTransaction(ctx context.Context, tx domain.Transaction) error {
	log := logger.FromContext(ctx)
	id := tx.Base().ID

	exists, err := m.pageExists(ctx, id)
	if err != nil {
		return fmt.Errorf("MirrorTransaction: checking existing page: %w", err)
	}
	if exists {
		log.Debug().Str("transaction_id", id).Msg("Notion page already exists")
		return nil
	}

	page, err := m.service.CreatePage(ctx, m.databaseID, TransactionToNotionProperties(tx))
	if err != nil {
		return fmt.Errorf("MirrorTransaction: creating page: %w", err)
	}

	log.Info().
		Str("transaction_id", id).
		Str("page_id", string(page.ID)).
		Msg("Created Notion page")
	return nil
}

// requiredProperties are the columns MirrorTransaction writes unconditionally
// or uses for lookups.
var requiredProperties = []string{PropParty, PropTransactionID, PropAmount, PropDirection, PropCategory}

// CheckSchema verifies the database has the properties pages are written with.
func (m *Mirror) CheckSchema(ctx context.Context) error {
	db, err := m.service.RetrieveDatabase(ctx, m.databaseID)
	if err != nil {
		return fmt.Errorf("CheckSchema: %w", err)
	}

	var missing []string
	for _, name := range requiredProperties {
		if _, ok := db.Properties[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("CheckSchema: database %s is missing properties: %s", m.databaseID, strings.Join(missing, ", "))
	}
	return nil
}

func (m *Mirror) pageExists(ctx context.Context, transactionID string) (bool, error) {
	resp, err := m.service.QueryDatabase(ctx, m.databaseID, &notionapi.DatabaseQueryRequest{
		Filter: notionapi.PropertyFilter{
			Property: PropTransactionID,
			RichText: &notionapi.TextFilterCondition{Equals: transactionID},
		},
		PageSize: 1,
	})
	if err != nil {
		return false, err
	}
	for _, page := range resp.Results {
		if extractTransactionID(page) == transactionID {
			return true, nil
		}
	}
	return false, nil
}

// extractTransactionID extracts the transaction ID from a Notion page's properties.
// Returns empty string if not found.
func extractTransactionID(page notionapi.Page) string {
	if prop, ok := page.Properties[PropTransactionID]; ok {
		if richText, ok := prop.(*notionapi.RichTextProperty); ok {
			if len(richText.RichText) > 0 {
				return richText.RichText[0].PlainText
			}
		}
	}
	return ""
}
