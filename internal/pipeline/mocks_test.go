package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/dvloznov/kitchen-ledger/internal/blobstore"
	"github.com/dvloznov/kitchen-ledger/internal/domain"
	infra "github.com/dvloznov/kitchen-ledger/internal/infra/bigquery"
)

// MockExtractor is a mock implementation of VisionExtractor.
type MockExtractor struct {
	ExtractFunc func(ctx context.Context, data []byte, mimeType string) (*Extraction, error)
}

func (m *MockExtractor) Extract(ctx context.Context, data []byte, mimeType string) (*Extraction, error) {
	return m.ExtractFunc(ctx, data, mimeType)
}

// modelAnswer returns an extractor that behaves like the model answering with text.
func modelAnswer(text string) *MockExtractor {
	return &MockExtractor{
		ExtractFunc: func(ctx context.Context, data []byte, mimeType string) (*Extraction, error) {
			r, err := decodeReceipt(text)
			if err != nil {
				return nil, err
			}
			return &Extraction{Receipt: r, RawText: text, ModelName: "test-model"}, nil
		},
	}
}

type sentMessage struct {
	ChatID int64
	Text   string
}

// MockTransport records replies and serves downloads.
type MockTransport struct {
	mu   sync.Mutex
	sent []sentMessage

	downloads    int
	DownloadFunc func(ctx context.Context, fileID string) ([]byte, error)
	SendTextFunc func(ctx context.Context, chatID int64, text string) error
}

func (m *MockTransport) SendText(ctx context.Context, chatID int64, text string) error {
	m.mu.Lock()
	m.sent = append(m.sent, sentMessage{ChatID: chatID, Text: text})
	m.mu.Unlock()
	if m.SendTextFunc != nil {
		return m.SendTextFunc(ctx, chatID, text)
	}
	return nil
}

func (m *MockTransport) DownloadFile(ctx context.Context, fileID string) ([]byte, error) {
	m.mu.Lock()
	m.downloads++
	m.mu.Unlock()
	if m.DownloadFunc != nil {
		return m.DownloadFunc(ctx, fileID)
	}
	return []byte("receipt-bytes-" + fileID), nil
}

func (m *MockTransport) texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.sent))
	for i, s := range m.sent {
		out[i] = s.Text
	}
	return out
}

// MockStore keeps stored objects in memory.
type MockStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	names   []string

	StoreErr error
}

func (m *MockStore) Store(ctx context.Context, data []byte, logicalName, contentType string) (*blobstore.StoredObject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.StoreErr != nil {
		return nil, m.StoreErr
	}
	if m.objects == nil {
		m.objects = make(map[string][]byte)
	}
	id := blobstore.Folder + "/" + logicalName
	m.objects[id] = data
	m.names = append(m.names, logicalName)
	return &blobstore.StoredObject{
		URL:       "https://storage.googleapis.com/test-bucket/" + id,
		StorageID: id,
	}, nil
}

func (m *MockStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.names)
}

// MockGateway is an in-memory TransactionGateway.
type MockGateway struct {
	mu       sync.Mutex
	saved    []domain.Transaction
	resolves int

	Owner      *domain.User
	ResolveErr error
	SaveErr    error
}

func (m *MockGateway) ResolveOwner(ctx context.Context, chatIdentity string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolves++
	if m.ResolveErr != nil {
		return nil, m.ResolveErr
	}
	if m.Owner != nil {
		return m.Owner, nil
	}
	return &domain.User{ID: "u-admin", Role: domain.RoleAdmin}, nil
}

func (m *MockGateway) Save(ctx context.Context, route domain.Route, receipt domain.ReceiptRef, ownerID, rawResponse string) (domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return nil, m.SaveErr
	}
	rec := domain.Record{
		ID:                    fmt.Sprintf("tx-%d", len(m.saved)+1),
		NormalizedTransaction: route.Record,
		ReceiptPath:           receipt.Path,
		ReceiptType:           receipt.Type,
		AIRawResponse:         rawResponse,
		UserID:                ownerID,
	}
	var tx domain.Transaction = &domain.Expense{Record: rec}
	if route.Target == domain.DirectionIncome {
		tx = &domain.Income{Record: rec}
	}
	m.saved = append(m.saved, tx)
	return tx, nil
}

func (m *MockGateway) transactions() []domain.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Transaction(nil), m.saved...)
}

func (m *MockGateway) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resolves + len(m.saved)
}

// MockArchive records archived model outputs.
type MockArchive struct {
	mu   sync.Mutex
	rows []*infra.ModelOutputRow
	Err  error
}

func (m *MockArchive) InsertModelOutput(ctx context.Context, row *infra.ModelOutputRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, row)
	return m.Err
}

// MockMirror records mirrored transactions.
type MockMirror struct {
	MirrorFunc func(ctx context.Context, tx domain.Transaction) error
}

func (m *MockMirror) MirrorTransaction(ctx context.Context, tx domain.Transaction) error {
	return m.MirrorFunc(ctx, tx)
}
