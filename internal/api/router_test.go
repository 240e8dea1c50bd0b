package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dvloznov/kitchen-ledger/internal/api/handlers"
	"github.com/dvloznov/kitchen-ledger/internal/domain"
	"github.com/dvloznov/kitchen-ledger/internal/infra/postgres"
	"github.com/dvloznov/kitchen-ledger/internal/jobs"
	"github.com/dvloznov/kitchen-ledger/internal/jobs/inmemory"
	"github.com/rs/zerolog"
)

type MockPublisher struct {
	PublishFunc func(ctx context.Context, job *jobs.IngestUpdateJob) error
	published   []*jobs.IngestUpdateJob
}

func (m *MockPublisher) PublishIngestUpdate(ctx context.Context, job *jobs.IngestUpdateJob) error {
	m.published = append(m.published, job)
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, job)
	}
	return nil
}

func (m *MockPublisher) Close() error { return nil }

type MockReceipts struct {
	refs map[string]*domain.ReceiptRef
	err  error
}

func (m *MockReceipts) GetReceiptRef(ctx context.Context, kind domain.Direction, id string) (*domain.ReceiptRef, error) {
	if m.err != nil {
		return nil, m.err
	}
	ref, ok := m.refs[string(kind)+"/"+id]
	if !ok {
		return nil, fmt.Errorf("GetReceiptRef: %w", postgres.ErrNotFound)
	}
	return ref, nil
}

type MockSigner struct{}

func (MockSigner) StorageIDFromURL(rawURL string) (string, bool) {
	object, ok := strings.CutPrefix(rawURL, "https://storage.googleapis.com/receipts-bucket/")
	return object, ok
}

func (MockSigner) ViewURL(ctx context.Context, storageID string) (string, error) {
	return "https://signed.example/" + storageID + "?sig=1", nil
}

type testServer struct {
	handler   http.Handler
	publisher *MockPublisher
	receipts  *MockReceipts
	store     *inmemory.Store
}

func newTestServer(t *testing.T, deps Deps) *testServer {
	t.Helper()
	ts := &testServer{
		publisher: &MockPublisher{},
		receipts:  &MockReceipts{refs: map[string]*domain.ReceiptRef{}},
		store:     inmemory.NewStore(),
	}
	deps.Publisher = ts.publisher
	deps.Receipts = ts.receipts
	deps.JobStore = ts.store
	deps.Logger = zerolog.New(io.Discard)
	ts.handler = NewRouter(deps)
	return ts
}

func (ts *testServer) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

const sampleUpdate = `{"update_id": 10, "message": {"message_id": 1, "from": {"id": 111}, "chat": {"id": 42, "type": "private"}, "text": "/start"}}`

func TestWebhook_Accepts(t *testing.T) {
	ts := newTestServer(t, Deps{})

	rec := ts.do(http.MethodPost, "/api/telegram", sampleUpdate, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if strings.TrimSpace(rec.Body.String()) != `{"ok":true}` {
		t.Errorf("body = %s", rec.Body)
	}
	if len(ts.publisher.published) != 1 {
		t.Fatalf("published %d jobs, want 1", len(ts.publisher.published))
	}
	job := ts.publisher.published[0]
	if job.UpdateID != 10 || job.ChatID != 42 || job.SenderID != 111 || job.Source != "webhook" {
		t.Errorf("job = %+v", job)
	}
}

func TestWebhook_Secret(t *testing.T) {
	ts := newTestServer(t, Deps{WebhookSecret: "s3cret"})

	rec := ts.do(http.MethodPost, "/api/telegram", sampleUpdate, map[string]string{handlers.SecretHeader: "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong secret: status = %d, want 401", rec.Code)
	}

	rec = ts.do(http.MethodPost, "/api/telegram", sampleUpdate, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("missing secret: status = %d, want 401", rec.Code)
	}

	rec = ts.do(http.MethodPost, "/api/telegram", sampleUpdate, map[string]string{handlers.SecretHeader: "s3cret"})
	if rec.Code != http.StatusOK {
		t.Errorf("right secret: status = %d, want 200", rec.Code)
	}
	if len(ts.publisher.published) != 1 {
		t.Errorf("published %d jobs, want 1", len(ts.publisher.published))
	}
}

func TestWebhook_Errors(t *testing.T) {
	ts := newTestServer(t, Deps{})

	rec := ts.do(http.MethodPost, "/api/telegram", "{not json", nil)
	if rec.Code != http.StatusInternalServerError || !strings.Contains(rec.Body.String(), "Webhook error") {
		t.Errorf("bad body: %d %s", rec.Code, rec.Body)
	}

	ts.publisher.PublishFunc = func(ctx context.Context, job *jobs.IngestUpdateJob) error {
		return errors.New("queue is closed")
	}
	rec = ts.do(http.MethodPost, "/api/telegram", sampleUpdate, nil)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("publish failure: status = %d, want 500", rec.Code)
	}
}

func TestWebhook_Status(t *testing.T) {
	ts := newTestServer(t, Deps{WebhookSecret: "s3cret"})
	rec := ts.do(http.MethodGet, "/api/telegram", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestGetReceipt_RemoteRedirect(t *testing.T) {
	ts := newTestServer(t, Deps{Signer: MockSigner{}})
	ts.receipts.refs["expense/e1"] = &domain.ReceiptRef{Path: "https://storage.googleapis.com/receipts-bucket/kitchen-ledger/receipts/r.jpg", Type: "jpg"}
	ts.receipts.refs["income/i1"] = &domain.ReceiptRef{Path: "https://cdn.example/old.pdf", Type: "pdf"}

	rec := ts.do(http.MethodGet, "/api/receipts/expense/e1", "", nil)
	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != "https://signed.example/kitchen-ledger/receipts/r.jpg?sig=1" {
		t.Errorf("Location = %q, want signed URL", got)
	}

	rec = ts.do(http.MethodGet, "/api/receipts/income/i1", "", nil)
	if got := rec.Header().Get("Location"); rec.Code != http.StatusFound || got != "https://cdn.example/old.pdf" {
		t.Errorf("foreign URL: %d %q, want unsigned redirect", rec.Code, got)
	}
}

func TestGetReceipt_LocalStream(t *testing.T) {
	ts := newTestServer(t, Deps{})
	path := filepath.Join(t.TempDir(), "receipt_1.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatal(err)
	}
	ts.receipts.refs["income/i2"] = &domain.ReceiptRef{Path: path, Type: "pdf"}

	rec := ts.do(http.MethodGet, "/api/receipts/income/i2", "", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/pdf" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := rec.Header().Get("Content-Disposition"); got != `inline; filename="dekont.pdf"` {
		t.Errorf("Content-Disposition = %q", got)
	}
	if rec.Body.String() != "%PDF-1.4" {
		t.Errorf("body = %q", rec.Body)
	}
}

func TestGetReceipt_NotFound(t *testing.T) {
	ts := newTestServer(t, Deps{})
	ts.receipts.refs["expense/gone"] = &domain.ReceiptRef{Path: filepath.Join(t.TempDir(), "missing.jpg"), Type: "jpg"}

	for _, path := range []string{"/api/receipts/expense/unknown", "/api/receipts/expense/gone", "/api/receipts/transfer/x"} {
		if rec := ts.do(http.MethodGet, path, "", nil); rec.Code != http.StatusNotFound {
			t.Errorf("%s: status = %d, want 404", path, rec.Code)
		}
	}
}

func TestGetReceipt_LookupError(t *testing.T) {
	ts := newTestServer(t, Deps{})
	ts.receipts.err = errors.New("connection refused")

	if rec := ts.do(http.MethodGet, "/api/receipts/expense/e1", "", nil); rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestDashboardAuth(t *testing.T) {
	ts := newTestServer(t, Deps{APIToken: "tok"})

	if rec := ts.do(http.MethodGet, "/api/jobs", "", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", rec.Code)
	}
	if rec := ts.do(http.MethodGet, "/api/jobs", "", map[string]string{"Authorization": "Bearer nope"}); rec.Code != http.StatusUnauthorized {
		t.Errorf("bad token: status = %d, want 401", rec.Code)
	}
	if rec := ts.do(http.MethodGet, "/api/jobs", "", map[string]string{"Authorization": "Bearer tok"}); rec.Code != http.StatusOK {
		t.Errorf("good token: status = %d, want 200", rec.Code)
	}
	// The webhook and health check stay reachable without the dashboard token.
	if rec := ts.do(http.MethodPost, "/api/telegram", sampleUpdate, nil); rec.Code != http.StatusOK {
		t.Errorf("webhook: status = %d, want 200", rec.Code)
	}
	if rec := ts.do(http.MethodGet, "/health", "", nil); rec.Code != http.StatusOK {
		t.Errorf("health: status = %d, want 200", rec.Code)
	}
}

func TestJobsEndpoints(t *testing.T) {
	ts := newTestServer(t, Deps{})
	ctx := context.Background()
	now := time.Now()
	for i, chatID := range []int64{42, 42, 7} {
		job := &jobs.IngestUpdateJob{
			JobID:     fmt.Sprintf("job-%d", i),
			ChatID:    chatID,
			Status:    jobs.JobStatusCompleted,
			CreatedAt: now.Add(time.Duration(i) * time.Second),
		}
		if err := ts.store.SaveJob(ctx, job); err != nil {
			t.Fatal(err)
		}
	}

	rec := ts.do(http.MethodGet, "/api/jobs?chat_id=42", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var list struct {
		Jobs  []jobs.IngestUpdateJob `json:"jobs"`
		Count int                    `json:"count"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatal(err)
	}
	if list.Count != 2 || list.Jobs[0].JobID != "job-1" {
		t.Errorf("list = %+v, want 2 jobs newest first", list)
	}

	if rec := ts.do(http.MethodGet, "/api/jobs?chat_id=abc", "", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("bad chat_id: status = %d, want 400", rec.Code)
	}

	rec = ts.do(http.MethodGet, "/api/jobs/job-2", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"chat_id":7`) {
		t.Errorf("get job: %d %s", rec.Code, rec.Body)
	}

	if rec := ts.do(http.MethodGet, "/api/jobs/nope", "", nil); rec.Code != http.StatusNotFound {
		t.Errorf("missing job: status = %d, want 404", rec.Code)
	}
}

func TestRequestIDHeader(t *testing.T) {
	ts := newTestServer(t, Deps{})

	rec := ts.do(http.MethodGet, "/health", "", map[string]string{"X-Request-ID": "abc"})
	if got := rec.Header().Get("X-Request-ID"); got != "abc" {
		t.Errorf("X-Request-ID = %q, want echo", got)
	}
	rec = ts.do(http.MethodGet, "/health", "", nil)
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected generated request id")
	}
}

func TestAccessLogCountsStreamedBytes(t *testing.T) {
	var buf bytes.Buffer
	receipts := &MockReceipts{refs: map[string]*domain.ReceiptRef{}}
	handler := NewRouter(Deps{
		Publisher: &MockPublisher{},
		JobStore:  inmemory.NewStore(),
		Receipts:  receipts,
		Logger:    zerolog.New(&buf),
	})

	path := filepath.Join(t.TempDir(), "receipt_2.jpg")
	if err := os.WriteFile(path, []byte("jpegdata"), 0o644); err != nil {
		t.Fatal(err)
	}
	receipts.refs["expense/e9"] = &domain.ReceiptRef{Path: path, Type: "jpg"}

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/receipts/expense/e9", nil))

	type accessLog struct {
		Message string `json:"message"`
		Status  int    `json:"status"`
		Bytes   int64  `json:"bytes"`
		Level   string `json:"level"`
	}
	var entry accessLog
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var e accessLog
		if err := json.Unmarshal([]byte(line), &e); err == nil && e.Message == "HTTP request" {
			entry = e
			break
		}
	}
	if entry.Message != "HTTP request" {
		t.Fatalf("no access log entry in %q", buf.String())
	}
	if entry.Status != http.StatusOK || entry.Bytes != int64(len("jpegdata")) || entry.Level != "info" {
		t.Errorf("access log = %+v", entry)
	}
}
