package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/dvloznov/kitchen-ledger/internal/api/middleware"
	"github.com/dvloznov/kitchen-ledger/internal/blobstore"
	"github.com/dvloznov/kitchen-ledger/internal/domain"
	"github.com/dvloznov/kitchen-ledger/internal/infra/postgres"
	"github.com/dvloznov/kitchen-ledger/internal/logger"
	"github.com/gorilla/mux"
)

// ReceiptLookup finds the stored receipt of a transaction.
type ReceiptLookup interface {
	GetReceiptRef(ctx context.Context, kind domain.Direction, id string) (*domain.ReceiptRef, error)
}

// URLSigner turns a stored URL into a short-lived view URL. Implemented by
// *blobstore.GCSStore.
type URLSigner interface {
	StorageIDFromURL(rawURL string) (string, bool)
	ViewURL(ctx context.Context, storageID string) (string, error)
}

// ReceiptsHandler serves receipt artifacts of expenses and incomes.
type ReceiptsHandler struct {
	lookup ReceiptLookup
	signer URLSigner // nil when receipts are stored locally
}

// NewReceiptsHandler creates a receipts handler. signer may be nil.
func NewReceiptsHandler(lookup ReceiptLookup, signer URLSigner) *ReceiptsHandler {
	return &ReceiptsHandler{lookup: lookup, signer: signer}
}

// GetReceipt handles GET /api/receipts/{kind}/{id}. Remote receipts are
// redirected to, legacy local ones are streamed.
func (h *ReceiptsHandler) GetReceipt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)
	vars := mux.Vars(r)
	kind, id := domain.Direction(vars["kind"]), vars["id"]

	ref, err := h.lookup.GetReceiptRef(ctx, kind, id)
	if errors.Is(err, postgres.ErrNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "Dekont bulunamadı")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("kind", string(kind)).Str("id", id).Msg("Failed to look up receipt")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to load receipt")
		return
	}

	if domain.IsRemote(ref.Path) {
		target := ref.Path
		if h.signer != nil {
			if object, ok := h.signer.StorageIDFromURL(ref.Path); ok {
				signed, err := h.signer.ViewURL(ctx, object)
				if err != nil {
					log.Warn().Err(err).Str("object", object).Msg("Failed to sign receipt URL, redirecting to stored URL")
				} else {
					target = signed
				}
			}
		}
		http.Redirect(w, r, target, http.StatusFound)
		return
	}

	h.streamLocal(w, r, ref)
}

func (h *ReceiptsHandler) streamLocal(w http.ResponseWriter, r *http.Request, ref *domain.ReceiptRef) {
	log := logger.FromContext(r.Context())

	f, err := os.Open(ref.Path)
	if errors.Is(err, os.ErrNotExist) {
		middleware.WriteError(w, http.StatusNotFound, "Dekont dosyası bulunamadı")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("path", ref.Path).Msg("Failed to open receipt file")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to load receipt")
		return
	}
	defer f.Close()

	ext := strings.ToLower(ref.Type)
	if ext == "" {
		ext = "bin"
	}
	w.Header().Set("Content-Type", blobstore.ContentTypeForExt(ext))
	w.Header().Set("Content-Disposition", `inline; filename="dekont.`+ext+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, f); err != nil {
		log.Warn().Err(err).Msg("Failed to stream receipt")
	}
}
