package api

import (
	"net/http"

	"github.com/dvloznov/kitchen-ledger/internal/api/handlers"
	"github.com/dvloznov/kitchen-ledger/internal/api/middleware"
	"github.com/dvloznov/kitchen-ledger/internal/jobs"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// Deps are the collaborators of the HTTP surface.
type Deps struct {
	Publisher     jobs.Publisher
	JobStore      jobs.JobStore
	Receipts      handlers.ReceiptLookup
	Signer        handlers.URLSigner // optional
	WebhookSecret string
	APIToken      string // guards the dashboard endpoints; empty disables auth
	Logger        zerolog.Logger
}

// NewRouter wires the routes and the middleware chain.
func NewRouter(deps Deps) http.Handler {
	webhook := handlers.NewWebhookHandler(deps.Publisher, deps.WebhookSecret)
	receipts := handlers.NewReceiptsHandler(deps.Receipts, deps.Signer)
	jobsHandler := handlers.NewJobsHandler(deps.JobStore)

	r := mux.NewRouter()
	r.HandleFunc(middleware.HealthPath, handlers.Health).Methods(http.MethodGet)

	apiRouter := r.PathPrefix("/api").Subrouter()

	// Telegram authenticates with its own secret header.
	apiRouter.HandleFunc("/telegram", webhook.Receive).Methods(http.MethodPost)
	apiRouter.HandleFunc("/telegram", webhook.Status).Methods(http.MethodGet)

	protected := apiRouter.PathPrefix("").Subrouter()
	protected.Use(middleware.BearerAuth(deps.APIToken))
	protected.HandleFunc("/receipts/{kind:expense|income}/{id}", receipts.GetReceipt).Methods(http.MethodGet)
	protected.HandleFunc("/jobs", jobsHandler.ListJobs).Methods(http.MethodGet)
	protected.HandleFunc("/jobs/{id}", jobsHandler.GetJob).Methods(http.MethodGet)

	return middleware.Recovery(deps.Logger)(
		middleware.RequestID(
			middleware.Logger(deps.Logger)(
				middleware.CORS(r),
			),
		),
	)
}
