package pipeline

import (
	"time"

	"github.com/dvloznov/kitchen-ledger/internal/domain"
)

// Default values for receipt ingestion.
// These can be overridden via configuration.
const (
	// DefaultModelName is the default Gemini model used for receipt extraction.
	DefaultModelName = "gemini-2.5-flash"

	// DefaultCurrency is assumed when the receipt does not show a currency.
	DefaultCurrency = "TRY"

	// UnknownParty fills the primary counterparty column when the model could not read it.
	UnknownParty = domain.UnknownParty

	// DefaultSessionTimeout bounds one ingestion session end to end.
	DefaultSessionTimeout = 3 * time.Minute
)
