package pipeline

import (
	"errors"

	"github.com/dvloznov/kitchen-ledger/internal/domain"
)

// Session failure kinds. Steps wrap the underlying cause with %w.
var (
	ErrAuthorizationDenied   = errors.New("sender is not on the allow-list")
	ErrUnsupportedAttachment = errors.New("attachment is neither an image nor a PDF")
	ErrFetchFailed           = errors.New("could not download attachment")
	ErrExtractionFailed      = errors.New("vision model did not return a usable JSON object")
	ErrUnreadableReceipt     = errors.New("receipt has neither an amount nor a counterparty")
	ErrStorageFailure        = errors.New("could not store receipt artifact")
	ErrPersistenceFailure    = errors.New("could not persist transaction")
)

// Chat replies. They are short and in Turkish.
const (
	MsgAcknowledge  = "🔍 Dekont analiz ediliyor..."
	MsgUnauthorized = "⛔ Bu botu kullanma yetkiniz yok."
	MsgUnsupported  = "⚠️ Sadece görsel (JPEG, PNG) ve PDF dosyaları kabul edilmektedir."
	MsgUnreadable   = "⚠️ Dekont okunamadı veya geçersiz görüntü.\n\nLütfen daha net bir görsel gönderin."
	MsgExtraction   = "❌ Dekont analiz edilemedi. Lütfen daha net bir görsel gönderin."
	MsgFetch        = "❌ Dosya indirilemedi. Lütfen tekrar gönderin."
	MsgStorage      = "❌ Dekont dosyası kaydedilemedi. Lütfen tekrar deneyin."
	MsgGeneric      = "❌ Dekont işlenirken bir hata oluştu. Lütfen tekrar deneyin."
)

// UserMessage maps a session error to the reply the sender sees.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrAuthorizationDenied):
		return MsgUnauthorized
	case errors.Is(err, ErrUnsupportedAttachment):
		return MsgUnsupported
	case errors.Is(err, ErrUnreadableReceipt):
		return MsgUnreadable
	case errors.Is(err, ErrExtractionFailed):
		return MsgExtraction
	case errors.Is(err, ErrFetchFailed):
		return MsgFetch
	case errors.Is(err, ErrStorageFailure):
		return MsgStorage
	case errors.Is(err, domain.ErrNoSystemUser), errors.Is(err, ErrPersistenceFailure):
		return MsgGeneric
	default:
		return MsgGeneric
	}
}
