package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/kitchen-ledger/internal/domain"
	"github.com/dvloznov/kitchen-ledger/internal/jobs"
	"github.com/dvloznov/kitchen-ledger/internal/logger"
	"github.com/dvloznov/kitchen-ledger/internal/pipeline"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// RecentLimit is how many expenses /son lists.
const RecentLimit = 5

const (
	msgWelcome = "👋 Merhaba! Gider Tablosu botuna hoş geldiniz.\n\n" +
		"📸 Bana bir dekont/makbuz görseli veya PDF gönderin, otomatik olarak analiz edip sisteme ekleyeyim.\n\n" +
		"📋 Komutlar:\n" +
		"/start - Başlangıç\n" +
		"/help - Yardım\n" +
		"/stats - Bu ayki özet\n" +
		"/son - Son 5 işlem\n" +
		"/id - Telegram ID'nizi öğrenin"

	msgHelp = "📖 Kullanım Kılavuzu\n\n" +
		"1️⃣ Dekont görselini veya PDF'i bu bota gönderin\n" +
		"2️⃣ Bot görseli AI ile analiz eder\n" +
		"3️⃣ Tüm bilgiler (tutar, alıcı, banka, şube, komisyon vb.) çıkarılır\n" +
		"4️⃣ Size detaylı onay mesajı gönderilir\n\n" +
		"💡 İpucu: Görsel net ve okunaklı olmalı."

	msgHint = "📸 Lütfen bir dekont/makbuz görseli veya PDF gönderin.\n\n" +
		"Yardım için /help yazın."

	msgNoExpenses = "📭 Henüz kayıtlı gider yok."
	msgRecentErr  = "❌ İşlemler alınırken bir hata oluştu."
	msgStatsErr   = "❌ İstatistikler alınırken bir hata oluştu."
)

var turkishMonths = [...]string{
	"Ocak", "Şubat", "Mart", "Nisan", "Mayıs", "Haziran",
	"Temmuz", "Ağustos", "Eylül", "Ekim", "Kasım", "Aralık",
}

// Ingester runs one receipt session.
type Ingester interface {
	Ingest(ctx context.Context, sub pipeline.Submission) (*pipeline.Result, error)
}

// Sender delivers replies.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string) error
}

// LedgerReader answers the read-only bot commands.
type LedgerReader interface {
	ListRecentExpenses(ctx context.Context, limit int) ([]*domain.Expense, error)
	MonthlyExpenseStats(ctx context.Context, now time.Time) (*domain.ExpenseStats, error)
}

// Dispatcher routes one chat update: commands are answered directly, photo and
// document messages become ingestion sessions.
type Dispatcher struct {
	ingester Ingester
	sender   Sender
	ledger   LedgerReader
	auth     *pipeline.AuthorizeStep
	now      func() time.Time
}

// NewDispatcher creates a dispatcher. allowedUsers gates every command except
// /help and /id; an empty list allows everyone.
func NewDispatcher(ingester Ingester, sender Sender, ledger LedgerReader, allowedUsers []string) *Dispatcher {
	return &Dispatcher{
		ingester: ingester,
		sender:   sender,
		ledger:   ledger,
		auth:     pipeline.NewAuthorizeStep(allowedUsers),
		now:      time.Now,
	}
}

// HandleJob is a jobs.JobHandler. It records the session stage and the
// persisted transaction on the job. A failed session fails the job.
func (d *Dispatcher) HandleJob(ctx context.Context, job *jobs.IngestUpdateJob) error {
	msg := job.Update.Message
	if msg == nil || msg.Chat == nil {
		return nil
	}

	var senderID int64
	if msg.From != nil {
		senderID = msg.From.ID
	}
	chatID := msg.Chat.ID

	if att, ok := attachmentOf(msg); ok {
		result, err := d.ingester.Ingest(ctx, pipeline.Submission{
			JobID:      job.JobID,
			ChatID:     chatID,
			SenderID:   senderID,
			Attachment: att,
		})
		if result != nil {
			job.Stage = string(result.FailedStage)
			if result.Transaction != nil {
				job.Stage = string(result.Stage)
				job.TransactionID = result.Transaction.Base().ID
			}
		}
		return err
	}

	if msg.IsCommand() {
		return d.handleCommand(ctx, msg.Command(), chatID, senderID)
	}

	if msg.Text != "" {
		if !d.auth.Allowed(senderID) {
			return d.reply(ctx, chatID, pipeline.MsgUnauthorized)
		}
		return d.reply(ctx, chatID, msgHint)
	}

	return nil
}

func (d *Dispatcher) handleCommand(ctx context.Context, command string, chatID, senderID int64) error {
	switch command {
	case "help":
		return d.reply(ctx, chatID, msgHelp)
	case "id":
		return d.reply(ctx, chatID, fmt.Sprintf("🆔 Telegram ID'niz: %d", senderID))
	}

	if !d.auth.Allowed(senderID) {
		return d.reply(ctx, chatID, pipeline.MsgUnauthorized)
	}

	switch command {
	case "start":
		return d.reply(ctx, chatID, msgWelcome)
	case "son":
		return d.recent(ctx, chatID)
	case "stats":
		return d.stats(ctx, chatID)
	default:
		return d.reply(ctx, chatID, msgHint)
	}
}

func (d *Dispatcher) recent(ctx context.Context, chatID int64) error {
	expenses, err := d.ledger.ListRecentExpenses(ctx, RecentLimit)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Msg("Failed to list recent expenses")
		return d.reply(ctx, chatID, msgRecentErr)
	}
	if len(expenses) == 0 {
		return d.reply(ctx, chatID, msgNoExpenses)
	}
	return d.reply(ctx, chatID, RecentExpensesMessage(expenses))
}

func (d *Dispatcher) stats(ctx context.Context, chatID int64) error {
	now := d.now()
	stats, err := d.ledger.MonthlyExpenseStats(ctx, now)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Msg("Failed to compute monthly stats")
		return d.reply(ctx, chatID, msgStatsErr)
	}
	return d.reply(ctx, chatID, StatsMessage(now.Month(), stats))
}

func (d *Dispatcher) reply(ctx context.Context, chatID int64, text string) error {
	if err := d.sender.SendText(ctx, chatID, text); err != nil {
		return fmt.Errorf("reply: %w", err)
	}
	return nil
}

// attachmentOf picks the receipt file of a message. Photos arrive in several
// sizes; the last one is the largest and is always JPEG.
func attachmentOf(msg *tgbotapi.Message) (pipeline.Attachment, bool) {
	if n := len(msg.Photo); n > 0 {
		return pipeline.Attachment{FileID: msg.Photo[n-1].FileID, MIMEType: "image/jpeg"}, true
	}
	if doc := msg.Document; doc != nil {
		return pipeline.Attachment{FileID: doc.FileID, MIMEType: doc.MimeType, FileName: doc.FileName}, true
	}
	return pipeline.Attachment{}, false
}

// RecentExpensesMessage renders the /son reply.
func RecentExpensesMessage(expenses []*domain.Expense) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📋 Son %d İşlem:\n\n", len(expenses))
	for i, e := range expenses {
		date := domain.UnknownParty
		if e.Date != nil {
			date = fmt.Sprintf("%02d.%02d.%d", e.Date.Day, int(e.Date.Month), e.Date.Year)
		}
		fmt.Fprintf(&b, "%d. %s - %s\n", i+1, pipeline.FormatTRY(e.Amount), e.Recipient)
		fmt.Fprintf(&b, "   %s | %s | %s\n\n", e.Bank, e.Category, date)
	}
	return strings.TrimRight(b.String(), "\n")
}

// StatsMessage renders the /stats reply.
func StatsMessage(month time.Month, stats *domain.ExpenseStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 %s Özeti\n\n", turkishMonths[month-1])
	fmt.Fprintf(&b, "💰 Toplam: ₺%s\n", pipeline.FormatTurkishNumber(stats.Total))
	if !stats.TotalFee.IsZero() {
		fmt.Fprintf(&b, "💸 Toplam Masraf: ₺%s\n", pipeline.FormatTurkishNumber(stats.TotalFee))
	}
	fmt.Fprintf(&b, "📝 İşlem Sayısı: %d\n", stats.Count)

	if len(stats.TopCategories) > 0 {
		b.WriteString("\n📈 En Çok Harcanan Kategoriler:\n")
		for i, c := range stats.TopCategories {
			fmt.Fprintf(&b, "%d. %s: ₺%s\n", i+1, c.Name, pipeline.FormatTurkishNumber(c.Total))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
