package pipeline

import (
	"fmt"
	"strings"

	"github.com/dvloznov/kitchen-ledger/internal/domain"
)

// receiptPrompt is sent with every receipt. The JSON shape and both category
// lists are fixed, so it is built once.
var receiptPrompt = buildReceiptPrompt()

func buildReceiptPrompt() string {
	shape :=
		"Bu bir Türk bankası dekontu, havale/EFT makbuzu veya ödeme fişidir.\n" +
			"Görseldeki tüm bilgileri oku ve SADECE aşağıdaki JSON nesnesini döndür.\n\n" +
			"{\n" +
			"  \"transactionDirection\": \"income\" veya \"expense\",\n" +
			"  \"amount\": sayı (işlem tutarı),\n" +
			"  \"currency\": \"TRY\", \"USD\" veya \"EUR\",\n" +
			"  \"recipient\": alıcı adı veya null,\n" +
			"  \"recipientBank\": alıcı bankası veya null,\n" +
			"  \"recipientIban\": alıcı IBAN veya null,\n" +
			"  \"sender\": gönderen adı veya null,\n" +
			"  \"senderBank\": gönderen bankası veya null,\n" +
			"  \"senderIban\": gönderen IBAN veya null,\n" +
			"  \"bank\": dekontu düzenleyen banka veya null,\n" +
			"  \"branchCode\": şube kodu veya null,\n" +
			"  \"branchName\": şube adı veya null,\n" +
			"  \"accountType\": hesap türü veya null,\n" +
			"  \"accountNumber\": hesap numarası veya null,\n" +
			"  \"transactionType\": \"Havale\", \"EFT\", \"FAST\", \"Gelen Havale\" vb. veya null,\n" +
			"  \"transactionId\": işlem referans numarası veya null,\n" +
			"  \"description\": açıklama veya null,\n" +
			"  \"commission\": komisyon tutarı (sayı) veya null,\n" +
			"  \"tax\": BSMV/vergi tutarı (sayı) veya null,\n" +
			"  \"totalFee\": toplam masraf (sayı) veya null,\n" +
			"  \"date\": \"YYYY-MM-DD\" veya null,\n" +
			"  \"time\": \"HH:MM\" veya null,\n" +
			"  \"suggestedCategory\": aşağıdaki listelerden bir kategori\n" +
			"}\n\n"

	direction :=
		"İşlem yönü:\n" +
			"- Dekontta \"gelen\", \"gelen havale\", \"incoming\" veya hesaba para girişi varsa \"income\".\n" +
			"- \"giden\", \"outgoing\", \"ödeme\", \"payment\", \"EFT\" veya \"havale\" ile para çıkışı varsa \"expense\".\n" +
			"- Emin değilsen \"expense\".\n\n"

	categories := fmt.Sprintf(
		"Gider kategorileri (expense için): %s\n"+
			"Gelir kategorileri (income için): %s\n"+
			"Uygun kategori yoksa gider için %q, gelir için %q kullan.\n\n",
		strings.Join(domain.CategorySet(domain.DirectionExpense), ", "),
		strings.Join(domain.CategorySet(domain.DirectionIncome), ", "),
		domain.ExpenseCatchAll,
		domain.IncomeCatchAll,
	)

	rules :=
		"Kurallar:\n" +
			"- Tutarları nokta ondalık ayracıyla sayı olarak yaz (1.234,56 TL → 1234.56).\n" +
			"- Okunamayan alanlar için null kullan, tahmin etme.\n" +
			"- Sadece geçerli JSON döndür. Markdown veya ``` kullanma, açıklama ekleme.\n"

	return shape + direction + categories + rules
}
