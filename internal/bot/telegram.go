package bot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// MaxFileSize is the largest file the Bot API lets bots download.
const MaxFileSize = 20 << 20

// BotAPI is the part of *tgbotapi.BotAPI the transport uses.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Transport sends replies and downloads attachments through the Bot API.
type Transport struct {
	api        BotAPI
	httpClient *http.Client
}

// NewTransport creates a transport over api.
func NewTransport(api BotAPI) *Transport {
	return &Transport{
		api:        api,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// NewBotAPI connects to Telegram with the bot token.
func NewBotAPI(token string) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("NewBotAPI: %w", err)
	}
	return api, nil
}

// SendText sends a plain text message to the chat.
func (t *Transport) SendText(ctx context.Context, chatID int64, text string) error {
	if _, err := t.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return fmt.Errorf("SendText: chat %d: %w", chatID, err)
	}
	return nil
}

// DownloadFile fetches the bytes of an uploaded file.
func (t *Transport) DownloadFile(ctx context.Context, fileID string) ([]byte, error) {
	fileURL, err := t.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("DownloadFile: resolving file %s: %w", fileID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("DownloadFile: building request: %w", err)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("DownloadFile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("DownloadFile: unexpected status %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("DownloadFile: reading body: %w", err)
	}
	if len(data) > MaxFileSize {
		return nil, fmt.Errorf("DownloadFile: file %s exceeds %d bytes", fileID, MaxFileSize)
	}
	return data, nil
}
