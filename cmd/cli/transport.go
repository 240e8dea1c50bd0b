package main

import (
	"context"
	"fmt"

	"github.com/dvloznov/kitchen-ledger/internal/domain"
)

// fileTransport stands in for the chat: the "download" is the receipt read
// from disk or GCS and replies go to stdout.
type fileTransport struct {
	data []byte
}

func (t *fileTransport) SendText(ctx context.Context, chatID int64, text string) error {
	_, err := fmt.Println(text)
	return err
}

func (t *fileTransport) DownloadFile(ctx context.Context, fileID string) ([]byte, error) {
	return t.data, nil
}

// preview presents an unsaved route as a transaction so the confirmation
// message can be rendered for a dry run.
type preview struct {
	route domain.Route
	rec   domain.Record
}

func (p *preview) Kind() domain.Direction { return p.route.Target }

func (p *preview) Base() *domain.Record {
	p.rec.NormalizedTransaction = p.route.Record
	return &p.rec
}

func (p *preview) Counterparty() string {
	if p.route.Target == domain.DirectionIncome {
		return p.route.Record.Sender
	}
	return p.route.Record.Recipient
}
