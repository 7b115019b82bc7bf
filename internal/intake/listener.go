package intake

import (
	"context"
	"fmt"
	"strings"
	"time"

	"clrecon/internal/config"
	gmailconnector "clrecon/internal/intake/gmail"
	imapconnector "clrecon/internal/intake/imap"
	"clrecon/internal/storage"
)

// Listener polls the mailbox on an interval and lands submissions as
// they arrive.
type Listener struct {
	db  *storage.DB
	cfg config.Config
}

func NewListener(db *storage.DB, cfg config.Config) *Listener {
	return &Listener{db: db, cfg: cfg}
}

// RunOnce performs a single fetch-and-extract cycle, for cron-style
// scheduling or smoke-testing mailbox credentials.
func (l *Listener) RunOnce() error {
	return l.runCycle()
}

func (l *Listener) Run(ctx context.Context) error {
	for {
		if err := l.runCycle(); err != nil {
			fmt.Printf("intake cycle error: %v\n", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Duration(l.cfg.IntakeIntervalSec) * time.Second):
		}
	}
}

func (l *Listener) runCycle() error {
	provider := strings.ToLower(strings.TrimSpace(l.cfg.IntakeProvider))
	connector, err := MakeConnector(provider, l.cfg)
	if err != nil {
		return err
	}

	service := NewService(l.db, l.cfg.RawMailDir, l.cfg.SubmissionsDir, connector)
	result, err := service.FetchAndExtract(l.cfg.IntakeLabel, l.cfg.IntakeFetchMax)
	if err != nil {
		return err
	}

	fmt.Printf("intake cycle done provider=%s fetched=%d workbooks=%d flagged=%d skipped=%d\n",
		provider, result.Fetched, result.Workbooks, result.Flagged, result.Skipped)
	return l.db.LogRun("intake", map[string]any{
		"provider":  provider,
		"fetched":   result.Fetched,
		"workbooks": result.Workbooks,
		"flagged":   result.Flagged,
		"skipped":   result.Skipped,
	})
}

// MakeConnector picks the mailbox provider by name.
func MakeConnector(provider string, cfg config.Config) (Connector, error) {
	switch provider {
	case "gmail":
		return gmailconnector.NewConnector(cfg)
	case "imap":
		return imapconnector.NewConnector(cfg)
	default:
		return nil, fmt.Errorf("unsupported intake provider: %s", provider)
	}
}
