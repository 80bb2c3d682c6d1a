package main

import (
	"context"
	"fmt"
	"time"

	"github.com/adqa/browser-test-harness/config"
	"github.com/adqa/browser-test-harness/framework"
	"github.com/adqa/browser-test-harness/history"
)

const storeOpenTimeout = time.Second * 10

// openHistory opens the CSV history file and every configured mirror. If anything cannot be
// opened, whatever was already opened is closed again.
func openHistory(cfg config.Config, now time.Time, logger framework.Logger) (history.Store, error) {
	primary, err := history.OpenCSV(cfg.HistoryFile(now))
	if err != nil {
		return nil, err
	}
	logger.Printf("Appending history to %s", primary.Path())

	ctx, cancel := context.WithTimeout(context.Background(), storeOpenTimeout)
	defer cancel()

	var mirrors []history.Store
	fail := func(err error) (history.Store, error) {
		for _, m := range mirrors {
			_ = m.Close()
		}
		_ = primary.Close()
		return nil, err
	}

	m := cfg.Mirrors
	if m.SQLite != "" {
		s, err := history.OpenSQLite(m.SQLite)
		if err != nil {
			return fail(fmt.Errorf("cannot open SQLite history: %w", err))
		}
		mirrors = append(mirrors, s)
	}
	if m.Redis.Address != "" {
		s, err := history.OpenRedis(m.Redis.Address, m.Redis.Stream)
		if err != nil {
			return fail(err)
		}
		mirrors = append(mirrors, s)
	}
	if m.DynamoDB.Table != "" {
		s, err := history.OpenDynamoDB(ctx, history.DynamoDBOptions{
			Table:    m.DynamoDB.Table,
			Region:   m.DynamoDB.Region,
			Endpoint: m.DynamoDB.Endpoint,
		})
		if err != nil {
			return fail(fmt.Errorf("cannot open DynamoDB history: %w", err))
		}
		mirrors = append(mirrors, s)
	}
	if m.Consul.Address != "" {
		s, err := history.OpenConsul(m.Consul.Address, m.Consul.Prefix)
		if err != nil {
			return fail(err)
		}
		mirrors = append(mirrors, s)
	}
	if m.NATS.URL != "" {
		s, err := history.OpenNATS(ctx, m.NATS.URL, m.NATS.Stream)
		if err != nil {
			return fail(fmt.Errorf("cannot open NATS history: %w", err))
		}
		mirrors = append(mirrors, s)
	}
	for _, mirror := range mirrors {
		if n, ok := mirror.(history.Named); ok {
			logger.Printf("Mirroring history to %s", n.Name())
		}
	}
	return history.Tee(primary, mirrors...), nil
}
