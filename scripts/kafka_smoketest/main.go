package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	infraeventbus "github.com/amirasaad/fxengine/infra/eventbus"
	"github.com/amirasaad/fxengine/pkg/eventbus"
	"github.com/shopspring/decimal"
)

// RunSmokeTest publishes a rate refresh event through the Kafka event bus
// and waits for the registered handler to receive it.
func RunSmokeTest() error {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	brokers := strings.TrimSpace(os.Getenv("BROKERS"))
	if brokers == "" {
		brokers = "localhost:9093,localhost:9092"
	}
	groupID := strings.TrimSpace(os.Getenv("GROUP_ID"))
	if groupID == "" {
		groupID = "fxengine-smoketest"
	}

	cfg := infraeventbus.DefaultKafkaEventBusConfig()
	cfg.GroupID = groupID
	cfg.TopicPrefix = "fxengine.smoketest"
	bus, err := infraeventbus.NewWithKafka(brokers, logger, cfg)
	if err != nil {
		logger.Error("kafka bus unavailable", "brokers", brokers, "error", err)
		return err
	}
	defer func() { _ = bus.Close() }()

	sent := &eventbus.RateQuoteRefreshed{
		Meta:       eventbus.NewMeta(),
		From:       "USD",
		To:         "EUR",
		Rate:       decimal.RequireFromString("0.85"),
		SourceID:   "smoketest",
		ObservedAt: time.Now().UTC(),
		TTL:        time.Minute,
	}

	received := make(chan *eventbus.RateQuoteRefreshed, 1)
	bus.Register(eventbus.EventTypeRateQuoteRefreshed, func(_ context.Context, e eventbus.Event) error {
		if evt, ok := e.(*eventbus.RateQuoteRefreshed); ok && evt.ID == sent.ID {
			select {
			case received <- evt:
			default:
			}
		}
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := bus.Emit(ctx, sent); err != nil {
		logger.Error("emit failed", "error", err)
		return err
	}
	logger.Info("produced", "event", sent.Type(), "id", sent.ID)

	select {
	case evt := <-received:
		logger.Info("consumed", "event", evt.Type(), "pair", evt.From+":"+evt.To, "rate", evt.Rate)
	case <-ctx.Done():
		logger.Error("event not consumed before timeout")
		return errors.New("kafka smoke test timed out")
	}

	logger.Info("kafka smoke test passed")
	return nil
}

// main runs the smoke test and exits non-zero on failure.
func main() {
	if err := RunSmokeTest(); err != nil {
		os.Exit(1)
	}
}
