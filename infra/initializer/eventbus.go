package initializer

import (
	"log/slog"

	infra_eventbus "github.com/amirasaad/fxengine/infra/eventbus"
	"github.com/amirasaad/fxengine/pkg/config"
	"github.com/amirasaad/fxengine/pkg/domain"
	"github.com/amirasaad/fxengine/pkg/eventbus"
)

// initEventBus selects the event bus driver. An unreachable Redis or Kafka
// falls back to the in-memory async bus so the engine still starts.
func initEventBus(cfg *config.App, logger *slog.Logger) (eventbus.Bus, error) {
	ebCfg := cfg.EventBus
	if ebCfg == nil {
		ebCfg = &config.EventBus{}
	}
	memoryAsync := func() eventbus.Bus {
		return infra_eventbus.NewWithMemoryAsync(logger, ebCfg.QueueSize)
	}

	switch ebCfg.Driver {
	case "", config.EventBusMemoryAsync:
		return memoryAsync(), nil

	case config.EventBusMemory:
		return infra_eventbus.NewWithMemory(logger), nil

	case config.EventBusRedis:
		url := ebCfg.RedisURL
		if url == "" && cfg.Redis != nil {
			url = cfg.Redis.URL
		}
		if url == "" {
			return nil, domain.Errorf(domain.KindInvalidConfig, "event bus driver %q requires a redis url", ebCfg.Driver)
		}
		bus, err := infra_eventbus.NewWithRedis(url, logger, &infra_eventbus.RedisEventBusConfig{
			DLQRetryInterval: ebCfg.DLQRetryInterval,
			DLQBatchSize:     int64(ebCfg.DLQBatchSize),
		})
		if err != nil {
			logger.Warn("Redis event bus unavailable, falling back to memory-async", "error", err)
			return memoryAsync(), nil
		}
		return bus, nil

	case config.EventBusKafka:
		if ebCfg.KafkaBrokers == "" {
			return nil, domain.Errorf(domain.KindInvalidConfig, "event bus driver %q requires kafka brokers", ebCfg.Driver)
		}
		bus, err := infra_eventbus.NewWithKafka(ebCfg.KafkaBrokers, logger, &infra_eventbus.KafkaEventBusConfig{
			GroupID:          ebCfg.KafkaGroupID,
			TopicPrefix:      ebCfg.KafkaTopicPrefix,
			DLQRetryInterval: ebCfg.DLQRetryInterval,
			DLQBatchSize:     ebCfg.DLQBatchSize,
			SASLUsername:     ebCfg.KafkaSASLUser,
			SASLPassword:     ebCfg.KafkaSASLPass,
			TLSEnabled:       ebCfg.KafkaTLSEnabled,
		})
		if err != nil {
			logger.Warn("Kafka event bus unavailable, falling back to memory-async", "error", err)
			return memoryAsync(), nil
		}
		return bus, nil

	default:
		return nil, domain.Errorf(domain.KindInvalidConfig, "unsupported event bus driver %q", ebCfg.Driver)
	}
}
