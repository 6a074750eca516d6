package eventbus

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
)

// kafkaConn holds the broker addresses and the authenticated dialer shared
// by readers, the writer and topic administration.
type kafkaConn struct {
	brokers   []string
	dialer    *kafka.Dialer
	transport *kafka.Transport

	known sync.Map // topic name -> struct{}
}

func newKafkaConn(brokers []string, cfg *KafkaEventBusConfig) (*kafkaConn, error) {
	tlsConfig, err := buildKafkaTLSConfig(cfg)
	if err != nil {
		return nil, err
	}
	mechanism, err := buildKafkaSASLMechanism(cfg)
	if err != nil {
		return nil, err
	}
	c := &kafkaConn{
		brokers: brokers,
		dialer:  &kafka.Dialer{Timeout: 5 * time.Second, TLS: tlsConfig, SASLMechanism: mechanism},
	}
	if tlsConfig != nil || mechanism != nil {
		c.transport = &kafka.Transport{TLS: tlsConfig, SASL: mechanism}
	}
	return c, nil
}

func (c *kafkaConn) writer() *kafka.Writer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(c.brokers...),
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireOne,
		Balancer:               &kafka.Hash{},
	}
	if c.transport != nil {
		w.Transport = c.transport
	}
	return w
}

func (c *kafkaConn) reader(groupID, topic string, maxWait time.Duration) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     c.brokers,
		GroupID:     groupID,
		Topic:       topic,
		StartOffset: kafka.FirstOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     maxWait,
		Dialer:      c.dialer,
	})
}

func (c *kafkaConn) ping(ctx context.Context) error {
	conn, err := c.dialer.DialContext(ctx, "tcp", c.brokers[0])
	if err != nil {
		return fmt.Errorf("kafka event bus: connection failed: %w", err)
	}
	return conn.Close()
}

// ensureTopic creates topic once per process; existing topics are accepted.
func (c *kafkaConn) ensureTopic(ctx context.Context, topic string) error {
	if topic == "" {
		return errors.New("kafka event bus: topic is required")
	}
	if _, ok := c.known.Load(topic); ok {
		return nil
	}
	conn, err := c.dialer.DialContext(ctx, "tcp", c.brokers[0])
	if err != nil {
		return fmt.Errorf("kafka event bus: dial failed: %w", err)
	}
	defer func() { _ = conn.Close() }()

	err = conn.CreateTopics(kafka.TopicConfig{Topic: topic, NumPartitions: 1, ReplicationFactor: 1})
	if err != nil && !isTopicAlreadyExists(err) {
		return fmt.Errorf("kafka event bus: create topic %s: %w", topic, err)
	}
	c.known.Store(topic, struct{}{})
	return nil
}

func isTopicAlreadyExists(err error) bool {
	if errors.Is(err, kafka.TopicAlreadyExists) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "TOPIC_ALREADY_EXISTS") || strings.Contains(msg, "already exists")
}

func parseBrokers(brokers string) []string {
	var out []string
	for _, p := range strings.Split(brokers, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func buildKafkaTLSConfig(cfg *KafkaEventBusConfig) (*tls.Config, error) {
	if !cfg.TLSEnabled {
		return nil, nil
	}
	out := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: cfg.TLSSkipVerify, //nolint:gosec
	}
	if ca := strings.TrimSpace(cfg.TLSCAFile); ca != "" {
		pem, err := os.ReadFile(ca)
		if err != nil {
			return nil, fmt.Errorf("kafka event bus: read tls ca file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, errors.New("kafka event bus: no certificates in tls ca file")
		}
		out.RootCAs = pool
	}

	certFile, keyFile := strings.TrimSpace(cfg.TLSCertFile), strings.TrimSpace(cfg.TLSKeyFile)
	switch {
	case certFile == "" && keyFile == "":
	case certFile == "" || keyFile == "":
		return nil, errors.New("kafka event bus: tls cert and key must be set together")
	default:
		cert, err := tls.LoadX509KeyPair(certFile, keyFile)
		if err != nil {
			return nil, fmt.Errorf("kafka event bus: load tls key pair: %w", err)
		}
		out.Certificates = []tls.Certificate{cert}
	}
	return out, nil
}

func buildKafkaSASLMechanism(cfg *KafkaEventBusConfig) (sasl.Mechanism, error) {
	user, pass := strings.TrimSpace(cfg.SASLUsername), strings.TrimSpace(cfg.SASLPassword)
	switch {
	case user == "" && pass == "":
		return nil, nil
	case user == "" || pass == "":
		return nil, errors.New("kafka event bus: sasl username and password must be set together")
	}
	return plain.Mechanism{Username: user, Password: pass}, nil
}
