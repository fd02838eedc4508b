// Package mqtt publishes characteristic updates to an MQTT broker.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"co2_sensor_proxy/internal/logger"
	"co2_sensor_proxy/internal/models"

	paho "github.com/eclipse/paho.mqtt.golang"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
	quiesceMillis  = 250
	qosAtLeastOnce = 1
)

var ErrPublishTimeout = errors.New("mqtt publish timed out")

type Config struct {
	Broker   string // e.g. tcp://localhost:1883
	ClientID string
	Topic    string // prefix; the characteristic name is appended
}

// message is the JSON body published for every update.
type message struct {
	Characteristic models.Characteristic `json:"characteristic"`
	Value          any                   `json:"value"`
	At             time.Time             `json:"at"`
}

// Publisher sends one retained message per characteristic update.
type Publisher struct {
	client paho.Client
	topic  string
	log    *logger.Logger
	now    func() time.Time
}

// Connect dials the broker and returns a ready publisher.
func Connect(cfg Config, log *logger.Logger) (*Publisher, error) {
	if cfg.Broker == "" {
		return nil, errors.New("mqtt broker is required")
	}
	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout)
	if log != nil {
		opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Warnw("mqtt_connection_lost", "broker", cfg.Broker, "err", err)
		})
	}

	c := paho.NewClient(opts)
	token := c.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("connect %s: timed out", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Broker, err)
	}
	return NewPublisher(c, cfg.Topic, log), nil
}

// NewPublisher wraps an already connected client.
func NewPublisher(c paho.Client, topic string, log *logger.Logger) *Publisher {
	if log == nil {
		log = logger.Nop()
	}
	return &Publisher{
		client: c,
		topic:  strings.TrimSuffix(topic, "/"),
		log:    log,
		now:    time.Now,
	}
}

// TopicFor returns the topic a characteristic is published on.
func (p *Publisher) TopicFor(c models.Characteristic) string {
	return p.topic + "/" + string(c)
}

func (p *Publisher) UpdateCharacteristic(ctx context.Context, c models.Characteristic, value any) error {
	payload, err := json.Marshal(message{Characteristic: c, Value: value, At: p.now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal mqtt message: %w", err)
	}

	topic := p.TopicFor(c)
	token := p.client.Publish(topic, qosAtLeastOnce, true, payload)

	timeout := publishTimeout
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d < timeout {
			timeout = d
		}
	}
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("%w: %s", ErrPublishTimeout, topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	p.log.Debugw("mqtt_published", "topic", topic, "value", value)
	return nil
}

func (p *Publisher) Close() {
	p.client.Disconnect(quiesceMillis)
}
