// internal/notify/mqtt.go

// Package notify forwards camera events to an MQTT broker. Each event is
// published as JSON on "{prefix}/{event type}", with the dots of the event
// type turned into topic levels.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"camera-service/internal/config"
	"camera-service/internal/model"
)

// client is the part of paho.Client the publisher uses.
type client interface {
	Connect() paho.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Disconnect(quiesce uint)
	IsConnected() bool
}

// Publisher sends events to the broker
type Publisher struct {
	cfg    *config.MQTTConfig
	client client
	logger *zap.Logger

	mu        sync.Mutex
	published int64
	failed    int64
}

// NewPublisher builds a publisher with an auto-reconnecting paho client
func NewPublisher(cfg *config.MQTTConfig, logger *zap.Logger) *Publisher {
	p := &Publisher{cfg: cfg, logger: logger.With(zap.String("component", "mqtt"))}

	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetMaxReconnectInterval(2 * time.Minute).
		SetKeepAlive(60 * time.Second).
		SetCleanSession(true).
		SetOrderMatters(false).
		SetOnConnectHandler(func(paho.Client) {
			p.logger.Info("Connected to MQTT broker", zap.String("broker", cfg.Broker))
		}).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			p.logger.Warn("MQTT connection lost", zap.Error(err))
		})
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	p.client = paho.NewClient(opts)
	return p
}

func (p *Publisher) timeout() time.Duration {
	if p.cfg.Timeout > 0 {
		return p.cfg.Timeout
	}
	return 5 * time.Second
}

// Connect starts the connection. With connect-retry enabled paho keeps
// trying in the background, so a timeout here is not fatal.
func (p *Publisher) Connect() error {
	token := p.client.Connect()
	if !token.WaitTimeout(p.timeout()) {
		p.logger.Warn("MQTT broker not reachable yet, retrying in background",
			zap.String("broker", p.cfg.Broker))
		return nil
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connecting to broker: %w", err)
	}
	return nil
}

// Topic returns the topic an event type is published on
func (p *Publisher) Topic(t model.EventType) string {
	return p.cfg.TopicPrefix + "/" + strings.ReplaceAll(string(t), ".", "/")
}

// Publish sends one event. The catalog event is retained so new
// subscribers see the current picture count.
func (p *Publisher) Publish(event *model.Event) error {
	if !p.client.IsConnected() {
		return errors.New("mqtt: not connected")
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("mqtt: encode event: %w", err)
	}
	retained := event.EventType == model.EventCatalogRefreshed
	token := p.client.Publish(p.Topic(event.EventType), p.cfg.QoS, retained, payload)
	if !token.WaitTimeout(p.timeout()) {
		return errors.New("mqtt: publish timeout")
	}
	return token.Error()
}

// Run publishes events until ctx is done or the channel is closed
func (p *Publisher) Run(ctx context.Context, events <-chan *model.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			err := p.Publish(event)
			p.mu.Lock()
			if err != nil {
				p.failed++
			} else {
				p.published++
			}
			p.mu.Unlock()
			if err != nil {
				p.logger.Debug("Event not published",
					zap.String("event_type", string(event.EventType)),
					zap.Error(err))
			}
		}
	}
}

// Stats returns the number of published and failed events
func (p *Publisher) Stats() (published, failed int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.published, p.failed
}

// IsConnected reports the broker connection state
func (p *Publisher) IsConnected() bool {
	return p.client.IsConnected()
}

// Close disconnects, waiting up to 250ms for in-flight messages
func (p *Publisher) Close() {
	p.client.Disconnect(250)
}
