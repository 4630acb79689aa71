package peerlink

import (
	"fmt"
	"time"

	"smartclock-hub/internal/config"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// MQTTSubscriber feeds every message on one topic to the handler as a raw
// telemetry payload.
type MQTTSubscriber struct {
	client  mqtt.Client
	topic   string
	qos     byte
	timeout time.Duration
	handler Handler
	logger  *zap.Logger
}

func NewMQTTSubscriber(cfg config.MQTTConfig, handler Handler, logger *zap.Logger) *MQTTSubscriber {
	s := &MQTTSubscriber{
		topic:   cfg.Topic,
		qos:     byte(cfg.QoS),
		timeout: cfg.ConnectTimeout,
		handler: handler,
		logger:  logger,
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)
	opts.SetConnectTimeout(cfg.ConnectTimeout)
	// Clean sessions lose subscriptions, so subscribe on every (re)connect.
	opts.SetOnConnectHandler(s.subscribe)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("MQTT connection lost", zap.Error(err))
	})
	s.client = mqtt.NewClient(opts)
	return s
}

func (s *MQTTSubscriber) Start() error {
	token := s.client.Connect()
	if !token.WaitTimeout(s.timeout) {
		return fmt.Errorf("connect to MQTT broker: timed out after %s", s.timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connect to MQTT broker: %w", err)
	}
	return nil
}

func (s *MQTTSubscriber) subscribe(c mqtt.Client) {
	token := c.Subscribe(s.topic, s.qos, s.onMessage)
	if !token.WaitTimeout(s.timeout) {
		s.logger.Warn("MQTT subscribe timed out", zap.String("topic", s.topic))
		return
	}
	if err := token.Error(); err != nil {
		s.logger.Warn("MQTT subscribe failed", zap.String("topic", s.topic), zap.Error(err))
		return
	}
	s.logger.Info("MQTT peer link subscribed", zap.String("topic", s.topic))
}

func (s *MQTTSubscriber) onMessage(_ mqtt.Client, msg mqtt.Message) {
	if err := s.handler(msg.Payload()); err != nil {
		s.logger.Debug("MQTT payload dropped",
			zap.String("topic", msg.Topic()),
			zap.Int("size", len(msg.Payload())),
			zap.Error(err),
		)
	}
}

func (s *MQTTSubscriber) Stop() {
	if s.client.IsConnected() {
		s.client.Unsubscribe(s.topic).WaitTimeout(s.timeout)
	}
	s.client.Disconnect(250)
}
