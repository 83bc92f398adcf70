// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package mqttout carries compass readings and the background flag over MQTT.
package mqttout

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/relabs-tech/inertial_compass/internal/compass"
)

// publishTimeout bounds how long a publish may hold up the sensor loop.
const publishTimeout = time.Second

// Connect opens a client connection to broker.
func Connect(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt: connect %s: %w", broker, token.Error())
	}
	return client, nil
}

func wait(token mqtt.Token) error {
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("timed out after %s", publishTimeout)
	}
	return token.Error()
}

// Publisher publishes every reading as retained JSON on one topic.
type Publisher struct {
	client mqtt.Client
	topic  string
	qos    byte
	log    *zap.SugaredLogger
}

// NewPublisher returns a Publisher on topic.
func NewPublisher(client mqtt.Client, topic string, qos byte, logger *zap.SugaredLogger) *Publisher {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Publisher{client: client, topic: topic, qos: qos, log: logger}
}

// Publish implements broadcast.Publisher. Errors are logged, not returned.
func (p *Publisher) Publish(r compass.Reading) {
	payload, err := json.Marshal(r)
	if err != nil {
		p.log.Errorf("json marshal error (heading): %v", err)
		return
	}
	if err := wait(p.client.Publish(p.topic, p.qos, true, payload)); err != nil {
		p.log.Warnf("publish error (%s): %v", p.topic, err)
	}
}

// NotificationSink shows the background notification as a retained message;
// cancelling publishes an empty retained message, which clears it.
type NotificationSink struct {
	Client mqtt.Client
	Topic  string
	QoS    byte
}

func (n NotificationSink) Show(text string) error {
	return wait(n.Client.Publish(n.Topic, n.QoS, true, text))
}

func (n NotificationSink) Cancel() error {
	return wait(n.Client.Publish(n.Topic, n.QoS, true, []byte{}))
}

// ParseBackground accepts "true"/"false", "1"/"0" and {"background":bool}.
func ParseBackground(payload []byte) (bool, error) {
	s := strings.TrimSpace(string(payload))
	if strings.HasPrefix(s, "{") {
		var msg struct {
			Background *bool `json:"background"`
		}
		if err := json.Unmarshal([]byte(s), &msg); err != nil {
			return false, err
		}
		if msg.Background == nil {
			return false, fmt.Errorf("missing \"background\" field")
		}
		return *msg.Background, nil
	}
	return strconv.ParseBool(s)
}

// SubscribeBackground calls set whenever a background flag arrives on topic.
func SubscribeBackground(client mqtt.Client, topic string, qos byte, set func(bool), logger *zap.SugaredLogger) error {
	token := client.Subscribe(topic, qos, func(_ mqtt.Client, msg mqtt.Message) {
		b, err := ParseBackground(msg.Payload())
		if err != nil {
			logger.Warnf("invalid background payload %q: %v", msg.Payload(), err)
			return
		}
		set(b)
	})
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("mqtt: subscribe %s: %w", topic, token.Error())
	}
	logger.Infof("subscribed to %s", topic)
	return nil
}

// SubscribeHeading decodes readings from topic and hands them to fn.
func SubscribeHeading(client mqtt.Client, topic string, qos byte, fn func(compass.Reading), logger *zap.SugaredLogger) error {
	token := client.Subscribe(topic, qos, func(_ mqtt.Client, msg mqtt.Message) {
		var r compass.Reading
		if err := json.Unmarshal(msg.Payload(), &r); err != nil {
			logger.Warnf("heading unmarshal error: %v", err)
			return
		}
		fn(r)
	})
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("mqtt: subscribe %s: %w", topic, token.Error())
	}
	logger.Infof("subscribed to %s", topic)
	return nil
}
