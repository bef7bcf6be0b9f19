// Package broker publishes incidents and road conditions to an MQTT
// broker, grounded on original_source/backend/mqtt_client.py's
// MQTTClient (config dict, reconnect, publish_event) reimplemented on
// eclipse/paho.mqtt.golang.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/charmbracelet/log"

	"github.com/trafikinfo/aggregator/domain"
)

// Config mirrors mqtt_client.py's connection dict.
type Config struct {
	Enabled              bool
	Host                 string
	Port                 int
	Username             string
	Password             string
	Topic                string // incidents topic
	RoadConditionTopic   string
	ClientID             string
}

// Publisher implements broadcast.Sink, publishing every entity it's handed
// to the configured MQTT topic as JSON. A Publisher with Enabled=false is
// a no-op sink, so broker.New can always be wired in regardless of
// whether MQTT is configured.
type Publisher struct {
	cfg    Config
	client mqtt.Client
	logger *log.Logger
}

// New connects to the broker described by cfg. If cfg.Enabled is false,
// it returns a Publisher that never dials out and drops every Publish call.
func New(cfg Config, logger *log.Logger) (*Publisher, error) {
	p := &Publisher{cfg: cfg, logger: logger}
	if !cfg.Enabled {
		return p, nil
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port))
	if cfg.ClientID != "" {
		opts.SetClientID(cfg.ClientID)
	} else {
		opts.SetClientID("trafikinfo-aggregator")
	}
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		if logger != nil {
			logger.Warn("mqtt connection lost", "err", err)
		}
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("broker: connect timed out")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("broker: connect: %w", err)
	}

	p.client = client
	return p, nil
}

type wireIncident struct {
	ExternalID   string `json:"external_id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Location     string `json:"location"`
	SeverityCode int    `json:"severity_code"`
	RoadNumber   string `json:"road_number"`
	CountyNo     int    `json:"county_no"`
}

type wireRoadCondition struct {
	ID            string `json:"id"`
	ConditionText string `json:"condition_text"`
	RoadNumber    string `json:"road_number"`
	CountyNo      int    `json:"county_no"`
}

// Publish sends entity as a JSON payload to the topic matching its kind.
// Connection errors are logged, not returned, matching mqtt_client.py's
// fire-and-forget publish_event.
func (p *Publisher) Publish(_ context.Context, entity domain.Entity) {
	if p.client == nil {
		return
	}

	var topic string
	var payload any
	switch e := entity.(type) {
	case *domain.Incident:
		topic = p.cfg.Topic
		payload = wireIncident{
			ExternalID: e.ExternalID, Title: e.Title, Description: e.Description,
			Location: e.Location, SeverityCode: e.SeverityCode, RoadNumber: e.RoadNumber, CountyNo: e.CountyNo,
		}
	case *domain.RoadCondition:
		topic = p.cfg.RoadConditionTopic
		payload = wireRoadCondition{ID: e.ID, ConditionText: e.ConditionText, RoadNumber: e.RoadNumber, CountyNo: e.CountyNo}
	default:
		return
	}
	if topic == "" {
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		if p.logger != nil {
			p.logger.Error("broker: marshal payload", "err", err)
		}
		return
	}

	token := p.client.Publish(topic, 0, false, body)
	go func() {
		if token.WaitTimeout(5*time.Second) && token.Error() != nil && p.logger != nil {
			p.logger.Error("broker: publish failed", "topic", topic, "err", token.Error())
		}
	}()
}

// Close disconnects from the broker.
func (p *Publisher) Close() {
	if p.client != nil {
		p.client.Disconnect(250)
	}
}
