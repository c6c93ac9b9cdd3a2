package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/logger"
	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/model"
	infralog "github.com/kdr47101/Bikeshare-Demand-Forecasting/infra/logger"
)

// MQTTConfig defines the connection parameters for the Paho publisher.
type MQTTConfig struct {
	Broker      string `json:"broker"`
	ClientID    string `json:"client_id"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	TopicPrefix string `json:"topic_prefix"`
	QoS         byte   `json:"qos"`
	Retain      bool   `json:"retain"`
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// MQTTPublisher publishes one JSON payload per station on
// <prefix>/<station_id>.
type MQTTPublisher struct {
	cli    pahoClient
	prefix string
	qos    byte
	retain bool
	log    logger.Logger
}

// NewMQTTPublisher connects to the broker.
func NewMQTTPublisher(cfg MQTTConfig) (*MQTTPublisher, error) {
	if cfg.Broker == "" {
		return nil, model.NewConfigError("publish.broker", "broker address is required")
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "bikecast-" + uuid.NewString()[:8]
	}
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = "bikecast/forecasts"
	}

	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	log := infralog.New("mqtt-publisher")
	opts.OnConnect = func(paho.Client) {
		log.Infof("MQTT connected")
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}

	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return &MQTTPublisher{cli: c, prefix: cfg.TopicPrefix, qos: cfg.QoS, retain: cfg.Retain, log: log}, nil
}

// PublishForecasts sends one payload per station, ascending station order.
// A failed station does not stop the others; the first error is returned.
func (p *MQTTPublisher) PublishForecasts(ctx context.Context, runID string, rows []model.ForecastRow) error {
	byStation := make(map[string][]model.ForecastRow)
	for _, r := range rows {
		byStation[r.StationID] = append(byStation[r.StationID], r)
	}
	ids := make([]string, 0, len(byStation))
	for id := range byStation {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	now := time.Now().UTC()
	var first error
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		payload, err := json.Marshal(StationPayload{
			RunID:       runID,
			StationID:   id,
			GeneratedAt: now,
			Forecasts:   byStation[id],
		})
		if err != nil {
			return fmt.Errorf("marshal station %s: %w", id, err)
		}
		topic := p.prefix + "/" + id
		if token := p.cli.Publish(topic, p.qos, p.retain, payload); token.Wait() && token.Error() != nil {
			p.log.Errorf("publish %s failed: %v", topic, token.Error())
			if first == nil {
				first = fmt.Errorf("publish %s: %w", topic, token.Error())
			}
		}
	}
	return first
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() error {
	p.cli.Disconnect(250)
	return nil
}
