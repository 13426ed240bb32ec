package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/gridpool/gridpool/core/model"
	"github.com/gridpool/gridpool/core/quantity"
	"github.com/gridpool/gridpool/core/resampling"
	"github.com/gridpool/gridpool/infra/logger"
	infmqtt "github.com/gridpool/gridpool/infra/mqtt"
)

// Config defines settings for telemetry collection.
type Config struct {
	// TelemetryPrefix is the topic prefix components publish raw samples on.
	// The series id is the final topic level. Empty derives
	// "<topic_prefix>/telemetry" from the MQTT configuration.
	TelemetryPrefix string `json:"telemetry_prefix"`
	// Buffer is the per-series channel capacity. Zero selects 64.
	Buffer int `json:"buffer"`
}

// Manager feeds raw component telemetry from MQTT into the resampler. Each
// series gets its own input channel, registered on first sight; a slow
// resampler drops the oldest pending sample rather than blocking the MQTT
// callback.
type Manager struct {
	cfg    Config
	cli    paho.Client
	res    *resampling.Resampler
	log    logger.Logger
	buffer int

	mu     sync.Mutex
	series map[string]chan model.Sample

	received  prometheus.Counter
	decodeErr prometheus.Counter
	lastRecv  prometheus.Gauge
}

// NewManager connects to MQTT and prepares telemetry collection.
func NewManager(mqttCfg infmqtt.Config, cfg Config, res *resampling.Resampler) (*Manager, error) {
	mqttCfg.SetDefaults()
	opts, err := infmqtt.NewClientOptions(mqttCfg)
	if err != nil {
		return nil, err
	}
	id := mqttCfg.ClientID
	if id != "" {
		id += "-telemetry"
	} else {
		id = "telemetry-" + uuid.NewString()
	}
	opts.SetClientID(id)
	cli := paho.NewClient(opts)
	if token := cli.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	if cfg.TelemetryPrefix == "" {
		cfg.TelemetryPrefix = mqttCfg.TopicPrefix + "/telemetry"
	}
	buffer := cfg.Buffer
	if buffer <= 0 {
		buffer = 64
	}
	m := &Manager{
		cfg:       cfg,
		cli:       cli,
		res:       res,
		log:       logger.New("telemetry"),
		buffer:    buffer,
		series:    make(map[string]chan model.Sample),
		received:  prometheus.NewCounter(prometheus.CounterOpts{Name: "telemetry_samples_total", Help: "Number of raw telemetry samples received"}),
		decodeErr: prometheus.NewCounter(prometheus.CounterOpts{Name: "telemetry_decode_failures_total", Help: "Number of telemetry payloads that failed to decode"}),
		lastRecv:  prometheus.NewGauge(prometheus.GaugeOpts{Name: "telemetry_last_sample_timestamp_seconds", Help: "Unix timestamp of the last received sample"}),
	}
	prometheus.MustRegister(m.received, m.decodeErr, m.lastRecv)
	return m, nil
}

// Start runs telemetry collection until context is done.
func (m *Manager) Start(ctx context.Context) {
	topic := strings.TrimSuffix(m.cfg.TelemetryPrefix, "/") + "/+"
	if token := m.cli.Subscribe(topic, 0, m.onPush); token.Wait() && token.Error() != nil {
		m.log.Errorf("subscribe telemetry: %v", token.Error())
	}
	<-ctx.Done()
	if m.cli.IsConnected() {
		m.cli.Disconnect(250)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, ch := range m.series {
		close(ch)
		delete(m.series, id)
	}
}

func (m *Manager) onPush(_ paho.Client, msg paho.Message) {
	if err := m.process(msg.Payload(), msg.Topic()); err != nil {
		m.decodeErr.Inc()
		m.log.Errorf("telemetry decode: %v", err)
	}
}

func extractID(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) > 0 {
		return parts[len(parts)-1]
	}
	return ""
}

// process decodes one telemetry payload and forwards it to the series
// channel, registering the series with the resampler on first sight.
func (m *Manager) process(payload []byte, topic string) error {
	var msg struct {
		SeriesID string   `json:"series_id"`
		Value    *float64 `json:"value"`
		Unit     string   `json:"unit"`
		TS       *int64   `json:"ts"`
	}
	if err := json.Unmarshal(payload, &msg); err != nil {
		return err
	}
	if msg.SeriesID == "" {
		msg.SeriesID = extractID(topic)
	}
	if msg.SeriesID == "" {
		return fmt.Errorf("telemetry sample without series id")
	}
	if msg.Value == nil {
		return fmt.Errorf("telemetry sample for %s without value", msg.SeriesID)
	}
	unit := quantity.Watt
	if msg.Unit != "" {
		u, err := quantity.ParseUnit(msg.Unit)
		if err != nil {
			return err
		}
		unit = u
	}
	ts := time.Now()
	if msg.TS != nil {
		ts = time.UnixMilli(*msg.TS)
	}

	ch, err := m.channel(msg.SeriesID)
	if err != nil {
		return err
	}
	sample := model.NewSample(ts, quantity.Quantity{Value: *msg.Value, Unit: unit})
	select {
	case ch <- sample:
	default:
		// Drop the oldest pending sample to make room for the new one.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- sample:
		default:
		}
		m.log.Warnf("series %s: input buffer full, dropped a sample", msg.SeriesID)
	}
	m.received.Inc()
	m.lastRecv.SetToCurrentTime()
	return nil
}

func (m *Manager) channel(id string) (chan model.Sample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ch, ok := m.series[id]; ok {
		return ch, nil
	}
	ch := make(chan model.Sample, m.buffer)
	if m.res != nil {
		if err := m.res.AddSeries(id, ch); err != nil {
			return nil, err
		}
	}
	m.series[id] = ch
	return ch, nil
}
