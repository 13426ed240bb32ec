package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/gridpool/gridpool/core/quantity"
	"github.com/gridpool/gridpool/core/transport"
	"github.com/gridpool/gridpool/infra/logger"
)

// CommandSender mirrors the core transport interface.
type CommandSender = transport.CommandSender

// ErrAckTimeout is returned when a component does not acknowledge a command
// within the configured timeout.
var ErrAckTimeout = errors.New("mqtt: ack timeout")

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Broker      string          `json:"broker"`
	ClientID    string          `json:"client_id"`
	Username    string          `json:"username"`
	Password    string          `json:"password"`
	AckTopic    string          `json:"ack_topic"`
	TopicPrefix string          `json:"topic_prefix"`
	UseTLS      bool            `json:"use_tls"`
	ClientCert  string          `json:"client_cert"`
	ClientKey   string          `json:"client_key"`
	CABundle    string          `json:"ca_bundle"`
	AuthMethod  string          `json:"auth_method"`
	QoS         map[string]byte `json:"qos"`
	LWTTopic    string          `json:"lwt_topic"`
	LWTPayload  string          `json:"lwt_payload"`
	LWTQoS      byte            `json:"lwt_qos"`
	LWTRetain   bool            `json:"lwt_retain"`
	MaxRetries  int             `json:"max_retries"`
	BackoffMS   int             `json:"backoff_ms"`
	TLSConfig   *tls.Config     `json:"-"`
}

// SetDefaults fills unset fields with their defaults.
func (c *Config) SetDefaults() {
	if c.TopicPrefix == "" {
		c.TopicPrefix = "gridpool"
	}
	if c.AckTopic == "" {
		c.AckTopic = c.TopicPrefix + "/components/ack"
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BackoffMS <= 0 {
		c.BackoffMS = 100
	}
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

// PahoClient implements the CommandSender interface using Eclipse Paho.
type PahoClient struct {
	cli         pahoClient
	ackTopic    string
	topicPrefix string
	qos         map[string]byte

	mu         sync.Mutex
	ackChans   map[string]chan bool
	logger     logger.Logger
	maxRetries int
	backoff    time.Duration
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// NewPahoClient connects to the MQTT broker and subscribes to the ACK topic.
func NewPahoClient(cfg Config) (*PahoClient, error) {
	cfg.SetDefaults()
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}

	log := logger.New("mqtt_client")
	pc := &PahoClient{
		ackTopic:    cfg.AckTopic,
		topicPrefix: cfg.TopicPrefix,
		ackChans:    make(map[string]chan bool),
		logger:      log,
		qos:         cfg.QoS,
		maxRetries:  cfg.MaxRetries,
		backoff:     time.Duration(cfg.BackoffMS) * time.Millisecond,
	}

	opts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected")
		qos := byte(0)
		if q, ok := pc.qos["ack"]; ok {
			qos = q
		}
		if token := c.Subscribe(pc.ackTopic, qos, pc.onAck); token.Wait() && token.Error() != nil {
			log.Errorf("subscribe error: %v", token.Error())
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	pc.cli = c
	return pc, nil
}

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.AuthMethod == "username_password" || cfg.AuthMethod == "both" || cfg.AuthMethod == "" {
		if cfg.Username != "" {
			opts.SetUsername(cfg.Username)
		}
		if cfg.Password != "" {
			opts.SetPassword(cfg.Password)
		}
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	if cfg.LWTTopic != "" {
		opts.SetWill(cfg.LWTTopic, cfg.LWTPayload, cfg.LWTQoS, cfg.LWTRetain)
	}
	return opts, nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(caBytes)
	cfg := &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}
	return cfg, nil
}

func (p *PahoClient) onAck(_ paho.Client, msg paho.Message) {
	var m struct {
		CommandID string `json:"command_id"`
		Accepted  bool   `json:"accepted"`
	}
	if err := json.Unmarshal(msg.Payload(), &m); err != nil {
		p.logger.Errorf("failed to decode ack: %v", err)
		return
	}
	p.mu.Lock()
	ch, ok := p.ackChans[m.CommandID]
	if ok {
		select {
		case ch <- m.Accepted:
		default:
		}
		p.logger.Debugf("received ack %s accepted=%v", m.CommandID, m.Accepted)
	}
	p.mu.Unlock()
}

// SendCommand publishes a power setpoint to the component specific topic and
// returns the command identifier used for acknowledgment tracking.
func (p *PahoClient) SendCommand(componentID string, value quantity.Quantity) (string, error) {
	cmdID := uuid.NewString()
	cmd := struct {
		CommandID   string  `json:"command_id"`
		ComponentID string  `json:"component_id"`
		Value       float64 `json:"value"`
		Unit        string  `json:"unit"`
		Timestamp   int64   `json:"timestamp"`
	}{
		CommandID:   cmdID,
		ComponentID: componentID,
		Value:       value.Value,
		Unit:        value.Unit.String(),
		Timestamp:   time.Now().UnixMilli(),
	}
	payload, err := json.Marshal(cmd)
	if err != nil {
		return "", err
	}

	// Register the ack channel before publishing so a fast component cannot
	// answer into the void.
	p.mu.Lock()
	p.ackChans[cmdID] = make(chan bool, 1)
	p.mu.Unlock()

	topic := fmt.Sprintf("%s/components/%s/set", p.topicPrefix, componentID)
	qos := byte(0)
	if q, ok := p.qos["command"]; ok {
		qos = q
	}
	var publishErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		token := p.cli.Publish(topic, qos, false, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			p.logger.Debugf("sent command %s to %s", cmdID, topic)
			break
		}
		p.logger.Errorf("publish attempt %d failed: %v", attempt+1, publishErr)
		time.Sleep(p.backoff * time.Duration(1<<attempt))
	}
	if publishErr != nil {
		p.mu.Lock()
		delete(p.ackChans, cmdID)
		p.mu.Unlock()
		return "", publishErr
	}
	return cmdID, nil
}

// WaitForAck blocks until an ACK for the given command ID is received or the
// timeout expires.
func (p *PahoClient) WaitForAck(commandID string, timeout time.Duration) (bool, error) {
	p.mu.Lock()
	ch := p.ackChans[commandID]
	p.mu.Unlock()
	if ch == nil {
		return false, fmt.Errorf("unknown command")
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case accepted := <-ch:
		p.mu.Lock()
		delete(p.ackChans, commandID)
		p.mu.Unlock()
		return accepted, nil
	case <-timer.C:
		p.mu.Lock()
		delete(p.ackChans, commandID)
		p.mu.Unlock()
		return false, fmt.Errorf("%w", ErrAckTimeout)
	}
}

// Disconnect gracefully closes the MQTT connection.
func (p *PahoClient) Disconnect() {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
}
