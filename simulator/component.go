package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// SimulatedComponent connects to MQTT and acknowledges setpoint commands.
type SimulatedComponent struct {
	ID          string
	Broker      string
	TopicPrefix string
	Lower       float64
	Upper       float64
	Strategy    AckStrategy

	client   paho.Client
	cmdCh    chan string
	mu       sync.Mutex
	setpoint float64
}

// NewSimulatedComponent creates a new component.
func NewSimulatedComponent(id, broker, prefix string, strat AckStrategy) *SimulatedComponent {
	return &SimulatedComponent{
		ID:          id,
		Broker:      broker,
		TopicPrefix: prefix,
		Strategy:    strat,
		cmdCh:       make(chan string, 50),
	}
}

// Setpoint returns the last accepted setpoint.
func (c *SimulatedComponent) Setpoint() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setpoint
}

// Run connects to the broker and listens for commands until ctx is done.
func (c *SimulatedComponent) Run(ctx context.Context) error {
	cli, err := newMQTTClient(c.Broker, "sim-"+c.ID)
	if err != nil {
		return err
	}
	c.client = cli
	for i := 0; i < 5; i++ {
		go c.worker(ctx)
	}
	topic := fmt.Sprintf("%s/components/%s/set", c.TopicPrefix, c.ID)
	if token := cli.Subscribe(topic, 0, c.onCommand); token.Wait() && token.Error() != nil {
		cli.Disconnect(250)
		return token.Error()
	}
	<-ctx.Done()
	close(c.cmdCh)
	cli.Disconnect(250)
	return nil
}

func (c *SimulatedComponent) onCommand(_ paho.Client, msg paho.Message) {
	var m struct {
		CommandID string  `json:"command_id"`
		Value     float64 `json:"value"`
	}
	if err := json.Unmarshal(msg.Payload(), &m); err != nil {
		log.Printf("%s: decode command: %v", c.ID, err)
		return
	}
	c.mu.Lock()
	c.setpoint = m.Value
	c.mu.Unlock()
	select {
	case c.cmdCh <- m.CommandID:
	default:
		log.Printf("%s: ack queue full, dropping command %s", c.ID, m.CommandID)
	}
}

func (c *SimulatedComponent) worker(ctx context.Context) {
	ackTopic := c.TopicPrefix + "/components/ack"
	for {
		select {
		case cmdID, ok := <-c.cmdCh:
			if !ok {
				return
			}
			c.Strategy.Ack(ctx, c.client, ackTopic, cmdID)
		case <-ctx.Done():
			return
		}
	}
}
