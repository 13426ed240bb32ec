package main

import (
	"context"
	"encoding/json"
	"log"
	"math/rand"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

var rng = rand.New(rand.NewSource(time.Now().UnixNano()))

// AckStrategy defines how a component acknowledges setpoint commands.
type AckStrategy interface {
	Ack(ctx context.Context, cli paho.Client, ackTopic, commandID string)
}

// AutoAck sends a positive ACK after an optional fixed delay.
type AutoAck struct {
	Delay time.Duration
}

// Ack implements AckStrategy.
func (a AutoAck) Ack(ctx context.Context, cli paho.Client, ackTopic, commandID string) {
	if a.Delay > 0 {
		select {
		case <-time.After(a.Delay):
		case <-ctx.Done():
			return
		}
	}
	publishAck(cli, ackTopic, commandID, true)
}

// RandomAck drops acknowledgments with the configured probability, answers
// negatively with another, and waits for the specified delay before sending.
type RandomAck struct {
	Delay    time.Duration
	DropRate float64
	NackRate float64
}

// Ack implements AckStrategy.
func (r RandomAck) Ack(ctx context.Context, cli paho.Client, ackTopic, commandID string) {
	if r.DropRate > 0 && rng.Float64() < r.DropRate {
		return
	}
	if r.Delay > 0 {
		select {
		case <-time.After(r.Delay):
		case <-ctx.Done():
			return
		}
	}
	accepted := !(r.NackRate > 0 && rng.Float64() < r.NackRate)
	publishAck(cli, ackTopic, commandID, accepted)
}

func publishAck(cli paho.Client, ackTopic, commandID string, accepted bool) {
	payload, err := json.Marshal(map[string]any{
		"command_id": commandID,
		"accepted":   accepted,
	})
	if err != nil {
		log.Printf("marshal ack: %v", err)
		return
	}
	if token := cli.Publish(ackTopic, 0, false, payload); token.Wait() && token.Error() != nil {
		log.Printf("publish ack %s: %v", commandID, token.Error())
	}
}
