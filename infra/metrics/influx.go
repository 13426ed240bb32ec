package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/gridpool/gridpool/core/metrics"
	"github.com/gridpool/gridpool/infra/logger"
)

// InfluxSink writes distribution outcomes to an InfluxDB instance using the
// official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordDistribution writes one distribution summary point plus one point per
// component command.
func (s *InfluxSink) RecordDistribution(rec coremetrics.DistributionRecord, cmds []coremetrics.CommandRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("power_distribution").
		AddTag("pool", rec.PoolID).
		AddTag("unit", rec.Unit).
		AddTag("component", "power_distributor").
		AddField("requested", round3(rec.Requested)).
		AddField("achieved", round3(rec.Achieved)).
		AddField("succeeded", rec.Succeeded).
		AddField("failed", rec.Failed).
		AddField("priority", rec.Priority).
		AddField("proposals", rec.Proposals).
		SetTime(rec.Time)
	if err := s.writeAPI.WritePoint(ctx, p); err != nil {
		return err
	}
	for _, c := range cmds {
		p := write.NewPointWithMeasurement("power_command").
			AddTag("pool", c.PoolID).
			AddTag("component_id", c.ComponentID).
			AddTag("acknowledged", strconv.FormatBool(c.Acknowledged)).
			AddTag("unit", c.Unit).
			AddTag("component", "power_distributor").
			AddField("value", round3(c.Value)).
			AddField("latency_ms", round3(c.Latency.Seconds()*1000)).
			AddField("errors", c.Error).
			SetTime(c.Time)
		if err := s.writeAPI.WritePoint(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// RecordProposal writes a proposal lifecycle event.
func (s *InfluxSink) RecordProposal(ev coremetrics.ProposalEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("power_proposal").
		AddTag("pool", ev.PoolID).
		AddTag("actor", ev.ActorID).
		AddTag("action", ev.Action).
		AddTag("unit", ev.Unit).
		AddTag("component", "power_manager").
		AddField("value", round3(ev.Value)).
		AddField("priority", ev.Priority).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordResampleGap writes a resampler output gap event.
func (s *InfluxSink) RecordResampleGap(ev coremetrics.ResampleGapEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("resampling_gap").
		AddTag("series", ev.SeriesID).
		AddTag("component", "resampler").
		AddField("count", 1).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the InfluxDB client resources.
func (s *InfluxSink) Close() {
	s.client.Close()
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
