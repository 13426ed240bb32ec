package test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gridpool/gridpool/core/logger"
	coremetrics "github.com/gridpool/gridpool/core/metrics"
	"github.com/gridpool/gridpool/core/model"
	"github.com/gridpool/gridpool/core/power"
	"github.com/gridpool/gridpool/core/proposal"
	"github.com/gridpool/gridpool/core/quantity"
	"github.com/gridpool/gridpool/infra/metrics"
	"github.com/gridpool/gridpool/infra/mqtt"
)

func waitForMQTTReady(broker string, timeout time.Duration) error {
	opts := paho.NewClientOptions().AddBroker(broker).SetClientID("probe")
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		cli := paho.NewClient(opts)
		token := cli.Connect()
		token.Wait()
		if token.Error() == nil {
			cli.Disconnect(100)
			return nil
		}
		lastErr = token.Error()
		time.Sleep(100 * time.Millisecond)
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("timeout waiting for broker")
	}
	return lastErr
}

func startMosquitto(ctx context.Context, t *testing.T) (tc.Container, string) {
	t.Helper()
	conf := `listener 1883
allow_anonymous true
persistence false
log_dest stdout
`
	dir := t.TempDir()
	path := filepath.Join(dir, "mosquitto.conf")
	if err := os.WriteFile(path, []byte(conf), 0644); err != nil {
		t.Fatalf("write conf: %v", err)
	}

	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2.0",
		ExposedPorts: []string{"1883/tcp"},
		WaitingFor:   wait.ForListeningPort("1883/tcp"),
		Files: []tc.ContainerFile{
			{
				HostFilePath:      path,
				ContainerFilePath: "/mosquitto/config/mosquitto.conf",
				FileMode:          0644,
			},
		},
	}
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Skipf("container start: %v", err)
	}
	host, err := cont.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := cont.MappedPort(ctx, "1883")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	broker := fmt.Sprintf("tcp://%s:%s", host, port.Port())
	if err := waitForMQTTReady(broker, 5*time.Second); err != nil {
		t.Skipf("mosquitto not ready: %v", err)
	}
	return cont, broker
}

// connectComponentSim subscribes a fake component that acknowledges every
// setpoint command.
func connectComponentSim(broker string, t *testing.T) paho.Client {
	t.Helper()
	opts := paho.NewClientOptions().AddBroker(broker).SetClientID("comp-sim")
	cli := paho.NewClient(opts)
	var connErr error
	for i := 0; i < 5; i++ {
		token := cli.Connect()
		token.Wait()
		connErr = token.Error()
		if connErr == nil {
			break
		}
		time.Sleep(time.Duration(i+1) * 100 * time.Millisecond)
	}
	if connErr != nil {
		t.Skipf("component sim connect failed: %v", connErr)
	}
	if token := cli.Subscribe("gridpool/components/comp1/set", 0, func(_ paho.Client, m paho.Message) {
		var cmd struct {
			CommandID string `json:"command_id"`
		}
		_ = json.Unmarshal(m.Payload(), &cmd)
		payload, _ := json.Marshal(map[string]any{"command_id": cmd.CommandID, "accepted": true})
		cli.Publish("gridpool/components/ack", 0, false, payload)
	}); token.Wait() && token.Error() != nil {
		t.Fatalf("subscribe: %v", token.Error())
	}
	return cli
}

func publishSnapshot(broker string, t *testing.T) {
	t.Helper()
	opts := paho.NewClientOptions().AddBroker(broker).SetClientID("topo-sim")
	cli := paho.NewClient(opts)
	if token := cli.Connect(); token.Wait() && token.Error() != nil {
		t.Skipf("snapshot connect failed: %v", token.Error())
	}
	defer cli.Disconnect(100)
	payload, _ := json.Marshal([]map[string]any{{
		"id":           "comp1",
		"category":     "battery",
		"lower":        -50.0,
		"upper":        50.0,
		"available":    true,
		"bounds_known": true,
	}})
	if token := cli.Publish("gridpool/pools/main/components", 1, true, payload); token.Wait() && token.Error() != nil {
		t.Fatalf("publish snapshot: %v", token.Error())
	}
}

func waitForMetric(url, substr string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			body, _ := io.ReadAll(resp.Body)
			if err := resp.Body.Close(); err != nil {
				return err
			}
			if strings.Contains(string(body), substr) {
				return nil
			}
		}
		time.Sleep(50 * time.Millisecond)
	}
	return fmt.Errorf("metric %s not found", substr)
}

func TestDistributionWithMQTTContainer(t *testing.T) {
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("docker not installed")
	}
	ctx := context.Background()

	cont, broker := startMosquitto(ctx, t)
	defer func() { _ = cont.Terminate(ctx) }()

	compCli := connectComponentSim(broker, t)
	defer compCli.Disconnect(100)
	publishSnapshot(broker, t)

	reg := prometheus.NewRegistry()
	power.MustRegisterMetrics(reg)
	sinkIf, err := metrics.NewPromSinkWithRegistry(coremetrics.Config{}, reg)
	if err != nil {
		t.Fatalf("prom sink: %v", err)
	}
	sink := sinkIf.(*metrics.PromSink)

	sender, err := mqtt.NewPahoClient(mqtt.Config{
		Broker:   broker,
		ClientID: "coordinator",
	})
	if err != nil {
		t.Fatalf("mqtt client: %v", err)
	}
	defer sender.Disconnect()

	topo, err := mqtt.NewPahoTopologyProvider(mqtt.Config{
		Broker:   broker,
		ClientID: "coordinator-topo",
	}, quantity.Watt)
	if err != nil {
		t.Fatalf("topology: %v", err)
	}
	defer func() { _ = topo.Close() }()

	// The retained snapshot arrives asynchronously after subscribing.
	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := topo.Components("main"); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("topology snapshot never arrived")
		}
		time.Sleep(50 * time.Millisecond)
	}

	pool := power.PoolConfig{ID: "main", UnitName: "W"}
	pool.SetDefaults()
	if err := pool.Normalize(); err != nil {
		t.Fatalf("pool: %v", err)
	}
	store := proposal.NewStore(time.Minute, map[string]quantity.Unit{"main": quantity.Watt}, logger.Nop{})
	manager, err := power.NewManager(store, []power.PoolConfig{pool}, logger.Nop{})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	distributor, err := power.NewDistributor(topo, sender, 5*time.Second, logger.Nop{})
	if err != nil {
		t.Fatalf("distributor: %v", err)
	}
	coordinator, err := power.NewCoordinator(store, manager, distributor, time.Second, sink, logger.Nop{})
	if err != nil {
		t.Fatalf("coordinator: %v", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go coordinator.Run(runCtx)

	results := coordinator.SubscribeResults("main")
	if err := coordinator.SubmitProposal(model.Proposal{
		ActorID:   "e2e",
		PoolID:    "main",
		Value:     quantity.Watts(20),
		Priority:  1,
		CreatedAt: time.Now(),
	}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	select {
	case res := <-results:
		if res.Achieved.Value != 20 {
			t.Fatalf("expected achieved 20, got %g", res.Achieved.Value)
		}
		if len(res.Succeeded) != 1 {
			t.Fatalf("expected 1 succeeded, got %d", len(res.Succeeded))
		}
	case <-time.After(10 * time.Second):
		t.Fatal("no distribution result")
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	metricsTS := httptest.NewServer(mux)
	defer metricsTS.Close()

	expected := `power_commands_total{acknowledged="true",component_id="comp1",pool="main"}`
	if err := waitForMetric(metricsTS.URL+"/metrics", expected, 5*time.Second); err != nil {
		t.Fatalf("metric wait: %v", err)
	}
}
