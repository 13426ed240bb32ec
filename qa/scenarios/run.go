package scenarios

import (
	"math"
	"testing"
	"time"

	"github.com/gridpool/gridpool/core/logger"
	"github.com/gridpool/gridpool/core/model"
	"github.com/gridpool/gridpool/core/power"
	"github.com/gridpool/gridpool/core/proposal"
	"github.com/gridpool/gridpool/core/quantity"
	"github.com/gridpool/gridpool/infra/mqtt"
	"github.com/gridpool/gridpool/infra/topology"
)

const scenarioPool = "main"

// RunScenario arbitrates and distributes one scenario and checks the outcome.
func RunScenario(t *testing.T, sc *Scenario) {
	t.Helper()

	reducer := power.ReducerSum
	if sc.Reducer != "" {
		reducer = power.Reducer(sc.Reducer)
	}
	pool := power.PoolConfig{
		ID:       scenarioPool,
		UnitName: "W",
		Reducer:  reducer,
	}
	pool.SetDefaults()
	if err := pool.Normalize(); err != nil {
		t.Fatalf("pool config: %v", err)
	}

	store := proposal.NewStore(time.Minute, map[string]quantity.Unit{scenarioPool: quantity.Watt}, logger.Nop{})
	manager, err := power.NewManager(store, []power.PoolConfig{pool}, logger.Nop{})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}

	comps := make([]model.Component, len(sc.Components))
	for i, c := range sc.Components {
		comps[i] = c.ToModel()
	}
	provider := topology.NewStaticProvider(map[string][]model.Component{scenarioPool: comps})

	sender := mqtt.NewMockSender()
	for _, id := range sc.FailComponents {
		sender.FailIDs[id] = true
	}
	for _, id := range sc.NackComponents {
		sender.NackIDs[id] = true
	}

	distributor, err := power.NewDistributor(provider, sender, 10*time.Millisecond, logger.Nop{})
	if err != nil {
		t.Fatalf("distributor: %v", err)
	}

	now := time.Unix(0, 0)
	for i, p := range sc.Proposals {
		if err := store.Submit(p.ToModel(scenarioPool, now.Add(time.Duration(i)*time.Millisecond))); err != nil {
			t.Fatalf("submit %s: %v", p.ActorID, err)
		}
	}

	target, err := manager.Arbitrate(scenarioPool, now.Add(time.Second))
	if err != nil {
		t.Fatalf("arbitrate: %v", err)
	}
	if math.Abs(target.Value.Value-sc.Expected.Target) > 1e-6 {
		t.Errorf("scenario %s expected target %g, got %g", sc.Name, sc.Expected.Target, target.Value.Value)
	}

	res, _ := distributor.Distribute(target)
	if math.Abs(res.Achieved.Value-sc.Expected.Achieved) > 1e-6 {
		t.Errorf("scenario %s expected achieved %g, got %g", sc.Name, sc.Expected.Achieved, res.Achieved.Value)
	}
	if len(res.Succeeded) != sc.Expected.Succeeded {
		t.Errorf("scenario %s expected %d succeeded, got %d", sc.Name, sc.Expected.Succeeded, len(res.Succeeded))
	}
	if len(res.Failed) != sc.Expected.Failed {
		t.Errorf("scenario %s expected %d failed, got %d", sc.Name, sc.Expected.Failed, len(res.Failed))
	}
}
