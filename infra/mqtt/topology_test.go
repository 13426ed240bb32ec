package mqtt

import (
	"testing"

	"github.com/gridpool/gridpool/core/model"
	"github.com/gridpool/gridpool/core/quantity"
	"github.com/gridpool/gridpool/infra/logger"
	"github.com/gridpool/gridpool/internal/eventbus"
)

func newTestTopology() *PahoTopologyProvider {
	return &PahoTopologyProvider{
		prefix: "gridpool",
		unit:   quantity.Watt,
		log:    logger.New("test"),
		pools:  make(map[string][]model.Component),
		buses:  make(map[string]*eventbus.Bus[[]model.Component]),
	}
}

func TestOnSnapshot(t *testing.T) {
	p := newTestTopology()
	payload := []byte(`[
		{"id":"comp1","category":"battery","lower":-50,"upper":50,"available":true,"bounds_known":true},
		{"id":"comp2","category":"ev_charger","lower":-11,"upper":11,"exclusion_lower":-1.4,"exclusion_upper":1.4,"available":false,"bounds_known":true}
	]`)
	p.onSnapshot(nil, &fakeMessage{topic: "gridpool/pools/main/components", payload: payload})

	comps, err := p.Components("main")
	if err != nil {
		t.Fatalf("Components: %v", err)
	}
	if len(comps) != 2 {
		t.Fatalf("len = %d", len(comps))
	}
	c := comps[0]
	if c.ID != "comp1" || c.Category != model.CategoryBattery || !c.Available || !c.BoundsKnown {
		t.Errorf("comp1 = %+v", c)
	}
	if c.Bounds.Lower.Value != -50 || c.Bounds.Upper.Value != 50 || c.Bounds.Unit() != quantity.Watt {
		t.Errorf("bounds = %+v", c.Bounds)
	}
	c = comps[1]
	if c.Available || c.Exclusion.Lower.Value != -1.4 {
		t.Errorf("comp2 = %+v", c)
	}
}

func TestOnSnapshotReplacesPrevious(t *testing.T) {
	p := newTestTopology()
	p.onSnapshot(nil, &fakeMessage{
		topic:   "gridpool/pools/main/components",
		payload: []byte(`[{"id":"old","category":"battery","lower":0,"upper":5,"available":true,"bounds_known":true}]`),
	})
	p.onSnapshot(nil, &fakeMessage{
		topic:   "gridpool/pools/main/components",
		payload: []byte(`[{"id":"new","category":"battery","lower":0,"upper":9,"available":true,"bounds_known":true}]`),
	})
	comps, _ := p.Components("main")
	if len(comps) != 1 || comps[0].ID != "new" {
		t.Fatalf("snapshot not replaced: %+v", comps)
	}
}

func TestOnSnapshotDropsInvalidComponents(t *testing.T) {
	p := newTestTopology()
	payload := []byte(`[
		{"id":"","category":"battery","lower":0,"upper":5,"available":true,"bounds_known":true},
		{"id":"inverted","category":"battery","lower":5,"upper":0,"available":true,"bounds_known":true},
		{"id":"wideband","category":"battery","lower":-5,"upper":5,"exclusion_lower":-8,"exclusion_upper":8,"available":true,"bounds_known":true},
		{"id":"ok","category":"battery","lower":0,"upper":5,"available":true,"bounds_known":true}
	]`)
	p.onSnapshot(nil, &fakeMessage{topic: "gridpool/pools/main/components", payload: payload})
	comps, _ := p.Components("main")
	if len(comps) != 1 || comps[0].ID != "ok" {
		t.Fatalf("invalid components not dropped: %+v", comps)
	}
}

func TestOnSnapshotUnknownCategoryDefaultsToBattery(t *testing.T) {
	p := newTestTopology()
	payload := []byte(`[{"id":"x","category":"windmill","lower":0,"upper":5,"available":true,"bounds_known":true}]`)
	p.onSnapshot(nil, &fakeMessage{topic: "gridpool/pools/main/components", payload: payload})
	comps, _ := p.Components("main")
	if len(comps) != 1 || comps[0].Category != model.CategoryBattery {
		t.Fatalf("comps = %+v", comps)
	}
}

func TestOnSnapshotBadPayloadIgnored(t *testing.T) {
	p := newTestTopology()
	p.onSnapshot(nil, &fakeMessage{topic: "gridpool/pools/main/components", payload: []byte("not json")})
	if _, err := p.Components("main"); err == nil {
		t.Fatal("garbage snapshot must not create a pool")
	}
	p.onSnapshot(nil, &fakeMessage{topic: "short", payload: []byte("[]")})
}

func TestComponentsBeforeSnapshot(t *testing.T) {
	p := newTestTopology()
	if _, err := p.Components("main"); err == nil {
		t.Fatal("expected error before first snapshot")
	}
}

func TestTopologySubscribe(t *testing.T) {
	p := newTestTopology()
	sub := p.Subscribe("main")
	p.onSnapshot(nil, &fakeMessage{
		topic:   "gridpool/pools/main/components",
		payload: []byte(`[{"id":"a","category":"battery","lower":0,"upper":5,"available":true,"bounds_known":true}]`),
	})
	select {
	case comps := <-sub:
		if len(comps) != 1 || comps[0].ID != "a" {
			t.Fatalf("streamed = %+v", comps)
		}
	default:
		t.Fatal("no snapshot streamed")
	}
	p.Unsubscribe("main", sub)
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
