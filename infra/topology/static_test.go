package topology

import (
	"testing"

	"github.com/gridpool/gridpool/core/model"
	"github.com/gridpool/gridpool/core/quantity"
)

func battery(id string, upper float64) model.Component {
	return model.Component{
		ID:          id,
		Category:    model.CategoryBattery,
		Bounds:      quantity.Bound{Lower: quantity.Watts(0), Upper: quantity.Watts(upper)},
		Available:   true,
		BoundsKnown: true,
	}
}

func TestComponentsUnknownPool(t *testing.T) {
	p := NewStaticProvider(nil)
	if _, err := p.Components("ghost"); err == nil {
		t.Fatal("unknown pool must error")
	}
}

func TestComponentsReturnsCopy(t *testing.T) {
	p := NewStaticProvider(map[string][]model.Component{"main": {battery("a", 10)}})
	comps, err := p.Components("main")
	if err != nil {
		t.Fatalf("Components: %v", err)
	}
	comps[0].ID = "mutated"
	again, _ := p.Components("main")
	if again[0].ID != "a" {
		t.Fatal("caller mutation leaked into the provider")
	}
}

func TestSetComponentsNotifiesSubscribers(t *testing.T) {
	p := NewStaticProvider(nil)
	sub := p.Subscribe("main")
	p.SetComponents("main", []model.Component{battery("a", 10), battery("b", 20)})

	select {
	case comps := <-sub:
		if len(comps) != 2 {
			t.Fatalf("streamed %d components", len(comps))
		}
	default:
		t.Fatal("no snapshot streamed")
	}

	comps, err := p.Components("main")
	if err != nil || len(comps) != 2 {
		t.Fatalf("Components = %v, %v", comps, err)
	}

	p.Unsubscribe("main", sub)
	p.SetComponents("main", []model.Component{battery("c", 5)})
	if _, ok := <-sub; ok {
		t.Fatal("unsubscribed channel must be closed")
	}
}

func TestStaticProviderClose(t *testing.T) {
	p := NewStaticProvider(nil)
	sub := p.Subscribe("main")
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, ok := <-sub; ok {
		t.Fatal("subscription must be closed")
	}
}
