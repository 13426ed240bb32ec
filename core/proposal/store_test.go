package proposal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gridpool/gridpool/core/model"
	"github.com/gridpool/gridpool/core/quantity"
)

func watts(v float64) quantity.Quantity { return quantity.Watts(v) }

func newTestStore() *Store {
	return NewStore(time.Minute, map[string]quantity.Unit{"main": quantity.Watt}, nil)
}

func TestSubmitValidation(t *testing.T) {
	s := newTestStore()
	if err := s.Submit(model.Proposal{PoolID: "main", Value: watts(1)}); err == nil {
		t.Error("empty actor id must be rejected")
	}
	if err := s.Submit(model.Proposal{ActorID: "a", Value: watts(1)}); err == nil {
		t.Error("empty pool id must be rejected")
	}
	err := s.Submit(model.Proposal{ActorID: "a", PoolID: "main", Value: quantity.Amperes(1)})
	if !errors.Is(err, ErrInvalidUnit) {
		t.Errorf("wrong unit: got %v", err)
	}
	// Pools without a configured unit accept anything.
	if err := s.Submit(model.Proposal{ActorID: "a", PoolID: "other", Value: quantity.Amperes(1)}); err != nil {
		t.Errorf("unconfigured pool: %v", err)
	}
}

func TestSubmitRejectsOverrideUnit(t *testing.T) {
	s := newTestStore()
	override, _ := quantity.NewBound(quantity.Amperes(0), quantity.Amperes(5))
	err := s.Submit(model.Proposal{ActorID: "a", PoolID: "main", Value: watts(1), BoundsOverride: &override})
	if !errors.Is(err, ErrInvalidUnit) {
		t.Errorf("override unit mismatch: got %v", err)
	}
}

func TestLastWriterWins(t *testing.T) {
	s := newTestStore()
	now := time.Now()
	if err := s.Submit(model.Proposal{ActorID: "a", PoolID: "main", Value: watts(10), CreatedAt: now}); err != nil {
		t.Fatal(err)
	}
	if err := s.Submit(model.Proposal{ActorID: "a", PoolID: "main", Value: watts(20), CreatedAt: now.Add(time.Second)}); err != nil {
		t.Fatal(err)
	}
	live := s.Live("main", now.Add(2*time.Second))
	if len(live) != 1 {
		t.Fatalf("live = %d proposals", len(live))
	}
	if live[0].Value.Value != 20 {
		t.Errorf("kept value %v, want the newer 20", live[0].Value)
	}
}

func TestExpiry(t *testing.T) {
	s := newTestStore()
	now := time.Now()
	_ = s.Submit(model.Proposal{ActorID: "a", PoolID: "main", Value: watts(10), CreatedAt: now})

	if got := s.Live("main", now.Add(59*time.Second)); len(got) != 1 {
		t.Fatalf("proposal inside window missing: %d", len(got))
	}
	// Expiry is inclusive at the window edge, and the purge is permanent.
	if got := s.Live("main", now.Add(time.Minute)); len(got) != 0 {
		t.Fatalf("expired proposal still live: %d", len(got))
	}
	if s.Len() != 0 {
		t.Errorf("expired proposal not purged, len = %d", s.Len())
	}
}

func TestWithdraw(t *testing.T) {
	s := newTestStore()
	now := time.Now()
	_ = s.Submit(model.Proposal{ActorID: "a", PoolID: "main", Value: watts(10), CreatedAt: now})
	s.Withdraw("a", "main")
	if got := s.Live("main", now); len(got) != 0 {
		t.Fatalf("withdrawn proposal still live")
	}
	// Withdrawing again is fine.
	s.Withdraw("a", "main")
}

func TestLiveOrderingAndIsolation(t *testing.T) {
	s := newTestStore()
	now := time.Now()
	_ = s.Submit(model.Proposal{ActorID: "b", PoolID: "main", Value: watts(2), CreatedAt: now.Add(time.Second)})
	_ = s.Submit(model.Proposal{ActorID: "a", PoolID: "main", Value: watts(1), CreatedAt: now})
	_ = s.Submit(model.Proposal{ActorID: "c", PoolID: "other", Value: watts(3), CreatedAt: now})

	live := s.Live("main", now.Add(2*time.Second))
	if len(live) != 2 {
		t.Fatalf("live = %d", len(live))
	}
	if live[0].ActorID != "a" || live[1].ActorID != "b" {
		t.Errorf("order = %s, %s", live[0].ActorID, live[1].ActorID)
	}
}

func TestLiveTieBreaksOnActor(t *testing.T) {
	s := newTestStore()
	now := time.Now()
	_ = s.Submit(model.Proposal{ActorID: "z", PoolID: "main", Value: watts(1), CreatedAt: now})
	_ = s.Submit(model.Proposal{ActorID: "a", PoolID: "main", Value: watts(2), CreatedAt: now})
	live := s.Live("main", now)
	if live[0].ActorID != "a" {
		t.Errorf("equal timestamps must order by actor id, got %s first", live[0].ActorID)
	}
}

func TestDefaultExpiry(t *testing.T) {
	s := NewStore(0, nil, nil)
	if s.ExpiryWindow() != DefaultExpiryWindow {
		t.Errorf("expiry = %s", s.ExpiryWindow())
	}
}

func TestSweeper(t *testing.T) {
	s := NewStore(10*time.Millisecond, nil, nil)
	_ = s.Submit(model.Proposal{ActorID: "a", PoolID: "main", Value: watts(10)})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.StartSweeper(ctx, 5*time.Millisecond)

	deadline := time.Now().Add(time.Second)
	for s.Len() > 0 {
		if time.Now().After(deadline) {
			t.Fatal("sweeper never purged the expired proposal")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
