package saga

import (
	"context"
	"testing"
)

// The package-level wrappers share one Default orchestrator, so this test
// keeps to its own action names.
func TestDefaultOrchestratorWrappers(t *testing.T) {
	var log []string
	if err := RegisterHandler("pkg-greet", logHandler(&log, "greet", Success("hello"), nil)); err != nil {
		t.Fatalf("register handler: %v", err)
	}
	if err := RegisterHandler("pkg-wave", logHandler(&log, "wave", Success(nil), nil)); err != nil {
		t.Fatalf("register handler: %v", err)
	}

	greet, err := NewAction("pkglvl", "greet").Handler("pkg-greet").Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	wave, err := NewAction("pkglvl", "wave").Handler("pkg-wave").Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if err := Register(greet); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := Register(wave); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := RegisterSubscription("pkglvl.greet.success", "pkglvl.wave"); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if !IsRegistered("pkglvl.greet") {
		t.Fatalf("wrapper lost the registration")
	}
	if err := Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := StartAction(context.Background(), "pkglvl.greet", nil); err != nil {
		t.Fatalf("start: %v", err)
	}

	assertOrder(t, log, []string{"greet", "wave"})
	res, ok := LatestResult("pkglvl.greet")
	if !ok || res.Data != "hello" {
		t.Fatalf("unexpected latest result %+v %v", res, ok)
	}
}
