package saga

import (
	"context"
	"errors"
	"testing"
	"time"
)

// frozenProvider resolves refs but accepts no registrations.
type frozenProvider struct {
	inner *Factories
}

func (p frozenProvider) HasHandler(ref string) bool     { return p.inner.HasHandler(ref) }
func (p frozenProvider) HasCompensator(ref string) bool { return p.inner.HasCompensator(ref) }
func (p frozenProvider) Scope(serviceID string) Scope   { return p.inner.Scope(serviceID) }

// countRecorder tallies metric calls by name.
type countRecorder struct {
	durations map[string]int
	outcomes  map[string]int
}

func newCountRecorder() *countRecorder {
	return &countRecorder{durations: map[string]int{}, outcomes: map[string]int{}}
}

func (r *countRecorder) RecordDuration(name string, d time.Duration) { r.durations[name]++ }
func (r *countRecorder) RecordError(name string)                     { r.outcomes[name]++ }
func (r *countRecorder) RecordSuccess(name string)                   { r.outcomes[name]++ }

func TestRegisterSubscriptionParsesKey(t *testing.T) {
	o := New()
	mustHandler(t, o, "h", func(in Injections) (Handler, error) {
		return HandlerFunc(func(ctx context.Context) (*Result, error) { return Success(nil), nil }), nil
	})
	mustRegister(t, o, NewAction("payment", "charge").Handler("h"))
	mustRegister(t, o, NewAction("notify", "email").Handler("h"))

	if err := o.RegisterSubscription("payment.charge.success", "notify.email"); err != nil {
		t.Fatalf("register subscription: %v", err)
	}
	targets := o.SubscribersOf("payment.charge.success")
	if len(targets) != 1 || targets[0] != "notify.email" {
		t.Fatalf("unexpected targets %v", targets)
	}

	err := o.RegisterSubscription("not-a-key", "notify.email")
	if err == nil || errorCode(err) != ErrCodeIdentityInvalid {
		t.Fatalf("expected identity error, got %v", err)
	}
}

func TestOrchestratorQueries(t *testing.T) {
	o := New()
	mustHandler(t, o, "h", func(in Injections) (Handler, error) {
		return HandlerFunc(func(ctx context.Context) (*Result, error) { return Success(nil), nil }), nil
	})
	mustRegister(t, o, NewAction("zeta", "step").Handler("h"))
	mustRegister(t, o, NewAction("alpha", "step").Handler("h"))

	got, err := o.Get("alpha.step")
	if err != nil || got.FullName() != "alpha.step" {
		t.Fatalf("get: %v %v", got, err)
	}
	all := o.Actions()
	if len(all) != 2 || all[0].FullName() != "alpha.step" || all[1].FullName() != "zeta.step" {
		t.Fatalf("unexpected action listing %v", all)
	}
	if o.IsRegistered("ghost.step") {
		t.Fatalf("unknown action reported registered")
	}
}

func TestReadOnlyProviderRejectsRegistration(t *testing.T) {
	inner := NewFactories()
	if err := inner.RegisterHandler("h", func(in Injections) (Handler, error) {
		return HandlerFunc(func(ctx context.Context) (*Result, error) { return Success("frozen"), nil }), nil
	}); err != nil {
		t.Fatalf("seed provider: %v", err)
	}

	o := New(WithScopeProvider(frozenProvider{inner: inner}))
	err := o.RegisterHandler("late", func(in Injections) (Handler, error) { return nil, nil })
	if err == nil || errorCode(err) != ErrCodeProviderReadOnly {
		t.Fatalf("expected provider-readonly, got %v", err)
	}
	if !IsStructural(err) {
		t.Fatalf("expected structural classification")
	}

	// resolution still works through the frozen provider
	mustRegister(t, o, NewAction("cold", "step").Handler("h"))
	var final *Result
	if err := o.StartAction(context.Background(), "cold.step", func(res *Result) { final = res }); err != nil {
		t.Fatalf("start: %v", err)
	}
	if final == nil || final.Data != "frozen" {
		t.Fatalf("unexpected result %+v", final)
	}
}

func TestStartValidatesDefinitionsFirst(t *testing.T) {
	o := New()
	var log []string
	mustRegister(t, o, NewAction("ghost", "step").Handler("unbound"))

	err := o.StartAction(context.Background(), "ghost.step", nil)
	if err == nil || errorCode(err) != ErrCodeHandlerMissing {
		t.Fatalf("expected handler-missing before any execution, got %v", err)
	}
	if len(log) != 0 {
		t.Fatalf("validation failure still executed: %v", log)
	}
}

func TestMetricsRecordOutcomes(t *testing.T) {
	recorder := newCountRecorder()
	o := New(WithMetrics(recorder))
	var log []string
	mustHandler(t, o, "reserve", logHandler(&log, "reserve", Success(nil), nil))
	mustHandler(t, o, "charge", logHandler(&log, "charge", Success(nil), nil))
	mustRegister(t, o, NewAction("inventory", "reserve").Handler("reserve"))
	mustRegister(t, o, NewAction("payment", "charge").Handler("charge").Requires("inventory.reserve"))

	if err := o.StartAction(context.Background(), "payment.charge", nil); err != nil {
		t.Fatalf("start: %v", err)
	}
	if recorder.durations[metricTaskDuration] != 2 {
		t.Fatalf("expected 2 task durations, got %d", recorder.durations[metricTaskDuration])
	}
	if recorder.outcomes[metricTaskSuccess] != 2 || recorder.outcomes[metricRunCompleted] != 1 {
		t.Fatalf("unexpected success counts %v", recorder.outcomes)
	}

	mustHandler(t, o, "boom", logHandler(&log, "boom", nil, errors.New("boom")))
	mustRegister(t, o, NewAction("job", "boom").Handler("boom"))
	if err := o.StartAction(context.Background(), "job.boom", nil); !IsRunAborted(err) {
		t.Fatalf("expected abort, got %v", err)
	}
	if recorder.outcomes[metricTaskError] != 1 || recorder.outcomes[metricRunFailed] != 1 {
		t.Fatalf("unexpected failure counts %v", recorder.outcomes)
	}
}

func TestLatestResultQuery(t *testing.T) {
	o := New()
	var log []string
	mustHandler(t, o, "h", logHandler(&log, "h", Success("payload"), nil))
	mustRegister(t, o, NewAction("svc", "step").Handler("h"))

	if _, ok := o.LatestResult("svc.step"); ok {
		t.Fatalf("result before any run")
	}
	if err := o.StartAction(context.Background(), "svc.step", nil); err != nil {
		t.Fatalf("start: %v", err)
	}
	res, ok := o.LatestResult("svc.step")
	if !ok || res.Data != "payload" {
		t.Fatalf("unexpected latest result %+v %v", res, ok)
	}
}
