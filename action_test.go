package saga

import "testing"

func TestActionBuilderBuildsIdentity(t *testing.T) {
	action, err := NewAction("inventory", "reserve").
		Handler("reserve").
		Rollback("release").
		Requires("warehouse.allocate").
		Bind("region", "us-east-1").
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if action.FullName() != "inventory.reserve" {
		t.Fatalf("unexpected full name %s", action.FullName())
	}
	if action.Channel != ChannelDefault {
		t.Fatalf("expected default channel, got %s", action.Channel)
	}
	if v := action.Bindings["region"]; v != "us-east-1" {
		t.Fatalf("binding lost: %v", action.Bindings)
	}
}

func TestActionBuilderRejectsBadIdentity(t *testing.T) {
	cases := []struct {
		name    string
		builder *ActionBuilder
	}{
		{"missing name", NewAction("inventory", "").Handler("h")},
		{"dotted service id", NewAction("inven.tory", "reserve").Handler("h")},
		{"missing handler", NewAction("inventory", "reserve")},
		{"malformed requires", NewAction("inventory", "reserve").Handler("h").Requires("not-a-pair")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.builder.Build()
			if err == nil {
				t.Fatalf("expected identity error")
			}
			if errorCode(err) != ErrCodeIdentityInvalid {
				t.Fatalf("expected %s, got %v", ErrCodeIdentityInvalid, err)
			}
		})
	}
}

func TestActionRegistryNormalizesOnRegister(t *testing.T) {
	reg := NewActionRegistry()
	err := reg.Register(&Action{ServiceID: " inventory ", Name: " reserve", Handler: " reserve "})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	got, err := reg.Get("inventory.reserve")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Handler != "reserve" || got.Channel != ChannelDefault {
		t.Fatalf("normalization lost: %+v", got)
	}
}

func TestActionRegistryRejectsDuplicates(t *testing.T) {
	reg := NewActionRegistry()
	action := &Action{ServiceID: "inventory", Name: "reserve", Handler: "h"}
	if err := reg.Register(action); err != nil {
		t.Fatalf("first register: %v", err)
	}
	err := reg.Register(action)
	if err == nil || errorCode(err) != ErrCodeAlreadyRegistered {
		t.Fatalf("expected duplicate rejection, got %v", err)
	}
}

func TestActionRegistryStoresCopies(t *testing.T) {
	reg := NewActionRegistry()
	action := &Action{ServiceID: "inventory", Name: "reserve", Handler: "h", Requires: []string{"warehouse.allocate"}}
	if err := reg.Register(action); err != nil {
		t.Fatalf("register: %v", err)
	}

	action.Requires[0] = "mutated.later"
	got, err := reg.Get("inventory.reserve")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Requires[0] != "warehouse.allocate" {
		t.Fatalf("registry shared the caller's slice: %v", got.Requires)
	}

	got.Handler = "mutated"
	again, _ := reg.Get("inventory.reserve")
	if again.Handler != "h" {
		t.Fatalf("get returned a shared copy")
	}
}

func TestActionRegistryGetUnknown(t *testing.T) {
	reg := NewActionRegistry()
	_, err := reg.Get("ghost.action")
	if err == nil || errorCode(err) != ErrCodeActionNotFound {
		t.Fatalf("expected not-found, got %v", err)
	}
	if reg.Has("ghost.action") {
		t.Fatalf("Has reported an unregistered action")
	}
}

func TestActionRegistryAllSorted(t *testing.T) {
	reg := NewActionRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := reg.Register(&Action{ServiceID: name, Name: "step", Handler: "h"}); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}
	all := reg.All()
	if len(all) != 3 {
		t.Fatalf("expected 3 actions, got %d", len(all))
	}
	want := []string{"alpha.step", "mid.step", "zeta.step"}
	for i, a := range all {
		if a.FullName() != want[i] {
			t.Fatalf("expected %s at %d, got %s", want[i], i, a.FullName())
		}
	}
}
