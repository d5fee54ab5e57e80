package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	saga "github.com/goliatone/go-saga"
)

var pipelineYAML = []byte(`
version: 1
actions:
  - service_id: inventory
    name: reserve
    handler: inventory.reserve
    rollback: inventory.release
  - service_id: payment
    name: charge
    handler: payment.charge
    rollback: payment.refund
    requires: ["inventory.reserve"]
    bindings:
      gateway: stripe
  - service_id: notify
    name: email
    handler: notify.email
subscriptions:
  - subject: payment.charge
    status: success
    targets: ["notify.email"]
`)

func TestParseYAML(t *testing.T) {
	def, err := Parse(pipelineYAML)
	require.NoError(t, err)

	assert.Equal(t, 1, def.Version)
	require.Len(t, def.Actions, 3)
	assert.Equal(t, "payment.charge", def.Actions[1].FullName())
	assert.Equal(t, []string{"inventory.reserve"}, def.Actions[1].Requires)
	assert.Equal(t, "stripe", def.Actions[1].Bindings["gateway"])

	require.Len(t, def.Subscriptions, 1)
	assert.Equal(t, "payment.charge.success", def.Subscriptions[0].Key())
}

func TestParseJSON(t *testing.T) {
	doc := []byte(`{
		"version": 1,
		"actions": [
			{"service_id": "svc", "name": "step", "handler": "svc.step"}
		]
	}`)
	def, err := Parse(doc)
	require.NoError(t, err)
	require.Len(t, def.Actions, 1)
	assert.Equal(t, "svc.step", def.Actions[0].FullName())
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name string
		def  Definition
		want string
	}{
		{
			name: "missing service id",
			def: Definition{Actions: []ActionDefinition{
				{Name: "step", Handler: "h"},
			}},
			want: "service_id is required",
		},
		{
			name: "dotted segment",
			def: Definition{Actions: []ActionDefinition{
				{ServiceID: "svc.sub", Name: "step", Handler: "h"},
			}},
			want: "must not contain dots",
		},
		{
			name: "missing handler",
			def: Definition{Actions: []ActionDefinition{
				{ServiceID: "svc", Name: "step"},
			}},
			want: "handler is required",
		},
		{
			name: "duplicate action",
			def: Definition{Actions: []ActionDefinition{
				{ServiceID: "svc", Name: "step", Handler: "h"},
				{ServiceID: "svc", Name: "step", Handler: "h"},
			}},
			want: "duplicate action svc.step",
		},
		{
			name: "undeclared requirement",
			def: Definition{Actions: []ActionDefinition{
				{ServiceID: "svc", Name: "step", Handler: "h", Requires: []string{"other.missing"}},
			}},
			want: "requires undeclared action other.missing",
		},
		{
			name: "undeclared subject",
			def: Definition{
				Actions: []ActionDefinition{
					{ServiceID: "svc", Name: "step", Handler: "h"},
				},
				Subscriptions: []SubscriptionDefinition{
					{Subject: "ghost.step", Status: "success", Targets: []string{"svc.step"}},
				},
			},
			want: "subject ghost.step is not declared",
		},
		{
			name: "undeclared target",
			def: Definition{
				Actions: []ActionDefinition{
					{ServiceID: "svc", Name: "step", Handler: "h"},
				},
				Subscriptions: []SubscriptionDefinition{
					{Subject: "svc.step", Status: "success", Targets: []string{"ghost.step"}},
				},
			},
			want: "target ghost.step is not declared",
		},
		{
			name: "cross channel subscription",
			def: Definition{
				Actions: []ActionDefinition{
					{ServiceID: "orders", Name: "place", Handler: "h", Channel: "commerce"},
					{ServiceID: "audit", Name: "log", Handler: "h", Channel: "compliance"},
				},
				Subscriptions: []SubscriptionDefinition{
					{Subject: "orders.place", Status: "success", Targets: []string{"audit.log"}},
				},
			},
			want: "crosses channels commerce -> compliance",
		},
		{
			name: "duplicate subscription",
			def: Definition{
				Actions: []ActionDefinition{
					{ServiceID: "svc", Name: "a", Handler: "h"},
					{ServiceID: "svc", Name: "b", Handler: "h"},
				},
				Subscriptions: []SubscriptionDefinition{
					{Subject: "svc.a", Status: "success", Targets: []string{"svc.b"}},
					{Subject: "svc.a", Status: "success", Targets: []string{"svc.b"}},
				},
			},
			want: "duplicate subscription svc.a.success",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.def.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestValidateDefaultChannelBridges(t *testing.T) {
	def := Definition{
		Actions: []ActionDefinition{
			{ServiceID: "orders", Name: "place", Handler: "h", Channel: "commerce"},
			{ServiceID: "audit", Name: "log", Handler: "h"},
		},
		Subscriptions: []SubscriptionDefinition{
			{Subject: "orders.place", Status: "success", Targets: []string{"audit.log"}},
		},
	}
	require.NoError(t, def.Validate())
}

func TestApplyRegistersEverything(t *testing.T) {
	def, err := Parse(pipelineYAML)
	require.NoError(t, err)

	engine := saga.New()
	require.NoError(t, def.Apply(engine))

	assert.True(t, engine.IsRegistered("inventory.reserve"))
	assert.True(t, engine.IsRegistered("payment.charge"))
	assert.True(t, engine.IsRegistered("notify.email"))
	assert.Equal(t, []string{"notify.email"}, engine.SubscribersOf("payment.charge.success"))

	charge, err := engine.Get("payment.charge")
	require.NoError(t, err)
	assert.Equal(t, "payment.refund", charge.Rollback)
	assert.Equal(t, []string{"inventory.reserve"}, charge.Requires)
}

func TestApplyThenRun(t *testing.T) {
	def, err := Parse(pipelineYAML)
	require.NoError(t, err)

	engine := saga.New()
	require.NoError(t, def.Apply(engine))

	var order []string
	record := func(name string) saga.HandlerFactory {
		return func(saga.Injections) (saga.Handler, error) {
			return saga.HandlerFunc(func(context.Context) (*saga.Result, error) {
				order = append(order, name)
				return saga.Success(name), nil
			}), nil
		}
	}
	require.NoError(t, engine.RegisterHandler("inventory.reserve", record("reserve")))
	require.NoError(t, engine.RegisterHandler("payment.charge", record("charge")))
	require.NoError(t, engine.RegisterHandler("notify.email", record("email")))
	require.NoError(t, engine.RegisterCompensator("inventory.release", func(saga.Injections) (saga.Compensator, error) {
		return saga.CompensatorFunc(func(context.Context) error { return nil }), nil
	}))
	require.NoError(t, engine.RegisterCompensator("payment.refund", func(saga.Injections) (saga.Compensator, error) {
		return saga.CompensatorFunc(func(context.Context) error { return nil }), nil
	}))

	require.NoError(t, engine.StartAction(context.Background(), "payment.charge", nil))
	assert.Equal(t, []string{"reserve", "charge", "email"}, order)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, pipelineYAML, 0o644))

	def, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, def.Actions, 3)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
