// sagactl lints declarative action definitions and renders their dependency
// and subscription graphs.
package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/goliatone/go-saga/config"
)

var cli struct {
	Validate ValidateCmd `cmd:"" help:"Lint a definition document."`
	Graph    GraphCmd    `cmd:"" help:"Render the dependency and subscription tree of a definition document."`
}

// ValidateCmd loads a document and reports the lint result.
type ValidateCmd struct {
	File string `arg:"" type:"existingfile" help:"Definition document (YAML or JSON)."`
}

func (c *ValidateCmd) Run() error {
	def, err := config.Load(c.File)
	if err != nil {
		return err
	}
	fmt.Printf("%s: ok (%d actions, %d subscriptions)\n", c.File, len(def.Actions), len(def.Subscriptions))
	return nil
}

// GraphCmd renders what each action needs and what cascades from it.
type GraphCmd struct {
	File string `arg:"" type:"existingfile" help:"Definition document (YAML or JSON)."`
}

func (c *GraphCmd) Run() error {
	def, err := config.Load(c.File)
	if err != nil {
		return err
	}
	fmt.Print(renderGraph(def))
	return nil
}

func renderGraph(def config.Definition) string {
	actions := append([]config.ActionDefinition(nil), def.Actions...)
	sort.Slice(actions, func(i, j int) bool { return actions[i].FullName() < actions[j].FullName() })

	cascades := make(map[string][]config.SubscriptionDefinition)
	for _, sub := range def.Subscriptions {
		subject := strings.TrimSpace(sub.Subject)
		cascades[subject] = append(cascades[subject], sub)
	}
	for _, subs := range cascades {
		sort.Slice(subs, func(i, j int) bool { return subs[i].Key() < subs[j].Key() })
	}

	var b strings.Builder
	for _, action := range actions {
		b.WriteString(action.FullName())
		if channel := strings.TrimSpace(action.Channel); channel != "" && channel != "default" {
			fmt.Fprintf(&b, " [%s]", channel)
		}
		if action.Repeat {
			b.WriteString(" (repeat)")
		}
		b.WriteString("\n")

		for _, req := range action.Requires {
			fmt.Fprintf(&b, "  requires %s\n", req)
		}
		if action.Rollback != "" {
			fmt.Fprintf(&b, "  rollback %s\n", action.Rollback)
		}
		for _, sub := range cascades[action.FullName()] {
			fmt.Fprintf(&b, "  on %s -> %s\n", sub.Status, strings.Join(sub.Targets, ", "))
		}
	}
	return b.String()
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("sagactl"),
		kong.Description("Inspect and lint saga action definitions."),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(ctx.Run())
}
