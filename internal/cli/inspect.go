package cli

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/chazu/glyphgraph/pkg/eval"
	"github.com/chazu/glyphgraph/pkg/graph"
)

const keyPrefixLen = 12

// NewInspectCommand creates the inspect command.
func NewInspectCommand() *cobra.Command {
	var target string

	cmd := &cobra.Command{
		Use:   "inspect FILE",
		Short: "Show the nodes of a graph in evaluation order",
		Long: `Inspect evaluates the target node once and prints a table of every node
it depends on, in evaluation order, with its kind, connected inputs and
cache key prefix.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := GetConfig(cmd.Context())
			app := NewApp(cfg)

			l, err := app.Load(args[0])
			if err != nil {
				return err
			}
			req, err := app.request(l, RenderOptions{Target: graph.NodeID(target), Resolution: cfg.Resolution})
			if err != nil {
				return err
			}
			order, err := l.Graph.Order(req.Target)
			if err != nil {
				return err
			}

			_, evalErr := app.Evaluator().EvaluateWith(cmd.Context(), l.Graph, req)
			rows := inspectRows(l.Graph, order, app.Evaluator().LastPass())

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"#", "Node", "Kind", "Inputs", "Key"})
			for i, r := range rows {
				t.AppendRow(table.Row{i + 1, r.ID, r.Kind, r.Inputs, r.Key})
			}
			t.Render()

			if evalErr != nil {
				return fmt.Errorf("evaluate %s: %w", req.Target.Short(), evalErr)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&target, "target", "", "Node to inspect (default: the graph's output)")
	cmd.Flags().Int("resolution", 0, "Resolution the cache keys are computed for")

	return cmd
}

type inspectRow struct {
	ID     string
	Kind   string
	Inputs string
	Key    string
}

func inspectRows(g *graph.Graph, order []graph.NodeID, pass eval.PassStats) []inspectRow {
	rows := make([]inspectRow, 0, len(order))
	for _, id := range order {
		n, _ := g.Node(id)
		r := inspectRow{ID: string(id), Kind: string(n.Kind), Inputs: "-", Key: "-"}

		edges := g.Inputs(id)
		if len(edges) > 0 {
			parts := make([]string, 0, len(edges))
			for _, e := range g.Edges() {
				if e.Target == id {
					parts = append(parts, fmt.Sprintf("%s<-%s", e.TargetPort, e.Source))
				}
			}
			r.Inputs = strings.Join(parts, ", ")
		}
		if k, ok := pass.Keys[id]; ok {
			if len(k) > keyPrefixLen {
				k = k[:keyPrefixLen]
			}
			r.Key = k
		}
		rows = append(rows, r)
	}
	return rows
}
