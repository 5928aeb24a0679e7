package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chazu/glyphgraph/internal/config"
	"github.com/chazu/glyphgraph/pkg/graph"
)

// NewRenderCommand creates the render command.
func NewRenderCommand() *cobra.Command {
	var target, cutoff string

	cmd := &cobra.Command{
		Use:   "render FILE",
		Short: "Render a graph to SVG or PNG",
		Long: `Render evaluates the output node of a graph file and writes the result.

Graph documents (.yaml, .yml, .json) and scripts (.lisp, .zy) are accepted.
--cutoff renders an intermediate node, touching only its ancestors.`,
		Example: `  glyphgraph render logo.yaml -o logo.svg
  glyphgraph render logo.lisp --cutoff glow --format png -o glow.png`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := GetConfig(cmd.Context())
			app := NewApp(cfg)

			l, err := app.Load(args[0])
			if err != nil {
				return err
			}

			format := cfg.Format
			if !cmd.Flags().Changed("format") && strings.EqualFold(filepath.Ext(cfg.Output), ".png") {
				format = config.FormatPNG
			}
			data, err := app.Render(cmd.Context(), l, RenderOptions{
				Target:     graph.NodeID(target),
				Cutoff:     graph.NodeID(cutoff),
				Resolution: cfg.Resolution,
				Format:     format,
			})
			if err != nil {
				return err
			}

			if cfg.Output == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(cfg.Output, data, 0o644); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%d bytes)\n", cfg.Output, len(data))
			return nil
		},
	}

	cmd.Flags().StringVar(&target, "target", "", "Node to render (default: the graph's output)")
	cmd.Flags().StringVar(&cutoff, "cutoff", "", "Render this node instead, evaluating only its ancestors")
	cmd.Flags().Int("resolution", 0, "Output size in pixels")
	cmd.Flags().StringP("output", "o", "", "Output path (default: stdout)")
	cmd.Flags().String("format", "", "Output format (svg|png)")

	_ = cmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{config.FormatSVG, config.FormatPNG}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}
