// Command demo renders an animated box scene through the frame pump and
// writes the final frame as PNG.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/comalice/framesync"
	"github.com/comalice/framesync/internal/production"
)

type options struct {
	config    string
	frames    uint64
	out       string
	thumbnail int
	dot       string
	watch     bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Render an animated scene through the frame pump",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, opts, cmd.OutOrStdout())
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.config, "config", "c", "", "YAML or TOML config file")
	f.Uint64VarP(&opts.frames, "frames", "n", 120, "stop after this many rendered frames (0 runs until interrupted)")
	f.StringVarP(&opts.out, "out", "o", "", "write the last frame to this PNG file")
	f.IntVar(&opts.thumbnail, "thumbnail", 0, "scale the written frame to this width")
	f.StringVar(&opts.dot, "dot", "", "write the pipeline graph in Graphviz DOT to this file")
	f.BoolVarP(&opts.watch, "watch", "w", false, "reload the config file when it changes")

	cmd.AddCommand(newGraphCmd())
	return cmd
}

func newGraphCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Print the pump's pipeline transition table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			v := &production.DOTExporter{}
			switch format {
			case "dot":
				fmt.Fprint(cmd.OutOrStdout(), v.ExportDOT(framesync.PipelineEdges(), framesync.Idle))
				return nil
			case "json":
				data, err := v.ExportJSON(framesync.PipelineEdges())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			default:
				return fmt.Errorf("unknown format %q", format)
			}
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "dot", "dot or json")
	return cmd
}
