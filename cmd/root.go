package main

import (
	"fmt"
	"strings"

	"smiroute/config"
	"smiroute/fabric"
	"smiroute/routing"
	"smiroute/storage"
	"smiroute/topology"

	"github.com/spf13/cobra"
)

type cli struct {
	configPath string
	verbose    bool
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "smiroute",
		Short: "Compute channel routes across an FPGA fabric",
		Long: `smiroute builds the channel graph of an FPGA fabric from its wiring and
program mapping, then computes the shortest hop sequence between channels.

A route may cross physical wires between devices and the crossbar inside a
device. Fabric files are TOML (.toml) or wiring lists (any other extension).

Examples:
  smiroute fpgas fabric.toml
  smiroute route fabric.toml n1:f1:ch0 n3:f1:ch3
  smiroute routes --out ./routes fabric.fabric`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.configPath)
			if err != nil {
				return err
			}
			c.cfg = cfg
			return setupLogging(&cfg.Log, c.verbose)
		},
	}

	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", config.DefaultPath, "path to the TOML configuration")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(c.newFPGAsCmd(), c.newRouteCmd(), c.newRoutesCmd())
	return root
}

// loadContext reads a fabric file and builds its routing context
func (c *cli) loadContext(path string) (*routing.Context, error) {
	f, err := fabric.LoadFile(path)
	if err != nil {
		return nil, err
	}
	if err := f.Mapping.Validate(); err != nil {
		return nil, err
	}
	return routing.NewContext(f.Connections, f.Mapping,
		routing.WithChannelsPerFPGA(c.cfg.Topology.ChannelsPerFPGA),
		routing.WithPrecompute(c.cfg.Routing.Precompute),
		routing.WithWorkers(c.cfg.Routing.Workers),
	)
}

func (c *cli) newFPGAsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fpgas <fabric>",
		Short: "List the FPGAs of a fabric in registry order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := c.loadContext(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for i, f := range ctx.FPGAs() {
				fmt.Fprintf(out, "%d\t%s\t%s\t%d channels\n", i, f.Key, f.Program, len(f.Channels))
			}
			for _, wire := range ctx.Graph().PhysicalEdges() {
				fmt.Fprintf(out, "wire\t%s -- %s\n", wire[0], wire[1])
			}
			return nil
		},
	}
}

func (c *cli) newRouteCmd() *cobra.Command {
	var showKinds bool

	cmd := &cobra.Command{
		Use:   "route <fabric> <source> <destination>",
		Short: "Print the shortest route between two channels",
		Long: `Print the shortest route between two channels written node:slot:chN.

Examples:
  smiroute route fabric.toml n1:f1:ch0 n3:f1:ch3
  smiroute route --kinds fabric.toml n1:f1:ch0 n3:f1:ch3`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := c.loadContext(args[0])
			if err != nil {
				return err
			}
			src, err := resolveChannel(ctx, args[1])
			if err != nil {
				return err
			}
			dst, err := resolveChannel(ctx, args[2])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if showKinds {
				hops, err := ctx.Hops(src, dst)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s\n", src)
				for _, h := range hops {
					fmt.Fprintf(out, "  -> %s (%s)\n", h.To, h.Kind)
				}
				fmt.Fprintf(out, "%d hops\n", len(hops))
				return nil
			}

			path, err := ctx.Route(src, dst)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, formatPath(path))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&showKinds, "kinds", "k", false, "show whether each hop is a physical wire or a crossbar hop")
	return cmd
}

func (c *cli) newRoutesCmd() *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "routes <fabric>",
		Short: "Compute the route between every pair of connected channels",
		Long: `Compute the route between every pair of connected channels. With --out the
table is written to <dir>/routes.json and left untouched when unchanged.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := c.loadContext(args[0])
			if err != nil {
				return err
			}
			doc := storage.NewRouteDocument(ctx)

			out := cmd.OutOrStdout()
			if outDir == "" {
				for _, r := range doc.Routes {
					fmt.Fprintf(out, "%s\t%s\t%s\n", r.Source, r.Destination, strings.Join(r.Hops, " -> "))
				}
				return nil
			}

			store, err := storage.NewRouteStore(outDir)
			if err != nil {
				return err
			}
			changed, err := store.Save(doc)
			if err != nil {
				return err
			}
			state := "unchanged"
			if changed {
				state = "written"
			}
			fmt.Fprintf(out, "%s %s (%d routes, md5 %s)\n", store.Path(), state, len(doc.Routes), store.Hash())
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "directory to write routes.json into")
	return cmd
}

func resolveChannel(ctx *routing.Context, s string) (topology.Channel, error) {
	e, err := fabric.ParseEndpoint(s)
	if err != nil {
		return topology.Channel{}, err
	}
	return ctx.Channel(e.Device, e.Channel)
}

func formatPath(path []topology.Channel) string {
	parts := make([]string, len(path))
	for i, c := range path {
		parts[i] = c.String()
	}
	return strings.Join(parts, " -> ")
}
