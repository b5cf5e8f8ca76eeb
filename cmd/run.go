package cmd

import (
	"context"
	"expvar"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"

	"github.com/encodeous/netsim/core"
	"github.com/encodeous/netsim/perf"
	"github.com/encodeous/netsim/state"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Converge the network and send packets through it",
	Long: `Builds the topology, runs its routing protocols until they converge and then sends every packet of
the topology file, followed by the packets given with --send.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadTopology()
		if err != nil {
			return err
		}
		sends, _ := cmd.Flags().GetStringArray("send")
		for _, s := range sends {
			pkt, err := parseSend(s)
			if err != nil {
				return err
			}
			cfg.Packets = append(cfg.Packets, pkt)
		}
		// re-check the packets given on the command line
		if err := state.TopologyValidator(cfg); err != nil {
			return err
		}

		log, err := newLogger(cmd)
		if err != nil {
			return err
		}
		var n *core.Network
		if ok, _ := cmd.Flags().GetBool("concurrent"); ok {
			n, err = core.SimulateConcurrent(context.Background(), cfg, log)
		} else {
			n, err = core.Simulate(cfg, log)
		}
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, pkt := range cfg.Packets {
			ttl := pkt.TTL
			if ttl == 0 {
				ttl = state.DefaultTTL
			}
			trace, err := n.Send(pkt.From, pkt.To, []byte(pkt.Payload), ttl)
			if err != nil {
				fmt.Fprintf(out, "%s -> %s: %v\n", pkt.From, pkt.To, err)
				if trace != nil && len(trace.Hops) > 0 {
					fmt.Fprintf(out, "  path: %s\n", trace)
				}
				continue
			}
			fmt.Fprintf(out, "%s -> %s: delivered: %s\n", pkt.From, pkt.To, trace)
		}

		if ok, _ := cmd.Flags().GetBool("tables"); ok {
			for _, r := range n.Routers() {
				fmt.Fprintf(out, "\nRouting table of %s\n", r)
				if err := core.DumpTable(r, out); err != nil {
					return err
				}
			}
		}
		if ok, _ := cmd.Flags().GetBool("stats"); ok {
			fmt.Fprintln(out)
			expvar.Do(func(kv expvar.KeyValue) {
				if strings.HasPrefix(kv.Key, "netsim:") {
					fmt.Fprintf(out, "%s = %s\n", strings.TrimPrefix(kv.Key, "netsim:"), kv.Value)
				}
			})
		}
		if addr, _ := cmd.Flags().GetString("listen"); addr != "" {
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return err
			}
			log.Info("serving metrics until interrupted", "addr", ln.Addr())
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return perf.Serve(ctx, ln)
		}
		return nil
	},
	GroupID: "sim",
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("verbose", "v", false, "Verbose output")
	runCmd.Flags().StringP("log", "l", "", "Also write logs to this file")
	runCmd.Flags().StringArrayP("send", "s", nil, "Send a packet, as host:destination[:ttl]")
	runCmd.Flags().BoolP("concurrent", "c", false, "Run every router in its own goroutine")
	runCmd.Flags().Bool("tables", false, "Print every routing table after sending")
	runCmd.Flags().Bool("stats", false, "Print simulation counters")
	runCmd.Flags().String("listen", "", "Keep serving /debug/metrics and /debug/vars on this address")
}
