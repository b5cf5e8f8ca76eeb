package cmd

import (
	"fmt"

	"github.com/encodeous/netsim/core"
	"github.com/spf13/cobra"
)

var tableCmd = &cobra.Command{
	Use:     "table [router...]",
	Aliases: []string{"routes"},
	Short:   "Print converged routing tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadTopology()
		if err != nil {
			return err
		}
		log, err := newLogger(cmd)
		if err != nil {
			return err
		}
		n, err := core.Simulate(cfg, log)
		if err != nil {
			return err
		}
		routers, err := selectRouters(n, args)
		if err != nil {
			return err
		}
		showLSDB, _ := cmd.Flags().GetBool("lsdb")
		showReach, _ := cmd.Flags().GetBool("reach")

		out := cmd.OutOrStdout()
		for i, r := range routers {
			if i > 0 {
				fmt.Fprintln(out)
			}
			fmt.Fprintf(out, "Routing table of %s\n", r)
			if err := core.DumpTable(r, out); err != nil {
				return err
			}
			if showLSDB && r.OSPF() != nil {
				fmt.Fprintf(out, "\nLink-state database of %s\n", r)
				if err := core.DumpLSDB(r, out); err != nil {
					return err
				}
			}
			if showReach {
				fmt.Fprintf(out, "\nreachable: %v\nunreachable: %v\n", core.Reachable(r), core.Unreachable(n, r))
			}
		}
		return nil
	},
	GroupID: "sim",
}

func init() {
	rootCmd.AddCommand(tableCmd)

	tableCmd.Flags().BoolP("verbose", "v", false, "Verbose output")
	tableCmd.Flags().StringP("log", "l", "", "Also write logs to this file")
	tableCmd.Flags().Bool("lsdb", false, "Also print the link-state database of OSPF routers")
	tableCmd.Flags().Bool("reach", false, "Also print the reachable and unreachable subnets")
}
