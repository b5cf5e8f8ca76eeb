package cmd

import (
	"fmt"

	"github.com/encodeous/netsim/core"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Print the devices and links of the topology",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadTopology()
		if err != nil {
			return err
		}
		log, err := newLogger(cmd)
		if err != nil {
			return err
		}
		n, err := core.BuildNetwork(cfg, log)
		if err != nil {
			return err
		}
		return core.DumpGraph(n, cmd.OutOrStdout())
	},
	GroupID: "cfg",
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the topology file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadTopology()
		if err != nil {
			return err
		}
		segments, err := cfg.GetSegments()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s is valid: %d routers, %d hosts, %d segments, %d networks\n",
			topologyPath, len(cfg.Routers), len(cfg.Hosts), len(segments), len(cfg.Networks()))
		return err
	},
	GroupID: "cfg",
}

func init() {
	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(validateCmd)

	graphCmd.Flags().BoolP("verbose", "v", false, "Verbose output")
	graphCmd.Flags().StringP("log", "l", "", "Also write logs to this file")
}
