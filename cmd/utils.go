package cmd

import (
	"fmt"
	"log/slog"
	"net/netip"
	"strconv"
	"strings"

	"github.com/encodeous/netsim/core"
	"github.com/encodeous/netsim/state"
	"github.com/spf13/cobra"
)

func loadTopology() (*state.TopologyCfg, error) {
	if err := state.PathValidator(topologyPath); err != nil {
		return nil, err
	}
	cfg, err := state.ReadTopology(topologyPath)
	if err != nil {
		return nil, err
	}
	if err := state.TopologyValidator(cfg); err != nil {
		return nil, fmt.Errorf("invalid topology %s: %w", topologyPath, err)
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command) (*slog.Logger, error) {
	level := slog.LevelWarn
	if ok, _ := cmd.Flags().GetBool("verbose"); ok {
		level = slog.LevelDebug
	}
	logPath, _ := cmd.Flags().GetString("log")
	return core.NewLogger(level, logPath, "netsim ")
}

// parseSend reads a packet given as host:destination[:ttl].
func parseSend(s string) (state.PacketCfg, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return state.PacketCfg{}, fmt.Errorf("%q is not of the form host:destination[:ttl]", s)
	}
	dst, err := netip.ParseAddr(parts[1])
	if err != nil {
		return state.PacketCfg{}, err
	}
	pkt := state.PacketCfg{From: state.NodeId(parts[0]), To: dst}
	if len(parts) == 3 {
		ttl, err := strconv.ParseUint(parts[2], 10, 8)
		if err != nil {
			return state.PacketCfg{}, fmt.Errorf("invalid ttl %q: %w", parts[2], err)
		}
		pkt.TTL = uint8(ttl)
	}
	return pkt, nil
}

func selectRouters(n *core.Network, names []string) ([]*core.Router, error) {
	if len(names) == 0 {
		return n.Routers(), nil
	}
	res := make([]*core.Router, 0, len(names))
	for _, name := range names {
		r, ok := n.Router(state.NodeId(name))
		if !ok {
			return nil, fmt.Errorf("%s is not a router", name)
		}
		res = append(res, r)
	}
	return res, nil
}
