package core

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"

	"github.com/encodeous/netsim/state"
	"github.com/encodeous/tint"
	slogmulti "github.com/samber/slog-multi"
)

// NewLogger logs to stderr and, if logPath is set, to a file as well.
func NewLogger(level slog.Level, logPath string, prefix string) (*slog.Logger, error) {
	handlers := make([]slog.Handler, 0)
	handlers = append(handlers,
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:        level,
			AddSource:    false,
			CustomPrefix: prefix,
			ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
				if attr.Key == "time" {
					return slog.Attr{}
				}
				return attr
			},
		}))

	if logPath != "" {
		err := os.MkdirAll(path.Dir(logPath), 0700)
		if err != nil {
			return nil, err
		}
		f, err := os.OpenFile(logPath, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0700)
		if err != nil {
			return nil, err
		}
		handlers = append(handlers, slog.NewTextHandler(f, &slog.HandlerOptions{Level: level}))
	}

	return slog.New(slogmulti.Fanout(handlers...)), nil
}

// BuildNetwork creates every device of cfg, wires the segments and enables the configured routing
// protocols. Protocols are not started.
func BuildNetwork(cfg *state.TopologyCfg, log *slog.Logger) (*Network, error) {
	if err := state.TopologyValidator(cfg); err != nil {
		return nil, err
	}
	n := NewNetwork(log)

	for _, rc := range cfg.Routers {
		r := NewRouter(rc.Id, rc.Rid(), NewAddressResolver(cfg.ArpTTL), n.Log)
		for _, itf := range rc.Interfaces {
			if err := r.AddInterface(itf.Name, itf.Addr, state.MustParseHwAddr(itf.Hw)); err != nil {
				return nil, err
			}
		}
		for _, route := range rc.Routes {
			if err := r.AddRoute(route.Prefix, route.NextHop, route.Interface, route.Metric); err != nil {
				return nil, err
			}
		}
		switch rc.Protocol {
		case state.ProtocolRIP:
			r.EnableRIP(cfg.RIP, n.sched)
		case state.ProtocolOSPF:
			r.EnableOSPF(cfg.OSPF)
		}
		if err := n.AddRouter(r); err != nil {
			return nil, err
		}
	}
	for _, hc := range cfg.Hosts {
		h := NewHost(hc.Id, state.MustParseHwAddr(hc.Hw), hc.Addr, hc.Gateway, NewAddressResolver(cfg.ArpTTL), n.Log)
		if err := n.AddHost(h); err != nil {
			return nil, err
		}
	}

	segments, err := cfg.GetSegments()
	if err != nil {
		return nil, err
	}
	for _, seg := range segments {
		if err := n.Connect(seg); err != nil {
			return nil, fmt.Errorf("failed to connect segment %v: %w", seg.Endpoints, err)
		}
	}
	n.Log.Debug("built network", "routers", len(cfg.Routers), "hosts", len(cfg.Hosts), "segments", len(segments))
	return n, nil
}

// Simulate builds the network, starts its routing protocols and lets them converge.
func Simulate(cfg *state.TopologyCfg, log *slog.Logger) (*Network, error) {
	n, err := BuildNetwork(cfg, log)
	if err != nil {
		return nil, err
	}
	if err := converge(n); err != nil {
		return nil, err
	}
	return n, nil
}

// SimulateConcurrent is Simulate with every router handling its messages in its own goroutine.
// The routers are stopped once the network has converged.
func SimulateConcurrent(ctx context.Context, cfg *state.TopologyCfg, log *slog.Logger) (*Network, error) {
	n, err := BuildNetwork(cfg, log)
	if err != nil {
		return nil, err
	}
	rt := Start(ctx, n)
	err = converge(n)
	if stopErr := rt.Stop(); err == nil {
		err = stopErr
	}
	if err != nil {
		return nil, err
	}
	return n, nil
}

func converge(n *Network) error {
	if err := n.Start(); err != nil {
		return err
	}
	if err := n.Converge(); err != nil {
		return err
	}
	n.Log.Info("network converged", "time", n.Now().Sub(state.Epoch))
	return nil
}
