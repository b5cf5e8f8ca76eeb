package state

import (
	"fmt"
	"slices"
	"strings"
)

// Endpoint is one attachment point of a segment. Interface is empty for hosts.
type Endpoint struct {
	Node      NodeId
	Interface string
}

func (e Endpoint) String() string {
	if e.Interface == "" {
		return string(e.Node)
	}
	return string(e.Node) + ":" + e.Interface
}

// Segment is a shared link: every endpoint reaches every other endpoint directly.
type Segment struct {
	Endpoints []Endpoint
}

func parseEndpoint(s string) (Endpoint, error) {
	node, itf, found := strings.Cut(s, ":")
	node = strings.TrimSpace(node)
	itf = strings.TrimSpace(itf)
	if found && itf == "" {
		return Endpoint{}, fmt.Errorf("endpoint %s has an empty interface name", s)
	}
	return Endpoint{Node: NodeId(node), Interface: itf}, nil
}

func parseSymbolList(s string, validSymbols []string) ([]string, error) {
	spl := strings.Split(strings.TrimSpace(s), ",")
	line := make([]string, 0)
	for _, s := range spl {
		x := strings.TrimSpace(s)
		if x == "" {
			continue
		}
		node, _, _ := strings.Cut(x, ":")
		if !slices.Contains(validSymbols, strings.TrimSpace(node)) {
			return nil, fmt.Errorf(`%s is not a valid node/group`, x)
		}
		line = append(line, x)
	}
	if len(line) == 0 {
		return nil, fmt.Errorf(`node/group list must not be empty`)
	}
	return line, nil
}

/*
ParseSegments reads the segment syntax of the topology file:

	lan1 = host1, host2            // a group of endpoints
	lan2 = lan1, host3             // groups may contain groups
	router1:eth0, lan2             // one segment: router1's eth0 and every member of lan2
	router1:eth1, router2:eth0     // a point-to-point segment

Router endpoints must name an interface, hosts must not; that is checked by TopologyValidator.
nodes is the set of device names the graph may reference.
*/
func ParseSegments(graph []string, nodes []string) ([]Segment, error) {
	groups := make(map[string][]string)
	symbols := slices.Clone(nodes)

	// pass 0, collect all symbols
	for _, line := range graph {
		line = strings.TrimSpace(line)
		if strings.Contains(line, "=") {
			spl := strings.Split(line, "=")
			if len(spl) != 2 {
				return nil, fmt.Errorf("invalid graph: %s. group definition must contain one '='", line)
			}
			grp := strings.TrimSpace(spl[0])
			if slices.Contains(nodes, grp) {
				return nil, fmt.Errorf("group name must not be a node name: %s", grp)
			}
			symbols = append(symbols, grp)
		}
	}
	slices.Sort(symbols)
	symbols = slices.Compact(symbols)

	// map: group -> groups it depends on
	topo := make(map[string][]string)
	expansion := make(map[string][]string)
	lines := make([][]string, 0)

	// pass 1, parse graph
	for _, line := range graph {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.Contains(line, "=") {
			spl := strings.Split(line, "=")
			grp := strings.TrimSpace(spl[0])
			if _, ok := groups[grp]; ok {
				return nil, fmt.Errorf("duplicate group name: %s", grp)
			}
			lst, err := parseSymbolList(spl[1], symbols)
			if err != nil {
				return nil, err
			}
			deps := make([]string, 0)
			for _, l := range lst {
				node, _, _ := strings.Cut(l, ":")
				if !slices.Contains(nodes, node) {
					deps = append(deps, l)
				} else {
					expansion[grp] = append(expansion[grp], l)
				}
			}
			slices.Sort(deps)
			deps = slices.Compact(deps)
			topo[grp] = deps
			groups[grp] = lst
		} else {
			names, err := parseSymbolList(line, symbols)
			if err != nil {
				return nil, err
			}
			lines = append(lines, names)
		}
	}

	// pass 2, expand group names in dependency order
	for len(topo) > 0 {
		var group string
		for k, v := range topo {
			if len(v) == 0 && (group == "" || k < group) {
				group = k
			}
		}
		if group == "" {
			cycleNodes := make([]string, 0)
			for node := range topo {
				cycleNodes = append(cycleNodes, node)
			}
			slices.Sort(cycleNodes)
			return nil, fmt.Errorf("cycle detected in graph: %v", cycleNodes)
		}
		delete(topo, group)

		for k, deps := range topo {
			if slices.Contains(deps, group) {
				expansion[k] = append(expansion[k], expansion[group]...)
				topo[k] = slices.DeleteFunc(deps, func(dep string) bool {
					return dep == group
				})
			}
		}
	}

	// pass 3, build segments
	segments := make([]Segment, 0, len(lines))
	for _, names := range lines {
		eps := make([]Endpoint, 0)
		for _, name := range names {
			members := []string{name}
			if exp, ok := expansion[name]; ok {
				members = exp
			} else if _, ok := groups[name]; ok {
				members = nil
			}
			for _, m := range members {
				ep, err := parseEndpoint(m)
				if err != nil {
					return nil, err
				}
				if !slices.Contains(eps, ep) {
					eps = append(eps, ep)
				}
			}
		}
		if len(eps) < 2 {
			return nil, fmt.Errorf("invalid segment, %v", names)
		}
		segments = append(segments, Segment{Endpoints: eps})
	}
	return segments, nil
}
