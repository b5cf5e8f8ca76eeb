package cmd

import (
	"bytes"
	"net/netip"
	"testing"

	"github.com/encodeous/netsim/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
	return buf.String()
}

func TestParseSend(t *testing.T) {
	pkt, err := parseSend("host1:10.0.4.10")
	require.NoError(t, err)
	assert.Equal(t, state.PacketCfg{From: "host1", To: netip.MustParseAddr("10.0.4.10")}, pkt)

	pkt, err = parseSend("host1:10.0.4.10:3")
	require.NoError(t, err)
	assert.Equal(t, uint8(3), pkt.TTL)

	_, err = parseSend("host1")
	assert.Error(t, err)
	_, err = parseSend("host1:10.0.4")
	assert.Error(t, err)
	_, err = parseSend("host1:10.0.4.10:300")
	assert.ErrorContains(t, err, "invalid ttl")
}

func TestRunCommand(t *testing.T) {
	out := execute(t, "run", "-t", "../core/testdata/advanced.yaml")
	assert.Contains(t, out, "host1 -> 192.168.5.10: delivered: router1 (ttl 63) -> router2 (ttl 62) -> router5 (ttl 61) -> host5\n")
	assert.Contains(t, out, "host5 -> 192.168.1.11: delivered: router5 (ttl 63) -> router2 (ttl 62) -> router1 (ttl 61) -> host2\n")
	assert.Contains(t, out, "host1 -> 192.168.5.10: dropped at router2: ttl expired (192.168.1.10 -> 192.168.5.10, ttl 0)\n  path: router1 (ttl 0) -> *\n")
}

func TestRunCommandSend(t *testing.T) {
	out := execute(t, "run", "-t", "../core/testdata/ospf.yaml", "--send", "host4:10.0.1.10")
	assert.Contains(t, out, "host4 -> 10.0.1.10: delivered: router4 (ttl 63) -> router2 (ttl 62) -> router1 (ttl 61) -> host1\n")
}

func TestRunCommandReports(t *testing.T) {
	out := execute(t, "run", "-t", "../core/testdata/static.yaml", "--tables", "--stats")
	assert.Contains(t, out, "Routing table of router3(")
	assert.Contains(t, out, "192.168.2.0  255.255.255.0  router1   eth0       1\n")
	assert.Contains(t, out, "PacketsDelivered = ")
	assert.Contains(t, out, "SPFRuns = ")
}

func TestTableCommand(t *testing.T) {
	out := execute(t, "table", "-t", "../core/testdata/static.yaml", "router3")
	assert.Contains(t, out, "Routing table of router3(")
	assert.Contains(t, out, "192.168.2.0  255.255.255.0  router1   eth0       1\n")
	assert.NotContains(t, out, "router2(")
}

func TestValidateCommand(t *testing.T) {
	out := execute(t, "validate", "-t", "../core/testdata/static.yaml")
	assert.Equal(t, "../core/testdata/static.yaml is valid: 3 routers, 6 hosts, 4 segments, 4 networks\n", out)
}

func TestGraphCommand(t *testing.T) {
	out := execute(t, "graph", "-t", "../core/testdata/ospf.yaml")
	assert.Contains(t, out, "router1 -- router2\n")
	assert.Contains(t, out, "host4    host    10.0.4.10/24\n")
}
