package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gordian-engine/netsync"
	"github.com/gordian-engine/netsync/nsinterp"
	"github.com/gordian-engine/netsync/nspredict"
	"github.com/gordian-engine/netsync/nswire"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "demo.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
role: client
listen: 127.0.0.1:7001
peer: 127.0.0.1:7000
overflow: reject
match: index
interp_delay: 0
`), 0o644))

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "client", cfg.Role)
	require.Equal(t, 64, cfg.TickRateHz, "unset fields keep their defaults")

	sc, err := cfg.sessionConfig()
	require.NoError(t, err)
	require.Equal(t, netsync.RoleClient, sc.Role)
	require.Equal(t, nspredict.Reject, sc.Overflow)
	require.Equal(t, nsinterp.MatchByIndex, sc.Match)
	require.True(t, sc.ZeroInterpDelay)
}

func TestSessionConfig_invalid(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	cfg.Role = "client"
	cfg.Overflow = "sometimes"
	cfg.TickRateHz = 0

	_, err := cfg.sessionConfig()
	require.ErrorContains(t, err, "peer")
	require.ErrorContains(t, err, "sometimes")
	require.ErrorContains(t, err, "tick_rate_hz")
}

func TestApplyCommand(t *testing.T) {
	t.Parallel()

	w := initialWorld(2)
	moved := applyCommand(w, nswire.Command{EntityID: 1, Input: inputRight | inputUp})

	require.Equal(t, float32(2), w.Entities[1].Position[0], "input snapshot is unchanged")
	require.Equal(t, float32(2+stepSize), moved.Entities[1].Position[0])
	require.Equal(t, float32(stepSize), moved.Entities[1].Position[1])
	require.Equal(t, w.Entities[0], moved.Entities[0])

	same := applyCommand(w, nswire.Command{EntityID: 99, Input: inputLeft})
	require.Equal(t, w, same)
}

func TestUnappliedCommands(t *testing.T) {
	t.Parallel()

	cmds := []nswire.Command{{Input: 5, Reserved: 5}, {Input: 6, Reserved: 6}, {Input: 7, Reserved: 7}}

	// Packet 7 resends commands first sent in 5, 6 and 7.
	p := nswire.Packet{Seq: 7, Commands: cmds}

	require.Equal(t, cmds, unappliedCommands(p, 0))
	require.Equal(t, cmds, unappliedCommands(p, 4))
	require.Equal(t, cmds[1:], unappliedCommands(p, 5))
	require.Equal(t, cmds[2:], unappliedCommands(p, 6))
	require.Empty(t, unappliedCommands(p, 7))
	require.Empty(t, unappliedCommands(p, 9), "late packets carry nothing new")
}

func TestUnappliedCommands_matchesReplay(t *testing.T) {
	t.Parallel()

	// Client predicts one command per packet and resends all pending ones.
	// Packets 2 and 3 are lost; the server then sees 4, then 1 again.
	var pending []nswire.Command
	var packets []nswire.Packet
	for seq := uint32(1); seq <= 4; seq++ {
		pending = append(pending, nswire.Command{
			Input:    scriptedInput(seq * 64),
			Reserved: uint64(seq),
		})
		packets = append(packets, nswire.Packet{
			Seq:      seq,
			Commands: append([]nswire.Command(nil), pending...),
		})
	}

	server := initialWorld(1)
	var applied uint32
	for _, p := range []nswire.Packet{packets[0], packets[3], packets[0]} {
		for _, c := range unappliedCommands(p, applied) {
			server = applyCommand(server, c)
		}
		applied = max(applied, p.Seq)
	}

	predicted := initialWorld(1)
	for _, c := range pending {
		predicted = applyCommand(predicted, c)
	}

	require.Equal(t, predicted, server)
}
