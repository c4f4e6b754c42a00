package cmd

import (
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"

	internalcmd "github.com/statuskit/statusd/internal/cmd"
	"github.com/statuskit/statusd/internal/daemon"
)

func TestNewRootCmd(t *testing.T) {
	rootCmd, err := NewRootCmd(hclog.NewNullLogger())
	require.NoError(t, err)

	require.Equal(t, "statusd", rootCmd.Name())
	require.NotNil(t, rootCmd.PersistentFlags().Lookup("config-file"))
	require.NotNil(t, rootCmd.PersistentFlags().Lookup("log-level"))
	require.NotNil(t, rootCmd.PersistentFlags().Lookup("log-path"))

	names := make([]string, 0, len(rootCmd.Commands()))
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	require.Contains(t, names, "init")
	require.Contains(t, names, "daemon")
}

func TestNewDaemonCmd_Flags(t *testing.T) {
	daemonCmd, err := NewDaemonCmd(&internalcmd.BaseCmd{})
	require.NoError(t, err)

	addr := daemonCmd.Flags().Lookup("addr")
	require.NotNil(t, addr)
	require.Equal(t, "0.0.0.0:8095", addr.DefValue)

	interval := daemonCmd.Flags().Lookup("check-interval")
	require.NotNil(t, interval)
	require.Equal(t, daemon.DefaultCheckInterval().String(), interval.DefValue)

	require.NotNil(t, daemonCmd.Flags().Lookup("dev"))
	require.NotNil(t, daemonCmd.Flags().Lookup("no-watch"))
	require.NotNil(t, daemonCmd.Flags().Lookup("cors-origin"))
}
