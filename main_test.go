package main

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandsReturnErrors(t *testing.T) {
	tests := []struct {
		name string
		cmd  func() *cobra.Command
		args []string
	}{
		{"quote", quoteCmd, []string{"PSG", "1"}},
		{"pay", payCmd, []string{"PSG", "1", "--merchant", "0x00000000000000000000000000000000000000aa"}},
		{"status", statusCmd, nil},
		{"prices", pricesCmd, nil},
		{"bridge-balance", bridgeBalanceCmd, nil},
		{"validate-pools", validatePoolsCmd, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("PRIVATE_KEY", "")
			t.Setenv("BUYER_PRIVATE_KEY", "")

			cmd := tt.cmd()
			cmd.SilenceUsage = true
			cmd.SilenceErrors = true
			cmd.SetArgs(tt.args)

			err := cmd.Execute()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "failed to load configuration")
		})
	}
}
