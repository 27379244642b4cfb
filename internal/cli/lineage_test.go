package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineageCommandFlags(t *testing.T) {
	cmd := NewLineageCommand(&RootOptions{})

	for _, name := range []string{"ledger", "direction", "depth", "rel"} {
		require.NotNil(t, cmd.Flags().Lookup(name), "lineage command should have --%s", name)
	}
	assert.Equal(t, "ancestors", cmd.Flags().Lookup("direction").DefValue)
}

func TestLineageCommandAncestors(t *testing.T) {
	ledger, runID := seedLedger(t)

	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"lineage", runID, "--ledger", ledger, "--format", "json"})

	require.NoError(t, cmd.Execute())

	var resp struct {
		Status string        `json:"status"`
		Data   LineageResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, runID, resp.Data.Root)
	require.Len(t, resp.Data.Edges, 1)
	assert.Equal(t, "USES", resp.Data.Edges[0].Rel)
	assert.Equal(t, "System", resp.Data.Edges[0].FromKind)
}

func TestLineageCommandRelFilter(t *testing.T) {
	ledger, runID := seedLedger(t)

	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"lineage", runID, "--ledger", ledger,
		"--direction", "descendants", "--rel", "produces", "--format", "json"})

	require.NoError(t, cmd.Execute())

	var resp struct {
		Data LineageResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	require.Len(t, resp.Data.Edges, 1)
	assert.Equal(t, "PRODUCES", resp.Data.Edges[0].Rel)
	assert.Equal(t, "Results", resp.Data.Edges[0].ToKind)
}

func TestLineageCommandBadDirection(t *testing.T) {
	ledger, runID := seedLedger(t)

	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"lineage", runID, "--ledger", ledger, "--direction", "sideways"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
