package cmd

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// executeCommand runs a cobra command and captures its output.
func executeCommand(root *cobra.Command, args ...string) (string, error) {
	b := new(bytes.Buffer)
	root.SetOut(b)
	root.SetErr(b)
	root.SetArgs(args)
	err := root.Execute()
	return b.String(), err
}

func TestRootHelpListsWorkflows(t *testing.T) {
	out, err := executeCommand(rootCmd, "--help")
	require.NoError(t, err)

	for _, sub := range []string{"shell", "ssh", "forward", "alb", "rds", "ecs", "logs", "whoami"} {
		assert.Contains(t, out, sub, "help should list the %s workflow", sub)
	}
}

func TestCommandsRegistered(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, want := range []string{"shell", "ssh", "forward", "alb", "rds", "ecs", "logs", "whoami"} {
		assert.True(t, names[want], "command %s not registered", want)
	}
}

func TestECSSubcommands(t *testing.T) {
	var ecsRoot *cobra.Command
	for _, c := range rootCmd.Commands() {
		if c.Name() == "ecs" {
			ecsRoot = c
		}
	}
	require.NotNil(t, ecsRoot)

	subs := make(map[string]bool)
	for _, c := range ecsRoot.Commands() {
		subs[c.Name()] = true
	}
	assert.True(t, subs["exec"])
	assert.True(t, subs["restart"])
}

func TestForwardRequiresPortOrRemote(t *testing.T) {
	_, err := executeCommand(rootCmd, "forward", "i-0123456789abcdef0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--port or --remote")
}

func TestForwardRejectsBothModes(t *testing.T) {
	_, err := executeCommand(rootCmd, "forward", "i-0123456789abcdef0",
		"--port", "80", "--remote", "db.internal:5432")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")

	// reset for other tests
	forwardPort = 0
	forwardRemote = ""
}

func TestSplitHostPort(t *testing.T) {
	host, port, err := splitHostPort("db.internal:5432")
	require.NoError(t, err)
	assert.Equal(t, "db.internal", host)
	assert.Equal(t, 5432, port)

	_, _, err = splitHostPort("db.internal")
	assert.Error(t, err)

	_, _, err = splitHostPort("db.internal:notaport")
	assert.Error(t, err)

	_, _, err = splitHostPort("db.internal:99999")
	assert.Error(t, err)
}

func TestSelectOneEmptyItems(t *testing.T) {
	_, _, err := selectOne("Select instance", nil)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoSelection)
}

func TestMenuItemsEndWithQuit(t *testing.T) {
	require.NotEmpty(t, menuItems)
	assert.Equal(t, menuQuit, menuItems[len(menuItems)-1])
}
