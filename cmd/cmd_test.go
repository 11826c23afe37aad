package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCmd(t *testing.T) {
	SetVersion("v1.2.3", "abc123")

	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.Equal(t, "syncwatch v1.2.3 (abc123)\n", out.String())
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := NewRootCmd()

	for _, name := range []string{"scan", "serve", "version"} {
		sub, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}

	scan, _, err := root.Find([]string{"scan"})
	require.NoError(t, err)
	for _, flag := range []string{"account", "output-dir", "mode"} {
		assert.NotNil(t, scan.Flags().Lookup(flag), flag)
	}
}
