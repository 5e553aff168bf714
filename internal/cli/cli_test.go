package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/pgEdge/pgedge-ecomload/internal/tables"
)

func TestSelectTables(t *testing.T) {
	all, err := selectTables(nil, true)
	require.NoError(t, err)
	assert.Len(t, all, len(tables.List()))

	subset, err := selectTables([]string{"user", "address"}, false)
	require.NoError(t, err)
	require.Len(t, subset, 2)
	assert.Equal(t, "address", subset[0].Table)
	assert.Equal(t, "user", subset[1].Table)

	_, err = selectTables(nil, false)
	assert.Error(t, err)

	_, err = selectTables([]string{"user"}, true)
	assert.Error(t, err)

	_, err = selectTables([]string{"customers"}, false)
	assert.Error(t, err)
}

func TestWriteTablesText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeTables(&buf, "text", tables.All()))

	out := buf.String()
	assert.Contains(t, out, "address")
	assert.Contains(t, out, "depends on: address")
	assert.Contains(t, out, "document")
}

func TestWriteTablesYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeTables(&buf, "yaml", tables.All()))

	var infos []tableInfo
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &infos))
	require.Len(t, infos, len(tables.List()))

	byName := map[string]tableInfo{}
	for _, info := range infos {
		byName[info.Table] = info
	}

	user := byName["user"]
	assert.Equal(t, "user_id", user.PrimaryKey)
	assert.Equal(t, []string{"address"}, user.Dependencies)

	var addressRef columnInfo
	for _, c := range user.Columns {
		if c.Name == "address_id" {
			addressRef = c
		}
	}
	assert.True(t, addressRef.Nullable)
	assert.Equal(t, "address.address_id by address_ref", addressRef.References)
}

func TestWriteTablesUnknownFormat(t *testing.T) {
	assert.Error(t, writeTables(&bytes.Buffer{}, "xml", tables.All()))
}

func TestCommandTree(t *testing.T) {
	for _, name := range []string{"load", "schema", "generate", "totals", "tables", "runs", "version"} {
		cmd, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
}
