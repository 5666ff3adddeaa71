package database

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitStatementsSkipsComments(t *testing.T) {
	src := "-- header\nCREATE TABLE a (id INT);\n\n-- next\nCREATE INDEX i ON a (id);\n"
	stmts := splitStatements(src)
	require.Equal(t, []string{"CREATE TABLE a (id INT)", "CREATE INDEX i ON a (id)"}, stmts)
}

func TestEverySchemaIsEmbedded(t *testing.T) {
	for _, driver := range []string{"mysql", "sqlite"} {
		raw, err := schemaFS.ReadFile("schema/" + driver + ".sql")
		require.NoError(t, err, driver)
		require.NotEmpty(t, splitStatements(string(raw)), driver)
	}
}
