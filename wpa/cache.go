package wpa

import (
	"fmt"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/svf-go/wpa/nodeid"
)

// aliasCache is the optional sqlite-backed alias-query cache of
// SPEC_FULL.md's domain stack: "an alias-query cache keyed by (a,b),
// backing the alias(a,b) operation ... so repeated queries in a
// long-lived client session don't re-walk points-to sets." One
// connection is enough: every call into this package already runs
// outside a worklist loop, and singleflight in analyzer.go already
// collapses concurrent identical queries before they reach here.
type aliasCache struct {
	conn *sqlite.Conn
}

func openAliasCache(path string) (*aliasCache, error) {
	conn, err := sqlite.OpenConn(path, sqlite.OpenReadWrite|sqlite.OpenCreate)
	if err != nil {
		return nil, err
	}
	err = sqlitex.Execute(conn, `
		CREATE TABLE IF NOT EXISTS alias_cache (
			run_id TEXT NOT NULL,
			node_a INTEGER NOT NULL,
			node_b INTEGER NOT NULL,
			result INTEGER NOT NULL,
			PRIMARY KEY (run_id, node_a, node_b)
		)`, nil)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &aliasCache{conn: conn}, nil
}

func (c *aliasCache) lookup(runID string, a, b nodeid.NodeID) (result bool, found bool, err error) {
	if a > b {
		a, b = b, a
	}
	err = sqlitex.Execute(c.conn,
		`SELECT result FROM alias_cache WHERE run_id = ? AND node_a = ? AND node_b = ?`,
		&sqlitex.ExecOptions{
			Args: []interface{}{runID, int64(a), int64(b)},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				found = true
				result = stmt.ColumnInt(0) != 0
				return nil
			},
		})
	return result, found, err
}

func (c *aliasCache) store(runID string, a, b nodeid.NodeID, result bool) error {
	if a > b {
		a, b = b, a
	}
	r := 0
	if result {
		r = 1
	}
	return sqlitex.Execute(c.conn,
		`INSERT OR REPLACE INTO alias_cache (run_id, node_a, node_b, result) VALUES (?, ?, ?, ?)`,
		&sqlitex.ExecOptions{Args: []interface{}{runID, int64(a), int64(b), r}})
}

func (c *aliasCache) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

var _ = fmt.Sprintf // keep fmt import available for future error context
