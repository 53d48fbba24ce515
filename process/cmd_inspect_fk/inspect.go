package main

import (
	"database/sql"
	"fmt"
	"io"
)

// appTables are the tables owned by the service.
var appTables = []string{"users", "groups", "permissions", "user_groups", "group_permissions", "categories", "records", "refresh_tokens"}

const fkQuery = `
	SELECT
	  con.conname AS constraint_name,
	  rel.relname AS table_name,
	  string_agg(att.attname, ',' ORDER BY u.ord) AS src_columns,
	  confrel.relname AS referenced_table,
	  string_agg(att2.attname, ',' ORDER BY u.ord) AS ref_columns,
	  pg_get_constraintdef(con.oid) AS definition
	FROM pg_constraint con
	JOIN pg_class rel ON rel.oid = con.conrelid
	JOIN pg_class confrel ON confrel.oid = con.confrelid
	JOIN unnest(con.conkey) WITH ORDINALITY AS u(attnum, ord) ON true
	JOIN pg_attribute att ON att.attrelid = con.conrelid AND att.attnum = u.attnum
	LEFT JOIN unnest(con.confkey) WITH ORDINALITY AS v(confkey, ord2) ON v.ord2 = u.ord
	LEFT JOIN pg_attribute att2 ON att2.attrelid = con.confrelid AND att2.attnum = v.confkey
	WHERE con.contype = 'f' AND rel.relname = ANY($1)
	GROUP BY con.oid, con.conname, rel.relname, confrel.relname
	ORDER BY rel.relname, con.conname`

// inspectForeignKeys prints the foreign key constraints declared on tables.
func inspectForeignKeys(db *sql.DB, tables []string, w io.Writer) error {
	rows, err := db.Query(fkQuery, tables)
	if err != nil {
		return fmt.Errorf("query constraints: %w", err)
	}
	defer rows.Close()

	fmt.Fprintln(w, "Foreign keys:")
	n := 0
	for rows.Next() {
		var cname, table, reftable, def string
		var srcCols, refCols sql.NullString
		if err := rows.Scan(&cname, &table, &srcCols, &reftable, &refCols, &def); err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		fmt.Fprintf(w, "- %s: %s(%s) -> %s(%s)\n    def: %s\n", cname, table, srcCols.String, reftable, refCols.String, def)
		n++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows err: %w", err)
	}
	if n == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	return nil
}
