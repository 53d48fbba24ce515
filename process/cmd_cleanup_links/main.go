package main

import (
	"database/sql"
	"flag"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"duckpay/pkg/config"
)

// sweep is one cleanup statement with the count query that previews it.
type sweep struct {
	name  string
	count string
	exec  string
}

var sweeps = []sweep{
	{
		name:  "user_groups without user or group",
		count: `SELECT count(*) FROM user_groups ug WHERE NOT EXISTS (SELECT 1 FROM users u WHERE u.id = ug.user_id) OR NOT EXISTS (SELECT 1 FROM groups g WHERE g.id = ug.group_id)`,
		exec:  `DELETE FROM user_groups ug WHERE NOT EXISTS (SELECT 1 FROM users u WHERE u.id = ug.user_id) OR NOT EXISTS (SELECT 1 FROM groups g WHERE g.id = ug.group_id)`,
	},
	{
		name:  "group_permissions without group or permission",
		count: `SELECT count(*) FROM group_permissions gp WHERE NOT EXISTS (SELECT 1 FROM groups g WHERE g.id = gp.group_id) OR NOT EXISTS (SELECT 1 FROM permissions p WHERE p.id = gp.permission_id)`,
		exec:  `DELETE FROM group_permissions gp WHERE NOT EXISTS (SELECT 1 FROM groups g WHERE g.id = gp.group_id) OR NOT EXISTS (SELECT 1 FROM permissions p WHERE p.id = gp.permission_id)`,
	},
	{
		name:  "revoked or expired refresh_tokens",
		count: `SELECT count(*) FROM refresh_tokens WHERE revoked OR expires_at < now()`,
		exec:  `DELETE FROM refresh_tokens WHERE revoked OR expires_at < now()`,
	},
}

func main() {
	dry := flag.Bool("dry-run", true, "Only report how many rows would be removed")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatal(err)
	}
	if cfg.DBDriver != "postgres" {
		logrus.Fatalf("cleanup_links only supports postgres, got %s", cfg.DBDriver)
	}
	db, err := sql.Open("postgres", cfg.DBDSN)
	if err != nil {
		logrus.Fatalf("open db: %v", err)
	}
	defer db.Close()

	for _, s := range sweeps {
		if *dry {
			var n int64
			if err := db.QueryRow(s.count).Scan(&n); err != nil {
				logrus.Fatalf("count %s: %v", s.name, err)
			}
			fmt.Printf("%s: %d row(s) would be deleted\n", s.name, n)
			continue
		}
		res, err := db.Exec(s.exec)
		if err != nil {
			logrus.Fatalf("delete %s: %v", s.name, err)
		}
		n, _ := res.RowsAffected()
		fmt.Printf("%s: %d row(s) deleted\n", s.name, n)
	}
	if *dry {
		fmt.Println("dry-run: no changes made. Use --dry-run=false to execute.")
	}
}
