package main

import (
	"database/sql"
	"flag"
	"os"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/sirupsen/logrus"

	"duckpay/pkg/config"
)

func main() {
	tables := flag.String("tables", strings.Join(appTables, ","), "comma-separated tables to inspect")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatal(err)
	}
	if cfg.DBDriver != "postgres" {
		logrus.Fatalf("inspect_fk only supports postgres, got %s", cfg.DBDriver)
	}
	db, err := sql.Open("pgx", cfg.DBDSN)
	if err != nil {
		logrus.Fatalf("open db: %v", err)
	}
	defer db.Close()

	var names []string
	for _, t := range strings.Split(*tables, ",") {
		if t = strings.TrimSpace(t); t != "" {
			names = append(names, t)
		}
	}
	if err := inspectForeignKeys(db, names, os.Stdout); err != nil {
		logrus.Fatal(err)
	}
}
