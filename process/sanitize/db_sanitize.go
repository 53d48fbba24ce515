// Package sanitize empties the application tables of a Postgres database and
// optionally re-runs the startup seeding.
package sanitize

import (
	"context"
	"flag"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"duckpay/pkg/config"
	"duckpay/pkg/store"
)

// DefaultTables lists the application tables, link tables first.
const DefaultTables = "group_permissions,user_groups,refresh_tokens,records,categories,users,groups,permissions"

var nameRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// TableNames splits a comma-separated list and drops empty or unsafe
// identifiers.
func TableNames(list string, log *logrus.Logger) []string {
	parts := strings.Split(list, ",")
	wanted := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !nameRe.MatchString(p) {
			log.Warnf("skipping invalid table name '%s'", p)
			continue
		}
		wanted = append(wanted, p)
	}
	return wanted
}

// TruncateStatement builds the TRUNCATE for already validated table names.
func TruncateStatement(tables []string) string {
	quoted := make([]string, 0, len(tables))
	for _, t := range tables {
		quoted = append(quoted, fmt.Sprintf("%q", t))
	}
	return fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", strings.Join(quoted, ", "))
}

// Run executes the db_sanitize CLI behavior.
func Run() {
	var (
		dryRun = flag.Bool("dry-run", true, "Don't perform destructive actions; show what would be done")
		yes    = flag.Bool("yes", false, "Confirm destructive action (required to actually truncate)")
		reseed = flag.Bool("reseed", false, "After truncation, recreate the system groups and permission catalog")
		tables = flag.String("tables", DefaultTables, "Comma-separated list of tables to truncate")
	)
	flag.Parse()

	log := logrus.StandardLogger()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if cfg.DBDriver != "postgres" {
		log.Fatalf("db_sanitize only supports postgres, got %s", cfg.DBDriver)
	}
	gdb, err := store.Open(cfg, log)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	existing := existingTables(gdb, TableNames(*tables, log), log)
	if len(existing) == 0 {
		log.Info("no requested tables present in the database; nothing to do")
		return
	}

	fmt.Println("Tables considered for truncation:")
	for _, t := range existing {
		fmt.Printf(" - %s\n", t)
	}
	if *dryRun {
		fmt.Println("dry-run enabled; no changes will be made. Use --dry-run=false --yes to execute.")
		return
	}
	if !*yes {
		fmt.Println("Destructive operation. Pass --yes to confirm execution. Aborting.")
		return
	}

	stmt := TruncateStatement(existing)
	log.Infof("Executing: %s", stmt)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := gdb.WithContext(ctx).Exec(stmt).Error; err != nil {
		log.Fatalf("truncate failed: %v", err)
	}
	log.Info("Truncate completed.")

	if *reseed {
		st, err := store.New(gdb, log)
		if err != nil {
			log.Fatal(err)
		}
		if err := st.Seed(context.Background()); err != nil {
			log.Fatalf("reseed failed: %v", err)
		}
	}
}

// existingTables keeps the tables present in the public schema, checking each
// one with a bound parameter.
func existingTables(gdb *gorm.DB, wanted []string, log *logrus.Logger) []string {
	var existing []string
	for _, t := range wanted {
		var cnt int64
		if err := gdb.Raw("SELECT count(*) FROM pg_tables WHERE schemaname = 'public' AND tablename = ?", t).Scan(&cnt).Error; err != nil {
			log.Fatalf("failed to query pg_tables for %s: %v", t, err)
		}
		if cnt > 0 {
			existing = append(existing, t)
		} else {
			log.Infof("table %s not found, skipping", t)
		}
	}
	return existing
}
