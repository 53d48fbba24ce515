package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"duckpay/models"
	"duckpay/pkg/config"
	"duckpay/pkg/store"
)

func main() {
	user := flag.String("user", "", "Username to clean (optional). If empty, cleans all users.")
	dry := flag.Bool("dry-run", true, "Preview actions without modifying the DB")
	yes := flag.Bool("yes", false, "Confirm destructive action when dry-run=false")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatal(err)
	}
	db, err := store.Open(cfg, nil)
	if err != nil {
		logrus.Fatalf("failed to connect db: %v", err)
	}
	st, err := store.New(db, nil)
	if err != nil {
		logrus.Fatal(err)
	}

	q := db.Model(&models.Record{})
	scope := "ALL users"
	if *user != "" {
		u, err := st.FindUserByUsername(context.Background(), *user)
		if err != nil {
			logrus.Fatalf("user lookup failed for %s: %v", *user, err)
		}
		q = q.Where("user_id = ?", u.ID)
		scope = fmt.Sprintf("user %s (id=%d)", u.Username, u.ID)
	}

	var n int64
	if err := q.Session(&gorm.Session{}).Count(&n).Error; err != nil {
		logrus.Fatalf("count records: %v", err)
	}
	fmt.Printf("Planned actions for %s:\n", scope)
	fmt.Printf(" - DELETE %d row(s) FROM records\n", n)
	if *dry {
		fmt.Println("dry-run: no changes made. Use --dry-run=false --yes to execute.")
		return
	}
	if !*yes {
		fmt.Println("Destructive! Pass --yes to proceed.")
		return
	}
	res := q.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Record{})
	if res.Error != nil {
		logrus.Fatalf("delete records failed: %v", res.Error)
	}
	fmt.Printf("cleanup done for %s: %d record(s) deleted\n", scope, res.RowsAffected)
}
