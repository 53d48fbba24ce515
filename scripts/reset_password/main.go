package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/sirupsen/logrus"

	"duckpay/pkg/accounts"
	"duckpay/pkg/config"
	"duckpay/pkg/password"
	"duckpay/pkg/store"
)

func main() {
	username := flag.String("username", "", "username to reset")
	plain := flag.String("password", "", "new plaintext password (min 6 chars)")
	flag.Parse()
	if *username == "" || *plain == "" {
		logrus.Fatal("--username and --password are required")
	}
	if len(*plain) < accounts.MinPasswordLength {
		logrus.Fatalf("password too short (min %d)", accounts.MinPasswordLength)
	}
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatal(err)
	}
	db, err := store.Open(cfg, nil)
	if err != nil {
		logrus.Fatalf("open db: %v", err)
	}
	st, err := store.New(db, nil)
	if err != nil {
		logrus.Fatal(err)
	}
	ctx := context.Background()
	user, err := st.FindUserByUsername(ctx, *username)
	if err != nil {
		logrus.Fatalf("user not found: %v", err)
	}
	hash, err := password.NewHasher(cfg.BcryptCost).Hash(*plain)
	if err != nil {
		logrus.Fatalf("bcrypt: %v", err)
	}
	if err := st.UpdateUser(ctx, user.ID, store.UserPatch{HashedPassword: hash}); err != nil {
		logrus.Fatalf("update failed: %v", err)
	}
	fmt.Printf("Password reset for user %s\n", user.Username)
}
