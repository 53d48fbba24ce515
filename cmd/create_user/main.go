package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"duckpay/models"
	"duckpay/pkg/apperr"
	"duckpay/pkg/config"
	"duckpay/pkg/password"
	"duckpay/pkg/store"
)

func main() {
	groups := flag.String("groups", models.GroupUser, "comma-separated groups to assign")
	flag.Parse()
	if flag.NArg() < 3 {
		fmt.Println("usage: go run ./cmd/create_user [-groups owner,admin] <username> <email> <password>")
		os.Exit(2)
	}
	username, email, plain := flag.Arg(0), flag.Arg(1), flag.Arg(2)

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatal(err)
	}
	db, err := store.Open(cfg, nil)
	if err != nil {
		logrus.Fatalf("failed to open db: %v", err)
	}
	st, err := store.New(db, nil)
	if err != nil {
		logrus.Fatal(err)
	}
	ctx := context.Background()

	if existing, err := st.FindUserByUsername(ctx, username); err == nil {
		fmt.Printf("user %s already exists (id=%d)\n", username, existing.ID)
		os.Exit(0)
	} else if !errors.Is(err, apperr.ErrNotFound) {
		logrus.Fatalf("lookup failed: %v", err)
	}

	hpw, err := password.NewHasher(cfg.BcryptCost).Hash(plain)
	if err != nil {
		logrus.Fatalf("bcrypt failed: %v", err)
	}
	var names []string
	for _, g := range strings.Split(*groups, ",") {
		if g = strings.TrimSpace(g); g != "" {
			names = append(names, g)
		}
	}
	user := &models.User{Username: username, Email: email, HashedPassword: hpw}
	err = st.Transaction(ctx, func(tx *store.Store) error {
		if err := tx.CreateUser(ctx, user); err != nil {
			return err
		}
		return tx.AssignGroups(ctx, user.ID, names)
	})
	if err != nil {
		logrus.Fatalf("failed to create user: %v", err)
	}
	created, err := st.FindUserByID(ctx, user.ID)
	if err != nil {
		logrus.Fatal(err)
	}
	fmt.Printf("created user %s id=%d groups=%s\n", username, user.ID, strings.Join(created.GroupNames(), ","))
}
