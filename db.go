package main

import (
	"context"
)

// initDB migrates (when asked) and seeds. Failures are logged and boot
// continues.
func (s *server) initDB(ctx context.Context, migrate bool) {
	if migrate {
		if err := s.store.Migrate(ctx); err != nil {
			s.log.WithError(err).Warn("schema migration finished with errors")
		}
	}
	if err := s.store.Seed(ctx); err != nil {
		s.log.WithError(err).Error("seeding failed, continuing without seed data")
	}
}
