package sanitize

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestTableNames(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)

	got := TableNames(" users, ,groups;drop table x,records ,1bad", log)
	assert.Equal(t, []string{"users", "records"}, got)

	assert.Len(t, TableNames(DefaultTables, log), 8)
}

func TestTruncateStatement(t *testing.T) {
	stmt := TruncateStatement([]string{"user_groups", "users"})
	assert.Equal(t, `TRUNCATE TABLE "user_groups", "users" RESTART IDENTITY CASCADE`, stmt)
}
