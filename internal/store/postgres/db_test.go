package postgres

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "permissions_name_key"})

	assert.True(t, isUniqueViolation(err, ""))
	assert.True(t, isUniqueViolation(err, "permissions_name_key"))
	assert.False(t, isUniqueViolation(err, "users_username_key"))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}, ""))
	assert.False(t, isUniqueViolation(fmt.Errorf("plain"), ""))
}

func TestForeignKeyViolation(t *testing.T) {
	name, ok := foreignKeyViolation(fmt.Errorf("x: %w", &pgconn.PgError{Code: "23503", ConstraintName: "user_permissions_user_id_fkey"}))
	assert.True(t, ok)
	assert.Equal(t, "user_permissions_user_id_fkey", name)

	_, ok = foreignKeyViolation(&pgconn.PgError{Code: "23505"})
	assert.False(t, ok)
}

func TestInitialSchema_Constraints(t *testing.T) {
	assert.Contains(t, InitialSchema, "CONSTRAINT permissions_name_key UNIQUE (name)")
	assert.Contains(t, InitialSchema, "CONSTRAINT user_permissions_user_permission_key UNIQUE (user_id, permission_id)")
	assert.Contains(t, InitialSchema, "REFERENCES permissions(id) ON DELETE CASCADE")
}
