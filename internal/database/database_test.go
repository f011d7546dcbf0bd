package database_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"quill/internal/config"
	"quill/internal/database"
	"quill/internal/models"
	"quill/internal/testutil"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestRunInTransaction_RollsBackOnError(t *testing.T) {
	db := testutil.NewTestDB(t)
	boom := errors.New("boom")

	err := database.RunInTransaction(context.Background(), db, func(ctx context.Context) error {
		require.NoError(t, database.Conn(ctx, db).Create(&models.Tag{Value: "go"}).Error)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var count int64
	require.NoError(t, db.Model(&models.Tag{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestRunInTransaction_NestedCallJoinsOuter(t *testing.T) {
	db := testutil.NewTestDB(t)

	err := database.RunInTransaction(context.Background(), db, func(ctx context.Context) error {
		outer, _ := database.GetTx(ctx)
		inner := database.RunInTransaction(ctx, db, func(ctx context.Context) error {
			tx, ok := database.GetTx(ctx)
			require.True(t, ok)
			assert.Same(t, outer, tx)
			return database.Conn(ctx, db).Create(&models.Tag{Value: "go"}).Error
		})
		require.NoError(t, inner)
		return errors.New("abort outer")
	})
	require.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&models.Tag{}).Count(&count).Error)
	assert.Zero(t, count, "inner work must roll back with the outer transaction")
}

func TestSavepoint_FailureKeepsOuterTransactionUsable(t *testing.T) {
	db := testutil.NewTestDB(t)
	require.NoError(t, db.Create(&models.Tag{Value: "taken"}).Error)

	err := database.RunInTransaction(context.Background(), db, func(ctx context.Context) error {
		spErr := database.Savepoint(ctx, db, func(ctx context.Context) error {
			return database.Conn(ctx, db).Create(&models.Tag{Value: "taken"}).Error
		})
		assert.True(t, database.IsUniqueViolation(spErr))
		return database.Conn(ctx, db).Create(&models.Tag{Value: "fresh"}).Error
	})
	require.NoError(t, err)

	var values []string
	require.NoError(t, db.Model(&models.Tag{}).Order("id").Pluck("value", &values).Error)
	assert.Equal(t, []string{"taken", "fresh"}, values)
}

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"gorm duplicated key", gorm.ErrDuplicatedKey, true},
		{"wrapped gorm duplicated key", fmt.Errorf("create: %w", gorm.ErrDuplicatedKey), true},
		{"postgres unique", &pgconn.PgError{Code: "23505"}, true},
		{"postgres other", &pgconn.PgError{Code: "23503"}, false},
		{"sqlite unique", errors.New("UNIQUE constraint failed: tags.value"), true},
		{"unrelated", errors.New("connection refused"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, database.IsUniqueViolation(tt.err))
		})
	}
}

func TestDialector(t *testing.T) {
	d, err := database.Dialector(&config.Config{DBDriver: "sqlite", DBSQLitePath: "x.db"})
	require.NoError(t, err)
	assert.Equal(t, "sqlite", d.Name())

	d, err = database.Dialector(&config.Config{DBDriver: "postgres", DBHost: "localhost"})
	require.NoError(t, err)
	assert.Equal(t, "postgres", d.Name())

	_, err = database.Dialector(&config.Config{DBDriver: "mysql"})
	assert.Error(t, err)
}
