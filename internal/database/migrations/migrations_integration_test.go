//go:build integration

package migrations_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"ms-badging/internal/badges/db"
	"ms-badging/internal/database/migrations"
	"ms-badging/internal/models"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

func startPostgres(t *testing.T) string {
	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "badges",
				"POSTGRES_PASSWORD": "badges",
				"POSTGRES_DB":       "badges",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start Postgres container: %v", err)
	}
	t.Cleanup(func() { container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return fmt.Sprintf("postgres://badges:badges@%s:%s/badges?sslmode=disable", host, port.Port())
}

func TestMigrationsAgainstPostgres(t *testing.T) {
	dsn := startPostgres(t)
	ctx := context.Background()

	migrationDB, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	runner := migrations.NewRunner(migrationDB, migrations.Options{SourceURL: "file://sql"}, nil)
	require.NoError(t, runner.Up())
	require.NoError(t, runner.Close())

	sqldb, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	bunDB := bun.NewDB(sqldb, pgdialect.New())
	defer bunDB.Close()
	repo := &db.DB{Bun: bunDB}

	now := time.Now()
	badge := &models.Badge{
		BadgeID:         "AIS2025-PGTEST01",
		ParticipantType: models.ParticipantAttendee,
		ParticipantID:   "user-1",
		Name:            "Ada Lovelace",
		Email:           "ada@example.com",
		BadgeDesign:     models.DesignStandard,
		QRCodeData:      "user-1",
		IsActive:        true,
		IssuedAt:        now,
		CreatedAt:       now,
	}
	require.NoError(t, repo.CreateBadge(ctx, badge))

	event := func() *models.CheckInEvent {
		return &models.CheckInEvent{
			BadgeID:         badge.BadgeID,
			Sequence:        1,
			CheckInType:     models.CheckIn,
			CheckInTime:     time.Now(),
			CheckInLocation: models.DefaultCheckInLocation,
			CheckInMethod:   models.CheckInMethodQRScan,
		}
	}
	require.NoError(t, repo.AppendCheckIn(ctx, event()))
	assert.ErrorIs(t, repo.AppendCheckIn(ctx, event()), models.ErrCheckInConflict)

	found, err := repo.GetBadgeByParticipant(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, badge.BadgeID, found.BadgeID)

	pb := &models.PersonalBadge{
		BadgeID: "CBA-ADA", QRHandle: "ada", UserID: "u-1",
		Name: "Ada", Email: "ada@example.com", IsActive: true,
		CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, repo.CreatePersonalBadge(ctx, pb))
	pb.BadgeID = "CBA-ADA2"
	assert.ErrorIs(t, repo.CreatePersonalBadge(ctx, pb), models.ErrQRHandleTaken)

	down := migrations.NewRunner(mustOpen(t, dsn), migrations.Options{SourceURL: "file://sql"}, nil)
	require.NoError(t, down.Down())
	require.NoError(t, down.Close())
}

func mustOpen(t *testing.T, dsn string) *sql.DB {
	sqldb, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	return sqldb
}
