package db_test

import (
	"bytes"
	"context"
	"database/sql"
	"testing"
	"time"

	"ms-badging/internal/badges/db"
	"ms-badging/internal/logger"
	"ms-badging/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"
)

func setupTestDB(t *testing.T) *db.DB {
	sqldb, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// every pooled connection to :memory: is its own database
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { bunDB.Close() })

	d := &db.DB{Bun: bunDB}
	require.NoError(t, d.CreateSchema(context.Background()))
	return d
}

func newBadge(id, participantID string, p models.ParticipantType, issued time.Time) *models.Badge {
	return &models.Badge{
		BadgeID:         id,
		ParticipantType: p,
		ParticipantID:   participantID,
		Name:            "Grace Hopper",
		Email:           "Grace@Example.com",
		BadgeDesign:     models.DesignFor(p),
		QRCodeData:      participantID,
		IsActive:        true,
		IssuedAt:        issued,
		CreatedAt:       issued,
	}
}

func checkIn(badgeID string, seq int, typ models.CheckInType) *models.CheckInEvent {
	return &models.CheckInEvent{
		BadgeID:         badgeID,
		Sequence:        seq,
		CheckInType:     typ,
		CheckInTime:     time.Now(),
		CheckInLocation: models.DefaultCheckInLocation,
		CheckInMethod:   models.CheckInMethodQRScan,
		StaffMember:     models.DefaultStaffMember,
	}
}

func TestCreateAndGetBadge(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()

	b := newBadge("AIS2025-AAAA0001", "reg-1", models.ParticipantAttendee, time.Now())
	require.NoError(t, d.CreateBadge(ctx, b))

	got, err := d.GetBadgeByID(ctx, "AIS2025-AAAA0001")
	require.NoError(t, err)
	assert.Equal(t, "reg-1", got.ParticipantID)
	assert.Equal(t, models.ParticipantAttendee, got.ParticipantType)
	assert.True(t, got.IsActive)
	assert.Nil(t, got.PrintedAt)

	_, err = d.GetBadgeByID(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrBadgeNotFound)
}

func TestCreateBadge_DuplicateID(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, d.CreateBadge(ctx, newBadge("AIS2025-DUP00001", "reg-1", models.ParticipantAttendee, time.Now())))
	assert.Error(t, d.CreateBadge(ctx, newBadge("AIS2025-DUP00001", "reg-2", models.ParticipantAttendee, time.Now())))
}

func TestGetBadgeByParticipant_NewestWins(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()

	old := time.Now().Add(-time.Hour)
	require.NoError(t, d.CreateBadge(ctx, newBadge("AIS2025-OLD00001", "reg-7", models.ParticipantAttendee, old)))
	require.NoError(t, d.CreateBadge(ctx, newBadge("AIS2025-NEW00001", "reg-7", models.ParticipantSpeaker, time.Now())))

	got, err := d.GetBadgeByParticipant(ctx, "reg-7")
	require.NoError(t, err)
	assert.Equal(t, "AIS2025-NEW00001", got.BadgeID)

	_, err = d.GetBadgeByParticipant(ctx, "reg-unknown")
	assert.ErrorIs(t, err, models.ErrBadgeNotFound)
}

func TestDeactivateAndSetPrintedAt_WriteOnlyTheirColumn(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()

	b := newBadge("AIS2025-UPD00001", "reg-1", models.ParticipantTeam, time.Now())
	require.NoError(t, d.CreateBadge(ctx, b))

	printed := time.Now()
	require.NoError(t, d.SetPrintedAt(ctx, b.BadgeID, printed))
	require.NoError(t, d.DeactivateBadge(ctx, b.BadgeID))

	got, err := d.GetBadgeByID(ctx, b.BadgeID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	require.NotNil(t, got.PrintedAt)
	assert.WithinDuration(t, printed, *got.PrintedAt, time.Second)

	// a later print leaves the badge deactivated
	require.NoError(t, d.SetPrintedAt(ctx, b.BadgeID, printed.Add(time.Minute)))
	got, err = d.GetBadgeByID(ctx, b.BadgeID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.WithinDuration(t, printed.Add(time.Minute), *got.PrintedAt, time.Second)
}

func TestBadgeUpdates_UnknownBadge(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()

	assert.ErrorIs(t, d.DeactivateBadge(ctx, "AIS2025-MISSING1"), models.ErrBadgeNotFound)
	assert.ErrorIs(t, d.SetPrintedAt(ctx, "AIS2025-MISSING1", time.Now()), models.ErrBadgeNotFound)
}

func TestInsertFailureIsLogged(t *testing.T) {
	d := setupTestDB(t)
	var buf bytes.Buffer
	d.Logger = logger.NewWithWriter(&buf)
	ctx := context.Background()

	b := newBadge("AIS2025-DUP00001", "reg-1", models.ParticipantAttendee, time.Now())
	require.NoError(t, d.CreateBadge(ctx, b))
	assert.Error(t, d.CreateBadge(ctx, b))
	assert.Contains(t, buf.String(), "badges")
	assert.Contains(t, buf.String(), "AIS2025-DUP00001")
}

func TestListBadges_Filters(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, d.CreateBadge(ctx, newBadge("AIS2025-L0000001", "reg-1", models.ParticipantAttendee, time.Now())))
	require.NoError(t, d.CreateBadge(ctx, newBadge("AIS2025-L0000002", "reg-2", models.ParticipantSpeaker, time.Now())))
	other := newBadge("AIS2025-L0000003", "reg-3", models.ParticipantSpeaker, time.Now())
	other.Email = "someone@else.org"
	require.NoError(t, d.CreateBadge(ctx, other))

	all, err := d.ListBadges(ctx, db.BadgeFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	speakers, err := d.ListBadges(ctx, db.BadgeFilter{Type: models.ParticipantSpeaker})
	require.NoError(t, err)
	assert.Len(t, speakers, 2)

	byEmail, err := d.ListBadges(ctx, db.BadgeFilter{Email: "grace@example.com"})
	require.NoError(t, err)
	assert.Len(t, byEmail, 2)

	none, err := d.ListBadges(ctx, db.BadgeFilter{Type: models.ParticipantVolunteer})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestAppendCheckIn_SequenceConflict(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, d.AppendCheckIn(ctx, checkIn("AIS2025-SEQ00001", 1, models.CheckIn)))
	err := d.AppendCheckIn(ctx, checkIn("AIS2025-SEQ00001", 1, models.CheckIn))
	assert.ErrorIs(t, err, models.ErrCheckInConflict)

	// the same position on another badge is independent
	require.NoError(t, d.AppendCheckIn(ctx, checkIn("AIS2025-SEQ00002", 1, models.CheckIn)))
}

func TestListCheckIns_Ordered(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, d.AppendCheckIn(ctx, checkIn("AIS2025-ORD00001", 2, models.CheckOut)))
	require.NoError(t, d.AppendCheckIn(ctx, checkIn("AIS2025-ORD00001", 1, models.CheckIn)))
	require.NoError(t, d.AppendCheckIn(ctx, checkIn("AIS2025-ORD00002", 1, models.CheckIn)))

	events, err := d.ListCheckIns(ctx, "AIS2025-ORD00001")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, 1, events[0].Sequence)
	assert.Equal(t, models.CheckIn, events[0].CheckInType)
	assert.Equal(t, models.CheckOut, events[1].CheckInType)

	empty, err := d.ListCheckIns(ctx, "AIS2025-NONE0001")
	require.NoError(t, err)
	assert.Empty(t, empty)

	all, err := d.ListAllCheckIns(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestPersonalBadges(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()

	now := time.Now()
	pb := &models.PersonalBadge{
		BadgeID:        "CBA-GRACE",
		QRHandle:       "grace",
		UserID:         "user-1",
		Name:           "Grace Hopper",
		Email:          "grace@example.com",
		MembershipTier: "Partner",
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	require.NoError(t, d.CreatePersonalBadge(ctx, pb))

	got, err := d.GetPersonalBadgeByHandle(ctx, "grace")
	require.NoError(t, err)
	assert.Equal(t, "CBA-GRACE", got.BadgeID)
	assert.Equal(t, "Partner", got.MembershipTier)

	dup := *pb
	dup.UserID = "user-2"
	assert.ErrorIs(t, d.CreatePersonalBadge(ctx, &dup), models.ErrQRHandleTaken)

	_, err = d.GetPersonalBadgeByHandle(ctx, "nobody")
	assert.ErrorIs(t, err, models.ErrPersonalBadgeNotFound)
}
