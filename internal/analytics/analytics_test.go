package analytics

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"ms-badging/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"
)

func badge(id string, p models.ParticipantType) models.Badge {
	return models.Badge{BadgeID: id, ParticipantType: p}
}

func event(badgeID string, seq int, t models.CheckInType, location string) models.CheckInEvent {
	return models.CheckInEvent{BadgeID: badgeID, Sequence: seq, CheckInType: t, CheckInLocation: location}
}

func TestAggregate_Empty(t *testing.T) {
	stats := Aggregate(nil, nil)
	assert.Zero(t, stats.TotalBadgesIssued)
	assert.Zero(t, stats.CurrentlyCheckedIn)
	assert.NotNil(t, stats.CheckInsByLocation)
}

func TestAggregate_Buckets(t *testing.T) {
	badges := []models.Badge{
		badge("a1", models.ParticipantAttendee),
		badge("a2", models.ParticipantAttendee),
		badge("e1", models.ParticipantExhibitor),
		badge("s1", models.ParticipantSpeaker),
		badge("v1", models.ParticipantVolunteer),
		badge("t1", models.ParticipantTeam),
		badge("g1", models.ParticipantSpecialGuest),
		badge("o1", models.ParticipantOther),
	}

	stats := Aggregate(badges, nil)
	assert.Equal(t, 8, stats.TotalBadgesIssued)
	assert.Equal(t, models.BadgeTypeCounts{Attendee: 2, Exhibitor: 1, Speaker: 1, Volunteer: 1, Team: 1}, stats.BadgesByType)

	b := stats.BadgesByType
	assert.LessOrEqual(t, b.Attendee+b.Exhibitor+b.Speaker+b.Volunteer+b.Team, stats.TotalBadgesIssued)
}

func TestAggregate_Occupancy(t *testing.T) {
	badges := []models.Badge{
		badge("a", models.ParticipantAttendee),
		badge("b", models.ParticipantAttendee),
		badge("c", models.ParticipantSpeaker),
	}
	events := []models.CheckInEvent{
		event("a", 1, models.CheckIn, "main_entrance"),
		event("a", 2, models.CheckOut, "main_entrance"),
		event("a", 3, models.CheckIn, "hall_b"),
		event("b", 1, models.CheckIn, "main_entrance"),
		event("b", 2, models.CheckOut, "main_entrance"),
		event("c", 1, models.CheckIn, "main_entrance"),
	}

	stats := Aggregate(badges, events)
	assert.Equal(t, 4, stats.TotalCheckIns)
	assert.Equal(t, 2, stats.TotalCheckOuts)
	assert.Equal(t, 2, stats.CurrentlyCheckedIn)
	assert.Equal(t, map[string]int{"main_entrance": 3, "hall_b": 1}, stats.CheckInsByLocation)

	assert.LessOrEqual(t, stats.CurrentlyCheckedIn, stats.TotalBadgesIssued)
	assert.Equal(t, stats.TotalCheckIns-stats.TotalCheckOuts, stats.CurrentlyCheckedIn)
}

type failingSource struct{}

func (failingSource) AllBadges(ctx context.Context) ([]models.Badge, error) {
	return nil, errors.New("db down")
}

func (failingSource) AllCheckIns(ctx context.Context) ([]models.CheckInEvent, error) {
	return nil, nil
}

func TestService_PropagatesErrors(t *testing.T) {
	_, err := NewService(failingSource{}).GetAttendeeStats(context.Background())
	assert.Error(t, err)
}

func TestService_ReadsFromDatabase(t *testing.T) {
	sqldb, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	defer bunDB.Close()

	ctx := context.Background()
	_, err = bunDB.NewCreateTable().Model((*models.Badge)(nil)).Exec(ctx)
	require.NoError(t, err)
	_, err = bunDB.NewCreateTable().Model((*models.CheckInEvent)(nil)).Exec(ctx)
	require.NoError(t, err)

	now := time.Now()
	badges := []models.Badge{
		{BadgeID: "X-1", ParticipantType: models.ParticipantVolunteer, ParticipantID: "p1", Name: "n", Email: "e", BadgeDesign: "volunteer", QRCodeData: "p1", IsActive: true, IssuedAt: now, CreatedAt: now},
		{BadgeID: "X-2", ParticipantType: models.ParticipantSpecialGuest, ParticipantID: "p2", Name: "n", Email: "e", BadgeDesign: "vip", QRCodeData: "p2", IsActive: true, IssuedAt: now, CreatedAt: now},
	}
	_, err = bunDB.NewInsert().Model(&badges).Exec(ctx)
	require.NoError(t, err)

	ev := models.CheckInEvent{BadgeID: "X-2", Sequence: 1, CheckInType: models.CheckIn, CheckInTime: now, CheckInLocation: "vip_lounge", CheckInMethod: "qr_scan"}
	_, err = bunDB.NewInsert().Model(&ev).Exec(ctx)
	require.NoError(t, err)

	stats, err := NewService(NewDB(bunDB)).GetAttendeeStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalBadgesIssued)
	assert.Equal(t, 1, stats.BadgesByType.Volunteer)
	assert.Equal(t, 1, stats.CurrentlyCheckedIn)
	assert.Equal(t, 1, stats.CheckInsByLocation["vip_lounge"])
}
