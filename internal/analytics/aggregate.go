package analytics

import "ms-badging/internal/models"

// Aggregate derives attendance figures from the badge list and the full
// check-in log. Special guests and custom roles count towards the total
// only.
func Aggregate(badges []models.Badge, events []models.CheckInEvent) models.AttendeeStats {
	stats := models.AttendeeStats{
		TotalBadgesIssued:  len(badges),
		CheckInsByLocation: map[string]int{},
	}

	for _, b := range badges {
		switch b.ParticipantType {
		case models.ParticipantAttendee:
			stats.BadgesByType.Attendee++
		case models.ParticipantExhibitor:
			stats.BadgesByType.Exhibitor++
		case models.ParticipantSpeaker:
			stats.BadgesByType.Speaker++
		case models.ParticipantVolunteer:
			stats.BadgesByType.Volunteer++
		case models.ParticipantTeam:
			stats.BadgesByType.Team++
		}
	}

	net := make(map[string]int)
	for _, e := range events {
		switch e.CheckInType {
		case models.CheckIn:
			stats.TotalCheckIns++
			stats.CheckInsByLocation[e.CheckInLocation]++
			net[e.BadgeID]++
		case models.CheckOut:
			stats.TotalCheckOuts++
			net[e.BadgeID]--
		}
	}
	for _, n := range net {
		if n > 0 {
			stats.CurrentlyCheckedIn++
		}
	}

	return stats
}
