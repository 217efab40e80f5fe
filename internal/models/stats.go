package models

// BadgeTypeCounts holds the five fixed dashboard buckets. Special guests and
// custom roles are only reflected in the total.
type BadgeTypeCounts struct {
	Attendee  int `json:"attendee"`
	Exhibitor int `json:"exhibitor"`
	Speaker   int `json:"speaker"`
	Volunteer int `json:"volunteer"`
	Team      int `json:"team"`
}

type AttendeeStats struct {
	TotalBadgesIssued  int             `json:"total_badges_issued"`
	BadgesByType       BadgeTypeCounts `json:"badges_by_type"`
	CurrentlyCheckedIn int             `json:"currently_checked_in"`
	TotalCheckIns      int             `json:"total_check_ins"`
	TotalCheckOuts     int             `json:"total_check_outs"`
	CheckInsByLocation map[string]int  `json:"check_ins_by_location"`
}
