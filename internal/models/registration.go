package models

// RegistrationEvent is the message another service publishes when somebody
// registers for the event. Role is used as job title for volunteers and team
// members.
type RegistrationEvent struct {
	ParticipantType string `json:"participant_type"`
	ParticipantID   string `json:"participant_id"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	Company         string `json:"company,omitempty"`
	JobTitle        string `json:"job_title,omitempty"`
	Role            string `json:"role,omitempty"`
	CustomRole      string `json:"custom_role,omitempty"`
}
