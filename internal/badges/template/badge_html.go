package template

import (
	"bytes"
	"fmt"
	"html/template"

	"ms-badging/internal/badges/qr"
	"ms-badging/internal/models"
)

const fallbackColour = "#6B7280"

var typeColours = map[models.ParticipantType]string{
	models.ParticipantAttendee:     "#3B82F6",
	models.ParticipantExhibitor:    "#8B5CF6",
	models.ParticipantSpeaker:      "#10B981",
	models.ParticipantVolunteer:    "#F59E0B",
	models.ParticipantTeam:         "#EF4444",
	models.ParticipantSpecialGuest: "#DC2626",
	models.ParticipantOther:        fallbackColour,
}

var tierColours = map[string]string{
	"Partner":        "#9333EA",
	"Patron Tier":    "#F59E0B",
	"Strategic Tier": "#EF4444",
	"Growth Tier":    "#10B981",
	"Starter Tier":   "#3B82F6",
}

// TypeColour is the accent colour of an event badge.
func TypeColour(p models.ParticipantType) string {
	if c, ok := typeColours[p]; ok {
		return c
	}
	return fallbackColour
}

// TierColour is the accent colour of a personal badge.
func TierColour(tier string) string {
	if c, ok := tierColours[tier]; ok {
		return c
	}
	return tierColours["Starter Tier"]
}

type eventBadgeView struct {
	Event     models.EventInfo
	Badge     models.Badge
	RoleLabel string
	Colour    template.CSS
	QR        template.URL
}

type personalBadgeView struct {
	Badge  models.PersonalBadge
	Tier   string
	Colour template.CSS
	QR     template.URL
}

// BadgeRenderer renders printable badge-holder sized HTML (102mm x 76mm).
type BadgeRenderer struct {
	event    models.EventInfo
	eventTpl *template.Template
	personal *template.Template
}

func NewBadgeRenderer(event models.EventInfo) *BadgeRenderer {
	return &BadgeRenderer{
		event:    event,
		eventTpl: template.Must(template.New("event_badge").Parse(eventBadgeHTML)),
		personal: template.Must(template.New("personal_badge").Parse(personalBadgeHTML)),
	}
}

// RenderHTML renders an event badge. qrPNG must be the encoded scan payload.
func (r *BadgeRenderer) RenderHTML(badge models.Badge, qrPNG []byte) (string, error) {
	view := eventBadgeView{
		Event:     r.event,
		Badge:     badge,
		RoleLabel: badge.ParticipantType.Label(badge.CustomRole),
		Colour:    template.CSS(TypeColour(badge.ParticipantType)),
		QR:        template.URL(qr.DataURI(qrPNG)),
	}

	var buf bytes.Buffer
	if err := r.eventTpl.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("render badge %s: %w", badge.BadgeID, err)
	}
	return buf.String(), nil
}

// RenderPersonalHTML renders a reusable member badge.
func (r *BadgeRenderer) RenderPersonalHTML(badge models.PersonalBadge, qrPNG []byte) (string, error) {
	tier := badge.MembershipTier
	if tier == "" {
		tier = "Member"
	}
	view := personalBadgeView{
		Badge:  badge,
		Tier:   tier,
		Colour: template.CSS(TierColour(badge.MembershipTier)),
		QR:     template.URL(qr.DataURI(qrPNG)),
	}

	var buf bytes.Buffer
	if err := r.personal.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("render personal badge %s: %w", badge.BadgeID, err)
	}
	return buf.String(), nil
}

const badgeStyles = `
        @page { size: 102mm 76mm; margin: 3mm; }
        body { font-family: Arial, sans-serif; margin: 0; padding: 0; width: 96mm; height: 70mm; overflow: hidden; }
        .badge-container { width: 96mm; height: 70mm; padding: 4mm; box-sizing: border-box; text-align: center;
            border-radius: 8px; display: flex; flex-direction: column; justify-content: space-between; }
        .badge-header { color: white; padding: 3mm; border-radius: 4px; }
        .title { font-size: 10pt; font-weight: bold; }
        .subtitle { font-size: 7pt; }
        .role { background: rgba(255,255,255,0.2); padding: 1mm 2mm; border-radius: 3mm; font-size: 6pt; font-weight: bold; display: inline-block; }
        .name { font-size: 9pt; font-weight: bold; color: #1a1a1a; }
        .details { font-size: 6pt; color: #666; }
        .qr-code { width: 20mm; height: 20mm; border-radius: 2mm; padding: 1mm; }
        .badge-id { font-size: 5pt; color: #666; font-family: 'Courier New', monospace; }`

const eventBadgeHTML = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Event.Name}} Badge - {{.Badge.Name}}</title>
    <style>` + badgeStyles + `
        .badge-container { border: 2px solid {{.Colour}}; }
        .badge-header { background: {{.Colour}}; }
        .qr-code { border: 1px solid {{.Colour}}; }
    </style>
</head>
<body>
    <div class="badge-container design-{{.Badge.BadgeDesign}}">
        <div class="badge-header">
            <div class="title">{{.Event.Name}}</div>
            <div class="subtitle">{{.Event.Date}} &bull; {{.Event.Venue}}</div>
            <div class="role">{{.RoleLabel}}</div>
        </div>
        <div class="badge-body">
            <div class="name">{{.Badge.Name}}</div>
            <div class="details">
                {{if .Badge.Company}}{{.Badge.Company}}<br>{{end}}
                {{if .Badge.JobTitle}}{{.Badge.JobTitle}}<br>{{end}}
                {{.Badge.Email}}
            </div>
            <img src="{{.QR}}" alt="QR Code" class="qr-code">
            <div class="badge-id">Badge ID: {{.Badge.BadgeID}}</div>
        </div>
    </div>
</body>
</html>`

const personalBadgeHTML = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Personal Badge - {{.Badge.Name}}</title>
    <style>` + badgeStyles + `
        .badge-container { border: 2px solid {{.Colour}}; }
        .badge-header { background: {{.Colour}}; }
        .qr-code { border: 1px solid {{.Colour}}; }
        .qr-handle { font-size: 6pt; font-weight: bold; color: {{.Colour}}; }
        .tier { background: {{.Colour}}; color: white; padding: 1mm 2mm; border-radius: 2mm; font-size: 6pt; display: inline-block; }
    </style>
</head>
<body>
    <div class="badge-container">
        <div class="badge-header">
            <div class="title">CROYDON BUSINESS ASSOCIATION</div>
            <div class="role">Personal Reusable Badge</div>
        </div>
        <div class="badge-body">
            <img src="{{.QR}}" alt="QR Code" class="qr-code">
            <div class="qr-handle">@{{.Badge.QRHandle}}</div>
            <div class="name">{{.Badge.Name}}</div>
            {{if .Badge.Title}}<div class="details">{{.Badge.Title}}</div>{{end}}
            {{if .Badge.JobTitle}}<div class="details">{{.Badge.JobTitle}}</div>{{end}}
            {{if .Badge.Company}}<div class="details">{{.Badge.Company}}</div>{{end}}
            {{if .Badge.Phone}}<div class="details">{{.Badge.Phone}}</div>{{end}}
            <div class="badge-id">Badge ID: {{.Badge.BadgeID}}</div>
            <div class="tier">{{.Tier}}</div>
        </div>
        <div class="details">Reusable across all events. Scan QR code for digital profile.</div>
    </div>
</body>
</html>`
