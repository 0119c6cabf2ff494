package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/baechuer/summons/internal/domain"
)

var eventDetailsTmpl = template.Must(template.New("details").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
<h1 style="color: #661D98;">Your Event is Ready!</h1>
<p>Your event <strong>{{.Title}}</strong> has been created. Here are your links:</p>
<h3 style="color: #661D98;">Invitation Link</h3>
<p>Share this link with your guests:</p>
<a href="{{.InviteLink}}">{{.InviteLink}}</a>
<h3 style="color: #661D98;">Management Link</h3>
<p>Use this link to manage your event and view RSVPs:</p>
<a href="{{.ManageLink}}">{{.ManageLink}}</a>
<p style="color: #666; font-size: 14px;">Keep these links safe! You'll need them to manage your event.</p>
</div>`))

var confirmationTmpl = template.Must(template.New("confirmation").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
<h1>RSVP Confirmed!</h1>
<p>Thanks for responding, {{.Name}}!</p>
<h2 style="color: {{.Color}};">{{.Headline}}</h2>
<p><strong>Event:</strong> {{.Title}}</p>
<p><strong>Date:</strong> {{.Date}}</p>
<p><strong>Time:</strong> {{.StartTime}} - {{.EndTime}}</p>
<p><strong>Location:</strong> {{.Location}}</p>
{{if .Deadline}}<p><strong>RSVP Deadline:</strong> {{.Deadline}}</p>{{end}}
{{if .Description}}<p><strong>Description:</strong></p><p style="font-style: italic;">{{.Description}}</p>{{end}}
<p>Use this link to change your response or check event updates: <a href="{{.InviteLink}}">{{.InviteLink}}</a></p>
{{if .HostEmail}}<p>Questions? Contact the host at <a href="mailto:{{.HostEmail}}">{{.HostEmail}}</a></p>{{end}}
</div>`))

func renderEventDetails(ev domain.Event, invite, manage string) (Message, error) {
	var buf bytes.Buffer
	err := eventDetailsTmpl.Execute(&buf, map[string]string{
		"Title":      ev.Title,
		"InviteLink": invite,
		"ManageLink": manage,
	})
	if err != nil {
		return Message{}, fmt.Errorf("render event details: %w", err)
	}
	text := fmt.Sprintf("Your event %q is ready.\n\nInvitation link: %s\nManagement link: %s\n", ev.Title, invite, manage)
	return Message{Subject: "Your Event Links - Summons", Text: text, HTML: buf.String()}, nil
}

func headline(kind ConfirmationKind) (string, string) {
	switch kind {
	case ConfirmAttending:
		return "You're attending!", "#4CAF50"
	case ConfirmWaitlist:
		return "You're on the waitlist", "#FF9800"
	default:
		return "RSVP Confirmed", "#661D98"
	}
}

func renderConfirmation(ev domain.Event, name string, kind ConfirmationKind, invite string) (Message, error) {
	head, color := headline(kind)
	data := map[string]string{
		"Name":        name,
		"Headline":    head,
		"Color":       color,
		"Title":       ev.Title,
		"Date":        ev.Date.Format("Monday, January 2, 2006"),
		"StartTime":   ev.StartTime,
		"EndTime":     ev.EndTime,
		"Location":    ev.Location,
		"Description": ev.Description,
		"InviteLink":  invite,
		"HostEmail":   ev.HostEmail,
	}
	if ev.RSVPDeadline != nil {
		data["Deadline"] = ev.RSVPDeadline.UTC().Format("Monday, January 2, 2006 3:04 PM MST")
	}
	var buf bytes.Buffer
	if err := confirmationTmpl.Execute(&buf, data); err != nil {
		return Message{}, fmt.Errorf("render confirmation: %w", err)
	}

	var text strings.Builder
	fmt.Fprintf(&text, "Hi %s,\n\n%s\n\n", name, head)
	fmt.Fprintf(&text, "%s\n%s, %s - %s\n%s\n\n", ev.Title, data["Date"], ev.StartTime, ev.EndTime, ev.Location)
	fmt.Fprintf(&text, "Change your response: %s\n", invite)

	return Message{
		Subject: fmt.Sprintf("RSVP Confirmed for %q - Summons", ev.Title),
		Text:    text.String(),
		HTML:    buf.String(),
	}, nil
}
