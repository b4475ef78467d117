package render

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/mcdev12/courtline/go/internal/models"
	"github.com/mcdev12/courtline/go/internal/notifications/events"
)

// ErrUnknownEvent is returned for an event type that has no template.
var ErrUnknownEvent = errors.New("unknown notification event")

// message is the channel-independent content of one event.
type message struct {
	label string
	intro string
	rows  []row
	note  string
	sms   string
	slack string
	ics   icsMethod
}

type row struct {
	Label string
	Value string
}

type renderFunc func(r *Renderer, c events.Context, s schedule) message

var renderers = map[events.Type]renderFunc{
	events.ApplicationSubmitted: (*Renderer).applicationSubmitted,
	events.ScheduleConfirmed:    (*Renderer).scheduleConfirmed,
	events.ScheduleCanceled:     (*Renderer).scheduleCanceled,
	events.StatusUpdated:        (*Renderer).statusUpdated,
	events.ApplicationCanceled:  (*Renderer).applicationCanceled,
	events.ServiceInProgress:    (*Renderer).serviceInProgress,
	events.ServiceCompleted:     (*Renderer).serviceCompleted,
}

// Supports reports whether t has a template.
func Supports(t events.Type) bool {
	_, ok := renderers[t]
	return ok
}

// Renderer maps an event and its context to per-channel payloads. It has no
// side effects and does not read the wall clock.
type Renderer struct {
	cfg Config
	loc *time.Location
}

// New creates a Renderer. Zero-valued fields in cfg fall back to DefaultConfig.
func New(cfg Config) (*Renderer, error) {
	def := DefaultConfig()
	if cfg.ShopName == "" {
		cfg.ShopName = def.ShopName
	}
	if cfg.Currency == "" {
		cfg.Currency = def.Currency
	}
	if cfg.EventLength <= 0 {
		cfg.EventLength = def.EventLength
	}
	loc, err := cfg.location()
	if err != nil {
		return nil, err
	}
	return &Renderer{cfg: cfg, loc: loc}, nil
}

// Render produces the payloads for eventType. Channels the event does not
// address, or that the recipient cannot receive, are left nil.
func (r *Renderer) Render(eventType events.Type, c events.Context) (models.RenderedPayload, error) {
	fn, ok := renderers[eventType]
	if !ok {
		return models.RenderedPayload{}, fmt.Errorf("%w: %q", ErrUnknownEvent, eventType)
	}

	s := r.parseSchedule(c.Application)
	msg := fn(r, c, s)
	if msg.note == "" {
		msg.note = c.Note()
	}

	var out models.RenderedPayload

	if to := strings.TrimSpace(c.User.Email); to != "" {
		html, err := r.emailHTML(c, msg)
		if err != nil {
			return models.RenderedPayload{}, fmt.Errorf("render %s email: %w", eventType, err)
		}
		out.Email = &models.EmailPayload{
			To:            to,
			Subject:       r.subject(c, msg.label),
			HTML:          html,
			ICSAttachment: r.calendarAttachment(c, s, msg.ics),
			BCC:           append([]string(nil), r.cfg.AdminBCC...),
		}
		if len(out.Email.BCC) == 0 {
			out.Email.BCC = nil
		}
	}

	if phone := NormalizePhone(c.User.Phone); phone != "" && msg.sms != "" {
		out.SMS = &models.SMSPayload{To: phone, Text: msg.sms}
	}

	if msg.slack != "" {
		out.Slack = &models.SlackPayload{Text: msg.slack}
	}

	return out, nil
}

func (r *Renderer) subject(c events.Context, label string) string {
	subject := fmt.Sprintf("[%s] %s", r.cfg.ShopName, label)
	if ref := shortRef(c.Application.ID); ref != "" {
		subject += " (#" + ref + ")"
	}
	return subject
}

func (r *Renderer) applicationSubmitted(c events.Context, s schedule) message {
	ref := refLabel(c.Application.ID)
	return message{
		label: "Stringing application received",
		intro: "We have received your stringing application. We will contact you once the schedule is confirmed.",
		rows:  r.detailRows(c, s),
		sms:   fmt.Sprintf("[%s] Stringing application %s received. Visit: %s", r.cfg.ShopName, ref, s.label()),
		slack: fmt.Sprintf(":tennis: New stringing application %s from %s. Visit: %s, rackets: %d",
			ref, customerName(c.User), s.label(), c.Application.RacketCount),
		ics: icsRequest,
	}
}

func (r *Renderer) scheduleConfirmed(c events.Context, s schedule) message {
	ref := refLabel(c.Application.ID)
	return message{
		label: "Stringing schedule confirmed",
		intro: "Your stringing visit has been confirmed. The calendar invite is attached.",
		rows:  r.detailRows(c, s),
		sms:   fmt.Sprintf("[%s] Visit for stringing %s confirmed: %s", r.cfg.ShopName, ref, s.label()),
		slack: fmt.Sprintf(":calendar: Schedule confirmed for %s (%s): %s", ref, customerName(c.User), s.label()),
		ics:   icsRequest,
	}
}

func (r *Renderer) scheduleCanceled(c events.Context, s schedule) message {
	ref := refLabel(c.Application.ID)
	return message{
		label: "Stringing schedule canceled",
		intro: "Your stringing visit has been canceled. Please pick a new time on our website.",
		rows:  r.detailRows(c, s),
		note:  reasonNote(c.Application.CancelReason),
		sms:   fmt.Sprintf("[%s] Visit for stringing %s on %s was canceled.", r.cfg.ShopName, ref, s.label()),
		slack: fmt.Sprintf(":x: Schedule canceled for %s (%s): %s", ref, customerName(c.User), s.label()),
		ics:   icsCancel,
	}
}

func (r *Renderer) statusUpdated(c events.Context, s schedule) message {
	status := statusLabel(c.Application.Status)
	return message{
		label: "Stringing status updated",
		intro: fmt.Sprintf("The status of your stringing application is now: %s.", status),
		rows:  r.detailRows(c, s),
		sms: fmt.Sprintf("[%s] Stringing %s status: %s", r.cfg.ShopName,
			refLabel(c.Application.ID), status),
	}
}

func (r *Renderer) applicationCanceled(c events.Context, s schedule) message {
	ref := refLabel(c.Application.ID)
	return message{
		label: "Stringing application canceled",
		intro: "Your stringing application has been canceled.",
		rows:  r.detailRows(c, s),
		note:  reasonNote(c.Application.CancelReason),
		sms:   fmt.Sprintf("[%s] Stringing application %s was canceled.", r.cfg.ShopName, ref),
		slack: strings.TrimSpace(fmt.Sprintf(":wastebasket: Stringing application %s (%s) canceled. %s",
			ref, customerName(c.User), reasonNote(c.Application.CancelReason))),
	}
}

func (r *Renderer) serviceInProgress(c events.Context, s schedule) message {
	return message{
		label: "Stringing in progress",
		intro: "Our stringer has started working on your rackets.",
		rows:  r.detailRows(c, s),
		sms:   fmt.Sprintf("[%s] Stringing %s is in progress.", r.cfg.ShopName, refLabel(c.Application.ID)),
	}
}

func (r *Renderer) serviceCompleted(c events.Context, s schedule) message {
	ref := refLabel(c.Application.ID)
	return message{
		label: "Stringing completed",
		intro: "Your rackets are ready. Thank you for choosing us.",
		rows:  r.detailRows(c, s),
		sms:   fmt.Sprintf("[%s] Stringing %s is complete. Your rackets are ready.", r.cfg.ShopName, ref),
		slack: fmt.Sprintf(":white_check_mark: Stringing %s (%s) completed. Total: %s",
			ref, customerName(c.User), r.price(c.Application)),
	}
}

func (r *Renderer) detailRows(c events.Context, s schedule) []row {
	app := c.Application
	rows := []row{
		{Label: "Application", Value: refLabel(app.ID)},
		{Label: "Status", Value: statusLabel(app.Status)},
		{Label: "Visit", Value: s.label()},
	}
	if app.RacketCount > 0 {
		rows = append(rows, row{Label: "Rackets", Value: fmt.Sprint(app.RacketCount)})
	}
	if len(app.StringTypes) > 0 {
		rows = append(rows, row{Label: "Strings", Value: strings.Join(app.StringTypes, ", ")})
	}
	if app.CollectionType != "" {
		rows = append(rows, row{Label: "Collection", Value: app.CollectionType})
	}
	if !app.TotalPrice.IsZero() {
		rows = append(rows, row{Label: "Total", Value: r.price(app)})
	}
	return rows
}

func (r *Renderer) price(app events.Application) string {
	return app.TotalPrice.StringFixed(0) + " " + r.cfg.Currency
}

var emailTemplate = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html>
<body style="font-family:sans-serif;color:#222">
<h2>{{.Label}}</h2>
<p>{{.Greeting}}</p>
<p>{{.Intro}}</p>
<table cellpadding="6" style="border-collapse:collapse">
{{- range .Rows}}
<tr><th align="left">{{.Label}}</th><td>{{.Value}}</td></tr>
{{- end}}
</table>
{{- if .Note}}
<p><strong>Note:</strong> {{.Note}}</p>
{{- end}}
{{- if .SiteURL}}
<p><a href="{{.SiteURL}}">{{.ShopName}}</a></p>
{{- else}}
<p>{{.ShopName}}</p>
{{- end}}
</body>
</html>
`))

type emailView struct {
	Label    string
	Greeting string
	Intro    string
	Rows     []row
	Note     string
	ShopName string
	SiteURL  string
}

func (r *Renderer) emailHTML(c events.Context, msg message) (string, error) {
	greeting := "Hello,"
	if name := strings.TrimSpace(c.User.Name); name != "" {
		greeting = fmt.Sprintf("Hello %s,", name)
	}
	var buf bytes.Buffer
	err := emailTemplate.Execute(&buf, emailView{
		Label:    msg.label,
		Greeting: greeting,
		Intro:    msg.intro,
		Rows:     msg.rows,
		Note:     msg.note,
		ShopName: r.cfg.ShopName,
		SiteURL:  r.cfg.SiteURL,
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

var statusLabels = map[string]string{
	events.StatusReceived:   "Received",
	events.StatusInProgress: "In progress",
	events.StatusCompleted:  "Completed",
	events.StatusCanceled:   "Canceled",
}

func statusLabel(status string) string {
	if label, ok := statusLabels[status]; ok {
		return label
	}
	if status == "" {
		return "Unknown"
	}
	return status
}

func customerName(u events.Recipient) string {
	switch {
	case u.Name != "":
		return u.Name
	case u.Email != "":
		return u.Email
	default:
		return "guest"
	}
}

func reasonNote(reason string) string {
	if reason = strings.TrimSpace(reason); reason == "" {
		return ""
	}
	return "Reason: " + reason
}

// shortRef is the customer-facing reference of an application id.
func shortRef(id string) string {
	id = strings.ReplaceAll(strings.TrimSpace(id), "-", "")
	if len(id) > 8 {
		id = id[len(id)-8:]
	}
	return strings.ToUpper(id)
}

func refLabel(id string) string {
	if ref := shortRef(id); ref != "" {
		return "#" + ref
	}
	return "(no reference)"
}
