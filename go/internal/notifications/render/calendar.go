package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/mcdev12/courtline/go/internal/models"
	"github.com/mcdev12/courtline/go/internal/notifications/events"
)

const unscheduledLabel = "Not yet scheduled"

type icsMethod int

const (
	icsNone icsMethod = iota
	icsRequest
	icsCancel
)

// schedule is the parsed preferred visit slot of an application.
type schedule struct {
	day     time.Time // midnight of the date, in shop time
	start   time.Time // set only when hasTime
	hasDate bool
	hasTime bool
}

func (r *Renderer) parseSchedule(app events.Application) schedule {
	var s schedule

	date := strings.TrimSpace(app.PreferredDate)
	if date == "" {
		return s
	}
	day, err := time.ParseInLocation("2006-01-02", date, r.loc)
	if err != nil {
		ts, tsErr := time.Parse(time.RFC3339, date)
		if tsErr != nil {
			return s
		}
		ts = ts.In(r.loc)
		day = time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, r.loc)
	}
	s.day = day
	s.hasDate = true

	clock := strings.TrimSpace(app.PreferredTime)
	if clock == "" {
		return s
	}
	var tod time.Time
	for _, layout := range []string{"15:04", "15:04:05"} {
		if tod, err = time.Parse(layout, clock); err == nil {
			break
		}
	}
	if err != nil {
		return s
	}
	s.start = time.Date(day.Year(), day.Month(), day.Day(), tod.Hour(), tod.Minute(), 0, 0, r.loc)
	s.hasTime = true
	return s
}

func (s schedule) label() string {
	switch {
	case s.hasTime:
		return s.start.Format("2006-01-02 15:04")
	case s.hasDate:
		return s.day.Format("2006-01-02") + " (time to be confirmed)"
	default:
		return unscheduledLabel
	}
}

// block returns the calendar slot for a scheduled start. An end time that would
// fall on the next day is clamped to 23:59 of the start day.
func (r *Renderer) block(start time.Time) (time.Time, time.Time) {
	end := start.Add(r.cfg.EventLength)
	y, m, d := start.Date()
	if ey, em, ed := end.Date(); ey != y || em != m || ed != d {
		end = time.Date(y, m, d, 23, 59, 0, 0, start.Location())
	}
	return start, end
}

func (r *Renderer) calendarAttachment(c events.Context, s schedule, method icsMethod) *models.Attachment {
	if method == icsNone || !s.hasTime {
		return nil
	}

	start, end := r.block(s.start)
	const stamp = "20060102T150405Z"

	icsMethodName, status, sequence := "REQUEST", "CONFIRMED", 0
	if method == icsCancel {
		icsMethodName, status, sequence = "CANCEL", "CANCELLED", 1
	}

	uid := fmt.Sprintf("stringing-%s-%s@%s", c.Application.ID, start.UTC().Format(stamp), r.uidDomain())
	summary := fmt.Sprintf("%s stringing service", r.cfg.ShopName)
	description := fmt.Sprintf("Stringing application #%s", shortRef(c.Application.ID))

	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//" + escapeICS(r.cfg.ShopName) + "//Stringing//EN",
		"CALSCALE:GREGORIAN",
		"METHOD:" + icsMethodName,
		"BEGIN:VEVENT",
		"UID:" + uid,
		"SEQUENCE:" + fmt.Sprint(sequence),
		"DTSTAMP:" + start.UTC().Format(stamp),
		"DTSTART:" + start.UTC().Format(stamp),
		"DTEND:" + end.UTC().Format(stamp),
		"SUMMARY:" + escapeICS(summary),
		"DESCRIPTION:" + escapeICS(description),
		"STATUS:" + status,
	}
	if r.cfg.ShopAddress != "" {
		lines = append(lines, "LOCATION:"+escapeICS(r.cfg.ShopAddress))
	}
	if c.User.Email != "" {
		lines = append(lines, "ATTENDEE;CN="+escapeParam(c.User.Name)+":mailto:"+c.User.Email)
	}
	lines = append(lines, "END:VEVENT", "END:VCALENDAR")

	var b strings.Builder
	for _, line := range lines {
		b.WriteString(foldICS(line))
		b.WriteString("\r\n")
	}

	return &models.Attachment{
		Filename:    "stringing-schedule.ics",
		ContentType: "text/calendar; charset=utf-8; method=" + icsMethodName,
		Content:     []byte(b.String()),
	}
}

func (r *Renderer) uidDomain() string {
	host := r.cfg.SiteURL
	host = strings.TrimPrefix(host, "https://")
	host = strings.TrimPrefix(host, "http://")
	if i := strings.IndexAny(host, "/:"); i >= 0 {
		host = host[:i]
	}
	if host == "" {
		return "stringing.local"
	}
	return host
}

var icsEscaper = strings.NewReplacer(`\`, `\\`, ";", `\;`, ",", `\,`, "\r\n", `\n`, "\n", `\n`)

func escapeICS(s string) string {
	return icsEscaper.Replace(s)
}

func escapeParam(s string) string {
	if s == "" {
		return `""`
	}
	return `"` + strings.NewReplacer(`"`, "'", "\n", " ").Replace(s) + `"`
}

// foldICS splits content lines longer than 75 octets without breaking a rune.
func foldICS(line string) string {
	const limit = 75
	if len(line) <= limit {
		return line
	}
	var b strings.Builder
	n := 0
	for _, r := range line {
		size := len(string(r))
		if n+size > limit {
			b.WriteString("\r\n ")
			n = 1
		}
		b.WriteRune(r)
		n += size
	}
	return b.String()
}
