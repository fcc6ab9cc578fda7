package booking

import (
	"bytes"
	"html/template"
	"net/url"
	"strings"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

var confirmationTmpl = template.Must(template.New("confirmation").Parse(`<div style="font-family:system-ui">
  <h2>Thank you, {{.Name}}!</h2>
  <p>Your <b>{{.Service}}</b> booking is confirmed.</p>
  <p>Time: {{.Start}} &ndash; {{.End}}</p>
  <p><a href="{{.CancelURL}}">Cancel this booking</a></p>
{{- if .RescheduleURL}}
  <p><a href="{{.RescheduleURL}}">Reschedule this booking</a></p>
{{- end}}
  <p style="color:#666">This email was sent automatically.</p>
</div>
`))

type confirmationData struct {
	Name          string
	Service       string
	Start         string
	End           string
	CancelURL     string
	RescheduleURL string
}

// renderConfirmation builds the subject and HTML body of the booking
// confirmation email. Times are shown in the booking offset. The reschedule
// link is only rendered when a reschedule page is configured.
func renderConfirmation(cfg Config, b model.Booking, svc model.Service) (string, string, error) {
	base := strings.TrimRight(cfg.PublicBaseURL, "/")
	token := url.QueryEscape(b.CancelToken)
	loc := cfg.Location
	var reschedule string
	if cfg.ReschedulePageURL != "" {
		reschedule = withToken(cfg.ReschedulePageURL, token)
	}
	const layout = "Mon 02 Jan 2006 15:04 -07:00"

	var buf bytes.Buffer
	err := confirmationTmpl.Execute(&buf, confirmationData{
		Name:          b.CustomerName,
		Service:       svc.Name,
		Start:         b.StartsAt.In(loc).Format(layout),
		End:           b.EndsAt.In(loc).Format(layout),
		CancelURL:     base + "/api/v1/cancel?token=" + token,
		RescheduleURL: reschedule,
	})
	if err != nil {
		return "", "", err
	}
	return "Booking confirmed: " + svc.Name, buf.String(), nil
}

func withToken(page, token string) string {
	sep := "?"
	if strings.Contains(page, "?") {
		sep = "&"
	}
	return page + sep + "token=" + token
}
