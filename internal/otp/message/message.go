// Package message renders the delivery email that carries a one-time passcode.
package message

import (
	"bytes"
	"html/template"
	"time"
)

// Message is a rendered subject and HTML body ready for a mail sender.
type Message struct {
	Subject  string
	HTMLBody string
}

const subject = "Your Lead Console verification code"

var bodyTmpl = template.Must(template.New("otp-email").Parse(`<p>Hi {{if .Name}}{{.Name}}{{else}}there{{end}},</p>
<p>Your verification code is:</p>
<p style="font-size:24px;font-weight:bold;letter-spacing:4px">{{.Code}}</p>
<p>The code expires in {{.TTLMinutes}} minutes and allows {{.MaxAttempts}} attempts.</p>
<p>Never share this code with anyone. Lead Console staff will never ask for it.</p>
<p>If you did not request this code, you can ignore this email.</p>`))

type bodyData struct {
	Name        string
	Code        string
	TTLMinutes  int
	MaxAttempts int
}

// Compose renders the OTP email embedding the code, the expiry window, and
// the attempt ceiling. Pure; no I/O. displayName may be empty.
func Compose(displayName, code string, ttl time.Duration, maxAttempts int) Message {
	var buf bytes.Buffer
	// Template execution on a flat struct cannot fail at runtime.
	_ = bodyTmpl.Execute(&buf, bodyData{
		Name:        displayName,
		Code:        code,
		TTLMinutes:  int(ttl.Minutes()),
		MaxAttempts: maxAttempts,
	})
	return Message{Subject: subject, HTMLBody: buf.String()}
}
