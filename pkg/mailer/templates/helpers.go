package templates

import (
	"time"
)

// Brand carries the sender identity shown in every template.
type Brand struct {
	AppName     string
	CompanyName string
	SupportURL  string
}

// Option pattern
type Option func(*EmailData)

func WithIP(ip string) Option        { return func(d *EmailData) { d.IP = ip } }
func WithUserAgent(ua string) Option { return func(d *EmailData) { d.UserAgent = ua } }
func WithTime(t time.Time) Option {
	return func(d *EmailData) {
		utc := t.UTC()
		d.TimeAt = utc
		d.Time = utc.Format("02 January 2006, 15:04 MST")
	}
}

func newBaseEmailData(b Brand, typ, name, username, email string, opts ...Option) EmailData {
	d := EmailData{
		Name:     name,
		Username: username,
		Email:    email,
		Type:     typ,

		CompanyName: b.CompanyName,
		AppName:     b.AppName,
		SupportURL:  b.SupportURL,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

func NewWelcomeData(b Brand, name, username, email string) map[string]any {
	return ToMap(newBaseEmailData(b, Welcome, name, username, email))
}

func NewLoginNotificationData(b Brand, name, username, email string, opts ...Option) map[string]any {
	return ToMap(newBaseEmailData(b, LoginNotification, name, username, email, opts...))
}
