package email

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"channel-insights/internal/models"
	"channel-insights/shared/config"
)

//go:embed digest.html
var digestTemplate string

var funcs = template.FuncMap{
	"div": func(a, b float64) float64 {
		if b == 0 {
			return 0
		}
		return a / b
	},
	"mul":     func(a, b float64) float64 { return a * b },
	"float64": func(i int) float64 { return float64(i) },
	"chartTitle": func(t models.ChartType) string {
		return strings.ReplaceAll(string(t), "_", " ")
	},
}

var digestTmpl = template.Must(template.New("digest").Funcs(funcs).Parse(digestTemplate))

// Digest is the data the HTML template renders.
type Digest struct {
	Date    time.Time
	Reports []*models.DigestReport
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type Sender struct {
	config config.EmailConfig
	send   sendFunc
}

func NewSender(cfg config.EmailConfig) *Sender {
	return &Sender{
		config: cfg,
		send:   smtp.SendMail,
	}
}

// SendDigest mails one HTML message summarizing every report. No reports, no mail.
func (s *Sender) SendDigest(reports []*models.DigestReport, date time.Time) error {
	if len(reports) == 0 {
		return nil
	}

	body, err := RenderDigest(Digest{Date: date, Reports: reports})
	if err != nil {
		return fmt.Errorf("failed to generate email body: %w", err)
	}

	subject := fmt.Sprintf("Channel Digest - %d %s (%s)",
		len(reports), plural(len(reports), "channel", "channels"), date.Format("Jan 2, 2006"))

	if err := s.SendHTML(subject, body); err != nil {
		return err
	}
	log.Info().Int("reports", len(reports)).Str("to", s.config.ToEmail).Msg("Digest email sent")
	return nil
}

// SendHTML sends an email with custom HTML content
func (s *Sender) SendHTML(subject, htmlBody string) error {
	auth := smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.SMTPServer)
	addr := fmt.Sprintf("%s:%d", s.config.SMTPServer, s.config.SMTPPort)

	if err := s.send(addr, auth, s.config.FromEmail, []string{s.config.ToEmail}, s.message(subject, htmlBody)); err != nil {
		return fmt.Errorf("failed to send email via %s: %w", addr, err)
	}
	return nil
}

func (s *Sender) message(subject, body string) []byte {
	return []byte(fmt.Sprintf(`To: %s
From: %s
Subject: %s
MIME-Version: 1.0
Content-Type: text/html; charset=UTF-8

%s`, s.config.ToEmail, s.config.FromEmail, subject, body))
}

// RenderDigest executes the embedded HTML template.
func RenderDigest(d Digest) (string, error) {
	var buf bytes.Buffer
	if err := digestTmpl.Execute(&buf, d); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
