// Package mail builds and sends transactional emails over SMTP.
//
//	err := mail.To(user.Email).
//	    Subject("Confirmez votre compte").
//	    Render(confirmTemplate, data).
//	    Send()
//
// Tests replace DefaultTransport to capture messages instead of dialing.
package mail

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"html/template"
	"mime"
	"net/smtp"
	"strings"
	"sync"

	"github.com/rituelsdebene/boutique/config"
)

// SMTP holds connection credentials.
type SMTP struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

func defaultSMTP() SMTP {
	return SMTP{
		Host:     config.Get("MAIL_HOST", "localhost"),
		Port:     config.Get("MAIL_PORT", "587"),
		Username: config.Get("MAIL_USERNAME", ""),
		Password: config.Get("MAIL_PASSWORD", ""),
		From:     config.Get("MAIL_FROM", "contact@rituelsdebene.fr"),
		FromName: config.Get("MAIL_FROM_NAME", "Rituels d'Ébène"),
	}
}

// Transport delivers a built message.
type Transport interface {
	Deliver(cfg SMTP, m *Message) error
}

var (
	transportMu      sync.RWMutex
	defaultTransport Transport = smtpTransport{}
)

// SetTransport swaps the transport and returns a restore func.
func SetTransport(t Transport) (restore func()) {
	transportMu.Lock()
	prev := defaultTransport
	defaultTransport = t
	transportMu.Unlock()
	return func() {
		transportMu.Lock()
		defaultTransport = prev
		transportMu.Unlock()
	}
}

func currentTransport() Transport {
	transportMu.RLock()
	defer transportMu.RUnlock()
	return defaultTransport
}

// ------------------- Message -------------------

type Message struct {
	to      []string
	subject string
	body    string
	isHTML  bool
	err     error
	smtpCfg SMTP
}

func To(addresses ...string) *Message {
	return &Message{
		to:      addresses,
		isHTML:  true,
		smtpCfg: defaultSMTP(),
	}
}

func (m *Message) Subject(s string) *Message {
	m.subject = s
	return m
}

// Body sets an HTML body.
func (m *Message) Body(html string) *Message {
	m.body = html
	m.isHTML = true
	return m
}

// Text sets a plain-text body.
func (m *Message) Text(text string) *Message {
	m.body = text
	m.isHTML = false
	return m
}

// Render executes an html/template source with data as the HTML body.
// A template error is reported by Send.
func (m *Message) Render(source string, data interface{}) *Message {
	tmpl, err := template.New("mail").Parse(source)
	if err != nil {
		m.err = fmt.Errorf("mail: parse template: %w", err)
		return m
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		m.err = fmt.Errorf("mail: render template: %w", err)
		return m
	}
	return m.Body(buf.String())
}

// UseConfig overrides the SMTP settings for this message.
func (m *Message) UseConfig(cfg SMTP) *Message {
	m.smtpCfg = cfg
	return m
}

func (m *Message) Recipients() []string { return append([]string(nil), m.to...) }

func (m *Message) SubjectLine() string { return m.subject }

func (m *Message) Content() string { return m.body }

// Send delivers the message through the current transport.
func (m *Message) Send() error {
	if m.err != nil {
		return m.err
	}
	if len(m.to) == 0 {
		return fmt.Errorf("mail: no recipient")
	}
	return currentTransport().Deliver(m.smtpCfg, m)
}

// ------------------- SMTP -------------------

type smtpTransport struct{}

func (smtpTransport) Deliver(cfg SMTP, m *Message) error {
	if cfg.Username == "" {
		return fmt.Errorf("mail: MAIL_USERNAME not configured")
	}

	raw := m.buildRaw(cfg)
	addr := cfg.Host + ":" + cfg.Port
	auth := smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)

	if cfg.Port == "465" {
		return sendTLS(addr, auth, cfg.From, m.to, raw, cfg.Host)
	}
	return smtp.SendMail(addr, auth, cfg.From, m.to, raw)
}

func sendTLS(addr string, auth smtp.Auth, from string, to []string, raw []byte, host string) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: host})
	if err != nil {
		return fmt.Errorf("mail: TLS dial: %w", err)
	}
	client, err := smtp.NewClient(conn, host)
	if err != nil {
		return err
	}
	defer client.Quit()

	if err := client.Auth(auth); err != nil {
		return err
	}
	if err := client.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(raw); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func (m *Message) buildRaw(cfg SMTP) []byte {
	contentType := "text/plain"
	if m.isHTML {
		contentType = "text/html"
	}

	from := fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", cfg.FromName), cfg.From)

	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + strings.Join(m.to, ", ") + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", m.subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString(fmt.Sprintf("Content-Type: %s; charset=\"UTF-8\"\r\n", contentType))
	b.WriteString("\r\n")
	b.WriteString(m.body)
	return []byte(b.String())
}
