// Package notify sends email for lifecycle milestones through SendGrid
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/linesmerrill/grievance-api/models"
	templates "github.com/linesmerrill/grievance-api/templates/html"
)

const fromName = "Civic Grievance Portal"

// Sender is the part of the SendGrid client the mailer uses
type Sender interface {
	Send(email *mail.SGMailV3) (*rest.Response, error)
}

// Users looks up who to mail
type Users interface {
	User(ctx context.Context, id string) (*models.User, error)
}

// Mailer emails citizens and administrators
type Mailer struct {
	sender  Sender
	users   Users
	from    *mail.Email
	baseURL string
	timeout time.Duration
}

// NewSendGridMailer builds a Mailer backed by the SendGrid API
func NewSendGridMailer(apiKey string, users Users, fromAddress, baseURL string) *Mailer {
	return NewMailer(sendgrid.NewSendClient(apiKey), users, fromAddress, baseURL)
}

// NewMailer builds a Mailer around any Sender
func NewMailer(sender Sender, users Users, fromAddress, baseURL string) *Mailer {
	return &Mailer{
		sender:  sender,
		users:   users,
		from:    mail.NewEmail(fromName, fromAddress),
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: 30 * time.Second,
	}
}

// HandleEvent mails the owner when a report is resolved. It is registered as a
// broadcaster listener so it runs off the write path.
func (m *Mailer) HandleEvent(e models.LifecycleEvent) {
	if e.Kind != models.EventTransition || e.NewStatus != models.StatusResolved || e.Report == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()
	if err := m.NotifyResolved(ctx, *e.Report); err != nil {
		zap.S().Errorw("failed to send resolution email", "report", e.ReportID, "error", err)
	}
}

// NotifyResolved emails the report owner that their report was resolved
func (m *Mailer) NotifyResolved(ctx context.Context, r models.Report) error {
	owner, err := m.users.User(ctx, r.Owner)
	if err != nil {
		return fmt.Errorf("failed to look up report owner: %w", err)
	}
	if owner.Details.Email == "" {
		zap.S().Debugw("report owner has no email, skipping resolution email", "report", r.ID, "owner", r.Owner)
		return nil
	}

	reportURL := ""
	if m.baseURL != "" {
		reportURL = m.baseURL + "/reports/" + r.ID
	}
	subject := "Resolved: " + r.Title
	htmlContent := templates.RenderResolutionEmail(owner.Details.Name, r.Title, r.ResolutionNote, r.ResolutionImage, reportURL)
	plainText := fmt.Sprintf("Your report %q has been resolved.\n\n%s\n\nProof: %s", r.Title, r.ResolutionNote, r.ResolutionImage)

	return m.send(owner.Details.Email, owner.Details.Name, subject, htmlContent, plainText)
}

// SendDigest emails a workload summary to each administrator
func (m *Mailer) SendDigest(admins []models.User, loads []models.OfficerWorkload) error {
	if len(admins) == 0 {
		return nil
	}
	var b strings.Builder
	b.WriteString("Open reports per officer:\n\n")
	for _, l := range loads {
		name := l.Name
		if name == "" {
			name = l.Officer
		}
		fmt.Fprintf(&b, "%s: %d\n", name, l.OpenReports)
	}
	if len(loads) == 0 {
		b.WriteString("No officers are registered.\n")
	}
	subject := "Officer workload digest"
	htmlContent := templates.RenderGenericEmail(subject, b.String())

	var failed int
	for _, a := range admins {
		if a.Details.Email == "" {
			continue
		}
		if err := m.send(a.Details.Email, a.Details.Name, subject, htmlContent, b.String()); err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("failed to send workload digest to %d administrator(s)", failed)
	}
	return nil
}

func (m *Mailer) send(toEmail, toName, subject, htmlContent, plainText string) error {
	to := mail.NewEmail(toName, toEmail)
	message := mail.NewSingleEmail(m.from, subject, to, plainText, htmlContent)
	response, err := m.sender.Send(message)
	if err != nil {
		zap.S().Errorw("failed to send email", "error", err, "to", toEmail)
		return err
	}
	if response.StatusCode >= 400 {
		zap.S().Errorw("sendgrid returned error status", "status", response.StatusCode, "body", response.Body, "to", toEmail)
		return fmt.Errorf("sendgrid error: status %d", response.StatusCode)
	}
	zap.S().Infow("email sent successfully", "to", toEmail, "subject", subject)
	return nil
}
