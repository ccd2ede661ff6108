package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"agreementsd/internal/agreements"
)

// Event subjects published alongside each email.
const (
	subjectInvited       = "agreements.signee.invited"
	subjectSigned        = "agreements.signee.signed"
	subjectApproved      = "agreements.signee.approved"
	subjectRejected      = "agreements.signee.rejected"
	subjectStatusUpdated = "agreements.status.updated"
)

// Mailer renders and delivers transactional email.
type Mailer interface {
	Render(name string, data any) (string, error)
	Send(ctx context.Context, to []string, subject, htmlBody, textBody string) error
}

// Publisher emits domain events. A nil bus publisher is a no-op.
type Publisher interface {
	Publish(ctx context.Context, subj string, v any) error
}

// Notifier fans each notification out to email and the event bus. Delivery
// is fire-and-forget: failures are logged and never fail the triggering
// operation.
type Notifier struct {
	mail       Mailer
	bus        Publisher
	appBaseURL string
	log        zerolog.Logger
}

// New wires a Notifier. bus may be nil.
func New(mail Mailer, bus Publisher, appBaseURL string, log zerolog.Logger) *Notifier {
	return &Notifier{mail: mail, bus: bus, appBaseURL: strings.TrimSuffix(appBaseURL, "/"), log: log}
}

// SignInvitation invites a signee to sign via the share link.
func (n *Notifier) SignInvitation(ctx context.Context, creatorEmail, signeeEmail string, shareID uuid.UUID, link string) {
	data := map[string]any{"CreatorEmail": creatorEmail, "Link": link}
	text := fmt.Sprintf(
		"This email is an invitation to sign an agreement created by %s. Visit this link to view and sign the agreement: %s",
		creatorEmail, link)
	n.send(ctx, "sign_invitation", data, []string{signeeEmail}, "Invitation to sign agreement", text)
	n.publish(ctx, subjectInvited, map[string]any{"share_id": shareID, "signee_email": signeeEmail})
}

// SignatureCompleted tells the creator a signee has signed.
func (n *Notifier) SignatureCompleted(ctx context.Context, creatorEmail, signeeEmail string, agreementID uuid.UUID) {
	link := fmt.Sprintf("%s/agreement/%s", n.appBaseURL, agreementID)
	data := map[string]any{"SigneeEmail": signeeEmail, "Link": link}
	text := fmt.Sprintf(
		"This email is to notify you that %s has signed the agreement. Visit this link to view the agreement: %s",
		signeeEmail, link)
	n.send(ctx, "signature_completed", data, []string{creatorEmail}, "Agreement signed", text)
	n.publish(ctx, subjectSigned, map[string]any{"agreement_id": agreementID, "signee_email": signeeEmail})
}

// SigneeApproved tells the signee their signature was approved.
func (n *Notifier) SigneeApproved(ctx context.Context, creatorEmail, signeeEmail, agreementName string) {
	data := map[string]any{"CreatorEmail": creatorEmail, "AgreementName": agreementName}
	text := fmt.Sprintf("Your signature for the agreement %s has been approved by %s", agreementName, creatorEmail)
	n.send(ctx, "signee_approved", data, []string{signeeEmail}, "Signature approved", text)
	n.publish(ctx, subjectApproved, map[string]any{"agreement_name": agreementName, "signee_email": signeeEmail})
}

// SigneeRejected tells the signee their signature was rejected and why.
func (n *Notifier) SigneeRejected(ctx context.Context, creatorEmail, signeeEmail, agreementName, reason string) {
	data := map[string]any{"CreatorEmail": creatorEmail, "AgreementName": agreementName, "Reason": reason}
	text := fmt.Sprintf("Your signature for the agreement %s has been rejected by %s. Reason: %s",
		agreementName, creatorEmail, reason)
	n.send(ctx, "signee_rejected", data, []string{signeeEmail}, "Signature rejected", text)
	n.publish(ctx, subjectRejected, map[string]any{"agreement_name": agreementName, "signee_email": signeeEmail})
}

// StatusUpdate tells both parties a signature's status changed.
func (n *Notifier) StatusUpdate(ctx context.Context, update agreements.StatusUpdate) {
	data := map[string]any{
		"AgreementName": update.AgreementName,
		"SigneeEmail":   update.SigneeEmail,
		"Status":        update.Status,
	}
	text := fmt.Sprintf("The status of the agreement %s has been updated to %s", update.AgreementName, update.Status)
	n.send(ctx, "status_update", data, []string{update.SigneeEmail, update.CreatorEmail}, "Agreement status update", text)
	n.publish(ctx, subjectStatusUpdated, update)
}

func (n *Notifier) send(ctx context.Context, template string, data map[string]any, to []string, subject, text string) {
	html, err := n.mail.Render(template, data)
	if err != nil {
		n.log.Error().Err(err).Str("template", template).Msg("render email")
		return
	}
	if err := n.mail.Send(ctx, to, subject, html, text); err != nil {
		n.log.Error().Err(err).Str("template", template).Strs("to", to).Msg("send email")
	}
}

func (n *Notifier) publish(ctx context.Context, subj string, v any) {
	if n.bus == nil {
		return
	}
	if err := n.bus.Publish(ctx, subj, v); err != nil {
		n.log.Warn().Err(err).Str("subject", subj).Msg("publish event")
	}
}
