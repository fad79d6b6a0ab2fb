package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/clinic-ai-scheduler/internal/appointment"
	"github.com/wolfman30/clinic-ai-scheduler/pkg/logging"
)

// Service renders and sends patient-facing booking emails.
type Service struct {
	email      EmailSender
	clinicName string
	loc        *time.Location
	logger     *logging.Logger
}

// NewService creates a notification service. clinicName appears in the email
// signature; loc controls how slot times are rendered.
func NewService(email EmailSender, clinicName string, loc *time.Location, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if loc == nil {
		loc = time.Local
	}
	if clinicName == "" {
		clinicName = "City Health Clinic"
	}
	return &Service{
		email:      email,
		clinicName: clinicName,
		loc:        loc,
		logger:     logger,
	}
}

// SendConfirmation emails the patient their booking details. The caller
// treats a failure here as soft: the booking stands either way.
func (s *Service) SendConfirmation(ctx context.Context, record appointment.BookingRecord) error {
	if s.email == nil {
		s.logger.Debug("notify: email sender not configured, skipping confirmation")
		return nil
	}
	if strings.TrimSpace(record.Request.Email) == "" {
		return fmt.Errorf("notify: booking record has no patient email")
	}

	start := record.Slot.Start.In(s.loc)
	dateLine := start.Format("Monday, January 2, 2006")
	timeLine := start.Format("3:04 PM")

	subject := fmt.Sprintf("Appointment Confirmed - %s", dateLine)
	body := fmt.Sprintf(`Dear %s,

Your appointment has been confirmed!

Specialty: %s
Date: %s
Time: %s
Confirmation: %s

Please arrive 15 minutes early and bring a photo ID and your insurance card.
If you need to reschedule, reply to this email or call the front desk.

— %s`, record.Request.PatientName, record.Request.Specialty, dateLine, timeLine, record.ConfirmationID, s.clinicName)

	html := fmt.Sprintf(`<div style="font-family: sans-serif; max-width: 600px;">
<h2 style="color: #2563eb;">Appointment Confirmed</h2>
<p>Dear <strong>%s</strong>, your appointment has been booked.</p>
<table style="border-collapse: collapse; margin: 20px 0;">
  <tr><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;"><strong>Specialty:</strong></td><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;">%s</td></tr>
  <tr><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;"><strong>Date:</strong></td><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;">%s</td></tr>
  <tr><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;"><strong>Time:</strong></td><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;">%s</td></tr>
  <tr><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;"><strong>Confirmation:</strong></td><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;">%s</td></tr>
</table>
<p style="background: #eff6ff; padding: 12px; border-radius: 8px; border-left: 4px solid #2563eb;">
  Please arrive 15 minutes early and bring a photo ID and your insurance card.
</p>
<p style="color: #6b7280; font-size: 12px; margin-top: 20px;">— %s</p>
</div>`,
		record.Request.PatientName, record.Request.Specialty, dateLine, timeLine, record.ConfirmationID, s.clinicName)

	msg := EmailMessage{
		To:      record.Request.Email,
		ToName:  record.Request.PatientName,
		Subject: subject,
		Body:    body,
		HTML:    html,
	}
	if err := s.email.Send(ctx, msg); err != nil {
		s.logger.Error("notify: failed to send confirmation",
			"error", err,
			"to", record.Request.Email,
			"booking_id", record.ID,
		)
		return fmt.Errorf("notify: confirmation email: %w", err)
	}

	s.logger.Info("confirmation email sent",
		"to", record.Request.Email,
		"booking_id", record.ID,
		"confirmation_id", record.ConfirmationID,
	)
	return nil
}
