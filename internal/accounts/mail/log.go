// Package mail provides the dev/default Mailer: it writes the message that
// would have been sent to the log instead of an SMTP relay. Real transport is
// a deployment concern outside this service.
package mail

import (
	"context"
	"log/slog"
)

type LogMailer struct {
	Logger *slog.Logger
}

func (m *LogMailer) SendVerificationEmail(ctx context.Context, email, token string) error {
	m.Logger.Info("verification email",
		slog.String("to", email),
		slog.String("token", token),
	)
	return nil
}

func (m *LogMailer) SendPasswordResetEmail(ctx context.Context, email, token string) error {
	m.Logger.Info("password reset email",
		slog.String("to", email),
		slog.String("token", token),
	)
	return nil
}
