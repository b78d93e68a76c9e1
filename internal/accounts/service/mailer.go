package service

import "context"

// Mailer is the outbound email boundary. Delivery is fire-and-forget from the
// lifecycle's perspective: send failures are logged, never surfaced to the
// caller, and never retried here.
type Mailer interface {
	SendVerificationEmail(ctx context.Context, email, token string) error
	SendPasswordResetEmail(ctx context.Context, email, token string) error
}

// PictureStore is the profile-picture upload boundary. Save returns the
// stored reference; Remove disposes of a replaced picture.
type PictureStore interface {
	Save(ctx context.Context, filename string, data []byte) (string, error)
	Remove(ctx context.Context, name string) error
}
