package store

import (
	"context"
	"errors"
	"time"

	"github.com/milongahq/accounts/internal/accounts/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite for now)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable.
type Store interface {
	Users() Users
	UsedTokens() UsedTokens

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error, the
	// transaction is rolled back; otherwise it is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// CreateUser inserts a new user (id is provided by app via ULID).
	// Returns ErrAlreadyExists when the username or email is taken.
	CreateUser(ctx context.Context, u domain.User) error

	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByUsername is used during login and uniqueness checks.
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// GetUserByEmail is used during login, password reset, and uniqueness checks.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// UpdatePasswordHash overwrites password_hash and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error

	// MarkEmailVerified flips email_verified to true. The flag never reverts;
	// calling this on an already-verified user is a no-op.
	MarkEmailVerified(ctx context.Context, userID string) error

	// UpdateProfile mutates the caller-editable fields and bumps updated_at.
	// Returns ErrAlreadyExists when the new username or email collides with
	// another row.
	UpdateProfile(ctx context.Context, userID, username, email, firstName, lastName, role string) error

	// UpdateImageFile swaps the profile picture reference.
	UpdateImageFile(ctx context.Context, userID string, imageFile string) error

	// DeleteUser removes the row.
	DeleteUser(ctx context.Context, userID string) error

	// DeleteUserIfUnverified removes the row only while email_verified is
	// still false. Returns ErrNotFound when the row is gone or already
	// verified, so a racing verification always wins over deletion.
	DeleteUserIfUnverified(ctx context.Context, userID string) error

	// ListStaleUnverified returns users still unverified whose created_at is
	// strictly before cutoff. Verified users are never returned.
	ListStaleUnverified(ctx context.Context, cutoff time.Time) ([]domain.User, error)

	// CountUsers returns the total number of users.
	CountUsers(ctx context.Context) (int64, error)
}

type UsedTokens interface {
	// MarkTokenUsed records a consumed token fingerprint. Returns
	// ErrAlreadyExists if the fingerprint was recorded before.
	MarkTokenUsed(ctx context.Context, fingerprint, userID, purpose string) error

	// DeleteUsedTokensBefore removes fingerprints recorded before cutoff.
	// Safe to prune once the underlying tokens have expired anyway.
	DeleteUsedTokensBefore(ctx context.Context, cutoff time.Time) error
}
