package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/milongahq/accounts/internal/accounts/domain"
	"github.com/milongahq/accounts/internal/accounts/store"
	"github.com/milongahq/accounts/pkg/cryptox"
	"github.com/milongahq/accounts/pkg/idx"
	"github.com/milongahq/accounts/pkg/slogx"
	"github.com/milongahq/accounts/pkg/tokenx"
)

// dummyHash is a well-formed Argon2id hash verified against when a login
// names an unknown account, so the miss path costs the same as a mismatch.
const dummyHash = "$argon2id$v=19$m=19456,t=2,p=1$c2FsdHNhbHRzYWx0c2FsdA$" +
	"AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// AccountService orchestrates the account lifecycle: registration, login,
// email verification, password reset, and profile updates. All outcomes the
// HTTP layer can show a user are the errors in errors.go; anything else is an
// internal fault.
type AccountService struct {
	Store    store.Store
	Tokens   *tokenx.Service
	Mailer   Mailer
	Pictures PictureStore // optional; nil disables picture updates
	Policy   domain.Policy

	// TokenMaxAge bounds reset and verification tokens. Zero means
	// tokenx.DefaultMaxAge.
	TokenMaxAge time.Duration

	// Now overrides the clock in tests. Nil means time.Now.
	Now func() time.Time
}

type RegisterInput struct {
	Username        string
	Password        string
	ConfirmPassword string
	Email           string
	FirstName       string
	LastName        string
	Role            string
}

type RegisterResult struct {
	UserID string

	// SessionGranted reports whether the caller should be treated as
	// authenticated immediately (policy decision). Session mechanics belong
	// to the caller.
	SessionGranted bool
}

type LoginResult struct {
	User domain.User
}

type PictureUpload struct {
	Filename string
	Data     []byte
}

type UpdateInput struct {
	UserID string

	// Empty string fields keep their current value.
	Username  string
	Email     string
	FirstName string
	LastName  string
	Role      string

	Picture *PictureUpload
}

func (s *AccountService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *AccountService) maxAge() time.Duration {
	if s.TokenMaxAge > 0 {
		return s.TokenMaxAge
	}
	return tokenx.DefaultMaxAge
}

// Register validates the input against the policy, creates the account
// unverified, and mails a verification token. The store is untouched when any
// check fails; the first violated rule is the returned error.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (RegisterResult, error) {
	log := slogx.FromContext(ctx)

	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Role = strings.ToLower(strings.TrimSpace(in.Role))

	if v := ValidateUsername(s.Policy, in.Username); v != nil {
		return RegisterResult{}, v
	}
	if v := ValidatePassword(s.Policy, in.Password, in.ConfirmPassword); v != nil {
		return RegisterResult{}, v
	}
	if v := ValidateEmail(in.Email); v != nil {
		return RegisterResult{}, v
	}
	if v := ValidateName("first_name", in.FirstName, s.Policy.FirstNameMaxLen); v != nil {
		return RegisterResult{}, v
	}
	if v := ValidateName("last_name", in.LastName, s.Policy.LastNameMaxLen); v != nil {
		return RegisterResult{}, v
	}
	if v := ValidateRole(s.Policy, in.Role); v != nil {
		return RegisterResult{}, v
	}

	// Uniqueness layered on top of shape validation.
	if err := s.checkAvailable(ctx, in.Username, in.Email, ""); err != nil {
		return RegisterResult{}, err
	}

	passwordHash, err := cryptox.HashPassword(in.Password)
	if err != nil {
		log.Error("failed to hash password", slog.Any("error", err))
		return RegisterResult{}, err
	}

	user := domain.User{
		ID:            idx.New().String(),
		Username:      in.Username,
		Email:         in.Email,
		PasswordHash:  passwordHash,
		FirstName:     in.FirstName,
		LastName:      in.LastName,
		Role:          in.Role,
		EmailVerified: false,
		ImageFile:     domain.DefaultImageFile,
		CreatedAt:     s.now().UTC(),
	}

	if err := s.Store.Users().CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			// Raced with a concurrent registration; report whichever field
			// collided.
			return RegisterResult{}, s.conflictField(ctx, in.Username)
		}
		log.Error("failed to create user", slog.Any("error", err))
		return RegisterResult{}, err
	}

	token, err := s.Tokens.Issue(user.ID, tokenx.PurposeEmailVerify)
	if err != nil {
		log.Error("failed to issue verification token", slog.Any("error", err))
		return RegisterResult{}, err
	}

	if err := s.Mailer.SendVerificationEmail(ctx, user.Email, token); err != nil {
		// Fire-and-forget: the account exists either way, and the reaper
		// cleans it up if the user never verifies.
		log.Warn("failed to send verification email",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
	}

	log.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
		slog.Bool("session_granted", s.Policy.AutoLoginOnRegister),
	)

	return RegisterResult{
		UserID:         user.ID,
		SessionGranted: s.Policy.AutoLoginOnRegister,
	}, nil
}

// Login authenticates by username or email. Unknown identifier and wrong
// password collapse into the same failure; an unverified account is the one
// deliberately distinct outcome (when the policy gates on it).
func (s *AccountService) Login(ctx context.Context, identifier, password string) (LoginResult, error) {
	log := slogx.FromContext(ctx)

	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return LoginResult{}, ErrInvalidCredentials
	}

	user, err := s.Store.Users().GetUserByUsername(ctx, identifier)
	if errors.Is(err, store.ErrNotFound) {
		user, err = s.Store.Users().GetUserByEmail(ctx, identifier)
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Burn the same hashing cost as a real mismatch.
			_ = cryptox.VerifyPassword(password, dummyHash)
			return LoginResult{}, ErrInvalidCredentials
		}
		log.Error("failed to look up account", slog.Any("error", err))
		return LoginResult{}, err
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrPasswordMismatch) {
			return LoginResult{}, ErrInvalidCredentials
		}
		log.Error("stored password hash is malformed",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
		return LoginResult{}, err
	}

	if s.Policy.RequireVerifiedLogin && !user.EmailVerified {
		return LoginResult{}, ErrEmailNotVerified
	}

	log.Info("user logged in", slog.String("user_id", user.ID))
	return LoginResult{User: user}, nil
}

// RequestPasswordReset mails a reset token when the email matches an account.
// The outcome is identical whether or not it matched, to prevent account
// enumeration.
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) error {
	log := slogx.FromContext(ctx)

	email = strings.TrimSpace(email)
	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Debug("password reset requested for unknown email")
			return nil
		}
		log.Error("failed to look up account", slog.Any("error", err))
		return err
	}

	token, err := s.Tokens.Issue(user.ID, tokenx.PurposePasswordReset)
	if err != nil {
		log.Error("failed to issue reset token", slog.Any("error", err))
		return err
	}

	if err := s.Mailer.SendPasswordResetEmail(ctx, user.Email, token); err != nil {
		log.Warn("failed to send password reset email",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
	}

	log.Info("password reset requested", slog.String("user_id", user.ID))
	return nil
}

// ResetPassword consumes a reset token and overwrites the password. The old
// password is not required: possession of the emailed token is the proof.
func (s *AccountService) ResetPassword(ctx context.Context, token, newPassword, confirm string) error {
	log := slogx.FromContext(ctx)

	userID, err := s.Tokens.Verify(token, tokenx.PurposePasswordReset, s.maxAge())
	if err != nil {
		return ErrInvalidToken
	}

	if v := ValidatePassword(s.Policy, newPassword, confirm); v != nil {
		return v
	}

	passwordHash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		log.Error("failed to hash password", slog.Any("error", err))
		return err
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if s.Policy.SingleUseTokens {
			if err := s.markTokenUsed(ctx, tx, token, userID, tokenx.PurposePasswordReset); err != nil {
				return err
			}
		}
		return tx.Users().UpdatePasswordHash(ctx, userID, passwordHash)
	})
	switch {
	case errors.Is(err, store.ErrNotFound):
		// Account was reaped while the link sat in the inbox.
		return ErrAccountNotFound
	case err != nil:
		return err
	}

	log.Info("password reset completed", slog.String("user_id", userID))
	return nil
}

// VerifyEmail consumes a verification token. Verifying an already-verified
// account is a harmless no-op; the flag never reverts to false.
func (s *AccountService) VerifyEmail(ctx context.Context, token string) error {
	log := slogx.FromContext(ctx)

	userID, err := s.Tokens.Verify(token, tokenx.PurposeEmailVerify, s.maxAge())
	if err != nil {
		return ErrInvalidToken
	}

	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrAccountNotFound
		}
		return err
	}
	if user.EmailVerified {
		return nil
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if s.Policy.SingleUseTokens {
			if err := s.markTokenUsed(ctx, tx, token, userID, tokenx.PurposeEmailVerify); err != nil {
				return err
			}
		}
		return tx.Users().MarkEmailVerified(ctx, userID)
	})
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ErrAccountNotFound
	case err != nil:
		return err
	}

	log.Info("email verified", slog.String("user_id", userID))
	return nil
}

// UpdateAccount applies profile changes. Empty fields keep their current
// value; uniqueness checks skip the caller's own row; an optional new picture
// replaces the old one, which is removed best-effort after commit.
func (s *AccountService) UpdateAccount(ctx context.Context, in UpdateInput) (domain.User, error) {
	log := slogx.FromContext(ctx)

	current, err := s.Store.Users().GetUserByID(ctx, in.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrAccountNotFound
		}
		return domain.User{}, err
	}

	username := strings.TrimSpace(in.Username)
	if username == "" {
		username = current.Username
	}
	email := strings.TrimSpace(in.Email)
	if email == "" {
		email = current.Email
	}
	firstName := strings.TrimSpace(in.FirstName)
	if firstName == "" {
		firstName = current.FirstName
	}
	lastName := strings.TrimSpace(in.LastName)
	if lastName == "" {
		lastName = current.LastName
	}
	role := strings.ToLower(strings.TrimSpace(in.Role))
	if role == "" {
		role = current.Role
	}

	if v := ValidateUsername(s.Policy, username); v != nil {
		return domain.User{}, v
	}
	if v := ValidateEmail(email); v != nil {
		return domain.User{}, v
	}
	if v := ValidateName("first_name", firstName, s.Policy.FirstNameMaxLen); v != nil {
		return domain.User{}, v
	}
	if v := ValidateName("last_name", lastName, s.Policy.LastNameMaxLen); v != nil {
		return domain.User{}, v
	}
	if v := ValidateRole(s.Policy, role); v != nil {
		return domain.User{}, v
	}

	if err := s.checkAvailable(ctx, username, email, current.ID); err != nil {
		return domain.User{}, err
	}

	if in.Picture != nil && s.Pictures == nil {
		return domain.User{}, &ValidationError{Field: "picture", Rule: "not_supported"}
	}

	imageFile := current.ImageFile
	if in.Picture != nil {
		imageFile, err = s.Pictures.Save(ctx, in.Picture.Filename, in.Picture.Data)
		if err != nil {
			log.Error("failed to store profile picture", slog.Any("error", err))
			return domain.User{}, fmt.Errorf("store picture: %w", err)
		}
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().UpdateProfile(ctx, current.ID, username, email, firstName, lastName, role); err != nil {
			return err
		}
		if imageFile != current.ImageFile {
			return tx.Users().UpdateImageFile(ctx, current.ID, imageFile)
		}
		return nil
	})
	switch {
	case errors.Is(err, store.ErrAlreadyExists):
		return domain.User{}, s.conflictField(ctx, username)
	case errors.Is(err, store.ErrNotFound):
		return domain.User{}, ErrAccountNotFound
	case err != nil:
		return domain.User{}, err
	}

	// Dispose of the replaced picture once the new reference is committed.
	// The default sentinel is shared and never deleted.
	if in.Picture != nil && current.ImageFile != domain.DefaultImageFile {
		if err := s.Pictures.Remove(ctx, current.ImageFile); err != nil {
			log.Warn("failed to remove old profile picture",
				slog.String("image_file", current.ImageFile),
				slog.Any("error", err),
			)
		}
	}

	updated, err := s.Store.Users().GetUserByID(ctx, current.ID)
	if err != nil {
		return domain.User{}, err
	}

	log.Info("account updated", slog.String("user_id", updated.ID))
	return updated, nil
}

// checkAvailable layers store-backed uniqueness on top of the pure shape
// validators. selfID, when set, excludes the caller's own row.
func (s *AccountService) checkAvailable(ctx context.Context, username, email, selfID string) error {
	existing, err := s.Store.Users().GetUserByUsername(ctx, username)
	switch {
	case err == nil && existing.ID != selfID:
		return &ConflictError{Field: "username"}
	case err != nil && !errors.Is(err, store.ErrNotFound):
		return err
	}

	existing, err = s.Store.Users().GetUserByEmail(ctx, email)
	switch {
	case err == nil && existing.ID != selfID:
		return &ConflictError{Field: "email"}
	case err != nil && !errors.Is(err, store.ErrNotFound):
		return err
	}

	return nil
}

// conflictField resolves which unique column a constraint violation hit.
func (s *AccountService) conflictField(ctx context.Context, username string) error {
	if _, err := s.Store.Users().GetUserByUsername(ctx, username); err == nil {
		return &ConflictError{Field: "username"}
	}
	return &ConflictError{Field: "email"}
}

// markTokenUsed records the token fingerprint, translating a replay into the
// uniform invalid-token outcome.
func (s *AccountService) markTokenUsed(
	ctx context.Context,
	tx store.Tx,
	token, userID string,
	purpose tokenx.Purpose,
) error {
	err := tx.UsedTokens().MarkTokenUsed(ctx, cryptox.Fingerprint(token), userID, string(purpose))
	if errors.Is(err, store.ErrAlreadyExists) {
		return ErrInvalidToken
	}
	return err
}
