package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/milongahq/accounts/internal/accounts/domain"
	"github.com/milongahq/accounts/internal/accounts/store"
	"github.com/milongahq/accounts/internal/accounts/store/drivers/sqlite"
	"github.com/milongahq/accounts/pkg/idx"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newReaperFixture(t *testing.T) (*ReaperService, *sqlite.Store, *clock) {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	clk := &clock{now: time.Now().UTC()}

	r := NewReaperService(st, discardLogger(), time.Minute, 30*time.Minute)
	r.Now = clk.Now
	return r, st, clk
}

func seedUser(t *testing.T, st store.Store, username string, createdAt time.Time) domain.User {
	t.Helper()

	u := domain.User{
		ID:           idx.New().String(),
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "$argon2id$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA",
		FirstName:    "Test",
		LastName:     "User",
		Role:         "follower",
		ImageFile:    domain.DefaultImageFile,
		CreatedAt:    createdAt,
	}
	require.NoError(t, st.Users().CreateUser(context.Background(), u))
	return u
}

func TestReaperDeletesStaleUnverifiedOnly(t *testing.T) {
	ctx := context.Background()
	r, st, clk := newReaperFixture(t)
	t0 := clk.Now()

	stale := seedUser(t, st, "staleuser", t0)
	fresh := seedUser(t, st, "freshuser", t0.Add(20*time.Minute))
	verified := seedUser(t, st, "verifieduser", t0)
	require.NoError(t, st.Users().MarkEmailVerified(ctx, verified.ID))

	clk.Advance(31 * time.Minute)
	r.RunOnce(ctx)

	_, err := st.Users().GetUserByID(ctx, stale.ID)
	require.ErrorIs(t, err, store.ErrNotFound)

	// Still inside its grace window.
	_, err = st.Users().GetUserByID(ctx, fresh.ID)
	require.NoError(t, err)

	// Verified accounts are never reaped regardless of age.
	_, err = st.Users().GetUserByID(ctx, verified.ID)
	require.NoError(t, err)
}

func TestReaperVerificationBeatsGracePeriod(t *testing.T) {
	ctx := context.Background()
	r, st, clk := newReaperFixture(t)
	t0 := clk.Now()

	u := seedUser(t, st, "racinguser", t0)

	// Verified at t0+10min, reaper fires at t0+31min: account survives.
	clk.Advance(10 * time.Minute)
	require.NoError(t, st.Users().MarkEmailVerified(ctx, u.ID))

	clk.Advance(21 * time.Minute)
	r.RunOnce(ctx)

	_, err := st.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
}

// flakyUsers fails deletion for one specific user id.
type flakyUsers struct {
	store.Users
	failID string
}

func (f *flakyUsers) DeleteUserIfUnverified(ctx context.Context, userID string) error {
	if userID == f.failID {
		return errors.New("disk full")
	}
	return f.Users.DeleteUserIfUnverified(ctx, userID)
}

type flakyStore struct {
	store.Store
	failID string
}

func (f *flakyStore) Users() store.Users {
	return &flakyUsers{Users: f.Store.Users(), failID: f.failID}
}

func TestReaperPartialFailureDoesNotAbortBatch(t *testing.T) {
	ctx := context.Background()
	r, st, clk := newReaperFixture(t)
	t0 := clk.Now()

	broken := seedUser(t, st, "brokenuser", t0)
	healthy := seedUser(t, st, "healthyuser", t0)

	r.Store = &flakyStore{Store: st, failID: broken.ID}
	clk.Advance(31 * time.Minute)
	r.RunOnce(ctx)

	// The failed deletion is skipped; the rest of the batch proceeds.
	_, err := st.Users().GetUserByID(ctx, broken.ID)
	require.NoError(t, err)
	_, err = st.Users().GetUserByID(ctx, healthy.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}

// verifyingUsers flips email_verified right after the scan returns,
// simulating a verification request landing between the list and the delete.
type verifyingUsers struct {
	store.Users
}

func (v *verifyingUsers) ListStaleUnverified(ctx context.Context, cutoff time.Time) ([]domain.User, error) {
	stale, err := v.Users.ListStaleUnverified(ctx, cutoff)
	if err != nil {
		return nil, err
	}
	for _, u := range stale {
		if err := v.Users.MarkEmailVerified(ctx, u.ID); err != nil {
			return nil, err
		}
	}
	return stale, nil
}

type verifyingStore struct {
	store.Store
}

func (s *verifyingStore) Users() store.Users {
	return &verifyingUsers{Users: s.Store.Users()}
}

func TestReaperSkipsAccountVerifiedAfterScan(t *testing.T) {
	ctx := context.Background()
	r, st, clk := newReaperFixture(t)
	t0 := clk.Now()

	u := seedUser(t, st, "lastsecond", t0)

	r.Store = &verifyingStore{Store: st}
	clk.Advance(31 * time.Minute)
	r.RunOnce(ctx)

	// Verification landed mid-pass; the account must survive.
	got, err := st.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, got.EmailVerified)
}

func TestReaperPrunesExpiredUsedTokens(t *testing.T) {
	ctx := context.Background()
	r, st, clk := newReaperFixture(t)

	require.NoError(t, st.UsedTokens().MarkTokenUsed(ctx, "fp-old", "u1", "password_reset"))

	clk.Advance(31 * time.Minute)
	r.RunOnce(ctx)

	// The fingerprint is gone, so recording it again succeeds.
	require.NoError(t, st.UsedTokens().MarkTokenUsed(ctx, "fp-old", "u1", "password_reset"))
}

func TestReaperStartStop(t *testing.T) {
	r, _, _ := newReaperFixture(t)
	r.Interval = 10 * time.Millisecond

	r.Start()
	time.Sleep(25 * time.Millisecond)
	r.Stop() // blocks until the in-flight tick finishes
}
