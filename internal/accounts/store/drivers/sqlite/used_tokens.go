package sqlite

import (
	"context"
	"time"
)

type usedTokensRepo struct {
	db dbtx
}

func (r *usedTokensRepo) MarkTokenUsed(ctx context.Context, fingerprint, userID, purpose string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO used_tokens (fingerprint, user_id, purpose, created_at)
		VALUES (?, ?, ?, ?)`,
		fingerprint, userID, purpose, time.Now().UTC(),
	)
	return mapConstraint(err)
}

func (r *usedTokensRepo) DeleteUsedTokensBefore(ctx context.Context, cutoff time.Time) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM used_tokens WHERE created_at < ?`, cutoff.UTC())
	return err
}
