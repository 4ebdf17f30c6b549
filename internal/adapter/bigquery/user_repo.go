package bigquery

import (
	"context"
	"time"

	"healthreport/internal/domain"
)

var _ domain.UserRepository = (*Warehouse)(nil)

const userSelect = "SELECT id, kind, username, password_hash, google_id, email, display_name, profile_picture_url, created_at, updated_at FROM "

func (w *Warehouse) getUser(ctx context.Context, where string, params map[string]any) (*domain.User, error) {
	sql := userSelect + w.table(w.tables.Users) + " WHERE " + where + " LIMIT 1"
	rows, err := readAll[userRow](ctx, w.query(sql, params))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	u := rows[0].toDomain()
	return &u, nil
}

// GetByUsername retrieves a local user by username.
func (w *Warehouse) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return w.getUser(ctx, "kind = 'local' AND username = @username", map[string]any{"username": username})
}

// GetByID retrieves a user by ID.
func (w *Warehouse) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return w.getUser(ctx, "id = @id", map[string]any{"id": id})
}

// GetByGoogleID retrieves a federated user by Google subject.
func (w *Warehouse) GetByGoogleID(ctx context.Context, googleID string) (*domain.User, error) {
	return w.getUser(ctx, "kind = 'federated' AND google_id = @google_id", map[string]any{"google_id": googleID})
}

// Create streams a new local user. Username uniqueness is checked by the
// caller; the warehouse has no unique constraints.
func (w *Warehouse) Create(ctx context.Context, u domain.User) error {
	t := w.client.Dataset(w.dataset).Table(w.tables.Users)
	return put(ctx, t, []userRow{toUserRow(u)})
}

// UpsertFederated merges the profile on google_id in a single MERGE.
func (w *Warehouse) UpsertFederated(ctx context.Context, p domain.FederatedProfile, now time.Time) error {
	sql := `MERGE ` + w.table(w.tables.Users) + ` T
USING (SELECT @google_id AS google_id, @email AS email, @display_name AS display_name, @picture AS profile_picture_url) S
ON T.kind = 'federated' AND T.google_id = S.google_id
WHEN MATCHED THEN
	UPDATE SET email = S.email, display_name = S.display_name, profile_picture_url = S.profile_picture_url, updated_at = @now
WHEN NOT MATCHED THEN
	INSERT (id, kind, google_id, email, display_name, profile_picture_url, created_at, updated_at)
	VALUES (GENERATE_UUID(), 'federated', S.google_id, S.email, S.display_name, S.profile_picture_url, @now, @now)`
	return exec(ctx, w.query(sql, map[string]any{
		"google_id":    p.GoogleID,
		"email":        p.Email,
		"display_name": p.DisplayName,
		"picture":      p.PictureURL,
		"now":          now.UTC(),
	}))
}
