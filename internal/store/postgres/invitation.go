package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/agileboard/internal/domain"
)

const invitationColumns = `id, project_id, email, token, invited_by, status, expires_at, created_at, responded_at`

type InvitationRepo struct {
	pool *pgxpool.Pool
}

func NewInvitationRepo(pool *pgxpool.Pool) *InvitationRepo {
	return &InvitationRepo{pool: pool}
}

func (r *InvitationRepo) Create(ctx context.Context, inv *domain.ProjectInvitation) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO project_invitations (`+invitationColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		inv.ID, inv.ProjectID, inv.Email, inv.Token, inv.InvitedByID,
		inv.Status, inv.ExpiresAt, inv.CreatedAt, inv.RespondedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("invitationRepo.Create: %w", domain.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("invitationRepo.Create: %w", err)
	}

	return nil
}

func (r *InvitationRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.ProjectInvitation, error) {
	inv, err := scanInvitation(r.pool.QueryRow(ctx,
		`SELECT `+invitationColumns+` FROM project_invitations WHERE id = $1`,
		id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("invitationRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("invitationRepo.GetByID: %w", err)
	}

	return inv, nil
}

func (r *InvitationRepo) GetByToken(ctx context.Context, token string) (*domain.ProjectInvitation, error) {
	inv, err := scanInvitation(r.pool.QueryRow(ctx,
		`SELECT `+invitationColumns+` FROM project_invitations WHERE token = $1`,
		token,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("invitationRepo.GetByToken: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("invitationRepo.GetByToken: %w", err)
	}

	return inv, nil
}

func (r *InvitationRepo) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*domain.ProjectInvitation, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+invitationColumns+` FROM project_invitations
		 WHERE project_id = $1 ORDER BY created_at DESC`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("invitationRepo.ListByProject: %w", err)
	}
	defer rows.Close()

	return scanInvitations(rows, "invitationRepo.ListByProject")
}

func (r *InvitationRepo) ListPendingForEmail(ctx context.Context, email string) ([]*domain.ProjectInvitation, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+invitationColumns+` FROM project_invitations
		 WHERE email = $1 AND status = 'pending' AND expires_at > now()
		 ORDER BY created_at DESC`,
		domain.NormalizeEmail(email),
	)
	if err != nil {
		return nil, fmt.Errorf("invitationRepo.ListPendingForEmail: %w", err)
	}
	defer rows.Close()

	return scanInvitations(rows, "invitationRepo.ListPendingForEmail")
}

// Accept marks a pending invitation accepted and adds the member in one transaction.
func (r *InvitationRepo) Accept(ctx context.Context, id, userID uuid.UUID) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var projectID uuid.UUID

		err := tx.QueryRow(ctx,
			`UPDATE project_invitations SET status = 'accepted', responded_at = now()
			 WHERE id = $1 AND status = 'pending'
			 RETURNING project_id`,
			id,
		).Scan(&projectID)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrConflict
		}
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO project_members (project_id, user_id, role, joined_at)
			 VALUES ($1, $2, 'member', now())
			 ON CONFLICT (project_id, user_id) DO NOTHING`,
			projectID, userID,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("invitationRepo.Accept: %w", err)
	}

	return nil
}

func (r *InvitationRepo) SetStatus(ctx context.Context, id uuid.UUID, status domain.InvitationStatus) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE project_invitations SET status = $1, responded_at = now()
		 WHERE id = $2`,
		status, id,
	)
	if err != nil {
		return fmt.Errorf("invitationRepo.SetStatus: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("invitationRepo.SetStatus: %w", domain.ErrNotFound)
	}

	return nil
}

func scanInvitation(row pgx.Row) (*domain.ProjectInvitation, error) {
	var inv domain.ProjectInvitation

	err := row.Scan(
		&inv.ID, &inv.ProjectID, &inv.Email, &inv.Token, &inv.InvitedByID,
		&inv.Status, &inv.ExpiresAt, &inv.CreatedAt, &inv.RespondedAt,
	)
	if err != nil {
		return nil, err
	}

	return &inv, nil
}

func scanInvitations(rows pgx.Rows, caller string) ([]*domain.ProjectInvitation, error) {
	var out []*domain.ProjectInvitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", caller, err)
		}
		out = append(out, inv)
	}
	err := rows.Err()
	if err != nil {
		return nil, fmt.Errorf("%s: rows: %w", caller, err)
	}

	return out, nil
}
