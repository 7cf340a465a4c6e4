package membership

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Groups interface {
	repository.Repository[*Group]

	GetByName(ctx context.Context, name string) (*Group, error)
	GetByNameTx(ctx context.Context, tx bun.IDB, name string) (*Group, error)

	AddMember(ctx context.Context, groupID, userID uuid.UUID) error
	AddMemberTx(ctx context.Context, tx bun.IDB, groupID, userID uuid.UUID) error
	RemoveMember(ctx context.Context, groupID, userID uuid.UUID) error
	RemoveMemberTx(ctx context.Context, tx bun.IDB, groupID, userID uuid.UUID) error

	ListForUser(ctx context.Context, userID uuid.UUID) ([]*Group, error)
	ListForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) ([]*Group, error)
	IsMember(ctx context.Context, groupID, userID uuid.UUID) (bool, error)
	IsMemberTx(ctx context.Context, tx bun.IDB, groupID, userID uuid.UUID) (bool, error)
}

type groups struct {
	repository.Repository[*Group]
	db *bun.DB
}

var (
	_ Groups                        = (*groups)(nil)
	_ repository.Repository[*Group] = (*groups)(nil)
)

func NewGroupsRepository(db *bun.DB) Groups {
	repo := repository.NewRepository[*Group](db, repository.ModelHandlers[*Group]{
		NewRecord: func() *Group { return &Group{} },
		GetID: func(g *Group) uuid.UUID {
			if g == nil {
				return uuid.Nil
			}
			return g.ID
		},
		SetID: func(g *Group, id uuid.UUID) {
			if g != nil {
				g.ID = id
			}
		},
		GetIdentifier: func() string {
			return "name"
		},
	})

	return &groups{
		Repository: repo,
		db:         db,
	}
}

func (g *groups) GetByName(ctx context.Context, name string) (*Group, error) {
	return g.GetByNameTx(ctx, g.db, name)
}

func (g *groups) GetByNameTx(ctx context.Context, tx bun.IDB, name string) (*Group, error) {
	record := &Group{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.name = ?", strings.TrimSpace(name)).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"name": name,
				})
		}
		return nil, err
	}

	return record, nil
}

func (g *groups) AddMember(ctx context.Context, groupID, userID uuid.UUID) error {
	return g.AddMemberTx(ctx, g.db, groupID, userID)
}

func (g *groups) AddMemberTx(ctx context.Context, tx bun.IDB, groupID, userID uuid.UUID) error {
	membership := &GroupMembership{
		UserID:  userID,
		GroupID: groupID,
	}

	_, err := tx.NewInsert().
		Model(membership).
		On("CONFLICT (user_id, group_id) DO NOTHING").
		Exec(ctx)

	return err
}

func (g *groups) RemoveMember(ctx context.Context, groupID, userID uuid.UUID) error {
	return g.RemoveMemberTx(ctx, g.db, groupID, userID)
}

func (g *groups) RemoveMemberTx(ctx context.Context, tx bun.IDB, groupID, userID uuid.UUID) error {
	_, err := tx.NewDelete().
		Model((*GroupMembership)(nil)).
		Where("user_id = ? AND group_id = ?", userID, groupID).
		Exec(ctx)

	return err
}

func (g *groups) ListForUser(ctx context.Context, userID uuid.UUID) ([]*Group, error) {
	return g.ListForUserTx(ctx, g.db, userID)
}

func (g *groups) ListForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) ([]*Group, error) {
	var records []*Group
	err := tx.NewSelect().
		Model(&records).
		Join(`JOIN users_groups AS ug ON ug.group_id = ?TableAlias.id`).
		Where("ug.user_id = ?", userID).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []*Group{}, nil
		}
		return nil, err
	}

	return records, nil
}

// IsMemberTx is a pure read; group checks have no side effects.
func (g *groups) IsMember(ctx context.Context, groupID, userID uuid.UUID) (bool, error) {
	return g.IsMemberTx(ctx, g.db, groupID, userID)
}

func (g *groups) IsMemberTx(ctx context.Context, tx bun.IDB, groupID, userID uuid.UUID) (bool, error) {
	return tx.NewSelect().
		Model((*GroupMembership)(nil)).
		Where("user_id = ? AND group_id = ?", userID, groupID).
		Exists(ctx)
}
