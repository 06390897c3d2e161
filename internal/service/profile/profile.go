package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/heartmarshall/social-backend/internal/connection"
	"github.com/heartmarshall/social-backend/internal/domain"
	"github.com/heartmarshall/social-backend/internal/service/query"
	"github.com/heartmarshall/social-backend/internal/storage"
	"github.com/heartmarshall/social-backend/internal/view"
	"github.com/heartmarshall/social-backend/internal/views"
	"github.com/heartmarshall/social-backend/pkg/ctxutil"
)

const typeName = "Profile"

// visible returns a check that rejects private profiles of other users.
func visible(ctx context.Context) query.Check {
	userID, _ := ctxutil.UserIDFromCtx(ctx)
	return func(row view.Record) error {
		if private, _ := row["private"].(bool); private && row["userId"] != userID {
			return fmt.Errorf("profile %v is private: %w", row[view.IDField], domain.ErrForbidden)
		}
		return nil
	}
}

func ownedBy(userID string) storage.Cond {
	return storage.Eq{Field: "userId", Value: userID}
}

// ByID returns the profiles with the given ids. Any private profile of
// another user fails the whole batch with domain.ErrForbidden.
func (s *Service) ByID(ctx context.Context, in ByIDInput) ([]view.Record, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	shape, err := views.Prepare(views.Profile, in.Select)
	if err != nil {
		return nil, err
	}
	shape = shape.Need("private", "userId")

	rows, err := query.ByIDs(ctx, s.store, typeName, in.IDs, nil, shape.Selection)
	if err != nil {
		return nil, fmt.Errorf("profile.ByID: %w", err)
	}
	check := visible(ctx)
	for _, row := range rows {
		if err := check(row); err != nil {
			return nil, err
		}
	}
	return shape.Many(rows), nil
}

// ByUserID pages over the profiles of one user.
func (s *Service) ByUserID(ctx context.Context, in ByUserIDInput) (*connection.Page, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	shape, err := views.Prepare(views.Profile, in.Select)
	if err != nil {
		return nil, err
	}
	shape = shape.Need("private", "userId")

	head, err := views.Prepare(views.Profile, nil)
	if err != nil {
		return nil, err
	}
	head = head.Need("private", "userId")

	rows, err := s.store.FindMany(ctx, storage.Query{
		Type:      typeName,
		Selection: head.Selection,
		Where:     ownedBy(in.UserID),
	})
	if err != nil {
		return nil, fmt.Errorf("profile.ByUserID: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("profile of user %s: %w", in.UserID, domain.ErrNotFound)
	}
	check := visible(ctx)
	if err := check(rows[0]); err != nil {
		return nil, err
	}

	page, err := query.Page(ctx, s.store, s.pager, storage.Query{
		Type:    typeName,
		Where:   ownedBy(in.UserID),
		OrderBy: []storage.Order{{Field: "createdAt", Desc: true}},
	}, shape, in.Args, check)
	if err != nil {
		return nil, fmt.Errorf("profile.ByUserID: %w", err)
	}
	return page, nil
}

// Me returns the caller's profile.
func (s *Service) Me(ctx context.Context, sel []string) (view.Record, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}

	shape, err := views.Prepare(views.Profile, sel)
	if err != nil {
		return nil, err
	}

	row, err := s.findOwn(ctx, userID, shape.Selection)
	if err != nil {
		return nil, fmt.Errorf("profile.Me: %w", err)
	}
	return shape.One(row), nil
}

// Update writes the provided fields to the caller's profile, creating it
// when absent. A new profile is private unless Private says otherwise.
func (s *Service) Update(ctx context.Context, in UpdateInput) (view.Record, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	shape, err := views.Prepare(views.Profile, in.Select)
	if err != nil {
		return nil, err
	}
	ids, err := views.Prepare(views.Profile, nil)
	if err != nil {
		return nil, err
	}

	var (
		row     view.Record
		created bool
	)
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		values := in.values()

		existing, err := s.findOwn(ctx, userID, ids.Selection)
		var id string
		switch {
		case errors.Is(err, domain.ErrNotFound):
			values["userId"] = userID
			if _, ok := values["private"]; !ok {
				values["private"] = true
			}
			id, err = s.store.Create(ctx, typeName, values)
			if err != nil {
				return fmt.Errorf("create profile: %w", err)
			}
			created = true
		case err != nil:
			return err
		default:
			id, _ = existing[view.IDField].(string)
			if err := s.store.Update(ctx, typeName, id, ownedBy(userID), values); err != nil {
				return fmt.Errorf("update profile: %w", err)
			}
		}

		row, err = query.One(ctx, s.store, typeName, id, nil, shape.Selection)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("profile.Update: %w", err)
	}

	s.log.InfoContext(ctx, "profile updated",
		slog.String("user_id", userID),
		slog.Bool("created", created),
	)

	return shape.One(row), nil
}

func (s *Service) findOwn(ctx context.Context, userID string, sel *view.SelectionSet) (view.Record, error) {
	rows, err := s.store.FindMany(ctx, storage.Query{
		Type:      typeName,
		Selection: sel,
		Where:     ownedBy(userID),
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("profile of user %s: %w", userID, domain.ErrNotFound)
	}
	return rows[0], nil
}
