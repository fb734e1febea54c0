package usecase

import (
	"context"

	"gitmon-arena/internal/domain"
	"gitmon-arena/internal/domain/model"
	"gitmon-arena/internal/domain/ports/repository"
	"gitmon-arena/internal/infra/logging"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
)

// Compile-time check
var _ UserUseCase = (*userUC)(nil)

// UserUseCase covers onboarding and profile reads.
type UserUseCase interface {
	RegisterOrFetch(ctx context.Context, githubAccountID, login, email string) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
	SetMonster(ctx context.Context, id, monster string) (*model.User, error)
	Count(ctx context.Context) (int, error)
}

type userUC struct {
	users repository.UserRepository
	tm    repository.TransactionManager
	log   *zerolog.Logger
}

func NewUserUseCase(users repository.UserRepository, tm repository.TransactionManager, logger *zerolog.Logger) *userUC {
	return &userUC{users: users, tm: tm, log: logger}
}

// RegisterOrFetch creates the user row on first GitHub login or returns the
// existing one, refreshing the stored login. The find and save run in one
// serializable transaction so two concurrent first logins cannot both insert.
func (u *userUC) RegisterOrFetch(ctx context.Context, githubAccountID, login, email string) (*model.User, error) {
	defer logging.TraceDuration(u.log, "UserUC.RegisterOrFetch")()
	if login == "" {
		return nil, domain.ErrInvalidArgument
	}

	var user *model.User
	txOpts := pgx.TxOptions{IsoLevel: pgx.Serializable}
	err := u.tm.WithTx(ctx, txOpts, func(ctx context.Context, tx repository.Tx) error {
		existing, err := u.users.FindByGithubLogin(ctx, tx, login)
		if err != nil && err != domain.ErrNotFound {
			return err
		}
		if existing != nil {
			changed := false
			if githubAccountID != "" && existing.GithubAccountID != githubAccountID {
				existing.GithubAccountID = githubAccountID
				changed = true
			}
			if email != "" && existing.Email != email {
				existing.Email = email
				changed = true
			}
			if changed {
				if err := u.users.Save(ctx, tx, existing); err != nil {
					return err
				}
			}
			user = existing
			return nil
		}

		nu, err := model.NewUser("", email, login)
		if err != nil {
			return err
		}
		nu.GithubAccountID = githubAccountID
		if err := u.users.Save(ctx, tx, nu); err != nil {
			return err
		}
		user = nu
		return nil
	})
	return user, err
}

func (u *userUC) GetByID(ctx context.Context, id string) (*model.User, error) {
	defer logging.TraceDuration(u.log, "UserUC.GetByID")()
	return u.users.FindByID(ctx, repository.NoTX, id)
}

func (u *userUC) SetMonster(ctx context.Context, id, monster string) (*model.User, error) {
	defer logging.TraceDuration(u.log, "UserUC.SetMonster")()
	if monster == "" {
		return nil, domain.ErrInvalidArgument
	}
	user, err := u.users.FindByID(ctx, repository.NoTX, id)
	if err != nil {
		return nil, err
	}
	user.Monster = monster
	if err := u.users.Save(ctx, repository.NoTX, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (u *userUC) Count(ctx context.Context) (int, error) {
	return u.users.CountUsers(ctx, repository.NoTX)
}
