package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/text/language"

	domain "github.com/amber-cafe/api/internal/domain"
	"github.com/amber-cafe/api/internal/repositories"
)

var (
	// ErrUserInvalidInput signals malformed staff account data.
	ErrUserInvalidInput = errors.New("user: invalid input")
	// ErrUserNotFound indicates the staff account does not exist.
	ErrUserNotFound = errors.New("user: not found")
	// ErrUserLastManager indicates the change would leave no active manager.
	ErrUserLastManager = errors.New("user: at least one active manager is required")

	errInvalidLocaleTag = errors.New("user: invalid locale tag")
)

// UserServiceDeps bundles collaborators for the staff account service.
type UserServiceDeps struct {
	Users repositories.UserRepository
	Clock func() time.Time
}

type userService struct {
	users repositories.UserRepository
	clock func() time.Time
}

// NewUserService wires the staff account service from its dependencies.
func NewUserService(deps UserServiceDeps) (UserService, error) {
	if deps.Users == nil {
		return nil, errors.New("user service: user repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &userService{
		users: deps.Users,
		clock: func() time.Time { return clock().UTC() },
	}, nil
}

// UpsertUser creates or updates a staff account keyed by its identity UID.
// Demoting or deactivating the last active manager is rejected.
func (s *userService) UpsertUser(ctx context.Context, cmd UpsertUserCommand) (User, error) {
	userID := strings.TrimSpace(cmd.ID)
	if userID == "" {
		return User{}, fmt.Errorf("%w: user id is required", ErrUserInvalidInput)
	}
	email := strings.TrimSpace(cmd.Email)
	if email == "" {
		return User{}, fmt.Errorf("%w: email is required", ErrUserInvalidInput)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return User{}, fmt.Errorf("%w: malformed email %q", ErrUserInvalidInput, email)
	}
	role := strings.ToLower(strings.TrimSpace(cmd.Role))
	switch role {
	case "":
		role = "user"
	case "user", roleManager:
	default:
		return User{}, fmt.Errorf("%w: unknown role %q", ErrUserInvalidInput, cmd.Role)
	}
	locale, err := canonicaliseLocale(cmd.Locale)
	if err != nil {
		return User{}, fmt.Errorf("%w: %v", ErrUserInvalidInput, err)
	}

	active := true
	if cmd.Active != nil {
		active = *cmd.Active
	}

	existing, err := s.users.FindByID(ctx, userID)
	switch {
	case err == nil:
		// Existing manager losing their role or activity needs a survivor check.
		wasActiveManager := existing.Active && existing.Role == roleManager
		staysActiveManager := active && role == roleManager
		if wasActiveManager && !staysActiveManager {
			if err := s.ensureAnotherActiveManager(ctx); err != nil {
				return User{}, err
			}
		}
	case isRepoNotFound(err):
		existing = domain.User{ID: userID, CreatedAt: s.clock()}
	default:
		return User{}, mapUserError(err)
	}

	now := s.clock()
	user := domain.User{
		ID:        userID,
		Email:     email,
		Name:      strings.TrimSpace(cmd.Name),
		Role:      role,
		Locale:    locale,
		Active:    active,
		CreatedAt: existing.CreatedAt,
		UpdatedAt: now,
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}

	saved, err := s.users.Upsert(ctx, user)
	if err != nil {
		return User{}, mapUserError(err)
	}
	return saved, nil
}

func (s *userService) GetUser(ctx context.Context, userID string) (User, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return User{}, fmt.Errorf("%w: user id is required", ErrUserInvalidInput)
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return User{}, mapUserError(err)
	}
	return user, nil
}

func (s *userService) ListUsers(ctx context.Context, filter UserListFilter) (domain.CursorPage[User], error) {
	role := strings.ToLower(strings.TrimSpace(filter.Role))
	if role != "" && role != "user" && role != roleManager {
		return domain.CursorPage[User]{}, fmt.Errorf("%w: unknown role %q", ErrUserInvalidInput, filter.Role)
	}
	page, err := s.users.List(ctx, repositories.UserFilter{
		Role:       role,
		ActiveOnly: filter.ActiveOnly,
		Pagination: filter.Pagination,
	})
	if err != nil {
		return domain.CursorPage[User]{}, mapUserError(err)
	}
	return page, nil
}

// DeactivateUser disables a staff account, refusing to drop the last active manager.
func (s *userService) DeactivateUser(ctx context.Context, cmd DeactivateUserCommand) (User, error) {
	userID := strings.TrimSpace(cmd.UserID)
	if userID == "" {
		return User{}, fmt.Errorf("%w: user id is required", ErrUserInvalidInput)
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return User{}, mapUserError(err)
	}
	if !user.Active {
		return user, nil
	}
	if user.Role == roleManager {
		if err := s.ensureAnotherActiveManager(ctx); err != nil {
			return User{}, err
		}
	}

	user.Active = false
	user.UpdatedAt = s.clock()
	saved, err := s.users.Upsert(ctx, user)
	if err != nil {
		return User{}, mapUserError(err)
	}
	return saved, nil
}

// ensureAnotherActiveManager checks the survivor count before a manager is
// demoted or deactivated. The read is not transactional with the write, which
// is acceptable for a back-office operation.
func (s *userService) ensureAnotherActiveManager(ctx context.Context) error {
	count, err := s.users.CountActiveManagers(ctx)
	if err != nil {
		return mapUserError(err)
	}
	if count <= 1 {
		return ErrUserLastManager
	}
	return nil
}

func canonicaliseLocale(tag string) (string, error) {
	tag = strings.ReplaceAll(strings.TrimSpace(tag), "_", "-")
	if tag == "" {
		return "", nil
	}
	parsed, err := language.Parse(tag)
	if err != nil {
		return "", errors.Join(errInvalidLocaleTag, err)
	}
	return parsed.String(), nil
}

func mapUserError(err error) error {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) && repoErr.IsNotFound() {
		return fmt.Errorf("%w: %v", ErrUserNotFound, err)
	}
	return err
}

func isRepoNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}
