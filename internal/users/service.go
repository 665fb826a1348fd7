package users

import (
	"context"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/atlas-pos/atlas-pos/internal/shared"
)

// RepositoryPort abstracts account persistence for the service.
type RepositoryPort interface {
	Insert(ctx context.Context, input CreateUserInput, passwordHash string) (User, error)
	GetByID(ctx context.Context, id int64) (User, error)
	List(ctx context.Context) ([]User, error)
	Update(ctx context.Context, id int64, input UpdateUserInput, passwordHash string) (User, error)
	SetActive(ctx context.Context, id int64, active bool) error
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service manages staff accounts.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// Create validates and stores a new account.
func (s *Service) Create(ctx context.Context, input CreateUserInput) (User, error) {
	input.Username = strings.ToLower(strings.TrimSpace(input.Username))
	if input.Username == "" {
		return User{}, shared.InvalidInput("username is required")
	}
	if len(input.Password) < 8 {
		return User{}, shared.InvalidInput("password must be at least 8 characters")
	}
	if input.Role != shared.RoleAdmin && input.Role != shared.RoleCashier {
		return User{}, shared.InvalidInput("role must be admin or cashier")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	user, err := s.repo.Insert(ctx, input, string(hash))
	if err != nil {
		return User{}, err
	}
	s.record(ctx, shared.AuditUserCreated, user.ID, map[string]any{"username": user.Username, "role": user.Role})
	return user, nil
}

// Get fetches one account.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns all accounts.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// Update changes display name, role and optionally the password.
func (s *Service) Update(ctx context.Context, id int64, input UpdateUserInput) (User, error) {
	if input.Role != shared.RoleAdmin && input.Role != shared.RoleCashier {
		return User{}, shared.InvalidInput("role must be admin or cashier")
	}
	hash := ""
	if input.Password != "" {
		if len(input.Password) < 8 {
			return User{}, shared.InvalidInput("password must be at least 8 characters")
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if err != nil {
			return User{}, err
		}
		hash = string(hashed)
	}
	user, err := s.repo.Update(ctx, id, input, hash)
	if err != nil {
		return User{}, err
	}
	s.record(ctx, shared.AuditUserUpdated, user.ID, map[string]any{"role": user.Role})
	return user, nil
}

// Deactivate disables an account. Admins cannot disable themselves, so a
// store always keeps at least the acting admin.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	if actor := shared.ActorFromContext(ctx); actor != nil && actor.UserID == id {
		return shared.InvalidInput("cannot deactivate your own account")
	}
	if err := s.repo.SetActive(ctx, id, false); err != nil {
		return err
	}
	s.record(ctx, shared.AuditUserDeleted, id, nil)
	return nil
}

// Reactivate restores a disabled account.
func (s *Service) Reactivate(ctx context.Context, id int64) error {
	return s.repo.SetActive(ctx, id, true)
}

func (s *Service) record(ctx context.Context, action string, userID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		Action:   action,
		Entity:   "user",
		EntityID: strconv.FormatInt(userID, 10),
		Meta:     meta,
	})
}
