package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/atlas-pos/atlas-pos/internal/shared"
)

type memoryRepo struct {
	nextID int64
	users  map[int64]User
	hashes map[int64]string
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{nextID: 1, users: map[int64]User{}, hashes: map[int64]string{}}
}

func (m *memoryRepo) Insert(_ context.Context, input CreateUserInput, passwordHash string) (User, error) {
	for _, u := range m.users {
		if u.Username == input.Username {
			return User{}, shared.Conflict("username " + input.Username + " already taken")
		}
	}
	u := User{
		ID:          m.nextID,
		Username:    input.Username,
		DisplayName: input.DisplayName,
		Role:        input.Role,
		Active:      true,
	}
	m.users[u.ID] = u
	m.hashes[u.ID] = passwordHash
	m.nextID++
	return u, nil
}

func (m *memoryRepo) GetByID(_ context.Context, id int64) (User, error) {
	u, ok := m.users[id]
	if !ok {
		return User{}, shared.NotFound("user", id)
	}
	return u, nil
}

func (m *memoryRepo) List(_ context.Context) ([]User, error) {
	out := []User{}
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, nil
}

func (m *memoryRepo) Update(_ context.Context, id int64, input UpdateUserInput, passwordHash string) (User, error) {
	u, ok := m.users[id]
	if !ok {
		return User{}, shared.NotFound("user", id)
	}
	u.DisplayName = input.DisplayName
	u.Role = input.Role
	if passwordHash != "" {
		m.hashes[id] = passwordHash
	}
	m.users[id] = u
	return u, nil
}

func (m *memoryRepo) SetActive(_ context.Context, id int64, active bool) error {
	u, ok := m.users[id]
	if !ok {
		return shared.NotFound("user", id)
	}
	u.Active = active
	m.users[id] = u
	return nil
}

func TestCreateUserHashesPassword(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	user, err := svc.Create(context.Background(), CreateUserInput{
		Username: "  Cashier1 ",
		Password: "supersecret",
		Role:     shared.RoleCashier,
	})
	require.NoError(t, err)
	require.Equal(t, "cashier1", user.Username)
	require.True(t, user.Active)

	hash := repo.hashes[user.ID]
	require.NotEqual(t, "supersecret", hash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("supersecret")))
}

func TestCreateUserValidation(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)

	_, err := svc.Create(context.Background(), CreateUserInput{Username: "x", Password: "short", Role: shared.RoleCashier})
	require.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = svc.Create(context.Background(), CreateUserInput{Username: "x", Password: "longenough", Role: "owner"})
	require.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestCreateUserDuplicateUsername(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)

	_, err := svc.Create(context.Background(), CreateUserInput{Username: "sam", Password: "longenough", Role: shared.RoleAdmin})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateUserInput{Username: "SAM", Password: "longenough", Role: shared.RoleCashier})
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestUpdateKeepsPasswordWhenEmpty(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	user, err := svc.Create(context.Background(), CreateUserInput{Username: "sam", Password: "longenough", Role: shared.RoleCashier})
	require.NoError(t, err)
	originalHash := repo.hashes[user.ID]

	updated, err := svc.Update(context.Background(), user.ID, UpdateUserInput{Role: shared.RoleAdmin})
	require.NoError(t, err)
	require.Equal(t, shared.RoleAdmin, updated.Role)
	require.Equal(t, originalHash, repo.hashes[user.ID])

	_, err = svc.Update(context.Background(), user.ID, UpdateUserInput{Role: shared.RoleAdmin, Password: "newpassword"})
	require.NoError(t, err)
	require.NotEqual(t, originalHash, repo.hashes[user.ID])
}

func TestDeactivateSelfRejected(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	user, err := svc.Create(context.Background(), CreateUserInput{Username: "admin1", Password: "longenough", Role: shared.RoleAdmin})
	require.NoError(t, err)

	ctx := shared.ContextWithActor(context.Background(), &shared.Actor{UserID: user.ID, Role: shared.RoleAdmin})
	err = svc.Deactivate(ctx, user.ID)
	require.ErrorIs(t, err, shared.ErrInvalidInput)
	require.True(t, repo.users[user.ID].Active)
}

func TestDeactivateAndReactivate(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	user, err := svc.Create(context.Background(), CreateUserInput{Username: "cashier1", Password: "longenough", Role: shared.RoleCashier})
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(context.Background(), user.ID))
	require.False(t, repo.users[user.ID].Active)

	require.NoError(t, svc.Reactivate(context.Background(), user.ID))
	require.True(t, repo.users[user.ID].Active)
}
