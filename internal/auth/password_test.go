package auth

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/entities"
	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/repository"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("field-tech-1", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, "field-tech-1", hash)

	assert.NoError(t, CheckPassword("field-tech-1", hash))
	assert.ErrorIs(t, CheckPassword("field-tech-2", hash), ErrInvalidPassword)

	_, err = HashPassword("short", bcrypt.MinCost)
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	_, err = HashPassword(strings.Repeat("x", 73), bcrypt.MinCost)
	assert.ErrorIs(t, err, ErrPasswordTooLong)
}

func TestRegisterAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	m, err := repository.Open(filepath.Join(t.TempDir(), "users.db"), repository.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	users := repository.NewUserRepository(m)

	id, err := Register(ctx, users, entities.User{Username: "jdoe", DisplayName: "J. Doe"}, "groundwater", bcrypt.MinCost)
	require.NoError(t, err)
	assert.Positive(t, id)

	u, err := Authenticate(ctx, users, "jdoe", "groundwater")
	require.NoError(t, err)
	assert.Equal(t, entities.RoleTech, u.Role)

	_, err = Authenticate(ctx, users, "jdoe", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidPassword)

	_, err = Authenticate(ctx, users, "nobody", "groundwater")
	assert.ErrorIs(t, err, ErrInvalidPassword)

	_, err = Register(ctx, users, entities.User{Username: "jdoe"}, "another-pass", bcrypt.MinCost)
	assert.Error(t, err, "usernames are unique")
}
