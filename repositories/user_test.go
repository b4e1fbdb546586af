package repositories

import (
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "texttalk/errors"
)

func Test_CreateUser_And_Get(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewUserRepository(db)

	id, err := repository.CreateUser("alice", "$argon2id$fake-hash")
	req.NoError(err)
	req.NotEmpty(id)

	user, err := repository.GetUserByUsername("alice")
	req.NoError(err)
	req.Equal("alice", user.Username)
	req.Equal("$argon2id$fake-hash", user.PasswordHash)
	req.Equal(id, user.ID)
}

func Test_CreateUser_Duplicate_Username(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewUserRepository(db)

	_, err := repository.CreateUser("alice", "hash-1")
	req.NoError(err)

	_, err = repository.CreateUser("alice", "hash-2")
	req.ErrorIs(err, apperrors.ErrUserAlreadyExists)

	// The original record is untouched
	user, err := repository.GetUserByUsername("alice")
	req.NoError(err)
	req.Equal("hash-1", user.PasswordHash)
}

func Test_AllUsernames(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewUserRepository(db)

	for _, name := range []string{"alice", "bob", "carol"} {
		_, err := repository.CreateUser(name, "hash")
		req.NoError(err)
	}

	usernames, err := repository.AllUsernames()
	req.NoError(err)
	req.ElementsMatch([]string{"alice", "bob", "carol"}, usernames)
}
