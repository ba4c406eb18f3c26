package memory_test

import (
	"context"
	"testing"

	"github.com/Leopold1975/helpdesk/internal/helpdesk/domain/models"
	"github.com/Leopold1975/helpdesk/internal/helpdesk/repository/userrepo"
	"github.com/Leopold1975/helpdesk/internal/helpdesk/repository/userrepo/memory"
	"github.com/stretchr/testify/require"
)

func TestUsersMemoryRepo(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()

	n, err := repo.CountUsers(ctx)
	require.NoError(t, err)
	require.Zero(t, n)

	for _, name := range []string{"admin", "mentor", "student"} {
		require.NoError(t, repo.CreateUser(ctx, models.NewUser(name, "hash-"+name, models.RoleStudent)))
	}

	err = repo.CreateUser(ctx, models.NewUser("mentor", "x", models.RoleInstructor))
	require.ErrorIs(t, err, userrepo.ErrAlreadyExists)

	users, err := repo.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 3)
	require.Equal(t, "admin", users[0].Username)
	require.Equal(t, "student", users[2].Username)

	u, err := repo.GetUser(ctx, "mentor")
	require.NoError(t, err)
	require.Equal(t, "hash-mentor", u.PasswordHash)

	u.Role = models.RoleInstructor
	u.SetTopicProficiency("Topic 1", models.LevelExpert)
	require.NoError(t, repo.UpdateUser(ctx, u))

	got, err := repo.GetUser(ctx, "mentor")
	require.NoError(t, err)
	require.Equal(t, models.RoleInstructor, got.Role)
	require.Equal(t, models.LevelExpert, got.TopicProficiency("Topic 1"))

	require.NoError(t, repo.DeleteUser(ctx, "mentor"))
	require.ErrorIs(t, repo.DeleteUser(ctx, "mentor"), userrepo.ErrNotFound)

	_, err = repo.GetUser(ctx, "mentor")
	require.ErrorIs(t, err, userrepo.ErrNotFound)

	require.ErrorIs(t, repo.UpdateUser(ctx, models.NewUser("ghost", "", models.RoleStudent)), userrepo.ErrNotFound)

	users, err = repo.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	require.Equal(t, "student", users[1].Username)
}

func TestUsersMemoryRepoReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()

	require.NoError(t, repo.CreateUser(ctx, models.NewUser("alice", "hash", models.RoleStudent)))

	u, err := repo.GetUser(ctx, "alice")
	require.NoError(t, err)
	u.SetTopicProficiency("Topic 1", models.LevelBeginner)

	stored, err := repo.GetUser(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, models.LevelIntermediate, stored.TopicProficiency("Topic 1"))
}
