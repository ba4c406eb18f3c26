package models_test

import (
	"testing"
	"time"

	"github.com/Leopold1975/helpdesk/internal/helpdesk/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUserDefaults(t *testing.T) {
	u := models.NewUser("alice", "hash", models.RoleStudent)

	require.Len(t, u.Topics, 3)

	for _, topic := range []string{"Topic 1", "Topic 2", "Topic 3"} {
		assert.Equal(t, models.LevelIntermediate, u.TopicProficiency(topic))
	}

	assert.Equal(t, models.LevelIntermediate, u.TopicProficiency("unknown"))
	assert.False(t, u.OneTimePassword)
	assert.False(t, u.SetupComplete)

	u.SetTopicProficiency("Topic 2", models.LevelExpert)
	assert.Equal(t, models.LevelExpert, u.TopicProficiency("Topic 2"))
}

func TestOTPExpired(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	u := models.NewUser("bob", "hash", models.RoleStudent)
	assert.False(t, u.OTPExpired(now), "regular password never expires")

	u.OneTimePassword = true
	u.OTPExpiry = now.Add(time.Minute)
	assert.False(t, u.OTPExpired(now))
	assert.False(t, u.OTPExpired(now.Add(time.Minute)), "expiry instant itself is still valid")
	assert.True(t, u.OTPExpired(now.Add(time.Minute+time.Second)))
}

func TestCloneDoesNotShareTopics(t *testing.T) {
	u := models.NewUser("carol", "hash", models.RoleInstructor)
	c := u.Clone()
	c.SetTopicProficiency("Topic 1", models.LevelBeginner)

	assert.Equal(t, models.LevelIntermediate, u.TopicProficiency("Topic 1"))
}

func TestParseRoleAndLevel(t *testing.T) {
	r, err := models.ParseRole(" instructor ")
	require.NoError(t, err)
	assert.Equal(t, models.RoleInstructor, r)

	_, err = models.ParseRole("mentor")
	require.ErrorIs(t, err, models.ErrInvalidRole)

	l, err := models.ParseLevel("advanced")
	require.NoError(t, err)
	assert.Equal(t, models.LevelAdvanced, l)

	_, err = models.ParseLevel("guru")
	require.ErrorIs(t, err, models.ErrInvalidLevel)
}

func TestNextScreen(t *testing.T) {
	u := models.NewUser("dave", "hash", models.RoleAdmin)
	assert.Equal(t, models.ScreenSetup, models.NextScreen(u))

	u.SetupComplete = true
	assert.Equal(t, models.ScreenAdmin, models.NextScreen(u))

	u.Role = models.RoleInstructor
	assert.Equal(t, models.ScreenInstructor, models.NextScreen(u))

	u.Role = models.RoleStudent
	assert.Equal(t, models.ScreenHome, models.NextScreen(u))

	assert.True(t, models.RoleAdmin.CanManageArticles())
	assert.True(t, models.RoleInstructor.CanManageArticles())
	assert.False(t, models.RoleStudent.CanManageArticles())
}

var articles = []models.HelpArticle{
	{ID: 1, Title: "Installing Go", Keywords: []string{"setup", "go"}, Groups: []string{"beginners"}},
	{ID: 2, Title: "Go modules", Keywords: []string{"modules"}, Groups: []string{"beginners", "tooling"}},
	{ID: 3, Title: "Profiling", Keywords: []string{"pprof"}, Groups: []string{"advanced"}},
}

func TestFilterByGroup(t *testing.T) {
	all := models.FilterByGroup(articles, "ALL")
	require.Len(t, all, 3)

	beginners := models.FilterByGroup(articles, "beginners")
	require.Len(t, beginners, 2)
	assert.Equal(t, int64(1), beginners[0].ID)
	assert.Equal(t, int64(2), beginners[1].ID)

	assert.Empty(t, models.FilterByGroup(articles, "Beginners"))
}

func TestSearch(t *testing.T) {
	res := models.Search(articles, "Go")
	require.Len(t, res, 2, "title substring match")

	res = models.Search(articles, "pprof")
	require.Len(t, res, 1)
	assert.Equal(t, int64(3), res[0].ID)

	assert.Empty(t, models.Search(articles, "prof "), "keywords match whole elements only")
	assert.Len(t, models.Search(articles, "go"), 1, "case-sensitive")

	assert.True(t, models.ContainsID(articles, 2))
	assert.False(t, models.ContainsID(articles, 4))
}

func TestArticleClone(t *testing.T) {
	c := articles[0].Clone()
	c.Keywords[0] = "changed"

	assert.Equal(t, "setup", articles[0].Keywords[0])
}
