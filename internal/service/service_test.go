package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"tweetmemo/internal/config"
	"tweetmemo/internal/database"
	"tweetmemo/internal/models"
	"tweetmemo/internal/repository"
	"tweetmemo/internal/session"
	"tweetmemo/internal/storage"
)

type testEnv struct {
	db       *database.DB
	repo     *repository.Repository
	services *Service
	session  *session.Session
	media    *storage.MediaStore
	mediaDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{
		DBPath:   ":memory:",
		MediaDir: t.TempDir(),
	}

	db, err := database.Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.CloseDB() })

	media, err := storage.NewMediaStore(cfg.MediaDir)
	require.NoError(t, err)

	sess := session.NewSession()
	repo := repository.NewRepository(db)

	return &testEnv{
		db:       db,
		repo:     repo,
		services: NewService(db, repo, media, sess, cfg),
		session:  sess,
		media:    media,
		mediaDir: cfg.MediaDir,
	}
}

func (e *testEnv) createUser(t *testing.T, fullname, username string) *models.User {
	t.Helper()
	user, err := e.services.User.CreateUser(context.Background(), CreateUserRequest{
		FullName: fullname,
		Username: username,
	})
	require.NoError(t, err)
	return user
}

func (e *testEnv) createTweet(t *testing.T, authorID int64, caption string, images ...[]byte) *models.Tweet {
	t.Helper()
	tweet, err := e.services.Tweet.CreateTweet(context.Background(), CreateTweetRequest{
		AuthorID: authorID,
		Caption:  caption,
		Images:   images,
	})
	require.NoError(t, err)
	return tweet
}

func (e *testEnv) createReply(t *testing.T, tweetID, authorID int64, caption string, images ...[]byte) *models.Reply {
	t.Helper()
	reply, err := e.services.Tweet.CreateReply(context.Background(), CreateReplyRequest{
		TweetID:  tweetID,
		AuthorID: authorID,
		Caption:  caption,
		Images:   images,
	})
	require.NoError(t, err)
	return reply
}

func tweetIDs(tweets []models.Tweet) []int64 {
	ids := make([]int64, len(tweets))
	for i, tweet := range tweets {
		ids[i] = tweet.ID
	}
	return ids
}

func replyIDs(replies []models.Reply) []int64 {
	ids := make([]int64, len(replies))
	for i, reply := range replies {
		ids[i] = reply.ID
	}
	return ids
}
