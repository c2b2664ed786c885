package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tweetmemo/internal/repository"
)

// Following adds the target's tweets to the feed; unfollowing removes them
// again. The viewer's own tweets are unaffected either way.
func TestFollowToggle_ControlsFeedMembership(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	alice := e.createUser(t, "Alice", "alice")
	bob := e.createUser(t, "Bob", "bob")

	own := e.createTweet(t, alice.ID, "mine")
	theirs := e.createTweet(t, bob.ID, "theirs")

	feed, err := e.services.Timeline.Feed(ctx, alice.ID)
	require.NoError(t, err)
	require.Equal(t, []int64{own.ID}, tweetIDs(feed))

	following, err := e.services.Follow.Toggle(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, following)

	feed, err = e.services.Timeline.Feed(ctx, alice.ID)
	require.NoError(t, err)
	require.Equal(t, []int64{theirs.ID, own.ID}, tweetIDs(feed))

	following, err = e.services.Follow.Toggle(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, following)

	feed, err = e.services.Timeline.Feed(ctx, alice.ID)
	require.NoError(t, err)
	require.Equal(t, []int64{own.ID}, tweetIDs(feed))
}

func TestFollowToggle_SelfIsANoOp(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	alice := e.createUser(t, "Alice", "alice")

	following, err := e.services.Follow.Toggle(ctx, alice.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, following)

	follows, err := e.repo.User.Follows(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, follows)
}

func TestFollowToggle_UnknownViewer(t *testing.T) {
	e := newTestEnv(t)

	_, err := e.services.Follow.Toggle(context.Background(), 41, 42)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

// Toggling as the signed-in user must refresh the session snapshot so the
// cached follow list matches the committed record.
func TestFollowToggle_RefreshesSessionSnapshot(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	alice := e.createUser(t, "Alice", "alice")
	bob := e.createUser(t, "Bob", "bob")

	// Registration signs in the latest user; switch back to Alice.
	_, err := e.services.User.SignIn(ctx, alice.ID)
	require.NoError(t, err)

	_, err = e.services.Follow.Toggle(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	snapshot := e.session.User()
	require.NotNil(t, snapshot)
	assert.True(t, snapshot.Follows(bob.ID))

	_, err = e.services.Follow.Toggle(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	snapshot = e.session.User()
	require.NotNil(t, snapshot)
	assert.False(t, snapshot.Follows(bob.ID))
}

// Following a user, re-following after they are gone, and unfollowing a
// dangling edge must all leave the store consistent.
func TestFollowToggle_TargetMayBeDangling(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	alice := e.createUser(t, "Alice", "alice")
	bob := e.createUser(t, "Bob", "bob")

	_, err := e.services.Follow.Toggle(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	require.NoError(t, e.services.User.DeleteUser(ctx, bob.ID))

	// The edge survived the delete.
	follows, err := e.repo.User.Follows(ctx, alice.ID)
	require.NoError(t, err)
	require.Equal(t, []int64{bob.ID}, follows)

	// Unfollowing the ghost cleans it up.
	following, err := e.services.Follow.Toggle(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, following)

	follows, err = e.repo.User.Follows(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, follows)
}
