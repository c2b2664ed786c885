package service

import (
	"context"
	"sort"

	"tweetmemo/internal/models"
	"tweetmemo/internal/repository"
)

// TimelineService answers the feed and profile queries. Every call re-reads
// the full collection from the store; no incremental index is kept.
type TimelineService interface {
	Feed(ctx context.Context, viewerID int64) ([]models.Tweet, error)
	ProfileTweets(ctx context.Context, subjectID int64, viewerFollows []int64) ([]models.Tweet, error)
	ProfileReplies(ctx context.Context, subjectID int64, viewerFollows []int64) ([]models.Reply, error)
	ProfileLikes(ctx context.Context, subjectID int64, viewerFollows []int64) ([]models.Tweet, []models.Reply, error)
}

type timelineService struct {
	userRepo  repository.UserRepository
	tweetRepo repository.TweetRepository
	replyRepo repository.ReplyRepository
}

func NewTimelineService(repo *repository.Repository) TimelineService {
	return &timelineService{
		userRepo:  repo.User,
		tweetRepo: repo.Tweet,
		replyRepo: repo.Reply,
	}
}

// Feed returns every tweet whose author the viewer follows, plus the
// viewer's own tweets. Self-authored content is always included, whether or
// not the viewer's own id appears in the follow list.
func (s *timelineService) Feed(ctx context.Context, viewerID int64) ([]models.Tweet, error) {
	follows, err := s.userRepo.Follows(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	tweets, err := s.tweetRepo.All(ctx)
	if err != nil {
		return nil, err
	}

	feed := make([]models.Tweet, 0, len(tweets))
	for _, tweet := range tweets {
		if containsID(follows, tweet.AuthorID) || tweet.AuthorID == viewerID {
			feed = append(feed, tweet)
		}
	}

	sortTweets(feed)
	return feed, nil
}

// ProfileTweets applies the feed predicate keyed on the profile subject
// instead of the viewer.
func (s *timelineService) ProfileTweets(ctx context.Context, subjectID int64, viewerFollows []int64) ([]models.Tweet, error) {
	tweets, err := s.tweetRepo.All(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]models.Tweet, 0, len(tweets))
	for _, tweet := range tweets {
		if containsID(viewerFollows, tweet.AuthorID) || tweet.AuthorID == subjectID {
			result = append(result, tweet)
		}
	}

	sortTweets(result)
	return result, nil
}

func (s *timelineService) ProfileReplies(ctx context.Context, subjectID int64, viewerFollows []int64) ([]models.Reply, error) {
	replies, err := s.replyRepo.All(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]models.Reply, 0, len(replies))
	for _, reply := range replies {
		if containsID(viewerFollows, reply.AuthorID) || reply.AuthorID == subjectID {
			result = append(result, reply)
		}
	}

	sortReplies(result)
	return result, nil
}

// ProfileLikes returns liked tweets and liked replies as two separately
// ordered blocks: tweets by timestamp descending, then replies by timestamp
// descending. The blocks are never merged into one timestamp order; the
// rendering contract depends on the two-block layout.
func (s *timelineService) ProfileLikes(ctx context.Context, subjectID int64, viewerFollows []int64) ([]models.Tweet, []models.Reply, error) {
	tweets, err := s.ProfileTweets(ctx, subjectID, viewerFollows)
	if err != nil {
		return nil, nil, err
	}

	likedTweets := make([]models.Tweet, 0, len(tweets))
	for _, tweet := range tweets {
		if tweet.DidLike {
			likedTweets = append(likedTweets, tweet)
		}
	}

	replies, err := s.ProfileReplies(ctx, subjectID, viewerFollows)
	if err != nil {
		return nil, nil, err
	}

	likedReplies := make([]models.Reply, 0, len(replies))
	for _, reply := range replies {
		if reply.DidLike {
			likedReplies = append(likedReplies, reply)
		}
	}

	return likedTweets, likedReplies, nil
}

// Timestamp descending; equal timestamps fall back to id descending so the
// order is deterministic across re-reads.
func sortTweets(tweets []models.Tweet) {
	sort.Slice(tweets, func(i, j int) bool {
		if !tweets[i].Timestamp.Equal(tweets[j].Timestamp) {
			return tweets[i].Timestamp.After(tweets[j].Timestamp)
		}
		return tweets[i].ID > tweets[j].ID
	})
}

func sortReplies(replies []models.Reply) {
	sort.Slice(replies, func(i, j int) bool {
		if !replies[i].Timestamp.Equal(replies[j].Timestamp) {
			return replies[i].Timestamp.After(replies[j].Timestamp)
		}
		return replies[i].ID > replies[j].ID
	})
}
