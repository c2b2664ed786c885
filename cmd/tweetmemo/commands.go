package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"tweetmemo/cmd/app"
	"tweetmemo/internal/config"
	"tweetmemo/internal/database"
	"tweetmemo/internal/models"
	"tweetmemo/internal/service"
	"tweetmemo/internal/session"
)

// The CLI plays the role of the UI layer: it signs the --as user in for the
// duration of one invocation and drives the services with their id.

type env struct {
	db       *database.DB
	services *service.Service
	session  *session.Session
	viewerID int64
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	var viewerID int64

	root := &cobra.Command{
		Use:           "tweetmemo",
		Short:         "Offline single-device microblog",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().Int64Var(&viewerID, "as", 0, "acting user id")

	open := func(ctx context.Context, signIn bool) (*env, func(), error) {
		db, _, services, sess, err := app.App(cfg)
		if err != nil {
			return nil, nil, err
		}
		e := &env{db: db, services: services, session: sess, viewerID: viewerID}
		if signIn {
			if _, err := services.User.SignIn(ctx, viewerID); err != nil {
				db.CloseDB()
				return nil, nil, err
			}
		}
		return e, func() { db.CloseDB() }, nil
	}

	root.AddCommand(
		newRegisterCmd(open),
		newUsersCmd(open),
		newTweetCmd(open),
		newReplyCmd(open),
		newFeedCmd(open),
		newProfileCmd(open),
		newLikeCmd(open),
		newBumpCmd(open),
		newFollowCmd(open),
		newDeleteCmd(open),
	)

	return root
}

type opener func(ctx context.Context, signIn bool) (*env, func(), error)

func newRegisterCmd(open opener) *cobra.Command {
	var fullname, username, bio, avatar string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a user and sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, closeFn, err := open(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer closeFn()

			req := service.CreateUserRequest{
				FullName:    fullname,
				Username:    username,
				ProfileText: bio,
			}
			if avatar != "" {
				req.ProfileImage, err = os.ReadFile(avatar)
				if err != nil {
					return err
				}
			}

			user, err := e.services.User.CreateUser(cmd.Context(), req)
			if err != nil {
				return err
			}

			fmt.Printf("registered user %d (@%s)\n", user.ID, user.Username)
			return nil
		},
	}

	cmd.Flags().StringVar(&fullname, "fullname", "", "full name")
	cmd.Flags().StringVar(&username, "username", "", "handle")
	cmd.Flags().StringVar(&bio, "bio", "", "profile text")
	cmd.Flags().StringVar(&avatar, "avatar", "", "path to avatar image")

	return cmd
}

func newUsersCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, closeFn, err := open(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer closeFn()

			users, err := e.services.User.ListUsers(cmd.Context())
			if err != nil {
				return err
			}
			for _, user := range users {
				fmt.Printf("%3d  %-20s @%s  (follows %v)\n",
					user.ID, user.FullName, user.Username, user.FollowIDs)
			}
			return nil
		},
	}
}

func newTweetCmd(open opener) *cobra.Command {
	var images []string

	cmd := &cobra.Command{
		Use:   "tweet <caption>",
		Short: "Compose a tweet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, closeFn, err := open(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer closeFn()

			data, err := readImages(images)
			if err != nil {
				return err
			}

			tweet, err := e.services.Tweet.CreateTweet(cmd.Context(), service.CreateTweetRequest{
				AuthorID: e.viewerID,
				Caption:  args[0],
				Images:   data,
			})
			if err != nil {
				return err
			}

			fmt.Printf("tweet %d posted\n", tweet.ID)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&images, "image", nil, "attach image file (repeatable, ordered)")
	return cmd
}

func newReplyCmd(open opener) *cobra.Command {
	var images []string

	cmd := &cobra.Command{
		Use:   "reply <tweet-id> <caption>",
		Short: "Reply to a tweet",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tweetID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("bad tweet id %q", args[0])
			}

			e, closeFn, err := open(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer closeFn()

			data, err := readImages(images)
			if err != nil {
				return err
			}

			reply, err := e.services.Tweet.CreateReply(cmd.Context(), service.CreateReplyRequest{
				TweetID:  tweetID,
				AuthorID: e.viewerID,
				Caption:  args[1],
				Images:   data,
			})
			if err != nil {
				return err
			}

			fmt.Printf("reply %d posted on tweet %d\n", reply.ID, tweetID)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&images, "image", nil, "attach image file (repeatable, ordered)")
	return cmd
}

func newFeedCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "feed",
		Short: "Show the acting user's feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, closeFn, err := open(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer closeFn()

			tweets, err := e.services.Timeline.Feed(cmd.Context(), e.viewerID)
			if err != nil {
				return err
			}
			for _, tweet := range tweets {
				printTweet(cmd.Context(), e, tweet)
			}
			return nil
		},
	}
}

func newProfileCmd(open opener) *cobra.Command {
	var tab string

	cmd := &cobra.Command{
		Use:   "profile <user-id>",
		Short: "Show a profile timeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			subjectID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("bad user id %q", args[0])
			}

			e, closeFn, err := open(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer closeFn()

			viewer := e.session.User()
			ctx := cmd.Context()

			switch tab {
			case "tweets":
				tweets, err := e.services.Timeline.ProfileTweets(ctx, subjectID, viewer.FollowIDs)
				if err != nil {
					return err
				}
				for _, tweet := range tweets {
					printTweet(ctx, e, tweet)
				}
			case "replies":
				replies, err := e.services.Timeline.ProfileReplies(ctx, subjectID, viewer.FollowIDs)
				if err != nil {
					return err
				}
				for _, reply := range replies {
					printReply(ctx, e, reply)
				}
			case "likes":
				tweets, replies, err := e.services.Timeline.ProfileLikes(ctx, subjectID, viewer.FollowIDs)
				if err != nil {
					return err
				}
				for _, tweet := range tweets {
					printTweet(ctx, e, tweet)
				}
				for _, reply := range replies {
					printReply(ctx, e, reply)
				}
			default:
				return fmt.Errorf("unknown tab %q (tweets, replies, likes)", tab)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&tab, "tab", "tweets", "profile tab: tweets, replies or likes")
	return cmd
}

func newLikeCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "like (tweet|reply) <id>",
		Short: "Toggle a like",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := parseRef(args[0], args[1])
			if err != nil {
				return err
			}

			e, closeFn, err := open(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer closeFn()

			liked, err := e.services.Tweet.ToggleLike(cmd.Context(), ref)
			if err != nil {
				return err
			}

			if liked {
				fmt.Printf("liked %s %d\n", ref.Kind, ref.ID)
			} else {
				fmt.Printf("unliked %s %d\n", ref.Kind, ref.ID)
			}
			return nil
		},
	}
}

func newBumpCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "bump (tweet|reply) <id>",
		Short: "Retweet: move an entry to the top of the timeline",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := parseRef(args[0], args[1])
			if err != nil {
				return err
			}

			e, closeFn, err := open(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer closeFn()

			if err := e.services.Tweet.Bump(cmd.Context(), ref); err != nil {
				return err
			}

			fmt.Printf("bumped %s %d\n", ref.Kind, ref.ID)
			return nil
		},
	}
}

func newFollowCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "follow <user-id>",
		Short: "Toggle following a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			targetID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("bad user id %q", args[0])
			}

			e, closeFn, err := open(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer closeFn()

			following, err := e.services.Follow.Toggle(cmd.Context(), e.viewerID, targetID)
			if err != nil {
				return err
			}

			if following {
				fmt.Printf("now following user %d\n", targetID)
			} else {
				fmt.Printf("no longer following user %d\n", targetID)
			}
			return nil
		},
	}
}

func newDeleteCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "delete (user|tweet|reply) <id>",
		Short: "Delete a record and everything it owns",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("bad id %q", args[1])
			}

			e, closeFn, err := open(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer closeFn()

			ctx := cmd.Context()
			switch args[0] {
			case "user":
				err = e.services.User.DeleteUser(ctx, id)
			case "tweet":
				err = e.services.Tweet.DeleteTweet(ctx, id)
			case "reply":
				err = e.services.Tweet.DeleteReply(ctx, id)
			default:
				return fmt.Errorf("unknown record kind %q", args[0])
			}
			if err != nil {
				return err
			}

			fmt.Printf("deleted %s %d\n", args[0], id)
			return nil
		},
	}
}

func parseRef(kind, rawID string) (models.EntityRef, error) {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return models.EntityRef{}, fmt.Errorf("bad id %q", rawID)
	}
	switch kind {
	case "tweet":
		return models.TweetRef(id), nil
	case "reply":
		return models.ReplyRef(id), nil
	default:
		return models.EntityRef{}, fmt.Errorf("unknown entity kind %q", kind)
	}
}

func readImages(paths []string) ([][]byte, error) {
	var images [][]byte
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		images = append(images, data)
	}
	return images, nil
}

func printTweet(ctx context.Context, e *env, tweet models.Tweet) {
	author := "unknown"
	if user, err := e.services.User.ResolveUser(ctx, tweet.AuthorID); err == nil && user != nil {
		author = "@" + user.Username
	}
	fmt.Printf("[tweet %d] %s  %s  ♥%d\n  %s\n",
		tweet.ID, author, formatTime(tweet.Timestamp), tweet.Likes, tweet.Caption)
	for _, ref := range tweet.Images {
		fmt.Printf("  (image %s)\n", ref.FileName)
	}
}

func printReply(ctx context.Context, e *env, reply models.Reply) {
	author := "unknown"
	if user, err := e.services.User.ResolveUser(ctx, reply.AuthorID); err == nil && user != nil {
		author = "@" + user.Username
	}
	fmt.Printf("[reply %d → tweet %d] %s  %s  ♥%d\n  %s\n",
		reply.ID, reply.TweetID, author, formatTime(reply.Timestamp), reply.Likes, reply.Caption)
	for _, ref := range reply.Images {
		fmt.Printf("  (image %s)\n", ref.FileName)
	}
}

func formatTime(t time.Time) string {
	return t.Format("Jan 2, 2006 at 3:04PM")
}
