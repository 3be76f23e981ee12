package commands

import (
	"context"
	"fmt"

	"github.com/marshallshelly/storefront/cmd/storefront/output"
	"github.com/marshallshelly/storefront/pkg/store"
	"github.com/spf13/cobra"
)

var rating int

var reviewCmd = &cobra.Command{
	Use:     "review",
	Aliases: []string{"reviews"},
	Short:   "Game reviews and comments",
}

var reviewAddCmd = &cobra.Command{
	Use:   "add GAME_ID TEXT",
	Short: "Review a game as --as, replacing any earlier review",
	Args:  cobra.ExactArgs(2),
	RunE: withStore(func(ctx context.Context, st *store.Store, args []string) error {
		gameID, err := parseID(args[0], "game")
		if err != nil {
			return err
		}
		var r *int
		if rating != 0 {
			r = &rating
		}
		userID, err := actingUser(ctx, st)
		if err != nil {
			return err
		}
		id, err := st.AddOrUpdateReview(ctx, userID, gameID, args[1], r)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(map[string]int64{"id": id})
		}
		output.Success("Saved review #%d", id)
		return nil
	}),
}

var reviewListCmd = &cobra.Command{
	Use:   "list GAME_ID",
	Short: "List a game's reviews, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: withStore(func(ctx context.Context, st *store.Store, args []string) error {
		gameID, err := parseID(args[0], "game")
		if err != nil {
			return err
		}
		reviews, err := st.FetchGameReviews(ctx, gameID)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(reviews)
		}
		if len(reviews) == 0 {
			output.Info("No reviews yet")
			return nil
		}
		for _, r := range reviews {
			fmt.Printf("#%d %s  %s  %s\n", r.ID, output.Stars(r.Rating), r.Username, r.ReviewDate.Format("2006-01-02"))
			fmt.Printf("    %s\n", r.Text)
		}
		return nil
	}),
}

var reviewCommentCmd = &cobra.Command{
	Use:   "comment REVIEW_ID TEXT",
	Short: "Reply to a review as --as",
	Args:  cobra.ExactArgs(2),
	RunE: withStore(func(ctx context.Context, st *store.Store, args []string) error {
		reviewID, err := parseID(args[0], "review")
		if err != nil {
			return err
		}
		userID, err := actingUser(ctx, st)
		if err != nil {
			return err
		}
		id, err := st.AddReviewComment(ctx, reviewID, userID, args[1])
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(map[string]int64{"id": id})
		}
		output.Success("Posted comment #%d", id)
		return nil
	}),
}

var reviewCommentsCmd = &cobra.Command{
	Use:   "comments REVIEW_ID",
	Short: "List replies to a review, oldest first",
	Args:  cobra.ExactArgs(1),
	RunE: withStore(func(ctx context.Context, st *store.Store, args []string) error {
		reviewID, err := parseID(args[0], "review")
		if err != nil {
			return err
		}
		comments, err := st.FetchReviewComments(ctx, reviewID)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(comments)
		}
		if len(comments) == 0 {
			output.Info("No comments")
			return nil
		}
		for _, c := range comments {
			output.Muted("%s  %s", c.Username, c.CommentDate.Format("2006-01-02 15:04"))
			fmt.Printf("    %s\n", c.Text)
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(reviewCmd)
	reviewCmd.AddCommand(reviewAddCmd, reviewListCmd, reviewCommentCmd, reviewCommentsCmd)

	reviewAddCmd.Flags().IntVar(&rating, "rating", 0, "Rating from 1 to 5")
}
