package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ovaphlow/pitchfork/service-redacao-go/internal/essay"
)

func newCommentsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "comments",
		Aliases: []string{"comentarios"},
		Short:   "Review comments anchored to essay blocks",
	}
	cmd.AddCommand(
		newCommentsListCmd(a),
		newCommentsAddCmd(a),
		newCommentsRmCmd(a),
		newCommentsClearCmd(a),
	)
	return cmd
}

func newCommentsListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list <essay-id>",
		Short: "List the comment threads of an essay",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			threads, err := a.api.ListComments(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("listing comments: %w", err)
			}
			if a.asJSON {
				printJSON(a.out, threads)
				return nil
			}
			threadList(a.out, threads)
			return nil
		},
	}
}

func newCommentsAddCmd(a *app) *cobra.Command {
	var blockID, groupID string
	cmd := &cobra.Command{
		Use:   "add <essay-id> <text...>",
		Short: "Add a comment to a block",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if blockID == "" {
				return errors.New("--block is required")
			}
			res, err := a.api.AddComment(cmd.Context(), args[0], essay.AddCommentRequest{
				BlockID: blockID,
				GroupID: groupID,
				Content: strings.Join(args[1:], " "),
			})
			if err != nil {
				return fmt.Errorf("adding comment: %w", err)
			}
			if a.asJSON {
				printJSON(a.out, res)
				return nil
			}
			fmt.Fprintf(a.out, "Comentário %s adicionado ao grupo %s (%d no total).\n", res.Comment.ID, res.GroupID, res.Count)
			return nil
		},
	}
	cmd.Flags().StringVar(&blockID, "block", "", "Block id the comment is anchored to")
	cmd.Flags().StringVar(&groupID, "group", "", "Existing group id (default: start a new group)")
	return cmd
}

func newCommentsRmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <essay-id> <block-id> <group-id> <comment-id>",
		Short: "Remove one comment",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.api.RemoveComment(cmd.Context(), args[0], args[1], args[2], args[3])
			if err != nil {
				return fmt.Errorf("removing comment: %w", err)
			}
			if a.asJSON {
				printJSON(a.out, res)
				return nil
			}
			if res.GroupRemoved {
				fmt.Fprintln(a.out, "Comentário removido; o grupo ficou vazio e foi apagado.")
				return nil
			}
			fmt.Fprintf(a.out, "Comentário removido; restam %d.\n", res.Remaining)
			return nil
		},
	}
}

func newCommentsClearCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear <essay-id> <block-id> <group-id>",
		Short: "Remove a whole comment group",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.api.ClearComments(cmd.Context(), args[0], args[1], args[2]); err != nil {
				return fmt.Errorf("clearing comments: %w", err)
			}
			fmt.Fprintln(a.out, "Grupo de comentários removido.")
			return nil
		},
	}
}
