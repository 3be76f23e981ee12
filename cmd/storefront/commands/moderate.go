package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/marshallshelly/storefront/cmd/storefront/output"
	"github.com/marshallshelly/storefront/cmd/storefront/tui"
	"github.com/marshallshelly/storefront/pkg/store"
	"github.com/spf13/cobra"
)

var interactive bool

// moderateCmd works the developer request queue
var moderateCmd = &cobra.Command{
	Use:   "moderate",
	Short: "Review developer status requests (admin only)",
	Long: `Review developer status requests as the --as admin.

Examples:
  storefront moderate list --as admin
  storefront moderate approve 12 --as admin
  storefront moderate -i --as admin`,
	RunE: withStore(func(ctx context.Context, st *store.Store, _ []string) error {
		adminID, err := actingUser(ctx, st)
		if err != nil {
			return err
		}
		if interactive {
			return tui.RunModerateUI(ctx, st, adminID)
		}
		return listQueue(ctx, st, adminID)
	}),
}

var moderateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pending requests, oldest first",
	RunE: withStore(func(ctx context.Context, st *store.Store, _ []string) error {
		adminID, err := actingUser(ctx, st)
		if err != nil {
			return err
		}
		return listQueue(ctx, st, adminID)
	}),
}

func listQueue(ctx context.Context, st *store.Store, adminID int64) error {
	queue, err := st.FetchPendingNotifications(ctx, adminID)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(queue)
	}
	if len(queue) == 0 {
		output.Info("No pending requests")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSER\tCREATED\tMESSAGE")
	for _, n := range queue {
		msg := ""
		if n.Message != nil {
			msg = *n.Message
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", n.ID, n.Username, n.CreatedAt.Format("2006-01-02 15:04"), msg)
	}
	return w.Flush()
}

func decideCommand(use string, approve bool) *cobra.Command {
	short := "Approve a request"
	if !approve {
		short = "Reject a request"
	}
	return &cobra.Command{
		Use:   use + " NOTIFICATION_ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: withStore(func(ctx context.Context, st *store.Store, args []string) error {
			notificationID, err := parseID(args[0], "notification")
			if err != nil {
				return err
			}
			adminID, err := actingUser(ctx, st)
			if err != nil {
				return err
			}
			if err := st.ProcessDeveloperStatusRequest(ctx, adminID, notificationID, approve); err != nil {
				return err
			}
			if approve {
				output.Success("Approved request #%d", notificationID)
			} else {
				output.Success("Rejected request #%d", notificationID)
			}
			return nil
		}),
	}
}

func init() {
	rootCmd.AddCommand(moderateCmd)
	moderateCmd.AddCommand(moderateListCmd, decideCommand("approve", true), decideCommand("reject", false))

	moderateCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Interactive mode with TUI")
}
