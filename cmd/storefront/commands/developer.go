package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/marshallshelly/storefront/cmd/storefront/output"
	"github.com/marshallshelly/storefront/pkg/store"
	"github.com/spf13/cobra"
)

var (
	requestMessage    string
	studioWebsite     string
	studioCountry     string
	studioDescription string
	studioFounded     string
)

// developerCmd groups developer and studio commands
var developerCmd = &cobra.Command{
	Use:     "developer",
	Aliases: []string{"dev"},
	Short:   "Developer status and studios",
}

var developerStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the --as developer status",
	RunE: withStore(func(ctx context.Context, st *store.Store, _ []string) error {
		id, err := actingUser(ctx, st)
		if err != nil {
			return err
		}
		status, err := st.CheckDeveloperStatus(ctx, id)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(status)
		}
		if !status.IsDeveloper {
			output.Info("%s is not a developer", asUser)
			return nil
		}
		studioName := "no studio"
		if status.StudioName != nil {
			studioName = *status.StudioName
		}
		output.Success("%s is a developer (%s, %s)", asUser, status.Role, studioName)
		return nil
	}),
}

var developerRequestCmd = &cobra.Command{
	Use:   "request",
	Short: "Ask an admin for developer status",
	RunE: withStore(func(ctx context.Context, st *store.Store, _ []string) error {
		id, err := actingUser(ctx, st)
		if err != nil {
			return err
		}
		notificationID, err := st.CreateDeveloperStatusRequest(ctx, id, requestMessage)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(map[string]int64{"id": notificationID})
		}
		output.Success("Request #%d queued for review", notificationID)
		return nil
	}),
}

func grantCommand(use string, enable bool) *cobra.Command {
	short := "Grant developer status (admin only)"
	if !enable {
		short = "Revoke developer status (admin only)"
	}
	return &cobra.Command{
		Use:   use + " USERNAME",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: withStore(func(ctx context.Context, st *store.Store, args []string) error {
			adminID, err := actingUser(ctx, st)
			if err != nil {
				return err
			}
			targetID, err := st.LookupUserID(ctx, args[0])
			if err != nil {
				return err
			}
			if err := st.AdminSetDeveloperStatus(ctx, adminID, targetID, enable); err != nil {
				return err
			}
			if enable {
				output.Success("%s is now a developer", args[0])
			} else {
				output.Success("%s is no longer a developer", args[0])
			}
			return nil
		}),
	}
}

var leaveStudioCmd = &cobra.Command{
	Use:   "leave-studio",
	Short: "Leave the current studio",
	RunE: withStore(func(ctx context.Context, st *store.Store, _ []string) error {
		id, err := actingUser(ctx, st)
		if err != nil {
			return err
		}
		if err := st.LeaveStudio(ctx, id); err != nil {
			return err
		}
		output.Success("Left studio")
		return nil
	}),
}

var createStudioCmd = &cobra.Command{
	Use:   "create-studio NAME",
	Short: "Found a studio and become its owner",
	Args:  cobra.ExactArgs(1),
	RunE: withStore(func(ctx context.Context, st *store.Store, args []string) error {
		in := store.StudioInput{Name: args[0]}
		if studioWebsite != "" {
			in.Website = &studioWebsite
		}
		if studioCountry != "" {
			in.Country = &studioCountry
		}
		if studioDescription != "" {
			in.Description = &studioDescription
		}
		if studioFounded != "" {
			t, err := time.Parse("2006-01-02", studioFounded)
			if err != nil {
				return fmt.Errorf("invalid founding date %q: %w", studioFounded, err)
			}
			in.EstablishedDate = &t
		}

		id, err := actingUser(ctx, st)
		if err != nil {
			return err
		}
		studioID, err := st.CreateStudio(ctx, id, in)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(map[string]int64{"id": studioID})
		}
		output.Success("Created studio %s (id %d)", in.Name, studioID)
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(developerCmd)
	developerCmd.AddCommand(developerStatusCmd, developerRequestCmd, leaveStudioCmd, createStudioCmd,
		grantCommand("grant", true), grantCommand("revoke", false))

	developerRequestCmd.Flags().StringVarP(&requestMessage, "message", "m", "", "Message for the reviewing admin")

	createStudioCmd.Flags().StringVar(&studioWebsite, "website", "", "Studio website")
	createStudioCmd.Flags().StringVar(&studioCountry, "country", "", "Country")
	createStudioCmd.Flags().StringVar(&studioDescription, "description", "", "Description")
	createStudioCmd.Flags().StringVar(&studioFounded, "founded", "", "Founding date (YYYY-MM-DD)")
}
