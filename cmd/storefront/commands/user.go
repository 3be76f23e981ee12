package commands

import (
	"context"
	"fmt"

	"github.com/marshallshelly/storefront/cmd/storefront/output"
	"github.com/marshallshelly/storefront/pkg/store"
	"github.com/spf13/cobra"
)

var email string

// userCmd groups account commands
var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage accounts",
}

var userRegisterCmd = &cobra.Command{
	Use:   "register USERNAME",
	Short: "Create an account",
	Long: `Create an account. The password is read from --password or $STOREFRONT_PASSWORD.

Examples:
  storefront user register alice --email alice@example.com --password 's3cret-pass'`,
	Args: cobra.ExactArgs(1),
	RunE: withStore(func(ctx context.Context, st *store.Store, args []string) error {
		if password == "" {
			return fmt.Errorf("--password or $%s is required", EnvPassword)
		}
		id, err := st.RegisterUser(ctx, args[0], email, password)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(map[string]int64{"id": id})
		}
		output.Success("Registered %s (id %d)", args[0], id)
		return nil
	}),
}

var userLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Check the --as credentials",
	RunE: withStore(func(ctx context.Context, st *store.Store, _ []string) error {
		id, err := actingUser(ctx, st)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(map[string]int64{"id": id})
		}
		output.Success("Credentials valid for %s (id %d)", asUser, id)
		return nil
	}),
}

var userInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the --as profile",
	RunE: withStore(func(ctx context.Context, st *store.Store, _ []string) error {
		id, err := actingUser(ctx, st)
		if err != nil {
			return err
		}
		info, err := st.FetchUserInfo(ctx, id)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(info)
		}

		output.Section(info.Username)
		fmt.Printf("  Email:     %s\n", info.Email)
		fmt.Printf("  Balance:   %s\n", output.Money(info.Balance))
		fmt.Printf("  Joined:    %s\n", info.CreatedAt.Format("2006-01-02"))
		if info.IsAppAdmin {
			fmt.Println("  Role:      admin")
		}
		if info.IsDeveloper {
			studio := "no studio"
			if info.StudioName != nil {
				studio = *info.StudioName
			}
			fmt.Printf("  Developer: %s\n", studio)
		}
		if info.IsBanned {
			output.Warning("Account is banned")
		}
		return nil
	}),
}

var userDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete the --as account",
	RunE: withStore(func(ctx context.Context, st *store.Store, _ []string) error {
		id, err := actingUser(ctx, st)
		if err != nil {
			return err
		}
		if err := st.DeleteUserAccount(ctx, id); err != nil {
			return err
		}
		output.Success("Deleted account %s", asUser)
		return nil
	}),
}

func banCommand(use string, banned bool) *cobra.Command {
	verb := "Ban"
	if !banned {
		verb = "Unban"
	}
	return &cobra.Command{
		Use:   use + " USERNAME",
		Short: verb + " a user (admin only)",
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
			if err := st.SetUserBanStatus(ctx, adminID, targetID, banned); err != nil {
				return err
			}
			output.Success("%sned %s", verb, args[0])
			return nil
		}),
	}
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userRegisterCmd, userLoginCmd, userInfoCmd, userDeleteCmd,
		banCommand("ban", true), banCommand("unban", false))

	userRegisterCmd.Flags().StringVar(&email, "email", "", "Email address")
	_ = userRegisterCmd.MarkFlagRequired("email")
}
