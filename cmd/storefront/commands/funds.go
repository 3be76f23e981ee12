package commands

import (
	"context"
	"fmt"

	"github.com/marshallshelly/storefront/cmd/storefront/output"
	"github.com/marshallshelly/storefront/pkg/store"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var fundsCmd = &cobra.Command{
	Use:   "funds",
	Short: "Manage account balance",
}

var fundsAddCmd = &cobra.Command{
	Use:   "add AMOUNT",
	Short: "Top up the --as balance",
	Long: `Top up the --as balance. The amount is rounded to cents and must be
positive and at most ` + store.MaxTopUp.StringFixed(2) + `.

Examples:
  storefront funds add 25.00 --as alice`,
	Args: cobra.ExactArgs(1),
	RunE: withStore(func(ctx context.Context, st *store.Store, args []string) error {
		amount, err := decimal.NewFromString(args[0])
		if err != nil {
			return fmt.Errorf("invalid amount %q", args[0])
		}
		id, err := actingUser(ctx, st)
		if err != nil {
			return err
		}
		balance, err := st.AddFunds(ctx, id, amount)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(map[string]decimal.Decimal{"balance": balance})
		}
		output.Success("Added %s, balance is now %s", output.Money(amount.Round(2)), output.Money(balance))
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(fundsCmd)
	fundsCmd.AddCommand(fundsAddCmd)
}
