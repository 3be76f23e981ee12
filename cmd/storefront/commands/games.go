package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/marshallshelly/storefront/cmd/storefront/output"
	"github.com/marshallshelly/storefront/pkg/models"
	"github.com/marshallshelly/storefront/pkg/store"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	sortBy      string
	sortOrder   string
	priceFlag   string
	showHistory bool

	gameDescription string
	gameImageURL    string
	gameStatus      string
	gameReleaseDate string
	gameStudioID    int64
)

// gamesCmd groups catalog commands
var gamesCmd = &cobra.Command{
	Use:     "games",
	Aliases: []string{"game"},
	Short:   "Browse and manage the catalog",
}

var gamesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the catalog",
	Long: `List the catalog by title or price. Unknown sort keys fall back to
title and unknown orders to ascending. Unpriced games sort as the cheapest.`,
	RunE: withStore(func(ctx context.Context, st *store.Store, _ []string) error {
		games, err := st.FetchAllGames(ctx, sortBy, sortOrder)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(games)
		}
		printGames(games)
		return nil
	}),
}

var gamesShowCmd = &cobra.Command{
	Use:   "show GAME_ID",
	Short: "Show a game",
	Args:  cobra.ExactArgs(1),
	RunE: withStore(func(ctx context.Context, st *store.Store, args []string) error {
		gameID, err := parseID(args[0], "game")
		if err != nil {
			return err
		}
		game, err := st.FetchGameDetails(ctx, gameID)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(game)
		}

		output.Section(game.Title)
		fmt.Printf("  Status:  %s %s\n", output.StatusIcon(string(game.Status)), game.Status)
		fmt.Printf("  Price:   %s\n", output.Price(game.Price))
		if game.StudioName != nil {
			fmt.Printf("  Studio:  %s\n", *game.StudioName)
		}
		if game.ReleaseDate != nil {
			fmt.Printf("  Release: %s\n", game.ReleaseDate.Format("2006-01-02"))
		}
		if game.Description != nil {
			fmt.Println()
			fmt.Println(*game.Description)
		}

		// Ownership is shown only when credentials were given
		if asUser != "" {
			if userID, err := actingUser(ctx, st); err == nil && st.CheckOwnership(ctx, userID, gameID) {
				fmt.Println()
				output.Success("In your library")
			}
		}
		return nil
	}),
}

var gamesAddCmd = &cobra.Command{
	Use:   "add TITLE",
	Short: "Publish a game (admin or developer)",
	Long: `Publish a game. Developers publish under their own studio.

Examples:
  storefront games add "Star Forge" --price 19.99 --status "Early Access" --as dev`,
	Args: cobra.ExactArgs(1),
	RunE: withStore(func(ctx context.Context, st *store.Store, args []string) error {
		in := store.GameInput{Title: args[0], Status: models.GameStatus(gameStatus)}
		price, err := store.ParsePrice(priceFlag)
		if err != nil {
			return err
		}
		in.Price = price
		if gameDescription != "" {
			in.Description = &gameDescription
		}
		if gameImageURL != "" {
			in.ImageURL = &gameImageURL
		}
		if gameReleaseDate != "" {
			t, err := time.Parse("2006-01-02", gameReleaseDate)
			if err != nil {
				return fmt.Errorf("invalid release date %q: %w", gameReleaseDate, err)
			}
			in.ReleaseDate = &t
		}
		if gameStudioID > 0 {
			in.StudioID = &gameStudioID
		}

		actorID, err := actingUser(ctx, st)
		if err != nil {
			return err
		}
		id, err := st.CreateGame(ctx, actorID, in)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(map[string]int64{"id": id})
		}
		output.Success("Published %s (id %d)", in.Title, id)
		return nil
	}),
}

var gamesSetPriceCmd = &cobra.Command{
	Use:   "set-price GAME_ID [PRICE]",
	Short: "Change a game's price; omit PRICE to take it off sale",
	Args:  cobra.RangeArgs(1, 2),
	RunE: withStore(func(ctx context.Context, st *store.Store, args []string) error {
		gameID, err := parseID(args[0], "game")
		if err != nil {
			return err
		}
		var text string
		if len(args) == 2 {
			text = args[1]
		}
		price, err := store.ParsePrice(text)
		if err != nil {
			return err
		}
		actorID, err := actingUser(ctx, st)
		if err != nil {
			return err
		}
		if err := st.UpdateGamePrice(ctx, actorID, gameID, price); err != nil {
			return err
		}
		if price == nil {
			output.Success("Game %d is no longer for sale", gameID)
		} else {
			output.Success("Game %d now costs %s", gameID, output.Money(*price))
		}
		return nil
	}),
}

var purchaseCmd = &cobra.Command{
	Use:   "purchase GAME_ID",
	Short: "Buy a game for --as",
	Long: `Buy a game for --as at its catalog price. Admins may record a
different price with --price.

Examples:
  storefront purchase 42 --as alice
  storefront purchase 42 --price 0 --as admin`,
	Args: cobra.ExactArgs(1),
	RunE: withStore(func(ctx context.Context, st *store.Store, args []string) error {
		gameID, err := parseID(args[0], "game")
		if err != nil {
			return err
		}
		userID, err := actingUser(ctx, st)
		if err != nil {
			return err
		}

		receipt, err := buyGame(ctx, st, userID, gameID, priceFlag)

		var funds *store.InsufficientFundsError
		if errors.As(err, &funds) {
			output.Error("Insufficient funds: you need %s more", output.Money(funds.Shortfall()))
			return err
		}
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(receipt)
		}
		output.Success("Purchased game %d for %s (order %d)", gameID, output.Money(receipt.Price), receipt.PurchaseID)
		output.Muted("Balance: %s", output.Money(receipt.NewBalance))
		return nil
	}),
}

var libraryCmd = &cobra.Command{
	Use:   "library",
	Short: "List games owned by --as",
	RunE: withStore(func(ctx context.Context, st *store.Store, _ []string) error {
		userID, err := actingUser(ctx, st)
		if err != nil {
			return err
		}

		if showHistory {
			history, err := st.FetchPurchaseHistory(ctx, userID)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(history)
			}
			printHistory(history)
			return nil
		}

		games, err := st.FetchPurchasedGames(ctx, userID)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(games)
		}
		printGames(games)
		return nil
	}),
}

var studiosCmd = &cobra.Command{
	Use:   "studios",
	Short: "List studios",
	RunE: withStore(func(ctx context.Context, st *store.Store, _ []string) error {
		studios, err := st.ListStudios(ctx)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(studios)
		}
		if len(studios) == 0 {
			output.Info("No studios")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tCOUNTRY")
		for _, s := range studios {
			country := "-"
			if s.Country != nil {
				country = *s.Country
			}
			fmt.Fprintf(w, "%d\t%s\t%s\n", s.ID, s.Name, country)
		}
		return w.Flush()
	}),
}

// purchaser is the part of the store the purchase command uses.
type purchaser interface {
	FetchUserInfo(ctx context.Context, userID int64) (models.UserInfo, error)
	PurchaseGame(ctx context.Context, userID, gameID int64, price *decimal.Decimal) (store.Receipt, error)
	PurchaseGameAtCatalogPrice(ctx context.Context, userID, gameID int64) (store.Receipt, error)
}

// buyGame charges the catalog price. A custom price is only accepted from
// an unbanned admin.
func buyGame(ctx context.Context, p purchaser, userID, gameID int64, priceText string) (store.Receipt, error) {
	if priceText == "" {
		return p.PurchaseGameAtCatalogPrice(ctx, userID, gameID)
	}

	info, err := p.FetchUserInfo(ctx, userID)
	if err != nil {
		return store.Receipt{}, err
	}
	if !info.IsAppAdmin || info.IsBanned {
		return store.Receipt{}, fmt.Errorf("--price: %w", store.ErrNotAdmin)
	}
	price, err := store.ParsePrice(priceText)
	if err != nil {
		return store.Receipt{}, err
	}
	return p.PurchaseGame(ctx, userID, gameID, price)
}

func printGames(games []models.Game) {
	if len(games) == 0 {
		output.Info("No games")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tPRICE\tSTATUS\tRELEASE")
	for _, g := range games {
		release := "-"
		if g.ReleaseDate != nil {
			release = g.ReleaseDate.Format("2006-01-02")
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s %s\t%s\n", g.ID, g.Title, output.Price(g.Price),
			output.StatusIcon(string(g.Status)), g.Status, release)
	}
	w.Flush()
}

func printHistory(history []models.Purchase) {
	if len(history) == 0 {
		output.Info("No purchases")
		return
	}
	for _, p := range history {
		fmt.Printf("%s Order %d  %s  %s\n", output.StatusIcon(string(p.Status)), p.ID,
			p.PurchaseDate.Format("2006-01-02 15:04"), output.Money(p.TotalAmount))
		for _, item := range p.Items {
			fmt.Printf("    %s  %s\n", item.GameTitle, output.Money(item.PriceAtPurchase))
		}
	}
}

func init() {
	rootCmd.AddCommand(gamesCmd, purchaseCmd, libraryCmd, studiosCmd)
	gamesCmd.AddCommand(gamesListCmd, gamesShowCmd, gamesAddCmd, gamesSetPriceCmd)

	gamesListCmd.Flags().StringVar(&sortBy, "sort", string(store.SortTitle), "Sort key")
	gamesListCmd.Flags().StringVar(&sortOrder, "order", string(store.SortAsc), "Sort order (ASC or DESC)")

	gamesAddCmd.Flags().StringVar(&priceFlag, "price", "", "Price; omit to leave unpriced")
	gamesAddCmd.Flags().StringVar(&gameDescription, "description", "", "Description")
	gamesAddCmd.Flags().StringVar(&gameImageURL, "image-url", "", "Cover image URL")
	gamesAddCmd.Flags().StringVar(&gameStatus, "status", string(models.GameDevelopment), "Release status")
	gamesAddCmd.Flags().StringVar(&gameReleaseDate, "release-date", "", "Release date (YYYY-MM-DD)")
	gamesAddCmd.Flags().Int64Var(&gameStudioID, "studio", 0, "Studio id (admins only)")

	purchaseCmd.Flags().StringVar(&priceFlag, "price", "", "Price to record instead of the catalog price (admins only)")
	libraryCmd.Flags().BoolVar(&showHistory, "history", false, "Show purchase history with price snapshots")
}
