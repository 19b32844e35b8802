package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"option-journal/internal/economics"
	apperrors "option-journal/internal/errors"
	"option-journal/internal/models"
)

// addChainCommands adds market data and option chain commands.
func addChainCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "chain",
		Short: "Option chain lookups",
		Long:  "Validate symbols and browse option chain strikes and contracts.",
	}

	cmd.AddCommand(newChainCheckCmd(app))
	cmd.AddCommand(newChainStrikesCmd(app))
	cmd.AddCommand(newChainMatchCmd(app))

	rootCmd.AddCommand(cmd)
	rootCmd.AddCommand(newQuotesCmd(app))
}

func newChainCheckCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "check <symbol>",
		Short: "Validate a symbol and list expirations",
		Example: `  option-journal chain check AAPL`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			data, err := app.Market.ValidateSymbol(ctx, args[0])
			if err != nil {
				if apperrors.Is(err, apperrors.ErrSymbolNotFound) {
					output.Error("Symbol %q not found", args[0])
					return err
				}
				output.Error("Symbol lookup failed: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"symbol":          data.Symbol,
					"price":           data.SpotPrice,
					"expirationDates": data.ExpirationDates,
				})
			}

			output.Bold("%s  %s", data.Symbol, FormatPrice(data.SpotPrice))
			output.Println()
			output.Bold("Expirations")
			for _, d := range data.ExpirationDates {
				output.Printf("  %s\n", FormatDate(d))
			}

			return nil
		},
	}
}

func newChainStrikesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "strikes <symbol>",
		Short: "List strikes for an expiration",
		Long: `List strikes and deltas for one expiration and trade type.

The strike nearest the current spot price is marked; it is the default
strike proposed for a new trade.`,
		Example: `  option-journal chain strikes AAPL --expiration 2026-09-18 --type short-put`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			expiration, tradeType, err := chainFlags(cmd)
			if err != nil {
				return err
			}

			data, err := app.Market.ValidateSymbol(ctx, args[0])
			if err != nil {
				output.Error("Symbol lookup failed: %v", err)
				return err
			}

			strikes := economics.ListStrikesForExpiration(data.Chain, expiration, tradeType)
			nearest := economics.FindNearestStrike(strikes, data.SpotPrice)

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"symbol":  data.Symbol,
					"price":   data.SpotPrice,
					"strikes": strikes,
					"nearest": nearest,
				})
			}

			if len(strikes) == 0 {
				output.Info("No %s strikes for %s on %s.", tradeType, data.Symbol, FormatDate(expiration))
				return nil
			}

			output.Bold("%s %s  spot %s", data.Symbol, tradeType, FormatPrice(data.SpotPrice))
			table := NewTable(output, "Strike", "Delta", "")
			for _, sd := range strikes {
				marker := ""
				if nearest != nil && sd.Strike == nearest.Strike {
					marker = output.Yellow("◀ nearest")
				}
				table.AddRow(FormatStrike(sd.Strike), FormatDelta(sd.Delta), marker)
			}
			table.Render()

			return nil
		},
	}

	cmd.Flags().String("expiration", "", "expiration date YYYY-MM-DD (required)")
	cmd.Flags().String("type", "", "trade type: call, put, short-call, short-put (required)")
	cmd.MarkFlagRequired("expiration")
	cmd.MarkFlagRequired("type")

	return cmd
}

func newChainMatchCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match <symbol>",
		Short: "Match a contract and propose an entry price",
		Long: `Find the contract matching an expiration, strike, and trade type.

Prints the bid/ask midpoint as the proposed entry price along with the
probability of profit derived from the contract delta.`,
		Example: `  option-journal chain match AAPL --expiration 2026-09-18 --type short-put --strike 225
  option-journal chain match AAPL --expiration 2026-09-18 --type short-put --strike 225 --contracts 2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			expiration, tradeType, err := chainFlags(cmd)
			if err != nil {
				return err
			}
			strike, _ := cmd.Flags().GetFloat64("strike")
			if strike <= 0 {
				return apperrors.NewValidationError("strike", strike, "must be positive")
			}
			contracts, _ := cmd.Flags().GetInt("contracts")

			data, err := app.Market.ValidateSymbol(ctx, args[0])
			if err != nil {
				output.Error("Symbol lookup failed: %v", err)
				return err
			}

			quote := economics.SelectMatchedOption(data.Chain, expiration, strike, tradeType)
			proposed := economics.ProposedEntryPrice(quote, 0)
			pop := economics.ProbabilityOfProfit(quote, economics.IsShort(tradeType))

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"matched":             quote != nil,
					"proposedPrice":       proposed,
					"probabilityOfProfit": pop,
					"creditOrDebit":       economics.CreditOrDebit(proposed, contracts),
					"option":              quote,
				})
			}

			if quote == nil {
				output.Warning("No %s contract at strike %s for %s.",
					tradeType, FormatStrike(strike), FormatDate(expiration))
				return nil
			}

			output.Bold("%s %s %s exp %s", data.Symbol, tradeType, FormatStrike(strike), FormatDate(expiration))
			output.Printf("  Bid/Ask:       %s / %s\n", FormatPrice(quote.Bid), FormatPrice(quote.Ask))
			output.Printf("  Proposed:      %s\n", FormatPrice(proposed))
			output.Printf("  Delta:         %s\n", FormatDelta(quote.Greeks.Delta))
			output.Printf("  Prob. Profit:  %.2f%%\n", pop)
			output.Printf("  Credit/Debit:  %.2f x%d\n", economics.CreditOrDebit(proposed, contracts), contracts)

			return nil
		},
	}

	cmd.Flags().String("expiration", "", "expiration date YYYY-MM-DD (required)")
	cmd.Flags().String("type", "", "trade type: call, put, short-call, short-put (required)")
	cmd.Flags().Float64("strike", 0, "strike price (required)")
	cmd.Flags().Int("contracts", 1, "number of contracts")
	cmd.MarkFlagRequired("expiration")
	cmd.MarkFlagRequired("type")
	cmd.MarkFlagRequired("strike")

	return cmd
}

func newQuotesCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "quotes <symbol> [symbol...]",
		Short: "Show current prices and earnings dates",
		Example: `  option-journal quotes AAPL MSFT NVDA`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			quotes, err := app.Market.BatchQuotes(ctx, args)
			if err != nil {
				output.Error("Quote lookup failed: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(quotes)
			}

			table := NewTable(output, "Symbol", "Price", "Earnings")
			for _, q := range quotes {
				earnings := "-"
				if q.Earnings != nil {
					earnings = FormatDate(*q.Earnings)
				}
				table.AddRow(q.Symbol, FormatPrice(q.Price), earnings)
			}
			table.Render()

			return nil
		},
	}
}

func chainFlags(cmd *cobra.Command) (time.Time, models.TradeType, error) {
	expirationStr, _ := cmd.Flags().GetString("expiration")
	expiration, err := time.Parse(expirationFlagFormat, expirationStr)
	if err != nil {
		return time.Time{}, "", apperrors.NewValidationError("expiration", expirationStr, "want YYYY-MM-DD")
	}
	tradeType := models.TradeType(cmd.Flags().Lookup("type").Value.String())
	if !tradeType.Valid() {
		return time.Time{}, "", apperrors.NewValidationError("type", string(tradeType),
			"must be one of call, put, short-call, short-put")
	}
	return expiration, tradeType, nil
}
