package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/spf13/cobra"

	"option-journal/internal/economics"
	apperrors "option-journal/internal/errors"
	"option-journal/internal/models"
	"option-journal/internal/store"
	"option-journal/pkg/utils"
)

const expirationFlagFormat = "2006-01-02"

// addTradeCommands adds journal trade commands.
func addTradeCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "trade",
		Short: "Trade journal management",
		Long:  "Record, review, close, and export option trades.",
	}

	cmd.AddCommand(newTradeListCmd(app))
	cmd.AddCommand(newTradeAddCmd(app))
	cmd.AddCommand(newTradeShowCmd(app))
	cmd.AddCommand(newTradeCloseCmd(app))
	cmd.AddCommand(newTradeDeleteCmd(app))
	cmd.AddCommand(newTradeExportCmd(app))

	rootCmd.AddCommand(cmd)
}

func newTradeListCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List journal trades",
		Long:  "Display recorded trades with derived P&L and breakeven.",
		Example: `  option-journal trade list
  option-journal trade list --symbol AAPL --status open`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if app.Store == nil {
				output.Warning("Store not initialized. No trade data available.")
				return nil
			}

			symbol, _ := cmd.Flags().GetString("symbol")
			status, _ := cmd.Flags().GetString("status")
			limit, _ := cmd.Flags().GetInt("limit")

			trades, err := app.Store.ListTrades(ctx, store.TradeFilter{
				Symbol: strings.ToUpper(strings.TrimSpace(symbol)),
				Status: store.TradeStatus(status),
				Limit:  limit,
			})
			if err != nil {
				output.Error("Failed to fetch trades: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(trades)
			}

			if len(trades) == 0 {
				output.Info("No trades recorded.")
				return nil
			}

			var totalPnL float64
			var open, closed int

			table := NewTable(output, "ID", "Symbol", "Type", "Strike", "Entry", "Exit", "Expiry", "Qty", "P&L", "P&L %")
			for _, t := range trades {
				pnl := economics.ProfitLoss(&t)
				exit := "-"
				pnlCell := output.DimText("open")
				pnlPctCell := ""
				if t.Closed() {
					closed++
					totalPnL += pnl
					exit = FormatPrice(t.ExitPrice)
					pnlCell = output.FormatPnL(pnl)
					pnlPctCell = output.FormatPercent(economics.ProfitLossPercent(&t))
				} else {
					open++
				}

				table.AddRow(
					strconv.FormatInt(t.ID, 10),
					t.Symbol,
					string(t.Type),
					FormatStrike(t.Strike),
					FormatPrice(t.Price),
					exit,
					FormatDate(t.ExpirationDate),
					strconv.Itoa(t.Contracts),
					pnlCell,
					pnlPctCell,
				)
			}
			table.Render()

			output.Println()
			output.Bold("Summary")
			output.Printf("  Trades:     %d (%d open, %d closed)\n", len(trades), open, closed)
			output.Printf("  Closed P&L: %s\n", output.FormatPnL(totalPnL))

			return nil
		},
	}

	cmd.Flags().String("symbol", "", "filter by symbol")
	cmd.Flags().String("status", "", "filter by status (open, closed)")
	cmd.Flags().Int("limit", 0, "maximum number of trades")

	return cmd
}

func newTradeAddCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a new trade",
		Long: `Record a new option trade in the journal.

When --price is omitted and market data is available, the entry price
defaults to the bid/ask midpoint of the matching contract.`,
		Example: `  option-journal trade add --symbol AAPL --type short-put --strike 225 --expiration 2026-09-18 --price 2.50 --contracts 2
  option-journal trade add --symbol MSFT --type call --strike 520 --expiration 2026-10-16 --contracts 1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if app.Store == nil {
				return apperrors.ErrStoreUnavailable
			}

			symbol, _ := cmd.Flags().GetString("symbol")
			tradeType, _ := cmd.Flags().GetString("type")
			strike, _ := cmd.Flags().GetFloat64("strike")
			stockPrice, _ := cmd.Flags().GetFloat64("stock-price")
			price, _ := cmd.Flags().GetFloat64("price")
			contracts, _ := cmd.Flags().GetInt("contracts")
			expirationStr, _ := cmd.Flags().GetString("expiration")

			expiration, err := time.Parse(expirationFlagFormat, expirationStr)
			if err != nil {
				return apperrors.NewValidationError("expiration", expirationStr, "want YYYY-MM-DD")
			}

			trade := models.Trade{
				Symbol:         symbol,
				Type:           models.TradeType(tradeType),
				Strike:         strike,
				StockPrice:     stockPrice,
				Price:          price,
				Contracts:      contracts,
				ExpirationDate: expiration,
			}
			trade.Normalize()

			// Fill spot and entry price from the live chain when missing.
			if trade.StockPrice == 0 || trade.Price == 0 {
				data, err := app.Market.ValidateSymbol(ctx, trade.Symbol)
				if err != nil {
					output.Warning("Market data unavailable: %v", err)
				} else {
					if trade.StockPrice == 0 {
						trade.StockPrice = data.SpotPrice
					}
					if trade.Price == 0 {
						quote := economics.SelectMatchedOption(data.Chain, expiration, strike, trade.Type)
						trade.Price = economics.ProposedEntryPrice(quote, 0)
						if quote != nil {
							output.Info("Matched contract %s, using midpoint %s",
								quote.ContractName, FormatPrice(trade.Price))
							pop := economics.ProbabilityOfProfit(quote, economics.IsShort(trade.Type))
							output.Printf("  Probability of profit: %.2f%%\n", pop)
						}
					}
				}
			}

			if err := trade.Validate(); err != nil {
				return err
			}

			id, err := app.Store.CreateTrade(ctx, &trade)
			if err != nil {
				output.Error("Failed to save trade: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(trade)
			}

			output.Success("✓ Trade #%d recorded", id)
			output.Printf("  %s %s %s @ %s x%d\n",
				trade.Symbol, trade.Type, FormatStrike(trade.Strike),
				FormatPrice(trade.Price), trade.Contracts)
			output.Printf("  Credit/Debit: %s\n", utils.FormatUSD(economics.CreditOrDebit(trade.Price, trade.Contracts)))
			if be := economics.Breakeven(&trade); be != 0 {
				output.Printf("  Breakeven:    %s\n", utils.FormatUSD(be))
			}
			output.Printf("  Min Exit:     %s\n", FormatPrice(economics.MinExitPrice(&trade)))

			return nil
		},
	}

	cmd.Flags().String("symbol", "", "underlying symbol (required)")
	cmd.Flags().String("type", "", "trade type: call, put, short-call, short-put (required)")
	cmd.Flags().Float64("strike", 0, "strike price (required)")
	cmd.Flags().Float64("stock-price", 0, "underlying price at entry (default: live quote)")
	cmd.Flags().Float64("price", 0, "entry price per share (default: bid/ask midpoint)")
	cmd.Flags().Int("contracts", 1, "number of contracts")
	cmd.Flags().String("expiration", "", "expiration date YYYY-MM-DD (required)")
	cmd.MarkFlagRequired("symbol")
	cmd.MarkFlagRequired("type")
	cmd.MarkFlagRequired("strike")
	cmd.MarkFlagRequired("expiration")

	return cmd
}

func newTradeShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <trade-id>",
		Short: "Show a trade with derived economics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if app.Store == nil {
				return apperrors.ErrStoreUnavailable
			}

			id, err := parseTradeID(args[0])
			if err != nil {
				return err
			}

			trade, err := app.Store.GetTrade(ctx, id)
			if err != nil {
				output.Error("Failed to fetch trade: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(trade)
			}

			status := output.Yellow("OPEN")
			if trade.Closed() {
				status = output.DimText("CLOSED")
			}

			output.Bold("Trade #%d  %s", trade.ID, status)
			output.Printf("  Symbol:       %s\n", trade.Symbol)
			output.Printf("  Type:         %s\n", trade.Type)
			output.Printf("  Strike:       %s\n", FormatStrike(trade.Strike))
			output.Printf("  Stock Price:  %s\n", FormatPrice(trade.StockPrice))
			output.Printf("  Entry:        %s\n", FormatPrice(trade.Price))
			if trade.Closed() {
				output.Printf("  Exit:         %s\n", FormatPrice(trade.ExitPrice))
			}
			output.Printf("  Contracts:    %d\n", trade.Contracts)
			output.Printf("  Expiration:   %s\n", FormatDate(trade.ExpirationDate))
			output.Println()

			output.Bold("Economics")
			output.Printf("  Credit/Debit: %s\n", utils.FormatUSD(economics.CreditOrDebit(trade.Price, trade.Contracts)))
			if be := economics.Breakeven(trade); be != 0 {
				output.Printf("  Breakeven:    %s\n", utils.FormatUSD(be))
			}
			output.Printf("  Min Exit:     %s\n", FormatPrice(economics.MinExitPrice(trade)))
			if trade.Closed() {
				output.Printf("  P&L:          %s (%s)\n",
					output.FormatPnL(economics.ProfitLoss(trade)),
					output.FormatPercent(economics.ProfitLossPercent(trade)))
			}

			return nil
		},
	}
}

func newTradeCloseCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "close <trade-id> <exit-price>",
		Short: "Close a trade at an exit price",
		Long: `Close an open trade by recording its exit price.

An exit price of 0 reopens the trade.`,
		Example: `  option-journal trade close 12 1.25
  option-journal trade close 12 0`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if app.Store == nil {
				return apperrors.ErrStoreUnavailable
			}

			id, err := parseTradeID(args[0])
			if err != nil {
				return err
			}
			exitPrice, err := strconv.ParseFloat(args[1], 64)
			if err != nil || exitPrice < 0 {
				return apperrors.NewValidationError("exit_price", args[1], "must be 0 or greater")
			}

			if err := app.Store.CloseTrade(ctx, id, exitPrice); err != nil {
				output.Error("Failed to close trade: %v", err)
				return err
			}

			trade, err := app.Store.GetTrade(ctx, id)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(trade)
			}

			if !trade.Closed() {
				output.Success("✓ Trade #%d reopened", id)
				return nil
			}

			output.Success("✓ Trade #%d closed at %s", id, FormatPrice(exitPrice))
			output.Printf("  P&L: %s (%s)\n",
				output.FormatPnL(economics.ProfitLoss(trade)),
				output.FormatPercent(economics.ProfitLossPercent(trade)))

			return nil
		},
	}
}

func newTradeDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <trade-id>",
		Short: "Delete a trade from the journal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if app.Store == nil {
				return apperrors.ErrStoreUnavailable
			}

			id, err := parseTradeID(args[0])
			if err != nil {
				return err
			}

			if err := app.Store.DeleteTrade(ctx, id); err != nil {
				output.Error("Failed to delete trade: %v", err)
				return err
			}

			output.Success("✓ Trade #%d deleted", id)
			return nil
		},
	}
}

// tradeCSVRow is the export row shape. All fields are preformatted
// strings so the CSV matches what the journal table displays.
type tradeCSVRow struct {
	ID            string `csv:"id"`
	Symbol        string `csv:"symbol"`
	Type          string `csv:"type"`
	Strike        string `csv:"strike"`
	StockPrice    string `csv:"stock_price"`
	Entry         string `csv:"entry_price"`
	Exit          string `csv:"exit_price"`
	Contracts     string `csv:"contracts"`
	Expiration    string `csv:"expiration"`
	Status        string `csv:"status"`
	CreditOrDebit string `csv:"credit_or_debit"`
	Breakeven     string `csv:"breakeven"`
	PnL           string `csv:"pnl"`
	PnLPercent    string `csv:"pnl_percent"`
}

func newTradeExportCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Export trades to CSV",
		Long:  "Export the journal, including derived economics, to a CSV file.",
		Example: `  option-journal trade export trades.csv
  option-journal trade export closed.csv --status closed`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if app.Store == nil {
				return apperrors.ErrStoreUnavailable
			}

			symbol, _ := cmd.Flags().GetString("symbol")
			status, _ := cmd.Flags().GetString("status")

			trades, err := app.Store.ListTrades(ctx, store.TradeFilter{
				Symbol: strings.ToUpper(strings.TrimSpace(symbol)),
				Status: store.TradeStatus(status),
			})
			if err != nil {
				output.Error("Failed to fetch trades: %v", err)
				return err
			}

			rows := make([]tradeCSVRow, 0, len(trades))
			for _, t := range trades {
				rows = append(rows, tradeCSVRowFrom(t))
			}

			f, err := os.Create(args[0])
			if err != nil {
				return fmt.Errorf("creating export file: %w", err)
			}
			defer f.Close()

			if err := gocsv.Marshal(&rows, f); err != nil {
				return fmt.Errorf("writing CSV: %w", err)
			}

			output.Success("✓ Exported %d trades to %s", len(rows), args[0])
			return nil
		},
	}

	cmd.Flags().String("symbol", "", "filter by symbol")
	cmd.Flags().String("status", "", "filter by status (open, closed)")

	return cmd
}

func tradeCSVRowFrom(t models.Trade) tradeCSVRow {
	status := "open"
	exit := ""
	pnl := ""
	pnlPct := ""
	if t.Closed() {
		status = "closed"
		exit = FormatPrice(t.ExitPrice)
		pnl = fmt.Sprintf("%.2f", economics.ProfitLoss(&t))
		pnlPct = fmt.Sprintf("%.2f", economics.ProfitLossPercent(&t))
	}
	breakeven := ""
	if be := economics.Breakeven(&t); be != 0 {
		breakeven = fmt.Sprintf("%.2f", be)
	}

	return tradeCSVRow{
		ID:            strconv.FormatInt(t.ID, 10),
		Symbol:        t.Symbol,
		Type:          string(t.Type),
		Strike:        FormatStrike(t.Strike),
		StockPrice:    FormatPrice(t.StockPrice),
		Entry:         FormatPrice(t.Price),
		Exit:          exit,
		Contracts:     strconv.Itoa(t.Contracts),
		Expiration:    t.ExpirationDate.Format(expirationFlagFormat),
		Status:        status,
		CreditOrDebit: fmt.Sprintf("%.2f", economics.CreditOrDebit(t.Price, t.Contracts)),
		Breakeven:     breakeven,
		PnL:           pnl,
		PnLPercent:    pnlPct,
	}
}

func parseTradeID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("trade_id", raw, "must be a positive integer")
	}
	return id, nil
}
