package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/google/subcommands"

	"brokerage_tracker/internal/domain/entity"
	"brokerage_tracker/internal/pkg/utils"
)

type summaryCmd struct {
	account string
	search  string
	sort    string
	refresh bool
}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "print positions valued at the last-known prices" }
func (*summaryCmd) Usage() string {
	return `tracker summary [-account <id>] [-q <text>] [-sort symbol|value|gain] [-refresh]

  Prints every position with its market value and gain, followed by the
  portfolio totals and the allocation by symbol.
`
}

func (c *summaryCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "account", "", "Only show positions of this account id.")
	f.StringVar(&c.search, "q", "", "Only show positions whose symbol or notes contain this text.")
	f.StringVar(&c.sort, "sort", "", "Order positions by symbol, value or gain.")
	f.BoolVar(&c.refresh, "refresh", false, "Refresh prices before printing.")
}

func (c *summaryCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	sortKey := entity.SortKey(strings.ToLower(c.sort))
	switch sortKey {
	case "", entity.SortBySymbol, entity.SortByValue, entity.SortByGain:
	default:
		fmt.Fprintf(os.Stderr, "unknown sort %q: want symbol, value or gain\n", c.sort)
		return subcommands.ExitUsageError
	}

	app, err := newApplication(true)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer app.Close()

	if c.refresh {
		if _, err := app.service.RefreshPrices(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "price refresh failed: %v\n", err)
		}
	}

	view, err := app.service.View(ctx, entity.ViewQuery{AccountID: c.account, Search: c.search, Sort: sortKey})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	renderView(os.Stdout, view, app.cfg.CoinGecko.VsCurrency)
	return subcommands.ExitSuccess
}

func renderView(out io.Writer, view entity.PortfolioView, currency string) {
	money := func(v float64) string { return utils.FormatMoney(v, currency) }

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "SYMBOL\tQUANTITY\tPRICE\tVALUE\tAVG COST\tGAIN\tGAIN %\t")
	for _, row := range view.Positions {
		price := "n/a"
		if row.PriceKnown {
			price = money(row.Price)
		}
		fmt.Fprintf(w, "%s\t%g\t%s\t%s\t%s\t%s\t%s\t\n",
			row.Position.Symbol, row.Position.Quantity, price,
			money(row.MarketValue), money(row.AverageCost),
			money(row.GainLoss), utils.FormatPercent(row.GainLossPercent))
	}
	_ = w.Flush()

	s := view.Summary
	fmt.Fprintf(out, "\nPositions: %d\nValue:     %s\nCost:      %s\nGain:      %s (%s)\n",
		s.PositionCount, money(s.TotalValue), money(s.TotalCost),
		money(s.TotalGainLoss), utils.FormatPercent(s.TotalGainLossPercent))
	fmt.Fprintf(out, "Prices as of %s\n", formatTime(view.PricesUpdatedAt))

	if len(view.Allocation) > 0 {
		fmt.Fprintln(out, "\nAllocation:")
		w = tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
		for _, slice := range view.Allocation {
			fmt.Fprintf(w, "%s\t%s\t%.2f%%\t\n", slice.Symbol, money(slice.Value), slice.WeightPercent)
		}
		_ = w.Flush()
	}
	if len(view.MissingPrices) > 0 {
		fmt.Fprintf(out, "\nNo price for: %s\n", strings.Join(view.MissingPrices, ", "))
	}
}
