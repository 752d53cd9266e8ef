package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/subcommands"

	"brokerage_tracker/internal/pkg/utils"
)

type refreshCmd struct {
	timeout time.Duration
}

func (*refreshCmd) Name() string     { return "refresh" }
func (*refreshCmd) Synopsis() string { return "fetch current prices for every held symbol" }
func (*refreshCmd) Usage() string {
	return `tracker refresh [-timeout <duration>]

  Queries the equity and crypto providers for every symbol held and stores
  the result. If every provider fails, the last-known prices are kept and
  reported as stale.
`
}

func (c *refreshCmd) SetFlags(f *flag.FlagSet) {
	f.DurationVar(&c.timeout, "timeout", time.Minute, "Overall deadline for the refresh.")
}

func (c *refreshCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	app, err := newApplication(true)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer app.Close()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result, err := app.service.RefreshPrices(ctx)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PROVIDER\tCLASS\tREQUESTED\tRETURNED\tDURATION\tERROR")
	for _, st := range result.Providers {
		if !st.Invoked {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\n",
			st.Provider, st.AssetClass, st.Requested, st.Returned,
			st.Duration.Round(time.Millisecond), st.Error)
	}
	_ = w.Flush()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	fmt.Println()
	w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	for _, sym := range result.Prices.Symbols() {
		fmt.Fprintf(w, "%s\t%s\t\n", sym, utils.FormatMoney(result.Prices[sym], app.cfg.CoinGecko.VsCurrency))
	}
	_ = w.Flush()

	if result.Stale {
		fmt.Printf("\nAll providers failed; showing last-known prices from %s\n", formatTime(result.UpdatedAt))
	}
	if len(result.Missing) > 0 {
		fmt.Printf("\nNo fresh price for: %s\n", strings.Join(result.Missing, ", "))
	}
	return subcommands.ExitSuccess
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
