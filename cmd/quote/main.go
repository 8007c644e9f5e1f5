package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"StockDash/internal/di"
	"StockDash/internal/domain/models"
	"StockDash/pkg/config"
	xutil "StockDash/pkg/util"

	"github.com/olekukonko/tablewriter"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	symbol := flag.String("symbol", "", "ticker symbol (defaults to dashboard.default_symbol)")
	start := flag.String("start", "", "first day, YYYY-MM-DD, RFC3339 or unix seconds (defaults to one year before end)")
	end := flag.String("end", "", "last day, same formats as -start (defaults to yesterday)")
	flag.Parse()

	defStart, defEnd := xutil.DefaultWindow(time.Now())
	from, err := dayFlag("start", *start, defStart)
	if err != nil {
		usage(err)
	}
	to, err := dayFlag("end", *end, defEnd)
	if err != nil {
		usage(err)
	}

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	series, err := di.InitializeSeries(cfg)
	if err != nil {
		log.Fatalf("initialization failed: %v", err)
	}

	sym := *symbol
	if sym == "" {
		sym = cfg.Dashboard.DefaultSymbol
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Dashboard.RequestTimeout)
	defer cancel()

	s, err := series.FetchAndEnrich(ctx, sym, from, to)
	if err != nil {
		log.Printf("fetch %s: %v", sym, err)
		os.Exit(1)
	}
	render(s)
}

// dayFlag parses a date flag. Empty means def; anything unparseable is an error.
func dayFlag(name, s string, def time.Time) (time.Time, error) {
	if s == "" {
		return def, nil
	}
	t, ok := xutil.ParseTime(s)
	if !ok {
		return time.Time{}, fmt.Errorf("invalid -%s %q: want YYYY-MM-DD, RFC3339 or unix seconds", name, s)
	}
	return xutil.TruncateDay(t.UTC()), nil
}

func usage(err error) {
	fmt.Fprintln(os.Stderr, err)
	flag.Usage()
	os.Exit(2)
}

func render(s *models.EnrichedSeries) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Date", "Open", "High", "Low", "Close", "Adj Close", "Trend"})
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	for i, b := range s.Bars {
		table.Append([]string{
			xutil.FormatDate(b.Date),
			fmt.Sprintf("%.2f", b.Open),
			fmt.Sprintf("%.2f", b.High),
			fmt.Sprintf("%.2f", b.Low),
			fmt.Sprintf("%.2f", b.Close),
			fmt.Sprintf("%.2f", b.AdjClose),
			fmt.Sprintf("%.2f", s.Trend[i]),
		})
	}
	table.SetFooter([]string{s.Symbol, "", "", "", "", "bars", fmt.Sprintf("%d", s.Len())})
	table.Render()
}
