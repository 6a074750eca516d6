package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/amirasaad/fxengine/infra/initializer"
	"github.com/amirasaad/fxengine/pkg/app"
	"github.com/amirasaad/fxengine/pkg/config"
	"github.com/amirasaad/fxengine/pkg/middleware"
	"github.com/amirasaad/fxengine/pkg/money"
)

const usage = `Usage: cli <command> [arguments]
Commands:
  convert <amount> <from> <to>
  format <amount> <currency> [locale]
  tax <amount> <currency> <jurisdiction> [product_type]
  checkout <amount> <currency> [region]
  arbitrage [FROM:TO ...]
  token <subject>`

var errUsage = errors.New("invalid arguments")

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, usage)
		} else {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) < 1 {
		return errUsage
	}
	cfg, err := config.Load(config.EnvFile())
	if err != nil {
		return err
	}
	if args[0] == "token" {
		if len(args) < 2 {
			return errUsage
		}
		token, err := middleware.IssueToken(cfg.Auth.Jwt.Secret, args[1], cfg.Auth.Jwt.Expiry)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, token)
		return err
	}

	deps, err := initializer.InitializeDependencies(cfg)
	if err != nil {
		return err
	}
	defer deps.Close() //nolint:errcheck
	a, err := app.New(deps, cfg)
	if err != nil {
		return err
	}
	return dispatch(ctx, a, args, out)
}

func dispatch(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "convert":
		if len(rest) < 3 {
			return errUsage
		}
		amount, err := money.ParseAmount(rest[0])
		if err != nil {
			return err
		}
		res, err := a.ConvertCurrency(ctx, amount, rest[1], rest[2])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s %s = %s (rate %s via %s, fee %s)\n",
			amount, res.From, res.ConvertedAmount, res.RateUsed, res.SourceID, res.FeeApplied)
	case "format":
		if len(rest) < 2 {
			return errUsage
		}
		amount, err := money.ParseAmount(rest[0])
		if err != nil {
			return err
		}
		var loc string
		if len(rest) > 2 {
			loc = rest[2]
		}
		p, err := a.FormatPrice(amount, rest[1], loc)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, p.Formatted)
	case "tax":
		if len(rest) < 3 {
			return errUsage
		}
		amount, err := money.ParseAmount(rest[0])
		if err != nil {
			return err
		}
		var product string
		if len(rest) > 3 {
			product = rest[3]
		}
		res, err := a.CalculateTax(ctx, amount, rest[1], rest[2], product)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "tax %s (%s%%), total %s\n", res.TaxAmount, res.TaxRate, res.TotalAmount)
	case "checkout":
		if len(rest) < 2 {
			return errUsage
		}
		amount, err := money.ParseAmount(rest[0])
		if err != nil {
			return err
		}
		var region string
		if len(rest) > 2 {
			region = rest[2]
		}
		opts, err := a.GetCheckoutOptions(ctx, amount, rest[1], region)
		if err != nil {
			return err
		}
		for _, o := range opts.Options {
			marker := " "
			if o.Currency == opts.Recommended {
				marker = "*"
			}
			fmt.Fprintf(out, "%s %-5s %s\n", marker, o.Currency, o.Formatted)
		}
		for _, s := range opts.Skipped {
			fmt.Fprintf(out, "  %-5s skipped: %s\n", s.Currency, s.Reason)
		}
	case "arbitrage":
		report, err := a.DetectArbitrage(ctx, rest)
		if err != nil {
			return err
		}
		for _, o := range report.Opportunities {
			fmt.Fprintf(out, "%-9s cross %s profit %s%% risk %s\n",
				o.Pair, o.CrossRate.StringFixed(6), o.ProfitPotentialPct.StringFixed(4), o.RiskLevel)
		}
		for _, s := range report.Skipped {
			fmt.Fprintf(out, "%-9s skipped: %s\n", s.Pair, s.Reason)
		}
		fmt.Fprintf(out, "aggregate risk: %s\n", strings.ToUpper(string(report.AggregateRisk)))
	default:
		return fmt.Errorf("unknown command %q: %w", cmd, errUsage)
	}
	return nil
}
