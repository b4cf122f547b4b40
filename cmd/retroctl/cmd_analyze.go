package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/tanre/retro-engine/internal/analysisclient"
	"github.com/tanre/retro-engine/internal/model"
	"github.com/tanre/retro-engine/internal/numeric"
	"github.com/tanre/retro-engine/internal/share"
)

var (
	analyzeServer    string
	analyzeRetroType int
	analyzeYear      int
	analyzeCurrency  string
	analyzeRate      string
	analyzeSum       string
	analyzePremium   string
	analyzeOffered   string
	analyzeAccepted  string
	analyzePartition string

	// Local mode: program percentages given on the command line.
	analyzeKind      string
	analyzeLOB       string
	analyzeRetention string
	analyzeLayers    []string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run an underwriting share and retro analysis",
	Long: `Runs the underwriting analysis of one offer line.

With --server the retro type's program is looked up by a running retro
engine. Without it the program is given on the command line:

  retroctl analyze --kind facultative --line-of-business FIRE \
    --retention 60 --layer surplus:40 \
    --currency USD --rate 2500 --sum-insured 10000000 --premium 50000 \
    --offered 100 --accepted 50`,
	Args: cobra.NoArgs,
	RunE: runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVar(&analyzeServer, "server", "", "Base URL of a retro engine, e.g. http://localhost:8080")
	f.IntVar(&analyzeRetroType, "retro-type", 0, "Retro type id (server mode)")
	f.IntVar(&analyzeYear, "year", 0, "Underwriting year (server mode, default current year)")
	f.StringVar(&analyzeCurrency, "currency", model.BaseCurrency, "Original currency")
	f.StringVar(&analyzeRate, "rate", "", "Exchange rate into TZS (default: stored rate, or 1 for TZS)")
	f.StringVar(&analyzeSum, "sum-insured", "0", "Sum insured in original currency")
	f.StringVar(&analyzePremium, "premium", "0", "Premium in original currency")
	f.StringVar(&analyzeOffered, "offered", "100", "Share offered %")
	f.StringVar(&analyzeAccepted, "accepted", "0", "Share accepted %")
	f.StringVar(&analyzePartition, "partition", string(share.PartitionWarn), "Partition policy: ignore, warn or reject (local mode)")
	f.StringVar(&analyzeKind, "kind", string(model.KindFacultative), "Retro kind: facultative or policy_cession (local mode)")
	f.StringVar(&analyzeLOB, "line-of-business", "", "Line of business (local mode)")
	f.StringVar(&analyzeRetention, "retention", "0", "Retention % (local mode)")
	f.StringArrayVar(&analyzeLayers, "layer", nil, "Retro layer NAME:PCT, e.g. surplus:40 (local mode, repeatable)")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	var resp model.AnalysisResponse
	if analyzeServer != "" {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		var err error
		resp, err = analysisclient.New(analyzeServer, timeout).Analyze(ctx, model.AnalysisRequest{
			RetroTypeID:      analyzeRetroType,
			Year:             analyzeYear,
			Currency:         analyzeCurrency,
			ExchangeRate:     numeric.Parse(analyzeRate),
			SumInsuredOs:     numeric.Parse(analyzeSum),
			PremiumOs:        numeric.Parse(analyzePremium),
			ShareOfferedPct:  numeric.Parse(analyzeOffered),
			ShareAcceptedPct: numeric.Parse(analyzeAccepted),
		})
		if errors.Is(err, analysisclient.ErrBackendFailure) {
			return fmt.Errorf("analysis server unavailable: %w", err)
		}
		if err != nil {
			return err
		}
	} else {
		result, err := analyzeLocal()
		if err != nil {
			return err
		}
		resp = model.NewAnalysisResponse(result)
	}

	if outputJSON {
		return printJSON(cmd.OutOrStdout(), resp)
	}
	return printAnalysis(cmd, resp)
}

func analyzeLocal() (model.CalculationResult, error) {
	policy := share.DefaultPolicy()
	mode, err := share.ParsePartitionMode(analyzePartition)
	if err != nil {
		return model.CalculationResult{}, err
	}
	policy.Partition = mode

	kind := model.RetroKind(strings.ToUpper(analyzeKind))
	if !kind.Valid() {
		return model.CalculationResult{}, fmt.Errorf("unknown retro kind %q", analyzeKind)
	}

	currency := strings.ToUpper(strings.TrimSpace(analyzeCurrency))
	rate := model.IdentityRate()
	if currency != model.BaseCurrency {
		if analyzeRate == "" {
			return model.CalculationResult{}, fmt.Errorf("--rate is required for %s in local mode", currency)
		}
		rate = model.ExchangeRate{
			FromCurrency: currency,
			ToCurrency:   model.BaseCurrency,
			Rate:         numeric.Parse(analyzeRate),
			UpdatedAt:    time.Now().UTC(),
		}
	}

	layers, err := parseLayers(analyzeLayers)
	if err != nil {
		return model.CalculationResult{}, err
	}
	in := model.OfferInput{
		Kind:             kind,
		LineOfBusiness:   analyzeLOB,
		SumInsured:       model.MonetaryAmount{Value: numeric.Parse(analyzeSum), CurrencyCode: currency},
		Premium:          model.MonetaryAmount{Value: numeric.Parse(analyzePremium), CurrencyCode: currency},
		ShareOfferedPct:  numeric.Parse(analyzeOffered),
		ShareAcceptedPct: numeric.Parse(analyzeAccepted),
		RetentionPct:     numeric.Parse(analyzeRetention),
		Layers:           layers,
	}
	return share.Calculate(in, rate, policy), nil
}

func parseLayers(raws []string) ([]model.LayerShare, error) {
	layers := make([]model.LayerShare, 0, len(raws))
	for _, raw := range raws {
		name, pct, ok := strings.Cut(raw, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("layer %q: want NAME:PCT", raw)
		}
		layers = append(layers, model.LayerShare{Name: strings.TrimSpace(name), Pct: numeric.Parse(pct)})
	}
	return layers, nil
}

func printAnalysis(cmd *cobra.Command, r model.AnalysisResponse) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Status: %s\n", r.CalculationStatus)
	if r.Message != "" {
		fmt.Fprintf(out, "Message: %s\n", r.Message)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "\tExposure (TZS)\tPremium (TZS)\t")
	row := func(label string, exposure, premium decimal.Decimal) {
		fmt.Fprintf(tw, "%s\t%s\t%s\t\n", label, exposure.StringFixed(2), premium.StringFixed(2))
	}
	row("Original", r.SumInsuredTzs, r.PremiumTzs)
	row("Offered", r.ExposureOffered, r.PremiumOffered)
	row("Accepted", r.ExposureAccepted, r.PremiumAccepted)
	row("Retention", r.RetentionExposure, r.RetentionPremium)
	for _, l := range r.LayerBreakdown {
		row(fmt.Sprintf("%s (%s%%)", l.Name, l.Pct.String()), l.Exposure, l.Premium)
	}
	row("Total", r.TotalExposure, r.TotalPremium)
	return tw.Flush()
}
