package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tanre/retro-engine/internal/model"
	"github.com/tanre/retro-engine/internal/numeric"
	"github.com/tanre/retro-engine/internal/share"
)

var (
	claimReserve   string
	claimSalvage   string
	claimContracts []string
)

var claimCmd = &cobra.Command{
	Use:   "claim",
	Short: "Compute a claim's net amount, TANRE share, retro and retention",
	Long: `Computes the financial summary of a claim registration.

Each --contract is NUMBER:SHARE_SIGNED:RETRO, e.g. TR/FIRE/2024/01:25:15.
The retro percentage of the first contract applies to the whole claim.
Numbers are read leniently: the leading number is taken and anything after
it ignored, so "15%" reads as 15 and "abc" as 0.`,
	Args: cobra.NoArgs,
	RunE: runClaim,
}

func init() {
	claimCmd.Flags().StringVar(&claimReserve, "reserve", "0", "Current reserve (TZS)")
	claimCmd.Flags().StringVar(&claimSalvage, "salvage", "0", "Salvage (TZS)")
	claimCmd.Flags().StringArrayVar(&claimContracts, "contract", nil, "Selected contract NUMBER:SHARE:RETRO (repeatable)")
}

func runClaim(cmd *cobra.Command, args []string) error {
	in := model.ClaimInput{
		CurrentReserve: model.MonetaryAmount{Value: numeric.Parse(claimReserve), CurrencyCode: model.BaseCurrency},
		Salvage:        model.MonetaryAmount{Value: numeric.Parse(claimSalvage), CurrencyCode: model.BaseCurrency},
	}
	for _, raw := range claimContracts {
		c, err := parseContract(raw)
		if err != nil {
			return err
		}
		in.SelectedContracts = append(in.SelectedContracts, c)
	}

	summary := share.CalculateClaim(in)
	if outputJSON {
		return printJSON(cmd.OutOrStdout(), summary)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "Net amount\t%s\t\n", summary.NetAmount.StringFixed(2))
	fmt.Fprintf(tw, "Total share signed %%\t%s\t\n", summary.TotalShareSignedPct.StringFixed(2))
	fmt.Fprintf(tw, "TANRE share (TZS)\t%s\t\n", summary.CedantShareAmount.StringFixed(2))
	fmt.Fprintf(tw, "Retro %%\t%s\t\n", summary.RetroPct.StringFixed(2))
	fmt.Fprintf(tw, "Retro amount\t%s\t\n", summary.RetroAmount.StringFixed(2))
	fmt.Fprintf(tw, "TANRE retention\t%s\t\n", summary.Retention.StringFixed(2))
	return tw.Flush()
}

func parseContract(raw string) (model.ContractShare, error) {
	parts := strings.Split(raw, ":")
	if len(parts) != 3 {
		return model.ContractShare{}, fmt.Errorf("contract %q: want NUMBER:SHARE:RETRO", raw)
	}
	return model.ContractShare{
		ContractNumber: strings.TrimSpace(parts[0]),
		ShareSignedPct: numeric.Parse(parts[1]),
		RetroPct:       numeric.Parse(parts[2]),
	}, nil
}
