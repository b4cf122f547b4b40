package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tanre/retro-engine/internal/model"
	"github.com/tanre/retro-engine/internal/report"
)

var reportOut string

var reportCmd = &cobra.Command{
	Use:   "report CLAIMS_FILE",
	Short: "Export a claims register to CSV or XLSX",
	Long: `Reads registered claims, either the JSON array returned by
GET /api/v1/claims or a claims register CSV, and writes the register.

The output format follows the --out extension (.csv or .xlsx). Without
--out the CSV register is written to stdout.`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVarP(&reportOut, "out", "o", "", "Output file (.csv or .xlsx)")
}

func runReport(cmd *cobra.Command, args []string) error {
	claims, err := readClaims(args[0])
	if err != nil {
		return err
	}

	if reportOut == "" {
		return report.WriteClaimsCSV(cmd.OutOrStdout(), claims)
	}

	ext := strings.ToLower(filepath.Ext(reportOut))
	if ext != ".csv" && ext != ".xlsx" {
		return fmt.Errorf("unsupported report format %q", filepath.Ext(reportOut))
	}

	f, err := os.Create(reportOut)
	if err != nil {
		return fmt.Errorf("create %s: %w", reportOut, err)
	}
	defer f.Close()

	if ext == ".csv" {
		err = report.WriteClaimsCSV(f, claims)
	} else {
		err = report.WriteClaimsXLSX(f, claims, report.Summarize(claims))
	}
	if err != nil {
		return err
	}

	totals := report.Summarize(claims)
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d claims to %s (retention %s)\n",
		totals.ClaimCount, reportOut, totals.TotalRetention.StringFixed(2))
	return f.Close()
}

func readClaims(path string) ([]model.RegisteredClaim, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return report.ParseClaimsCSV(f)
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	var claims []model.RegisteredClaim
	if err := json.Unmarshal(data, &claims); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return claims, nil
}
