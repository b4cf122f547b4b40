// Command retroctl runs the retro engine calculations from the shell: claim
// net/retention figures, underwriting analyses (locally or against a running
// server) and claims register exports.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	outputJSON bool
	timeout    time.Duration
)

var rootCmd = &cobra.Command{
	Use:           "retroctl",
	Short:         "Retrocession and claims calculations for TANRE underwriters",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Print results as JSON")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Server request timeout")

	rootCmd.AddCommand(claimCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(reportCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
