// Package report renders the claims register in the export formats the
// back office consumes: CSV (exact legacy layout) and XLSX.
package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tanre/retro-engine/internal/model"
)

const (
	dateLayout    = "02/01/2006"
	isoDateLayout = "2006-01-02"
)

// ClaimsHeader is the header row of the claims register CSV.
var ClaimsHeader = []string{
	"Claim ID",
	"Date Registered",
	"Date of Loss",
	"Date Received",
	"Original Insured",
	"Cause of Loss",
	"Current Reserve (TZS)",
	"Salvage (TZS)",
	"Net Amount (TZS)",
	"Total Share Signed (%)",
	"TANRE TZS",
	"Retro Amount",
	"TANRE Retention",
	"Contract Count",
	"Contracts",
}

var ErrInvalidReport = errors.New("report: malformed claims register")

// FormatDate renders t as DD/MM/YYYY, or "" for the zero time.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

// ConvertDateToISO turns a DD/MM/YYYY date into YYYY-MM-DD.
func ConvertDateToISO(date string) (string, error) {
	if date == "" {
		return "", nil
	}
	t, err := time.Parse(dateLayout, date)
	if err != nil {
		return "", fmt.Errorf("%w: date %q is not DD/MM/YYYY", ErrInvalidReport, date)
	}
	return t.Format(isoDateLayout), nil
}

// WriteClaimsCSV writes the claims register. Free-text columns are always
// double-quoted with embedded quotes doubled.
func WriteClaimsCSV(w io.Writer, claims []model.RegisteredClaim) error {
	if _, err := io.WriteString(w, strings.Join(ClaimsHeader, ",")+"\n"); err != nil {
		return err
	}
	for _, c := range claims {
		row := []string{
			c.ClaimID,
			FormatDate(c.DateRegistered),
			FormatDate(c.DateOfLoss),
			FormatDate(c.DateReceived),
			quote(c.OriginalInsured),
			quote(c.CauseOfLoss),
			c.CurrentReserve.String(),
			c.Salvage.String(),
			c.Summary.NetAmount.String(),
			c.Summary.TotalShareSignedPct.StringFixed(2),
			c.Summary.CedantShareAmount.String(),
			c.Summary.RetroAmount.String(),
			c.Summary.Retention.String(),
			strconv.Itoa(len(c.Contracts)),
			quote(contractList(c.Contracts)),
		}
		if _, err := io.WriteString(w, strings.Join(row, ",")+"\n"); err != nil {
			return err
		}
	}
	return nil
}

// ParseClaimsCSV reads a claims register written by WriteClaimsCSV. Contract
// snapshots only carry their display numbers.
func ParseClaimsCSV(r io.Reader) ([]model.RegisteredClaim, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(ClaimsHeader)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidReport, err)
	}
	if strings.Join(header, ",") != strings.Join(ClaimsHeader, ",") {
		return nil, fmt.Errorf("%w: unexpected header", ErrInvalidReport)
	}

	var claims []model.RegisteredClaim
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidReport, err)
		}
		c, err := parseClaimRow(rec)
		if err != nil {
			return nil, err
		}
		claims = append(claims, c)
	}
	return claims, nil
}

func parseClaimRow(rec []string) (model.RegisteredClaim, error) {
	var c model.RegisteredClaim
	var err error

	c.ClaimID = rec[0]
	dates := []*time.Time{&c.DateRegistered, &c.DateOfLoss, &c.DateReceived}
	for i, dst := range dates {
		if *dst, err = parseDate(rec[1+i]); err != nil {
			return c, err
		}
	}
	c.OriginalInsured = rec[4]
	c.CauseOfLoss = rec[5]

	amounts := []*decimal.Decimal{
		&c.CurrentReserve,
		&c.Salvage,
		&c.Summary.NetAmount,
		&c.Summary.TotalShareSignedPct,
		&c.Summary.CedantShareAmount,
		&c.Summary.RetroAmount,
		&c.Summary.Retention,
	}
	for i, dst := range amounts {
		v, err := decimal.NewFromString(rec[6+i])
		if err != nil {
			return c, fmt.Errorf("%w: %s column %q: %v", ErrInvalidReport, c.ClaimID, ClaimsHeader[6+i], err)
		}
		*dst = v
	}

	count, err := strconv.Atoi(rec[13])
	if err != nil {
		return c, fmt.Errorf("%w: %s contract count %q", ErrInvalidReport, c.ClaimID, rec[13])
	}
	if rec[14] != "" {
		for _, number := range strings.Split(rec[14], ", ") {
			c.Contracts = append(c.Contracts, model.ContractShare{ContractNumber: number})
		}
	}
	if len(c.Contracts) != count {
		return c, fmt.Errorf("%w: %s lists %d contracts, count says %d", ErrInvalidReport, c.ClaimID, len(c.Contracts), count)
	}
	return c, nil
}

func parseDate(s string) (time.Time, error) {
	iso, err := ConvertDateToISO(s)
	if err != nil || iso == "" {
		return time.Time{}, err
	}
	return time.Parse(isoDateLayout, iso)
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func contractList(contracts []model.ContractShare) string {
	names := make([]string, 0, len(contracts))
	for _, c := range contracts {
		name := c.ContractNumber
		if name == "" {
			name = c.ContractID
		}
		names = append(names, name)
	}
	return strings.Join(names, ", ")
}
