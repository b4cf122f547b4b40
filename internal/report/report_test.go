package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/tanre/retro-engine/internal/model"
	"github.com/tanre/retro-engine/internal/share"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func fixtureClaim() model.RegisteredClaim {
	contracts := []model.ContractShare{
		{ContractID: "c-1", ContractNumber: "TR/FIRE/2024/01", ShareSignedPct: d("25"), RetroPct: d("15")},
		{ContractID: "c-2", ContractNumber: "TR/FIRE/2024/02", ShareSignedPct: d("20"), RetroPct: d("10")},
	}
	summary := share.CalculateClaim(model.ClaimInput{
		CurrentReserve:    model.MonetaryAmount{Value: d("25000000"), CurrencyCode: "TZS"},
		Salvage:           model.MonetaryAmount{Value: d("2000000"), CurrencyCode: "TZS"},
		SelectedContracts: contracts,
	})
	return model.RegisteredClaim{
		ClaimID:         "CLM-2024-001",
		DateRegistered:  time.Date(2024, 3, 20, 9, 30, 0, 0, time.UTC),
		DateOfLoss:      time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
		DateReceived:    time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		OriginalInsured: `Kilimanjaro "KTL" Textiles, Ltd`,
		CauseOfLoss:     "Fire in warehouse",
		CurrentReserve:  d("25000000"),
		Salvage:         d("2000000"),
		Summary:         summary,
		Contracts:       contracts,
	}
}

func TestWriteClaimsCSV_Format(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteClaimsCSV(&buf, []model.RegisteredClaim{fixtureClaim()}))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Claim ID,Date Registered,Date of Loss,Date Received,Original Insured,Cause of Loss,"+
		"Current Reserve (TZS),Salvage (TZS),Net Amount (TZS),Total Share Signed (%),TANRE TZS,Retro Amount,"+
		"TANRE Retention,Contract Count,Contracts", lines[0])
	assert.Equal(t, `CLM-2024-001,20/03/2024,02/03/2024,15/03/2024,"Kilimanjaro ""KTL"" Textiles, Ltd","Fire in warehouse",`+
		`25000000,2000000,23000000,45.00,10350000,1552500,8797500,2,"TR/FIRE/2024/01, TR/FIRE/2024/02"`, lines[1])
}

func TestClaimsCSV_RoundTrip(t *testing.T) {
	original := fixtureClaim()

	var buf bytes.Buffer
	require.NoError(t, WriteClaimsCSV(&buf, []model.RegisteredClaim{original}))

	parsed, err := ParseClaimsCSV(&buf)
	require.NoError(t, err)
	require.Len(t, parsed, 1)
	got := parsed[0]

	assert.Equal(t, original.ClaimID, got.ClaimID)
	assert.Equal(t, FormatDate(original.DateRegistered), FormatDate(got.DateRegistered))
	assert.True(t, original.DateOfLoss.Equal(got.DateOfLoss))
	assert.True(t, original.DateReceived.Equal(got.DateReceived))
	assert.Equal(t, original.OriginalInsured, got.OriginalInsured)
	assert.Equal(t, original.CauseOfLoss, got.CauseOfLoss)
	assert.True(t, original.CurrentReserve.Equal(got.CurrentReserve))
	assert.True(t, original.Salvage.Equal(got.Salvage))
	assert.True(t, original.Summary.NetAmount.Equal(got.Summary.NetAmount))
	assert.True(t, original.Summary.TotalShareSignedPct.Equal(got.Summary.TotalShareSignedPct))
	assert.True(t, original.Summary.CedantShareAmount.Equal(got.Summary.CedantShareAmount))
	assert.True(t, original.Summary.RetroAmount.Equal(got.Summary.RetroAmount))
	assert.True(t, original.Summary.Retention.Equal(got.Summary.Retention))
	require.Len(t, got.Contracts, 2)
	assert.Equal(t, "TR/FIRE/2024/02", got.Contracts[1].ContractNumber)
}

func TestParseClaimsCSV_RejectsForeignHeader(t *testing.T) {
	_, err := ParseClaimsCSV(strings.NewReader("a,b,c,d,e,f,g,h,i,j,k,l,m,n,o\n"))
	assert.ErrorIs(t, err, ErrInvalidReport)
}

func TestConvertDateToISO(t *testing.T) {
	iso, err := ConvertDateToISO("05/11/2023")
	require.NoError(t, err)
	assert.Equal(t, "2023-11-05", iso)

	iso, err = ConvertDateToISO("")
	require.NoError(t, err)
	assert.Empty(t, iso)

	_, err = ConvertDateToISO("2023-11-05")
	assert.ErrorIs(t, err, ErrInvalidReport)
}

func TestSummarize(t *testing.T) {
	c := fixtureClaim()
	totals := Summarize([]model.RegisteredClaim{c, c})

	assert.Equal(t, 2, totals.ClaimCount)
	assert.True(t, totals.TotalNet.Equal(d("46000000")))
	assert.True(t, totals.TotalRetention.Equal(d("17595000")))
}

func TestWriteClaimsXLSX(t *testing.T) {
	claims := []model.RegisteredClaim{fixtureClaim()}

	var buf bytes.Buffer
	require.NoError(t, WriteClaimsXLSX(&buf, claims, Summarize(claims)))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	id, err := f.GetCellValue("claims", "A2")
	require.NoError(t, err)
	assert.Equal(t, "CLM-2024-001", id)

	header, err := f.GetCellValue("claims", "O1")
	require.NoError(t, err)
	assert.Equal(t, "Contracts", header)

	count, err := f.GetCellValue("summary", "B3")
	require.NoError(t, err)
	assert.Equal(t, "1", count)
}
