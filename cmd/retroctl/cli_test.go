package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/xuri/excelize/v2"

	"github.com/tanre/retro-engine/internal/model"
	"github.com/tanre/retro-engine/internal/share"
	"github.com/tanre/retro-engine/internal/store"
	"github.com/tanre/retro-engine/internal/underwriting"
)

func testCmd(t *testing.T) (*cobra.Command, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	cmd.SetContext(context.Background())
	return cmd, &buf
}

// setFlag assigns a package-level flag variable for one test.
func setFlag[T any](t *testing.T, p *T, v T) {
	t.Helper()
	old := *p
	*p = v
	t.Cleanup(func() { *p = old })
}

func TestClaimCmd(t *testing.T) {
	setFlag(t, &outputJSON, true)
	setFlag(t, &claimReserve, "25000000")
	setFlag(t, &claimSalvage, "2000000 TZS")
	setFlag(t, &claimContracts, []string{"TR/FIRE/2024/01:25:15", "TR/FIRE/2024/02:20%:10"})

	cmd, out := testCmd(t)
	if err := runClaim(cmd, nil); err != nil {
		t.Fatalf("runClaim failed: %v", err)
	}

	var got model.ClaimFinancialSummary
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out.String())
	}
	if !got.Retention.Equal(decimal.NewFromInt(8_797_500)) {
		t.Errorf("retention = %s, want 8797500", got.Retention)
	}
	if !got.RetroPct.Equal(decimal.NewFromInt(15)) {
		t.Errorf("retro = %s, want 15 (first contract)", got.RetroPct)
	}
}

func TestClaimCmd_Table(t *testing.T) {
	setFlag(t, &outputJSON, false)
	setFlag(t, &claimReserve, "100")
	setFlag(t, &claimSalvage, "0")
	setFlag(t, &claimContracts, []string{"C-1:50:10"})

	cmd, out := testCmd(t)
	if err := runClaim(cmd, nil); err != nil {
		t.Fatalf("runClaim failed: %v", err)
	}
	if !strings.Contains(out.String(), "TANRE retention") || !strings.Contains(out.String(), "45.00") {
		t.Errorf("unexpected table:\n%s", out.String())
	}
}

func TestClaimCmd_BadContract(t *testing.T) {
	setFlag(t, &claimContracts, []string{"C-1:50"})

	cmd, _ := testCmd(t)
	if err := runClaim(cmd, nil); err == nil {
		t.Fatal("expected error for malformed --contract")
	}
}

func setLocalAnalysis(t *testing.T) {
	t.Helper()
	setFlag(t, &outputJSON, true)
	setFlag(t, &analyzeServer, "")
	setFlag(t, &analyzeKind, "facultative")
	setFlag(t, &analyzeLOB, "FIRE")
	setFlag(t, &analyzeCurrency, "USD")
	setFlag(t, &analyzeRate, "2500")
	setFlag(t, &analyzeSum, "10000000")
	setFlag(t, &analyzePremium, "50000")
	setFlag(t, &analyzeOffered, "100")
	setFlag(t, &analyzeAccepted, "50")
	setFlag(t, &analyzePartition, "warn")
	setFlag(t, &analyzeRetention, "60")
	setFlag(t, &analyzeLayers, []string{"surplus:40", "facRetro:0"})
}

func TestAnalyzeCmd_Local(t *testing.T) {
	setLocalAnalysis(t)

	cmd, out := testCmd(t)
	if err := runAnalyze(cmd, nil); err != nil {
		t.Fatalf("runAnalyze failed: %v", err)
	}

	var got model.AnalysisResponse
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out.String())
	}
	if got.CalculationStatus != model.StatusSuccess {
		t.Fatalf("status = %s (%s)", got.CalculationStatus, got.Message)
	}
	if !got.ExposureAccepted.Equal(decimal.NewFromInt(12_500_000_000)) {
		t.Errorf("exposure accepted = %s", got.ExposureAccepted)
	}
	if got.SurplusExposure == nil || !got.SurplusExposure.Equal(decimal.NewFromInt(5_000_000_000)) {
		t.Errorf("surplus exposure = %v", got.SurplusExposure)
	}
}

func TestAnalyzeCmd_LocalPartitionReject(t *testing.T) {
	setLocalAnalysis(t)
	setFlag(t, &analyzePartition, "reject")
	setFlag(t, &analyzeRetention, "70")

	cmd, out := testCmd(t)
	if err := runAnalyze(cmd, nil); err != nil {
		t.Fatalf("runAnalyze failed: %v", err)
	}
	if !strings.Contains(out.String(), `"calculationStatus": "ERROR"`) {
		t.Errorf("expected ERROR result, got:\n%s", out.String())
	}
}

func TestAnalyzeCmd_LocalRequiresRate(t *testing.T) {
	setLocalAnalysis(t)
	setFlag(t, &analyzeRate, "")

	cmd, _ := testCmd(t)
	if err := runAnalyze(cmd, nil); err == nil {
		t.Fatal("expected error without --rate for USD")
	}
}

func TestAnalyzeCmd_Server(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	if err := st.UpsertRetroType(ctx, &model.RetroType{ID: 1, Name: "Fire Facultative", Kind: model.KindFacultative, LineOfBusiness: "FIRE"}); err != nil {
		t.Fatal(err)
	}
	if err := st.UpsertRetroProgram(ctx, &model.RetroProgram{
		RetroTypeID:  1,
		Year:         time.Now().Year(),
		RetentionPct: decimal.NewFromInt(60),
		SurplusPct:   decimal.NewFromInt(40),
	}); err != nil {
		t.Fatal(err)
	}

	r := chi.NewRouter()
	r.Route("/api/v1", underwriting.NewService(st, share.DefaultPolicy(), nil).Routes)
	srv := httptest.NewServer(r)
	defer srv.Close()

	setLocalAnalysis(t)
	setFlag(t, &outputJSON, false)
	setFlag(t, &analyzeServer, srv.URL)
	setFlag(t, &analyzeRetroType, 1)
	setFlag(t, &analyzeYear, 0)

	cmd, out := testCmd(t)
	if err := runAnalyze(cmd, nil); err != nil {
		t.Fatalf("runAnalyze failed: %v", err)
	}
	for _, want := range []string{"Status: SUCCESS", "12500000000.00", "surplus (40%)"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestAnalyzeCmd_ServerDown(t *testing.T) {
	srv := httptest.NewServer(nil)
	url := srv.URL
	srv.Close()

	setLocalAnalysis(t)
	setFlag(t, &analyzeServer, url)
	setFlag(t, &timeout, time.Second)

	cmd, _ := testCmd(t)
	err := runAnalyze(cmd, nil)
	if err == nil || !strings.Contains(err.Error(), "analysis server unavailable") {
		t.Fatalf("expected backend failure, got %v", err)
	}
}

func writeClaimsJSON(t *testing.T) string {
	t.Helper()
	claims := []model.RegisteredClaim{{
		ClaimID:         "CLM-2024-001",
		DateRegistered:  time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC),
		DateOfLoss:      time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
		DateReceived:    time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		OriginalInsured: "Kilimanjaro Textiles",
		CauseOfLoss:     "Fire",
		CurrentReserve:  decimal.NewFromInt(25_000_000),
		Salvage:         decimal.NewFromInt(2_000_000),
		Summary: share.CalculateClaim(model.ClaimInput{
			CurrentReserve:    model.MonetaryAmount{Value: decimal.NewFromInt(25_000_000)},
			Salvage:           model.MonetaryAmount{Value: decimal.NewFromInt(2_000_000)},
			SelectedContracts: []model.ContractShare{{ShareSignedPct: decimal.NewFromInt(45), RetroPct: decimal.NewFromInt(15)}},
		}),
		Contracts: []model.ContractShare{{ContractNumber: "TR/FIRE/2024/01", ShareSignedPct: decimal.NewFromInt(45), RetroPct: decimal.NewFromInt(15)}},
	}}
	data, err := json.Marshal(claims)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "claims.json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReportCmd_CSVToStdout(t *testing.T) {
	setFlag(t, &reportOut, "")

	cmd, out := testCmd(t)
	if err := runReport(cmd, []string{writeClaimsJSON(t)}); err != nil {
		t.Fatalf("runReport failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header and one row, got %d lines:\n%s", len(lines), out.String())
	}
	if !strings.HasPrefix(lines[1], "CLM-2024-001,20/03/2024,02/03/2024,15/03/2024,") {
		t.Errorf("unexpected row: %s", lines[1])
	}
}

func TestReportCmd_XLSX(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "register.xlsx")
	setFlag(t, &reportOut, dest)

	cmd, out := testCmd(t)
	if err := runReport(cmd, []string{writeClaimsJSON(t)}); err != nil {
		t.Fatalf("runReport failed: %v", err)
	}
	if !strings.Contains(out.String(), "wrote 1 claims") {
		t.Errorf("unexpected output: %s", out.String())
	}

	f, err := excelize.OpenFile(dest)
	if err != nil {
		t.Fatalf("open xlsx: %v", err)
	}
	defer f.Close()
	id, err := f.GetCellValue("claims", "A2")
	if err != nil || id != "CLM-2024-001" {
		t.Errorf("A2 = %q, %v", id, err)
	}
}

func TestReportCmd_UnsupportedFormat(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "register.pdf")
	setFlag(t, &reportOut, dest)

	cmd, _ := testCmd(t)
	if err := runReport(cmd, []string{writeClaimsJSON(t)}); err == nil {
		t.Fatal("expected error for .pdf output")
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Errorf("%s should not have been created, stat: %v", dest, err)
	}
}
