package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ContractShare is a treaty contract attached to a claim together with the
// share signed on it and its retrocession percentage.
type ContractShare struct {
	ContractID     string          `json:"contractId"`
	ContractNumber string          `json:"contractNumber"`
	ShareSignedPct decimal.Decimal `json:"shareSigned"`
	RetroPct       decimal.Decimal `json:"retro"`
}

// ClaimInput is the financial part of a claim registration session.
type ClaimInput struct {
	CurrentReserve    MonetaryAmount  `json:"currentReserve"`
	Salvage           MonetaryAmount  `json:"salvage"`
	SelectedContracts []ContractShare `json:"selectedContracts"`
}

// ClaimFinancialSummary is the result of the claim net/retention
// computation.
type ClaimFinancialSummary struct {
	NetAmount           decimal.Decimal `json:"netAmount"`
	TotalShareSignedPct decimal.Decimal `json:"totalShareSigned"`
	RetroPct            decimal.Decimal `json:"retroPct"`
	CedantShareAmount   decimal.Decimal `json:"tanreTZS"`
	RetroAmount         decimal.Decimal `json:"retroAmount"`
	Retention           decimal.Decimal `json:"tanreRetention"`
}

// RegisteredClaim is a stored claim with the totals computed at
// registration time and snapshots of the contracts it was registered
// against.
type RegisteredClaim struct {
	ClaimID         string                `json:"claimId"`
	DateRegistered  time.Time             `json:"dateRegistered"`
	DateOfLoss      time.Time             `json:"dateOfLoss"`
	DateReceived    time.Time             `json:"dateReceived"`
	OriginalInsured string                `json:"originalInsured"`
	CauseOfLoss     string                `json:"causeOfLoss"`
	CurrentReserve  decimal.Decimal       `json:"currentReserve"`
	Salvage         decimal.Decimal       `json:"salvage"`
	Summary         ClaimFinancialSummary `json:"summary"`
	Contracts       []ContractShare       `json:"contracts"`
}

// ClaimsDashboard aggregates registered claims for the executive dashboard.
type ClaimsDashboard struct {
	ClaimCount     int             `json:"claimCount"`
	TotalReserve   decimal.Decimal `json:"totalReserve"`
	TotalSalvage   decimal.Decimal `json:"totalSalvage"`
	TotalNet       decimal.Decimal `json:"totalNet"`
	TotalTanreTZS  decimal.Decimal `json:"totalTanreTZS"`
	TotalRetro     decimal.Decimal `json:"totalRetroAmount"`
	TotalRetention decimal.Decimal `json:"totalTanreRetention"`
}
