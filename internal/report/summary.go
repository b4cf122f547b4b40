package report

import "github.com/tanre/retro-engine/internal/model"

// Summarize totals registered claims for the dashboard.
func Summarize(claims []model.RegisteredClaim) model.ClaimsDashboard {
	var s model.ClaimsDashboard
	for _, c := range claims {
		s.ClaimCount++
		s.TotalReserve = s.TotalReserve.Add(c.CurrentReserve)
		s.TotalSalvage = s.TotalSalvage.Add(c.Salvage)
		s.TotalNet = s.TotalNet.Add(c.Summary.NetAmount)
		s.TotalTanreTZS = s.TotalTanreTZS.Add(c.Summary.CedantShareAmount)
		s.TotalRetro = s.TotalRetro.Add(c.Summary.RetroAmount)
		s.TotalRetention = s.TotalRetention.Add(c.Summary.Retention)
	}
	return s
}
