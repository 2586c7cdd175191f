package provider

import "testing"

func TestEstimateCost(t *testing.T) {
	tests := []struct {
		name    string
		kind    CostKind
		markets int
		regions int
		want    int
	}{
		{"discovery is free", CostDiscovery, 3, 2, 0},
		{"live single market", CostLiveOdds, 1, 1, 1},
		{"live three markets one region", CostLiveOdds, 3, 1, 3},
		{"live three markets two regions", CostLiveOdds, 3, 2, 6},
		{"historical multiplies by ten", CostHistoricalOdds, 3, 1, 30},
		{"unknown kind", CostKind("bogus"), 3, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EstimateCost(tt.kind, tt.markets, tt.regions); got != tt.want {
				t.Errorf("EstimateCost(%s, %d, %d) = %d, want %d", tt.kind, tt.markets, tt.regions, got, tt.want)
			}
		})
	}
}

func TestProviderError(t *testing.T) {
	withStatus := &Error{Op: "live_odds", StatusCode: 429, Message: "quota exceeded"}
	if got := withStatus.Error(); got != "provider live_odds: status 429: quota exceeded" {
		t.Errorf("Error() = %q", got)
	}
	transport := &Error{Op: "list_fixtures", Message: "connection refused"}
	if got := transport.Error(); got != "provider list_fixtures: connection refused" {
		t.Errorf("Error() = %q", got)
	}
}
