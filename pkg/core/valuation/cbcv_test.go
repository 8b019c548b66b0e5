package valuation

import (
	"context"
	"errors"
	"math"
	"testing"

	"marketflow/pkg/models"
)

func TestCalculateCLV(t *testing.T) {
	// 96 * (0.9 / (1 + 0.12 - 0.9)) = 96 * (0.9/0.22)
	got := CalculateCLV(120, 0.8, 0.9, 0.12)
	want := 96 * 0.9 / 0.22
	if !almostEqual(got, want, 1e-9) {
		t.Errorf("CLV = %f, want %f", got, want)
	}
	if !almostEqual(got, 392.73, 0.01) {
		t.Errorf("CLV = %f, want ~392.73", got)
	}
}

func TestCalculateCLV_RetentionClamped(t *testing.T) {
	got := CalculateCLV(120, 0.8, 1.0, 0.12)
	want := CalculateCLV(120, 0.8, 0.99, 0.12)
	if !almostEqual(got, want, 1e-9) {
		t.Errorf("retention 1.0 not clamped: got %f, want %f", got, want)
	}
	if math.IsInf(got, 0) || math.IsNaN(got) {
		t.Errorf("CLV degenerate at full retention: %f", got)
	}
}

func TestCalculateCAC(t *testing.T) {
	if got := CalculateCAC(5000, 100); !almostEqual(got, 50, 1e-12) {
		t.Errorf("CAC = %f, want 50", got)
	}
	if got := CalculateCAC(5000, 0); got != 0 {
		t.Errorf("CAC with zero acquisitions = %f, want 0", got)
	}
}

func TestPaybackMonths(t *testing.T) {
	// monthly contribution = 120*0.8/12 = 8; payback = 48/8 = 6 months
	if got := PaybackMonths(48, 120, 0.8); !almostEqual(got, 6, 1e-9) {
		t.Errorf("payback = %f, want 6", got)
	}
	if got := PaybackMonths(48, 120, 0); !math.IsInf(got, 1) {
		t.Errorf("payback with zero margin = %f, want +Inf", got)
	}
}

func TestFutureCustomerEquity_DecaysFromRealizedTrajectory(t *testing.T) {
	_, acquisitions := FutureCustomerEquity(100, 500, 100, 0.10, 5, 0.10, 0, 1000)

	// each year decays 10% from the prior realized acquisition, truncated
	want := []int{100, 90, 81, 72, 64}
	for i := range want {
		if acquisitions[i] != want[i] {
			t.Errorf("year %d acquisitions = %d, want %d", i+1, acquisitions[i], want[i])
		}
	}
}

func TestBuildCBCVModel_ExplicitZeroDecayHonored(t *testing.T) {
	md := &MockMarketData{
		IncomeFunc: func(ctx context.Context, ticker, period string, limit int) ([]models.IncomeStatement, error) {
			return []models.IncomeStatement{{
				CalendarYear:                "2024",
				Revenue:                     1_000_000,
				GrossProfit:                 600_000,
				SellingAndMarketingExpenses: 50_000,
			}}, nil
		},
	}

	in := CBCVInputs{
		TotalCustomers: 10_000,
		NewCustomers:   intPtr(1_000),
		DecayRate:      floatPtr(0.0), // no saturation: not the 10% default
	}
	result, err := BuildCBCVModel(context.Background(), md, "NFLX", in)
	if err != nil {
		t.Fatalf("BuildCBCVModel returned error: %v", err)
	}

	if result.Assumptions["acquisition_decay"] != 0 {
		t.Errorf("acquisition_decay = %f, want explicit 0", result.Assumptions["acquisition_decay"])
	}
	for i, acq := range result.ProjectedAcquisition {
		if acq != 1_000 {
			t.Errorf("ProjectedAcquisition[%d] = %d, want constant 1000 with zero decay", i, acq)
		}
	}
}

func TestFutureCustomerEquity_TAMCap(t *testing.T) {
	total, acquisitions := FutureCustomerEquity(30, 500, 100, 0.10, 4, 0.10, 100, 90)

	want := []int{10, 0, 0, 0}
	for i := range want {
		if acquisitions[i] != want[i] {
			t.Errorf("year %d acquisitions = %d, want %d", i+1, acquisitions[i], want[i])
		}
	}
	wantTotal := 10 * (500.0 - 100.0) / 1.10
	if !almostEqual(total, wantTotal, 1e-9) {
		t.Errorf("future CE = %f, want %f", total, wantTotal)
	}
}

func TestFutureCustomerEquity_ZeroWhenCLVBelowCAC(t *testing.T) {
	total, acquisitions := FutureCustomerEquity(100, 90, 100, 0.10, 5, 0.10, 0, 1000)
	if total != 0 {
		t.Errorf("future CE = %f, want 0 when CLV <= CAC", total)
	}
	for i, acq := range acquisitions {
		if acq != 0 {
			t.Errorf("year %d acquisitions = %d, want 0", i+1, acq)
		}
	}
}

func TestBuildCLVSensitivity(t *testing.T) {
	matrix := BuildCLVSensitivity(120, 0.8, 0.90, 0.12)

	if len(matrix) != 5 {
		t.Fatalf("retention rows = %d, want 5", len(matrix))
	}
	for key, row := range matrix {
		if len(row) != 5 {
			t.Errorf("row %q has %d cells, want 5", key, len(row))
		}
	}

	base, ok := matrix["90.0%"]["+0% ARPU"]
	if !ok {
		t.Fatal("missing base-case cell")
	}
	if !almostEqual(base, CalculateCLV(120, 0.8, 0.90, 0.12), 1e-9) {
		t.Errorf("base cell = %f, want unperturbed CLV", base)
	}

	up := matrix["95.0%"]["+20% ARPU"]
	if up <= base {
		t.Errorf("higher retention and ARPU did not raise CLV: %f vs %f", up, base)
	}
}

func TestBuildCLVSensitivity_RetentionClampedAtCeiling(t *testing.T) {
	matrix := BuildCLVSensitivity(120, 0.8, 0.97, 0.12)
	if _, ok := matrix["99.0%"]; !ok {
		t.Errorf("retention ceiling row missing; rows: %v", keysOf(matrix))
	}
}

func keysOf(m map[string]map[string]float64) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestBuildCBCVModel(t *testing.T) {
	md := &MockMarketData{
		IncomeFunc: func(ctx context.Context, ticker, period string, limit int) ([]models.IncomeStatement, error) {
			return []models.IncomeStatement{{
				CalendarYear:                "2024",
				Revenue:                     1_000_000,
				GrossProfit:                 600_000,
				SellingAndMarketingExpenses: 50_000,
			}}, nil
		},
	}

	in := CBCVInputs{
		TotalCustomers: 10_000,
		NewCustomers:   intPtr(1_000),
	}
	result, err := BuildCBCVModel(context.Background(), md, "nflx", in)
	if err != nil {
		t.Fatalf("BuildCBCVModel returned error: %v", err)
	}

	if result.Ticker != "NFLX" {
		t.Errorf("ticker = %q, want NFLX", result.Ticker)
	}
	if result.Industry != "streaming" {
		t.Errorf("industry = %q, want streaming", result.Industry)
	}
	// streaming benchmark churn is 5%
	if !almostEqual(result.ChurnRate, 0.05, 1e-12) {
		t.Errorf("churn = %f, want 0.05 benchmark", result.ChurnRate)
	}
	if result.AssumptionSources["churn_rate"] != "industry_benchmark" {
		t.Errorf("churn source = %q, want industry_benchmark", result.AssumptionSources["churn_rate"])
	}

	// ARPU derived from revenue / customers
	if !almostEqual(result.ARPU, 100, 1e-9) {
		t.Errorf("ARPU = %f, want 100", result.ARPU)
	}
	if result.AssumptionSources["arpu"] != "calculated" {
		t.Errorf("arpu source = %q, want calculated", result.AssumptionSources["arpu"])
	}

	// CAC = S&M / new customers = 50000/1000
	if !almostEqual(result.CAC, 50, 1e-9) {
		t.Errorf("CAC = %f, want 50", result.CAC)
	}

	wantCLV := CalculateCLV(100, 0.6, 0.95, result.WACC)
	if !almostEqual(result.CLV, wantCLV, 1e-9) {
		t.Errorf("CLV = %f, want %f", result.CLV, wantCLV)
	}
	if !almostEqual(result.ExistingCustomerEquity, wantCLV*10_000, 1e-6) {
		t.Errorf("existing CE = %f, want %f", result.ExistingCustomerEquity, wantCLV*10_000)
	}
	if !almostEqual(result.TotalCustomerEquity, result.ExistingCustomerEquity+result.FutureCustomerEquity, 1e-6) {
		t.Errorf("total CE != existing + future")
	}

	if len(result.ProjectedCustomers) != DefaultCBCVProjectionYears+1 {
		t.Errorf("projected customers length = %d, want %d", len(result.ProjectedCustomers), DefaultCBCVProjectionYears+1)
	}
	if len(result.SensitivityMatrix) != 5 {
		t.Errorf("sensitivity rows = %d, want 5", len(result.SensitivityMatrix))
	}
	if result.Upside == nil {
		t.Error("Upside = nil, want percentage against current price")
	}
}

func TestBuildCBCVModel_RequiresCustomerCount(t *testing.T) {
	_, err := BuildCBCVModel(context.Background(), &MockMarketData{}, "NFLX", CBCVInputs{})
	if err == nil {
		t.Fatal("expected error without total customers")
	}
	var missing *MissingInputError
	if !errors.As(err, &missing) {
		t.Fatalf("error type = %T, want *MissingInputError", err)
	}
	if missing.Field != "total_customers" {
		t.Errorf("Field = %q, want total_customers", missing.Field)
	}
}

func TestBuildCBCVModel_ARPUUnderivable(t *testing.T) {
	md := &MockMarketData{
		IncomeFunc: func(ctx context.Context, ticker, period string, limit int) ([]models.IncomeStatement, error) {
			return []models.IncomeStatement{{CalendarYear: "2024", Revenue: 0}}, nil
		},
	}
	_, err := BuildCBCVModel(context.Background(), md, "NFLX", CBCVInputs{TotalCustomers: 1000})
	var missing *MissingInputError
	if !errors.As(err, &missing) {
		t.Fatalf("error = %v, want *MissingInputError for arpu", err)
	}
	if missing.Field != "arpu" {
		t.Errorf("Field = %q, want arpu", missing.Field)
	}
}

func intPtr(v int) *int { return &v }
