package bench

import (
	"bytes"
	"encoding/csv"
	"errors"
	"math"
	"testing"
	"time"

	mcecascade "github.com/BackendStack21/mceliece-cascade-go"
)

func closeTo(got, want, tol float64) bool {
	return math.Abs(got-want) <= tol
}

func TestLog2Binomial(t *testing.T) {
	cases := []struct {
		n, k int
		want float64
	}{
		{10, 3, math.Log2(120)},
		{15, 1, math.Log2(15)},
		{30, 2, math.Log2(435)},
		{5, 0, 0},
		{5, 5, 0},
		{0, 0, 0},
	}
	for _, tc := range cases {
		if got := log2Binomial(tc.n, tc.k); !closeTo(got, tc.want, 1e-9) {
			t.Errorf("log2Binomial(%d, %d) = %v, want %v", tc.n, tc.k, got, tc.want)
		}
	}
	if got := log2Binomial(4, 7); !math.IsInf(got, -1) {
		t.Errorf("log2Binomial(4, 7) = %v, want -Inf", got)
	}
	if got := log2Binomial(4, -1); !math.IsInf(got, -1) {
		t.Errorf("log2Binomial(4, -1) = %v, want -Inf", got)
	}
}

func TestEstimateSecurity(t *testing.T) {
	est := EstimateSecurity(15, 11, 1)
	if !closeTo(est.EnumerationBits, math.Log2(15), 1e-9) {
		t.Errorf("enumeration bits = %v, want log2(15)", est.EnumerationBits)
	}
	if !closeTo(est.PrangeBits, math.Log2(15)-math.Log2(4), 1e-9) {
		t.Errorf("prange bits = %v, want log2(15/4)", est.PrangeBits)
	}

	est = EstimateSecurity(30, 22, 2)
	if !closeTo(est.EnumerationBits, math.Log2(435), 1e-9) {
		t.Errorf("enumeration bits = %v, want log2(435)", est.EnumerationBits)
	}
	if !closeTo(est.PrangeBits, math.Log2(435)-math.Log2(28), 1e-9) {
		t.Errorf("prange bits = %v, want log2(435/28)", est.PrangeBits)
	}

	if est := EstimateSecurity(15, 11, 0); est.EnumerationBits != 0 || est.PrangeBits != 0 {
		t.Errorf("weight 0 should cost nothing, got %+v", est)
	}

	if est := EstimateSecurity(15, 11, 5); !math.IsInf(est.PrangeBits, 1) {
		t.Errorf("weight beyond redundancy: prange = %v, want +Inf", est.PrangeBits)
	}

	// Cost grows with the cascade.
	small := EstimateSecurity(30, 22, 2)
	large := EstimateSecurity(150, 110, 10)
	if large.PrangeBits <= small.PrangeBits {
		t.Errorf("prange bits did not grow with L: %v vs %v", large.PrangeBits, small.PrangeBits)
	}
}

func TestOpRecorder(t *testing.T) {
	rec, err := newOpRecorder()
	if err != nil {
		t.Fatalf("recorder init failed: %v", err)
	}
	for _, d := range []time.Duration{time.Millisecond, 2 * time.Millisecond, 3 * time.Millisecond} {
		if err := rec.observe(d); err != nil {
			t.Fatalf("observe failed: %v", err)
		}
	}
	st, err := rec.summarize()
	if err != nil {
		t.Fatalf("summarize failed: %v", err)
	}
	if st.Count != 3 {
		t.Errorf("count = %d, want 3", st.Count)
	}
	if !closeTo(float64(st.Mean), float64(2*time.Millisecond), float64(time.Microsecond)) {
		t.Errorf("mean = %v, want ~2ms", st.Mean)
	}
	if !closeTo(float64(st.StdDev), float64(time.Millisecond), float64(50*time.Microsecond)) {
		t.Errorf("stddev = %v, want ~1ms", st.StdDev)
	}
	// The sketch guarantees 1% relative accuracy on quantiles.
	if !closeTo(float64(st.P50), float64(2*time.Millisecond), float64(2*time.Millisecond)*0.011) {
		t.Errorf("p50 = %v, want ~2ms", st.P50)
	}
	if st.P95 < st.P50 || st.P99 < st.P95 {
		t.Errorf("quantiles out of order: p50=%v p95=%v p99=%v", st.P50, st.P95, st.P99)
	}

	single, err := newOpRecorder()
	if err != nil {
		t.Fatalf("recorder init failed: %v", err)
	}
	if err := single.observe(time.Millisecond); err != nil {
		t.Fatalf("observe failed: %v", err)
	}
	st, err = single.summarize()
	if err != nil {
		t.Fatalf("summarize failed: %v", err)
	}
	if st.StdDev != 0 {
		t.Errorf("single-sample stddev = %v, want 0", st.StdDev)
	}
}

func TestRun(t *testing.T) {
	report, err := Run(Config{
		Variant:      mcecascade.Hamming,
		Blocks:       2,
		Trials:       4,
		AttackTrials: 1,
		Workers:      2,
		Seed:         7,
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if report.Params.N != 30 || report.Params.K != 22 || report.Params.T != 2 {
		t.Fatalf("params (%d, %d, %d), want (30, 22, 2)", report.Params.N, report.Params.K, report.Params.T)
	}
	if report.Keygen.Count != 4 || report.Encrypt.Count != 4 || report.Decrypt.Count != 4 {
		t.Errorf("operation counts (%d, %d, %d), want 4 each",
			report.Keygen.Count, report.Encrypt.Count, report.Decrypt.Count)
	}
	if report.DecryptOK != 4 {
		t.Errorf("decrypt successes = %d, want 4", report.DecryptOK)
	}

	// Encoded sizes follow directly from the wire layout.
	if want := 24 + 4*30 + 22*4; report.PublicKeyBytes != want {
		t.Errorf("public key bytes = %d, want %d", report.PublicKeyBytes, want)
	}
	if report.PrivateKeyBytes == 0 {
		t.Error("private key bytes missing")
	}
	if want := 4 + 4; report.CiphertextBytes != want {
		t.Errorf("ciphertext bytes = %d, want %d", report.CiphertextBytes, want)
	}
	if !closeTo(report.ExpansionRatio, 30.0/22.0, 1e-12) {
		t.Errorf("expansion ratio = %v, want 30/22", report.ExpansionRatio)
	}
	if !closeTo(report.Security.EnumerationBits, math.Log2(435), 1e-9) {
		t.Errorf("enumeration bits = %v, want log2(435)", report.Security.EnumerationBits)
	}

	if report.Attack == nil {
		t.Fatal("attack phase was skipped")
	}
	if report.Attack.Count != 1 {
		t.Errorf("attack count = %d, want 1", report.Attack.Count)
	}
	if report.Attack.Recovered != 1 {
		t.Errorf("attack recovered = %d, want 1 on a toy instance", report.Attack.Recovered)
	}
	if report.Attack.TotalAttempts < 1 {
		t.Error("attack attempts were not aggregated")
	}
	if report.Attack.MeanAttempts != float64(report.Attack.TotalAttempts) {
		t.Errorf("mean attempts = %v, want %v for a single trial",
			report.Attack.MeanAttempts, float64(report.Attack.TotalAttempts))
	}
}

func TestRunSkipsAttacks(t *testing.T) {
	report, err := Run(Config{Variant: mcecascade.BCH, Blocks: 1, Trials: 2, Seed: 3})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if report.Attack != nil {
		t.Error("attack stats present despite zero attack trials")
	}
}

func TestRunRejects(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{"zero trials", Config{Variant: mcecascade.Hamming, Blocks: 1}},
		{"negative attack trials", Config{Variant: mcecascade.Hamming, Blocks: 1, Trials: 1, AttackTrials: -1}},
		{"unknown variant", Config{Variant: "golay-23", Blocks: 1, Trials: 1}},
		{"zero blocks", Config{Variant: mcecascade.Hamming, Blocks: 0, Trials: 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Run(tc.cfg); !errors.Is(err, mcecascade.ErrInvalidParameter) {
				t.Errorf("got %v, want ErrInvalidParameter", err)
			}
		})
	}
}

func TestWriteCSV(t *testing.T) {
	first, err := Run(Config{Variant: mcecascade.Hamming, Blocks: 1, Trials: 2, Seed: 1})
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	second, err := Run(Config{Variant: mcecascade.BCH, Blocks: 2, Trials: 2, Seed: 2})
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, []*Report{first, second}); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output does not parse as CSV: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want header plus two rows", len(records))
	}
	for i, rec := range records {
		if len(rec) != len(records[0]) {
			t.Fatalf("row %d has %d fields, header has %d", i, len(rec), len(records[0]))
		}
	}
	if records[1][0] != string(mcecascade.Hamming) || records[2][0] != string(mcecascade.BCH) {
		t.Errorf("variant cells (%q, %q) out of order", records[1][0], records[2][0])
	}
	if records[1][2] != "15" || records[2][2] != "30" {
		t.Errorf("n cells (%q, %q), want (15, 30)", records[1][2], records[2][2])
	}
	if records[1][11] != "1.0000" {
		t.Errorf("decrypt ok rate = %q, want 1.0000", records[1][11])
	}
}
