// Package bench measures cascade cryptosystem performance across
// parameter sweeps: operation latencies with quantile sketches, key and
// ciphertext sizes, decoding reliability, timed attack recoveries, and
// closed-form attack cost estimates.
package bench

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"runtime"
	"strconv"
	"time"

	"github.com/DataDog/sketches-go/ddsketch"
	"github.com/aclements/go-moremath/stats"

	mcecascade "github.com/BackendStack21/mceliece-cascade-go"
	"github.com/BackendStack21/mceliece-cascade-go/core"
	"github.com/BackendStack21/mceliece-cascade-go/gf2"
	"github.com/BackendStack21/mceliece-cascade-go/isd"
	"github.com/BackendStack21/mceliece-cascade-go/mceliece"
	"github.com/BackendStack21/mceliece-cascade-go/utils"
)

// sketchAccuracy is the DDSketch relative accuracy for latency
// quantiles: 1% keeps the sketch small and the tails honest.
const sketchAccuracy = 0.01

// Config selects what a benchmark run measures. Zero AttackTrials skips
// the attack phase; zero Workers and AttackMaxIter pick defaults.
type Config struct {
	Variant       mcecascade.Variant `json:"variant"`
	Blocks        int                `json:"blocks"`
	Trials        int                `json:"trials"`
	AttackTrials  int                `json:"attack_trials"`
	AttackMaxIter int                `json:"attack_max_iter"`
	Workers       int                `json:"workers"`
	Seed          int64              `json:"seed"`
}

// OpStats summarizes one operation's latency distribution.
type OpStats struct {
	Count  int           `json:"count"`
	Mean   time.Duration `json:"mean"`
	StdDev time.Duration `json:"stddev"`
	P50    time.Duration `json:"p50"`
	P95    time.Duration `json:"p95"`
	P99    time.Duration `json:"p99"`
}

// AttackStats extends the latency summary with recovery accounting.
type AttackStats struct {
	OpStats
	Recovered     int     `json:"recovered"`
	TotalAttempts int     `json:"total_attempts"`
	MeanAttempts  float64 `json:"mean_attempts"`
}

// SecurityEstimate carries closed-form attack cost bounds in bits.
type SecurityEstimate struct {
	EnumerationBits float64 `json:"enumeration_bits"`
	PrangeBits      float64 `json:"prange_bits"`
}

// Report is the outcome of one benchmark configuration.
type Report struct {
	Params          mcecascade.CascadeParams `json:"params"`
	Keygen          OpStats                  `json:"keygen"`
	Encrypt         OpStats                  `json:"encrypt"`
	Decrypt         OpStats                  `json:"decrypt"`
	DecryptOK       int                      `json:"decrypt_ok"`
	PublicKeyBytes  int                      `json:"public_key_bytes"`
	PrivateKeyBytes int                      `json:"private_key_bytes"`
	CiphertextBytes int                      `json:"ciphertext_bytes"`
	ExpansionRatio  float64                  `json:"expansion_ratio"`
	Security        SecurityEstimate         `json:"security"`
	Attack          *AttackStats             `json:"attack,omitempty"`
}

// opRecorder accumulates latencies twice: raw samples for moment
// statistics and a DDSketch for quantiles.
type opRecorder struct {
	xs     []float64
	sketch *ddsketch.DDSketch
}

func newOpRecorder() (*opRecorder, error) {
	sketch, err := ddsketch.NewDefaultDDSketch(sketchAccuracy)
	if err != nil {
		return nil, fmt.Errorf("bench: sketch init: %w", err)
	}
	return &opRecorder{sketch: sketch}, nil
}

func (r *opRecorder) observe(d time.Duration) error {
	r.xs = append(r.xs, float64(d))
	return r.sketch.Add(float64(d))
}

func (r *opRecorder) summarize() (OpStats, error) {
	qs, err := r.sketch.GetValuesAtQuantiles([]float64{0.5, 0.95, 0.99})
	if err != nil {
		return OpStats{}, fmt.Errorf("bench: quantiles: %w", err)
	}
	sample := stats.Sample{Xs: r.xs}
	out := OpStats{
		Count: len(r.xs),
		Mean:  time.Duration(sample.Mean()),
		P50:   time.Duration(qs[0]),
		P95:   time.Duration(qs[1]),
		P99:   time.Duration(qs[2]),
	}
	if len(r.xs) > 1 {
		out.StdDev = time.Duration(sample.StdDev())
	}
	return out, nil
}

// Run executes one benchmark configuration: Trials fresh
// keygen/encrypt/decrypt rounds, then AttackTrials timed message
// recoveries, all driven from a single deterministic stream.
func Run(cfg Config) (*Report, error) {
	if cfg.Trials < 1 {
		return nil, fmt.Errorf("%w: trials must be positive, got %d", mcecascade.ErrInvalidParameter, cfg.Trials)
	}
	if cfg.AttackTrials < 0 {
		return nil, fmt.Errorf("%w: attack trials must not be negative, got %d", mcecascade.ErrInvalidParameter, cfg.AttackTrials)
	}
	base, err := core.GetParams(cfg.Variant)
	if err != nil {
		return nil, err
	}
	params, err := core.Expand(base, cfg.Blocks)
	if err != nil {
		return nil, err
	}
	workers := cfg.Workers
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	attackIter := cfg.AttackMaxIter
	if attackIter < 1 {
		attackIter = isd.DefaultMaxIterations
	}

	rng := utils.NewRand(utils.SeedFromInt(cfg.Seed))
	keygenRec, err := newOpRecorder()
	if err != nil {
		return nil, err
	}
	encryptRec, err := newOpRecorder()
	if err != nil {
		return nil, err
	}
	decryptRec, err := newOpRecorder()
	if err != nil {
		return nil, err
	}

	report := &Report{
		Params:         params,
		ExpansionRatio: float64(params.N) / float64(params.K),
		Security:       EstimateSecurity(params.N, params.K, params.T),
	}

	var kp *mcecascade.KeyPair
	keySeed := make([]byte, 32)
	for trial := 0; trial < cfg.Trials; trial++ {
		if _, err := rng.Read(keySeed); err != nil {
			return nil, err
		}
		start := time.Now()
		kp, err = mceliece.GenerateKeyPairFromSeed(cfg.Variant, cfg.Blocks, keySeed)
		if err != nil {
			return nil, err
		}
		if err := keygenRec.observe(time.Since(start)); err != nil {
			return nil, err
		}

		msg := gf2.RandomVector(params.K, rng)
		start = time.Now()
		ct, err := mceliece.EncryptWithRand(&kp.Public, msg, rng)
		if err != nil {
			return nil, err
		}
		if err := encryptRec.observe(time.Since(start)); err != nil {
			return nil, err
		}

		start = time.Now()
		got, ok, err := mceliece.Decrypt(&kp.Private, &kp.Public, ct)
		if err != nil {
			return nil, err
		}
		if err := decryptRec.observe(time.Since(start)); err != nil {
			return nil, err
		}
		if ok && got.Equal(msg) {
			report.DecryptOK++
		}
	}

	if report.Keygen, err = keygenRec.summarize(); err != nil {
		return nil, err
	}
	if report.Encrypt, err = encryptRec.summarize(); err != nil {
		return nil, err
	}
	if report.Decrypt, err = decryptRec.summarize(); err != nil {
		return nil, err
	}
	report.PublicKeyBytes = len(mceliece.SerializePublicKey(&kp.Public))
	report.PrivateKeyBytes = len(mceliece.SerializePrivateKey(&kp.Private))
	report.CiphertextBytes = len(mceliece.SerializeCiphertext(gf2.NewVector(params.N)))

	if cfg.AttackTrials > 0 {
		attack, err := runAttacks(cfg, kp, params, attackIter, workers, rng)
		if err != nil {
			return nil, err
		}
		report.Attack = attack
	}
	return report, nil
}

func runAttacks(cfg Config, kp *mcecascade.KeyPair, params mcecascade.CascadeParams, maxIter, workers int, rng *utils.Rand) (*AttackStats, error) {
	rec, err := newOpRecorder()
	if err != nil {
		return nil, err
	}
	out := &AttackStats{}
	attackSeed := make([]byte, 32)
	for trial := 0; trial < cfg.AttackTrials; trial++ {
		msg := gf2.RandomVector(params.K, rng)
		ct, err := mceliece.EncryptWithRand(&kp.Public, msg, rng)
		if err != nil {
			return nil, err
		}
		if _, err := rng.Read(attackSeed); err != nil {
			return nil, err
		}

		start := time.Now()
		res, err := isd.AttackParallel(context.Background(), &kp.Public, ct, params.T, maxIter, workers, attackSeed)
		if err != nil {
			return nil, err
		}
		if err := rec.observe(time.Since(start)); err != nil {
			return nil, err
		}
		out.TotalAttempts += res.Attempts
		if res.Found && res.Message.Equal(msg) {
			out.Recovered++
		}
	}
	if out.OpStats, err = rec.summarize(); err != nil {
		return nil, err
	}
	out.MeanAttempts = float64(out.TotalAttempts) / float64(cfg.AttackTrials)
	return out, nil
}

// EstimateSecurity returns closed-form work estimates in bits for an
// attacker facing an (n, k) code with a weight-t error: brute error
// enumeration at log2 C(n,t), and Prange's information-set bound at
// log2 C(n,t) - log2 C(n-k,t) iterations of free linear algebra.
func EstimateSecurity(n, k, t int) SecurityEstimate {
	enum := log2Binomial(n, t)
	est := SecurityEstimate{EnumerationBits: enum}
	if t > n-k {
		est.PrangeBits = math.Inf(1)
		return est
	}
	prange := enum - log2Binomial(n-k, t)
	if prange < 0 {
		prange = 0
	}
	est.PrangeBits = prange
	return est
}

// log2Binomial computes log2 of the binomial coefficient through the
// log-gamma function, exact enough for cost estimates at any scale.
func log2Binomial(n, k int) float64 {
	if k < 0 || k > n {
		return math.Inf(-1)
	}
	ln, _ := math.Lgamma(float64(n) + 1)
	lk, _ := math.Lgamma(float64(k) + 1)
	lnk, _ := math.Lgamma(float64(n-k) + 1)
	return (ln - lk - lnk) / math.Ln2
}

// WriteCSV renders reports as one CSV row per configuration, latencies
// in microseconds.
func WriteCSV(w io.Writer, reports []*Report) error {
	cw := csv.NewWriter(w)
	header := []string{
		"variant", "blocks", "n", "k", "t",
		"keygen_mean_us", "keygen_p95_us",
		"encrypt_mean_us", "encrypt_p95_us",
		"decrypt_mean_us", "decrypt_p95_us",
		"decrypt_ok_rate",
		"public_key_bytes", "private_key_bytes", "ciphertext_bytes",
		"expansion_ratio", "enumeration_bits", "prange_bits",
		"attack_trials", "attack_recovered", "attack_mean_us", "attack_mean_attempts",
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, r := range reports {
		row := []string{
			string(r.Params.Variant),
			strconv.Itoa(r.Params.L),
			strconv.Itoa(r.Params.N),
			strconv.Itoa(r.Params.K),
			strconv.Itoa(r.Params.T),
			formatMicros(r.Keygen.Mean),
			formatMicros(r.Keygen.P95),
			formatMicros(r.Encrypt.Mean),
			formatMicros(r.Encrypt.P95),
			formatMicros(r.Decrypt.Mean),
			formatMicros(r.Decrypt.P95),
			strconv.FormatFloat(float64(r.DecryptOK)/float64(r.Decrypt.Count), 'f', 4, 64),
			strconv.Itoa(r.PublicKeyBytes),
			strconv.Itoa(r.PrivateKeyBytes),
			strconv.Itoa(r.CiphertextBytes),
			strconv.FormatFloat(r.ExpansionRatio, 'f', 4, 64),
			strconv.FormatFloat(r.Security.EnumerationBits, 'f', 2, 64),
			strconv.FormatFloat(r.Security.PrangeBits, 'f', 2, 64),
		}
		if r.Attack != nil {
			row = append(row,
				strconv.Itoa(r.Attack.Count),
				strconv.Itoa(r.Attack.Recovered),
				formatMicros(r.Attack.Mean),
				strconv.FormatFloat(r.Attack.MeanAttempts, 'f', 2, 64),
			)
		} else {
			row = append(row, "0", "0", "", "")
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatMicros(d time.Duration) string {
	return strconv.FormatFloat(float64(d)/float64(time.Microsecond), 'f', 2, 64)
}
