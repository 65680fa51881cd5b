// Package main provides the mcecascade-cli command line interface for
// cascade cryptosystem operations.
package main

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	mcecascade "github.com/BackendStack21/mceliece-cascade-go"
	"github.com/BackendStack21/mceliece-cascade-go/bench"
	"github.com/BackendStack21/mceliece-cascade-go/core"
	"github.com/BackendStack21/mceliece-cascade-go/gf2"
	"github.com/BackendStack21/mceliece-cascade-go/isd"
	"github.com/BackendStack21/mceliece-cascade-go/mceliece"
	"github.com/BackendStack21/mceliece-cascade-go/utils"
)

const (
	version = "1.0.2"
	appName = "mcecascade-cli"

	fingerprintDomain = "mcecascade-key-fingerprint-v1"
)

// OutputFormat represents the output format for serialization
type OutputFormat string

const (
	FormatHex    OutputFormat = "hex"
	FormatBase64 OutputFormat = "base64"
)

// CLIConfig holds CLI configuration
type CLIConfig struct {
	Variant      mcecascade.Variant
	Blocks       int
	OutputFormat OutputFormat
	OutputFile   string
	Verbose      bool
	Timing       bool
}

// KeyPairExport represents an exported cascade key pair
type KeyPairExport struct {
	Variant     string `json:"variant"`
	Blocks      int    `json:"blocks"`
	PublicKey   string `json:"public_key"`
	PrivateKey  string `json:"private_key"`
	CreatedAt   string `json:"created_at"`
	Fingerprint string `json:"fingerprint,omitempty"` // Detects accidental corruption only
}

// CiphertextExport represents an exported encryption result
type CiphertextExport struct {
	Message    string `json:"message,omitempty"`
	Ciphertext string `json:"ciphertext"`
}

// DecryptionExport represents an exported decryption result
type DecryptionExport struct {
	Message  string `json:"message"`
	DecodeOK bool   `json:"decode_ok"`
}

// AttackExport represents an exported attack outcome
type AttackExport struct {
	Found     bool    `json:"found"`
	Message   string  `json:"message,omitempty"`
	Attempts  int     `json:"attempts"`
	ElapsedMS float64 `json:"elapsed_ms"`
}

// InfoExport represents parameter and size information for a cascade
type InfoExport struct {
	Params          mcecascade.CascadeParams `json:"params"`
	PublicKeyBytes  int                      `json:"public_key_bytes"`
	PrivateKeyBytes int                      `json:"private_key_bytes"`
	CiphertextBytes int                      `json:"ciphertext_bytes"`
	ExpansionRatio  float64                  `json:"expansion_ratio"`
	Security        bench.SecurityEstimate   `json:"security"`
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "help", "--help", "-h":
		printUsage()
	case "version", "--version", "-v":
		fmt.Printf("%s version %s\n", appName, version)
		fmt.Printf("mceliece-cascade library version %s\n", mcecascade.Version)
	case "keygen":
		cmdKeygen(os.Args[2:])
	case "encrypt", "enc":
		cmdEncrypt(os.Args[2:])
	case "decrypt", "dec":
		cmdDecrypt(os.Args[2:])
	case "attack":
		cmdAttack(os.Args[2:])
	case "benchmark", "bench":
		cmdBenchmark(os.Args[2:])
	case "info":
		cmdInfo(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`%s - McEliece cascade research testbed CLI

USAGE:
    %s <COMMAND> [OPTIONS]

COMMANDS:
    keygen      Generate a cascade key pair
    encrypt     Encrypt a bit-string message under a public key
    decrypt     Decrypt a ciphertext with a private key
    attack      Run information-set decoding against a ciphertext
    benchmark   Run performance and attack-cost measurements
    info        Show parameters, sizes and attack-cost estimates
    version     Show version information
    help        Show this help message

OPTIONS:
    --variant <hamming|bch> Base code variant (default: hamming)
    --blocks <L>            Cascade block count (default: 4)
    --seed <int>            Deterministic seed (default: system randomness)
    --output <file>         Output file (default: stdout)
    --format <hex|base64>   Binary encoding (default: base64)
    --timing                Show timing information
    --verbose               Verbose output

EXAMPLES:
    # Generate a BCH cascade key pair
    %s keygen --variant bch --blocks 10 --output keypair.json

    # Encrypt a random message
    %s encrypt --public-key keypair.json --random --output ct.json

    # Decrypt it again
    %s decrypt --private-key keypair.json --public-key keypair.json --ciphertext ct.json

    # Try to break it without the private key
    %s attack --public-key keypair.json --ciphertext ct.json --max-iter 200000

    # Sweep benchmark over block counts
    %s benchmark --variant bch --blocks-list 1,2,4,8 --trials 20 --csv results.csv
`, appName, appName, appName, appName, appName, appName, appName)
}

// ============================================================================
// Commands
// ============================================================================

func cmdKeygen(args []string) {
	config := parseConfig(args)
	seedStr := getArg(args, "--seed", "-s")

	start := time.Now()
	var kp *mcecascade.KeyPair
	var err error
	if seedStr != "" {
		seed, perr := strconv.ParseInt(seedStr, 10, 64)
		if perr != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid seed %q: %v\n", seedStr, perr)
			os.Exit(1)
		}
		kp, err = mceliece.GenerateKeyPairFromSeed(config.Variant, config.Blocks, utils.SeedFromInt(seed))
	} else {
		kp, err = mceliece.GenerateKeyPair(config.Variant, config.Blocks)
	}
	elapsed := time.Since(start)

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating key pair: %v\n", err)
		os.Exit(1)
	}

	if config.Timing {
		fmt.Fprintf(os.Stderr, "Key generation took: %v\n", elapsed)
	}

	pkBytes := mceliece.SerializePublicKey(&kp.Public)
	skBytes := mceliece.SerializePrivateKey(&kp.Private)

	export := KeyPairExport{
		Variant:     string(config.Variant),
		Blocks:      config.Blocks,
		PublicKey:   encodeBytes(pkBytes, config.OutputFormat),
		PrivateKey:  encodeBytes(skBytes, config.OutputFormat),
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
		Fingerprint: hex.EncodeToString(utils.HashWithDomain(fingerprintDomain, pkBytes)),
	}

	output, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling output: %v\n", err)
		os.Exit(1)
	}

	writeOutput(output, config.OutputFile)

	if config.Verbose {
		fmt.Fprintf(os.Stderr, "Generated %s cascade with %d blocks (n=%d, k=%d, t=%d)\n",
			config.Variant, config.Blocks, kp.Public.N, kp.Public.K, kp.Public.T)
		fmt.Fprintf(os.Stderr, "Public key size: %d bytes\n", len(pkBytes))
		fmt.Fprintf(os.Stderr, "Private key size: %d bytes\n", len(skBytes))
	}
}

func cmdEncrypt(args []string) {
	config := parseConfig(args)
	pkFile := getArg(args, "--public-key", "-pk")
	message := getArg(args, "--message", "-m")
	random := hasFlag(args, "--random", "-r")
	seedStr := getArg(args, "--seed", "-s")

	if pkFile == "" {
		fmt.Fprintf(os.Stderr, "Error: --public-key is required\n")
		os.Exit(1)
	}
	if message == "" && !random {
		fmt.Fprintf(os.Stderr, "Error: provide --message <bits> or --random\n")
		os.Exit(1)
	}

	pub := loadPublicKey(pkFile)
	rng := makeRand(seedStr)

	var msg gf2.Vector
	if random {
		msg = gf2.RandomVector(pub.K, rng)
	} else {
		var err error
		msg, err = parseBits(message)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	start := time.Now()
	ct, err := mceliece.EncryptWithRand(pub, msg, rng)
	elapsed := time.Since(start)

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error encrypting: %v\n", err)
		os.Exit(1)
	}

	if config.Timing {
		fmt.Fprintf(os.Stderr, "Encryption took: %v\n", elapsed)
	}

	export := CiphertextExport{
		Message:    msg.String(),
		Ciphertext: encodeBytes(mceliece.SerializeCiphertext(ct), config.OutputFormat),
	}

	output, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling output: %v\n", err)
		os.Exit(1)
	}

	writeOutput(output, config.OutputFile)

	if config.Verbose {
		fmt.Fprintf(os.Stderr, "Encrypted %d message bits into %d ciphertext bits\n", msg.Len(), ct.Len())
	}
}

func cmdDecrypt(args []string) {
	config := parseConfig(args)
	skFile := getArg(args, "--private-key", "-sk")
	pkFile := getArg(args, "--public-key", "-pk")
	ctFile := getArg(args, "--ciphertext", "-ct")

	if skFile == "" || pkFile == "" || ctFile == "" {
		fmt.Fprintf(os.Stderr, "Error: --private-key, --public-key, and --ciphertext are required\n")
		os.Exit(1)
	}

	priv := loadPrivateKey(skFile)
	pub := loadPublicKey(pkFile)
	ct := loadCiphertext(ctFile)

	start := time.Now()
	msg, ok, err := mceliece.Decrypt(priv, pub, ct)
	elapsed := time.Since(start)

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error decrypting: %v\n", err)
		os.Exit(1)
	}

	if config.Timing {
		fmt.Fprintf(os.Stderr, "Decryption took: %v\n", elapsed)
	}

	output, err := json.MarshalIndent(DecryptionExport{Message: msg.String(), DecodeOK: ok}, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling output: %v\n", err)
		os.Exit(1)
	}

	writeOutput(output, config.OutputFile)

	if !ok {
		fmt.Fprintf(os.Stderr, "Warning: at least one block decoded outside its correction radius\n")
	}
	if config.Verbose {
		fmt.Fprintf(os.Stderr, "Recovered %d message bits\n", msg.Len())
	}
}

func cmdAttack(args []string) {
	config := parseConfig(args)
	pkFile := getArg(args, "--public-key", "-pk")
	ctFile := getArg(args, "--ciphertext", "-ct")
	maxIter := intArg(args, "--max-iter", "-n", isd.DefaultMaxIterations)
	workers := intArg(args, "--workers", "-w", 0)
	seedStr := getArg(args, "--seed", "-s")

	if pkFile == "" || ctFile == "" {
		fmt.Fprintf(os.Stderr, "Error: --public-key and --ciphertext are required\n")
		os.Exit(1)
	}

	pub := loadPublicKey(pkFile)
	ct := loadCiphertext(ctFile)

	seed := utils.SeedFromInt(time.Now().UnixNano())
	if seedStr != "" {
		v, err := strconv.ParseInt(seedStr, 10, 64)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid seed %q: %v\n", seedStr, err)
			os.Exit(1)
		}
		seed = utils.SeedFromInt(v)
	}

	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	start := time.Now()
	var res isd.Result
	var err error
	if workers == 1 {
		res, err = isd.Attack(pub, ct, pub.T, maxIter, utils.NewRand(seed))
	} else {
		res, err = isd.AttackParallel(context.Background(), pub, ct, pub.T, maxIter, workers, seed)
	}
	elapsed := time.Since(start)

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error attacking: %v\n", err)
		os.Exit(1)
	}

	if config.Timing {
		fmt.Fprintf(os.Stderr, "Attack took: %v (%d attempts)\n", elapsed, res.Attempts)
	}

	export := AttackExport{
		Found:     res.Found,
		Attempts:  res.Attempts,
		ElapsedMS: float64(elapsed) / float64(time.Millisecond),
	}
	if res.Found {
		export.Message = res.Message.String()
	}

	output, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling output: %v\n", err)
		os.Exit(1)
	}

	writeOutput(output, config.OutputFile)

	if config.Verbose {
		if res.Found {
			fmt.Fprintf(os.Stderr, "Message recovered after %d attempts\n", res.Attempts)
		} else {
			fmt.Fprintf(os.Stderr, "Budget of %d attempts exhausted without recovery\n", maxIter)
		}
	}
}

func cmdBenchmark(args []string) {
	config := parseConfig(args)
	blocksList := getArg(args, "--blocks-list", "-bl")
	trials := intArg(args, "--trials", "-n", 10)
	attackTrials := intArg(args, "--attack-trials", "-at", 0)
	maxIter := intArg(args, "--max-iter", "-mi", 0)
	workers := intArg(args, "--workers", "-w", 0)
	seed := int64(intArg(args, "--seed", "-s", 1))
	csvFile := getArg(args, "--csv", "-c")

	blocks := []int{config.Blocks}
	if blocksList != "" {
		blocks = blocks[:0]
		for _, part := range strings.Split(blocksList, ",") {
			v, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: invalid blocks list entry %q\n", part)
				os.Exit(1)
			}
			blocks = append(blocks, v)
		}
	}

	fmt.Printf("mceliece-cascade Benchmark Results\n")
	fmt.Printf("==================================\n")
	fmt.Printf("Variant: %s\n", config.Variant)
	fmt.Printf("Trials: %d\n\n", trials)

	reports := make([]*bench.Report, 0, len(blocks))
	for _, l := range blocks {
		report, err := bench.Run(bench.Config{
			Variant:       config.Variant,
			Blocks:        l,
			Trials:        trials,
			AttackTrials:  attackTrials,
			AttackMaxIter: maxIter,
			Workers:       workers,
			Seed:          seed,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Benchmark error at L=%d: %v\n", l, err)
			os.Exit(1)
		}
		reports = append(reports, report)

		fmt.Printf("L=%d (n=%d, k=%d, t=%d)\n", l, report.Params.N, report.Params.K, report.Params.T)
		fmt.Printf("  KeyGen:   %v (avg), %v (p95)\n", report.Keygen.Mean, report.Keygen.P95)
		fmt.Printf("  Encrypt:  %v (avg), %v (p95)\n", report.Encrypt.Mean, report.Encrypt.P95)
		fmt.Printf("  Decrypt:  %v (avg), %v (p95), %d/%d ok\n",
			report.Decrypt.Mean, report.Decrypt.P95, report.DecryptOK, report.Decrypt.Count)
		fmt.Printf("  Sizes:    pub %d B, priv %d B, ct %d B\n",
			report.PublicKeyBytes, report.PrivateKeyBytes, report.CiphertextBytes)
		fmt.Printf("  Security: %.1f bits (enumeration), %.1f bits (Prange)\n",
			report.Security.EnumerationBits, report.Security.PrangeBits)
		if report.Attack != nil {
			fmt.Printf("  Attack:   %d/%d recovered, %v (avg), %.1f attempts (avg)\n",
				report.Attack.Recovered, report.Attack.Count, report.Attack.Mean, report.Attack.MeanAttempts)
		}
		fmt.Println()
	}

	if csvFile != "" {
		f, err := os.Create(csvFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating CSV file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		if err := bench.WriteCSV(f, reports); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing CSV: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote %s\n", csvFile)
	}

	fmt.Println("Benchmark complete!")
}

func cmdInfo(args []string) {
	config := parseConfig(args)

	base, err := core.GetParams(config.Variant)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	params, err := core.Expand(base, config.Blocks)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	kp, err := mceliece.GenerateKeyPairFromSeed(config.Variant, config.Blocks, []byte("info-sizing-seed"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	export := InfoExport{
		Params:          params,
		PublicKeyBytes:  len(mceliece.SerializePublicKey(&kp.Public)),
		PrivateKeyBytes: len(mceliece.SerializePrivateKey(&kp.Private)),
		CiphertextBytes: len(mceliece.SerializeCiphertext(gf2.NewVector(params.N))),
		ExpansionRatio:  float64(params.N) / float64(params.K),
		Security:        bench.EstimateSecurity(params.N, params.K, params.T),
	}

	output, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling output: %v\n", err)
		os.Exit(1)
	}

	writeOutput(output, config.OutputFile)
}

// ============================================================================
// Utility Functions
// ============================================================================

func parseConfig(args []string) CLIConfig {
	config := CLIConfig{
		Variant:      mcecascade.Hamming,
		Blocks:       4,
		OutputFormat: FormatBase64,
	}

	variant := getArg(args, "--variant", "-V")
	switch variant {
	case "hamming", string(mcecascade.Hamming):
		config.Variant = mcecascade.Hamming
	case "bch", string(mcecascade.BCH):
		config.Variant = mcecascade.BCH
	case "":
		// No variant specified, use default
	default:
		fmt.Fprintf(os.Stderr, "Error: invalid variant '%s'. Must be one of: hamming, bch\n", variant)
		os.Exit(1)
	}

	format := getArg(args, "--format", "-f")
	switch format {
	case "hex":
		config.OutputFormat = FormatHex
	case "base64":
		config.OutputFormat = FormatBase64
	case "":
		// No format specified, use default
	default:
		fmt.Fprintf(os.Stderr, "Error: invalid format '%s'. Must be one of: hex, base64\n", format)
		os.Exit(1)
	}

	config.Blocks = intArg(args, "--blocks", "-b", config.Blocks)
	config.OutputFile = getArg(args, "--output", "-o")
	config.Verbose = hasFlag(args, "--verbose", "-v")
	config.Timing = hasFlag(args, "--timing", "-t")

	return config
}

func getArg(args []string, long, short string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == long || args[i] == short {
			return args[i+1]
		}
	}
	return ""
}

func hasFlag(args []string, long, short string) bool {
	for _, arg := range args {
		if arg == long || arg == short {
			return true
		}
	}
	return false
}

func intArg(args []string, long, short string, def int) int {
	s := getArg(args, long, short)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s expects an integer, got %q\n", long, s)
		os.Exit(1)
	}
	return v
}

func makeRand(seedStr string) *utils.Rand {
	if seedStr != "" {
		v, err := strconv.ParseInt(seedStr, 10, 64)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid seed %q: %v\n", seedStr, err)
			os.Exit(1)
		}
		return utils.NewRandFromInt(v)
	}
	rng, err := utils.NewSystemRand()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing randomness: %v\n", err)
		os.Exit(1)
	}
	return rng
}

func parseBits(s string) (gf2.Vector, error) {
	bits := make([]uint8, 0, len(s))
	for _, c := range s {
		switch c {
		case '0':
			bits = append(bits, 0)
		case '1':
			bits = append(bits, 1)
		case ' ', '_':
			// Grouping characters are ignored.
		default:
			return gf2.Vector{}, fmt.Errorf("message must be a bit string, found %q", c)
		}
	}
	if len(bits) == 0 {
		return gf2.Vector{}, errors.New("message bit string is empty")
	}
	return gf2.VectorFromBits(bits), nil
}

func loadPublicKey(path string) *mcecascade.PublicKey {
	data, err := loadFromFile(path, "public_key")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading public key: %v\n", err)
		os.Exit(1)
	}
	pub, err := mceliece.DeserializePublicKey(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error deserializing public key: %v\n", err)
		os.Exit(1)
	}
	return pub
}

func loadPrivateKey(path string) *mcecascade.PrivateKey {
	data, err := loadFromFile(path, "private_key")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading private key: %v\n", err)
		os.Exit(1)
	}
	priv, err := mceliece.DeserializePrivateKey(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error deserializing private key: %v\n", err)
		os.Exit(1)
	}
	return priv
}

func loadCiphertext(path string) gf2.Vector {
	data, err := loadFromFile(path, "ciphertext")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading ciphertext: %v\n", err)
		os.Exit(1)
	}
	ct, err := mceliece.DeserializeCiphertext(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error deserializing ciphertext: %v\n", err)
		os.Exit(1)
	}
	return ct
}

// loadFromFile reads an encoded binary blob: either a JSON export
// carrying field, or a bare base64/hex string.
func loadFromFile(path, field string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var export map[string]any
	if err := json.Unmarshal(data, &export); err == nil {
		v, ok := export[field].(string)
		if !ok || v == "" {
			return nil, fmt.Errorf("no %q field in %s", field, path)
		}
		return decodeString(v)
	}
	return decodeString(strings.TrimSpace(string(data)))
}

func encodeBytes(data []byte, format OutputFormat) string {
	if format == FormatHex {
		return hex.EncodeToString(data)
	}
	return base64.StdEncoding.EncodeToString(data)
}

func decodeString(s string) ([]byte, error) {
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	if b, err := hex.DecodeString(s); err == nil {
		return b, nil
	}
	return nil, errors.New("input is neither base64 nor hex")
}

func writeOutput(data []byte, outputFile string) {
	if outputFile != "" {
		if err := os.WriteFile(outputFile, data, 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing output file: %v\n", err)
			os.Exit(1)
		}
		return
	}
	fmt.Println(string(data))
}
