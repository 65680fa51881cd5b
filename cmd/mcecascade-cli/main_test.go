package main_test

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// Helper types for unmarshaling JSON responses
type keyPairExport struct {
	Variant     string `json:"variant"`
	Blocks      int    `json:"blocks"`
	PublicKey   string `json:"public_key"`
	PrivateKey  string `json:"private_key"`
	CreatedAt   string `json:"created_at"`
	Fingerprint string `json:"fingerprint"`
}

type ciphertextExport struct {
	Message    string `json:"message"`
	Ciphertext string `json:"ciphertext"`
}

type decryptionExport struct {
	Message  string `json:"message"`
	DecodeOK bool   `json:"decode_ok"`
}

type attackExport struct {
	Found    bool   `json:"found"`
	Message  string `json:"message"`
	Attempts int    `json:"attempts"`
}

// runCLI executes the mcecascade-cli via `go run ./cmd/mcecascade-cli` from the repository root.
func runCLI(t *testing.T, timeout time.Duration, args ...string) (stdout string, stderr string, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	cmdArgs := append([]string{"run", "./cmd/mcecascade-cli"}, args...)
	cmd := exec.CommandContext(ctx, "go", cmdArgs...)
	// ensure we run from repo root (cmd/mcecascade-cli tests are executed from that directory)
	cmd.Dir = filepath.Join("..", "..")
	out, err := cmd.CombinedOutput()
	if err != nil {
		return string(out), string(out), err
	}
	return string(out), "", nil
}

func TestHelpAndVersion(t *testing.T) {
	stdout, _, err := runCLI(t, 10*time.Second, "help")
	if err != nil {
		t.Fatalf("help command failed: %v, out: %s", err, stdout)
	}
	if !strings.Contains(stdout, "mcecascade-cli - McEliece cascade") {
		t.Fatalf("help output does not contain expected header, got: %s", stdout)
	}

	stdout, _, err = runCLI(t, 10*time.Second, "version")
	if err != nil {
		t.Fatalf("version command failed: %v, out: %s", err, stdout)
	}
	if !strings.Contains(stdout, "version") {
		t.Fatalf("version output unexpected: %s", stdout)
	}
}

func TestKeygenEncryptDecrypt(t *testing.T) {
	dir := t.TempDir()
	kpFile := filepath.Join(dir, "keypair.json")
	ctFile := filepath.Join(dir, "ct.json")

	// Keygen
	_, stderr, err := runCLI(t, 30*time.Second, "keygen", "--variant", "hamming", "--blocks", "4", "--output", kpFile)
	if err != nil {
		t.Fatalf("keygen failed: %v, stderr: %s", err, stderr)
	}

	// Encrypt a random message
	_, stderr, err = runCLI(t, 30*time.Second, "encrypt", "--public-key", kpFile, "--random", "--seed", "7", "--output", ctFile)
	if err != nil {
		t.Fatalf("encrypt failed: %v, stderr: %s", err, stderr)
	}

	ctData, err := os.ReadFile(ctFile)
	if err != nil {
		t.Fatalf("failed to read ciphertext file: %v", err)
	}
	var ct ciphertextExport
	if err := json.Unmarshal(ctData, &ct); err != nil {
		t.Fatalf("unable to parse encrypt output as json: %v, out: %s", err, string(ctData))
	}
	if ct.Message == "" || ct.Ciphertext == "" {
		t.Fatalf("encrypt output missing message or ciphertext: %v", ct)
	}

	// Decrypt
	stdout, stderr, err := runCLI(t, 30*time.Second, "decrypt",
		"--private-key", kpFile, "--public-key", kpFile, "--ciphertext", ctFile)
	if err != nil {
		t.Fatalf("decrypt failed: %v, stderr: %s, stdout: %s", err, stderr, stdout)
	}

	var dec decryptionExport
	if err := json.Unmarshal([]byte(stdout), &dec); err != nil {
		t.Fatalf("unable to parse decrypt output as json: %v, out: %s", err, stdout)
	}
	if !dec.DecodeOK {
		t.Fatalf("decrypt reported decode failure: %v", dec)
	}
	if dec.Message != ct.Message {
		t.Fatalf("decrypted message mismatch: expected %q got %q", ct.Message, dec.Message)
	}
}

func TestKeygenDeterministic(t *testing.T) {
	stdout1, stderr, err := runCLI(t, 30*time.Second, "keygen", "--variant", "bch", "--blocks", "2", "--seed", "42")
	if err != nil {
		t.Fatalf("first keygen failed: %v, stderr: %s", err, stderr)
	}
	stdout2, stderr, err := runCLI(t, 30*time.Second, "keygen", "--variant", "bch", "--blocks", "2", "--seed", "42")
	if err != nil {
		t.Fatalf("second keygen failed: %v, stderr: %s", err, stderr)
	}

	var kp1, kp2 keyPairExport
	if err := json.Unmarshal([]byte(stdout1), &kp1); err != nil {
		t.Fatalf("unable to parse first keygen output: %v, out: %s", err, stdout1)
	}
	if err := json.Unmarshal([]byte(stdout2), &kp2); err != nil {
		t.Fatalf("unable to parse second keygen output: %v, out: %s", err, stdout2)
	}

	if kp1.PublicKey != kp2.PublicKey {
		t.Fatalf("seeded keygen not reproducible: public keys differ")
	}
	if kp1.PrivateKey != kp2.PrivateKey {
		t.Fatalf("seeded keygen not reproducible: private keys differ")
	}
	if kp1.Fingerprint != kp2.Fingerprint {
		t.Fatalf("seeded keygen not reproducible: fingerprints differ")
	}
}

func TestAttackRecoversMessage(t *testing.T) {
	dir := t.TempDir()
	kpFile := filepath.Join(dir, "keypair.json")
	ctFile := filepath.Join(dir, "ct.json")

	// Small single-block instance the attack solves quickly
	_, stderr, err := runCLI(t, 30*time.Second, "keygen", "--variant", "hamming", "--blocks", "1", "--seed", "1", "--output", kpFile)
	if err != nil {
		t.Fatalf("keygen failed: %v, stderr: %s", err, stderr)
	}
	_, stderr, err = runCLI(t, 30*time.Second, "encrypt", "--public-key", kpFile, "--random", "--seed", "5", "--output", ctFile)
	if err != nil {
		t.Fatalf("encrypt failed: %v, stderr: %s", err, stderr)
	}

	ctData, err := os.ReadFile(ctFile)
	if err != nil {
		t.Fatalf("failed to read ciphertext file: %v", err)
	}
	var ct ciphertextExport
	if err := json.Unmarshal(ctData, &ct); err != nil {
		t.Fatalf("unable to parse encrypt output: %v", err)
	}

	stdout, stderr, err := runCLI(t, 60*time.Second, "attack",
		"--public-key", kpFile, "--ciphertext", ctFile, "--seed", "9", "--workers", "1")
	if err != nil {
		t.Fatalf("attack failed: %v, stderr: %s, stdout: %s", err, stderr, stdout)
	}

	var atk attackExport
	if err := json.Unmarshal([]byte(stdout), &atk); err != nil {
		t.Fatalf("unable to parse attack output as json: %v, out: %s", err, stdout)
	}
	if !atk.Found {
		t.Fatalf("attack did not recover the message: %v", atk)
	}
	if atk.Message != ct.Message {
		t.Fatalf("attack recovered wrong message: expected %q got %q", ct.Message, atk.Message)
	}
	if atk.Attempts < 1 {
		t.Fatalf("attack reported nonpositive attempts: %d", atk.Attempts)
	}
}

func TestOutputFormatHex(t *testing.T) {
	stdout, stderr, err := runCLI(t, 30*time.Second, "keygen", "--blocks", "1", "--format", "hex")
	if err != nil {
		t.Fatalf("keygen with hex format failed: %v, stderr: %s", err, stderr)
	}

	var kp keyPairExport
	if err := json.Unmarshal([]byte(stdout), &kp); err != nil {
		t.Fatalf("unable to parse keygen output as json: %v, out: %s", err, stdout)
	}

	if _, err := hex.DecodeString(kp.PublicKey); err != nil {
		t.Fatalf("public key is not valid hex: %v", err)
	}
	if _, err := hex.DecodeString(kp.PrivateKey); err != nil {
		t.Fatalf("private key is not valid hex: %v", err)
	}
}

func TestOutputFormatBase64(t *testing.T) {
	stdout, stderr, err := runCLI(t, 30*time.Second, "keygen", "--blocks", "1", "--format", "base64")
	if err != nil {
		t.Fatalf("keygen with base64 format failed: %v, stderr: %s", err, stderr)
	}

	var kp keyPairExport
	if err := json.Unmarshal([]byte(stdout), &kp); err != nil {
		t.Fatalf("unable to parse keygen output as json: %v, out: %s", err, stdout)
	}

	if _, err := base64.StdEncoding.DecodeString(kp.PublicKey); err != nil {
		t.Fatalf("public key is not valid base64: %v", err)
	}
	if _, err := base64.StdEncoding.DecodeString(kp.PrivateKey); err != nil {
		t.Fatalf("private key is not valid base64: %v", err)
	}
}

func TestInfoCommand(t *testing.T) {
	stdout, stderr, err := runCLI(t, 30*time.Second, "info", "--variant", "bch", "--blocks", "4")
	if err != nil {
		t.Fatalf("info command failed: %v, stderr: %s", err, stderr)
	}

	var info map[string]interface{}
	if err := json.Unmarshal([]byte(stdout), &info); err != nil {
		t.Fatalf("unable to parse info output as json: %v, out: %s", err, stdout)
	}

	expectedFields := []string{"params", "public_key_bytes", "private_key_bytes", "ciphertext_bytes", "expansion_ratio", "security"}
	for _, field := range expectedFields {
		if _, ok := info[field]; !ok {
			t.Fatalf("info output missing field '%s': %v", field, info)
		}
	}

	params, ok := info["params"].(map[string]interface{})
	if !ok {
		t.Fatalf("info params is not an object: %v", info["params"])
	}
	if n, _ := params["n"].(float64); n != 60 {
		t.Fatalf("info reported n=%v for bch with 4 blocks, want 60", params["n"])
	}
}

func TestBenchmarkCommand(t *testing.T) {
	benchOut, stderr, err := runCLI(t, 120*time.Second, "benchmark",
		"--variant", "hamming", "--blocks-list", "1,2", "--trials", "3")
	if err != nil {
		t.Fatalf("benchmark command failed: %v, stderr: %s, out: %s", err, stderr, benchOut)
	}

	expectedSections := []string{"Benchmark Results", "KeyGen", "Encrypt", "Decrypt", "Security"}
	for _, section := range expectedSections {
		if !strings.Contains(benchOut, section) {
			t.Fatalf("benchmark output missing expected section '%s': %s", section, benchOut)
		}
	}
}

func TestBenchmarkCSVOutput(t *testing.T) {
	dir := t.TempDir()
	csvFile := filepath.Join(dir, "results.csv")

	_, stderr, err := runCLI(t, 120*time.Second, "benchmark",
		"--variant", "bch", "--blocks-list", "1", "--trials", "2", "--csv", csvFile)
	if err != nil {
		t.Fatalf("benchmark with csv failed: %v, stderr: %s", err, stderr)
	}

	content, err := os.ReadFile(csvFile)
	if err != nil {
		t.Fatalf("failed to read CSV output: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header plus one record in CSV, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "variant,blocks,n,k,t") {
		t.Fatalf("unexpected CSV header: %s", lines[0])
	}
}

// ============================================================================
// Error Handling and Edge Cases
// ============================================================================

func TestMissingRequiredFlag(t *testing.T) {
	// Encrypt without required --public-key flag
	_, _, err := runCLI(t, 30*time.Second, "encrypt", "--random")
	if err == nil {
		t.Fatalf("expected encrypt without public-key to fail, but it succeeded")
	}
}

func TestInvalidVariant(t *testing.T) {
	_, _, err := runCLI(t, 30*time.Second, "keygen", "--variant", "golay")
	if err == nil {
		t.Fatalf("expected keygen with unknown variant to fail, but it succeeded")
	}
}

func TestInvalidMessageBits(t *testing.T) {
	dir := t.TempDir()
	kpFile := filepath.Join(dir, "keypair.json")

	_, stderr, err := runCLI(t, 30*time.Second, "keygen", "--blocks", "1", "--output", kpFile)
	if err != nil {
		t.Fatalf("keygen failed: %v, stderr: %s", err, stderr)
	}

	_, _, err = runCLI(t, 30*time.Second, "encrypt", "--public-key", kpFile, "--message", "01x10")
	if err == nil {
		t.Fatalf("expected encrypt with malformed bit string to fail, but it succeeded")
	}

	// Wrong length is rejected by the cryptosystem
	_, _, err = runCLI(t, 30*time.Second, "encrypt", "--public-key", kpFile, "--message", "0101")
	if err == nil {
		t.Fatalf("expected encrypt with wrong-length message to fail, but it succeeded")
	}
}

func TestUnknownCommand(t *testing.T) {
	_, _, err := runCLI(t, 10*time.Second, "frobnicate")
	if err == nil {
		t.Fatalf("expected unknown command to fail, but it succeeded")
	}
}
