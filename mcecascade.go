// Package mcecascade implements a block-cascade McEliece cryptosystem
// and its matching ISD/MMT attacker.
// This file provides the high-level map of the module; users import the
// sub-packages directly.
package mcecascade

// Version of the mceliece-cascade Go implementation.
const Version = "1.0.2"

// API summary:
//
// Cryptosystem:
//   - mceliece.GenerateKeyPair(variant, L) - Generate a cascade keypair
//   - mceliece.GenerateKeyPairFromSeed(variant, L, seed) - Reproducible keygen
//   - mceliece.Encrypt(pub, msg) - Encode and inject per-block errors
//   - mceliece.Decrypt(priv, pub, ct) - Un-permute, decode blocks, unscramble
//
// Attacker:
//   - isd.Attack(pub, ct, t, maxIter, rng) - Information-set decoding (MMT)
//   - isd.AttackParallel(ctx, pub, ct, t, maxIter, workers, seed)
//
// Parameters:
//   - core.GetParams(variant) - Base-code triple for a variant
//   - core.Expand(params, L) - Cascade dimensions for L block copies
//
// Measurement:
//   - bench.Run(cfg) - Latency/success-rate/attack-cost report
//   - bench.EstimateSecurity(n, k, t) - Enumeration and Prange bounds
