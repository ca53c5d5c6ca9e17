// Package fingerprint models the structured device characteristics collected
// from browsers and provides the pure functions the trust engine is built on:
// canonical content hashing, weighted similarity scoring and single-submission
// anomaly detection.
//
// Nothing in this package reads or writes persisted state, so every function
// here is safe to call concurrently.
//
// # Basic Usage
//
//	hash, err := fingerprint.Hash(chars)
//
//	score, err := fingerprint.Similarity(stored, presented)
//	if score >= 95 {
//		// same device within tolerance
//	}
//
//	anomalies := fingerprint.DetectAnomalies(presented)
//	if len(anomalies) > 0 {
//		// advisory signals, combined downstream
//	}
package fingerprint
