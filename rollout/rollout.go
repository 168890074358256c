// Package rollout implements deterministic percentage bucketing. The
// same flag name, salt and key always land in the same bucket, in this
// and in every other implementation of the scheme, so gradual rollouts
// stay stable across processes and languages.
package rollout

import (
	"crypto/sha1"
	"encoding/hex"
	"strconv"
)

// Buckets is the size of the bucket space. Rates carry 0.001%
// granularity: rate*1000 against a bucket in [0, Buckets).
const Buckets = 100000

// Key builds the canonical hash input for a flag, optional salt and
// bucket key, joined with literal dots.
func Key(flagName, salt, bucketKey string) string {
	if salt == "" {
		return flagName + "." + bucketKey
	}
	return flagName + "." + salt + "." + bucketKey
}

// Bucket maps the canonical key into [0, Buckets). The digest is SHA-1,
// lower-case hex; the first 15 hex characters are read as a base-16
// integer and reduced modulo the bucket space. Fifteen characters keep
// the value inside 60 bits, so the parse cannot overflow a uint64.
func Bucket(flagName, salt, bucketKey string) uint64 {
	sum := sha1.Sum([]byte(Key(flagName, salt, bucketKey)))
	digest := hex.EncodeToString(sum[:])
	n, err := strconv.ParseUint(digest[:15], 16, 64)
	if err != nil {
		// 15 hex digits always parse; unreachable.
		return 0
	}
	return n % Buckets
}

// Enabled reports whether the key falls inside a rate-percent rollout.
// A rate of 100 covers every bucket and a rate of 0 covers none.
func Enabled(rate float64, flagName, salt, bucketKey string) bool {
	if rate <= 0 {
		return false
	}
	if rate >= 100 {
		return true
	}
	return Bucket(flagName, salt, bucketKey) < uint64(rate*1000)
}
