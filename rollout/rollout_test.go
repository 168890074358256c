package rollout

import "testing"

// Bucket values here are shared fixtures across implementations of the
// same scheme; they must never change.
func TestBucketVectors(t *testing.T) {
	tests := []struct {
		flag, salt, key string
		want            uint64
	}{
		{"FF-test-rollout", "", "user-123", 46118},
		{"FF-test-rollout", "", "user-456", 69367},
		{"FF-new-checkout", "", "user-789", 37913},
		{"FF-test-rollout", "exp1", "alice", 77285},
		{"FF-test", "", "alice", 72469},
	}
	for _, tt := range tests {
		t.Run(Key(tt.flag, tt.salt, tt.key), func(t *testing.T) {
			if got := Bucket(tt.flag, tt.salt, tt.key); got != tt.want {
				t.Errorf("Bucket(%q, %q, %q) = %d, want %d", tt.flag, tt.salt, tt.key, got, tt.want)
			}
		})
	}
}

func TestEnabled(t *testing.T) {
	tests := []struct {
		name            string
		rate            float64
		flag, salt, key string
		want            bool
	}{
		{"half includes low bucket", 50, "FF-test-rollout", "", "user-123", true},
		{"half excludes high bucket", 50, "FF-test-rollout", "", "user-456", false},
		{"boundary is exclusive", 46.118, "FF-test-rollout", "", "user-123", false},
		{"just above boundary", 46.2, "FF-test-rollout", "", "user-123", true},
		{"salt shifts the bucket", 50, "FF-test-rollout", "exp1", "alice", false},
		{"zero never matches", 0, "FF-test-rollout", "", "user-123", false},
		{"hundred always matches", 100, "FF-test-rollout", "", "user-456", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Enabled(tt.rate, tt.flag, tt.salt, tt.key); got != tt.want {
				t.Errorf("Enabled(%v) = %v, want %v", tt.rate, got, tt.want)
			}
		})
	}
}

func TestEnabledMonotonic(t *testing.T) {
	keys := []string{"alice", "bob", "carol", "user-123", "user-456"}
	for _, key := range keys {
		prev := false
		for rate := 0.0; rate <= 100; rate += 12.5 {
			got := Enabled(rate, "FF-mono", "", key)
			if prev && !got {
				t.Errorf("key %q flipped off between rates at %v", key, rate)
			}
			prev = got
		}
	}
}
