package chain

import "testing"

func TestIsUnsupportedSubscriptionError(t *testing.T) {
	cases := map[string]bool{
		"Method not found":             true,
		"logsSubscribe is unsupported": true,
		"unknown method logsSubscribe": true,
		"invalid params":               false,
		"internal error":               false,
	}
	for msg, want := range cases {
		if got := isUnsupportedSubscriptionError(msg); got != want {
			t.Errorf("isUnsupportedSubscriptionError(%q) = %v, want %v", msg, got, want)
		}
	}
}
