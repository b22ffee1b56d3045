// Package nstest contains helpers shared across netsync tests.
package nstest

import (
	"crypto/sha256"
	"log/slog"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/neilotoole/slogt"
)

// NewLogger returns a logger that writes through t.Log,
// so output is attributed to the test that produced it.
func NewLogger(t testing.TB) *slog.Logger {
	t.Helper()
	return slogt.New(t)
}

// RandomDataForTest returns a byte slice of size sz
// containing pseudorandom data, derived from a seed based on the test name.
func RandomDataForTest(t testing.TB, sz int) []byte {
	// Sha256 happens to be the right size for the chacha8 seed,
	// and this fits well anyway since that means
	// we are not limited by the length of any particular test name.
	seed := sha256.Sum256([]byte(t.Name()))
	chacha := rand.NewChaCha8(seed)

	out := make([]byte, sz)

	if _, err := chacha.Read(out); err != nil {
		panic(err)
	}

	return out
}

// ScaleDuration is the arbitrary upper bound for "soon" operations
// in tests that depend on real sockets.
const ScaleDuration = 2 * time.Second

// PollSoon calls fn until it reports true,
// failing the test if that does not happen within [ScaleDuration].
// The value from the successful call is returned.
func PollSoon[T any](t testing.TB, fn func() (T, bool)) T {
	t.Helper()

	deadline := time.Now().Add(ScaleDuration)
	for {
		if v, ok := fn(); ok {
			return v
		}
		if time.Now().After(deadline) {
			t.Fatalf("value not available within %s", ScaleDuration)
			var zero T
			return zero
		}
		time.Sleep(time.Millisecond)
	}
}
