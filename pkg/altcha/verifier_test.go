package altcha

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"playaviva-leads/pkg/store/memory"
)

func TestVerifierStateless(t *testing.T) {
	v := &Verifier{Secret: testSecret}
	c, n := mintSolved(t, time.Now())
	payload := payloadFor(t, c, n)
	lg := logrus.NewEntry(logrus.New())

	for i := range 2 {
		if !v.Check(t.Context(), lg, payload) {
			t.Fatalf("check %d failed, stateless verification should accept replays", i)
		}
	}
}

func TestVerifierRejectsReplay(t *testing.T) {
	v := &Verifier{Secret: testSecret, Redeemed: memory.New(t.Context())}
	c, n := mintSolved(t, time.Now())
	payload := payloadFor(t, c, n)
	lg := logrus.NewEntry(logrus.New())

	if !v.Check(t.Context(), lg, payload) {
		t.Fatal("first redemption failed")
	}

	if v.Check(t.Context(), lg, payload) {
		t.Error("second redemption of the same payload succeeded")
	}

	other, m := mintSolved(t, time.Now())
	if !v.Check(t.Context(), lg, payloadFor(t, other, m)) {
		t.Error("a different challenge was rejected")
	}
}

func TestVerifierIssue(t *testing.T) {
	v := &Verifier{Secret: testSecret, TTL: time.Minute}
	c, err := v.Issue()
	if err != nil {
		t.Fatal(err)
	}

	if got := time.Until(ExpiresAt(c.Salt)); got > time.Minute || got < 55*time.Second {
		t.Errorf("wanted expiry about a minute out, got %s", got)
	}

	if _, err := (&Verifier{}).Issue(); err != ErrNoSecret {
		t.Errorf("wanted ErrNoSecret, got %v", err)
	}
}
