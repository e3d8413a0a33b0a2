package altcha

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"playaviva-leads/pkg/store"
	"playaviva-leads/pkg/utils"
)

const redeemedPrefix = "altcha:redeemed:"

// Verifier holds the server secret and, optionally, a store used to refuse
// a second redemption of the same solved challenge before it expires.
type Verifier struct {
	Secret  string
	TTL     time.Duration
	MaxSkew time.Duration

	// Redeemed is nil when challenges are verified statelessly.
	Redeemed store.Interface

	Now func() time.Time
}

func (v *Verifier) now() time.Time {
	if v.Now != nil {
		return v.Now()
	}
	return time.Now()
}

// Issue mints a new challenge with the configured TTL.
func (v *Verifier) Issue() (*Challenge, error) {
	c, err := Mint(v.Secret, Options{TTL: v.TTL, Now: v.Now})
	if err != nil {
		return nil, err
	}

	challengesIssued.Inc()
	return c, nil
}

// Check verifies payload and, when a redemption store is configured, marks it
// as spent. Store failures fail closed.
func (v *Verifier) Check(ctx context.Context, lg *logrus.Entry, payload string) bool {
	skew := v.MaxSkew
	if skew == 0 {
		skew = DefaultMaxSkew
	}

	ok, p := verify(payload, v.Secret, VerifyOptions{MaxSkew: skew, Now: v.Now})
	if !ok {
		verifications.WithLabelValues("rejected").Inc()
		return false
	}

	if v.Redeemed == nil {
		verifications.WithLabelValues("accepted").Inc()
		return true
	}

	key := redeemedPrefix + utils.HashString(*p.Challenge+":"+*p.Salt)

	_, err := v.Redeemed.Get(ctx, key)
	switch {
	case err == nil:
		lg.Warn("altcha payload replayed")
		verifications.WithLabelValues("replayed").Inc()
		return false
	case !errors.Is(err, store.ErrNotFound):
		lg.WithError(err).Error("can't look up redeemed challenge")
		verifications.WithLabelValues("error").Inc()
		return false
	}

	ttl := ExpiresAt(*p.Salt).Add(skew).Sub(v.now())
	if ttl <= 0 {
		ttl = skew
	}

	if err := v.Redeemed.Set(ctx, key, []byte("1"), ttl); err != nil {
		lg.WithError(err).Error("can't record redeemed challenge")
		verifications.WithLabelValues("error").Inc()
		return false
	}

	verifications.WithLabelValues("accepted").Inc()
	return true
}
