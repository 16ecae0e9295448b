package paymentController

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func signPayload(payload []byte, secret string, ts int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func TestVerifyStripeSignature(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	secret := "whsec_test"

	header := signPayload(payload, secret, time.Now().Unix())
	assert.NoError(t, verifyStripeSignature(payload, header, secret))

	assert.Error(t, verifyStripeSignature(payload, header, "whsec_other"),
		"wrong secret")
	assert.Error(t, verifyStripeSignature([]byte(`{}`), header, secret),
		"tampered payload")
	assert.Error(t, verifyStripeSignature(payload, "v1=deadbeef", secret),
		"missing timestamp")
	assert.Error(t, verifyStripeSignature(payload, "", secret),
		"empty header")
}

func TestVerifyStripeSignatureRejectsSkewedTimestamps(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	secret := "whsec_test"

	stale := signPayload(payload, secret, time.Now().Add(-10*time.Minute).Unix())
	assert.Error(t, verifyStripeSignature(payload, stale, secret))

	// A correctly signed header dated in the future is outside the window too.
	future := signPayload(payload, secret, time.Now().Add(10*time.Minute).Unix())
	assert.Error(t, verifyStripeSignature(payload, future, secret))

	recent := signPayload(payload, secret, time.Now().Add(-time.Minute).Unix())
	assert.NoError(t, verifyStripeSignature(payload, recent, secret))
}
