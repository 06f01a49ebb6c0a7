package provider

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signPayload(t *testing.T, payload []byte, secret string) string {
	t.Helper()
	timestamp := fmt.Sprintf("%d", time.Now().Unix())
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp + "."))
	mac.Write(payload)
	return fmt.Sprintf("t=%s,v1=%s", timestamp, hex.EncodeToString(mac.Sum(nil)))
}

func TestVerifyAndDecode(t *testing.T) {
	payload := []byte(`{
		"id": "evt_123",
		"type": "checkout.session.completed",
		"account": "acct_1",
		"data": {"object": {"id": "cs_1", "payment_status": "paid", "metadata": {"orderId": "order-42"}}}
	}`)

	t.Run("accepts valid signature", func(t *testing.T) {
		header := signPayload(t, payload, "whsec_a")

		event, err := VerifyAndDecode(payload, header, []string{"whsec_a"})
		require.NoError(t, err)
		assert.Equal(t, "evt_123", event.ID)
		assert.Equal(t, "checkout.session.completed", event.Type)
		assert.Equal(t, "acct_1", event.Account)
		assert.Equal(t, "order-42", event.OrderID())
		assert.Equal(t, "paid", event.Data.Object.RawStatus())
		assert.JSONEq(t, string(payload), string(event.Raw()))
	})

	t.Run("accepts signature from rotated secret", func(t *testing.T) {
		header := signPayload(t, payload, "whsec_old")

		event, err := VerifyAndDecode(payload, header, []string{"whsec_new", "whsec_old"})
		require.NoError(t, err)
		assert.Equal(t, "evt_123", event.ID)
	})

	t.Run("rejects wrong secret", func(t *testing.T) {
		header := signPayload(t, payload, "whsec_other")

		_, err := VerifyAndDecode(payload, header, []string{"whsec_a"})
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("rejects tampered payload", func(t *testing.T) {
		header := signPayload(t, payload, "whsec_a")
		tampered := append([]byte(nil), payload...)
		tampered[len(tampered)-2] = 'X'

		_, err := VerifyAndDecode(tampered, header, []string{"whsec_a"})
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("rejects malformed header", func(t *testing.T) {
		for _, header := range []string{"", "t=123", "v1=abcd", "t=123,v1=zz-not-hex", "nonsense"} {
			_, err := VerifyAndDecode(payload, header, []string{"whsec_a"})
			assert.ErrorIs(t, err, ErrInvalidSignature, "header %q", header)
		}
	})
}

func TestParseSecrets(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, ParseSecrets("a, b"))
	assert.Equal(t, []string{"only"}, ParseSecrets("only"))
	assert.Nil(t, ParseSecrets(""))
	assert.Nil(t, ParseSecrets(" , ,"))
}

func TestEventOrderID(t *testing.T) {
	event := &Event{}
	assert.Empty(t, event.OrderID())

	event.Data.Object.ClientReferenceID = "ref-1"
	assert.Equal(t, "ref-1", event.OrderID())

	event.Data.Object.Metadata = map[string]string{"orderId": "meta-1"}
	assert.Equal(t, "meta-1", event.OrderID(), "metadata takes precedence over client reference id")
}
