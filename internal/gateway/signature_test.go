package gateway

import (
	"crypto/sha256"
	"crypto/sha512"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleAnswer = `{"shopId":"12345678","orderCycle":"CLOSED","orderStatus":"PAID","serverDate":"2026-10-15T12:00:00+00:00",` +
	`"orderDetails":{"orderTotalAmount":15000,"orderCurrency":"PEN","orderId":"0b7e6f6a-8c7d-4f1e-9a2b-3c4d5e6f7a8b"},` +
	`"transactions":[{"uuid":"5b4f1c0e9d2a4f3b8c7d6e5f4a3b2c1d","amount":15000,"currency":"PEN","status":"PAID","detailedStatus":"AUTHORISED"}]}`

func body(answer, hash, hashKey string) []byte {
	form := url.Values{}
	if answer != "" {
		form.Set(FieldAnswer, answer)
	}
	if hash != "" {
		form.Set(FieldHash, hash)
	}
	if hashKey != "" {
		form.Set(FieldHashKey, hashKey)
	}
	return []byte(form.Encode())
}

func TestParseNotification(t *testing.T) {
	n, err := ParseNotification(body(sampleAnswer, "abcd", "sha256_hmac"))
	require.NoError(t, err)
	assert.Equal(t, sampleAnswer, n.Answer)
	assert.Equal(t, "abcd", n.Hash)
	assert.Equal(t, "sha256_hmac", n.HashKey)
}

func TestParseNotification_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		raw     []byte
		wantErr error
	}{
		{"nil body", nil, ErrEmptyBody},
		{"blank body", []byte("  \n"), ErrEmptyBody},
		{"bad encoding", []byte("kr-answer=%zz"), ErrMissingField},
		{"no answer", body("", "abcd", "sha256_hmac"), ErrMissingField},
		{"no hash", body(sampleAnswer, "", "sha256_hmac"), ErrMissingField},
		{"no hash key", body(sampleAnswer, "abcd", ""), ErrMissingField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseNotification(tt.raw)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestVerifier_Verify(t *testing.T) {
	v := NewHMACSHA256Verifier(map[string]string{
		"sha256_hmac": "hmac-secret",
		"password":    "rest-password",
	})

	for _, hashKey := range []string{"sha256_hmac", "password"} {
		t.Run(hashKey, func(t *testing.T) {
			secret := map[string]string{"sha256_hmac": "hmac-secret", "password": "rest-password"}[hashKey]
			hash := SignHex(SigningKey{Secret: []byte(secret), Hash: sha256.New}, sampleAnswer)

			n, err := ParseNotification(body(sampleAnswer, hash, hashKey))
			require.NoError(t, err)

			answer, err := v.Verify(n)
			require.NoError(t, err)
			assert.True(t, answer.IsPaid())
			assert.Equal(t, "0b7e6f6a-8c7d-4f1e-9a2b-3c4d5e6f7a8b", answer.CorrelationID())
			assert.Equal(t, "5b4f1c0e9d2a4f3b8c7d6e5f4a3b2c1d", answer.ChargeID())
			assert.Equal(t, int64(15000), answer.OrderDetails.OrderTotalAmount)
		})
	}
}

func TestVerifier_AcceptsUppercaseHex(t *testing.T) {
	key := SigningKey{Secret: []byte("hmac-secret"), Hash: sha256.New}
	v := NewVerifier(map[string]SigningKey{"sha256_hmac": key})

	hash := SignHex(key, sampleAnswer)
	upper := []byte(hash)
	for i, c := range upper {
		if c >= 'a' && c <= 'f' {
			upper[i] = c - 'a' + 'A'
		}
	}

	_, err := v.Verify(Notification{Answer: sampleAnswer, Hash: string(upper), HashKey: "sha256_hmac"})
	assert.NoError(t, err)
}

func TestVerifier_Rejects(t *testing.T) {
	key := SigningKey{Secret: []byte("hmac-secret"), Hash: sha256.New}
	v := NewVerifier(map[string]SigningKey{
		"sha256_hmac": key,
		"sha512_hmac": {Secret: []byte("hmac-secret"), Hash: sha512.New},
	})
	valid := SignHex(key, sampleAnswer)

	tampered := []byte(sampleAnswer)
	tampered[len(tampered)-3] = 'X'

	tests := []struct {
		name    string
		n       Notification
		wantErr error
	}{
		{
			name:    "tampered answer",
			n:       Notification{Answer: string(tampered), Hash: valid, HashKey: "sha256_hmac"},
			wantErr: ErrSignatureMismatch,
		},
		{
			name:    "wrong secret",
			n:       Notification{Answer: sampleAnswer, Hash: SignHex(SigningKey{Secret: []byte("other"), Hash: sha256.New}, sampleAnswer), HashKey: "sha256_hmac"},
			wantErr: ErrSignatureMismatch,
		},
		{
			name:    "digest from another algorithm",
			n:       Notification{Answer: sampleAnswer, Hash: valid, HashKey: "sha512_hmac"},
			wantErr: ErrSignatureMismatch,
		},
		{
			name:    "not hex",
			n:       Notification{Answer: sampleAnswer, Hash: "zz-not-hex", HashKey: "sha256_hmac"},
			wantErr: ErrSignatureMismatch,
		},
		{
			name:    "truncated digest",
			n:       Notification{Answer: sampleAnswer, Hash: valid[:32], HashKey: "sha256_hmac"},
			wantErr: ErrSignatureMismatch,
		},
		{
			name:    "unknown hash key",
			n:       Notification{Answer: sampleAnswer, Hash: valid, HashKey: "md5"},
			wantErr: ErrUnknownHashKey,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			answer, err := v.Verify(tt.n)
			assert.Nil(t, answer)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestVerifier_SignedButMalformed(t *testing.T) {
	key := SigningKey{Secret: []byte("hmac-secret"), Hash: sha256.New}
	v := NewVerifier(map[string]SigningKey{"sha256_hmac": key})

	for _, answer := range []string{`{"orderStatus":`, `{"shopId":"12345678"}`} {
		_, err := v.Verify(Notification{Answer: answer, Hash: SignHex(key, answer), HashKey: "sha256_hmac"})
		assert.ErrorIs(t, err, ErrMalformedAnswer, answer)
	}
}

func TestAnswer_Accessors(t *testing.T) {
	a := &Answer{OrderStatus: OrderStatusUnpaid}
	assert.False(t, a.IsPaid())
	assert.Empty(t, a.CorrelationID())
	assert.Empty(t, a.ChargeID())

	a.Transactions = []Transaction{{UUID: ""}, {UUID: "tx-2"}}
	assert.Equal(t, "tx-2", a.ChargeID())
}
