package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"net/url"
	"strings"
)

const (
	FieldAnswer  = "kr-answer"
	FieldHash    = "kr-hash"
	FieldHashKey = "kr-hash-key"
)

var (
	ErrEmptyBody         = errors.New("empty notification body")
	ErrMissingField      = errors.New("missing notification field")
	ErrUnknownHashKey    = errors.New("unknown hash key")
	ErrSignatureMismatch = errors.New("signature mismatch")
	ErrMalformedAnswer   = errors.New("malformed answer")
)

// Notification is the URL-encoded IPN body before authentication
type Notification struct {
	Answer  string
	Hash    string
	HashKey string
}

// ParseNotification extracts the three signed fields from the raw body
func ParseNotification(raw []byte) (Notification, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return Notification{}, ErrEmptyBody
	}

	form, err := url.ParseQuery(string(raw))
	if err != nil {
		return Notification{}, fmt.Errorf("%w: %v", ErrMissingField, err)
	}

	n := Notification{
		Answer:  form.Get(FieldAnswer),
		Hash:    form.Get(FieldHash),
		HashKey: form.Get(FieldHashKey),
	}

	required := []struct{ name, value string }{
		{FieldAnswer, n.Answer},
		{FieldHash, n.Hash},
		{FieldHashKey, n.HashKey},
	}
	for _, f := range required {
		if f.value == "" {
			return n, fmt.Errorf("%w: %s", ErrMissingField, f.name)
		}
	}

	return n, nil
}

// SigningKey is one algorithm/secret pair the gateway may sign with
type SigningKey struct {
	Secret []byte
	Hash   func() hash.Hash
}

// Verifier authenticates notifications against a table of signing keys
// selected by kr-hash-key. It holds no mutable state.
type Verifier struct {
	keys map[string]SigningKey
}

func NewVerifier(keys map[string]SigningKey) *Verifier {
	return &Verifier{keys: keys}
}

// NewHMACSHA256Verifier builds the table from plain secrets
func NewHMACSHA256Verifier(secrets map[string]string) *Verifier {
	keys := make(map[string]SigningKey, len(secrets))
	for id, secret := range secrets {
		keys[id] = SigningKey{Secret: []byte(secret), Hash: sha256.New}
	}
	return NewVerifier(keys)
}

// Verify recomputes the keyed digest over kr-answer and, only when it matches,
// returns the parsed answer.
func (v *Verifier) Verify(n Notification) (*Answer, error) {
	key, ok := v.keys[n.HashKey]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownHashKey, n.HashKey)
	}

	supplied, err := hex.DecodeString(strings.TrimSpace(n.Hash))
	if err != nil {
		return nil, ErrSignatureMismatch
	}

	if !hmac.Equal(Sign(key, n.Answer), supplied) {
		return nil, ErrSignatureMismatch
	}

	return parseAnswer(n.Answer)
}

// Sign computes the raw digest of answer with key
func Sign(key SigningKey, answer string) []byte {
	mac := hmac.New(key.Hash, key.Secret)
	mac.Write([]byte(answer))
	return mac.Sum(nil)
}

// SignHex is Sign hex encoded, as the gateway sends it in kr-hash
func SignHex(key SigningKey, answer string) string {
	return hex.EncodeToString(Sign(key, answer))
}
