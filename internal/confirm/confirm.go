// Package confirm issues and verifies confirmation codes for destructive
// trade operations. A code is a fernet token binding the trade ID and the
// intended operation, so a code issued for soft-deleting trade 7 cannot be
// replayed to purge trade 8, and codes expire after the configured TTL.
package confirm

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fernet/fernet-go"

	"github.com/quantlog/trade-ledger-backend/internal/apperrors"
)

// Intents accepted in confirmation codes.
const (
	IntentSoftDelete = "soft_delete"
	IntentRestore    = "restore"
	IntentPurge      = "purge"
)

type payload struct {
	TradeID int64  `json:"tradeId"`
	Intent  string `json:"intent"`
}

// Signer issues and verifies confirmation codes.
type Signer struct {
	key *fernet.Key
	ttl time.Duration
}

// NewSigner builds a Signer from a base64 fernet key. An empty key generates
// a fresh one, which makes codes valid only for the current process lifetime.
func NewSigner(encodedKey string, ttl time.Duration) (*Signer, error) {
	var key *fernet.Key
	if encodedKey == "" {
		key = &fernet.Key{}
		if err := key.Generate(); err != nil {
			return nil, fmt.Errorf("failed to generate confirmation key: %w", err)
		}
	} else {
		decoded, err := fernet.DecodeKey(encodedKey)
		if err != nil {
			return nil, fmt.Errorf("failed to decode confirmation key: %w", err)
		}
		key = decoded
	}

	return &Signer{key: key, ttl: ttl}, nil
}

// Issue returns a confirmation code for the given trade and intent.
func (s *Signer) Issue(tradeID int64, intent string) (string, error) {
	msg, err := json.Marshal(payload{TradeID: tradeID, Intent: intent})
	if err != nil {
		return "", fmt.Errorf("failed to encode confirmation payload: %w", err)
	}

	token, err := fernet.EncryptAndSign(msg, s.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign confirmation code: %w", err)
	}
	return string(token), nil
}

// Verify checks that code is a live token issued for exactly this trade and
// intent.
func (s *Signer) Verify(code string, tradeID int64, intent string) error {
	msg := fernet.VerifyAndDecrypt([]byte(code), s.ttl, []*fernet.Key{s.key})
	if msg == nil {
		return fmt.Errorf("%w: code expired or not issued by this server", apperrors.ErrInvalidConfirmation)
	}

	var p payload
	if err := json.Unmarshal(msg, &p); err != nil {
		return fmt.Errorf("%w: malformed payload", apperrors.ErrInvalidConfirmation)
	}
	if p.TradeID != tradeID || p.Intent != intent {
		return fmt.Errorf("%w: code was issued for a different operation", apperrors.ErrInvalidConfirmation)
	}
	return nil
}
