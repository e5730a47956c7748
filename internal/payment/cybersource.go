package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"

	"delegate-portal/internal/models"
)

const (
	DecisionAccept = "ACCEPT"
	DecisionReject = "REJECT"
)

// fields the dispatcher acts on; they must be covered by the signature.
var cyberSourceRequiredSigned = []string{"reference_number", "decision"}

type CyberSource struct {
	secret []byte
}

func NewCyberSource(secretKey string) *CyberSource {
	return &CyberSource{secret: []byte(secretKey)}
}

// SignedFieldNames splits the comma separated signed_field_names value.
func SignedFieldNames(fields map[string]string) []string {
	raw := fields["signed_field_names"]
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			names = append(names, p)
		}
	}
	return names
}

// CanonicalString joins name=value pairs for names, in order, with commas.
func CanonicalString(fields map[string]string, names []string) string {
	pairs := make([]string, len(names))
	for i, n := range names {
		pairs[i] = n + "=" + fields[n]
	}
	return strings.Join(pairs, ",")
}

func (c *CyberSource) Sign(fields map[string]string, names []string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(CanonicalString(fields, names)))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the signature over exactly the names listed in
// signed_field_names.
func (c *CyberSource) Verify(fields map[string]string) error {
	names := SignedFieldNames(fields)
	if len(names) == 0 {
		return fmt.Errorf("%w: signed_field_names", ErrMissingField)
	}
	sig := fields["signature"]
	if sig == "" {
		return fmt.Errorf("%w: signature", ErrMissingField)
	}

	expected := c.Sign(fields, names)
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return ErrSignatureMismatch
	}

	signed := make(map[string]struct{}, len(names))
	for _, n := range names {
		signed[n] = struct{}{}
	}
	for _, req := range cyberSourceRequiredSigned {
		if _, ok := signed[req]; !ok {
			return fmt.Errorf("%w: %s not signed", ErrSignatureMismatch, req)
		}
	}
	return nil
}

// MapCyberSourceDecision never fails: anything other than ACCEPT or REJECT
// keeps the order waiting for payment.
func MapCyberSourceDecision(decision string) models.OrderStatus {
	switch strings.TrimSpace(decision) {
	case DecisionAccept:
		return models.OrderStatusPaid
	case DecisionReject:
		return models.OrderStatusPaymentFailed
	default:
		return models.OrderStatusPaymentPending
	}
}
