package paymentgateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

var ErrSignatureMismatch = errors.New("signature mismatch")

// Sign returns the lowercase hex HMAC-SHA256 of payload, the encoding the
// gateway uses for both checkout signatures and webhook signatures.
func Sign(secret string, payload []byte) string {
	return hex.EncodeToString(mac(secret, payload))
}

func mac(secret string, payload []byte) []byte {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return h.Sum(nil)
}

// verify compares in constant time over the decoded digest.
func verify(secret string, payload []byte, signature string) error {
	if secret == "" || signature == "" {
		return ErrSignatureMismatch
	}
	supplied, err := hex.DecodeString(signature)
	if err != nil {
		return ErrSignatureMismatch
	}
	if !hmac.Equal(mac(secret, payload), supplied) {
		return ErrSignatureMismatch
	}
	return nil
}

// PaymentSignaturePayload is the message signed for a checkout confirmation.
func PaymentSignaturePayload(orderID, paymentID string) []byte {
	return []byte(orderID + "|" + paymentID)
}

// VerifyPaymentSignature checks a checkout confirmation against the key secret.
func (c *Client) VerifyPaymentSignature(orderID, paymentID, signature string) error {
	return verify(c.keySecret, PaymentSignaturePayload(orderID, paymentID), signature)
}

// VerifyWebhookSignature checks the raw webhook body against the webhook
// secret. It must run before the body is parsed.
func (c *Client) VerifyWebhookSignature(body []byte, signature string) error {
	return verify(c.webhookSecret, body, signature)
}
