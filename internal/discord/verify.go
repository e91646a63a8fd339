package discord

import (
	"crypto/ed25519"
	"encoding/hex"
)

// VerifySignature checks an interaction webhook signature. The signed
// message is the timestamp header concatenated with the raw request body;
// publicKeyHex and signatureHex come from the application config and the
// X-Signature-Ed25519 header respectively.
func VerifySignature(publicKeyHex, timestamp string, body []byte, signatureHex string) bool {
	pub, err := hex.DecodeString(publicKeyHex)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return false
	}
	sig, err := hex.DecodeString(signatureHex)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false
	}

	msg := make([]byte, 0, len(timestamp)+len(body))
	msg = append(msg, timestamp...)
	msg = append(msg, body...)
	return ed25519.Verify(ed25519.PublicKey(pub), msg, sig)
}
