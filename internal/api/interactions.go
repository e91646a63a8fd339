package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/kalambet/pulse/internal/discord"
)

// handleInteractions terminates the chat platform webhook. Signature
// verification runs before any parsing when a public key is configured.
func handleInteractions(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		body, err := io.ReadAll(r.Body)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "reading request body: %v", err)
			return
		}

		if deps.DiscordPublicKey != "" {
			sig := r.Header.Get("X-Signature-Ed25519")
			ts := r.Header.Get("X-Signature-Timestamp")
			if !discord.VerifySignature(deps.DiscordPublicKey, ts, body, sig) {
				httpError(w, http.StatusUnauthorized, "invalid_signature", "invalid request signature")
				return
			}
		}

		var in discord.Interaction
		if err := json.Unmarshal(body, &in); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid interaction payload: %v", err)
			return
		}

		writeJSON(w, deps.Interactions.Handle(in))
	}
}
