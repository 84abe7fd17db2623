package api

import (
	"net/http"
	"strings"

	"global-relay/pkg/auth"
)

// WalletHeader carries the caller's wallet address on authenticated calls.
const WalletHeader = "X-Wallet-Address"

// walletFromRequest returns the caller's wallet from the header, or from a
// session token issued at registration. Empty when the caller sent neither;
// handlers treat an absent wallet as an anonymous caller rather than an error
// (it simply resolves to no registration).
func walletFromRequest(r *http.Request) string {
	if w := r.Header.Get(WalletHeader); w != "" {
		return w
	}
	authz := r.Header.Get("Authorization")
	if strings.HasPrefix(authz, "Bearer ") {
		if claims, err := auth.ParseToken(strings.TrimPrefix(authz, "Bearer ")); err == nil {
			return claims.Wallet
		}
	}
	return ""
}
