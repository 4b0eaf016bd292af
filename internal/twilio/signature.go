// Package twilio verifies the authenticity of inbound voice webhooks.
package twilio

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/http"
	"net/url"
	"sort"

	"github.com/afierro/coverline/internal/observability"
)

// SignatureHeader carries Twilio's request signature.
const SignatureHeader = "X-Twilio-Signature"

// Signature computes the expected X-Twilio-Signature for a callback URL and
// its POST parameters: HMAC-SHA1 over the URL concatenated with every
// key+value pair in lexical key order, base64 encoded.
func Signature(authToken, callbackURL string, params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	payload := callbackURL
	for _, k := range keys {
		for _, v := range params[k] {
			payload += k + v
		}
	}

	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(payload))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Validate reports whether the presented signature matches the expected one.
func Validate(authToken, callbackURL string, params url.Values, signature string) bool {
	if signature == "" {
		return false
	}
	expected := Signature(authToken, callbackURL, params)
	return hmac.Equal([]byte(signature), []byte(expected))
}

// VerifyMiddleware rejects webhooks whose signature does not verify against
// the shared auth token. baseURL is the externally visible origin Twilio was
// configured with; the request path and query complete the signed URL.
func VerifyMiddleware(authToken, baseURL string, metrics *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := r.ParseForm(); err != nil {
				http.Error(w, "bad form", http.StatusBadRequest)
				return
			}
			callbackURL := baseURL + r.URL.RequestURI()
			if !Validate(authToken, callbackURL, r.PostForm, r.Header.Get(SignatureHeader)) {
				metrics.WebhookRejections.WithLabelValues("signature").Inc()
				http.Error(w, "invalid twilio signature", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
