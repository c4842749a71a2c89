// Package auth implements keypair request signing for the Backend.AI API.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"

	"backendai-proxy-go/internal/config"
)

// Signer produces the Date, X-BackendAI-Version and Authorization headers
// for outbound API requests using HMAC-SHA256 over a canonical request form.
type Signer struct {
	accessKey  string
	secretKey  string
	apiVersion string

	now func() time.Time // replaced in tests
}

// NewSigner creates a Signer from the configured keypair.
func NewSigner(cfg *config.Config) *Signer {
	return &Signer{
		accessKey:  cfg.Backend.AccessKey,
		secretKey:  cfg.Backend.SecretKey,
		apiVersion: cfg.Backend.APIVersion,
		now:        time.Now,
	}
}

// Sign adds the signing headers to header for a request of the given method
// against relURL (path plus raw query) on host. contentType is the canonical
// media type fed to the signature; the raw Content-Type header value is left
// untouched so multipart boundary strings survive verbatim.
func (s *Signer) Sign(header http.Header, method, relURL, host, contentType string) {
	date := s.now().UTC().Format(time.RFC3339)

	canonical := strings.Join([]string{
		strings.ToUpper(method),
		relURL,
		date,
		"host:" + host,
		"content-type:" + strings.ToLower(contentType),
		"x-backendai-version:" + s.apiVersion,
	}, "\n")

	kDate := hmacSHA256([]byte(s.secretKey), []byte(date))
	sig := hex.EncodeToString(hmacSHA256(kDate, []byte(canonical)))

	header.Set("Date", date)
	header.Set("X-BackendAI-Version", s.apiVersion)
	header.Set("Authorization",
		fmt.Sprintf("BackendAI signMethod=HMAC-SHA256, credential=%s:%s", s.accessKey, sig))
}

func hmacSHA256(key, data []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return mac.Sum(nil)
}
