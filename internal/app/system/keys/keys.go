// Package keys derives the server's signing keys from the configured
// session key and mints the opaque tokens used for magic links and refresh
// credentials.
package keys

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// TokenBytes is the entropy of every opaque token.
const TokenBytes = 32

// Keys are independent keys derived from one secret.
type Keys struct {
	JWT         []byte // HS256 access credentials
	CookieHash  []byte // securecookie HMAC
	CookieBlock []byte // securecookie AES-256
}

// Derive expands secret into the keys the server needs. Each key uses its
// own HKDF info label, so leaking one does not reveal the others.
func Derive(secret string) (Keys, error) {
	if secret == "" {
		return Keys{}, errors.New("session key is empty; provide ≥32 random chars")
	}
	var k Keys
	for _, d := range []struct {
		info string
		dst  *[]byte
		n    int
	}{
		{"groupshare access jwt", &k.JWT, 32},
		{"groupshare cookie hash", &k.CookieHash, 64},
		{"groupshare cookie block", &k.CookieBlock, 32},
	} {
		buf := make([]byte, d.n)
		r := hkdf.New(sha256.New, []byte(secret), nil, []byte(d.info))
		if _, err := io.ReadFull(r, buf); err != nil {
			return Keys{}, fmt.Errorf("derive %s: %w", d.info, err)
		}
		*d.dst = buf
	}
	return k, nil
}

// NewToken returns a fresh URL-safe token with TokenBytes of entropy.
func NewToken() (string, error) {
	b := make([]byte, TokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Hash returns the storage form of a token. Only hashes are persisted.
func Hash(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
