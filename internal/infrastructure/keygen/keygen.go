// Package keygen mints and parses Atlas API keys.
//
// A key has five dash-separated parts:
//
//	{type}-{service}-{version}-{short_token}-{secret}
//	sk-atlas-v1-9c41e07d2b3a-Qm3v...
//
// The short token is stored in clear and indexed for lookup; only a
// BLAKE2b-256 digest of the secret is stored.
package keygen

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/rezkam/atlas/internal/domain"
)

// Defaults used by atlasctl when minting keys.
const (
	DefaultType    = "sk"
	DefaultService = "atlas"
	DefaultVersion = "v1"
)

const (
	secretBytes     = 32
	shortTokenBytes = 6
	partCount       = 5
)

// Parts holds the components of an API key.
type Parts struct {
	Type       string
	Service    string
	Version    string
	ShortToken string
	Secret     string
	Full       string
}

// Generate mints a new key. The short token is the first 48 bits of the
// secret's BLAKE2b digest, so it inherits the secret's entropy.
func Generate(keyType, service, version string) (*Parts, error) {
	raw := make([]byte, secretBytes)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("failed to read random bytes: %w", err)
	}
	secret := base64.RawURLEncoding.EncodeToString(raw)

	digest := blake2b.Sum256([]byte(secret))
	short := hex.EncodeToString(digest[:shortTokenBytes])

	return &Parts{
		Type:       keyType,
		Service:    service,
		Version:    version,
		ShortToken: short,
		Secret:     secret,
		Full:       strings.Join([]string{keyType, service, version, short, secret}, "-"),
	}, nil
}

// Parse splits a presented key. The secret is base64url and may itself
// contain dashes, so only the first four separators are significant.
func Parse(key string) (*Parts, error) {
	fields := strings.SplitN(key, "-", partCount)
	if len(fields) != partCount {
		return nil, fmt.Errorf("%w: expected %d parts, got %d", domain.ErrInvalidAPIKeyFormat, partCount, len(fields))
	}
	for i, f := range fields {
		if f == "" {
			return nil, fmt.Errorf("%w: part %d is empty", domain.ErrInvalidAPIKeyFormat, i+1)
		}
	}

	return &Parts{
		Type:       fields[0],
		Service:    fields[1],
		Version:    fields[2],
		ShortToken: fields[3],
		Secret:     fields[4],
		Full:       key,
	}, nil
}

// Display renders the key without its secret, e.g. "sk-atlas-v1-9c41e07d2b3a-****".
func (p *Parts) Display() string {
	return fmt.Sprintf("%s-%s-%s-%s-****", p.Type, p.Service, p.Version, p.ShortToken)
}

// Hash returns the hex BLAKE2b-256 digest stored for a secret.
func Hash(secret string) string {
	digest := blake2b.Sum256([]byte(secret))
	return hex.EncodeToString(digest[:])
}

// Mask returns a form of key safe to log: its type prefix only.
func Mask(key string) string {
	p, err := Parse(key)
	if err != nil {
		return "***"
	}
	return p.Type + "-***"
}
