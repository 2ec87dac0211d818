package signing

import (
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const Issuer = "offersync"

// Claims bind a detached signature to one export payload.
type Claims struct {
	PayloadSHA256 string `json:"payload_sha256"`
	OfferCount    int    `json:"offer_count"`
	RunID         string `json:"run_id,omitempty"`
	jwt.RegisteredClaims
}

var ErrPayloadMismatch = errors.New("payload does not match signature")

func PayloadDigest(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// SignExport returns an RS256 JWT whose claims carry the digest of payload.
func SignExport(priv *rsa.PrivateKey, payload []byte, offerCount int, runID string, now time.Time) (string, error) {
	if priv == nil {
		return "", errors.New("private key is nil")
	}

	c := Claims{
		PayloadSHA256: PayloadDigest(payload),
		OfferCount:    offerCount,
		RunID:         runID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   Issuer,
			IssuedAt: jwt.NewNumericDate(now.UTC()),
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, c)
	return tok.SignedString(priv)
}

// VerifyExport checks the token signature and that it was issued for payload.
func VerifyExport(tokenString string, payload []byte, pub *rsa.PublicKey) (*Claims, error) {
	if pub == nil {
		return nil, errors.New("public key is nil")
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Name}),
		jwt.WithIssuer(Issuer),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(30*time.Second),
	)

	tok, err := parser.ParseWithClaims(strings.TrimSpace(tokenString), &Claims{}, func(t *jwt.Token) (any, error) {
		return pub, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, errors.New("invalid token")
	}

	if claims.PayloadSHA256 != PayloadDigest(payload) {
		return nil, ErrPayloadMismatch
	}

	return claims, nil
}

// ParseRSAPrivateKeyPEM accepts PKCS#1 and PKCS#8 keys, also as single-line PEM with \n escapes.
func ParseRSAPrivateKeyPEM(raw []byte) (*rsa.PrivateKey, error) {
	text := strings.ReplaceAll(strings.TrimSpace(string(raw)), `\n`, "\n")

	block, _ := pem.Decode([]byte(text))
	if block == nil {
		return nil, errors.New("pem decode failed")
	}

	switch block.Type {
	case "RSA PRIVATE KEY":
		priv, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse pkcs1 private key failed: %w", err)
		}
		return priv, nil

	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse pkcs8 private key failed: %w", err)
		}
		priv, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, errors.New("pkcs8 key is not rsa")
		}
		return priv, nil

	default:
		return nil, fmt.Errorf("unsupported pem type: %s", block.Type)
	}
}

func LoadRSAPrivateKeyFile(path string) (*rsa.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	return ParseRSAPrivateKeyPEM(raw)
}

func LoadRSAPublicKeyFile(path string) (*rsa.PublicKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read public key: %w", err)
	}

	raw = []byte(strings.ReplaceAll(strings.TrimSpace(string(raw)), `\n`, "\n"))

	pub, err := jwt.ParseRSAPublicKeyFromPEM(raw)
	if err != nil {
		return nil, fmt.Errorf("parse public key pem failed: %w", err)
	}
	return pub, nil
}
