package utils

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"math/big"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
)

// Digests use the "pbkdf2:<hash>:<iterations>$<salt>$<hex>" layout so that
// accounts created by earlier Werkzeug-based deployments keep working.
const (
	pbkdf2Iterations = 600000
	saltLength       = 8
	saltChars        = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

var errMalformedDigest = errors.New("malformed password digest")

// HashPassword derives a salted PBKDF2-SHA256 digest of password.
func HashPassword(password string) (string, error) {
	salt, err := randomSalt(saltLength)
	if err != nil {
		return "", err
	}
	sum := pbkdf2.Key([]byte(password), []byte(salt), pbkdf2Iterations, sha256.Size, sha256.New)
	return fmt.Sprintf("pbkdf2:sha256:%d$%s$%s", pbkdf2Iterations, salt, hex.EncodeToString(sum)), nil
}

// CheckPassword reports whether password matches digest. Bcrypt digests are accepted as well.
// Malformed digests never match.
func CheckPassword(digest, password string) bool {
	if strings.HasPrefix(digest, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
	}
	method, salt, want, err := splitDigest(digest)
	if err != nil {
		return false
	}
	newHash, size, iterations, err := parseMethod(method)
	if err != nil {
		return false
	}
	got := pbkdf2.Key([]byte(password), []byte(salt), iterations, size, newHash)
	return hmac.Equal(got, want)
}

func splitDigest(digest string) (method, salt string, sum []byte, err error) {
	parts := strings.Split(digest, "$")
	if len(parts) != 3 {
		return "", "", nil, errMalformedDigest
	}
	sum, err = hex.DecodeString(parts[2])
	if err != nil || len(sum) == 0 {
		return "", "", nil, errMalformedDigest
	}
	return parts[0], parts[1], sum, nil
}

func parseMethod(method string) (func() hash.Hash, int, int, error) {
	parts := strings.Split(method, ":")
	if len(parts) != 3 || parts[0] != "pbkdf2" {
		return nil, 0, 0, errMalformedDigest
	}
	iterations, err := strconv.Atoi(parts[2])
	if err != nil || iterations <= 0 {
		return nil, 0, 0, errMalformedDigest
	}
	switch parts[1] {
	case "sha256":
		return sha256.New, sha256.Size, iterations, nil
	case "sha512":
		return sha512.New, sha512.Size, iterations, nil
	case "sha1":
		return sha1.New, sha1.Size, iterations, nil
	}
	return nil, 0, 0, errMalformedDigest
}

func randomSalt(n int) (string, error) {
	b := make([]byte, n)
	limit := big.NewInt(int64(len(saltChars)))
	for i := range b {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		b[i] = saltChars[idx.Int64()]
	}
	return string(b), nil
}
