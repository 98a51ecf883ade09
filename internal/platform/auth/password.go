package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// LegacySeedHash is the stored hash of historical seeded demo accounts
// (admin1 and friends). Verify accepts exactly the plaintext "secret" for
// rows carrying this value. Kept verbatim for seed-data compatibility.
const LegacySeedHash = "2bb80d537b1da3e38bd30361aa855686bde0eacd7162fef6a25fe97bf527a25b"

const legacySeedPassword = "secret"

const (
	pbkdf2Prefix     = "pbkdf2_sha256"
	pbkdf2SaltBytes  = 16
	pbkdf2KeyLen     = 32
	defaultPBKDF2Its = 390000
)

// Hasher derives and checks password hashes using PBKDF2-SHA256. PBKDF2 was
// chosen over bcrypt to avoid a native backend while still being an iterated,
// salted KDF. The encoded form is "pbkdf2_sha256$<iterations>$<salt>$<digest>".
type Hasher struct {
	iterations int
}

func NewHasher(iterations int) *Hasher {
	if iterations <= 0 {
		iterations = defaultPBKDF2Its
	}
	return &Hasher{iterations: iterations}
}

// Hash derives a salted PBKDF2-SHA256 hash of plaintext.
func (h *Hasher) Hash(plaintext string) (string, error) {
	salt := make([]byte, pbkdf2SaltBytes)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	key := pbkdf2.Key([]byte(plaintext), salt, h.iterations, pbkdf2KeyLen, sha256.New)
	return fmt.Sprintf("%s$%d$%s$%s",
		pbkdf2Prefix,
		h.iterations,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether plaintext matches the stored hash. It never returns
// an error: malformed stored values degrade to false. Formats are tried in
// order: native PBKDF2, the legacy seed constant, then a bare 64-hex-char
// SHA-256 digest.
func (h *Hasher) Verify(plaintext, stored string) bool {
	if strings.HasPrefix(stored, pbkdf2Prefix+"$") {
		return verifyPBKDF2(plaintext, stored)
	}

	if stored == LegacySeedHash {
		return plaintext == legacySeedPassword
	}

	if isHexDigest(stored) {
		sum := sha256.Sum256([]byte(plaintext))
		return subtle.ConstantTimeCompare([]byte(hex.EncodeToString(sum[:])), []byte(strings.ToLower(stored))) == 1
	}

	return false
}

func verifyPBKDF2(plaintext, stored string) bool {
	parts := strings.Split(stored, "$")
	if len(parts) != 4 {
		return false
	}

	iterations, err := strconv.Atoi(parts[1])
	if err != nil || iterations <= 0 {
		return false
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[2])
	if err != nil {
		return false
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[3])
	if err != nil || len(want) == 0 {
		return false
	}

	got := pbkdf2.Key([]byte(plaintext), salt, iterations, len(want), sha256.New)
	return subtle.ConstantTimeCompare(got, want) == 1
}

func isHexDigest(s string) bool {
	if len(s) != 64 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
