package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"

	"github.com/angelmondragon/carline-backend/pkg/config"
)

// ErrInvalidHash signals a stored hash that is neither argon2id nor bcrypt.
var ErrInvalidHash = errors.New("invalid password hash")

const argonPrefix = "$argon2id$"

// ArgonParams are the cost settings encoded into every argon2id hash.
type ArgonParams struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLen     uint32
	KeyLen      uint32
}

// ParamsFromConfig clamps the configured costs to sane bounds.
func ParamsFromConfig(cfg config.PasswordConfig) ArgonParams {
	return ArgonParams{
		Memory:      clamp(cfg.ArgonMemoryKB, 8, 512*1024),
		Time:        clamp(cfg.ArgonTime, 1, 10),
		Parallelism: uint8(clamp(cfg.ArgonParallelism, 1, 255)),
		SaltLen:     clamp(cfg.ArgonSaltLen, 8, 64),
		KeyLen:      clamp(cfg.ArgonKeyLen, 16, 64),
	}
}

func clamp(v, lo, hi int) uint32 {
	return uint32(max(lo, min(v, hi)))
}

// HashPassword returns a PHC formatted argon2id hash
// ($argon2id$v=19$m=..,t=..,p=..$salt$key).
func HashPassword(password string, cfg config.PasswordConfig) (string, error) {
	if password == "" {
		return "", errors.New("password cannot be empty")
	}
	p := ParamsFromConfig(cfg)
	salt := make([]byte, p.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	key := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Parallelism, p.KeyLen)
	b64 := base64.RawStdEncoding
	return fmt.Sprintf("%sv=%d$m=%d,t=%d,p=%d$%s$%s",
		argonPrefix, argon2.Version, p.Memory, p.Time, p.Parallelism,
		b64.EncodeToString(salt), b64.EncodeToString(key)), nil
}

// VerifyPassword checks password against an argon2id or bcrypt hash. A
// mismatch is (false, nil); only a malformed hash returns an error.
func VerifyPassword(password, encoded string) (bool, error) {
	if isBcryptHash(encoded) {
		err := bcrypt.CompareHashAndPassword([]byte(encoded), []byte(password))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		if err != nil {
			return false, ErrInvalidHash
		}
		return true, nil
	}

	p, salt, key, err := decodeArgon(encoded)
	if err != nil {
		return false, err
	}
	computed := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Parallelism, p.KeyLen)
	return subtle.ConstantTimeCompare(key, computed) == 1, nil
}

// NeedsRehash reports whether encoded should be replaced after a successful
// login: bcrypt imports, and argon2id hashes weaker than the current config.
func NeedsRehash(encoded string, cfg config.PasswordConfig) bool {
	if isBcryptHash(encoded) {
		return true
	}
	have, _, _, err := decodeArgon(encoded)
	if err != nil {
		return false
	}
	want := ParamsFromConfig(cfg)
	return have.Memory < want.Memory || have.Time < want.Time || have.KeyLen < want.KeyLen
}

func decodeArgon(encoded string) (ArgonParams, []byte, []byte, error) {
	var p ArgonParams
	if !strings.HasPrefix(encoded, argonPrefix) {
		return p, nil, nil, ErrInvalidHash
	}
	parts := strings.Split(strings.TrimPrefix(encoded, argonPrefix), "$")
	if len(parts) != 4 {
		return p, nil, nil, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[0], "v=%d", &version); err != nil || version != argon2.Version {
		return p, nil, nil, ErrInvalidHash
	}
	if _, err := fmt.Sscanf(parts[1], "m=%d,t=%d,p=%d", &p.Memory, &p.Time, &p.Parallelism); err != nil {
		return p, nil, nil, ErrInvalidHash
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[2])
	if err != nil {
		return p, nil, nil, ErrInvalidHash
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[3])
	if err != nil || len(key) == 0 {
		return p, nil, nil, ErrInvalidHash
	}
	p.SaltLen = uint32(len(salt))
	p.KeyLen = uint32(len(key))
	return p, salt, key, nil
}

func isBcryptHash(encoded string) bool {
	for _, prefix := range []string{"$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(encoded, prefix) {
			return true
		}
	}
	return false
}
