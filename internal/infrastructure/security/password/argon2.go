// Package password hashes and verifies user passwords.
//
// New hashes are argon2id encoded in PHC string format:
//
//	$argon2id$v=19$m=65536,t=3,p=4$<salt>$<key>
//
// The cost parameters travel with each hash, so raising them only affects
// hashes produced afterwards. Legacy bcrypt hashes ($2a$, $2b$, $2y$) are
// accepted by Verify but never produced.
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"

	"github.com/99minutos/credential-service/internal/core/domain"
)

const (
	algorithmID = "argon2id"

	// MaxPasswordBytes bounds the input accepted by Hash.
	MaxPasswordBytes = 4096

	minMemoryKB    uint32 = 8 * 1024
	minIterations  uint32 = 1
	minParallelism uint8  = 1
	saltLength            = 16
	keyLength             = 32
)

// ErrPasswordTooLong is returned by Hash for input over MaxPasswordBytes.
// It wraps domain.ErrPasswordTooLong.
var ErrPasswordTooLong = fmt.Errorf("%w: exceeds %d bytes", domain.ErrPasswordTooLong, MaxPasswordBytes)

// Config holds the argon2id cost parameters used for new hashes.
type Config struct {
	MemoryKB    uint32
	Iterations  uint32
	Parallelism uint8
}

// DefaultConfig mirrors the argon2-cffi defaults: 64 MiB, 3 passes, 4 lanes.
func DefaultConfig() Config {
	return Config{MemoryKB: 64 * 1024, Iterations: 3, Parallelism: 4}
}

// Hasher implements ports.PasswordHasher. It holds no mutable state and is
// safe for concurrent use.
type Hasher struct {
	cfg  Config
	rand io.Reader
}

// NewHasher validates cfg and returns a Hasher.
func NewHasher(cfg Config) (*Hasher, error) {
	if cfg.MemoryKB < minMemoryKB {
		return nil, fmt.Errorf("%w: argon2 memory must be >= %d KiB", domain.ErrConfiguration, minMemoryKB)
	}
	if cfg.Iterations < minIterations {
		return nil, fmt.Errorf("%w: argon2 iterations must be >= %d", domain.ErrConfiguration, minIterations)
	}
	if cfg.Parallelism < minParallelism {
		return nil, fmt.Errorf("%w: argon2 parallelism must be >= %d", domain.ErrConfiguration, minParallelism)
	}
	return &Hasher{cfg: cfg, rand: rand.Reader}, nil
}

// Hash derives a new argon2id hash with a fresh random salt.
func (h *Hasher) Hash(password string) (string, error) {
	if len(password) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}

	salt := make([]byte, saltLength)
	if _, err := io.ReadFull(h.rand, salt); err != nil {
		return "", fmt.Errorf("read salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, h.cfg.Iterations, h.cfg.MemoryKB, h.cfg.Parallelism, keyLength)

	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		h.cfg.MemoryKB,
		h.cfg.Iterations,
		h.cfg.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether password matches encoded. Any parse failure or
// unknown algorithm is reported as a mismatch.
func (h *Hasher) Verify(password, encoded string) bool {
	if len(password) > MaxPasswordBytes {
		return false
	}
	if isBcrypt(encoded) {
		return bcrypt.CompareHashAndPassword([]byte(encoded), []byte(password)) == nil
	}

	parsed, err := parsePHC(encoded)
	if err != nil {
		return false
	}

	computed := argon2.IDKey([]byte(password), parsed.salt, parsed.iterations, parsed.memoryKB, parsed.parallelism, uint32(len(parsed.key)))
	return subtle.ConstantTimeCompare(computed, parsed.key) == 1
}

func isBcrypt(encoded string) bool {
	return strings.HasPrefix(encoded, "$2a$") ||
		strings.HasPrefix(encoded, "$2b$") ||
		strings.HasPrefix(encoded, "$2y$")
}

type phc struct {
	memoryKB    uint32
	iterations  uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

func parsePHC(encoded string) (*phc, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, errors.New("invalid PHC format")
	}
	if parts[1] != algorithmID {
		return nil, errors.New("unsupported algorithm")
	}

	version, err := strconv.Atoi(strings.TrimPrefix(parts[2], "v="))
	if err != nil || !strings.HasPrefix(parts[2], "v=") {
		return nil, errors.New("invalid argon2 version")
	}
	if version != argon2.Version {
		return nil, errors.New("unsupported argon2 version")
	}

	out := &phc{}
	if err := parseParams(parts[3], out); err != nil {
		return nil, err
	}

	if out.salt, err = decodeSegment(parts[4]); err != nil || len(out.salt) < 8 {
		return nil, errors.New("invalid salt")
	}
	if out.key, err = decodeSegment(parts[5]); err != nil || len(out.key) < 16 {
		return nil, errors.New("invalid key")
	}
	return out, nil
}

func parseParams(segment string, out *phc) error {
	var seenM, seenT, seenP bool
	for _, pair := range strings.Split(segment, ",") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return errors.New("invalid parameter entry")
		}
		switch k {
		case "m":
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil || n < uint64(minMemoryKB) {
				return errors.New("invalid memory parameter")
			}
			out.memoryKB, seenM = uint32(n), true
		case "t":
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil || n < uint64(minIterations) {
				return errors.New("invalid time parameter")
			}
			out.iterations, seenT = uint32(n), true
		case "p":
			n, err := strconv.ParseUint(v, 10, 8)
			if err != nil || n < uint64(minParallelism) {
				return errors.New("invalid parallelism parameter")
			}
			out.parallelism, seenP = uint8(n), true
		default:
			return errors.New("unsupported parameter")
		}
	}
	if !seenM || !seenT || !seenP {
		return errors.New("missing parameters")
	}
	return nil
}

// decodeSegment accepts both unpadded (PHC canonical) and padded base64.
func decodeSegment(s string) ([]byte, error) {
	if strings.HasSuffix(s, "=") {
		return base64.StdEncoding.DecodeString(s)
	}
	return base64.RawStdEncoding.DecodeString(s)
}
