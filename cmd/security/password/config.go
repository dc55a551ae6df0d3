package password

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/caarlos0/env/v11"
	"golang.org/x/crypto/bcrypt"
)

// Supported algorithms for new hashes.
const (
	AlgorithmBcrypt   = "bcrypt"
	AlgorithmArgon2id = "argon2id"
)

const (
	DefaultBcryptCost = 12
	minBcryptCost     = 10
	maxBcryptCost     = 16

	// bcrypt only looks at the first 72 bytes of input.
	bcryptMaxBytes = 72
)

// Argon2idParams controls Argon2id hashing cost.
// MemoryKiB is in KiB as required by argon2.IDKey.
type Argon2idParams struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Policy controls password validation and anti-DoS boundaries.
type Policy struct {
	MinLength int
	MaxLength int
	// If true, enable an extra, minimal weak-pattern rejection.
	RejectVeryWeak bool
}

// Config is the single configuration surface for this package.
// It implements Hasher.
type Config struct {
	Algorithm  string
	BcryptCost int
	Params     Argon2idParams
	Policy     Policy
}

// Hasher hashes and verifies passwords.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(encodedHash, password string) (bool, error)
}

var _ Hasher = Config{}

// DefaultConfig returns bcrypt at cost 12 with a 6-character minimum.
func DefaultConfig() Config {
	// Clamp parallelism to [1..4] to keep resource usage predictable in containers.
	threads := runtime.NumCPU()
	if threads <= 0 {
		threads = 1
	}
	if threads > 4 {
		threads = 4
	}

	return Config{
		Algorithm:  AlgorithmBcrypt,
		BcryptCost: DefaultBcryptCost,
		Params: Argon2idParams{
			MemoryKiB:   64 * 1024, // 64 MiB
			Iterations:  3,
			Parallelism: uint8(threads), // #nosec G115 -- clamped to [1..4] above; safe conversion.
			SaltLength:  16,
			KeyLength:   32,
		},
		Policy: Policy{
			MinLength:      6,
			MaxLength:      256,
			RejectVeryWeak: false,
		},
	}
}

// envConfig is the flat env surface. Fields are pre-filled from DefaultConfig,
// so unset variables keep their defaults.
type envConfig struct {
	Algorithm      string `env:"AUTHD_PASSWORD_ALGORITHM"`
	BcryptCost     int    `env:"AUTHD_BCRYPT_COST"`
	MinLength      int    `env:"AUTHD_PASSWORD_MIN_LEN"`
	MaxLength      int    `env:"AUTHD_PASSWORD_MAX_LEN"`
	RejectVeryWeak bool   `env:"AUTHD_PASSWORD_REJECT_VERY_WEAK"`
	MemoryKiB      uint32 `env:"AUTHD_ARGON2_MEMORY_KIB"`
	Iterations     uint32 `env:"AUTHD_ARGON2_ITERATIONS"`
	Parallelism    uint8  `env:"AUTHD_ARGON2_PARALLELISM"`
	SaltLength     uint32 `env:"AUTHD_ARGON2_SALT_LEN"`
	KeyLength      uint32 `env:"AUTHD_ARGON2_KEY_LEN"`
}

// FromEnv loads config from environment variables.
//
// Env surface:
// - AUTHD_PASSWORD_ALGORITHM (bcrypt|argon2id)
// - AUTHD_BCRYPT_COST (10..16)
// - AUTHD_PASSWORD_MIN_LEN
// - AUTHD_PASSWORD_MAX_LEN
// - AUTHD_PASSWORD_REJECT_VERY_WEAK (true/false)
// - AUTHD_ARGON2_MEMORY_KIB
// - AUTHD_ARGON2_ITERATIONS
// - AUTHD_ARGON2_PARALLELISM
// - AUTHD_ARGON2_SALT_LEN
// - AUTHD_ARGON2_KEY_LEN
func FromEnv() (Config, error) {
	def := DefaultConfig()
	raw := envConfig{
		Algorithm:      def.Algorithm,
		BcryptCost:     def.BcryptCost,
		MinLength:      def.Policy.MinLength,
		MaxLength:      def.Policy.MaxLength,
		RejectVeryWeak: def.Policy.RejectVeryWeak,
		MemoryKiB:      def.Params.MemoryKiB,
		Iterations:     def.Params.Iterations,
		Parallelism:    def.Params.Parallelism,
		SaltLength:     def.Params.SaltLength,
		KeyLength:      def.Params.KeyLength,
	}
	if err := env.Parse(&raw); err != nil {
		return Config{}, fmt.Errorf("password config: %w", err)
	}

	cfg := Config{
		Algorithm:  strings.ToLower(strings.TrimSpace(raw.Algorithm)),
		BcryptCost: raw.BcryptCost,
		Params: Argon2idParams{
			MemoryKiB:   raw.MemoryKiB,
			Iterations:  raw.Iterations,
			Parallelism: raw.Parallelism,
			SaltLength:  raw.SaltLength,
			KeyLength:   raw.KeyLength,
		},
		Policy: Policy{
			MinLength:      raw.MinLength,
			MaxLength:      raw.MaxLength,
			RejectVeryWeak: raw.RejectVeryWeak,
		},
	}
	if err := cfg.Check(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Check validates ranges. It is called by FromEnv and should be called on
// hand-built configs before use.
func (c Config) Check() error {
	switch c.Algorithm {
	case AlgorithmBcrypt, AlgorithmArgon2id:
	default:
		return fmt.Errorf("AUTHD_PASSWORD_ALGORITHM: %w: %q", ErrUnknownAlgorithm, c.Algorithm)
	}

	checks := []struct {
		name     string
		val, lo  int64
		hi       int64
		required bool
	}{
		{"AUTHD_BCRYPT_COST", int64(c.BcryptCost), minBcryptCost, maxBcryptCost, c.Algorithm == AlgorithmBcrypt},
		{"AUTHD_PASSWORD_MIN_LEN", int64(c.Policy.MinLength), 1, 1024, true},
		{"AUTHD_PASSWORD_MAX_LEN", int64(c.Policy.MaxLength), 1, 4096, true},
		{"AUTHD_ARGON2_MEMORY_KIB", int64(c.Params.MemoryKiB), 8 * 1024, 1024 * 1024, c.Algorithm == AlgorithmArgon2id},
		{"AUTHD_ARGON2_ITERATIONS", int64(c.Params.Iterations), 1, 20, c.Algorithm == AlgorithmArgon2id},
		{"AUTHD_ARGON2_PARALLELISM", int64(c.Params.Parallelism), 1, 64, c.Algorithm == AlgorithmArgon2id},
		{"AUTHD_ARGON2_SALT_LEN", int64(c.Params.SaltLength), 8, 64, c.Algorithm == AlgorithmArgon2id},
		{"AUTHD_ARGON2_KEY_LEN", int64(c.Params.KeyLength), 16, 64, c.Algorithm == AlgorithmArgon2id},
	}
	for _, ck := range checks {
		if !ck.required {
			continue
		}
		if ck.val < ck.lo || ck.val > ck.hi {
			return fmt.Errorf("%s: out of range [%d..%d]", ck.name, ck.lo, ck.hi)
		}
	}

	if c.Policy.MinLength > c.Policy.MaxLength {
		return fmt.Errorf(
			"password policy invalid: min_len(%d) > max_len(%d)",
			c.Policy.MinLength,
			c.Policy.MaxLength,
		)
	}
	return nil
}

// verifyCostCeiling is the highest bcrypt cost Verify will evaluate.
func (c Config) verifyCostCeiling() int {
	ceiling := maxBcryptCost
	if c.BcryptCost > ceiling {
		ceiling = c.BcryptCost
	}
	if ceiling > bcrypt.MaxCost {
		ceiling = bcrypt.MaxCost
	}
	return ceiling
}
