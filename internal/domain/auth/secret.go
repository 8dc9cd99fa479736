package auth

import (
	"fmt"

	"github.com/alexedwards/argon2id"
)

// argon2idParams follow the OWASP minimum for Argon2id, with memory rounded up.
// Memory: 47 MiB, Iterations: 1, Parallelism: 1.
var argon2idParams = &argon2id.Params{
	Memory:      47 * 1024, // 47 MiB (OWASP minimum: 46 MiB)
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

// HashSecret returns an Argon2id hash of a cleartext password or client
// secret, in PHC format, using OWASP-minimum parameters.
func HashSecret(cleartext string) (string, error) {
	return argon2id.CreateHash(cleartext, argon2idParams)
}

// VerifySecret compares a cleartext password or client secret against a
// stored Argon2id hash. Never panics: malformed stored hashes are reported
// as a non-nil error rather than propagating a panic from the underlying
// library.
func VerifySecret(cleartext, storedHash string) (match bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			match = false
			err = fmt.Errorf("invalid argon2id hash parameters: %v", r)
		}
	}()
	return argon2id.ComparePasswordAndHash(cleartext, storedHash)
}
