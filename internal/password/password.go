package password

import (
	"golang.org/x/crypto/bcrypt"
)

const (
	// PasswordCost is the bcrypt cost used for login passwords.
	PasswordCost = 12
	// RefreshTokenCost is the bcrypt cost used for refresh-token hashes.
	// Refresh tokens are high-entropy already, so a lighter cost suffices
	// while still preventing precomputation if the store leaks.
	RefreshTokenCost = 10
)

// DummyHash is a fixed, valid cost-12 bcrypt hash compared against when no
// account matches a login email. Running the comparison anyway keeps the
// latency and codepath identical for "user doesn't exist" and "wrong
// password", so account existence cannot be observed from the outside.
const DummyHash = "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"

// Hasher hashes and verifies secrets with an adaptive one-way hash.
type Hasher interface {
	// Hash returns the one-way hash of plain at the given cost factor.
	Hash(plain string, cost int) (string, error)
	// Compare reports whether plain matches the stored hash. The hash
	// comparison itself is constant-time per the bcrypt contract.
	Compare(hashed, plain string) bool
}

// BcryptHasher implements Hasher using golang.org/x/crypto/bcrypt.
type BcryptHasher struct{}

// NewBcryptHasher creates a new BcryptHasher
func NewBcryptHasher() *BcryptHasher {
	return &BcryptHasher{}
}

func (BcryptHasher) Hash(plain string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func (BcryptHasher) Compare(hashed, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)) == nil
}
