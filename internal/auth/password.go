package auth

import "golang.org/x/crypto/bcrypt"

// Bcrypt checks passwords when the server runs with verify_passwords on. A
// zero Cost means bcrypt.DefaultCost.
type Bcrypt struct {
	Cost int
}

func (b Bcrypt) Hash(pw string) (string, error) {
	if b.Cost == 0 {
		return HashPassword(pw)
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pw), b.Cost)
	return string(h), err
}

func (b Bcrypt) Verify(pw, hash string) bool {
	return CheckPassword(pw, hash)
}

// --- password helpers (bcrypt) ---
func HashPassword(pw string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(h), err
}

func CheckPassword(pw, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}
