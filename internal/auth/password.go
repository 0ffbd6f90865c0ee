package auth

import "golang.org/x/crypto/bcrypt"

// HashPassword derives a bcrypt hash from the raw password. bcrypt
// folds a fresh random salt into every hash, so two calls with the same
// input never produce the same output.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword compares a raw password against a stored bcrypt hash.
func VerifyPassword(storedHash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(password)) == nil
}
