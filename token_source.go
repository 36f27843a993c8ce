package users

import (
	"crypto/rand"
	"encoding/hex"
	"io"

	"github.com/goliatone/go-errors"
)

// DefaultTokenLength is the number of random bytes behind a generated
// token. The hex encoded value is twice as long.
const DefaultTokenLength = 32

type randomTokenSource struct {
	length int
}

// NewTokenSource returns a TokenSource backed by crypto/rand. A
// non-positive length falls back to DefaultTokenLength.
func NewTokenSource(length int) TokenSource {
	if length <= 0 {
		length = DefaultTokenLength
	}
	return &randomTokenSource{length: length}
}

// Generate returns a hex encoded random token.
func (s *randomTokenSource) Generate() (string, error) {
	bytes := make([]byte, s.length)
	if _, err := io.ReadFull(rand.Reader, bytes); err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to read random bytes for token")
	}
	return hex.EncodeToString(bytes), nil
}
