package auth

import (
	"encoding/base64"
	"errors"
	"strings"
)

// ErrMalformedBasicAuth is returned when an Authorization header cannot be
// parsed as a Basic credential.
var ErrMalformedBasicAuth = errors.New("malformed basic auth header")

// ParseBasicAuth decodes a "Basic base64(identifier:secret)" Authorization
// header value. The identifier may be a username or an email address; the
// caller resolves it against both fields. The decoded payload must contain
// exactly one colon separating identifier from secret.
func ParseBasicAuth(headerValue string) (identifier, secret string, err error) {
	parts := strings.SplitN(headerValue, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "basic") {
		return "", "", ErrMalformedBasicAuth
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(parts[1]))
	if err != nil {
		return "", "", ErrMalformedBasicAuth
	}

	payload := string(decoded)
	if strings.Count(payload, ":") != 1 {
		return "", "", ErrMalformedBasicAuth
	}

	identifier, secret, _ = strings.Cut(payload, ":")
	if identifier == "" {
		return "", "", ErrMalformedBasicAuth
	}

	return identifier, secret, nil
}
