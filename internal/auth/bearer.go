package auth

import "strings"

const (
	authorizationHeader = "Authorization"
	bearerScheme        = "bearer"
)

// ExtractBearer pulls the token out of an Authorization header value.
// An absent header is ErrMissingCredential; anything that is not
// "Bearer <token>" is ErrMalformedCredential.
func ExtractBearer(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", ErrMissingCredential
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, bearerScheme) {
		return "", ErrMalformedCredential
	}
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", ErrMalformedCredential
	}
	return token, nil
}
