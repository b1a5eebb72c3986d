package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
)

var (
	errMissingAuthorization = errors.New("missing authorization header")
	errBadAuthorization     = errors.New("bad auth header")
)

// Auth validates HS256 bearer tokens signed with a shared secret.
type Auth struct {
	secret []byte
	parser *jwt.Parser
	now    func() time.Time
}

func NewAuth(secret string) *Auth {
	return &Auth{
		secret: []byte(secret),
		parser: jwt.NewParser(jwt.WithValidMethods([]string{"HS256"})),
		now:    time.Now,
	}
}

// SubjectFromHeader extracts the token subject from an Authorization header.
func (a *Auth) SubjectFromHeader(h string) (string, error) {
	h = strings.TrimSpace(h)
	if h == "" {
		return "", errMissingAuthorization
	}
	token, ok := strings.CutPrefix(h, "Bearer ")
	if !ok || strings.Count(token, ".") != 2 {
		return "", errBadAuthorization
	}

	parsed, err := a.parser.Parse(strings.TrimSpace(token), func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return a.secret, nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid claims")
	}
	if !claims.VerifyExpiresAt(a.now().Unix(), true) {
		return "", errors.New("token expired")
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", errors.New("missing sub")
	}
	return sub, nil
}

// Middleware rejects requests without a valid token and stores the subject
// under "user".
func (a *Auth) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sub, err := a.SubjectFromHeader(c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				return jsonError(c, http.StatusUnauthorized, err.Error())
			}
			c.Set("user", sub)
			return next(c)
		}
	}
}

// MintToken signs a token for subject that Auth with the same secret accepts.
func MintToken(secret, subject string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("jwt secret is empty")
	}
	if strings.TrimSpace(subject) == "" {
		return "", errors.New("subject is empty")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	})
	return token.SignedString([]byte(secret))
}
