package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
)

var (
	// ErrInvalid means the token is malformed, unsigned or tampered with.
	ErrInvalid = errors.New("escalation token is invalid")
	// ErrExpired means the token was valid but its lifetime has passed.
	ErrExpired = errors.New("escalation token has expired")
)

// Capability is what a verified token grants: access to one issue at one
// ladder level. A level-1 token never carries level-2 rights; level checks
// against the issue's current state belong to the state machine.
type Capability struct {
	IssueID uint
	Level   int
}

// Codec mints and verifies the opaque capability tokens embedded in
// notification links. HMAC-signed, so altering issue or level invalidates
// the signature.
type Codec struct {
	secret []byte
	clock  clockwork.Clock
}

func NewCodec(secret string, clock clockwork.Clock) *Codec {
	return &Codec{secret: []byte(secret), clock: clock}
}

func (c *Codec) Mint(issueID uint, level int, ttl time.Duration) (string, error) {
	now := c.clock.Now()

	claims := jwt.MapClaims{
		"sub":      "escalation",
		"issue_id": issueID,
		"level":    level,
		"iat":      now.Unix(),
		"exp":      now.Add(ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}

func (c *Codec) Verify(tokenString string) (Capability, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return c.secret, nil
	}, jwt.WithTimeFunc(c.clock.Now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Capability{}, ErrExpired
		}
		return Capability{}, ErrInvalid
	}

	if !token.Valid {
		return Capability{}, ErrInvalid
	}

	claims, ok := token.Claims.(jwt.MapClaims)

	if !ok {
		return Capability{}, ErrInvalid
	}

	issueIDFloat, ok := claims["issue_id"].(float64)

	if !ok {
		return Capability{}, fmt.Errorf("%w: missing issue_id claim", ErrInvalid)
	}

	levelFloat, ok := claims["level"].(float64)

	if !ok {
		return Capability{}, fmt.Errorf("%w: missing level claim", ErrInvalid)
	}

	return Capability{IssueID: uint(issueIDFloat), Level: int(levelFloat)}, nil
}
