package api

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/linesmerrill/grievance-api/models"
)

const ticketType = "realtime"

// TicketIssuer signs short lived tickets that let a browser open the realtime
// socket, since a WebSocket handshake cannot carry an Authorization header.
type TicketIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTicketIssuer builds a TicketIssuer. An empty secret gets a random one,
// which only works while a single instance serves both the ticket and the socket.
func NewTicketIssuer(secret string, ttl time.Duration) *TicketIssuer {
	if secret == "" {
		zap.S().Warn("JWT_SECRET is not set, realtime tickets are signed with a per-process secret")
		secret = uuid.NewString() + uuid.NewString()
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &TicketIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue returns a signed ticket for identity
func (t *TicketIssuer) Issue(identity string, role models.Role) (string, error) {
	now := t.now()
	claims := jwt.MapClaims{
		"sub":  identity,
		"role": string(role),
		"typ":  ticketType,
		"jti":  uuid.NewString(),
		"iat":  now.Unix(),
		"exp":  now.Add(t.ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Verify checks a ticket and returns who it was issued to
func (t *TicketIssuer) Verify(ticket string) (string, models.Role, error) {
	token, err := jwt.Parse(ticket, func(token *jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(t.now))
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", models.ErrUnauthorized, err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", "", fmt.Errorf("%w: invalid ticket", models.ErrUnauthorized)
	}
	if typ, _ := claims["typ"].(string); typ != ticketType {
		return "", "", fmt.Errorf("%w: not a realtime ticket", models.ErrUnauthorized)
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", "", fmt.Errorf("%w: ticket has no subject", models.ErrUnauthorized)
	}
	role, err := models.ParseRole(fmt.Sprint(claims["role"]))
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", models.ErrUnauthorized, err)
	}
	return sub, role, nil
}
