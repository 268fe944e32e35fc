package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Key under which AuthRequired stores the authenticated player id
const PlayerIDKey = "playerId"

var (
	ErrMissingToken = errors.New("no token provided")
	ErrInvalidToken = errors.New("invalid token")
)

// Claims carried by tokens issued by the identity service. Older clients
// send the id as userId.
type Claims struct {
	jwt.RegisteredClaims
	PlayerID string `json:"playerId,omitempty"`
	UserID   string `json:"userId,omitempty"`
}

func (c Claims) Player() string {
	if c.PlayerID != "" {
		return c.PlayerID
	}
	return c.UserID
}

// ParseToken verifies an HS256 token and returns the player id inside it.
// A "Bearer " prefix is accepted.
func ParseToken(secret []byte, token string) (string, error) {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return "", ErrMissingToken
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", ErrInvalidToken
	}
	if claims.Player() == "" {
		return "", ErrInvalidToken
	}
	return claims.Player(), nil
}

// SignToken issues a token for playerID. Used by tests and local tooling.
func SignToken(secret []byte, playerID string) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{PlayerID: playerID}).SignedString(secret)
}

// AuthRequired rejects requests without a valid bearer token.
func AuthRequired(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		playerID, err := ParseToken(secret, c.GetHeader("Authorization"))
		if errors.Is(err, ErrMissingToken) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "No token provided"})
			return
		}
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}
		c.Set(PlayerIDKey, playerID)
		c.Next()
	}
}

// SocketTokenPlayer extracts the player id from a socket.io handshake auth
// object ({"token": "..."}).
func SocketTokenPlayer(secret []byte, auth any) (string, error) {
	data, ok := auth.(map[string]any)
	if !ok {
		return "", ErrMissingToken
	}
	token, _ := data["token"].(string)
	if token == "" {
		// Same field name the web client uses for HTTP
		token, _ = data["authorization"].(string)
	}
	return ParseToken(secret, token)
}
