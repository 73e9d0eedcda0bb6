package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	jwt "github.com/golang-jwt/jwt/v5"

	"pairchat/backend/internal/config"
)

const tokenIssuer = "pairchat-service"

var errMissingAnonID = errors.New("token carries no anon_id")

// generateJWT генерує JWT з анонімним ID
func (h *Handler) generateJWT(anonID string) (string, error) {
	claims := jwt.MapClaims{
		"anon_id": anonID,
		"exp":     time.Now().Add(config.TokenTTL).Unix(),
		"iss":     tokenIssuer,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(h.jwtSecret)
}

// validateAndGetAnonID checks the signature, expiry and issuer of tokenString.
func (h *Handler) validateAndGetAnonID(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return h.jwtSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errMissingAnonID
	}
	anonID, _ := claims["anon_id"].(string)
	if anonID == "" {
		return "", errMissingAnonID
	}
	return anonID, nil
}

// newAnonID returns a short random id, e.g. "3f9a1c2e".
func newAnonID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(id.String(), "-", "")[:config.AnonIDLength], nil
}

// GetAnonID створює AnonID та повертає JWT
func (h *Handler) GetAnonID(c *gin.Context) {
	anonID, err := newAnonID()
	if err != nil {
		log.Error().Err(err).Msg("Failed to generate anon id")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create id"})
		return
	}

	token, err := h.generateJWT(anonID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to sign token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "anon_id": anonID})
}

// bearerToken reads the token from the Authorization header, falling back to
// the token query parameter for browsers that cannot set headers on WebSockets.
func bearerToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(header[len("Bearer "):])
	}
	return c.Query("token")
}
