package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ExtractTokenFromRequest extracts a JWT token from an HTTP request's Authorization header
func ExtractTokenFromRequest(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", errors.New("authorization header is missing")
	}

	// Bearer token format: "Bearer {token}"
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("authorization header format must be 'Bearer {token}'")
	}

	return parts[1], nil
}

// ExtractIdentityFromJWT reads the identity claims without checking the
// signature. Only use it where the token has been verified upstream or the
// result is informational.
func ExtractIdentityFromJWT(tokenString string) (Identity, error) {
	if tokenString == "" {
		return Identity{}, errors.New("empty token")
	}

	token, _, err := new(jwt.Parser).ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return Identity{}, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, errors.New("invalid token claims")
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return Identity{}, errors.New("subject claim not found in token")
	}

	id := Identity{Subject: sub}
	id.Name, _ = claims["name"].(string)
	id.PreferredUsername, _ = claims["preferred_username"].(string)
	return id, nil
}

// ExtractUserIDFromJWT extracts the 'sub' claim from a JWT
func ExtractUserIDFromJWT(tokenString string) (string, error) {
	id, err := ExtractIdentityFromJWT(tokenString)
	if err != nil {
		return "", err
	}
	return id.Subject, nil
}
