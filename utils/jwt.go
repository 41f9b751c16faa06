package utils

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/arjunmehta14/image-press/models"
)

// ErrLinkExpired marks a signed resource URL whose embedded expiry has
// passed, as opposed to one that is malformed or forged.
var ErrLinkExpired = errors.New("signed link expired")

// CreateToken issues an HS256 bearer token binding subject for ttl.
func CreateToken(subject string, ttl time.Duration, key []byte) (string, error) {
	now := time.Now()
	claims := &jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// ParseToken verifies a bearer token and returns its subject.
func ParseToken(tokenString string, key []byte) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return key, nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.Subject == "" {
		return "", errors.New("invalid token")
	}
	return claims.Subject, nil
}

type imageURLClaims struct {
	UserID  string `json:"user_id"`
	ImageID string `json:"image_id"`
	jwt.RegisteredClaims
}

type compressionURLClaims struct {
	ImageID       string `json:"image_id"`
	CompressionID string `json:"compression_id"`
	jwt.RegisteredClaims
}

// SignImageURL renders a time-limited retrieval path for an uploaded image.
// The signature embeds the owning user and image ids.
func SignImageURL(image models.UserImage, ttl time.Duration, key []byte) (string, error) {
	claims := &imageURLClaims{
		UserID:  image.UserID,
		ImageID: image.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	signature, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign image url: %w", err)
	}
	return "/image?signature=" + url.QueryEscape(signature), nil
}

// SignCompressionURL renders a time-limited retrieval path for a
// compression. The signature embeds the parent image and compression ids.
func SignCompressionURL(c models.UserImageCompression, ttl time.Duration, key []byte) (string, error) {
	claims := &compressionURLClaims{
		ImageID:       c.ImageID,
		CompressionID: c.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	signature, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign compression url: %w", err)
	}
	return "/image-compression?signature=" + url.QueryEscape(signature), nil
}

// ParseImageSignature verifies a signed image URL and returns the embedded
// (user id, image id) pair. Past-expiry signatures yield ErrLinkExpired;
// anything else invalid yields a generic error.
func ParseImageSignature(signature string, key []byte) (string, string, error) {
	claims := &imageURLClaims{}
	if err := parseSignature(signature, claims, key); err != nil {
		return "", "", err
	}
	if claims.UserID == "" || claims.ImageID == "" {
		return "", "", errors.New("invalid signature")
	}
	return claims.UserID, claims.ImageID, nil
}

// ParseCompressionSignature verifies a signed compression URL and returns
// the embedded (image id, compression id) pair.
func ParseCompressionSignature(signature string, key []byte) (string, string, error) {
	claims := &compressionURLClaims{}
	if err := parseSignature(signature, claims, key); err != nil {
		return "", "", err
	}
	if claims.ImageID == "" || claims.CompressionID == "" {
		return "", "", errors.New("invalid signature")
	}
	return claims.ImageID, claims.CompressionID, nil
}

func parseSignature(signature string, claims jwt.Claims, key []byte) error {
	token, err := jwt.ParseWithClaims(signature, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return key, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrLinkExpired
		}
		return err
	}
	if !token.Valid {
		return errors.New("invalid signature")
	}
	return nil
}
