package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/formhive/formhive-api/internal/models"
)

// MarkerService tracks prior-submission markers for the singleSubmission
// gate branch. Two layers back each other up: a redis record keyed by
// (form, fingerprint hash), and a signed token the handler sets as a cookie
// after a successful commit. The cookie survives NAT-pool IP churn, the
// redis record survives cleared cookies. Both inherit the fingerprint's
// weakness as an identity proxy; neither is a strong guarantee.
type MarkerService struct {
	redis  *redis.Client
	secret []byte
	ttl    time.Duration
	logger *zap.Logger
}

// NewMarkerService constructs MarkerService. The redis client may be nil, in
// which case only token markers are honored.
func NewMarkerService(rdb *redis.Client, secret string, ttl time.Duration, logger *zap.Logger) *MarkerService {
	if ttl <= 0 {
		ttl = 720 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MarkerService{redis: rdb, secret: []byte(secret), ttl: ttl, logger: logger}
}

// TTL exposes the marker expiry for cookie max-age alignment.
func (s *MarkerService) TTL() time.Duration {
	return s.ttl
}

// Set records the marker after a successful commit and returns the signed
// token for the client-side cookie. A redis failure degrades to token-only
// marking rather than failing the committed submission.
func (s *MarkerService) Set(ctx context.Context, formID string, fp models.Fingerprint) (string, error) {
	if s.redis != nil {
		if err := s.redis.Set(ctx, markerKey(formID, fp), "1", s.ttl).Err(); err != nil {
			s.logger.Warn("marker store failed", zap.String("form_id", formID), zap.Error(err))
		}
	}

	claims := jwt.RegisteredClaims{
		Subject:   formID,
		IssuedAt:  jwt.NewNumericDate(time.Now().UTC()),
		ExpiresAt: jwt.NewNumericDate(time.Now().UTC().Add(s.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign marker token: %w", err)
	}
	return signed, nil
}

// Has reports whether the requester already holds a completed submission for
// the form, consulting redis first and falling back to the presented token.
func (s *MarkerService) Has(ctx context.Context, formID string, fp models.Fingerprint, token string) bool {
	if s.redis != nil {
		exists, err := s.redis.Exists(ctx, markerKey(formID, fp)).Result()
		if err != nil {
			s.logger.Warn("marker lookup failed", zap.String("form_id", formID), zap.Error(err))
		} else if exists > 0 {
			return true
		}
	}

	if token == "" {
		return false
	}
	return s.verifyToken(formID, token)
}

func (s *MarkerService) verifyToken(formID, token string) bool {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return false
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	return ok && claims.Subject == formID
}

func markerKey(formID string, fp models.Fingerprint) string {
	sum := sha256.Sum256([]byte(fp.IP + "|" + fp.UserAgent))
	return "marker:" + formID + ":" + hex.EncodeToString(sum[:])
}
