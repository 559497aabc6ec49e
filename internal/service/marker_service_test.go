package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/formhive/formhive-api/internal/models"
)

func TestMarkerTokenRoundTrip(t *testing.T) {
	svc := NewMarkerService(nil, "test-secret", time.Hour, zap.NewNop())
	fp := models.Fingerprint{IP: "10.0.0.1", UserAgent: "agent"}

	token, err := svc.Set(context.Background(), "form-1", fp)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	assert.True(t, svc.Has(context.Background(), "form-1", fp, token))
}

func TestMarkerTokenScopedToForm(t *testing.T) {
	svc := NewMarkerService(nil, "test-secret", time.Hour, zap.NewNop())
	fp := models.Fingerprint{IP: "10.0.0.1", UserAgent: "agent"}

	token, err := svc.Set(context.Background(), "form-1", fp)
	require.NoError(t, err)

	// A marker for one form never satisfies another form's gate.
	assert.False(t, svc.Has(context.Background(), "form-2", fp, token))
}

func TestMarkerTokenRejectsForgeries(t *testing.T) {
	svc := NewMarkerService(nil, "test-secret", time.Hour, zap.NewNop())
	other := NewMarkerService(nil, "other-secret", time.Hour, zap.NewNop())
	fp := models.Fingerprint{IP: "10.0.0.1", UserAgent: "agent"}

	forged, err := other.Set(context.Background(), "form-1", fp)
	require.NoError(t, err)

	assert.False(t, svc.Has(context.Background(), "form-1", fp, forged))
	assert.False(t, svc.Has(context.Background(), "form-1", fp, "not-a-token"))
	assert.False(t, svc.Has(context.Background(), "form-1", fp, ""))
}

func TestMarkerKeyHashesFingerprint(t *testing.T) {
	a := markerKey("form-1", models.Fingerprint{IP: "10.0.0.1", UserAgent: "agent"})
	b := markerKey("form-1", models.Fingerprint{IP: "10.0.0.2", UserAgent: "agent"})

	assert.NotEqual(t, a, b)
	assert.Contains(t, a, "marker:form-1:")
	// Raw fingerprint material never appears in the key.
	assert.NotContains(t, a, "10.0.0.1")
}
