package certificate

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/volunteer/internal/domain"
)

func TestPDFRendererProducesDocument(t *testing.T) {
	renderer := NewPDFRenderer(Config{})

	doc, err := renderer.Render(context.Background(), domain.Certificate{
		HolderName:       "María Quispe Huamán",
		IdentityNumber:   "12345678",
		Hours:            104,
		VerificationCode: "GLOB-2026-12345678-42",
		IssuedAt:         time.Date(2026, time.October, 18, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(doc, []byte("%PDF-")))
	require.Greater(t, len(doc), 1000)
}

func TestPDFRendererHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPDFRenderer(DefaultConfig()).Render(ctx, domain.Certificate{HolderName: "x"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestSpanishDate(t *testing.T) {
	require.Equal(t, "18 de octubre de 2026", spanishDate(time.Date(2026, time.October, 18, 0, 0, 0, 0, time.UTC)))
	require.Equal(t, "1 de enero de 2025", spanishDate(time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)))
}

func TestBodyTextUsesWholeHours(t *testing.T) {
	require.Contains(t, bodyText(100), "cumpliendo más de 100 horas")
}
