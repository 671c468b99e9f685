package model_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dln-labs/dln-ingest/internal/model"
)

func TestPermanentErrorWrapping(t *testing.T) {
	inner := errors.New("boom")
	err := model.NewPermanentError("validation error", inner)

	require.True(t, model.IsPermanent(err))
	require.False(t, model.IsTransient(err))
	require.ErrorIs(t, err, inner)
	require.Contains(t, err.Error(), "validation error")
	require.Contains(t, err.Error(), "boom")
}

func TestIsPermanentRecognizesTextualMarkers(t *testing.T) {
	require.True(t, model.IsPermanent(errors.New("transaction not found")))
	require.True(t, model.IsPermanent(errors.New("Invalid Signature supplied")))
	require.False(t, model.IsPermanent(errors.New("connection refused")))
}

func TestIsTransientDefaultsTrueForUnclassifiedErrors(t *testing.T) {
	require.True(t, model.IsTransient(errors.New("some random network hiccup")))
	require.False(t, model.IsTransient(nil))
	require.False(t, model.IsTransient(model.NewPermanentError("validation error", nil)))
}

func TestIsTransientRecognizesKnownMarkers(t *testing.T) {
	for _, msg := range []string{"dial tcp: i/o timeout", "connection reset by peer", "429 too many requests", "upstream returned 503"} {
		require.True(t, model.IsTransient(errors.New(msg)), msg)
	}
}
