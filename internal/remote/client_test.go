package remote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventsaga/internal/failure"
	"eventsaga/internal/mockservice"
)

func TestClient_AgainstMockService(t *testing.T) {
	srv := httptest.NewServer(mockservice.NewRouter())
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	classifier := failure.NewClassifier()

	body, err := c.Call(context.Background(), "/response/200")
	require.NoError(t, err)
	assert.Equal(t, "200", body)
	assert.NoError(t, c.Authorize(context.Background()))

	_, err = c.Call(context.Background(), "/response/500")
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusInternalServerError))
	assert.Equal(t, failure.KindRemoteRejected, failure.KindOf(err))
	assert.Equal(t, failure.NotRetryable, classifier.Classify(err).Class)
}

func TestClient_TimeoutIsTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, Timeout: 20 * time.Millisecond})

	_, err := c.Call(context.Background(), "/slow")
	require.Error(t, err)
	assert.Equal(t, failure.KindTransport, failure.KindOf(err))
	assert.Equal(t, failure.Retryable, failure.NewClassifier().Classify(err).Class)
}

func TestClient_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(Config{BaseURL: url}).Call(context.Background(), "/response/200")
	require.Error(t, err)
	assert.Equal(t, failure.Retryable, failure.NewClassifier().Classify(err).Class)
}

func TestClient_ClientErrorIsNotTagged(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := NewClient(Config{BaseURL: srv.URL}).Call(context.Background(), "/missing")
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusNotFound))
	assert.Equal(t, failure.NotRetryable, failure.NewClassifier().Classify(err).Class)
}
