package webhook

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/dashboot/internal/config"
)

func TestRun_DeliversRawConfiguration(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	type received struct {
		method, contentType, token string
		body                       []byte
	}
	got := make(chan received, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got <- received{r.Method, r.Header.Get("Content-Type"), r.Header.Get("X-Token"), body}
		w.WriteHeader(http.StatusAccepted)
	}))
	t.Cleanup(srv.Close)

	unit, err := NewUnit(context.Background(), &Input{
		URL:     srv.URL + "/hook",
		Method:  "put",
		Headers: map[string]string{"X-Token": "secret"},
	})
	require.NoError(t, err)
	cfg, err := config.Decode([]byte(`{"server":"https://gitlab.example","token":"abc"}`))
	require.NoError(t, err)

	// --- Act ---
	err = unit.Run(context.Background(), cfg)

	// --- Assert ---
	require.NoError(t, err)
	r := <-got
	require.Equal(t, http.MethodPut, r.method)
	require.Equal(t, "application/json", r.contentType)
	require.Equal(t, "secret", r.token)
	require.JSONEq(t, `{"server":"https://gitlab.example","token":"abc"}`, string(r.body))
}

func TestRun_NonSuccessStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	unit, err := NewUnit(context.Background(), &Input{URL: srv.URL})
	require.NoError(t, err)
	cfg, err := config.Decode([]byte(`{}`))
	require.NoError(t, err)

	err = unit.Run(context.Background(), cfg)
	require.ErrorContains(t, err, "502 Bad Gateway")
}

func TestNewUnit_Errors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		input   Input
		errPart string
	}{
		{name: "scheme", input: Input{URL: "ftp://x"}, errPart: "must use http or https"},
		{name: "method", input: Input{URL: "http://x", Method: "DELETE"}, errPart: "unsupported method"},
		{name: "timeout", input: Input{URL: "http://x", Timeout: "1 minute"}, errPart: "invalid timeout"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewUnit(context.Background(), &tc.input)
			require.ErrorContains(t, err, tc.errPart)
		})
	}
}
