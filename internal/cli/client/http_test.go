package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAnswerServer(t *testing.T, token string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"invalid api token"}`))
			return
		}

		switch r.URL.Path {
		case "/answer":
			var req AnswerRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			switch req.Question {
			case "slow down":
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"rate limited"}`))
			default:
				_, _ = w.Write([]byte(`{"answer":"echo: ` + req.Question + `"}`))
			}
		case "/ingest/status":
			_, _ = w.Write([]byte(`{"data":{"total":2,"completed":["a.pdf"],"pending":["b.pdf"]}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte("not found"))
		}
	}))
}

func TestAPIClient_Ask(t *testing.T) {
	srv := newAnswerServer(t, "tok")
	defer srv.Close()

	api, err := NewAPIClientWithConfig("tok", srv.URL+"/", time.Second)
	require.NoError(t, err)

	answer, err := api.Ask(context.Background(), "Who knows Go?")
	require.NoError(t, err)
	assert.Equal(t, "echo: Who knows Go?", answer)
}

func TestAPIClient_ErrorResponse(t *testing.T) {
	srv := newAnswerServer(t, "tok")
	defer srv.Close()

	api, err := NewAPIClientWithConfig("wrong", srv.URL, time.Second)
	require.NoError(t, err)

	_, err = api.Ask(context.Background(), "q")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "invalid api token", apiErr.Message)
}

func TestAPIClient_NonJSONError(t *testing.T) {
	srv := newAnswerServer(t, "")
	defer srv.Close()

	api, err := NewAPIClientWithConfig("", srv.URL, time.Second)
	require.NoError(t, err)

	err = api.Get(context.Background(), "/missing", nil)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "not found", apiErr.Message)
}

func TestNewAPIClientWithConfig_RejectsBadURL(t *testing.T) {
	_, err := NewAPIClientWithConfig("", "localhost:8080", 0)
	assert.Error(t, err)
}

func TestAskLoop(t *testing.T) {
	srv := newAnswerServer(t, "")
	defer srv.Close()

	api, err := NewAPIClientWithConfig("", srv.URL, time.Second)
	require.NoError(t, err)

	in := strings.NewReader("first question\n\nslow down\nEXIT\nnever asked\n")
	var out bytes.Buffer

	require.NoError(t, askLoop(context.Background(), api, in, &out))

	text := out.String()
	assert.Contains(t, text, "echo: first question")
	assert.Contains(t, text, "please enter a question")
	assert.Contains(t, text, "provider rate limit reached")
	assert.NotContains(t, text, "never asked")
}

func TestStatusCmd(t *testing.T) {
	srv := newAnswerServer(t, "")
	defer srv.Close()

	root := &cobra.Command{Use: "resumeqa"}
	root.PersistentFlags().Bool("output", false, "")
	root.PersistentFlags().String("api-token", "", "")
	root.PersistentFlags().String("api-url", "", "")
	root.PersistentFlags().Duration("timeout", time.Second, "")
	root.AddCommand(StatusCmd())

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"status", "--api-url", srv.URL})
	require.NoError(t, root.Execute())

	assert.Contains(t, out.String(), "Total documents: 2")
	assert.Contains(t, out.String(), "  - b.pdf")
}
