package middleware

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const addressPayload = `{"label":"Home","street":"1 Main St","city":"Springfield","state":"IL","zip_code":"62701"}`

// echoAddressHandler возвращает полученный черновик адреса как созданный ресурс.
func echoAddressHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write(body)
}

func gzipped(t *testing.T, s string) io.Reader {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	return &buf
}

func TestGzipMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		compressBody   bool
		acceptEncoding string
		wantEncoding   string
	}{
		{
			name:           "plain request, plain response",
			acceptEncoding: "",
			wantEncoding:   "",
		},
		{
			name:           "plain request, gzip response",
			acceptEncoding: "gzip, deflate, br",
			wantEncoding:   "gzip",
		},
		{
			name:           "gzip request, plain response",
			compressBody:   true,
			acceptEncoding: "",
			wantEncoding:   "",
		},
		{
			name:           "gzip request, gzip response",
			compressBody:   true,
			acceptEncoding: "gzip",
			wantEncoding:   "gzip",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body io.Reader = strings.NewReader(addressPayload)
			if tt.compressBody {
				body = gzipped(t, addressPayload)
			}

			req := httptest.NewRequest(http.MethodPost, "/api/user/addresses", body)
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Accept-Encoding", tt.acceptEncoding)
			if tt.compressBody {
				req.Header.Set("Content-Encoding", "gzip")
			}

			rec := httptest.NewRecorder()
			GzipMiddleware(http.HandlerFunc(echoAddressHandler)).ServeHTTP(rec, req)

			res := rec.Result()
			defer res.Body.Close()

			require.Equal(t, http.StatusCreated, res.StatusCode)
			assert.Equal(t, "application/json", res.Header.Get("Content-Type"))
			assert.Equal(t, tt.wantEncoding, res.Header.Get("Content-Encoding"))

			var reader io.Reader = res.Body
			if tt.wantEncoding == "gzip" {
				gr, err := gzip.NewReader(res.Body)
				require.NoError(t, err)
				defer gr.Close()
				reader = gr
			}

			got, err := io.ReadAll(reader)
			require.NoError(t, err)
			assert.JSONEq(t, addressPayload, string(got))
		})
	}
}

func TestGzipMiddleware_CorruptBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/user/addresses", strings.NewReader("not gzip at all"))
	req.Header.Set("Content-Encoding", "gzip")

	called := false
	h := GzipMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, called, "handler must not run for an unreadable body")
}
