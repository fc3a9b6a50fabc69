package classifier

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeywordClassify(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"SMBv1 detected: SMBv1 enabled on multiple endpoints", ClassSMB},
		{"Ransomware outbreak, encrypted files on finance share", ClassRansomware},
		{"Phishing campaign targeting payroll", ClassPhishing},
		{"Brute force against Remote Desktop on port 3389", ClassRDP},
		{"Unusual DNS queries from workstation", ClassGeneric},
	}

	var k Keyword
	for _, tc := range tests {
		got, err := k.Classify(context.Background(), tc.text)
		require.NoError(t, err)
		require.Equal(t, tc.want, got, "text: %s", tc.text)
	}
}

func TestKeywordClassifyEmptyInput(t *testing.T) {
	var k Keyword
	_, err := k.Classify(context.Background(), "   ")
	require.ErrorIs(t, err, ErrEmptyInput)
}

func TestHTTPClientClassify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"threat_class":"SMB_THREAT"}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL)
	got, err := c.Classify(context.Background(), "SMBv1 enabled")
	require.NoError(t, err)
	require.Equal(t, ClassSMB, got)
}

func TestHTTPClientClassifyServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL)
	_, err := c.Classify(context.Background(), "anything")
	require.Error(t, err)
}

func TestHTTPClientClassifyUnreachable(t *testing.T) {
	c := NewHTTPClient("http://127.0.0.1:1")
	_, err := c.Classify(context.Background(), "anything")
	require.Error(t, err)
}
