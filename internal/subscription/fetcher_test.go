package subscription

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cybervpn/internal/config"
)

func testFetcher() *Fetcher {
	return NewFetcher(config.SubscriptionConfig{
		FetchTimeout: 5 * time.Second,
		UserAgent:    "cybervpn/test",
	})
}

const testBody = "vless://uuid@a.example.com:443?security=tls#A\n" +
	"trojan://pw@b.example.com:443#B\n"

func TestFetchPlainBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "cybervpn/test", r.Header.Get("User-Agent"))
		w.Header().Set("subscription-userinfo", "upload=200; download=300; total=1000; expire=1893456000")
		w.Header().Set("profile-update-interval", "12")
		w.Header().Set("profile-web-page-url", "https://panel.example.com")
		w.Write([]byte(testBody))
	}))
	defer srv.Close()

	res, err := testFetcher().Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	require.Len(t, res.Links, 2)
	assert.Contains(t, res.Links[0], "vless://")

	assert.Equal(t, int64(200), res.Meta.UploadBytes)
	assert.Equal(t, int64(300), res.Meta.DownloadBytes)
	assert.Equal(t, int64(1000), res.Meta.TotalBytes)
	require.NotNil(t, res.Meta.ExpiresAt)
	assert.Equal(t, int64(1893456000), res.Meta.ExpiresAt.Unix())
	assert.Equal(t, 720, res.Meta.UpdateIntervalMinutes)
	require.NotNil(t, res.Meta.SupportURL)
	assert.Equal(t, "https://panel.example.com", *res.Meta.SupportURL)
	assert.Nil(t, res.Meta.TestURL)
}

func TestFetchBase64Body(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(base64.StdEncoding.EncodeToString([]byte(testBody))))
	}))
	defer srv.Close()

	res, err := testFetcher().Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Len(t, res.Links, 2)
}

func TestFetchNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := testFetcher().Fetch(context.Background(), srv.URL)
	require.Error(t, err)

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, srv.URL, fe.URL)
}

func TestFetchEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>no links here</html>"))
	}))
	defer srv.Close()

	_, err := testFetcher().Fetch(context.Background(), srv.URL)
	var fe *FetchError
	require.True(t, errors.As(err, &fe))
}

func TestFetchUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_, err := testFetcher().Fetch(ctx, "http://127.0.0.1:1/sub")
	var fe *FetchError
	require.True(t, errors.As(err, &fe))
}

func TestExtractLinks(t *testing.T) {
	body := "# subscription\n" +
		"vless://uuid@a.example.com:443?security=tls#A\n" +
		"\n" +
		"see trojan://pw@b.example.com:443#B.\n" +
		"vless://uuid@a.example.com:443?security=tls#A\n" +
		"wireguard://nope\n"

	links := ExtractLinks(body)
	require.Len(t, links, 2)
	assert.Equal(t, "vless://uuid@a.example.com:443?security=tls#A", links[0])
	assert.Equal(t, "trojan://pw@b.example.com:443#B", links[1])
}

func TestParseMetaMalformedHeader(t *testing.T) {
	h := http.Header{}
	h.Set("subscription-userinfo", "upload=abc; download; total=50")
	h.Set("profile-update-interval", "-3")

	m := parseMeta(h)
	assert.Zero(t, m.UploadBytes)
	assert.Zero(t, m.DownloadBytes)
	assert.Equal(t, int64(50), m.TotalBytes)
	assert.Zero(t, m.UpdateIntervalMinutes)
	assert.Nil(t, m.ExpiresAt)
}
