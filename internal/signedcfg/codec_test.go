package signedcfg

import (
	"fmt"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cybervpn/internal/fieldcrypt"
)

func testKey() []byte {
	k := make([]byte, 32)
	for i := range k {
		k[i] = byte(i)
	}
	return k
}

func TestSignedRoundTrip(t *testing.T) {
	codec := New("cybervpn")
	key := testKey()

	link := codec.CreateSignedURI(`{"a":1}`, key)
	assert.Contains(t, link, "cybervpn://signed?")

	payload, err := codec.ParseAndVerify(link, key)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, payload)
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	codec := New("cybervpn")

	link := codec.CreateSignedURI(`{"a":1}`, testKey())

	other := testKey()
	other[0] ^= 0xff
	_, err := codec.ParseAndVerify(link, other)
	assert.ErrorIs(t, err, ErrSignatureInvalid)
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	codec := New("cybervpn")
	key := testKey()

	link := codec.CreateSignedURI(`{"host":"a.example.com"}`, key)

	u, err := url.Parse(link)
	require.NoError(t, err)
	q := u.Query()
	b64 := q.Get("config")

	// Flip one character of the carried payload, keep the original sig.
	flipped := []byte(b64)
	if flipped[0] == 'A' {
		flipped[0] = 'B'
	} else {
		flipped[0] = 'A'
	}
	q.Set("config", string(flipped))
	u.RawQuery = q.Encode()

	_, err = codec.ParseAndVerify(u.String(), key)
	assert.ErrorIs(t, err, ErrSignatureInvalid)
}

func TestVerifyRejectsMissingParams(t *testing.T) {
	codec := New("cybervpn")
	key := testKey()

	for _, link := range []string{
		"cybervpn://signed",
		"cybervpn://signed?config=eyJhIjoxfQ==",
		"cybervpn://signed?sig=deadbeef",
	} {
		_, err := codec.ParseAndVerify(link, key)
		assert.ErrorIs(t, err, ErrMissingParams, link)
	}
}

func TestVerifyRejectsWrongScheme(t *testing.T) {
	codec := New("cybervpn")

	_, err := codec.ParseAndVerify("vless://uuid@example.com:443", testKey())
	assert.ErrorIs(t, err, ErrWrongScheme)
}

func TestVerifyRejectsUndecodablePayload(t *testing.T) {
	codec := New("cybervpn")
	key := testKey()

	// Sign garbage that is not base64 so the MAC matches but decoding fails.
	b64 := "!!!not-base64!!!"
	sig := computeSig(key, b64)
	q := url.Values{}
	q.Set("config", b64)
	q.Set("sig", sig)
	link := fmt.Sprintf("cybervpn://signed?%s", q.Encode())

	_, err := codec.ParseAndVerify(link, key)
	assert.ErrorIs(t, err, ErrPayloadInvalid)
}

func TestCustomScheme(t *testing.T) {
	codec := New("myvpn")
	key := testKey()

	link := codec.CreateSignedURI("payload", key)
	assert.Contains(t, link, "myvpn://")

	payload, err := codec.ParseAndVerify(link, key)
	require.NoError(t, err)
	assert.Equal(t, "payload", payload)
}

func TestLoadShareKeyStable(t *testing.T) {
	store := fieldcrypt.NewMemoryStore()

	first, err := LoadShareKey(store)
	require.NoError(t, err)
	assert.Len(t, first, 32)

	second, err := LoadShareKey(store)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	other, err := LoadShareKey(fieldcrypt.NewMemoryStore())
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
}
