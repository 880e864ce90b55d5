package signing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildHMACSignature(t *testing.T) {
	const secret = "cG9seW1hcmtldC10ZXN0LXNlY3JldC0zMi1ieXRlcyE="

	tests := []struct {
		name   string
		secret string
		ts     int64
		method string
		path   string
		body   string
		want   string
	}{
		{
			name:   "post with body",
			secret: secret,
			ts:     1700000000,
			method: "POST",
			path:   "/order",
			body:   `{"orderType":"GTC"}`,
			want:   "w5-NSgXC8a1XbHobNIYFiQuoIaX18U-Wzigy8w6Uq5U=",
		},
		{
			name:   "get without body",
			secret: secret,
			ts:     1700000000,
			method: "GET",
			path:   "/data/orders",
			want:   "Kq6omJ3PRYEsYGRJ9pNJCP4iSZgLAmcEnO1H7vx5qjM=",
		},
		{
			name:   "unpadded secret",
			secret: "cG9seW1hcmtldC10ZXN0LXNlY3JldC0zMi1ieXRlcyE",
			ts:     1700000000,
			method: "GET",
			path:   "/data/orders",
			want:   "Kq6omJ3PRYEsYGRJ9pNJCP4iSZgLAmcEnO1H7vx5qjM=",
		},
		{
			name:   "url-safe alphabet",
			secret: "-_-__gECAw==",
			ts:     1700000000,
			method: "DELETE",
			path:   "/order",
			want:   "6iKcd9OgEcAbZNgMHYMBCrXnfgm0LuhCB3ZPR3A1XVE=",
		},
		{
			name:   "url-safe alphabet unpadded",
			secret: "-_-__gECAw",
			ts:     1700000000,
			method: "DELETE",
			path:   "/order",
			want:   "6iKcd9OgEcAbZNgMHYMBCrXnfgm0LuhCB3ZPR3A1XVE=",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildHMACSignature(tt.secret, tt.ts, tt.method, tt.path, tt.body)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildHMACSignatureDeterministic(t *testing.T) {
	a, err := BuildHMACSignature("a2V5", 1, "GET", "/x", "")
	require.NoError(t, err)
	b, err := BuildHMACSignature("a2V5", 1, "GET", "/x", "")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := BuildHMACSignature("a2V5", 1, "GET", "/x?next_cursor=MA==", "")
	require.NoError(t, err)
	assert.NotEqual(t, a, c, "query string must change the signature")
}

func TestDecodeSecret(t *testing.T) {
	raw, err := decodeSecret("a2V5")
	require.NoError(t, err)
	assert.Equal(t, []byte("key"), raw)

	_, err = decodeSecret("!!!")
	assert.Error(t, err)
}
