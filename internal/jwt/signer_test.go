package jwt_test

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	gojose "github.com/go-jose/go-jose/v4"
	gojwt "github.com/go-jose/go-jose/v4/jwt"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nemozak1/API-Explorer-II/internal/domain"
	customjwt "github.com/nemozak1/API-Explorer-II/internal/jwt"
)

func TestSignerRoundTrip(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	signer := customjwt.NewSigner(key, time.Hour)
	require.True(t, signer.Enabled())

	user := domain.User{UserID: "user-123", Username: "felix"}
	now := time.Now()

	token, expiry, err := signer.Sign(user, now)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.WithinDuration(t, now.Add(time.Hour), expiry, time.Second)

	parsed, err := gojwt.ParseSigned(token, []gojose.SignatureAlgorithm{gojose.RS256})
	require.NoError(t, err)

	var std gojwt.Claims
	var custom customjwt.UserClaims
	require.NoError(t, parsed.Claims(&key.PublicKey, &std, &custom))

	require.Equal(t, "user-123", custom.UserID)
	require.Equal(t, "felix", custom.Username)
	require.WithinDuration(t, now.Add(time.Hour), std.Expiry.Time(), time.Second)
}

func TestSignerFromMissingFileIsDisabled(t *testing.T) {
	signer := customjwt.NewSignerFromFile("testdata/does-not-exist.pem", time.Hour, zap.NewNop())
	require.False(t, signer.Enabled())
	require.Nil(t, signer.Public())

	_, _, err := signer.Sign(domain.User{UserID: "u"}, time.Now())
	require.Error(t, err)
}
