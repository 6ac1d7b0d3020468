package jwt

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewTestService(newTestKey(t), "test-issuer", 15*time.Minute)
}

// ============================================================================
// Claims
// ============================================================================

func TestClaims_HasRole(t *testing.T) {
	t.Parallel()

	recruiter := &Claims{Role: "recruiter"}
	assert.True(t, recruiter.HasRole("recruiter", "sales"))
	assert.False(t, recruiter.HasRole("trainer"))

	admin := &Claims{Role: "admin"}
	assert.True(t, admin.HasRole("trainer"))
}

func TestClaims_ValidAt(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_700_000_000, 0)
	tests := []struct {
		name   string
		claims Claims
		leeway time.Duration
		want   error
	}{
		{"no window", Claims{}, 0, nil},
		{"inside window", Claims{NotBefore: now.Unix() - 10, ExpiresAt: now.Unix() + 10}, 0, nil},
		{"expired", Claims{ExpiresAt: now.Unix() - 1}, 0, ErrTokenExpired},
		{"expired within leeway", Claims{ExpiresAt: now.Unix() - 5}, 30 * time.Second, nil},
		{"not yet valid", Claims{NotBefore: now.Unix() + 60}, 0, ErrTokenNotYetValid},
		{"not yet valid within leeway", Claims{NotBefore: now.Unix() + 5}, 30 * time.Second, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.claims.validAt(now, tt.leeway), tt.want)
		})
	}
}

// ============================================================================
// Sign / Validate
// ============================================================================

func TestSignAndValidate_RoundTrip(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	token, err := svc.Sign(Claims{UserID: "user:abc", Email: "rec@agency.test", Role: "recruiter"})
	require.NoError(t, err)
	assert.Len(t, strings.Split(token, "."), 3)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "user:abc", claims.UserID)
	assert.Equal(t, "user:abc", claims.Subject)
	assert.Equal(t, "rec@agency.test", claims.Email)
	assert.Equal(t, "recruiter", claims.Role)
	assert.Equal(t, "test-issuer", claims.Issuer)
	assert.NotZero(t, claims.IssuedAt)
}

func TestSign_DefaultExpiration(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	fixed := time.Unix(1_700_000_000, 0)
	svc.now = func() time.Time { return fixed }

	token, err := svc.Sign(Claims{UserID: "user:1"})
	require.NoError(t, err)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, fixed.Add(15*time.Minute).Unix(), claims.ExpiresAt)
}

func TestSign_NoPrivateKey(t *testing.T) {
	t.Parallel()

	svc := &Service{now: time.Now}
	_, err := svc.Sign(Claims{})
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestValidate_NoPublicKey(t *testing.T) {
	t.Parallel()

	svc := &Service{now: time.Now}
	_, err := svc.Validate("a.b.c")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestValidate_Malformed(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	for _, token := range []string{"", "a", "a.b", "a.b.c.d", "!!!.b.c"} {
		_, err := svc.Validate(token)
		assert.Error(t, err, token)
	}
}

func TestValidate_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	token, err := svc.Sign(Claims{UserID: "user:1"})
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	parts[0] = base64URLEncode([]byte(`{"alg":"none","typ":"JWT"}`))
	_, err = svc.Validate(strings.Join(parts, "."))
	assert.ErrorIs(t, err, ErrUnsupportedAlg)
}

func TestValidate_TamperedClaims(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	token, err := svc.Sign(Claims{UserID: "user:1", Role: "candidate"})
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	parts[1] = base64URLEncode([]byte(`{"iss":"test-issuer","user_id":"user:1","role":"admin"}`))
	_, err = svc.Validate(strings.Join(parts, "."))
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestValidate_DifferentKey(t *testing.T) {
	t.Parallel()

	token, err := newTestService(t).Sign(Claims{UserID: "user:1"})
	require.NoError(t, err)

	_, err = newTestService(t).Validate(token)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestValidate_Expired(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	token, err := svc.Sign(Claims{UserID: "user:1", ExpiresAt: time.Now().Add(-time.Minute).Unix()})
	require.NoError(t, err)

	_, err = svc.Validate(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestValidate_WrongIssuer(t *testing.T) {
	t.Parallel()

	key := newTestKey(t)
	token, err := NewTestService(key, "someone-else", time.Minute).Sign(Claims{UserID: "user:1"})
	require.NoError(t, err)

	_, err = NewTestService(key, "test-issuer", time.Minute).Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

// ============================================================================
// Key loading
// ============================================================================

func TestNewService_FromPEMText(t *testing.T) {
	t.Parallel()

	key := newTestKey(t)
	privatePEM := string(pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	}))

	svc, err := NewService(Config{PrivateKeyPEM: privatePEM, Issuer: "staffhub", ExpirationMins: 5})
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, svc.GetExpiration())

	token, err := svc.Sign(Claims{UserID: "user:1"})
	require.NoError(t, err)
	_, err = svc.Validate(token)
	assert.NoError(t, err)
}

func TestNewService_PublicKeyOnlyValidates(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	privPath := filepath.Join(dir, "private.pem")
	pubPath := filepath.Join(dir, "public.pem")
	require.NoError(t, GenerateKeyPair(privPath, pubPath))

	signer, err := NewService(Config{PrivateKeyPath: privPath, Issuer: "staffhub", ExpirationMins: 5})
	require.NoError(t, err)
	verifier, err := NewService(Config{PublicKeyPath: pubPath, Issuer: "staffhub"})
	require.NoError(t, err)

	token, err := signer.Sign(Claims{UserID: "user:1", Role: "sales"})
	require.NoError(t, err)

	claims, err := verifier.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "sales", claims.Role)

	_, err = verifier.Sign(Claims{})
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestNewService_NoKeys(t *testing.T) {
	t.Parallel()

	svc, err := NewService(Config{Issuer: "staffhub"})
	require.NoError(t, err)
	_, err = svc.Sign(Claims{})
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestNewService_BadKeyFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage.pem")
	require.NoError(t, os.WriteFile(garbage, []byte("not a key"), 0600))

	_, err := NewService(Config{PrivateKeyPath: filepath.Join(dir, "missing.pem")})
	assert.Error(t, err)
	_, err = NewService(Config{PrivateKeyPath: garbage})
	assert.Error(t, err)
	_, err = NewService(Config{PublicKeyPath: garbage})
	assert.Error(t, err)
}

func TestNewService_PKCS8PrivateKey(t *testing.T) {
	t.Parallel()

	der, err := x509.MarshalPKCS8PrivateKey(newTestKey(t))
	require.NoError(t, err)
	privatePEM := string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}))

	_, err = NewService(Config{PrivateKeyPEM: privatePEM, Issuer: "staffhub"})
	assert.NoError(t, err)
}

func TestBase64URL_RoundTrip(t *testing.T) {
	t.Parallel()

	for _, input := range []string{"", "a", "ab", "abc", "abcd", "staffhub?"} {
		encoded := base64URLEncode([]byte(input))
		assert.NotContains(t, encoded, "=")
		decoded, err := base64URLDecode(encoded)
		require.NoError(t, err)
		assert.Equal(t, input, string(decoded))
	}
}
