package utils_test

import (
	"errors"
	"testing"
	"time"

	"layercast/models"
	"layercast/utils"
)

var secret = []byte("0123456789abcdef0123456789abcdef")

func TestMergeJWTRoundTrip(t *testing.T) {
	claims := &models.MergeJWT{
		Issuer:    "studio",
		Subject:   "render",
		IssuedAt:  time.Now().Unix(),
		ExpiresAt: time.Now().Add(time.Hour).Unix(),
		Merge: models.MergeSpec{
			Layers: []string{"/srv/bg", "/srv/logo.png"},
			Output: "out.mp4",
			FPS:    24,
		},
	}
	token, err := utils.CreateMergeJWT(claims, secret)
	if err != nil {
		t.Fatalf("CreateMergeJWT failed: %v", err)
	}

	got, err := utils.VerifyMergeJWT(token, utils.VerifyConfig{SecretKey: secret, ExpectedIssuer: "studio"})
	if err != nil {
		t.Fatalf("VerifyMergeJWT failed: %v", err)
	}
	if got.Merge.FPS != 24 || len(got.Merge.Layers) != 2 {
		t.Errorf("claims not preserved: %+v", got.Merge)
	}

	if _, err := utils.VerifyMergeJWT(token, utils.VerifyConfig{SecretKey: []byte("another-secret-another-secret-xx")}); !errors.Is(err, utils.ErrInvalidSignature) {
		t.Errorf("expected ErrInvalidSignature, got %v", err)
	}
	if _, err := utils.VerifyMergeJWT(token, utils.VerifyConfig{SecretKey: secret, ExpectedIssuer: "other"}); !errors.Is(err, utils.ErrInvalidIssuer) {
		t.Errorf("expected ErrInvalidIssuer, got %v", err)
	}
}

func TestMergeJWTExpired(t *testing.T) {
	claims := &models.MergeJWT{ExpiresAt: time.Now().Add(-time.Hour).Unix()}
	token, err := utils.CreateMergeJWT(claims, secret)
	if err != nil {
		t.Fatalf("CreateMergeJWT failed: %v", err)
	}
	if _, err := utils.VerifyMergeJWT(token, utils.VerifyConfig{SecretKey: secret}); !errors.Is(err, utils.ErrTokenExpired) {
		t.Errorf("expected ErrTokenExpired, got %v", err)
	}
}

func TestCreateMergeJWTShortSecret(t *testing.T) {
	if _, err := utils.CreateMergeJWT(&models.MergeJWT{}, []byte("short")); err == nil {
		t.Errorf("short secret accepted")
	}
}

func TestVerifyMergeJWTGarbage(t *testing.T) {
	if _, err := utils.VerifyMergeJWT("", utils.VerifyConfig{SecretKey: secret}); !errors.Is(err, utils.ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
	if _, err := utils.VerifyMergeJWT("a.b.c", utils.VerifyConfig{SecretKey: secret}); !errors.Is(err, utils.ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestGenerateRandomHex(t *testing.T) {
	a, err := utils.GenerateRandomHex(16)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := utils.GenerateRandomHex(16)
	if len(a) != 32 || a == b {
		t.Errorf("unexpected keys %q %q", a, b)
	}
}

func TestMergeJWTIssuedInFuture(t *testing.T) {
	token, err := utils.CreateMergeJWT(&models.MergeJWT{IssuedAt: time.Now().Add(time.Hour).Unix()}, secret)
	if err != nil {
		t.Fatalf("CreateMergeJWT failed: %v", err)
	}
	if _, err := utils.VerifyMergeJWT(token, utils.VerifyConfig{SecretKey: secret}); !errors.Is(err, utils.ErrTokenNotYetValid) {
		t.Errorf("expected ErrTokenNotYetValid, got %v", err)
	}
	if _, err := utils.VerifyMergeJWT(token, utils.VerifyConfig{SecretKey: secret, ClockSkew: 2 * time.Hour}); err != nil {
		t.Errorf("clock skew not applied: %v", err)
	}
}

func TestMergeJWTWithoutExpiry(t *testing.T) {
	token, err := utils.CreateMergeJWT(&models.MergeJWT{Subject: "cron", Merge: models.MergeSpec{FPS: 12}}, secret)
	if err != nil {
		t.Fatalf("CreateMergeJWT failed: %v", err)
	}
	got, err := utils.VerifyMergeJWT(token, utils.VerifyConfig{SecretKey: secret})
	if err != nil {
		t.Fatalf("token without exp rejected: %v", err)
	}
	if got.ExpiresAt != 0 || got.IssuedAt != 0 || got.Subject != "cron" || got.Merge.FPS != 12 {
		t.Errorf("claims = %+v", got)
	}
}
