package credentials_test

import (
	"errors"
	"path/filepath"
	"testing"

	"layercast/credentials"
)

func TestCredentialsRoundTrip(t *testing.T) {
	if err := credentials.OpenDB(filepath.Join(t.TempDir(), "creds.db")); err != nil {
		t.Fatalf("OpenDB failed: %v", err)
	}
	defer credentials.CloseDB()

	creds := map[string]string{"bucket": "videos", "region": "eu-west-1"}
	if err := credentials.StoreCredentials("k1", creds); err != nil {
		t.Fatalf("StoreCredentials failed: %v", err)
	}
	got, err := credentials.GetCredentials("k1")
	if err != nil {
		t.Fatalf("GetCredentials failed: %v", err)
	}
	if got["bucket"] != "videos" || got["region"] != "eu-west-1" {
		t.Errorf("unexpected credentials: %v", got)
	}

	if err := credentials.DeleteCredentials("k1"); err != nil {
		t.Fatalf("DeleteCredentials failed: %v", err)
	}
	if _, err := credentials.GetCredentials("k1"); !errors.Is(err, credentials.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
