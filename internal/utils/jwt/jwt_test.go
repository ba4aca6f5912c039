package jwt

import "testing"

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken("user-123", "secret")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	userID, err := ExtractUserIDFromToken(token, "secret")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if userID != "user-123" {
		t.Fatalf("Expected user-123, got %q", userID)
	}
}

func TestWrongSecretRejected(t *testing.T) {
	token, err := GenerateToken("user-123", "secret")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if _, err := ExtractUserIDFromToken(token, "other-secret"); err == nil {
		t.Fatal("Expected token signed with a different secret to be rejected")
	}
}

func TestGarbageTokenRejected(t *testing.T) {
	if _, err := ExtractUserIDFromToken("not.a.token", "secret"); err == nil {
		t.Fatal("Expected malformed token to be rejected")
	}
}
