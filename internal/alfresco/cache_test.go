package alfresco

import "testing"

func TestNormalizeBaseURL(t *testing.T) {
	cases := map[string]string{
		"https://example.com":           "https://example.com",
		"https://example.com/":          "https://example.com",
		"https://example.com/alfresco":  "https://example.com",
		"https://example.com/alfresco/": "https://example.com",
		"https://example.com/other":     "https://example.com/other",
	}
	for in, want := range cases {
		if got := NormalizeBaseURL(in); got != want {
			t.Errorf("NormalizeBaseURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCacheReturnsSameClientForSameSignature(t *testing.T) {
	cc := NewClientCache()
	a := cc.Get("https://example.com/alfresco", BasicAuth("admin", "pw"))
	b := cc.Get("https://example.com/", BasicAuth("admin", "pw"))
	if a != b {
		t.Error("equivalent base URLs with the same username should share one client")
	}
	if cc.Len() != 1 {
		t.Errorf("expected 1 cache entry, got %d", cc.Len())
	}
}

func TestCacheDistinctUsersDistinctClients(t *testing.T) {
	cc := NewClientCache()
	a := cc.Get("https://example.com", BasicAuth("alice", "pw"))
	b := cc.Get("https://example.com", BasicAuth("bob", "pw"))
	if a == b {
		t.Error("different usernames should yield distinct clients")
	}
	if cc.Len() != 2 {
		t.Errorf("expected 2 cache entries, got %d", cc.Len())
	}
}

func TestCacheDropSingleEntry(t *testing.T) {
	cc := NewClientCache()
	alice := BasicAuth("alice", "pw")
	cc.Get("https://example.com", alice)
	cc.Get("https://example.com", BasicAuth("bob", "pw"))

	cc.Drop("https://example.com", alice)
	if cc.Len() != 1 {
		t.Errorf("expected 1 entry after targeted drop, got %d", cc.Len())
	}
}

func TestCacheDropByURLPrefix(t *testing.T) {
	cc := NewClientCache()
	cc.Get("https://one.example.com", BasicAuth("alice", "pw"))
	cc.Get("https://one.example.com", BasicAuth("bob", "pw"))
	cc.Get("https://two.example.com", BasicAuth("alice", "pw"))

	cc.Drop("https://one.example.com/alfresco", nil)
	if cc.Len() != 1 {
		t.Errorf("expected only the other host's entry to survive, got %d", cc.Len())
	}
}

func TestCacheUpdateOAuth2TokenInPlace(t *testing.T) {
	cc := NewClientCache()
	desc := OAuth2Auth("noderef-app", "https://idp.example.com", "corp", "old-access", "old-refresh")
	client := cc.Get("https://example.com", desc)

	cc.UpdateOAuth2Token("https://example.com", desc, "new-access", "new-refresh")

	again := cc.Get("https://example.com", desc)
	if again != client {
		t.Error("token update must not recreate the client")
	}
	auth := again.AuthDescriptor()
	if auth.AccessToken != "new-access" || auth.RefreshToken != "new-refresh" {
		t.Errorf("descriptor not updated in place: %+v", auth)
	}
}

func TestCacheUpdateOAuth2TokenKeepsRefreshWhenEmpty(t *testing.T) {
	cc := NewClientCache()
	desc := OAuth2Auth("noderef-app", "https://idp.example.com", "corp", "old-access", "old-refresh")
	cc.Get("https://example.com", desc)

	cc.UpdateOAuth2Token("https://example.com", desc, "new-access", "")

	auth := cc.Get("https://example.com", desc).AuthDescriptor()
	if auth.RefreshToken != "old-refresh" {
		t.Errorf("empty refresh token should keep the old one, got %q", auth.RefreshToken)
	}
}

func TestCacheClear(t *testing.T) {
	cc := NewClientCache()
	cc.Get("https://example.com", nil)
	cc.Get("https://other.example.com", BasicAuth("alice", "pw"))
	cc.Clear()
	if cc.Len() != 0 {
		t.Errorf("expected empty cache after Clear, got %d entries", cc.Len())
	}
}

func TestAuthDescriptorSignatures(t *testing.T) {
	if got := BasicAuth("alice", "pw").Signature(); got != "basic:alice" {
		t.Errorf("basic signature = %q", got)
	}
	if got := OAuth2Auth("app", "h", "corp", "", "").Signature(); got != "oauth2:app@corp" {
		t.Errorf("oauth2 signature = %q", got)
	}
	var nilDesc *AuthDescriptor
	if got := nilDesc.Signature(); got != "anon" {
		t.Errorf("nil signature = %q", got)
	}
}
