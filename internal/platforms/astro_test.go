package platforms

import "testing"

func TestExtractFragmentParams(t *testing.T) {
	location := "https://astrogo.astro.com.my/#access_token=abc123&token_type=Bearer&expires_in=3600"

	params := extractFragmentParams(location)
	if params["access_token"] != "abc123" {
		t.Errorf("expected access_token abc123, got %q", params["access_token"])
	}
	if params["token_type"] != "Bearer" {
		t.Errorf("expected token_type Bearer, got %q", params["token_type"])
	}
}

func TestExtractFragmentParamsEmpty(t *testing.T) {
	if params := extractFragmentParams("https://astrogo.astro.com.my/"); params["access_token"] != "" {
		t.Error("expected no token in a fragmentless URL")
	}
	if params := extractFragmentParams("://bad"); len(params) != 0 {
		t.Error("expected no params from an unparsable URL")
	}
}
