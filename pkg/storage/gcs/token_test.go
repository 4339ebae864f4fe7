package gcs

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

func testCredentials(t *testing.T) (string, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}
	creds, _ := json.Marshal(serviceAccount{
		ClientEmail: "uploader@grmc.iam.gserviceaccount.com",
		PrivateKey:  string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})),
		TokenURI:    "https://oauth.test/token",
	})
	return string(creds), key
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": {"application/json"}},
	}
}

func TestServiceAccountTokenIsSignedAndCached(t *testing.T) {
	creds, key := testCredentials(t)
	calls := 0
	client := &http.Client{Transport: roundTripFunc(func(req *http.Request) *http.Response {
		calls++
		if req.URL.String() != "https://oauth.test/token" {
			t.Fatalf("unexpected token url %s", req.URL)
		}
		if err := req.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if req.PostForm.Get("grant_type") != jwtBearerGrant {
			t.Fatalf("unexpected grant %q", req.PostForm.Get("grant_type"))
		}
		claims := jwt.MapClaims{}
		_, err := jwt.ParseWithClaims(req.PostForm.Get("assertion"), claims, func(*jwt.Token) (any, error) {
			return &key.PublicKey, nil
		}, jwt.WithValidMethods([]string{"RS256"}))
		if err != nil {
			t.Fatalf("assertion does not verify: %v", err)
		}
		if claims["scope"] != storageScope || claims["iss"] != "uploader@grmc.iam.gserviceaccount.com" {
			t.Fatalf("unexpected assertion claims %v", claims)
		}
		return jsonResponse(http.StatusOK, `{"access_token":"ya29.abc","expires_in":3600}`)
	})}

	ts, err := newServiceAccountTokenSource(client, creds)
	if err != nil {
		t.Fatalf("token source: %v", err)
	}
	for range 2 {
		token, err := ts.Token(context.Background())
		if err != nil || token != "ya29.abc" {
			t.Fatalf("unexpected token %q err=%v", token, err)
		}
	}
	if calls != 1 {
		t.Fatalf("expected one token exchange, got %d", calls)
	}
}

func TestServiceAccountRejectsBadCredentials(t *testing.T) {
	if _, err := newServiceAccountTokenSource(http.DefaultClient, "{"); err == nil {
		t.Fatal("expected json error")
	}
	if _, err := newServiceAccountTokenSource(http.DefaultClient, `{"client_email":"a@b"}`); err == nil {
		t.Fatal("expected missing key error")
	}
	if _, err := newServiceAccountTokenSource(http.DefaultClient, `{"client_email":"a@b","private_key":"nope"}`); err == nil {
		t.Fatal("expected pem error")
	}
}

func TestMetadataTokenErrors(t *testing.T) {
	client := &http.Client{Transport: roundTripFunc(func(req *http.Request) *http.Response {
		if req.Header.Get("Metadata-Flavor") != "Google" {
			t.Fatalf("metadata header missing")
		}
		return jsonResponse(http.StatusOK, `{"expires_in":60}`)
	})}
	if _, err := newMetadataTokenSource(client).Token(context.Background()); err == nil {
		t.Fatal("expected error for response without access_token")
	}

	denied := &http.Client{Transport: roundTripFunc(func(*http.Request) *http.Response {
		return jsonResponse(http.StatusForbidden, `{}`)
	})}
	if _, err := newMetadataTokenSource(denied).Token(context.Background()); err == nil {
		t.Fatal("expected error for forbidden metadata response")
	}
}
