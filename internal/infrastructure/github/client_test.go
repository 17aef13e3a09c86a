package github

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := NewClient(context.Background(), Options{Token: "test-token", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client
}

func TestListRepositoriesFollowsPagination(t *testing.T) {
	mux := http.NewServeMux()
	var serverURL string
	mux.HandleFunc("/user/repos", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q, want bearer token", got)
		}
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, `[{"id":2,"name":"web","full_name":"acme/web","owner":{"login":"acme"},"default_branch":"main","private":true}]`)
			return
		}
		w.Header().Set("Link", fmt.Sprintf(`<%s/user/repos?page=2>; rel="next"`, serverURL))
		fmt.Fprint(w, `[{"id":1,"name":"api","full_name":"acme/api","owner":{"login":"acme"},"default_branch":"main","description":"API"}]`)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	serverURL = server.URL

	client, err := NewClient(context.Background(), Options{Token: "test-token", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	repos, err := client.ListRepositories(context.Background())
	if err != nil {
		t.Fatalf("ListRepositories() error = %v", err)
	}
	if len(repos) != 2 {
		t.Fatalf("ListRepositories() len = %d, want 2", len(repos))
	}
	if repos[0].FullName != "acme/api" || repos[0].Description == nil || *repos[0].Description != "API" {
		t.Fatalf("repos[0] = %+v", repos[0])
	}
	if repos[1].GitHubID != 2 || !repos[1].Private || repos[1].Owner != "acme" {
		t.Fatalf("repos[1] = %+v", repos[1])
	}
}

func TestListPullRequestsAndChildren(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/api/pulls", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("state"); got != "all" {
			t.Errorf("state = %q, want all", got)
		}
		fmt.Fprint(w, `[{"id":500,"number":7,"title":"Add","state":"closed","user":{"login":"octo","avatar_url":"https://a"},
			"base":{"ref":"main"},"head":{"ref":"feature","sha":"abc"},"merged_at":"2026-01-02T00:00:00Z",
			"created_at":"2026-01-01T00:00:00Z","updated_at":"2026-01-02T00:00:00Z"}]`)
	})
	mux.HandleFunc("/repos/acme/api/pulls/7/reviews", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id":900,"state":"APPROVED","body":"ok","user":{"login":"rev"},"submitted_at":"2026-01-02T00:00:00Z"}]`)
	})
	mux.HandleFunc("/repos/acme/api/pulls/7/comments", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id":800,"body":"nit","original_position":3,"side":"LEFT","path":"a.go","original_commit_id":"def","user":{"login":"rev"},"created_at":"2026-01-02T00:00:00Z"}]`)
	})
	client := newTestClient(t, mux)
	ctx := context.Background()

	prs, err := client.ListPullRequests(ctx, "acme", "api", "all")
	if err != nil {
		t.Fatalf("ListPullRequests() error = %v", err)
	}
	if len(prs) != 1 || prs[0].Number != 7 || !prs[0].Merged || prs[0].HeadSHA == nil || *prs[0].HeadSHA != "abc" || prs[0].MergedAt == nil {
		t.Fatalf("ListPullRequests() = %+v", prs)
	}

	reviews, err := client.ListReviews(ctx, "acme", "api", 7)
	if err != nil {
		t.Fatalf("ListReviews() error = %v", err)
	}
	if len(reviews) != 1 || reviews[0].State != "APPROVED" || reviews[0].SubmittedAt == nil {
		t.Fatalf("ListReviews() = %+v", reviews)
	}

	comments, err := client.ListReviewComments(ctx, "acme", "api", 7)
	if err != nil {
		t.Fatalf("ListReviewComments() error = %v", err)
	}
	if len(comments) != 1 || comments[0].OriginalPosition == nil || *comments[0].OriginalPosition != 3 || comments[0].CommitID == nil || *comments[0].CommitID != "def" {
		t.Fatalf("ListReviewComments() = %+v", comments)
	}
}

func TestListPullRequestsPropagatesAPIError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/api/pulls", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
	})
	client := newTestClient(t, mux)

	if _, err := client.ListPullRequests(context.Background(), "acme", "api", ""); err == nil {
		t.Fatalf("ListPullRequests() error = nil, want API error")
	}
}

func writeAppKey(t *testing.T) string {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	block := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	path := filepath.Join(t.TempDir(), "app.pem")
	if err := os.WriteFile(path, block, 0o600); err != nil {
		t.Fatalf("write key: %v", err)
	}
	return path
}

func TestListRepositoriesAsInstallation(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/app/installations/77/access_tokens", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("access token method = %s, want POST", r.Method)
		}
		if got := r.Header.Get("Authorization"); !strings.HasPrefix(got, "Bearer ") {
			t.Errorf("access token Authorization = %q, want app JWT", got)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"token":"ghs_installation","expires_at":"2099-01-01T00:00:00Z"}`)
	})
	mux.HandleFunc("/installation/repositories", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "token ghs_installation" {
			t.Errorf("Authorization = %q, want installation token", got)
		}
		fmt.Fprint(w, `{"total_count":1,"repositories":[{"id":5,"name":"api","full_name":"acme/api","owner":{"login":"acme"},"default_branch":"main"}]}`)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := NewClient(context.Background(), Options{
		Token:          "ignored",
		BaseURL:        server.URL,
		AppID:          12,
		InstallationID: 77,
		PrivateKeyPath: writeAppKey(t),
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	repos, err := client.ListRepositories(context.Background())
	if err != nil {
		t.Fatalf("ListRepositories() error = %v", err)
	}
	if len(repos) != 1 || repos[0].GitHubID != 5 || repos[0].FullName != "acme/api" || repos[0].Owner != "acme" {
		t.Fatalf("ListRepositories() = %+v", repos)
	}
}

func TestNewClientRejectsMissingAppKey(t *testing.T) {
	_, err := NewClient(context.Background(), Options{
		AppID:          12,
		InstallationID: 77,
		PrivateKeyPath: filepath.Join(t.TempDir(), "missing.pem"),
	})
	if err == nil {
		t.Fatal("NewClient() error = nil, want missing key error")
	}
}
