package gcs

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func staticTokenSource(token string) *tokenSource {
	return &tokenSource{
		fetch: func(context.Context) (string, time.Time, error) {
			return token, time.Now().Add(time.Hour), nil
		},
	}
}

func TestUploadSuccess(t *testing.T) {
	t.Parallel()

	var gotPath, gotQuery, gotAuth, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"name":"prompts/a.png"}`))
	}))
	defer srv.Close()

	client := &Client{
		httpClient:    srv.Client(),
		defaultBucket: "bucket",
		tokenSource:   staticTokenSource("tok"),
		endpoint:      srv.URL,
	}

	url, err := client.Upload(context.Background(), "prompts/a.png", "image/png", strings.NewReader("payload"))
	if err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}
	if url != "https://storage.googleapis.com/bucket/prompts/a.png" {
		t.Fatalf("unexpected object url %s", url)
	}
	if gotPath != "/upload/storage/v1/b/bucket/o" {
		t.Fatalf("unexpected upload path %s", gotPath)
	}
	if !strings.Contains(gotQuery, "uploadType=media") || !strings.Contains(gotQuery, "name=prompts%2Fa.png") {
		t.Fatalf("unexpected upload query %s", gotQuery)
	}
	if gotAuth != "Bearer tok" {
		t.Fatalf("unexpected authorization header %s", gotAuth)
	}
	if gotBody != "payload" {
		t.Fatalf("unexpected body %q", gotBody)
	}
}

func TestUploadFailureSurfacesStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusForbidden)
	}))
	defer srv.Close()

	client := &Client{
		httpClient:    srv.Client(),
		defaultBucket: "bucket",
		tokenSource:   staticTokenSource("tok"),
		endpoint:      srv.URL,
	}

	_, err := client.Upload(context.Background(), "k", "image/png", strings.NewReader("x"))
	if err == nil {
		t.Fatal("expected upload error")
	}
	if !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("error should carry response body, got %v", err)
	}
}

func TestDeleteTreatsNotFoundAsSuccess(t *testing.T) {
	t.Parallel()

	statuses := []int{http.StatusOK, http.StatusNoContent, http.StatusNotFound}
	for _, status := range statuses {
		status := status
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodDelete {
				t.Errorf("unexpected method %s", r.Method)
			}
			w.WriteHeader(status)
		}))

		client := &Client{
			httpClient:    srv.Client(),
			defaultBucket: "bucket",
			tokenSource:   staticTokenSource("tok"),
			endpoint:      srv.URL,
		}

		if err := client.Delete(context.Background(), "prompts/a.png"); err != nil {
			t.Fatalf("Delete with status %d returned error: %v", status, err)
		}
		srv.Close()
	}
}

func TestDeleteFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := &Client{
		httpClient:    srv.Client(),
		defaultBucket: "bucket",
		tokenSource:   staticTokenSource("tok"),
		endpoint:      srv.URL,
	}

	if err := client.Delete(context.Background(), "k"); err == nil {
		t.Fatal("expected delete error")
	}
}

func TestObjectURL(t *testing.T) {
	t.Parallel()

	client := &Client{defaultBucket: "bucket"}
	if got := client.ObjectURL("profiles/u.png"); got != "https://storage.googleapis.com/bucket/profiles/u.png" {
		t.Fatalf("unexpected object url %s", got)
	}
}
