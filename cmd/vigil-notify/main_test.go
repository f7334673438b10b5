package main

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRunWithSenderRequiresProjectID(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := runWithSender(nil, &stdout, &stderr, nil)
	if code != exitCodeUsage {
		t.Fatalf("expected code %d, got %d", exitCodeUsage, code)
	}
	if !strings.Contains(stderr.String(), "project id is required") {
		t.Fatalf("expected project id error, got %q", stderr.String())
	}
}

func TestRunWithSenderNonZeroWritesStderr(t *testing.T) {
	cases := []struct {
		name    string
		code    int
		message string
	}{
		{name: "rejected", code: exitCodeRejected, message: "request rejected"},
		{name: "network", code: exitCodeNetwork, message: "network failure"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := runWithSender([]string{"my-service"}, &stdout, &stderr, func(Config) error {
				return notifyErr(tc.code, tc.message)
			})
			if code != tc.code {
				t.Fatalf("expected code %d, got %d", tc.code, code)
			}
			if !strings.Contains(stderr.String(), tc.message) {
				t.Fatalf("expected stderr to contain %q, got %q", tc.message, stderr.String())
			}
		})
	}
}

func TestRunWithSenderPassesConfig(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := runWithSender(
		[]string{"--url", "http://coordinator:7130", "--token", "s3cret", "--agent", "ops", "my-service"},
		&stdout,
		&stderr,
		func(cfg Config) error {
			if cfg.URL != "http://coordinator:7130" {
				t.Fatalf("unexpected url %q", cfg.URL)
			}
			if cfg.Token != "s3cret" {
				t.Fatalf("unexpected token %q", cfg.Token)
			}
			if cfg.AgentID != "ops" {
				t.Fatalf("unexpected agent %q", cfg.AgentID)
			}
			if cfg.ProjectID != "my-service" {
				t.Fatalf("unexpected project id %q", cfg.ProjectID)
			}
			return nil
		},
	)
	if code != exitCodeSuccess {
		t.Fatalf("expected success, got %d", code)
	}
}

func TestRunWithSenderVersion(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := runWithSender([]string{"--version"}, &stdout, &stderr, func(Config) error {
		t.Fatal("sender should not run for --version")
		return nil
	})
	if code != exitCodeSuccess {
		t.Fatalf("expected success, got %d", code)
	}
	if !strings.Contains(stdout.String(), "vigil-notify") {
		t.Fatalf("expected version output, got %q", stdout.String())
	}
}

func TestRunWithSenderHelp(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := runWithSender([]string{"--help"}, &stdout, &stderr, nil)
	if code != exitCodeSuccess {
		t.Fatalf("expected success, got %d", code)
	}
	if !strings.Contains(stderr.String(), "Usage: vigil-notify") {
		t.Fatalf("expected usage output, got %q", stderr.String())
	}
}

func TestHandleNotifyErrorPrintsOnce(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
		want string
	}{
		{"coded", notifyErr(exitCodeRejected, "request rejected"), exitCodeRejected, "request rejected\n"},
		{"zero code", notifyErr(0, "no code"), exitCodeNetwork, "no code\n"},
		{"plain error", errors.New("plain failure"), exitCodeNetwork, "plain failure\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var stderr bytes.Buffer
			code := handleNotifyError(tc.err, &stderr)
			if code != tc.code {
				t.Fatalf("expected code %d, got %d", tc.code, code)
			}
			if stderr.String() != tc.want {
				t.Fatalf("expected stderr %q, got %q", tc.want, stderr.String())
			}
		})
	}
}

func TestSendSyncRequestAgainstServer(t *testing.T) {
	var gotPath, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	err := sendSyncRequest(Config{
		URL:       server.URL,
		Token:     "s3cret",
		AgentID:   "ops",
		ProjectID: "my-service",
	})
	if err != nil {
		t.Fatalf("sendSyncRequest failed: %v", err)
	}
	if gotPath != "/api/projects/my-service/sync" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotAuth != "Bearer s3cret" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
}

func TestSendSyncRequestMapsRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"unknown project"}`, http.StatusNotFound)
	}))
	defer server.Close()

	err := sendSyncRequest(Config{URL: server.URL, AgentID: "ops", ProjectID: "ghost"})
	if err == nil {
		t.Fatal("expected error for rejected request")
	}
	var notifyErr *notifyError
	if !errors.As(err, &notifyErr) {
		t.Fatalf("expected notifyError, got %T", err)
	}
	if notifyErr.Code != exitCodeRejected {
		t.Fatalf("expected code %d, got %d", exitCodeRejected, notifyErr.Code)
	}
}
