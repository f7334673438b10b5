package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"vigil/internal/client"
)

var httpClient = &http.Client{Timeout: defaultNotifyTimeout}

type notifyError struct {
	Code    int
	Message string
}

func (e *notifyError) Error() string {
	return e.Message
}

func notifyErr(code int, message string) *notifyError {
	return &notifyError{Code: code, Message: message}
}

func notifyErrf(code int, format string, args ...any) *notifyError {
	return &notifyError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func notifyErrFromClient(err error) *notifyError {
	var httpErr *client.HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.StatusCode >= http.StatusBadRequest && httpErr.StatusCode < http.StatusInternalServerError {
			return notifyErr(exitCodeRejected, httpErr.Message)
		}
		return notifyErr(exitCodeNetwork, httpErr.Message)
	}
	return notifyErrf(exitCodeNetwork, "%v", err)
}

func handleNotifyError(err error, errOut io.Writer) int {
	var notifyErr *notifyError
	if errors.As(err, &notifyErr) {
		fmt.Fprintln(errOut, notifyErr.Message)
		if notifyErr.Code != 0 {
			return notifyErr.Code
		}
		return exitCodeNetwork
	}
	fmt.Fprintln(errOut, err.Error())
	return exitCodeNetwork
}

func sendSyncRequest(cfg Config) error {
	baseURL := strings.TrimRight(cfg.URL, "/")
	if baseURL == "" {
		baseURL = defaultCoordinatorURL
	}

	if cfg.Verbose {
		escapedID := url.PathEscape(cfg.ProjectID)
		target := fmt.Sprintf("%s/api/projects/%s/sync", baseURL, escapedID)
		logf(cfg, "posting sync request to %s", target)
		if strings.TrimSpace(cfg.Token) != "" {
			logf(cfg, "token: %s", maskToken(cfg.Token))
		}
	}

	if err := client.PostSyncRequest(httpClient, baseURL, cfg.Token, cfg.AgentID, cfg.ProjectID); err != nil {
		return notifyErrFromClient(err)
	}
	if cfg.Verbose {
		logf(cfg, "sync accepted for project %s", cfg.ProjectID)
	}
	return nil
}

func logf(cfg Config, format string, args ...any) {
	if cfg.LogWriter == nil || !cfg.Verbose {
		return
	}
	fmt.Fprintf(cfg.LogWriter, format+"\n", args...)
}

func maskToken(token string) string {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return ""
	}
	if len(trimmed) <= 4 {
		return "****"
	}
	return trimmed[:2] + strings.Repeat("*", len(trimmed)-4) + trimmed[len(trimmed)-2:]
}

func applyTimeout(cfg Config) {
	if cfg.Timeout <= 0 {
		return
	}
	if httpClient.Timeout != cfg.Timeout {
		httpClient.Timeout = cfg.Timeout
	}
}
