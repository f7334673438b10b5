package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"vigil/internal/descriptor"
)

// FetchWatchRecords retrieves the coordinator's current watch descriptions.
func FetchWatchRecords(client *http.Client, baseURL, token string) ([]descriptor.Record, error) {
	client = ensureClient(client)
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		return nil, errors.New("base URL is required")
	}

	request, err := http.NewRequest(http.MethodGet, baseURL+"/api/watch", nil)
	if err != nil {
		return nil, fmt.Errorf("build watch request failed: %w", err)
	}
	addToken(request, token)

	response, err := client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("watch request failed: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		message := readErrorMessage(response)
		return nil, &HTTPError{StatusCode: response.StatusCode, Message: message}
	}

	var records []descriptor.Record
	if err := json.NewDecoder(response.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode watch response: %w", err)
	}
	return records, nil
}

// PostSyncRequest tells the coordinator a project has a settled batch ready.
// The coordinator decides what resyncing means; only identity crosses here.
func PostSyncRequest(client *http.Client, baseURL, token, agentID, projectID string) error {
	client = ensureClient(client)
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		return errors.New("base URL is required")
	}
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return errors.New("project id is required")
	}

	body, err := json.Marshal(map[string]string{"agent": agentID})
	if err != nil {
		return fmt.Errorf("encode sync request: %w", err)
	}

	endpoint := baseURL + "/api/projects/" + url.PathEscape(projectID) + "/sync"
	request, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build sync request failed: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	addToken(request, token)

	response, err := client.Do(request)
	if err != nil {
		return fmt.Errorf("sync request failed: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode == http.StatusNoContent || response.StatusCode == http.StatusOK || response.StatusCode == http.StatusAccepted {
		return nil
	}

	message := readErrorMessage(response)
	return &HTTPError{StatusCode: response.StatusCode, Message: message}
}
