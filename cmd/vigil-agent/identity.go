package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const identityFile = "agent-id"

// loadOrCreateAgentID returns the persistent identity this agent reports to
// the coordinator, generating and storing one on first run.
func loadOrCreateAgentID(stateDir string) (string, error) {
	if stateDir == "" {
		return uuid.NewString(), nil
	}
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return "", fmt.Errorf("create state dir %s: %w", stateDir, err)
	}

	path := filepath.Join(stateDir, identityFile)
	payload, err := os.ReadFile(path)
	if err == nil {
		id := strings.TrimSpace(string(payload))
		if _, parseErr := uuid.Parse(id); parseErr == nil {
			return id, nil
		}
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("read agent id %s: %w", path, err)
	}

	id := uuid.NewString()
	if err := os.WriteFile(path, []byte(id+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("write agent id %s: %w", path, err)
	}
	return id, nil
}
