// Package descriptor models the coordinator-provided description of what to
// watch. A wire record parses into either a full Descriptor or a minimal
// DeletionNotice; the two shapes are distinct types so a missing root can
// never be dereferenced by accident.
package descriptor

import (
	"errors"
	"fmt"
	"strings"
)

// nonProjectType marks roots that live outside the managed project structure.
const nonProjectType = "non-project"

// Descriptor is a validated, immutable description of one watched project.
type Descriptor struct {
	ProjectID        string
	Root             string
	IgnoredPaths     []string
	IgnoredFilenames []string
	WatchStateID     string
	External         bool
	ExtraFiles       []string
	CreationTimeMS   int64
}

// DeletionNotice announces removal of a previously watched project.
type DeletionNotice struct {
	ProjectID    string
	WatchStateID string
}

var (
	ErrProjectIDRequired = errors.New("project id is required")
	ErrRootRequired      = errors.New("root path is required")
)

// NewDescriptor builds a validated Descriptor from a wire record.
// List-valued fields are copied, never aliased.
func NewDescriptor(record Record) (Descriptor, error) {
	projectID := strings.TrimSpace(record.ProjectID)
	if projectID == "" {
		return Descriptor{}, ErrProjectIDRequired
	}

	root := NormalizeRoot(record.Root)
	if err := ValidateRoot(root); err != nil {
		return Descriptor{}, fmt.Errorf("project %s: %w", projectID, err)
	}

	extraFiles := make([]string, 0, len(record.ReferencedFiles))
	for _, referenced := range record.ReferencedFiles {
		path := strings.TrimSpace(referenced.Path)
		if path == "" {
			continue
		}
		extraFiles = append(extraFiles, path)
	}

	return Descriptor{
		ProjectID:        projectID,
		Root:             root,
		IgnoredPaths:     copyStrings(record.IgnoredPaths),
		IgnoredFilenames: copyStrings(record.IgnoredFiles),
		WatchStateID:     record.WatchStateID,
		External:         strings.EqualFold(strings.TrimSpace(record.ProjectType), nonProjectType),
		ExtraFiles:       extraFiles,
		CreationTimeMS:   record.CreationTime,
	}, nil
}

// NewDeletionNotice builds the minimal deletion shape. No path validation runs.
func NewDeletionNotice(record Record) DeletionNotice {
	return DeletionNotice{
		ProjectID:    strings.TrimSpace(record.ProjectID),
		WatchStateID: record.WatchStateID,
	}
}

// WithCreationTime returns a copy of the descriptor with only the creation
// time replaced. The root is re-validated on the copy.
func (descriptor Descriptor) WithCreationTime(creationTimeMS int64) (Descriptor, error) {
	clone := descriptor
	clone.IgnoredPaths = copyStrings(descriptor.IgnoredPaths)
	clone.IgnoredFilenames = copyStrings(descriptor.IgnoredFilenames)
	clone.ExtraFiles = copyStrings(descriptor.ExtraFiles)
	clone.CreationTimeMS = creationTimeMS
	if err := ValidateRoot(clone.Root); err != nil {
		return Descriptor{}, fmt.Errorf("project %s: %w", clone.ProjectID, err)
	}
	return clone, nil
}

// ValidateRoot enforces the root path invariant every downstream path
// computation depends on: non-empty, forward slashes only, absolute, no
// trailing separator.
func ValidateRoot(path string) error {
	if path == "" {
		return ErrRootRequired
	}
	if strings.ContainsRune(path, '\\') {
		return fmt.Errorf("root path %q must use forward slashes", path)
	}
	if !strings.HasPrefix(path, "/") {
		return fmt.Errorf("root path %q must be absolute", path)
	}
	if len(path) > 1 && strings.HasSuffix(path, "/") {
		return fmt.Errorf("root path %q must not end with a separator", path)
	}
	return nil
}

// NormalizeRoot lowercases a leading drive letter so descriptors for the same
// volume compare equal regardless of how the coordinator cased them.
func NormalizeRoot(path string) string {
	if len(path) >= 3 && path[0] == '/' && path[2] == ':' && isASCIIUpper(path[1]) {
		return "/" + string(path[1]+'a'-'A') + path[2:]
	}
	return path
}

func isASCIIUpper(value byte) bool {
	return value >= 'A' && value <= 'Z'
}

func copyStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}
