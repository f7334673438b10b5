package descriptor

import (
	"path"
	"strings"

	"github.com/gobwas/glob"
)

// IgnoreMatcher decides whether a project-relative path is excluded from
// watching by a descriptor's ignore filters.
type IgnoreMatcher struct {
	prefixes  []string
	patterns  []glob.Glob
	filenames map[string]struct{}
}

// NewIgnoreMatcher compiles the descriptor's ignore filters. Patterns without
// glob metacharacters act as path prefixes.
func NewIgnoreMatcher(descriptor Descriptor) (*IgnoreMatcher, error) {
	matcher := &IgnoreMatcher{
		filenames: make(map[string]struct{}, len(descriptor.IgnoredFilenames)),
	}

	for _, pattern := range descriptor.IgnoredPaths {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		if !strings.ContainsAny(pattern, "*?[{") {
			matcher.prefixes = append(matcher.prefixes, strings.TrimSuffix(pattern, "/"))
			continue
		}
		compiled, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, err
		}
		matcher.patterns = append(matcher.patterns, compiled)
	}

	for _, name := range descriptor.IgnoredFilenames {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		matcher.filenames[name] = struct{}{}
	}

	return matcher, nil
}

// Ignored reports whether the path matches any ignore filter.
func (matcher *IgnoreMatcher) Ignored(relativePath string) bool {
	if matcher == nil || relativePath == "" {
		return false
	}

	if _, ok := matcher.filenames[path.Base(relativePath)]; ok {
		return true
	}
	for _, prefix := range matcher.prefixes {
		if relativePath == prefix || strings.HasPrefix(relativePath, prefix+"/") {
			return true
		}
	}
	for _, pattern := range matcher.patterns {
		if pattern.Match(relativePath) {
			return true
		}
	}
	return false
}
