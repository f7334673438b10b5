package watcher

import (
	"io/fs"
	"os"
	"path/filepath"
)

func (watcher *ProjectWatcher) addRecursiveWatches(root string) error {
	dirs, err := collectDirs(root, watcher.shouldDescend)
	if err != nil {
		return err
	}
	for _, dir := range dirs {
		if err := watcher.addWatch(dir); err != nil {
			return err
		}
	}
	return nil
}

// collectDirs walks root and returns root plus every descendant directory the
// filter admits. Unreadable entries are skipped, not fatal.
func collectDirs(root string, descend func(string) bool) ([]string, error) {
	dirs := []string{root}
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !entry.IsDir() || path == root {
			return nil
		}
		if descend != nil && !descend(path) {
			return filepath.SkipDir
		}
		dirs = append(dirs, path)
		return nil
	})
	return dirs, err
}

func (watcher *ProjectWatcher) shouldDescend(osPath string) bool {
	relative, ok := watcher.relativePath(osPath)
	if !ok {
		return false
	}
	return !watcher.ignore.Ignored(relative)
}

func (watcher *ProjectWatcher) addWatch(osPath string) error {
	watcher.mu.Lock()
	if watcher.closed {
		watcher.mu.Unlock()
		return nil
	}
	if _, ok := watcher.watched[osPath]; ok {
		watcher.mu.Unlock()
		return nil
	}
	if len(watcher.watched) >= watcher.maxWatches {
		watcher.mu.Unlock()
		return ErrMaxWatchesExceeded
	}
	watcher.watched[osPath] = struct{}{}
	watcher.mu.Unlock()

	if err := watcher.watcher.Add(osPath); err != nil {
		watcher.forgetWatch(osPath)
		return err
	}
	return nil
}

func (watcher *ProjectWatcher) forgetWatch(osPath string) {
	watcher.mu.Lock()
	delete(watcher.watched, osPath)
	watcher.mu.Unlock()
}

// maybeWatchNewDir registers a watch for a directory created after startup so
// its contents produce events too.
func (watcher *ProjectWatcher) maybeWatchNewDir(osPath string) {
	info, err := os.Stat(osPath)
	if err != nil || !info.IsDir() {
		return
	}
	if !watcher.shouldDescend(osPath) {
		return
	}
	if err := watcher.addRecursiveWatches(osPath); err != nil {
		watcher.logWarn("watch add failed for new directory", map[string]string{
			"path":  osPath,
			"error": err.Error(),
		})
	}
}
