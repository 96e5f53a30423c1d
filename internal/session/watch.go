package session

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/isaacphi/codegraph-lsp/internal/protocol"
)

// watchDebounce coalesces bursts of file-system events (e.g. an editor's
// save-via-rename) into a single didChangeWatchedFiles notification,
// mirroring the debounced watcher idiom used elsewhere in the pack.
const watchDebounce = 200 * time.Millisecond

// fileWatch answers the server's client/registerCapability registration
// for workspace/didChangeWatchedFiles (spec.md's dynamic-registration
// surface): it watches the repository tree with fsnotify and forwards
// matching changes back to the server as workspace/didChangeWatchedFiles
// notifications, since fsnotify has no concept of the LSP wire format.
type fileWatch struct {
	sess *Session
	root string
	fsw  *fsnotify.Watcher

	mu       sync.Mutex
	patterns []string
	pending  map[string]protocol.FileChangeType
	timer    *time.Timer

	done chan struct{}
}

// handleRegisterCapability is installed as the rpc.Core's registration
// hook. Only workspace/didChangeWatchedFiles is meaningful here; every
// other dynamic registration the server asks for is acknowledged (rpc.Core
// replies nil once this hook returns) and otherwise ignored, since this
// client does not offer code actions, formatting, or the other
// capabilities servers sometimes register for.
func (s *Session) handleRegisterCapability(method string, registerOptions json.RawMessage) {
	if method != "workspace/didChangeWatchedFiles" {
		return
	}
	var opts protocol.DidChangeWatchedFilesRegistrationOptions
	if err := json.Unmarshal(registerOptions, &opts); err != nil {
		s.logger.Warn("malformed didChangeWatchedFiles registration", "err", err)
		return
	}
	patterns := make([]string, 0, len(opts.Watchers))
	for _, w := range opts.Watchers {
		patterns = append(patterns, w.GlobPattern)
	}
	if err := s.startWatching(patterns); err != nil {
		s.logger.Warn("failed to start file watcher", "err", err)
	}
}

// startWatching lazily creates the fsnotify watcher on first registration
// and otherwise just replaces the active glob patterns, since a server may
// re-register (e.g. after a workspace/didChangeConfiguration round trip).
func (s *Session) startWatching(patterns []string) error {
	s.mu.Lock()
	existing := s.watch
	s.mu.Unlock()

	if existing != nil {
		existing.mu.Lock()
		existing.patterns = patterns
		existing.mu.Unlock()
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	fw := &fileWatch{
		sess:     s,
		root:     s.root,
		fsw:      fsw,
		patterns: patterns,
		pending:  make(map[string]protocol.FileChangeType),
		done:     make(chan struct{}),
	}
	if err := fw.addRecursive(s.root); err != nil {
		fsw.Close()
		return err
	}

	s.mu.Lock()
	s.watch = fw
	s.mu.Unlock()

	go fw.run()
	return nil
}

func (fw *fileWatch) addRecursive(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		if info.Name() == ".git" || info.Name() == "node_modules" || info.Name() == ".multilspy" {
			return filepath.SkipDir
		}
		_ = fw.fsw.Add(path)
		return nil
	})
}

func (fw *fileWatch) matches(relPath string) bool {
	fw.mu.Lock()
	patterns := fw.patterns
	fw.mu.Unlock()
	if len(patterns) == 0 {
		return true
	}
	relPath = filepath.ToSlash(relPath)
	base := filepath.Base(relPath)
	for _, p := range patterns {
		p = strings.TrimPrefix(p, "**/")
		if ok, _ := filepath.Match(p, relPath); ok {
			return true
		}
		if ok, _ := filepath.Match(p, base); ok {
			return true
		}
	}
	return false
}

func (fw *fileWatch) run() {
	defer fw.fsw.Close()
	for {
		select {
		case <-fw.done:
			return
		case ev, ok := <-fw.fsw.Events:
			if !ok {
				return
			}
			fw.handle(ev)
		case _, ok := <-fw.fsw.Errors:
			if !ok {
				return
			}
		}
	}
}

func (fw *fileWatch) handle(ev fsnotify.Event) {
	relPath, err := filepath.Rel(fw.root, ev.Name)
	if err != nil || !fw.matches(relPath) {
		return
	}

	var changeType protocol.FileChangeType
	switch {
	case ev.Op&fsnotify.Create != 0:
		changeType = protocol.FileChangeCreated
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			_ = fw.addRecursive(ev.Name)
		}
	case ev.Op&fsnotify.Write != 0:
		changeType = protocol.FileChangeChanged
	case ev.Op&fsnotify.Remove != 0, ev.Op&fsnotify.Rename != 0:
		changeType = protocol.FileChangeDeleted
	default:
		return
	}

	fw.mu.Lock()
	fw.pending[ev.Name] = changeType
	if fw.timer != nil {
		fw.timer.Stop()
	}
	fw.timer = time.AfterFunc(watchDebounce, fw.flush)
	fw.mu.Unlock()
}

func (fw *fileWatch) flush() {
	fw.mu.Lock()
	if len(fw.pending) == 0 {
		fw.mu.Unlock()
		return
	}
	changes := make([]protocol.FileEvent, 0, len(fw.pending))
	for path, ct := range fw.pending {
		changes = append(changes, protocol.FileEvent{URI: fw.sess.ToURI(path), Type: ct})
	}
	fw.pending = make(map[string]protocol.FileChangeType)
	fw.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	if err := fw.sess.Notify(ctx, "workspace/didChangeWatchedFiles", protocol.DidChangeWatchedFilesParams{Changes: changes}); err != nil {
		fw.sess.logger.Warn("failed to notify didChangeWatchedFiles", "err", err)
	}
}

func (fw *fileWatch) stop() {
	select {
	case <-fw.done:
	default:
		close(fw.done)
	}
}
