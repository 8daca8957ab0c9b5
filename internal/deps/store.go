// Package deps makes sure build-time source dependencies are on disk before
// any target is configured.
package deps

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/goplus/extbuild/internal/lockedfile"
	"github.com/goplus/extbuild/internal/vcs"
	"github.com/qiniu/x/log"
	"go.trai.ch/zerr"
)

// ErrDependencyFetchFailed is returned when a dependency cannot be fetched.
var ErrDependencyFetchFailed = zerr.New("failed to fetch build dependency")

// DefaultRemote is where the pybind11 headers come from.
const DefaultRemote = "https://github.com/pybind/pybind11.git"

// Store is a capability for one dependency.
type Store interface {
	// IsPresent reports whether the dependency can be used as is.
	IsPresent(ctx context.Context) (bool, error)

	// Fetch (re)populates the dependency.
	Fetch(ctx context.Context) error
}

// Locker is implemented by stores that need exclusive access across
// processes while being checked and fetched.
type Locker interface {
	Lock() (unlock func(), err error)
}

// Ensure fetches the dependency unless it is already present. It reports
// whether a fetch happened.
func Ensure(ctx context.Context, s Store) (fetched bool, err error) {
	if l, ok := s.(Locker); ok {
		unlock, err := l.Lock()
		if err != nil {
			return false, errors.Join(ErrDependencyFetchFailed, zerr.Wrap(err, "failed to lock dependency"))
		}
		defer unlock()
	}
	present, err := s.IsPresent(ctx)
	if err != nil {
		return false, errors.Join(ErrDependencyFetchFailed, err)
	}
	if present {
		return false, nil
	}
	if err := s.Fetch(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// Fetch-state recorded beside the dependency directory.
const (
	statePending  = "pending"
	stateComplete = "complete"
)

type marker struct {
	State     string    `json:"state"`
	Remote    string    `json:"remote"`
	Ref       string    `json:"ref,omitempty"`
	Commit    string    `json:"commit,omitempty"`
	Digest    string    `json:"digest,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
}

// DirStore keeps a dependency as a git checkout in Dest.
//
// A fetch first records a pending marker and only marks itself complete,
// together with a digest of the fetched tree, once clone and submodule
// initialization have both succeeded. A directory left behind by an
// interrupted fetch is therefore never mistaken for a usable one.
// A non-empty Dest without any marker is treated as a vendored copy.
type DirStore struct {
	Name    string
	Dest    string // absolute
	Remote  string
	Ref     string // optional branch, tag or commit
	WorkDir string // where submodules are initialized; "" means the current directory
	VCS     vcs.VCS
}

var _ Locker = (*DirStore)(nil)

// NewDirStore returns a git-backed store for dest.
func NewDirStore(name, dest, remote string, v vcs.VCS) *DirStore {
	if remote == "" {
		remote = DefaultRemote
	}
	return &DirStore{Name: name, Dest: dest, Remote: remote, VCS: v}
}

func (s *DirStore) markerPath() string {
	return filepath.Join(filepath.Dir(s.Dest), "."+filepath.Base(s.Dest)+".fetch.json")
}

// Lock serializes Ensure across processes sharing Dest.
func (s *DirStore) Lock() (func(), error) {
	return lockedfile.MutexAt(s.Dest + ".lock").Lock()
}

func (s *DirStore) IsPresent(ctx context.Context) (bool, error) {
	fi, err := os.Stat(s.Dest)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, zerr.With(zerr.Wrap(err, "failed to stat dependency"), "path", s.Dest)
	}
	if !fi.IsDir() {
		return false, zerr.With(zerr.New("dependency path is not a directory"), "path", s.Dest)
	}

	m, err := s.readMarker()
	if errors.Is(err, fs.ErrNotExist) {
		empty, err := isEmptyDir(s.Dest)
		if err != nil {
			return false, err
		}
		if !empty {
			log.Debugf("%s: using existing %s", s.Name, s.Dest)
		}
		return !empty, nil
	}
	if err != nil {
		log.Warnf("%s: unreadable fetch marker, refetching: %v", s.Name, err)
		return false, nil
	}
	if m.State != stateComplete {
		log.Warnf("%s: previous fetch did not complete, refetching", s.Name)
		return false, nil
	}
	digest, err := Digest(s.Dest)
	if err != nil {
		return false, err
	}
	if digest != m.Digest {
		log.Warnf("%s: %s changed since it was fetched, refetching", s.Name, s.Dest)
		return false, nil
	}
	return true, nil
}

func (s *DirStore) Fetch(ctx context.Context) error {
	tool := s.VCS.Name()
	fail := func(err error, msg string) error {
		werr := zerr.With(zerr.Wrap(err, msg), "tool", tool)
		werr = zerr.With(werr, "dependency", s.Name)
		return errors.Join(ErrDependencyFetchFailed, zerr.With(werr, "remote", s.Remote))
	}

	m := marker{State: statePending, Remote: s.Remote, Ref: s.Ref, FetchedAt: time.Now()}
	if err := s.writeMarker(&m); err != nil {
		return fail(err, "failed to record fetch state")
	}
	if err := os.RemoveAll(s.Dest); err != nil {
		return fail(err, "failed to remove stale dependency")
	}
	if err := os.MkdirAll(s.Dest, 0o755); err != nil {
		return fail(err, "failed to create dependency directory")
	}

	log.Infof("fetching %s from %s", s.Name, s.Remote)
	if err := s.VCS.Clone(ctx, s.Remote, s.Ref, s.Dest); err != nil {
		return fail(err, tool+" clone failed")
	}
	if err := s.VCS.SubmoduleUpdate(ctx, s.WorkDir); err != nil {
		return fail(err, tool+" submodule update failed")
	}

	digest, err := Digest(s.Dest)
	if err != nil {
		return fail(err, "failed to digest dependency")
	}
	if commit, err := s.VCS.Head(ctx, s.Dest); err == nil {
		m.Commit = commit
	}
	m.State = stateComplete
	m.Digest = digest
	m.FetchedAt = time.Now()
	if err := s.writeMarker(&m); err != nil {
		return fail(err, "failed to record fetch state")
	}
	return nil
}

func (s *DirStore) readMarker() (*marker, error) {
	data, err := os.ReadFile(s.markerPath())
	if err != nil {
		return nil, err
	}
	var m marker
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *DirStore) writeMarker(m *marker) error {
	if err := os.MkdirAll(filepath.Dir(s.Dest), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.markerPath(), data, 0o644)
}

func isEmptyDir(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, err
	}
	return len(entries) == 0, nil
}
