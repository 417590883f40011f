package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/gitgraph/pkg/model"
)

// SnapshotVersion is the persisted view-state schema version. A snapshot
// with a different version (or a corrupted file) is discarded and the UI
// starts cold; this mirrors the graceful-degradation contract of the
// config layer.
const SnapshotVersion = 1

// snapshotFileName is the view-state file inside the XDG state directory.
const snapshotFileName = "view-state.json"

// Snapshot is the serializable description of the view state: total and
// idempotent, sufficient to resume the UI without backend round trips for
// data already loaded. Render caches and other derived artifacts are
// excluded and re-derived on resume. The refresh sequence counters are
// included so they stay monotonic across reloads.
type Snapshot struct {
	Version int `json:"version"`

	CurrentRepo    string   `json:"currentRepo"`
	LastActiveRepo string   `json:"lastActiveRepo,omitempty"`
	KnownRepos     []string `json:"knownRepos,omitempty"`
	Loading        bool     `json:"loading"`

	Repos RepoSet `json:"repos"`

	Branches         []string       `json:"branches,omitempty"`
	Head             string         `json:"head,omitempty"`
	Remotes          []string       `json:"remotes,omitempty"`
	Stashes          []model.Stash  `json:"stashes,omitempty"`
	Tags             []string       `json:"tags,omitempty"`
	SelectedBranches []string       `json:"selectedBranches,omitempty"`

	Commits              []model.Commit `json:"commits,omitempty"`
	CommitHead           string         `json:"commitHead,omitempty"`
	MoreCommitsAvailable bool           `json:"moreCommitsAvailable"`
	MaxCommits           int            `json:"maxCommits"`
	IncludeReflog        bool           `json:"includeReflog,omitempty"`

	AvatarCache map[string]string `json:"avatarCache,omitempty"`

	Expanded *ExpandedCommit `json:"expanded,omitempty"`

	ScrollTop int           `json:"scrollTop"`
	Find      FindState     `json:"find"`
	Settings  SettingsState `json:"settings"`

	RepoInfoSeq uint64 `json:"repoInfoSeq"`
	CommitsSeq  uint64 `json:"commitsSeq"`
}

// Snapshot externalizes the current state. The expanded commit is included
// as-is: its serializable fields carry everything needed to re-open the
// panel, while UI-layer handles are recomputed on resume.
func (s *ViewState) Snapshot() *Snapshot {
	return &Snapshot{
		Version:              SnapshotVersion,
		CurrentRepo:          s.CurrentRepo,
		LastActiveRepo:       s.LastActiveRepo,
		KnownRepos:           s.KnownRepos,
		Loading:              s.Loading,
		Repos:                s.Repos,
		Branches:             s.Branches,
		Head:                 s.Head,
		Remotes:              s.Remotes,
		Stashes:              s.Stashes,
		Tags:                 s.Tags,
		SelectedBranches:     s.SelectedBranches,
		Commits:              s.Commits,
		CommitHead:           s.CommitHead,
		MoreCommitsAvailable: s.MoreCommitsAvailable,
		MaxCommits:           s.MaxCommits,
		IncludeReflog:        s.IncludeReflog,
		AvatarCache:          s.AvatarCache,
		Expanded:             s.Expanded,
		ScrollTop:            s.ScrollTop,
		Find:                 s.Find,
		Settings:             s.Settings,
		RepoInfoSeq:          s.Refresh.RepoInfoSeq,
		CommitsSeq:           s.Refresh.CommitsSeq,
	}
}

// Restore rehydrates the store from a snapshot. Derived state (commit
// index, find matches, folder reviewed flags) is recomputed rather than
// trusted from disk. Returns whether the repository configuration still
// needs a backend round trip (config is never snapshotted).
func (s *ViewState) Restore(sn *Snapshot) (needsConfig bool) {
	if sn == nil || sn.Version != SnapshotVersion {
		return true
	}

	s.CurrentRepo = sn.CurrentRepo
	s.LastActiveRepo = sn.LastActiveRepo
	s.KnownRepos = sn.KnownRepos
	s.Loading = sn.Loading
	// Preference records are merged through the patch path rather than
	// adopted wholesale, so values from a hand-edited or stale snapshot are
	// re-clamped on the way in.
	for repo, prefs := range sn.Repos {
		s.Repos.Merge(repo, prefs)
	}
	s.Branches = sn.Branches
	s.Head = sn.Head
	s.Remotes = sn.Remotes
	s.Stashes = sn.Stashes
	s.Tags = sn.Tags
	s.SelectedBranches = sn.SelectedBranches
	s.Commits = sn.Commits
	s.CommitHead = sn.CommitHead
	s.MoreCommitsAvailable = sn.MoreCommitsAvailable
	if sn.MaxCommits > 0 {
		s.MaxCommits = sn.MaxCommits
	}
	s.IncludeReflog = sn.IncludeReflog
	if sn.AvatarCache != nil {
		s.AvatarCache = sn.AvatarCache
	}
	s.Expanded = sn.Expanded
	s.ScrollTop = sn.ScrollTop
	s.Find = sn.Find
	s.Settings = sn.Settings
	s.Refresh.RepoInfoSeq = sn.RepoInfoSeq
	s.Refresh.CommitsSeq = sn.CommitsSeq

	s.rebuildCommitIndex()
	s.UpdateFindMatches()
	if s.Expanded != nil {
		s.Expanded.ContextMenuOpen = false
		if s.Expanded.Tree != nil {
			computeFolderReviewed(s.Expanded.Tree)
		}
	}
	return true
}

// Persister writes snapshots to the state directory. Saves are
// mutex-guarded because the debounced scroll saver fires from a timer
// goroutine while structural saves come from the UI turn.
type Persister struct {
	mu   sync.Mutex
	path string

	scrollTimer *time.Timer
}

// ScrollSaveDelay debounces pure scroll-position persistence to avoid write
// amplification during continuous scroll. Structural changes are persisted
// immediately, never debounced.
const ScrollSaveDelay = 250 * time.Millisecond

// NewPersister creates a persister writing into stateDir.
func NewPersister(stateDir string) *Persister {
	return &Persister{path: filepath.Join(stateDir, snapshotFileName)}
}

// Path returns the snapshot file path.
func (p *Persister) Path() string { return p.path }

// Save writes a snapshot atomically (temp file + rename).
func (p *Persister) Save(sn *Snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	data, err := json.Marshal(sn)
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	tmp := p.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := os.Rename(tmp, p.path); err != nil {
		return fmt.Errorf("replacing snapshot: %w", err)
	}
	return nil
}

// SaveScrollDebounced schedules a save of the given snapshot after
// ScrollSaveDelay, replacing any pending one. The snapshot is captured at
// schedule time on the UI turn; the timer goroutine only writes it out.
func (p *Persister) SaveScrollDebounced(sn *Snapshot) {
	p.mu.Lock()
	if p.scrollTimer != nil {
		p.scrollTimer.Stop()
	}
	p.scrollTimer = time.AfterFunc(ScrollSaveDelay, func() {
		_ = p.Save(sn)
	})
	p.mu.Unlock()
}

// Load reads the snapshot file. A missing, corrupted, or version-mismatched
// file returns nil without error: the caller starts cold.
func (p *Persister) Load() *Snapshot {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return nil
	}
	var sn Snapshot
	if err := json.Unmarshal(data, &sn); err != nil {
		return nil
	}
	if sn.Version != SnapshotVersion {
		return nil
	}
	return &sn
}
