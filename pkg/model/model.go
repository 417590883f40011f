// Package model defines the domain types shared between the backend git
// service, the view-state store, and the UI: commits, refs, file changes,
// stashes, code reviews, and the AI analysis payloads.
package model

// UncommittedHash is the sentinel hash representing the working tree's
// uncommitted changes. When present it is always at list index 0 and can
// never collide with a real 40-hex commit hash.
const UncommittedHash = "*"

// ShowAllBranches is the sentinel branch selection meaning "no branch
// filter" (every branch is shown).
const ShowAllBranches = "--all--"

// CommitOrdering selects the order in which the backend lists commits.
type CommitOrdering string

const (
	OrderDate       CommitOrdering = "date"
	OrderAuthorDate CommitOrdering = "author-date"
	OrderTopo       CommitOrdering = "topo"
)

// FileViewType selects how the expanded commit's file list is presented.
type FileViewType int

const (
	FileViewTree FileViewType = iota
	FileViewList
)

// FileStatus is the change type of a single file in a commit or comparison.
type FileStatus byte

const (
	FileAdded     FileStatus = 'A'
	FileModified  FileStatus = 'M'
	FileDeleted   FileStatus = 'D'
	FileRenamed   FileStatus = 'R'
	FileUntracked FileStatus = 'U'
)

// TagRef is a tag attached to a commit.
type TagRef struct {
	Name      string `json:"name"`
	Annotated bool   `json:"annotated"`
}

// RemoteRef is a remote-tracking branch attached to a commit.
type RemoteRef struct {
	Name   string `json:"name"`   // full name, e.g. "origin/main"
	Remote string `json:"remote"` // remote component, e.g. "origin"
}

// StashRef describes the stash a synthetic stash commit represents.
type StashRef struct {
	Selector      string `json:"selector"` // e.g. "stash@{0}"
	BaseHash      string `json:"baseHash"`
	UntrackedHash string `json:"untrackedHash,omitempty"`
}

// Commit is one entry of the commit list. Commits are immutable per
// snapshot: the list is replaced wholesale on every successful load, except
// for the uncommitted sentinel at index 0 which may be hot-swapped in place.
type Commit struct {
	Hash           string      `json:"hash"`
	Parents        []string    `json:"parents"`
	Author         string      `json:"author"`
	AuthorEmail    string      `json:"authorEmail"`
	AuthorDate     int64       `json:"authorDate"`
	Committer      string      `json:"committer"`
	CommitterEmail string      `json:"committerEmail"`
	CommitterDate  int64       `json:"committerDate"`
	Message        string      `json:"message"` // summary line
	Heads          []string    `json:"heads"`   // local branch heads on this commit
	Remotes        []RemoteRef `json:"remotes"`
	Tags           []TagRef    `json:"tags"`
	Stash          *StashRef   `json:"stash,omitempty"`
}

// IsUncommitted reports whether the commit is the working-tree sentinel.
func (c *Commit) IsUncommitted() bool {
	return c.Hash == UncommittedHash
}

// Stash is one stash entry enumerated by repo info.
type Stash struct {
	Selector      string `json:"selector"`
	Hash          string `json:"hash"`
	BaseHash      string `json:"baseHash"`
	UntrackedHash string `json:"untrackedHash,omitempty"`
	Message       string `json:"message"`
	Date          int64  `json:"date"`
}

// FileChange is one file's change within a commit or a two-commit
// comparison. Additions/Deletions are -1 for binary files.
type FileChange struct {
	OldPath   string     `json:"oldPath"`
	NewPath   string     `json:"newPath"`
	Status    FileStatus `json:"status"`
	Additions int        `json:"additions"`
	Deletions int        `json:"deletions"`
}

// Path returns the display path of the change (the new path, falling back
// to the old path for deletions).
func (f *FileChange) Path() string {
	if f.NewPath != "" {
		return f.NewPath
	}
	return f.OldPath
}

// SameFileChanges reports whether two change lists are structurally
// identical: same length, same ordered (old path, new path, status) triples.
// Additions/deletions counts are deliberately ignored so a refreshed load of
// the same file set preserves tree expand/collapse and review state.
func SameFileChanges(a, b []FileChange) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].OldPath != b[i].OldPath || a[i].NewPath != b[i].NewPath || a[i].Status != b[i].Status {
			return false
		}
	}
	return true
}

// CommitDetails is the payload fetched when a commit's detail panel opens.
type CommitDetails struct {
	Hash           string       `json:"hash"`
	Parents        []string     `json:"parents"`
	Author         string       `json:"author"`
	AuthorEmail    string       `json:"authorEmail"`
	AuthorDate     int64        `json:"authorDate"`
	Committer      string       `json:"committer"`
	CommitterEmail string       `json:"committerEmail"`
	CommitterDate  int64        `json:"committerDate"`
	Body           string       `json:"body"` // full commit message
	Changes        []FileChange `json:"changes"`
}

// TagDetails is the payload for an annotated tag's detail popup.
type TagDetails struct {
	Name        string `json:"name"`
	Hash        string `json:"hash"` // hash of the tag object
	TaggerName  string `json:"taggerName"`
	TaggerEmail string `json:"taggerEmail"`
	TaggerDate  int64  `json:"taggerDate"`
	Message     string `json:"message"`
}

// RemoteConfig is one configured remote.
type RemoteConfig struct {
	Name    string `json:"name"`
	URL     string `json:"url"`
	PushURL string `json:"pushUrl,omitempty"`
}

// RepoConfig is the repository configuration surfaced to the UI.
type RepoConfig struct {
	UserName  string         `json:"userName"`
	UserEmail string         `json:"userEmail"`
	Remotes   []RemoteConfig `json:"remotes"`
}

// CodeReview tracks which files of an expanded commit (or comparison) the
// user has not yet marked reviewed. It is created by explicit user action,
// mirrored to durable storage on every mutation, and destroyed when the
// remaining set empties or the user ends it.
type CodeReview struct {
	ID             string   `json:"id"`
	RemainingFiles []string `json:"remainingFiles"`
	LastViewedFile string   `json:"lastViewedFile,omitempty"`
}

// ReviewID derives the durable identifier for a review of the given commit
// or commit pair.
func ReviewID(hash, compareHash string) string {
	if compareHash == "" {
		return hash
	}
	return hash + "-" + compareHash
}

// AIErrorKind is the closed taxonomy of AI analysis failure kinds reported
// by the backend. Unrecognized kinds must degrade to AIErrUnknown at the
// presentation layer, never fail.
type AIErrorKind string

const (
	AIErrDisabled           AIErrorKind = "disabled"
	AIErrNoReadableFiles    AIErrorKind = "no-readable-files"
	AIErrExtractionFailed   AIErrorKind = "extraction-failed"
	AIErrAnalysisFailed     AIErrorKind = "analysis-failed"
	AIErrTimeout            AIErrorKind = "timeout"
	AIErrServiceUnavailable AIErrorKind = "service-unavailable"
	AIErrAuthFailed         AIErrorKind = "auth-failed"
	AIErrRateLimited        AIErrorKind = "rate-limited"
	AIErrUnknown            AIErrorKind = "unknown"
)

// AIProgress is a fractional progress update for an in-flight analysis.
type AIProgress struct {
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Phase   string `json:"phase"`
}
