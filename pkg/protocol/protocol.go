// Package protocol defines the typed asynchronous messages exchanged
// between the UI and the backend git service. Requests are fire-and-forget;
// responses are correlated only by repository identity and, for the two
// refresh phases, by monotonically increasing sequence numbers. There are
// no per-request IDs: a response that does not match the live sequence
// counter is silently discarded by the refresh coordinator.
package protocol

import "github.com/vanderheijden86/gitgraph/pkg/model"

// Request is a message sent to the backend service. Every request names
// the repository it targets (empty for repo-discovery).
type Request interface {
	RequestRepo() string
}

// Response is a message delivered back to the UI. Kind returns a stable
// tag used by the UI's dispatch table; exhaustiveness of the table is
// asserted in tests against AllResponseKinds.
type Response interface {
	Kind() string
}

// --- requests -------------------------------------------------------------

// RepoTag is embedded by every repository-scoped request.
type RepoTag struct {
	Repo string
}

// RequestRepo returns the repository path the request targets.
func (r RepoTag) RequestRepo() string { return r.Repo }

// LoadReposRequest asks for the set of known repositories.
type LoadReposRequest struct{}

func (LoadReposRequest) RequestRepo() string { return "" }

// LoadRepoInfoRequest asks for branch/head/remote/stash enumeration.
// Seq carries the repo-info sequence counter stamped after incrementing.
type LoadRepoInfoRequest struct {
	RepoTag
	Seq                uint64
	ShowRemoteBranches bool
	HiddenRemotes      []string
	ShowStashes        bool
}

// LoadCommitsRequest asks for the commit window. Branches nil or containing
// model.ShowAllBranches means no branch filter.
type LoadCommitsRequest struct {
	RepoTag
	Seq                uint64
	Branches           []string
	MaxCommits         int
	ShowTags           bool
	ShowRemoteBranches bool
	IncludeReflog      bool
	FirstParentOnly    bool
	Ordering           model.CommitOrdering
	HiddenRemotes      []string
	Stashes            []model.Stash
}

// LoadConfigRequest asks for the repository configuration.
type LoadConfigRequest struct{ RepoTag }

// CommitDetailsRequest fetches the detail payload for one commit (or the
// uncommitted sentinel).
type CommitDetailsRequest struct {
	RepoTag
	Hash string
}

// CompareCommitsRequest fetches the file changes between two commits.
// FromHash is the ancestor-ward side; ToHash may be the uncommitted sentinel.
type CompareCommitsRequest struct {
	RepoTag
	FromHash string
	ToHash   string
}

// TagDetailsRequest fetches annotated tag details.
type TagDetailsRequest struct {
	RepoTag
	TagName string
}

// AvatarRequest resolves an author email to an avatar image.
type AvatarRequest struct {
	RepoTag
	Email string
}

// AIAnalysisRequest asks the analysis service to analyze the currently
// expanded commit or comparison. Results arrive as unsolicited
// AIAnalysisUpdate pushes tagged by the same hash pair.
type AIAnalysisRequest struct {
	RepoTag
	Hash        string
	CompareHash string
}

// ActionKind names a mutating git operation.
type ActionKind string

const (
	ActionCheckout     ActionKind = "checkout"
	ActionMerge        ActionKind = "merge"
	ActionRebase       ActionKind = "rebase"
	ActionReset        ActionKind = "reset"
	ActionCherryPick   ActionKind = "cherry-pick"
	ActionRevert       ActionKind = "revert"
	ActionCreateTag    ActionKind = "create-tag"
	ActionDeleteTag    ActionKind = "delete-tag"
	ActionCreateBranch ActionKind = "create-branch"
	ActionDeleteBranch ActionKind = "delete-branch"
	ActionRenameBranch ActionKind = "rename-branch"
	ActionStashSave    ActionKind = "stash-save"
	ActionStashApply   ActionKind = "stash-apply"
	ActionStashPop     ActionKind = "stash-pop"
	ActionStashDrop    ActionKind = "stash-drop"
	ActionStashBranch  ActionKind = "stash-branch"
	ActionPush         ActionKind = "push"
	ActionPull         ActionKind = "pull"
	ActionFetch        ActionKind = "fetch"
	ActionClean        ActionKind = "clean"
	ActionArchive      ActionKind = "archive"
	ActionPullRequest  ActionKind = "pull-request"
)

// ActionRequest runs a mutating git operation. Args are positional
// arguments specific to the action (branch names, hashes, flags).
type ActionRequest struct {
	RepoTag
	Action ActionKind
	Args   []string
}

// CopyToClipboardRequest copies text to the system clipboard.
type CopyToClipboardRequest struct {
	RepoTag
	Text string
}

// OpenExternalURLRequest opens a URL in the host browser.
type OpenExternalURLRequest struct {
	RepoTag
	URL string
}

// OpenTerminalRequest opens a terminal at the repository root.
type OpenTerminalRequest struct{ RepoTag }

// ViewDiffRequest opens a diff view for one file change.
type ViewDiffRequest struct {
	RepoTag
	FromHash string
	ToHash   string
	OldPath  string
	NewPath  string
	Status   model.FileStatus
}

// OpenFileRequest opens a file at a given revision.
type OpenFileRequest struct {
	RepoTag
	Hash string
	Path string
}

// FileHistoryRequest opens the history of one file.
type FileHistoryRequest struct {
	RepoTag
	Path string
}

// StartCodeReviewRequest mirrors a newly started code review for durability.
type StartCodeReviewRequest struct {
	RepoTag
	ID             string
	RemainingFiles []string
	LastViewedFile string
}

// UpdateCodeReviewRequest mirrors a code review mutation.
type UpdateCodeReviewRequest struct {
	RepoTag
	ID             string
	RemainingFiles []string
	LastViewedFile string
}

// EndCodeReviewRequest removes a durable code review record.
type EndCodeReviewRequest struct {
	RepoTag
	ID string
}

// SetRepoPrefsRequest mirrors the per-repository preference patch. Prefs is
// an opaque serialized blob owned by the store; the backend persists it
// verbatim and merges, never replaces, the repository set.
type SetRepoPrefsRequest struct {
	RepoTag
	Prefs []byte
}

// --- responses ------------------------------------------------------------

// Response kind tags. AllResponseKinds is used by tests to assert the UI
// dispatch table is exhaustive.
const (
	KindRepos         = "repos"
	KindRepoInfo      = "repo-info"
	KindCommits       = "commits"
	KindConfig        = "config"
	KindCommitDetails = "commit-details"
	KindComparison    = "comparison"
	KindTagDetails    = "tag-details"
	KindAvatar        = "avatar"
	KindActionDone    = "action-done"
	KindAIUpdate      = "ai-update"
)

// AllResponseKinds lists every response kind the backend can deliver.
var AllResponseKinds = []string{
	KindRepos, KindRepoInfo, KindCommits, KindConfig, KindCommitDetails,
	KindComparison, KindTagDetails, KindAvatar, KindActionDone, KindAIUpdate,
}

// ReposResponse answers LoadReposRequest.
type ReposResponse struct {
	Repos          []string
	LastActiveRepo string
	NavigateToRepo string // optional deep-link target, may be unknown
}

func (ReposResponse) Kind() string { return KindRepos }

// RepoInfoResponse answers LoadRepoInfoRequest. Error is non-empty on
// failure; Seq echoes the request's sequence number.
type RepoInfoResponse struct {
	Repo     string
	Seq      uint64
	Branches []string
	Head     string // checked-out branch name, "" when detached or unborn
	Remotes  []string
	Stashes  []model.Stash
	IsRepo   bool
	Error    string
}

func (RepoInfoResponse) Kind() string { return KindRepoInfo }

// CommitsResponse answers LoadCommitsRequest.
type CommitsResponse struct {
	Repo          string
	Seq           uint64
	Commits       []model.Commit
	Head          string // hash of HEAD, "" for unborn repositories
	Tags          []string
	MoreAvailable bool
	Error         string
}

func (CommitsResponse) Kind() string { return KindCommits }

// ConfigResponse answers LoadConfigRequest.
type ConfigResponse struct {
	Repo   string
	Config *model.RepoConfig
	Error  string
}

func (ConfigResponse) Kind() string { return KindConfig }

// CommitDetailsResponse answers CommitDetailsRequest.
type CommitDetailsResponse struct {
	Repo    string
	Hash    string
	Details *model.CommitDetails
	// Review is the durable code review previously started for this
	// commit, if any; the client re-attaches it to the panel.
	Review *model.CodeReview
	Error  string
}

func (CommitDetailsResponse) Kind() string { return KindCommitDetails }

// ComparisonResponse answers CompareCommitsRequest.
type ComparisonResponse struct {
	Repo     string
	FromHash string
	ToHash   string
	Changes  []model.FileChange
	Review   *model.CodeReview
	Error    string
}

func (ComparisonResponse) Kind() string { return KindComparison }

// TagDetailsResponse answers TagDetailsRequest.
type TagDetailsResponse struct {
	Repo    string
	TagName string
	Details *model.TagDetails
	Error   string
}

func (TagDetailsResponse) Kind() string { return KindTagDetails }

// AvatarResponse answers AvatarRequest. Image is an inline representation
// suitable for the avatar cache.
type AvatarResponse struct {
	Email string
	Image string
}

func (AvatarResponse) Kind() string { return KindAvatar }

// ActionDoneResponse acknowledges a mutating or utility request.
type ActionDoneResponse struct {
	Repo   string
	Action ActionKind
	Error  string
}

func (ActionDoneResponse) Kind() string { return KindActionDone }

// AIStatus is the lifecycle stage carried by an AI analysis push.
type AIStatus string

const (
	AILoading   AIStatus = "loading"
	AIProgress  AIStatus = "progress"
	AICompleted AIStatus = "completed"
	AIErrored   AIStatus = "errored"
)

// AIAnalysisUpdate is the unsolicited analysis push. It is targeted by the
// (Hash, CompareHash) pair, never by sequence number: the client applies it
// only when that pair matches the currently expanded panel.
type AIAnalysisUpdate struct {
	Repo        string
	Hash        string
	CompareHash string
	Status      AIStatus
	Progress    model.AIProgress
	Summary     string
	ErrorKind   model.AIErrorKind
}

func (AIAnalysisUpdate) Kind() string { return KindAIUpdate }
