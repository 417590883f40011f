// Package store is the authoritative in-memory model of the commit-graph
// view: repository metadata, the commit list and its derived index, the
// expanded commit detail/comparison sub-state, widget states, and the
// persistence snapshot/restore contract. It is mutated only from the single
// UI event loop; backend responses reach it through the refresh Coordinator
// (data loads) or targeted apply methods (detail, comparison, AI pushes).
package store

import (
	"strings"

	"github.com/vanderheijden86/gitgraph/pkg/config"
	"github.com/vanderheijden86/gitgraph/pkg/model"
)

// LoadResult describes what a LoadCommits call did, so the renderer can
// choose between no work, an index-0 hot swap, and a full table rebuild.
type LoadResult int

const (
	LoadUnchanged LoadResult = iota
	LoadHotSwapped
	LoadReplaced
)

// FindState is the find widget's sub-state, persisted across reloads.
type FindState struct {
	Open      bool   `json:"open"`
	Text      string `json:"text"`
	Position  int    `json:"position"` // index into Matches
	Matches   []int  `json:"-"`        // commit list indices, re-derived
	CaseAware bool   `json:"caseAware"`
}

// SettingsState is the settings widget's sub-state.
type SettingsState struct {
	Open bool `json:"open"`
}

// ViewState is the single source of truth for the view. One instance exists
// per program; it is constructed explicitly and passed by reference into
// whatever owns the interaction handlers.
type ViewState struct {
	cfg config.Config

	// Repository set and active repository.
	Repos          RepoSet
	CurrentRepo    string
	LastActiveRepo string
	KnownRepos     []string // configured sort order
	Loading        bool

	// Repo-scoped transient state, reset on repo switch.
	Branches         []string
	Head             string // checked-out branch name
	Remotes          []string
	Stashes          []model.Stash
	Tags             []string
	SelectedBranches []string // nil until defaulted; may hold ShowAllBranches
	RepoConfig       *model.RepoConfig

	// Commit window.
	Commits              []model.Commit
	CommitHead           string // hash of HEAD commit
	commitIndex          map[string]int
	MoreCommitsAvailable bool
	MaxCommits           int
	IncludeReflog        bool

	// Avatar cache, email to inline image. Persisted so resume needs no
	// backend round trips for already-loaded data.
	AvatarCache map[string]string

	Expanded *ExpandedCommit

	ScrollTop int

	Find     FindState
	Settings SettingsState

	Refresh RefreshState

	// LastError holds the current recoverable load failure, "" when none.
	// The UI renders it with a Retry affordance.
	LastError string

	// onPersist, when set, is invoked after every mutation that affects
	// persisted state. Scroll-only persistence is debounced by the caller.
	onPersist func()
}

// NewViewState builds an empty store with the given configuration.
func NewViewState(cfg config.Config) *ViewState {
	return &ViewState{
		cfg:         cfg,
		Repos:       make(RepoSet),
		MaxCommits:  cfg.UI.MaxCommits,
		AvatarCache: make(map[string]string),
		commitIndex: make(map[string]int),
	}
}

// SetPersistHook registers the snapshot callback invoked after mutations.
func (s *ViewState) SetPersistHook(fn func()) { s.onPersist = fn }

func (s *ViewState) persist() {
	if s.onPersist != nil {
		s.onPersist()
	}
}

// PersistNow forces an immediate snapshot save, for mutations made directly
// on exported fields (widget toggles, preference edits).
func (s *ViewState) PersistNow() { s.persist() }

// Config returns the loaded application configuration.
func (s *ViewState) Config() config.Config { return s.cfg }

// --- repository resolution --------------------------------------------------

// LoadRepos resolves which repository should be active. Precedence: an
// explicit navigation target matching a known repo, then the currently
// active repo if still known, then lastActive if known, then the first repo
// in configured sort order. Returns whether a repo switch occurred; callers
// use this to avoid double-triggering loads.
func (s *ViewState) LoadRepos(repos []string, lastActive, navigateTo string) (switched bool) {
	s.KnownRepos = repos
	s.LastActiveRepo = lastActive

	target := ""
	switch {
	case navigateTo != "" && containsRepo(repos, navigateTo):
		target = navigateTo
	case s.CurrentRepo != "" && containsRepo(repos, s.CurrentRepo):
		target = s.CurrentRepo
	case lastActive != "" && containsRepo(repos, lastActive):
		target = lastActive
	case len(repos) > 0:
		target = repos[0]
	}

	if target == "" || target == s.CurrentRepo {
		s.persist()
		return false
	}

	s.switchRepo(target)
	s.persist()
	return true
}

func containsRepo(repos []string, repo string) bool {
	for _, r := range repos {
		if r == repo {
			return true
		}
	}
	return false
}

// switchRepo resets all repo-scoped transient state. The caller triggers
// the hard refresh.
func (s *ViewState) switchRepo(repo string) {
	s.CurrentRepo = repo
	s.Branches = nil
	s.Head = ""
	s.Remotes = nil
	s.Stashes = nil
	s.Tags = nil
	s.SelectedBranches = nil
	s.RepoConfig = nil
	s.ClearCommits()
	s.CloseExpanded(false)
	s.ScrollTop = 0
	s.LastError = ""
	s.Repos.Get(repo)
}

// --- repo info ---------------------------------------------------------------

// LoadRepoInfo applies a repo-info payload. When the info is materially
// unchanged (same branches, head, remotes, stashes) and the refresh is not
// hard, it short-circuits to a no-op so the branch UI never flickers on
// poll-driven refreshes; the coordinator still chains the commits request.
// Returns whether anything changed.
func (s *ViewState) LoadRepoInfo(branches []string, head string, remotes []string, stashes []model.Stash, hard bool) bool {
	if !hard &&
		equalStrings(s.Branches, branches) &&
		s.Head == head &&
		equalStrings(s.Remotes, remotes) &&
		equalStashes(s.Stashes, stashes) {
		s.applyDefaultBranchSelection()
		return false
	}

	s.Branches = branches
	s.Head = head
	s.Remotes = remotes
	s.Stashes = stashes
	s.pruneSelectedBranches()
	s.applyDefaultBranchSelection()
	s.persist()
	return true
}

// pruneSelectedBranches drops selected branches that no longer exist.
func (s *ViewState) pruneSelectedBranches() {
	if len(s.SelectedBranches) == 0 {
		return
	}
	kept := s.SelectedBranches[:0]
	for _, b := range s.SelectedBranches {
		if b == model.ShowAllBranches || containsRepo(s.Branches, b) {
			kept = append(kept, b)
		}
	}
	if len(kept) == 0 {
		s.SelectedBranches = nil
	} else {
		s.SelectedBranches = kept
	}
}

// applyDefaultBranchSelection resolves the initial branch selection when
// none is active: the configured always-show list intersected with what
// exists, then the checked-out branch if configured and missing, then the
// show-all sentinel.
func (s *ViewState) applyDefaultBranchSelection() {
	if len(s.SelectedBranches) > 0 {
		return
	}

	prefs := s.Repos.Get(s.CurrentRepo)
	onLoadBranches := s.cfg.UI.OnLoad.ShowSpecificBranches
	if prefs.OnLoadShowBranches != nil {
		onLoadBranches = prefs.OnLoadShowBranches
	}
	showCheckedOut := s.cfg.UI.OnLoad.ShowCheckedOutBranch
	if prefs.OnLoadShowCheckedOut != nil {
		showCheckedOut = *prefs.OnLoadShowCheckedOut
	}

	var selected []string
	for _, b := range onLoadBranches {
		if containsRepo(s.Branches, b) {
			selected = append(selected, b)
		}
	}
	if showCheckedOut && s.Head != "" && !containsRepo(selected, s.Head) && containsRepo(s.Branches, s.Head) {
		selected = append(selected, s.Head)
	}
	if len(selected) == 0 {
		selected = []string{model.ShowAllBranches}
	}
	s.SelectedBranches = selected
}

// commitLoadBranches translates the selection into the branch filter sent
// with a commits request: nil when showing all branches.
func (s *ViewState) commitLoadBranches() []string {
	if len(s.SelectedBranches) == 1 && s.SelectedBranches[0] == model.ShowAllBranches {
		return nil
	}
	return s.SelectedBranches
}

// --- commits -----------------------------------------------------------------

// LoadCommits applies a commits payload. When the payload is structurally
// identical to the current list (same ordered hashes including attached
// refs, tags, and stash selectors), the refresh is not hard, and the head
// marker matches, the load short-circuits — except that the uncommitted
// sentinel at index 0 is always hot-swapped, since the working-tree summary
// changes independently of everything else.
func (s *ViewState) LoadCommits(commits []model.Commit, head string, tags []string, more bool, hard bool) LoadResult {
	s.LastError = ""
	s.Tags = tags

	if !hard && s.CommitHead == head && sameCommits(s.Commits, commits) {
		result := LoadUnchanged
		if len(commits) > 0 && commits[0].IsUncommitted() {
			s.Commits[0] = commits[0]
			result = LoadHotSwapped
		}
		s.MoreCommitsAvailable = more
		s.persist()
		return result
	}

	s.Commits = commits
	s.CommitHead = head
	s.MoreCommitsAvailable = more
	s.rebuildCommitIndex()
	s.refreshExpandedAfterLoad()
	s.persist()
	return LoadReplaced
}

// ClearCommits empties the commit window, e.g. for a hard refresh or a
// failed load.
func (s *ViewState) ClearCommits() {
	s.Commits = nil
	s.CommitHead = ""
	s.commitIndex = make(map[string]int)
	s.MoreCommitsAvailable = false
}

func (s *ViewState) rebuildCommitIndex() {
	s.commitIndex = make(map[string]int, len(s.Commits))
	for i := range s.Commits {
		s.commitIndex[s.Commits[i].Hash] = i
	}
}

// CommitIndex returns the position of hash in the commit list, or -1.
func (s *ViewState) CommitIndex(hash string) int {
	if i, ok := s.commitIndex[hash]; ok {
		return i
	}
	return -1
}

// CommitByHash returns the commit with the given hash, or nil.
func (s *ViewState) CommitByHash(hash string) *model.Commit {
	i := s.CommitIndex(hash)
	if i < 0 {
		return nil
	}
	return &s.Commits[i]
}

// LoadMoreCommits grows the commit window and reports the new size.
func (s *ViewState) LoadMoreCommits() int {
	s.MaxCommits += s.cfg.UI.MaxCommits
	return s.MaxCommits
}

// sameCommits is the deep structural short-circuit gate: same ordered hash
// list, and per commit the same attached refs, tags, and stash selector.
// The ordered hash comparison runs first as the cheap fast path. Index 0 is
// compared by hash only when it is the uncommitted sentinel (its content is
// allowed to differ; the hot-swap rule handles it).
func sameCommits(a, b []model.Commit) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Hash != b[i].Hash {
			return false
		}
	}
	for i := range a {
		if i == 0 && a[0].IsUncommitted() {
			continue
		}
		if !sameCommitRefs(&a[i], &b[i]) {
			return false
		}
	}
	return true
}

func sameCommitRefs(a, b *model.Commit) bool {
	if !equalStrings(a.Heads, b.Heads) || len(a.Remotes) != len(b.Remotes) || len(a.Tags) != len(b.Tags) {
		return false
	}
	for i := range a.Remotes {
		if a.Remotes[i] != b.Remotes[i] {
			return false
		}
	}
	for i := range a.Tags {
		if a.Tags[i] != b.Tags[i] {
			return false
		}
	}
	switch {
	case a.Stash == nil && b.Stash == nil:
	case a.Stash == nil || b.Stash == nil:
		return false
	default:
		if *a.Stash != *b.Stash {
			return false
		}
	}
	return a.Message == b.Message
}

// --- config ------------------------------------------------------------------

// LoadRepoConfig applies a config payload.
func (s *ViewState) LoadRepoConfig(cfg *model.RepoConfig) {
	s.RepoConfig = cfg
	s.persist()
}

// --- avatars -----------------------------------------------------------------

// LoadAvatar stores a fetched avatar in the cache.
func (s *ViewState) LoadAvatar(email, image string) {
	if email == "" || image == "" {
		return
	}
	s.AvatarCache[email] = image
	s.persist()
}

// --- scroll ------------------------------------------------------------------

// SetScrollTop records the table scroll offset. Scroll position is store
// state, never derived from the rendered output; persistence of pure scroll
// changes is debounced by the caller.
func (s *ViewState) SetScrollTop(top int) {
	if top < 0 {
		top = 0
	}
	s.ScrollTop = top
}

// --- effective per-repo settings ----------------------------------------------

// EffectiveShowRemoteBranches resolves the per-repo override against the
// global default.
func (s *ViewState) EffectiveShowRemoteBranches() bool {
	if p := s.Repos.Get(s.CurrentRepo); p.ShowRemoteBranches != nil {
		return *p.ShowRemoteBranches
	}
	return s.cfg.UI.ShowRemoteBranches
}

// EffectiveShowStashes resolves the per-repo override.
func (s *ViewState) EffectiveShowStashes() bool {
	if p := s.Repos.Get(s.CurrentRepo); p.ShowStashes != nil {
		return *p.ShowStashes
	}
	return s.cfg.UI.ShowStashes
}

// EffectiveShowTags resolves the per-repo override.
func (s *ViewState) EffectiveShowTags() bool {
	if p := s.Repos.Get(s.CurrentRepo); p.ShowTags != nil {
		return *p.ShowTags
	}
	return s.cfg.UI.ShowTags
}

// EffectiveFirstParentOnly resolves the per-repo override.
func (s *ViewState) EffectiveFirstParentOnly() bool {
	if p := s.Repos.Get(s.CurrentRepo); p.FirstParentOnly != nil {
		return *p.FirstParentOnly
	}
	return s.cfg.UI.FirstParentOnly
}

// EffectiveOrdering resolves the per-repo ordering override.
func (s *ViewState) EffectiveOrdering() model.CommitOrdering {
	if p := s.Repos.Get(s.CurrentRepo); p.Ordering != "" {
		return p.Ordering
	}
	if s.cfg.UI.Ordering != "" {
		return model.CommitOrdering(s.cfg.UI.Ordering)
	}
	return model.OrderDate
}

// LinearHistory reports whether the commit window was loaded first-parent
// only; the graph layer draws a straight lane in that case.
func (s *ViewState) LinearHistory() bool {
	return s.EffectiveFirstParentOnly()
}

// --- find widget ---------------------------------------------------------------

// UpdateFindMatches re-derives the find widget's match list against the
// current commits. Matching is case-insensitive substring over hash,
// message, author, and attached ref names unless CaseAware is set.
func (s *ViewState) UpdateFindMatches() {
	s.Find.Matches = s.Find.Matches[:0]
	if s.Find.Text == "" {
		s.Find.Position = 0
		return
	}
	for i := range s.Commits {
		if commitMatches(&s.Commits[i], s.Find.Text, s.Find.CaseAware) {
			s.Find.Matches = append(s.Find.Matches, i)
		}
	}
	if s.Find.Position >= len(s.Find.Matches) {
		s.Find.Position = 0
	}
}

func commitMatches(c *model.Commit, text string, caseAware bool) bool {
	match := func(s string) bool {
		if caseAware {
			return strings.Contains(s, text)
		}
		return strings.Contains(strings.ToLower(s), strings.ToLower(text))
	}
	if match(c.Hash) || match(c.Message) || match(c.Author) {
		return true
	}
	for _, h := range c.Heads {
		if match(h) {
			return true
		}
	}
	for _, r := range c.Remotes {
		if match(r.Name) {
			return true
		}
	}
	for _, t := range c.Tags {
		if match(t.Name) {
			return true
		}
	}
	return false
}

// --- helpers -------------------------------------------------------------------

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalStashes(a, b []model.Stash) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
