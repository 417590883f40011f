package store

import (
	"github.com/vanderheijden86/gitgraph/pkg/model"
	"github.com/vanderheijden86/gitgraph/pkg/protocol"
)

// AIStatus is the lifecycle stage of the expanded commit's analysis
// sub-state: none -> loading -> (progress updates) -> completed | errored.
// It is driven by unsolicited pushes on a channel independent of the
// request that opened the panel; no ordering between the two is assumed.
type AIStatus int

const (
	AINone AIStatus = iota
	AILoading
	AICompleted
	AIErrored
)

// AIState is the analysis sub-state attached to the expanded commit.
type AIState struct {
	Status    AIStatus          `json:"status"`
	Progress  model.AIProgress  `json:"progress"`
	Summary   string            `json:"summary,omitempty"`
	ErrorKind model.AIErrorKind `json:"errorKind,omitempty"`
}

// ExpandedCommit is the single-slot record of which commit (or commit pair)
// has its detail/comparison panel open. At most one instance is active;
// opening a second forcibly closes the first. Render caches derived from
// it (row geometry, viewport handles) live in the UI layer and are
// recomputed from the stable identifiers here after any rebuild — they are
// never serialized.
type ExpandedCommit struct {
	Hash        string `json:"hash"`
	CompareHash string `json:"compareHash,omitempty"` // "" for single view
	Loading     bool   `json:"loading"`

	Details *model.CommitDetails `json:"details,omitempty"`
	Changes []model.FileChange   `json:"changes,omitempty"`
	Tree    *FileNode            `json:"tree,omitempty"`

	Review *model.CodeReview `json:"review,omitempty"`

	Avatar string `json:"avatar,omitempty"`

	// Independent scroll offsets for the three panel regions.
	ScrollSummary int `json:"scrollSummary"`
	ScrollFiles   int `json:"scrollFiles"`
	ScrollAI      int `json:"scrollAI"`

	// ContextMenuOpen marks a transient context menu anchored inside the
	// panel; it is stripped on close.
	ContextMenuOpen bool `json:"-"`

	AI AIState `json:"ai"`
}

// IsComparison reports whether the panel shows a two-commit comparison.
func (e *ExpandedCommit) IsComparison() bool { return e.CompareHash != "" }

// OpenCommitDetails transitions Closed -> Loading(single) for hash. An
// already-open panel is torn down first without a render (the open that
// follows renders once). Returns the detail request to send, or nil when
// the same single commit is already open.
func (s *ViewState) OpenCommitDetails(hash string) protocol.Request {
	if s.Expanded != nil && s.Expanded.Hash == hash && !s.Expanded.IsComparison() {
		return nil
	}
	if s.Expanded != nil {
		s.CloseExpanded(false)
	}
	s.Expanded = &ExpandedCommit{Hash: hash, Loading: true}
	s.persist()
	return protocol.CommitDetailsRequest{
		RepoTag: protocol.RepoTag{Repo: s.CurrentRepo},
		Hash:    hash,
	}
}

// OpenCommitComparison transitions to Loading(comparison) for the pair.
// The pair is order-normalized by recency in the current commit list (not
// chronological time): from is the ancestor-ward side. The uncommitted
// sentinel is always the "to" side regardless of list position. When only
// the compare target changes while the same anchor's detail is already
// loaded, the detail half is kept so its round trip is not repeated.
func (s *ViewState) OpenCommitComparison(hashA, hashB string) protocol.Request {
	from, to := s.NormalizeComparison(hashA, hashB)

	if s.Expanded != nil && s.Expanded.Hash == from && s.Expanded.CompareHash == to {
		return nil
	}

	if s.Expanded != nil && s.Expanded.Hash == from {
		// Same anchor: tear down only the comparison half.
		s.Expanded.CompareHash = to
		s.Expanded.Loading = true
		s.Expanded.Changes = nil
		s.Expanded.Tree = nil
		s.Expanded.Review = nil
		s.Expanded.AI = AIState{}
		s.Expanded.ScrollFiles = 0
		s.Expanded.ScrollAI = 0
	} else {
		if s.Expanded != nil {
			s.CloseExpanded(false)
		}
		s.Expanded = &ExpandedCommit{Hash: from, CompareHash: to, Loading: true}
	}
	s.persist()
	return protocol.CompareCommitsRequest{
		RepoTag:  protocol.RepoTag{Repo: s.CurrentRepo},
		FromHash: from,
		ToHash:   to,
	}
}

// NormalizeComparison orders a commit pair ancestor-ward first. Recency is
// list index position: lower index is newer. The uncommitted sentinel is
// always the more-recent side.
func (s *ViewState) NormalizeComparison(hashA, hashB string) (from, to string) {
	if hashA == model.UncommittedHash {
		return hashB, hashA
	}
	if hashB == model.UncommittedHash {
		return hashA, hashB
	}
	ia, ib := s.CommitIndex(hashA), s.CommitIndex(hashB)
	if ia < ib {
		return hashB, hashA
	}
	return hashA, hashB
}

// ApplyCommitDetails applies a detail payload if it targets the open panel;
// stale payloads (user navigated away) are dropped. The file tree is
// rebuilt unless the change set is structurally identical to the previous
// load, preserving expand/collapse and review state across refreshes of the
// same target (notably the mutable uncommitted sentinel).
func (s *ViewState) ApplyCommitDetails(hash string, details *model.CommitDetails) bool {
	e := s.Expanded
	if e == nil || e.IsComparison() || e.Hash != hash || details == nil {
		return false
	}
	e.Loading = false
	e.Details = details
	s.applyChanges(e, details.Changes)
	s.persist()
	return true
}

// ApplyComparison applies a comparison payload under the same targeting
// rule, matched on the order-normalized pair.
func (s *ViewState) ApplyComparison(from, to string, changes []model.FileChange) bool {
	e := s.Expanded
	if e == nil || !e.IsComparison() || e.Hash != from || e.CompareHash != to {
		return false
	}
	e.Loading = false
	s.applyChanges(e, changes)
	s.persist()
	return true
}

// applyChanges installs a change list, rebuilding the tree only when the
// file set actually changed. A refresh-in-place of an identical set keeps
// scroll positions and the existing tree (open folders, review marks).
func (s *ViewState) applyChanges(e *ExpandedCommit, changes []model.FileChange) {
	if e.Tree != nil && model.SameFileChanges(e.Changes, changes) {
		e.Changes = changes
		return
	}
	e.Changes = changes
	e.Tree = CreateFileTree(changes, e.Review, s.nestedRepoPrefixes())
	e.ScrollFiles = 0
}

// nestedRepoPrefixes returns the known repositories that live under the
// current one, as relative path prefixes.
func (s *ViewState) nestedRepoPrefixes() []string {
	var prefixes []string
	prefix := s.CurrentRepo + "/"
	for _, r := range s.KnownRepos {
		if r != s.CurrentRepo && len(r) > len(prefix) && r[:len(prefix)] == prefix {
			prefixes = append(prefixes, r[len(prefix):])
		}
	}
	return prefixes
}

// CloseExpanded releases the panel. Context menus anchored inside it are
// stripped unconditionally. persistAndRender distinguishes a user dismissal
// (persist and let the caller re-render) from closing because something
// else is about to open, which must not double-render.
func (s *ViewState) CloseExpanded(persistAndRender bool) {
	if s.Expanded == nil {
		return
	}
	s.Expanded.ContextMenuOpen = false
	s.Expanded = nil
	if persistAndRender {
		s.persist()
	}
}

// CloseComparisonHalf reverts a comparison panel to the anchor's single
// detail view, keeping the already-fetched detail payload. Returns the
// detail request to send when the detail half was never loaded.
func (s *ViewState) CloseComparisonHalf() protocol.Request {
	e := s.Expanded
	if e == nil || !e.IsComparison() {
		return nil
	}
	e.CompareHash = ""
	e.Review = nil
	e.AI = AIState{}
	e.ScrollAI = 0
	if e.Details != nil {
		s.applyChanges(e, e.Details.Changes)
		s.persist()
		return nil
	}
	e.Loading = true
	e.Changes = nil
	e.Tree = nil
	s.persist()
	return protocol.CommitDetailsRequest{
		RepoTag: protocol.RepoTag{Repo: s.CurrentRepo},
		Hash:    e.Hash,
	}
}

// refreshExpandedAfterLoad re-requests the open panel's data when the
// underlying commit survived a commit-list replacement, or closes the panel
// when its commit vanished from the new window.
func (s *ViewState) refreshExpandedAfterLoad() {
	e := s.Expanded
	if e == nil {
		return
	}
	if s.CommitIndex(e.Hash) < 0 || (e.IsComparison() && s.CommitIndex(e.CompareHash) < 0) {
		s.CloseExpanded(false)
	}
}

// ExpandedRefreshRequest returns the request that refreshes the open
// panel's content in place, or nil when no panel is open. Used after
// background polls when the uncommitted sentinel is expanded.
func (s *ViewState) ExpandedRefreshRequest() protocol.Request {
	e := s.Expanded
	if e == nil {
		return nil
	}
	if e.IsComparison() {
		return protocol.CompareCommitsRequest{
			RepoTag:  protocol.RepoTag{Repo: s.CurrentRepo},
			FromHash: e.Hash,
			ToHash:   e.CompareHash,
		}
	}
	return protocol.CommitDetailsRequest{
		RepoTag: protocol.RepoTag{Repo: s.CurrentRepo},
		Hash:    e.Hash,
	}
}

// --- AI analysis sub-state -----------------------------------------------------

// RequestAIAnalysis transitions the sub-state to loading and returns the
// analysis request for the open panel, or nil when nothing is open.
func (s *ViewState) RequestAIAnalysis() protocol.Request {
	e := s.Expanded
	if e == nil {
		return nil
	}
	e.AI = AIState{Status: AILoading}
	s.persist()
	return protocol.AIAnalysisRequest{
		RepoTag:     protocol.RepoTag{Repo: s.CurrentRepo},
		Hash:        e.Hash,
		CompareHash: e.CompareHash,
	}
}

// ApplyAIUpdate applies an analysis push if it targets the currently open
// anchor/compare-target pair; pushes for a panel the user navigated away
// from are dropped.
func (s *ViewState) ApplyAIUpdate(upd protocol.AIAnalysisUpdate) bool {
	e := s.Expanded
	if e == nil || e.Hash != upd.Hash || e.CompareHash != upd.CompareHash {
		return false
	}
	switch upd.Status {
	case protocol.AILoading:
		e.AI = AIState{Status: AILoading}
	case protocol.AIProgress:
		e.AI.Status = AILoading
		e.AI.Progress = upd.Progress
	case protocol.AICompleted:
		e.AI = AIState{Status: AICompleted, Summary: upd.Summary}
	case protocol.AIErrored:
		e.AI = AIState{Status: AIErrored, ErrorKind: upd.ErrorKind}
	default:
		return false
	}
	s.persist()
	return true
}
