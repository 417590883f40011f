package store

import "github.com/vanderheijden86/gitgraph/pkg/model"

// Divider layout constraints for the three-pane detail panel. The left
// divider may not cross below 0.2 or within 0.1 of the right divider; the
// right divider may not cross above 0.8 or within 0.1 of the left.
const (
	DividerMinLeft  = 0.2
	DividerMaxRight = 0.8
	DividerMinGap   = 0.1
)

// Default divider fractions for a freshly opened detail panel.
const (
	DefaultLeftDivider  = 0.4
	DefaultRightDivider = 0.7
)

// RepoPrefs holds the per-repository UI preferences. They are persisted
// verbatim in the snapshot and mirrored to the backend as a merge patch on
// every mutation.
type RepoPrefs struct {
	// ColumnWidths is nil while the table is in automatic (content-driven)
	// layout. Any manual resize switches the repository to fixed layout and
	// the widths stick until reset.
	ColumnWidths []int `json:"columnWidths,omitempty"`

	HiddenRemotes []string `json:"hiddenRemotes,omitempty"`

	// Tri-state overrides of the global defaults: nil means "use default".
	ShowRemoteBranches *bool `json:"showRemoteBranches,omitempty"`
	ShowStashes        *bool `json:"showStashes,omitempty"`
	ShowTags           *bool `json:"showTags,omitempty"`
	FirstParentOnly    *bool `json:"firstParentOnly,omitempty"`

	Ordering model.CommitOrdering `json:"ordering,omitempty"`

	OnLoadShowCheckedOut *bool    `json:"onLoadShowCheckedOut,omitempty"`
	OnLoadShowBranches   []string `json:"onLoadShowBranches,omitempty"`

	FileViewType model.FileViewType `json:"fileViewType"`

	// DetailPaneHeight is the commit detail view's height in table rows.
	DetailPaneHeight int `json:"detailPaneHeight,omitempty"`

	// LeftDivider and RightDivider are the fractional positions of the two
	// draggable boundaries between the summary, file list, and analysis
	// panes. Zero values mean "not yet set" and resolve to the defaults.
	LeftDivider  float64 `json:"leftDivider,omitempty"`
	RightDivider float64 `json:"rightDivider,omitempty"`
}

// RepoSet maps repository path to its preferences.
type RepoSet map[string]*RepoPrefs

// Get returns the preferences for repo, creating a default record if none
// exists yet.
func (rs RepoSet) Get(repo string) *RepoPrefs {
	if p, ok := rs[repo]; ok && p != nil {
		return p
	}
	p := NewRepoPrefs()
	rs[repo] = p
	return p
}

// Merge applies a preference patch for repo, overwriting only the fields
// the patch carries; zero-valued fields are treated as absent. The set is
// merged, never replaced. Divider patches go through the setters so the
// clamping invariant holds against any payload.
func (rs RepoSet) Merge(repo string, patch *RepoPrefs) {
	if patch == nil {
		return
	}
	p := rs.Get(repo)
	if patch.ColumnWidths != nil {
		p.ColumnWidths = patch.ColumnWidths
	}
	if patch.HiddenRemotes != nil {
		p.HiddenRemotes = patch.HiddenRemotes
	}
	if patch.ShowRemoteBranches != nil {
		p.ShowRemoteBranches = patch.ShowRemoteBranches
	}
	if patch.ShowStashes != nil {
		p.ShowStashes = patch.ShowStashes
	}
	if patch.ShowTags != nil {
		p.ShowTags = patch.ShowTags
	}
	if patch.FirstParentOnly != nil {
		p.FirstParentOnly = patch.FirstParentOnly
	}
	if patch.Ordering != "" {
		p.Ordering = patch.Ordering
	}
	if patch.OnLoadShowCheckedOut != nil {
		p.OnLoadShowCheckedOut = patch.OnLoadShowCheckedOut
	}
	if patch.OnLoadShowBranches != nil {
		p.OnLoadShowBranches = patch.OnLoadShowBranches
	}
	if patch.DetailPaneHeight != 0 {
		p.DetailPaneHeight = patch.DetailPaneHeight
	}
	if patch.FileViewType != model.FileViewTree {
		p.FileViewType = patch.FileViewType
	}
	if patch.LeftDivider != 0 {
		p.SetLeftDivider(patch.LeftDivider)
	}
	if patch.RightDivider != 0 {
		p.SetRightDivider(patch.RightDivider)
	}
	if patch.LeftDivider != 0 && patch.RightDivider != 0 {
		// The first left pass may have been clamped against the old right
		// boundary; with the right one settled, re-apply.
		p.SetLeftDivider(patch.LeftDivider)
	}
}

// NewRepoPrefs returns preferences with the divider defaults applied.
func NewRepoPrefs() *RepoPrefs {
	return &RepoPrefs{
		LeftDivider:  DefaultLeftDivider,
		RightDivider: DefaultRightDivider,
	}
}

// Dividers returns the effective divider fractions, substituting defaults
// for unset values.
func (p *RepoPrefs) Dividers() (left, right float64) {
	left, right = p.LeftDivider, p.RightDivider
	if left == 0 {
		left = DefaultLeftDivider
	}
	if right == 0 {
		right = DefaultRightDivider
	}
	return left, right
}

// SetLeftDivider moves the left divider to v, clamped so that
// DividerMinLeft <= left <= right - DividerMinGap holds for any input.
func (p *RepoPrefs) SetLeftDivider(v float64) {
	_, right := p.Dividers()
	max := right - DividerMinGap
	if v > max {
		v = max
	}
	if v < DividerMinLeft {
		v = DividerMinLeft
	}
	p.LeftDivider = v
	p.RightDivider = right
}

// SetRightDivider moves the right divider to v, clamped so that
// left + DividerMinGap <= right <= DividerMaxRight holds for any input.
func (p *RepoPrefs) SetRightDivider(v float64) {
	left, _ := p.Dividers()
	min := left + DividerMinGap
	if v < min {
		v = min
	}
	if v > DividerMaxRight {
		v = DividerMaxRight
	}
	p.LeftDivider = left
	p.RightDivider = v
}

// HidesRemote reports whether the given remote is hidden for this repo.
func (p *RepoPrefs) HidesRemote(remote string) bool {
	for _, r := range p.HiddenRemotes {
		if r == remote {
			return true
		}
	}
	return false
}

// ToggleHiddenRemote flips the hidden state of one remote.
func (p *RepoPrefs) ToggleHiddenRemote(remote string) {
	for i, r := range p.HiddenRemotes {
		if r == remote {
			p.HiddenRemotes = append(p.HiddenRemotes[:i], p.HiddenRemotes[i+1:]...)
			return
		}
	}
	p.HiddenRemotes = append(p.HiddenRemotes, remote)
}
