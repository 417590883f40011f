package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/vanderheijden86/gitgraph/pkg/model"
	"github.com/vanderheijden86/gitgraph/pkg/protocol"
)

type dialogKind int

const (
	dialogBranch dialogKind = iota
	dialogBranchConfirm
	dialogTag
	dialogTagConfirm
	dialogCheckout
	dialogSettings
)

// dialogState is the active modal form. Values are bound into the huh form
// and read back on completion.
type dialogState struct {
	kind dialogKind
	form *huh.Form
	hash string

	name    string
	message string
	confirm bool

	// settings bindings
	showTags    bool
	showRemotes bool
	showStashes bool
	firstParent bool
	ordering    string
}

func (m Model) openBranchDialog(hash string) (tea.Model, tea.Cmd) {
	d := &dialogState{kind: dialogBranch, hash: hash}
	d.form = huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("Create branch at " + shortHash(hash)).
			Placeholder("branch name").
			Value(&d.name),
	))
	m.dialog = d
	return m, d.form.Init()
}

func (m Model) openTagDialog(hash string) (tea.Model, tea.Cmd) {
	d := &dialogState{kind: dialogTag, hash: hash}
	d.form = huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("Create tag at "+shortHash(hash)).
			Placeholder("tag name").
			Value(&d.name),
		huh.NewInput().
			Title("Message").
			Description("Leave empty for a lightweight tag").
			Value(&d.message),
	))
	m.dialog = d
	return m, d.form.Init()
}

func (m Model) openCheckoutDialog(c *model.Commit) (tea.Model, tea.Cmd) {
	target := c.Hash
	title := "Checkout " + shortHash(c.Hash) + " (detached HEAD)?"
	if len(c.Heads) > 0 {
		target = c.Heads[0]
		title = "Checkout branch " + target + "?"
	}
	d := &dialogState{kind: dialogCheckout, hash: c.Hash, name: target}
	d.form = huh.NewForm(huh.NewGroup(
		huh.NewConfirm().Title(title).Value(&d.confirm),
	))
	m.dialog = d
	return m, d.form.Init()
}

func (m Model) openSettingsDialog() (tea.Model, tea.Cmd) {
	s := m.state
	d := &dialogState{
		kind:        dialogSettings,
		showTags:    s.EffectiveShowTags(),
		showRemotes: s.EffectiveShowRemoteBranches(),
		showStashes: s.EffectiveShowStashes(),
		firstParent: s.EffectiveFirstParentOnly(),
		ordering:    string(s.EffectiveOrdering()),
	}
	d.form = huh.NewForm(huh.NewGroup(
		huh.NewConfirm().Title("Show tags").Value(&d.showTags),
		huh.NewConfirm().Title("Show remote branches").Value(&d.showRemotes),
		huh.NewConfirm().Title("Show stashes").Value(&d.showStashes),
		huh.NewConfirm().Title("First parent only").Value(&d.firstParent),
		huh.NewSelect[string]().
			Title("Commit ordering").
			Options(
				huh.NewOption("Commit date", string(model.OrderDate)),
				huh.NewOption("Author date", string(model.OrderAuthorDate)),
				huh.NewOption("Topological", string(model.OrderTopo)),
			).
			Value(&d.ordering),
	))
	m.dialog = d
	m.state.Settings.Open = true
	return m, d.form.Init()
}

// updateDialog forwards every message to the active form; huh needs more
// than key events (blink, timers).
func (m Model) updateDialog(msg tea.Msg) (tea.Model, tea.Cmd) {
	d := m.dialog
	form, cmd := d.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		d.form = f
	}

	switch d.form.State {
	case huh.StateAborted:
		m.closeDialog()
		return m, nil
	case huh.StateCompleted:
		return m.completeDialog()
	}
	return m, cmd
}

func (m *Model) closeDialog() {
	m.dialog = nil
	m.state.Settings.Open = false
	m.state.PersistNow()
}

func (m Model) completeDialog() (tea.Model, tea.Cmd) {
	d := m.dialog
	s := m.state

	switch d.kind {
	case dialogBranch:
		if d.name == "" {
			m.closeDialog()
			return m, nil
		}
		if containsString(s.Branches, d.name) {
			return m.openOverwriteConfirm(dialogBranchConfirm, "Branch "+d.name+" already exists. Overwrite?", d)
		}
		m.submitBranchCreate(d, false)
		m.closeDialog()
		return m.setStatus("Created branch " + d.name)

	case dialogBranchConfirm:
		if d.confirm {
			m.submitBranchCreate(d, true)
		}
		m.closeDialog()
		return m, nil

	case dialogTag:
		if d.name == "" {
			m.closeDialog()
			return m, nil
		}
		if containsString(s.Tags, d.name) {
			return m.openOverwriteConfirm(dialogTagConfirm, "Tag "+d.name+" already exists. Replace?", d)
		}
		m.submitTagCreate(d, false)
		m.closeDialog()
		return m.setStatus("Created tag " + d.name)

	case dialogTagConfirm:
		if d.confirm {
			m.submitTagCreate(d, true)
		}
		m.closeDialog()
		return m, nil

	case dialogCheckout:
		if d.confirm {
			m.backend.Submit(protocol.ActionRequest{
				RepoTag: protocol.RepoTag{Repo: s.CurrentRepo},
				Action:  protocol.ActionCheckout,
				Args:    []string{d.name},
			})
		}
		m.closeDialog()
		return m, nil

	case dialogSettings:
		prefs := s.Repos.Get(s.CurrentRepo)
		prefs.ShowTags = boolPtr(d.showTags)
		prefs.ShowRemoteBranches = boolPtr(d.showRemotes)
		prefs.ShowStashes = boolPtr(d.showStashes)
		prefs.FirstParentOnly = boolPtr(d.firstParent)
		prefs.Ordering = model.CommitOrdering(d.ordering)
		m.closeDialog()
		m.mirrorPrefs()
		m.coord.RequestRefresh(false, false, false)
		return m, nil
	}

	m.closeDialog()
	return m, nil
}

// openOverwriteConfirm swaps the active dialog for a yes/no confirmation,
// keeping the collected values.
func (m Model) openOverwriteConfirm(kind dialogKind, title string, d *dialogState) (tea.Model, tea.Cmd) {
	next := &dialogState{kind: kind, hash: d.hash, name: d.name, message: d.message}
	next.form = huh.NewForm(huh.NewGroup(
		huh.NewConfirm().Title(title).Value(&next.confirm),
	))
	m.dialog = next
	return m, next.form.Init()
}

func (m Model) submitBranchCreate(d *dialogState, force bool) {
	args := []string{}
	if force {
		args = append(args, "-f")
	}
	args = append(args, d.name, d.hash)
	m.backend.Submit(protocol.ActionRequest{
		RepoTag: protocol.RepoTag{Repo: m.state.CurrentRepo},
		Action:  protocol.ActionCreateBranch,
		Args:    args,
	})
}

func (m Model) submitTagCreate(d *dialogState, force bool) {
	args := []string{}
	if force {
		args = append(args, "-f")
	}
	if d.message != "" {
		args = append(args, "-a", d.name, "-m", d.message, d.hash)
	} else {
		args = append(args, d.name, d.hash)
	}
	m.backend.Submit(protocol.ActionRequest{
		RepoTag: protocol.RepoTag{Repo: m.state.CurrentRepo},
		Action:  protocol.ActionCreateTag,
		Args:    args,
	})
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func boolPtr(v bool) *bool { return &v }
