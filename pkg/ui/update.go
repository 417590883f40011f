package ui

import (
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/gitgraph/pkg/model"
	"github.com/vanderheijden86/gitgraph/pkg/protocol"
	"github.com/vanderheijden86/gitgraph/pkg/store"
)

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.dialog != nil {
		return m.updateDialog(msg)
	}
	if m.tagPopup != nil {
		// Any key dismisses the tag popup.
		m.tagPopup = nil
		return m, nil
	}
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	switch msg.String() {
	case "ctrl+c", "q":
		if m.focused == focusFind {
			break // find input owns plain "q"
		}
		_ = m.persister.Save(m.state.Snapshot())
		return m, tea.Quit
	case "?":
		if m.focused != focusFind {
			m.showHelp = true
			return m, nil
		}
	}

	switch m.focused {
	case focusFind:
		return m.handleFindKey(msg)
	case focusBranches:
		return m.handleBranchKey(msg)
	case focusDetail:
		return m.handleDetailKey(msg)
	default:
		return m.handleTableKey(msg)
	}
}

// --- commit table -------------------------------------------------------------

func (m Model) handleTableKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	s := m.state

	switch msg.String() {
	case "up", "k":
		m.moveCursor(-1)
	case "down", "j":
		m.moveCursor(1)
	case "pgup":
		m.moveCursor(-m.tableHeight())
	case "pgdown":
		m.moveCursor(m.tableHeight())
	case "home", "g":
		m.cursor = 0
		m.ensureCursorVisible()
	case "end", "G":
		m.cursor = len(s.Commits) - 1
		if m.cursor < 0 {
			m.cursor = 0
		}
		m.ensureCursorVisible()

	case "enter":
		if c := m.selectedCommit(); c != nil {
			if req := s.OpenCommitDetails(c.Hash); req != nil {
				m.backend.Submit(req)
			}
			m.focused = focusDetail
			m.activePane = paneFiles
			m.fileCursor = 0
		}

	case "c":
		if c := m.selectedCommit(); c != nil {
			switch {
			case m.marked == "":
				m.marked = c.Hash
				return m.setStatus("Marked " + shortHash(c.Hash) + " for comparison")
			case m.marked == c.Hash:
				m.marked = ""
			default:
				if req := s.OpenCommitComparison(m.marked, c.Hash); req != nil {
					m.backend.Submit(req)
				}
				m.marked = ""
				m.focused = focusDetail
				m.activePane = paneFiles
				m.fileCursor = 0
			}
		}

	case "esc":
		switch {
		case m.marked != "":
			m.marked = ""
		case s.Expanded != nil:
			s.CloseExpanded(true)
		}

	case "b":
		m.focused = focusBranches
		m.branchPending = append([]string(nil), s.SelectedBranches...)
		m.branchCursor = 0

	case "r":
		s.LastError = ""
		m.coord.RequestRefresh(false, false, false)
	case "R":
		s.LastError = ""
		m.coord.Retry()

	case "/":
		m.focused = focusFind
		s.Find.Open = true
		m.findInput.SetValue(s.Find.Text)
		m.findInput.Focus()

	case "s":
		return m.openSettingsDialog()

	case "m":
		if s.MoreCommitsAvailable {
			s.LoadMoreCommits()
			m.coord.RequestRefresh(false, true, false)
		}

	case "y":
		if c := m.selectedCommit(); c != nil {
			m.backend.Submit(protocol.CopyToClipboardRequest{
				RepoTag: protocol.RepoTag{Repo: s.CurrentRepo},
				Text:    c.Hash,
			})
			return m.setStatus("Copied " + shortHash(c.Hash))
		}

	case "t":
		if c := m.selectedCommit(); c != nil && len(c.Tags) > 0 {
			m.backend.Submit(protocol.TagDetailsRequest{
				RepoTag: protocol.RepoTag{Repo: s.CurrentRepo},
				TagName: c.Tags[0].Name,
			})
		}

	case "o":
		m.backend.Submit(protocol.OpenTerminalRequest{RepoTag: protocol.RepoTag{Repo: s.CurrentRepo}})

	case "w":
		return m.exportSVG()

	case "f":
		m.backend.Submit(protocol.ActionRequest{
			RepoTag: protocol.RepoTag{Repo: s.CurrentRepo},
			Action:  protocol.ActionFetch,
		})
		return m.setStatus("Fetching...")
	case "p":
		m.backend.Submit(protocol.ActionRequest{
			RepoTag: protocol.RepoTag{Repo: s.CurrentRepo},
			Action:  protocol.ActionPull,
		})
		return m.setStatus("Pulling...")
	case "P":
		m.backend.Submit(protocol.ActionRequest{
			RepoTag: protocol.RepoTag{Repo: s.CurrentRepo},
			Action:  protocol.ActionPush,
		})
		return m.setStatus("Pushing...")

	case "n":
		if c := m.selectedCommit(); c != nil && !c.IsUncommitted() {
			return m.openBranchDialog(c.Hash)
		}
	case "N":
		if c := m.selectedCommit(); c != nil && !c.IsUncommitted() {
			return m.openTagDialog(c.Hash)
		}

	case "x":
		if c := m.selectedCommit(); c != nil && !c.IsUncommitted() {
			return m.openCheckoutDialog(c)
		}
	}

	return m, nil
}

func (m *Model) moveCursor(delta int) {
	m.cursor += delta
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.cursor >= len(m.state.Commits) {
		m.cursor = len(m.state.Commits) - 1
		if m.cursor < 0 {
			m.cursor = 0
		}
	}
	m.ensureCursorVisible()
}

func (m Model) selectedCommit() *model.Commit {
	if m.cursor < 0 || m.cursor >= len(m.state.Commits) {
		return nil
	}
	return &m.state.Commits[m.cursor]
}

// exportSVG writes the current graph layout next to the repository.
func (m Model) exportSVG() (tea.Model, tea.Cmd) {
	if len(m.state.Commits) == 0 {
		return m, nil
	}
	path := m.state.CurrentRepo + "/graph.svg"
	f, err := os.Create(path)
	if err != nil {
		return m.setStatus("Cannot export SVG: " + err.Error())
	}
	defer f.Close()
	if err := m.graph.WriteSVG(f); err != nil {
		return m.setStatus("Cannot export SVG: " + err.Error())
	}
	return m.setStatus("Exported " + path)
}

// --- find widget ---------------------------------------------------------------

func (m Model) handleFindKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	s := m.state
	switch msg.String() {
	case "esc":
		m.focused = focusTable
		s.Find.Open = false
		m.findInput.Blur()
		s.PersistNow()
		return m, nil
	case "enter", "down":
		if n := len(s.Find.Matches); n > 0 {
			s.Find.Position = (s.Find.Position + 1) % n
			m.cursor = s.Find.Matches[s.Find.Position]
			m.ensureCursorVisible()
		}
		return m, nil
	case "up":
		if n := len(s.Find.Matches); n > 0 {
			s.Find.Position = (s.Find.Position - 1 + n) % n
			m.cursor = s.Find.Matches[s.Find.Position]
			m.ensureCursorVisible()
		}
		return m, nil
	case "ctrl+a":
		s.Find.CaseAware = !s.Find.CaseAware
		s.UpdateFindMatches()
		return m, nil
	}

	var cmd tea.Cmd
	m.findInput, cmd = m.findInput.Update(msg)
	if v := m.findInput.Value(); v != s.Find.Text {
		s.Find.Text = v
		s.UpdateFindMatches()
		if len(s.Find.Matches) > 0 {
			m.cursor = s.Find.Matches[s.Find.Position]
			m.ensureCursorVisible()
		}
	}
	return m, cmd
}

// --- branch picker ---------------------------------------------------------------

// branchEntries lists the picker rows: the show-all sentinel first, then
// every local branch.
func (m Model) branchEntries() []string {
	return append([]string{model.ShowAllBranches}, m.state.Branches...)
}

func (m Model) handleBranchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	entries := m.branchEntries()
	switch msg.String() {
	case "esc":
		m.focused = focusTable
		m.branchPending = nil
	case "up", "k":
		if m.branchCursor > 0 {
			m.branchCursor--
		}
	case "down", "j":
		if m.branchCursor < len(entries)-1 {
			m.branchCursor++
		}
	case " ":
		if m.branchCursor < len(entries) {
			m.togglePendingBranch(entries[m.branchCursor])
		}
	case "enter":
		selection := m.branchPending
		if len(selection) == 0 {
			selection = []string{model.ShowAllBranches}
		}
		m.state.SelectedBranches = selection
		m.focused = focusTable
		m.branchPending = nil
		m.coord.RequestRefresh(false, true, false)
	}
	return m, nil
}

// togglePendingBranch flips one entry in the picker's working selection.
// Selecting the show-all sentinel clears everything else; selecting a
// concrete branch removes the sentinel.
func (m *Model) togglePendingBranch(branch string) {
	if branch == model.ShowAllBranches {
		m.branchPending = []string{model.ShowAllBranches}
		return
	}
	for i, b := range m.branchPending {
		if b == branch {
			m.branchPending = append(m.branchPending[:i], m.branchPending[i+1:]...)
			return
		}
	}
	kept := m.branchPending[:0]
	for _, b := range m.branchPending {
		if b != model.ShowAllBranches {
			kept = append(kept, b)
		}
	}
	m.branchPending = append(kept, branch)
}

// --- expanded panel ---------------------------------------------------------------

func (m Model) handleDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	s := m.state
	e := s.Expanded
	if e == nil {
		m.focused = focusTable
		return m, nil
	}
	prefs := s.Repos.Get(s.CurrentRepo)

	switch msg.String() {
	case "esc":
		s.CloseExpanded(true)
		m.focused = focusTable
		return m, nil

	case "backspace":
		if e.IsComparison() {
			if req := s.CloseComparisonHalf(); req != nil {
				m.backend.Submit(req)
			}
			m.fileCursor = 0
		}
		return m, nil

	case "tab":
		m.activePane = (m.activePane + 1) % 3
		return m, nil
	case "shift+tab":
		m.activePane = (m.activePane + 2) % 3
		return m, nil

	case "up", "k":
		m.scrollPane(-1)
		return m, nil
	case "down", "j":
		m.scrollPane(1)
		return m, nil

	case "enter":
		rows := m.visibleTreeRows()
		if m.activePane == paneFiles && m.fileCursor < len(rows) {
			row := rows[m.fileCursor]
			switch {
			case row.Node == nil:
				// Flat-list rows under a nested-repository prefix have no
				// tree node; the diff is still addressable by path.
				m.backend.Submit(m.viewDiffRequest(row))
			case row.Node.Type == store.NodeFolder:
				e.Tree = store.ToggleFolderOpen(e.Tree, row.Path)
			case row.Node.Type == store.NodeFile:
				if req := s.RecordFileViewed(row.Path); req != nil {
					m.backend.Submit(req)
				}
				m.backend.Submit(m.viewDiffRequest(row))
			}
		}
		return m, nil

	case " ":
		rows := m.visibleTreeRows()
		if m.activePane == paneFiles && m.fileCursor < len(rows) {
			row := rows[m.fileCursor]
			if row.Node != nil && row.Node.Type == store.NodeFile && e.Review != nil {
				if req := s.SetFileReviewedState(row.Path, !row.Node.Reviewed); req != nil {
					m.backend.Submit(req)
				}
				if s.Expanded.Review == nil {
					return m.setStatus("Code review complete")
				}
			}
		}
		return m, nil

	case "v":
		if req := s.StartCodeReview(); req != nil {
			m.backend.Submit(req)
			return m.setStatus("Code review started")
		}
		return m, nil
	case "V":
		if req := s.EndCodeReview(); req != nil {
			m.backend.Submit(req)
			return m.setStatus("Code review ended")
		}
		return m, nil

	case "a":
		if req := s.RequestAIAnalysis(); req != nil {
			m.backend.Submit(req)
		}
		return m, nil

	case "l":
		if prefs.FileViewType == model.FileViewTree {
			prefs.FileViewType = model.FileViewList
		} else {
			prefs.FileViewType = model.FileViewTree
		}
		m.fileCursor = 0
		s.PersistNow()
		m.mirrorPrefs()
		return m, nil

	case "[":
		left, _ := prefs.Dividers()
		prefs.SetLeftDivider(left - 0.05)
		m.dividerChanged()
		return m, nil
	case "]":
		left, _ := prefs.Dividers()
		prefs.SetLeftDivider(left + 0.05)
		m.dividerChanged()
		return m, nil
	case "{":
		_, right := prefs.Dividers()
		prefs.SetRightDivider(right - 0.05)
		m.dividerChanged()
		return m, nil
	case "}":
		_, right := prefs.Dividers()
		prefs.SetRightDivider(right + 0.05)
		m.dividerChanged()
		return m, nil

	case "+":
		prefs.DetailPaneHeight = m.detailHeight() + 2
		m.dividerChanged()
		return m, nil
	case "-":
		if h := m.detailHeight() - 2; h >= 6 {
			prefs.DetailPaneHeight = h
		}
		m.dividerChanged()
		return m, nil

	case "y":
		m.backend.Submit(protocol.CopyToClipboardRequest{
			RepoTag: protocol.RepoTag{Repo: s.CurrentRepo},
			Text:    e.Hash,
		})
		return m.setStatus("Copied " + shortHash(e.Hash))
	}

	return m, nil
}

func (m *Model) dividerChanged() {
	m.state.PersistNow()
	m.mirrorPrefs()
	m.renderer = NewMarkdownRenderer(m.summaryPaneWidth())
}

// scrollPane moves the active detail pane by delta: the file cursor for the
// file region, scroll offsets for the text regions.
func (m *Model) scrollPane(delta int) {
	e := m.state.Expanded
	if e == nil {
		return
	}
	switch m.activePane {
	case paneSummary:
		e.ScrollSummary = clampMin(e.ScrollSummary+delta, 0)
	case paneFiles:
		rows := m.visibleTreeRows()
		m.fileCursor = clampMin(m.fileCursor+delta, 0)
		if m.fileCursor >= len(rows) && len(rows) > 0 {
			m.fileCursor = len(rows) - 1
		}
		visible := m.detailHeight() - 2
		if visible > 0 {
			if m.fileCursor < e.ScrollFiles {
				e.ScrollFiles = m.fileCursor
			} else if m.fileCursor >= e.ScrollFiles+visible {
				e.ScrollFiles = m.fileCursor - visible + 1
			}
		}
	case paneAI:
		e.ScrollAI = clampMin(e.ScrollAI+delta, 0)
	}
}

func clampMin(v, min int) int {
	if v < min {
		return min
	}
	return v
}

// viewDiffRequest builds the diff request for a file row of the open panel.
// Rows without a tree node (files under a nested-repository prefix in list
// mode) resolve their change by path.
func (m Model) viewDiffRequest(row treeRow) protocol.Request {
	e := m.state.Expanded
	var change model.FileChange
	if row.Node != nil {
		change = e.Changes[row.Node.FileIndex]
	} else {
		for i := range e.Changes {
			if e.Changes[i].Path() == row.Path {
				change = e.Changes[i]
				break
			}
		}
	}
	from, to := e.Hash, e.CompareHash
	if to == "" {
		to = e.Hash
		from = ""
		if e.Details != nil && len(e.Details.Parents) > 0 {
			from = e.Details.Parents[0]
		}
	}
	return protocol.ViewDiffRequest{
		RepoTag:  protocol.RepoTag{Repo: m.state.CurrentRepo},
		FromHash: from,
		ToHash:   to,
		OldPath:  change.OldPath,
		NewPath:  change.NewPath,
		Status:   change.Status,
	}
}

// --- mouse ----------------------------------------------------------------------

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Button == tea.MouseButtonWheelUp && msg.Action == tea.MouseActionPress:
		m.state.SetScrollTop(m.state.ScrollTop - 3)
		m.persister.SaveScrollDebounced(m.state.Snapshot())
	case msg.Button == tea.MouseButtonWheelDown && msg.Action == tea.MouseActionPress:
		max := len(m.state.Commits) - m.tableHeight()
		if max < 0 {
			max = 0
		}
		top := m.state.ScrollTop + 3
		if top > max {
			top = max
		}
		m.state.SetScrollTop(top)
		m.persister.SaveScrollDebounced(m.state.Snapshot())

	case msg.Button == tea.MouseButtonLeft && msg.Action == tea.MouseActionPress:
		row := m.state.ScrollTop + msg.Y - tableHeaderLines
		if row < 0 || row >= len(m.state.Commits) {
			return m, nil
		}
		if msg.Ctrl && m.cursor != row {
			// Ctrl+click compares the clicked commit with the selected one.
			a := m.state.Commits[m.cursor].Hash
			b := m.state.Commits[row].Hash
			if req := m.state.OpenCommitComparison(a, b); req != nil {
				m.backend.Submit(req)
			}
			m.focused = focusDetail
			m.activePane = paneFiles
			m.fileCursor = 0
		}
		m.cursor = row
		m.ensureCursorVisible()
	}
	return m, nil
}

func shortHash(h string) string {
	if h == model.UncommittedHash {
		return "working tree"
	}
	if len(h) > 8 {
		return h[:8]
	}
	return h
}
