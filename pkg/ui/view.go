package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/gitgraph/pkg/model"
	"github.com/vanderheijden86/gitgraph/pkg/store"
)

// tableHeaderLines is the number of rows above the first commit row: the
// title bar and the column header. Mouse hit-testing depends on it.
const tableHeaderLines = 2

// footerLines is the status/help bar at the bottom.
const footerLines = 1

const defaultDetailHeight = 16

// tableHeight returns how many commit rows fit in the current layout.
func (m Model) tableHeight() int {
	h := m.height - tableHeaderLines - footerLines
	if m.state.Find.Open {
		h--
	}
	if m.state.Expanded != nil {
		h -= m.detailHeight()
	}
	if h < 1 {
		h = 1
	}
	return h
}

// detailHeight returns the expanded panel's height in rows.
func (m Model) detailHeight() int {
	h := m.state.Repos.Get(m.state.CurrentRepo).DetailPaneHeight
	if h <= 0 {
		h = defaultDetailHeight
	}
	if max := m.height - tableHeaderLines - footerLines - 4; h > max && max >= 6 {
		h = max
	}
	return h
}

// summaryPaneWidth returns the width of the leftmost detail pane, which the
// markdown renderer wraps to.
func (m Model) summaryPaneWidth() int {
	if m.width == 0 {
		return 80
	}
	left, _ := m.state.Repos.Get(m.state.CurrentRepo).Dividers()
	w := int(float64(m.width) * left)
	if w < 24 {
		w = 24
	}
	return w - 2
}

// View renders the whole screen.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	switch {
	case m.dialog != nil:
		return m.centered(m.dialog.form.View())
	case m.showHelp:
		return m.centered(m.helpView())
	case m.tagPopup != nil:
		return m.centered(m.tagPopupView())
	case m.focused == focusBranches:
		return m.centered(m.branchPickerView())
	}

	var b strings.Builder
	b.WriteString(m.titleBar())
	b.WriteString("\n")
	b.WriteString(m.columnHeader())
	b.WriteString("\n")
	b.WriteString(m.tableView())

	if m.state.Expanded != nil {
		b.WriteString("\n")
		b.WriteString(m.detailView())
	}
	if m.state.Find.Open {
		b.WriteString("\n")
		b.WriteString(m.findBar())
	}
	b.WriteString("\n")
	b.WriteString(m.footer())
	return b.String()
}

func (m Model) centered(content string) string {
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
		m.theme.PaneBorder.Render(content))
}

func (m Model) titleBar() string {
	s := m.state
	repo := s.CurrentRepo
	if repo == "" {
		repo = "no repository"
	}
	branches := strings.Join(s.SelectedBranches, ", ")
	if branches == model.ShowAllBranches {
		branches = "all branches"
	}
	right := fmt.Sprintf("%d commits", len(s.Commits))
	if s.MoreCommitsAvailable {
		right += " +"
	}
	if s.Refresh.InFlight {
		right += " ⟳"
	}
	left := m.theme.Header.Render(" gg ") + " " + repo + "  " + m.theme.MutedText.Render(branches)
	pad := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 1
	if pad < 1 {
		pad = 1
	}
	return truncate(left+strings.Repeat(" ", pad)+right, m.width)
}

func (m Model) columnHeader() string {
	graphW := m.graphColumnWidth()
	header := fmt.Sprintf("%-*s %-8s %-*s %-18s %s",
		graphW, "Graph", "Commit", m.messageColumnWidth(), "Description", "Author", "Date")
	return m.theme.MutedText.Render(truncate(header, m.width))
}

func (m Model) graphColumnWidth() int {
	w := m.graph.LaneCount() * 2
	if w < 5 {
		w = 5
	}
	if w > 24 {
		w = 24
	}
	return w
}

func (m Model) messageColumnWidth() int {
	w := m.width - m.graphColumnWidth() - 8 - 18 - 14 - 5
	if w < 20 {
		w = 20
	}
	return w
}

func (m Model) tableView() string {
	s := m.state

	if s.LastError != "" {
		msg := m.theme.ErrorText.Render("Unable to load commits: "+s.LastError) +
			"\n\n" + m.theme.MutedText.Render("Press R to retry.")
		return lipgloss.Place(m.width, m.tableHeight(), lipgloss.Center, lipgloss.Center, msg)
	}

	if len(s.Commits) == 0 {
		var msg string
		switch {
		case s.Refresh.InFlight:
			msg = "Loading commits..."
		case s.CurrentRepo == "":
			msg = "No repository found.\nRegister one in the configuration file or run inside a repository."
		default:
			msg = "No commits yet.\nMake your first commit and press r to refresh."
		}
		return lipgloss.Place(m.width, m.tableHeight(), lipgloss.Center, lipgloss.Center,
			m.theme.MutedText.Render(msg))
	}

	rows := m.graph.Render()
	height := m.tableHeight()
	top := s.ScrollTop
	if top > len(s.Commits)-1 {
		top = len(s.Commits) - 1
	}
	if top < 0 {
		top = 0
	}
	end := top + height
	if end > len(s.Commits) {
		end = len(s.Commits)
	}

	var b strings.Builder
	for i := top; i < end; i++ {
		b.WriteString(m.commitRow(i, rows))
		if i < end-1 {
			b.WriteString("\n")
		}
	}
	// Pad so the detail panel stays anchored.
	for i := end - top; i < height; i++ {
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) commitRow(i int, graphRows []string) string {
	s := m.state
	c := &s.Commits[i]
	graphW := m.graphColumnWidth()

	graphCell := ""
	if i < len(graphRows) {
		graphCell = graphRows[i]
	}
	graphCell = padANSI(graphCell, graphW)

	hash := shortHash(c.Hash)
	if c.IsUncommitted() {
		hash = "*       "
	}

	msg := m.refBadges(c) + c.Message
	msg = truncate(msg, m.messageColumnWidth())

	author := truncate(c.Author, 18)
	date := relativeTime(c.CommitterDate)
	if c.IsUncommitted() {
		date = ""
	}

	line := fmt.Sprintf("%s %-8s %-*s %-18s %s", graphCell, hash, m.messageColumnWidth(), msg, author, date)
	line = truncate(line, m.width)

	switch {
	case i == m.cursor:
		return m.theme.Selected.Render(line)
	case c.Hash == m.marked:
		return m.theme.Header.Render(line)
	case m.isFindMatch(i):
		return m.theme.BadgeTag.Render(line)
	}
	return line
}

func (m Model) isFindMatch(i int) bool {
	if !m.state.Find.Open {
		return false
	}
	for _, idx := range m.state.Find.Matches {
		if idx == i {
			return true
		}
	}
	return false
}

// refBadges renders the branch/remote/tag/stash decorations ahead of the
// commit message.
func (m Model) refBadges(c *model.Commit) string {
	var parts []string
	for _, h := range c.Heads {
		style := m.theme.BadgeBranch
		if h == m.state.Head {
			style = m.theme.BadgeHead
		}
		parts = append(parts, style.Render("("+h+")"))
	}
	for _, r := range c.Remotes {
		parts = append(parts, m.theme.BadgeRemote.Render("("+r.Name+")"))
	}
	for _, t := range c.Tags {
		parts = append(parts, m.theme.BadgeTag.Render("<"+t.Name+">"))
	}
	if c.Stash != nil {
		parts = append(parts, m.theme.BadgeStash.Render("{"+c.Stash.Selector+"}"))
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, " ") + " "
}

// --- expanded panel ----------------------------------------------------------

func (m Model) detailView() string {
	height := m.detailHeight() - 2 // border rows

	left, right := m.state.Repos.Get(m.state.CurrentRepo).Dividers()
	totalW := m.width - 6 // three borders' worth of padding
	leftW := int(float64(totalW) * left)
	midW := int(float64(totalW) * (right - left))
	rightW := totalW - leftW - midW

	summary := m.summaryPane(leftW, height)
	files := m.filesPane(midW, height)
	ai := m.aiPane(rightW, height)

	border := func(content string, w int, active bool) string {
		style := m.theme.PaneBorder.Width(w).Height(height)
		if active {
			style = style.BorderForeground(m.theme.Primary)
		}
		return style.Render(content)
	}

	focused := m.focused == focusDetail
	return lipgloss.JoinHorizontal(lipgloss.Top,
		border(summary, leftW, focused && m.activePane == paneSummary),
		border(files, midW, focused && m.activePane == paneFiles),
		border(ai, rightW, focused && m.activePane == paneAI),
	)
}

func (m Model) summaryPane(width, height int) string {
	e := m.state.Expanded
	var b strings.Builder

	if e.IsComparison() {
		b.WriteString(m.theme.PaneTitle.Render("Comparing") + "\n")
		b.WriteString(shortHash(e.Hash) + " → " + shortHash(e.CompareHash) + "\n")
		b.WriteString(m.theme.MutedText.Render(fmt.Sprintf("%d files changed", len(e.Changes))))
	} else if e.Loading || e.Details == nil {
		b.WriteString(m.theme.MutedText.Render("Loading..."))
	} else {
		d := e.Details
		b.WriteString(m.theme.PaneTitle.Render("Commit "+shortHash(d.Hash)) + "\n")
		if e.Avatar != "" {
			b.WriteString(m.theme.MutedText.Render(e.Avatar) + " ")
		}
		b.WriteString(d.Author + " <" + d.AuthorEmail + ">\n")
		b.WriteString(m.theme.MutedText.Render(absoluteTime(d.AuthorDate)) + "\n\n")
		b.WriteString(m.renderer.Render(d.Body))
	}

	return clipLines(b.String(), width, height, e.ScrollSummary)
}

func (m Model) filesPane(width, height int) string {
	e := m.state.Expanded
	rows := m.visibleTreeRows()

	title := "Files"
	if e.Review != nil {
		title = fmt.Sprintf("Files — review: %d left", len(e.Review.RemainingFiles))
	}
	var b strings.Builder
	b.WriteString(m.theme.PaneTitle.Render(title) + "\n")

	if e.Loading {
		b.WriteString(m.theme.MutedText.Render("Loading..."))
		return clipLines(b.String(), width, height, 0)
	}
	if len(rows) == 0 {
		b.WriteString(m.theme.MutedText.Render("No changes"))
		return clipLines(b.String(), width, height, 0)
	}

	visible := height - 1
	start := e.ScrollFiles
	if start > len(rows)-1 {
		start = len(rows) - 1
	}
	if start < 0 {
		start = 0
	}
	end := start + visible
	if end > len(rows) {
		end = len(rows)
	}

	for i := start; i < end; i++ {
		line := m.fileRow(rows[i])
		line = truncate(line, width)
		if m.focused == focusDetail && m.activePane == paneFiles && i == m.fileCursor {
			line = m.theme.Selected.Render(line)
		}
		b.WriteString(line)
		if i < end-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m Model) fileRow(row treeRow) string {
	indent := strings.Repeat("  ", row.Depth)
	node := row.Node
	if node == nil {
		return indent + row.Path
	}

	switch node.Type {
	case store.NodeFolder:
		arrow := "▸"
		if node.Open {
			arrow = "▾"
		}
		mark := ""
		if m.state.Expanded.Review != nil && node.Reviewed {
			mark = " " + m.theme.ReviewedMark.Render("✓")
		}
		return indent + arrow + " " + node.Name + "/" + mark

	case store.NodeRepo:
		return indent + "⌂ " + node.Name + m.theme.MutedText.Render(" (repository)")
	}

	change := m.state.Expanded.Changes[node.FileIndex]
	status := m.statusGlyph(change.Status)
	stats := ""
	if change.Additions > 0 || change.Deletions > 0 {
		stats = m.theme.MutedText.Render(fmt.Sprintf(" +%d/-%d", change.Additions, change.Deletions))
	}
	mark := ""
	if m.state.Expanded.Review != nil {
		if node.Reviewed {
			mark = " " + m.theme.ReviewedMark.Render("✓")
		} else {
			mark = " " + m.theme.MutedText.Render("·")
		}
	}
	return indent + status + " " + node.Name + stats + mark
}

func (m Model) statusGlyph(status model.FileStatus) string {
	switch status {
	case model.FileAdded:
		return m.theme.StatusAdd.Render("A")
	case model.FileDeleted:
		return m.theme.StatusDel.Render("D")
	case model.FileRenamed:
		return m.theme.StatusRen.Render("R")
	case model.FileUntracked:
		return m.theme.StatusUntrk.Render("U")
	default:
		return m.theme.StatusMod.Render("M")
	}
}

func (m Model) aiPane(width, height int) string {
	e := m.state.Expanded
	var b strings.Builder
	b.WriteString(m.theme.PaneTitle.Render("Analysis") + "\n")

	switch e.AI.Status {
	case store.AINone:
		b.WriteString(m.theme.MutedText.Render("Press a to analyze this commit."))
	case store.AILoading:
		p := e.AI.Progress
		if p.Total > 0 {
			b.WriteString(fmt.Sprintf("Analyzing... %d/%d\n", p.Current, p.Total))
			b.WriteString(m.theme.MutedText.Render(p.Phase))
		} else {
			b.WriteString("Analyzing...")
		}
	case store.AICompleted:
		b.WriteString(m.renderer.Render(e.AI.Summary))
	case store.AIErrored:
		p := PresentAIError(e.AI.ErrorKind)
		b.WriteString(p.Icon + " " + m.theme.ErrorText.Render(p.Title) + "\n")
		b.WriteString(m.theme.MutedText.Render(p.Suggestion))
	}

	return clipLines(b.String(), width, height, e.ScrollAI)
}

// --- overlays ------------------------------------------------------------------

func (m Model) branchPickerView() string {
	entries := m.branchEntries()
	var b strings.Builder
	b.WriteString(m.theme.Header.Render("Branches") + "\n\n")

	for i, entry := range entries {
		label := entry
		if entry == model.ShowAllBranches {
			label = "Show all branches"
		}
		mark := "[ ]"
		if containsString(m.branchPending, entry) {
			mark = "[x]"
		}
		head := "  "
		if entry == m.state.Head {
			head = m.theme.BadgeHead.Render("* ")
		}
		line := fmt.Sprintf("%s %s%s", mark, head, label)
		if i == m.branchCursor {
			line = m.theme.Selected.Render(line)
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\n" + m.theme.MutedText.Render("space toggle · enter apply · esc cancel"))
	return b.String()
}

func (m Model) tagPopupView() string {
	t := m.tagPopup
	var b strings.Builder
	b.WriteString(m.theme.Header.Render("Tag "+t.Name) + "\n\n")
	if t.TaggerName != "" {
		b.WriteString(t.TaggerName + " <" + t.TaggerEmail + ">\n")
		b.WriteString(m.theme.MutedText.Render(absoluteTime(t.TaggerDate)) + "\n\n")
		b.WriteString(t.Message + "\n")
	} else {
		b.WriteString(m.theme.MutedText.Render("Lightweight tag") + "\n")
	}
	b.WriteString("\n" + m.theme.MutedText.Render("object "+shortHash(t.Hash)))
	return b.String()
}

func (m Model) helpView() string {
	sections := []string{
		m.theme.Header.Render("gg — commit graph"),
		"",
		"  ↑/↓ j/k     move         enter   open commit",
		"  c           mark/compare backspc close comparison",
		"  b           branches     /       find",
		"  r / R       refresh      s       settings",
		"  m           load more    y       copy hash",
		"  n / N       branch/tag   x       checkout",
		"  f / p / P   fetch/pull/push",
		"  t           tag details  w       export SVG",
		"",
		m.theme.Header.Render("commit panel"),
		"",
		"  tab         switch pane  space   toggle reviewed",
		"  v / V       start/end code review",
		"  a           analyze      l       tree/list view",
		"  [ ] { }     move dividers",
		"",
		m.theme.MutedText.Render("press any key to close"),
	}
	return strings.Join(sections, "\n")
}

func (m Model) findBar() string {
	s := m.state
	pos := ""
	if len(s.Find.Matches) > 0 {
		pos = fmt.Sprintf(" %d/%d", s.Find.Position+1, len(s.Find.Matches))
	} else if s.Find.Text != "" {
		pos = " no matches"
	}
	caseFlag := ""
	if s.Find.CaseAware {
		caseFlag = " [Aa]"
	}
	return truncate(" find: "+m.findInput.View()+m.theme.MutedText.Render(pos+caseFlag), m.width)
}

func (m Model) footer() string {
	if m.status != "" {
		return truncate(m.theme.Header.Render(" "+m.status), m.width)
	}
	hint := " ? help · enter open · b branches · / find · q quit"
	return m.theme.MutedText.Render(truncate(hint, m.width))
}

// --- text helpers ----------------------------------------------------------------

// truncate cuts s to the given display width, ellipsized. ANSI-styled
// strings are measured by lipgloss; plain ones by runewidth.
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= width {
		return s
	}
	if strings.Contains(s, "\x1b") {
		// Styled: cut conservatively by visible width.
		return lipgloss.NewStyle().MaxWidth(width).Render(s)
	}
	return runewidth.Truncate(s, width, "…")
}

// padANSI pads a styled string with spaces up to the given display width.
func padANSI(s string, width int) string {
	gap := width - lipgloss.Width(s)
	if gap > 0 {
		return s + strings.Repeat(" ", gap)
	}
	return s
}

// clipLines windows a block of text to height lines starting at scroll,
// truncating each line to width.
func clipLines(text string, width, height, scroll int) string {
	lines := strings.Split(text, "\n")
	if scroll > len(lines)-1 {
		scroll = len(lines) - 1
	}
	if scroll < 0 {
		scroll = 0
	}
	end := scroll + height
	if end > len(lines) {
		end = len(lines)
	}
	out := make([]string, 0, end-scroll)
	for _, line := range lines[scroll:end] {
		out = append(out, truncate(line, width))
	}
	return strings.Join(out, "\n")
}

func relativeTime(unix int64) string {
	if unix == 0 {
		return ""
	}
	d := time.Since(time.Unix(unix, 0))
	switch {
	case d < time.Minute:
		return "now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 30*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	case d < 365*24*time.Hour:
		return fmt.Sprintf("%dmo ago", int(d.Hours()/(24*30)))
	default:
		return fmt.Sprintf("%dy ago", int(d.Hours()/(24*365)))
	}
}

func absoluteTime(unix int64) string {
	if unix == 0 {
		return ""
	}
	return time.Unix(unix, 0).Format("2006-01-02 15:04")
}
