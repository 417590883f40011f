// Package ui is the terminal front end: a Bubble Tea program whose model
// wraps the view-state store, translates key and mouse input into store
// mutations plus backend requests, and reconciles asynchronous backend
// responses through a kind-keyed dispatch table.
package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/gitgraph/pkg/graph"
	"github.com/vanderheijden86/gitgraph/pkg/model"
	"github.com/vanderheijden86/gitgraph/pkg/protocol"
	"github.com/vanderheijden86/gitgraph/pkg/store"
)

// Backend is the request sink the UI submits to. Satisfied by
// backend.Service; tests substitute a recorder.
type Backend interface {
	Submit(protocol.Request)
}

// focus represents which UI element has keyboard focus.
type focus int

const (
	focusTable focus = iota
	focusBranches
	focusDetail
	focusFind
)

// detailPane indexes the three regions of the expanded commit panel.
type detailPane int

const (
	paneSummary detailPane = iota
	paneFiles
	paneAI
)

// RefreshMsg asks the UI to run a refresh cycle. The repository watcher and
// external triggers send it through the program.
type RefreshMsg struct {
	Hard bool
}

// statusExpiredMsg clears a transient status-bar message.
type statusExpiredMsg struct {
	id int
}

// statusDisplayDuration is how long transient status messages stay visible.
const statusDisplayDuration = 3 * time.Second

// cycleEvents carries per-cycle facts from the coordinator callbacks to the
// response handler on the same UI turn. The coordinator clears its own flags
// before returning, so the model records them here.
type cycleEvents struct {
	commitsAccepted bool
	repoInfoChanged bool
}

// Model is the Bubble Tea model. All mutation happens on the UI event loop;
// the store is shared by pointer and never accessed from other goroutines.
type Model struct {
	state     *store.ViewState
	coord     *store.Coordinator
	backend   Backend
	persister *store.Persister
	events    *cycleEvents

	theme    Theme
	graph    *graph.Graph
	renderer *MarkdownRenderer

	width  int
	height int
	ready  bool

	focused    focus
	cursor     int    // selected commit row
	marked     string // comparison mark, "" when none
	activePane detailPane
	fileCursor int // index into visibleTreeRows

	branchCursor  int
	branchPending []string // picker selection being edited

	findInput textinput.Model

	dialog   *dialogState
	tagPopup *model.TagDetails
	showHelp bool

	status   string
	statusID int
}

// New builds the program model around an existing store. The caller is
// expected to have restored the snapshot already.
func New(state *store.ViewState, backend Backend, persister *store.Persister) Model {
	theme := DefaultTheme(lipgloss.DefaultRenderer())

	events := &cycleEvents{}
	coord := store.NewCoordinator(state, backend.Submit)
	coord.OnCommitsAccepted = func(repoInfoChanged bool) {
		events.commitsAccepted = true
		events.repoInfoChanged = repoInfoChanged
	}
	coord.OnError = func(message string) {
		state.LastError = message
	}

	state.SetPersistHook(func() {
		_ = persister.Save(state.Snapshot())
	})

	find := textinput.New()
	find.Placeholder = "find commits"
	find.CharLimit = 120

	m := Model{
		state:     state,
		coord:     coord,
		backend:   backend,
		persister: persister,
		events:    events,
		theme:     theme,
		graph:     graph.New(theme.GraphPalette),
		renderer:  NewMarkdownRenderer(80),
		findInput: find,
	}
	m.reloadGraph()
	return m
}

// Init kicks off repository discovery.
func (m Model) Init() tea.Cmd {
	m.backend.Submit(protocol.LoadReposRequest{})
	return textinput.Blink
}

// Update is the event loop.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.renderer = NewMarkdownRenderer(m.summaryPaneWidth())
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case RefreshMsg:
		m.coord.RequestRefresh(msg.Hard, false, false)
		// A dirty working tree mutates the expanded sentinel's content
		// without changing any hash, so the open panel refreshes in place.
		if req := m.state.ExpandedRefreshRequest(); req != nil {
			m.backend.Submit(req)
		}
		return m, nil

	case statusExpiredMsg:
		if msg.id == m.statusID {
			m.status = ""
		}
		return m, nil

	case protocol.Response:
		return m.handleResponse(msg)
	}

	if m.dialog != nil {
		return m.updateDialog(msg)
	}
	return m, nil
}

// responseHandlers dispatches backend responses by kind. The table's
// exhaustiveness against protocol.AllResponseKinds is asserted in tests.
var responseHandlers = map[string]func(Model, protocol.Response) (Model, tea.Cmd){
	protocol.KindRepos:         handleRepos,
	protocol.KindRepoInfo:      handleRepoInfo,
	protocol.KindCommits:       handleCommits,
	protocol.KindConfig:        handleConfig,
	protocol.KindCommitDetails: handleCommitDetails,
	protocol.KindComparison:    handleComparison,
	protocol.KindTagDetails:    handleTagDetails,
	protocol.KindAvatar:        handleAvatar,
	protocol.KindActionDone:    handleActionDone,
	protocol.KindAIUpdate:      handleAIUpdate,
}

func (m Model) handleResponse(resp protocol.Response) (tea.Model, tea.Cmd) {
	handler, ok := responseHandlers[resp.Kind()]
	if !ok {
		return m, nil
	}
	next, cmd := handler(m, resp)
	return next, cmd
}

func handleRepos(m Model, r protocol.Response) (Model, tea.Cmd) {
	resp := r.(protocol.ReposResponse)
	switched := m.state.LoadRepos(resp.Repos, resp.LastActiveRepo, resp.NavigateToRepo)
	needConfig := m.state.RepoConfig == nil
	if switched {
		m.cursor = 0
		m.marked = ""
		m.coord.RequestRefresh(true, false, true)
	} else if m.state.CurrentRepo != "" {
		m.coord.RequestRefresh(false, false, needConfig)
	}
	return m, nil
}

func handleRepoInfo(m Model, r protocol.Response) (Model, tea.Cmd) {
	resp := r.(protocol.RepoInfoResponse)
	m.coord.HandleRepoInfo(resp)
	return m, nil
}

func handleCommits(m Model, r protocol.Response) (Model, tea.Cmd) {
	resp := r.(protocol.CommitsResponse)
	m.events.commitsAccepted = false
	m.events.repoInfoChanged = false
	if !m.coord.HandleCommits(resp) {
		return m, nil
	}
	if m.events.commitsAccepted {
		m.reloadGraph()
		m.clampCursor()
		if m.state.Find.Open {
			m.state.UpdateFindMatches()
		}
		if m.events.repoInfoChanged && m.focused == focusBranches {
			// The picker's data source changed under it; rebuild the
			// pending selection from the store.
			m.branchPending = append([]string(nil), m.state.SelectedBranches...)
			m.branchCursor = 0
		}
		if req := m.state.ExpandedRefreshRequest(); req != nil {
			m.backend.Submit(req)
		}
	}
	return m, nil
}

func handleConfig(m Model, r protocol.Response) (Model, tea.Cmd) {
	resp := r.(protocol.ConfigResponse)
	if resp.Repo != m.state.CurrentRepo || resp.Error != "" {
		return m, nil
	}
	m.state.LoadRepoConfig(resp.Config)
	return m, nil
}

func handleCommitDetails(m Model, r protocol.Response) (Model, tea.Cmd) {
	resp := r.(protocol.CommitDetailsResponse)
	if resp.Repo != m.state.CurrentRepo {
		return m, nil
	}
	if resp.Error != "" {
		m.state.CloseExpanded(true)
		return m.setStatus("Cannot load commit: " + resp.Error)
	}
	if !m.state.ApplyCommitDetails(resp.Hash, resp.Details) {
		return m, nil
	}
	m.fileCursor = 0
	if resp.Review != nil {
		m.state.RestoreCodeReview(resp.Review)
	}
	if cmd := m.requestAvatar(resp.Details.AuthorEmail); cmd != nil {
		return m, cmd
	}
	return m, nil
}

func handleComparison(m Model, r protocol.Response) (Model, tea.Cmd) {
	resp := r.(protocol.ComparisonResponse)
	if resp.Repo != m.state.CurrentRepo {
		return m, nil
	}
	if resp.Error != "" {
		m.state.CloseExpanded(true)
		return m.setStatus("Cannot compare commits: " + resp.Error)
	}
	if !m.state.ApplyComparison(resp.FromHash, resp.ToHash, resp.Changes) {
		return m, nil
	}
	m.fileCursor = 0
	if resp.Review != nil {
		m.state.RestoreCodeReview(resp.Review)
	}
	return m, nil
}

func handleTagDetails(m Model, r protocol.Response) (Model, tea.Cmd) {
	resp := r.(protocol.TagDetailsResponse)
	if resp.Repo != m.state.CurrentRepo {
		return m, nil
	}
	if resp.Error != "" {
		return m.setStatus("Cannot load tag: " + resp.Error)
	}
	m.tagPopup = resp.Details
	return m, nil
}

func handleAvatar(m Model, r protocol.Response) (Model, tea.Cmd) {
	resp := r.(protocol.AvatarResponse)
	m.state.LoadAvatar(resp.Email, resp.Image)
	if e := m.state.Expanded; e != nil && e.Details != nil && e.Details.AuthorEmail == resp.Email {
		e.Avatar = resp.Image
	}
	return m, nil
}

func handleActionDone(m Model, r protocol.Response) (Model, tea.Cmd) {
	resp := r.(protocol.ActionDoneResponse)
	if resp.Error != "" {
		return m.setStatus(fmt.Sprintf("%s failed: %s", resp.Action, resp.Error))
	}
	if resp.Repo == m.state.CurrentRepo && mutatesRepo(resp.Action) {
		m.coord.RequestRefresh(false, false, false)
	}
	return m, nil
}

// mutatesRepo reports whether a completed action can have changed the
// commit graph and therefore warrants a refresh.
func mutatesRepo(action protocol.ActionKind) bool {
	switch action {
	case "copy", "open-url", "open-terminal", "view-diff", "open-file", "file-history":
		return false
	}
	return true
}

func handleAIUpdate(m Model, r protocol.Response) (Model, tea.Cmd) {
	resp := r.(protocol.AIAnalysisUpdate)
	if resp.Repo != m.state.CurrentRepo {
		return m, nil
	}
	m.state.ApplyAIUpdate(resp)
	return m, nil
}

// --- shared helpers ---------------------------------------------------------

// reloadGraph re-lays-out the lane geometry from the current commit window.
func (m *Model) reloadGraph() {
	s := m.state
	index := make(map[string]int, len(s.Commits))
	for i := range s.Commits {
		index[s.Commits[i].Hash] = i
	}
	m.graph.LoadCommits(s.Commits, s.CommitHead, index, s.LinearHistory())
}

func (m *Model) clampCursor() {
	if m.cursor >= len(m.state.Commits) {
		m.cursor = len(m.state.Commits) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.marked != "" && m.state.CommitIndex(m.marked) < 0 {
		m.marked = ""
	}
	m.ensureCursorVisible()
}

// ensureCursorVisible adjusts the scroll offset so the cursor row is inside
// the table viewport, persisting the scroll change debounced.
func (m *Model) ensureCursorVisible() {
	visible := m.tableHeight()
	if visible <= 0 {
		return
	}
	top := m.state.ScrollTop
	switch {
	case m.cursor < top:
		top = m.cursor
	case m.cursor >= top+visible:
		top = m.cursor - visible + 1
	default:
		return
	}
	m.state.SetScrollTop(top)
	m.persister.SaveScrollDebounced(m.state.Snapshot())
}

func (m Model) setStatus(text string) (Model, tea.Cmd) {
	m.status = text
	m.statusID++
	id := m.statusID
	return m, tea.Tick(statusDisplayDuration, func(time.Time) tea.Msg {
		return statusExpiredMsg{id: id}
	})
}

// requestAvatar asks the backend for an uncached avatar when fetching is
// enabled.
func (m Model) requestAvatar(email string) tea.Cmd {
	if email == "" || !m.state.Config().UI.FetchAvatars {
		return nil
	}
	if img, ok := m.state.AvatarCache[email]; ok {
		if e := m.state.Expanded; e != nil {
			e.Avatar = img
		}
		return nil
	}
	m.backend.Submit(protocol.AvatarRequest{
		RepoTag: protocol.RepoTag{Repo: m.state.CurrentRepo},
		Email:   email,
	})
	return nil
}

// mirrorPrefs sends the current repository's preferences to the backend as
// an opaque durability patch.
func (m Model) mirrorPrefs() {
	prefs := m.state.Repos.Get(m.state.CurrentRepo)
	data, err := json.Marshal(prefs)
	if err != nil {
		return
	}
	m.backend.Submit(protocol.SetRepoPrefsRequest{
		RepoTag: protocol.RepoTag{Repo: m.state.CurrentRepo},
		Prefs:   data,
	})
}

// treeRow is one visible row of the expanded panel's file region: either a
// tree node at a depth, or a flat list entry.
type treeRow struct {
	Path  string
	Node  *store.FileNode
	Depth int
}

// visibleTreeRows flattens the expanded panel's file region into addressable
// rows, honoring folder open flags (tree mode) or the flat change list
// (list mode).
func (m Model) visibleTreeRows() []treeRow {
	e := m.state.Expanded
	if e == nil {
		return nil
	}

	prefs := m.state.Repos.Get(m.state.CurrentRepo)
	if prefs.FileViewType == model.FileViewList || e.Tree == nil {
		rows := make([]treeRow, 0, len(e.Changes))
		for i := range e.Changes {
			path := e.Changes[i].Path()
			rows = append(rows, treeRow{Path: path, Node: store.FindFileNode(e.Tree, path)})
		}
		return rows
	}

	var rows []treeRow
	var walk func(node *store.FileNode, prefix string, depth int)
	walk = func(node *store.FileNode, prefix string, depth int) {
		for _, name := range node.SortedChildNames() {
			child := node.Children[name]
			path := name
			if prefix != "" {
				path = prefix + "/" + name
			}
			rows = append(rows, treeRow{Path: path, Node: child, Depth: depth})
			if child.Type == store.NodeFolder && child.Open {
				walk(child, path, depth+1)
			}
		}
	}
	walk(e.Tree, "", 0)
	return rows
}
