package store

import "github.com/vanderheijden86/gitgraph/pkg/protocol"

// RefreshState tracks the one in-flight repo-info + commits refresh cycle.
// The sequence counters are restored from the persisted snapshot at startup
// so they stay monotonic across reloads.
type RefreshState struct {
	InFlight bool `json:"-"`

	// Hard forces a full commit-list clear even when a merged-in trigger
	// was soft. Flags of overlapping triggers OR together.
	Hard            bool `json:"-"`
	RepoInfoChanged bool `json:"-"`
	ConfigChanged   bool `json:"-"`

	RepoInfoSeq uint64 `json:"repoInfoSeq"`
	CommitsSeq  uint64 `json:"commitsSeq"`
}

// Coordinator serializes "load repository info, then load commits" as one
// logical operation, coalescing rapid repeated triggers into the active
// cycle and discarding responses whose sequence numbers have been
// superseded. Exactly one cycle is in flight at any time.
type Coordinator struct {
	state *ViewState

	// Send delivers a request to the backend; fire-and-forget.
	Send func(protocol.Request)

	// OnCommitsAccepted runs after an accepted commits response, carrying
	// whether repo info materially changed during the cycle. The UI uses it
	// to close or refresh dialogs and context menus whose data source is
	// the dynamic commit list.
	OnCommitsAccepted func(repoInfoChanged bool)

	// OnError surfaces a recoverable load failure with a retry affordance.
	OnError func(message string)
}

// NewCoordinator wires a coordinator to the store.
func NewCoordinator(state *ViewState, send func(protocol.Request)) *Coordinator {
	return &Coordinator{state: state, Send: send}
}

// RequestRefresh starts a refresh cycle, or merges the trigger into the
// cycle already in flight. Merging ORs the hard and config-changed flags;
// if repo info is not being skipped the in-flight commits response (if any)
// is invalidated by advancing the commits sequence number and a fresh
// repo-info request is issued so the new cycle's data wins.
func (c *Coordinator) RequestRefresh(hard, skipRepoInfo, configChanged bool) {
	rs := &c.state.Refresh

	if rs.InFlight {
		if hard && !rs.Hard {
			c.state.ClearCommits()
		}
		rs.Hard = rs.Hard || hard
		rs.ConfigChanged = rs.ConfigChanged || configChanged
		if !skipRepoInfo {
			// Supersede the in-flight commits phase: its response will no
			// longer match the live counter and gets dropped on arrival.
			rs.CommitsSeq++
			c.sendRepoInfo()
		}
		return
	}

	rs.InFlight = true
	rs.Hard = hard
	rs.ConfigChanged = configChanged
	rs.RepoInfoChanged = false

	if c.state.Refresh.Hard {
		c.state.ClearCommits()
	}

	if skipRepoInfo {
		c.sendCommits()
	} else {
		c.sendRepoInfo()
	}
}

func (c *Coordinator) sendRepoInfo() {
	s := c.state
	s.Refresh.RepoInfoSeq++
	prefs := s.Repos.Get(s.CurrentRepo)
	c.Send(protocol.LoadRepoInfoRequest{
		RepoTag:            protocol.RepoTag{Repo: s.CurrentRepo},
		Seq:                s.Refresh.RepoInfoSeq,
		ShowRemoteBranches: s.EffectiveShowRemoteBranches(),
		HiddenRemotes:      prefs.HiddenRemotes,
		ShowStashes:        s.EffectiveShowStashes(),
	})
}

func (c *Coordinator) sendCommits() {
	s := c.state
	s.Refresh.CommitsSeq++
	prefs := s.Repos.Get(s.CurrentRepo)
	c.Send(protocol.LoadCommitsRequest{
		RepoTag:            protocol.RepoTag{Repo: s.CurrentRepo},
		Seq:                s.Refresh.CommitsSeq,
		Branches:           s.commitLoadBranches(),
		MaxCommits:         s.MaxCommits,
		ShowTags:           s.EffectiveShowTags(),
		ShowRemoteBranches: s.EffectiveShowRemoteBranches(),
		IncludeReflog:      s.IncludeReflog,
		FirstParentOnly:    s.EffectiveFirstParentOnly(),
		Ordering:           s.EffectiveOrdering(),
		HiddenRemotes:      prefs.HiddenRemotes,
		Stashes:            s.Stashes,
	})
}

// HandleRepoInfo applies a repo-info response. It is accepted only when a
// refresh is in flight, the response targets the current repository, and
// its sequence number equals the live counter; anything else is silently
// dropped as superseded. Acceptance chains the commits request: commit
// loading depends on branch selection and remote filters resolved here.
func (c *Coordinator) HandleRepoInfo(resp protocol.RepoInfoResponse) bool {
	rs := &c.state.Refresh
	if !rs.InFlight || resp.Repo != c.state.CurrentRepo || resp.Seq != rs.RepoInfoSeq {
		return false
	}

	if resp.Error != "" {
		c.fail(resp.Error)
		return true
	}

	changed := c.state.LoadRepoInfo(resp.Branches, resp.Head, resp.Remotes, resp.Stashes, rs.Hard)
	if changed {
		rs.RepoInfoChanged = true
	}
	c.sendCommits()
	return true
}

// HandleCommits applies a commits response under the same acceptance rules
// as HandleRepoInfo, then finishes the cycle.
func (c *Coordinator) HandleCommits(resp protocol.CommitsResponse) bool {
	rs := &c.state.Refresh
	if !rs.InFlight || resp.Repo != c.state.CurrentRepo || resp.Seq != rs.CommitsSeq {
		return false
	}

	if resp.Error != "" {
		c.fail(resp.Error)
		return true
	}

	c.state.LoadCommits(resp.Commits, resp.Head, resp.Tags, resp.MoreAvailable, rs.Hard)

	repoInfoChanged := rs.RepoInfoChanged
	configChanged := rs.ConfigChanged
	rs.InFlight = false
	rs.Hard = false
	rs.RepoInfoChanged = false
	rs.ConfigChanged = false

	if c.OnCommitsAccepted != nil {
		c.OnCommitsAccepted(repoInfoChanged)
	}
	if configChanged {
		c.Send(protocol.LoadConfigRequest{RepoTag: protocol.RepoTag{Repo: c.state.CurrentRepo}})
	}
	return true
}

// fail aborts the cycle: in-flight cleared, commit list cleared, and the
// error surfaced with a retry affordance. Retry re-invokes a hard refresh.
func (c *Coordinator) fail(message string) {
	rs := &c.state.Refresh
	rs.InFlight = false
	rs.Hard = false
	rs.RepoInfoChanged = false
	rs.ConfigChanged = false
	c.state.ClearCommits()
	if c.OnError != nil {
		c.OnError(message)
	}
}

// Retry restarts a failed refresh as a hard cycle.
func (c *Coordinator) Retry() {
	c.RequestRefresh(true, false, false)
}
