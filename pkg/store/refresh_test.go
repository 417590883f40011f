package store

import (
	"testing"

	"github.com/vanderheijden86/gitgraph/pkg/model"
	"github.com/vanderheijden86/gitgraph/pkg/protocol"
)

type requestLog struct {
	reqs []protocol.Request
}

func (l *requestLog) send(r protocol.Request) { l.reqs = append(l.reqs, r) }

func (l *requestLog) last() protocol.Request {
	if len(l.reqs) == 0 {
		return nil
	}
	return l.reqs[len(l.reqs)-1]
}

func testCoordinator() (*ViewState, *Coordinator, *requestLog) {
	s := testState()
	log := &requestLog{}
	return s, NewCoordinator(s, log.send), log
}

func TestRefreshCycle_Basic(t *testing.T) {
	s, c, log := testCoordinator()

	var accepted bool
	c.OnCommitsAccepted = func(bool) { accepted = true }

	c.RequestRefresh(false, false, false)
	info, ok := log.last().(protocol.LoadRepoInfoRequest)
	if !ok {
		t.Fatalf("expected repo-info request first, got %T", log.last())
	}
	if info.Seq != 1 {
		t.Errorf("expected first repo-info seq 1, got %d", info.Seq)
	}

	if !c.HandleRepoInfo(protocol.RepoInfoResponse{
		Repo: "/repo", Seq: info.Seq, Branches: []string{"main"}, Head: "main",
	}) {
		t.Fatal("expected repo-info accepted")
	}
	commitsReq, ok := log.last().(protocol.LoadCommitsRequest)
	if !ok {
		t.Fatalf("expected chained commits request, got %T", log.last())
	}

	if !c.HandleCommits(protocol.CommitsResponse{
		Repo: "/repo", Seq: commitsReq.Seq,
		Commits: []model.Commit{commit("c1")}, Head: "c1",
	}) {
		t.Fatal("expected commits accepted")
	}
	if !accepted {
		t.Error("expected OnCommitsAccepted callback")
	}
	if s.Refresh.InFlight {
		t.Error("expected cycle finished")
	}
	if len(s.Commits) != 1 || s.Commits[0].Hash != "c1" {
		t.Errorf("expected commits applied, got %v", s.Commits)
	}
}

func TestRefreshCycle_SequenceMonotonic(t *testing.T) {
	_, c, log := testCoordinator()

	var infoSeqs, commitSeqs []uint64
	for i := 0; i < 3; i++ {
		c.RequestRefresh(false, false, false)
		info := log.last().(protocol.LoadRepoInfoRequest)
		infoSeqs = append(infoSeqs, info.Seq)
		c.HandleRepoInfo(protocol.RepoInfoResponse{Repo: "/repo", Seq: info.Seq})
		cr := log.last().(protocol.LoadCommitsRequest)
		commitSeqs = append(commitSeqs, cr.Seq)
		c.HandleCommits(protocol.CommitsResponse{Repo: "/repo", Seq: cr.Seq})
	}

	for i := 1; i < len(infoSeqs); i++ {
		if infoSeqs[i] <= infoSeqs[i-1] {
			t.Errorf("repo-info seqs not strictly increasing: %v", infoSeqs)
		}
		if commitSeqs[i] <= commitSeqs[i-1] {
			t.Errorf("commits seqs not strictly increasing: %v", commitSeqs)
		}
	}
}

func TestStaleCommitsResponseDiscarded(t *testing.T) {
	s, c, log := testCoordinator()

	c.RequestRefresh(false, false, false)
	info1 := log.last().(protocol.LoadRepoInfoRequest)
	c.HandleRepoInfo(protocol.RepoInfoResponse{Repo: "/repo", Seq: info1.Seq, Branches: []string{"main"}, Head: "main"})
	stale := log.last().(protocol.LoadCommitsRequest)

	// A second trigger merges into the cycle and supersedes the in-flight
	// commits phase.
	c.RequestRefresh(false, false, false)
	info2 := log.last().(protocol.LoadRepoInfoRequest)

	if c.HandleCommits(protocol.CommitsResponse{
		Repo: "/repo", Seq: stale.Seq,
		Commits: []model.Commit{commit("stale")}, Head: "stale",
	}) {
		t.Fatal("expected superseded commits response to be dropped")
	}
	if len(s.Commits) != 0 {
		t.Errorf("expected no commits applied from stale response, got %v", s.Commits)
	}

	c.HandleRepoInfo(protocol.RepoInfoResponse{Repo: "/repo", Seq: info2.Seq, Branches: []string{"main"}, Head: "main"})
	live := log.last().(protocol.LoadCommitsRequest)
	if live.Seq <= stale.Seq {
		t.Fatalf("expected live seq %d > stale seq %d", live.Seq, stale.Seq)
	}

	if !c.HandleCommits(protocol.CommitsResponse{
		Repo: "/repo", Seq: live.Seq,
		Commits: []model.Commit{commit("fresh")}, Head: "fresh",
	}) {
		t.Fatal("expected live commits response accepted")
	}
	if len(s.Commits) != 1 || s.Commits[0].Hash != "fresh" {
		t.Errorf("expected fresh commits applied, got %v", s.Commits)
	}
}

func TestStaleRepoInfoDiscarded(t *testing.T) {
	_, c, log := testCoordinator()

	c.RequestRefresh(false, false, false)
	old := log.last().(protocol.LoadRepoInfoRequest)
	c.RequestRefresh(false, false, false) // merge, advances repo-info seq

	if c.HandleRepoInfo(protocol.RepoInfoResponse{Repo: "/repo", Seq: old.Seq}) {
		t.Error("expected superseded repo-info response to be dropped")
	}
}

func TestResponseForOtherRepoDropped(t *testing.T) {
	_, c, log := testCoordinator()
	c.RequestRefresh(false, false, false)
	info := log.last().(protocol.LoadRepoInfoRequest)

	if c.HandleRepoInfo(protocol.RepoInfoResponse{Repo: "/elsewhere", Seq: info.Seq}) {
		t.Error("expected response for another repo to be dropped")
	}
}

func TestResponseWithoutCycleDropped(t *testing.T) {
	_, c, _ := testCoordinator()
	if c.HandleCommits(protocol.CommitsResponse{Repo: "/repo", Seq: 1}) {
		t.Error("expected commits response without in-flight cycle to be dropped")
	}
}

func TestSkipRepoInfo_SendsCommitsDirectly(t *testing.T) {
	_, c, log := testCoordinator()
	c.RequestRefresh(false, true, false)
	if _, ok := log.last().(protocol.LoadCommitsRequest); !ok {
		t.Fatalf("expected commits request, got %T", log.last())
	}
}

func TestHardRefreshClearsCommits(t *testing.T) {
	s, c, _ := testCoordinator()
	s.LoadCommits([]model.Commit{commit("c1")}, "c1", nil, false, true)

	c.RequestRefresh(true, false, false)
	if len(s.Commits) != 0 {
		t.Error("expected commit window cleared on hard refresh")
	}
}

func TestMergedHardTriggerClearsCommits(t *testing.T) {
	s, c, _ := testCoordinator()
	s.LoadCommits([]model.Commit{commit("c1")}, "c1", nil, false, true)

	c.RequestRefresh(false, false, false)
	if len(s.Commits) != 1 {
		t.Fatal("soft refresh must not clear commits")
	}
	c.RequestRefresh(true, false, false)
	if len(s.Commits) != 0 {
		t.Error("expected merged hard trigger to clear commits")
	}
}

func TestFailedCycleSurfacesError(t *testing.T) {
	s, c, log := testCoordinator()
	s.LoadCommits([]model.Commit{commit("c1")}, "c1", nil, false, true)

	var gotErr string
	c.OnError = func(msg string) { gotErr = msg }

	c.RequestRefresh(false, false, false)
	info := log.last().(protocol.LoadRepoInfoRequest)
	if !c.HandleRepoInfo(protocol.RepoInfoResponse{Repo: "/repo", Seq: info.Seq, Error: "not a repository"}) {
		t.Fatal("expected error response consumed")
	}
	if gotErr != "not a repository" {
		t.Errorf("expected error surfaced, got %q", gotErr)
	}
	if s.Refresh.InFlight {
		t.Error("expected cycle aborted")
	}
	if len(s.Commits) != 0 {
		t.Error("expected commits cleared on failure")
	}

	// Retry restarts as a hard cycle.
	c.Retry()
	if !s.Refresh.InFlight {
		t.Error("expected retry to start a cycle")
	}
	if _, ok := log.last().(protocol.LoadRepoInfoRequest); !ok {
		t.Errorf("expected retry to begin with repo info, got %T", log.last())
	}
}

func TestConfigChangedChainsConfigRequest(t *testing.T) {
	_, c, log := testCoordinator()

	c.RequestRefresh(false, false, true)
	info := log.last().(protocol.LoadRepoInfoRequest)
	c.HandleRepoInfo(protocol.RepoInfoResponse{Repo: "/repo", Seq: info.Seq})
	cr := log.last().(protocol.LoadCommitsRequest)
	c.HandleCommits(protocol.CommitsResponse{Repo: "/repo", Seq: cr.Seq})

	if _, ok := log.last().(protocol.LoadConfigRequest); !ok {
		t.Errorf("expected chained config request, got %T", log.last())
	}
}

func TestOnCommitsAccepted_ReportsRepoInfoChange(t *testing.T) {
	_, c, log := testCoordinator()

	var changed []bool
	c.OnCommitsAccepted = func(infoChanged bool) { changed = append(changed, infoChanged) }

	run := func(branches []string) {
		c.RequestRefresh(false, false, false)
		info := log.last().(protocol.LoadRepoInfoRequest)
		c.HandleRepoInfo(protocol.RepoInfoResponse{Repo: "/repo", Seq: info.Seq, Branches: branches, Head: "main"})
		cr := log.last().(protocol.LoadCommitsRequest)
		c.HandleCommits(protocol.CommitsResponse{Repo: "/repo", Seq: cr.Seq})
	}

	run([]string{"main"})         // first load: info changes
	run([]string{"main"})         // identical: short-circuit
	run([]string{"main", "dev"}) // changed again

	want := []bool{true, false, true}
	for i := range want {
		if i >= len(changed) || changed[i] != want[i] {
			t.Fatalf("repoInfoChanged sequence = %v, want %v", changed, want)
		}
	}
}
