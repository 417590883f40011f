package backend

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/vanderheijden86/gitgraph/pkg/model"
	"github.com/vanderheijden86/gitgraph/pkg/protocol"
)

// maxAnalyzedFiles caps how many files the analyzer inspects; beyond this
// the summary covers the largest changes only.
const maxAnalyzedFiles = 50

// analysisTimeout bounds one analysis run end to end.
const analysisTimeout = 30 * time.Second

// runAIAnalysis executes the commit analysis asynchronously and streams
// lifecycle pushes (loading, progress, completed/errored) tagged with the
// request's hash pair. The client drops pushes whose pair no longer matches
// its expanded panel, so no cancellation plumbing is needed here.
func (s *Service) runAIAnalysis(ctx context.Context, req protocol.AIAnalysisRequest) {
	push := func(u protocol.AIAnalysisUpdate) {
		u.Repo = req.Repo
		u.Hash = req.Hash
		u.CompareHash = req.CompareHash
		s.send(u)
	}

	push(protocol.AIAnalysisUpdate{Status: protocol.AILoading})

	if !s.cfg.AI.Enabled {
		push(protocol.AIAnalysisUpdate{Status: protocol.AIErrored, ErrorKind: model.AIErrDisabled})
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(ctx, analysisTimeout)
		defer cancel()

		summary, errKind := s.analyze(ctx, req)
		if errKind != "" {
			push(protocol.AIAnalysisUpdate{Status: protocol.AIErrored, ErrorKind: errKind})
			return
		}
		push(protocol.AIAnalysisUpdate{Status: protocol.AICompleted, Summary: summary})
	}()
}

// analyze builds a change-shape summary of the commit or comparison. It is a
// local heuristic analyzer: it classifies the changed files, measures churn,
// and renders a markdown digest. Progress pushes are emitted per inspected
// file so the panel's progress bar moves on large commits.
func (s *Service) analyze(ctx context.Context, req protocol.AIAnalysisRequest) (string, model.AIErrorKind) {
	changes, title, errKind := s.analysisChanges(req)
	if errKind != "" {
		return "", errKind
	}
	if len(changes) == 0 {
		return "", model.AIErrNoReadableFiles
	}

	sort.Slice(changes, func(i, j int) bool {
		return changes[i].Additions+changes[i].Deletions > changes[j].Additions+changes[j].Deletions
	})
	if len(changes) > maxAnalyzedFiles {
		changes = changes[:maxAnalyzedFiles]
	}

	push := func(i int, phase string) {
		s.send(protocol.AIAnalysisUpdate{
			Repo:        req.Repo,
			Hash:        req.Hash,
			CompareHash: req.CompareHash,
			Status:      protocol.AIProgress,
			Progress:    model.AIProgress{Current: i, Total: len(changes), Phase: phase},
		})
	}

	byExt := make(map[string]int)
	adds, dels := 0, 0
	var hotspots []string
	for i, ch := range changes {
		select {
		case <-ctx.Done():
			return "", model.AIErrTimeout
		default:
		}
		push(i+1, "inspecting "+ch.Path())

		byExt[fileKind(ch.Path())]++
		adds += ch.Additions
		dels += ch.Deletions
		if len(hotspots) < 5 && ch.Additions+ch.Deletions > 0 {
			hotspots = append(hotspots, fmt.Sprintf("`%s` (+%d/-%d)", ch.Path(), ch.Additions, ch.Deletions))
		}
	}

	var kinds []string
	for k := range byExt {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return byExt[kinds[i]] > byExt[kinds[j]] })

	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", title)
	fmt.Fprintf(&b, "%d files changed, **+%d / -%d** lines.\n\n", len(changes), adds, dels)
	if len(kinds) > 0 {
		b.WriteString("Touched areas: ")
		for i, k := range kinds {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s (%d)", k, byExt[k])
		}
		b.WriteString(".\n\n")
	}
	if len(hotspots) > 0 {
		b.WriteString("Largest changes:\n")
		for _, h := range hotspots {
			b.WriteString("- " + h + "\n")
		}
	}
	return b.String(), ""
}

// analysisChanges resolves the file changes the analysis covers: a
// comparison when CompareHash is set, the single commit otherwise.
func (s *Service) analysisChanges(req protocol.AIAnalysisRequest) ([]model.FileChange, string, model.AIErrorKind) {
	repo, err := gogit.PlainOpen(req.Repo)
	if err != nil {
		return nil, "", model.AIErrExtractionFailed
	}

	if req.CompareHash != "" {
		cmp := s.compareCommits(protocol.CompareCommitsRequest{
			RepoTag:  protocol.RepoTag{Repo: req.Repo},
			FromHash: req.Hash,
			ToHash:   req.CompareHash,
		})
		if cmp.Error != "" {
			return nil, "", model.AIErrExtractionFailed
		}
		title := fmt.Sprintf("Comparison %s..%s", shortHash(req.Hash), shortHash(req.CompareHash))
		return cmp.Changes, title, ""
	}

	if req.Hash == model.UncommittedHash {
		changes, err := worktreeChanges(repo)
		if err != nil {
			return nil, "", model.AIErrExtractionFailed
		}
		return changes, "Uncommitted Changes", ""
	}

	commit, err := repo.CommitObject(plumbing.NewHash(req.Hash))
	if err != nil {
		return nil, "", model.AIErrExtractionFailed
	}
	changes, err := commitFileChanges(repo, commit)
	if err != nil {
		return nil, "", model.AIErrAnalysisFailed
	}
	return changes, fmt.Sprintf("Commit %s: %s", shortHash(req.Hash), summaryLine(commit.Message)), ""
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

// fileKind buckets a path for the touched-areas digest: its top-level
// directory, or its extension for root-level files.
func fileKind(path string) string {
	if i := strings.IndexByte(path, '/'); i > 0 {
		return path[:i] + "/"
	}
	if i := strings.LastIndexByte(path, '.'); i > 0 {
		return "*" + path[i:]
	}
	return path
}
