// Package backend executes version-control queries and actions for the UI.
// It consumes fire-and-forget protocol requests from a channel and delivers
// responses asynchronously through a send function (typically
// tea.Program.Send), so the UI never blocks on git work. Query results are
// cheap, idempotent reads: a response the client has since superseded is
// simply discarded on the client side, and any wasted backend work is
// acceptable by design.
package backend

import (
	"context"
	"errors"
	"log"
	"os"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/gitgraph/internal/reviewdb"
	"github.com/vanderheijden86/gitgraph/pkg/config"
	"github.com/vanderheijden86/gitgraph/pkg/model"
	"github.com/vanderheijden86/gitgraph/pkg/protocol"
)

// requestBuffer bounds the pending request queue. The UI issues requests in
// small bursts; a full buffer simply back-pressures the event loop.
const requestBuffer = 64

// Service is the asynchronous git backend.
type Service struct {
	cfg     config.Config
	send    func(msg any)
	reviews *reviewdb.Store

	requests chan protocol.Request
	logger   *log.Logger
}

// New constructs a service. send delivers responses to the UI event loop;
// reviews may be nil (reviews then live only in the snapshot).
func New(cfg config.Config, reviews *reviewdb.Store, send func(msg any)) *Service {
	logger := log.New(os.Stderr, "", 0)
	if path := os.Getenv("GG_LOG"); path != "" {
		if f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); err == nil {
			logger = log.New(f, "backend ", log.LstdFlags)
		}
	} else {
		logger.SetOutput(discardWriter{})
	}
	return &Service{
		cfg:      cfg,
		send:     send,
		reviews:  reviews,
		requests: make(chan protocol.Request, requestBuffer),
		logger:   logger,
	}
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// Requests returns the channel the UI submits requests on.
func (s *Service) Requests() chan<- protocol.Request { return s.requests }

// Submit enqueues a request without blocking the UI turn; when the queue is
// full the request is dropped and logged (the client's retry affordances
// cover it).
func (s *Service) Submit(req protocol.Request) {
	select {
	case s.requests <- req:
	default:
		s.logger.Printf("request queue full, dropping %T", req)
	}
}

// Run consumes requests until ctx is cancelled. Requests are handled
// sequentially: within one refresh cycle the client depends on the
// repo-info response being processed before the commits request is sent,
// and a single worker keeps response ordering deterministic per request
// stream.
func (s *Service) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case req := <-s.requests:
				s.handle(ctx, req)
			}
		}
	})
	return g.Wait()
}

func (s *Service) handle(ctx context.Context, req protocol.Request) {
	switch r := req.(type) {
	case protocol.LoadReposRequest:
		s.send(s.loadRepos())
	case protocol.LoadRepoInfoRequest:
		s.send(s.loadRepoInfo(r))
	case protocol.LoadCommitsRequest:
		s.send(s.loadCommits(r))
	case protocol.LoadConfigRequest:
		s.send(s.loadConfig(r))
	case protocol.CommitDetailsRequest:
		s.send(s.commitDetails(r))
	case protocol.CompareCommitsRequest:
		s.send(s.compareCommits(r))
	case protocol.TagDetailsRequest:
		s.send(s.tagDetails(r))
	case protocol.AvatarRequest:
		s.send(s.avatar(r))
	case protocol.AIAnalysisRequest:
		s.runAIAnalysis(ctx, r)
	case protocol.ActionRequest:
		s.send(s.runAction(r))
	case protocol.CopyToClipboardRequest:
		s.send(s.copyToClipboard(r))
	case protocol.OpenExternalURLRequest:
		s.send(s.openExternalURL(r))
	case protocol.OpenTerminalRequest:
		s.send(s.openTerminal(r))
	case protocol.ViewDiffRequest:
		s.send(s.viewDiff(r))
	case protocol.OpenFileRequest:
		s.send(s.openFile(r))
	case protocol.FileHistoryRequest:
		s.send(s.fileHistory(r))
	case protocol.StartCodeReviewRequest:
		s.saveReview(r.Repo, &model.CodeReview{ID: r.ID, RemainingFiles: r.RemainingFiles, LastViewedFile: r.LastViewedFile})
	case protocol.UpdateCodeReviewRequest:
		s.saveReview(r.Repo, &model.CodeReview{ID: r.ID, RemainingFiles: r.RemainingFiles, LastViewedFile: r.LastViewedFile})
	case protocol.EndCodeReviewRequest:
		s.deleteReview(r.Repo, r.ID)
	case protocol.SetRepoPrefsRequest:
		// Preferences are persisted by the snapshot layer; the mirror is a
		// durability hint only.
		s.logger.Printf("prefs patch for %s (%d bytes)", r.Repo, len(r.Prefs))
	default:
		s.logger.Printf("unhandled request %T", req)
	}
}

func (s *Service) loadRepos() protocol.ReposResponse {
	paths := s.cfg.RepositoryPaths()
	if len(paths) == 0 {
		if wd, err := os.Getwd(); err == nil {
			paths = []string{wd}
		}
	}
	return protocol.ReposResponse{
		Repos:          paths,
		LastActiveRepo: "",
		NavigateToRepo: os.Getenv("GG_REPO"),
	}
}

func (s *Service) saveReview(repo string, review *model.CodeReview) {
	if s.reviews == nil {
		return
	}
	if err := s.reviews.Put(repo, review); err != nil {
		s.logger.Printf("saving review: %v", err)
	}
}

func (s *Service) deleteReview(repo, id string) {
	if s.reviews == nil {
		return
	}
	if err := s.reviews.Delete(repo, id); err != nil {
		s.logger.Printf("deleting review: %v", err)
	}
}

func (s *Service) storedReview(repo, hash, compareHash string) *model.CodeReview {
	if s.reviews == nil {
		return nil
	}
	review, err := s.reviews.Get(repo, model.ReviewID(hash, compareHash))
	if err != nil {
		s.logger.Printf("loading review: %v", err)
		return nil
	}
	return review
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// friendlyGitError rewrites a handful of raw git failures into the messages
// the UI shows verbatim.
func friendlyGitError(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, gogit.ErrRepositoryNotExists) {
		return "not a git repository"
	}
	msg := err.Error()
	if strings.Contains(msg, "reference not found") {
		// Unborn HEAD: a repository with no commits yet.
		return "repository has no commits yet"
	}
	return msg
}
