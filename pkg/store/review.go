package store

import (
	"github.com/vanderheijden86/gitgraph/pkg/model"
	"github.com/vanderheijden86/gitgraph/pkg/protocol"
)

// StartCodeReview begins tracking unreviewed files for the open panel.
// Every file of the current change list starts unreviewed. Returns the
// durability mirror request, or nil when no panel with changes is open or a
// review is already active.
func (s *ViewState) StartCodeReview() protocol.Request {
	e := s.Expanded
	if e == nil || e.Review != nil || len(e.Changes) == 0 {
		return nil
	}

	files := make([]string, 0, len(e.Changes))
	for i := range e.Changes {
		files = append(files, e.Changes[i].Path())
	}
	e.Review = &model.CodeReview{
		ID:             model.ReviewID(e.Hash, e.CompareHash),
		RemainingFiles: files,
	}
	e.Tree = SetAllReviewed(e.Tree, false)
	s.persist()
	return protocol.StartCodeReviewRequest{
		RepoTag:        protocol.RepoTag{Repo: s.CurrentRepo},
		ID:             e.Review.ID,
		RemainingFiles: files,
	}
}

// SetFileReviewedState marks one file reviewed or unreviewed. When the
// remaining set empties, the review auto-ends (review state becomes nil).
// Returns the mirror request reflecting the mutation.
func (s *ViewState) SetFileReviewedState(path string, reviewed bool) protocol.Request {
	e := s.Expanded
	if e == nil || e.Review == nil {
		return nil
	}

	remaining := e.Review.RemainingFiles[:0]
	found := false
	for _, f := range e.Review.RemainingFiles {
		if f == path {
			found = true
			if !reviewed {
				remaining = append(remaining, f)
			}
			continue
		}
		remaining = append(remaining, f)
	}
	if !reviewed && !found {
		remaining = append(remaining, path)
	}
	e.Review.RemainingFiles = remaining
	e.Tree = SetFileReviewed(e.Tree, path, reviewed)

	if len(e.Review.RemainingFiles) == 0 {
		id := e.Review.ID
		e.Review = nil
		s.persist()
		return protocol.EndCodeReviewRequest{
			RepoTag: protocol.RepoTag{Repo: s.CurrentRepo},
			ID:      id,
		}
	}

	s.persist()
	return protocol.UpdateCodeReviewRequest{
		RepoTag:        protocol.RepoTag{Repo: s.CurrentRepo},
		ID:             e.Review.ID,
		RemainingFiles: e.Review.RemainingFiles,
		LastViewedFile: e.Review.LastViewedFile,
	}
}

// RecordFileViewed notes the last file the user opened during a review.
func (s *ViewState) RecordFileViewed(path string) protocol.Request {
	e := s.Expanded
	if e == nil || e.Review == nil {
		return nil
	}
	e.Review.LastViewedFile = path
	s.persist()
	return protocol.UpdateCodeReviewRequest{
		RepoTag:        protocol.RepoTag{Repo: s.CurrentRepo},
		ID:             e.Review.ID,
		RemainingFiles: e.Review.RemainingFiles,
		LastViewedFile: path,
	}
}

// EndCodeReview destroys the active review by explicit user action.
func (s *ViewState) EndCodeReview() protocol.Request {
	e := s.Expanded
	if e == nil || e.Review == nil {
		return nil
	}
	id := e.Review.ID
	e.Review = nil
	e.Tree = SetAllReviewed(e.Tree, true)
	s.persist()
	return protocol.EndCodeReviewRequest{
		RepoTag: protocol.RepoTag{Repo: s.CurrentRepo},
		ID:      id,
	}
}

// RestoreCodeReview attaches a review loaded from durable storage to the
// open panel, re-marking its remaining files unreviewed in the tree.
func (s *ViewState) RestoreCodeReview(review *model.CodeReview) {
	e := s.Expanded
	if e == nil || review == nil || review.ID != model.ReviewID(e.Hash, e.CompareHash) {
		return
	}
	e.Review = review
	if e.Tree != nil {
		tree := SetAllReviewed(e.Tree, true)
		for _, f := range review.RemainingFiles {
			tree = SetFileReviewed(tree, f, false)
		}
		e.Tree = tree
	}
	s.persist()
}
