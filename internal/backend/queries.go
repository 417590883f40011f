package backend

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	gogit "github.com/go-git/go-git/v5"
	gitcfg "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/vanderheijden86/gitgraph/pkg/model"
	"github.com/vanderheijden86/gitgraph/pkg/protocol"
)

func (s *Service) loadRepoInfo(req protocol.LoadRepoInfoRequest) protocol.RepoInfoResponse {
	resp := protocol.RepoInfoResponse{Repo: req.Repo, Seq: req.Seq}

	repo, err := gogit.PlainOpen(req.Repo)
	if err != nil {
		resp.Error = friendlyGitError(err)
		return resp
	}
	resp.IsRepo = true

	branches, err := localBranchNames(repo)
	if err != nil {
		resp.Error = errString(err)
		return resp
	}
	resp.Branches = branches

	if head, err := repo.Head(); err == nil && head.Name().IsBranch() {
		resp.Head = head.Name().Short()
	}

	remotes, err := repo.Remotes()
	if err != nil {
		resp.Error = errString(err)
		return resp
	}
	for _, r := range remotes {
		resp.Remotes = append(resp.Remotes, r.Config().Name)
	}
	sort.Strings(resp.Remotes)

	if req.ShowStashes {
		stashes, err := s.listStashes(req.Repo)
		if err != nil {
			s.logger.Printf("listing stashes: %v", err)
		} else {
			resp.Stashes = stashes
		}
	}

	return resp
}

func localBranchNames(repo *gogit.Repository) ([]string, error) {
	iter, err := repo.Branches()
	if err != nil {
		return nil, err
	}
	var branches []string
	_ = iter.ForEach(func(ref *plumbing.Reference) error {
		branches = append(branches, ref.Name().Short())
		return nil
	})
	sort.Strings(branches)
	return branches, nil
}

// listStashes shells out: go-git has no stash support, and the reflog
// selectors (stash@{N}) only exist on the CLI side anyway.
func (s *Service) listStashes(repoPath string) ([]model.Stash, error) {
	out, err := runGit(repoPath, "stash", "list", "--format=%gd\x1f%H\x1f%P\x1f%ct\x1f%gs")
	if err != nil {
		return nil, err
	}
	var stashes []model.Stash
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\x1f")
		if len(fields) < 5 {
			continue
		}
		parents := strings.Fields(fields[2])
		stash := model.Stash{
			Selector: fields[0],
			Hash:     fields[1],
			Message:  fields[4],
		}
		if len(parents) > 0 {
			stash.BaseHash = parents[0]
		}
		if len(parents) > 2 {
			stash.UntrackedHash = parents[2]
		}
		if ts, err := strconv.ParseInt(fields[3], 10, 64); err == nil {
			stash.Date = ts
		}
		stashes = append(stashes, stash)
	}
	return stashes, nil
}

// refAttachments collects, per commit hash, the branch heads, remote refs,
// and tags pointing at it.
type refAttachments struct {
	heads   map[string][]string
	remotes map[string][]model.RemoteRef
	tags    map[string][]model.TagRef
	tagList []string
}

func collectRefs(repo *gogit.Repository, showRemotes bool, hiddenRemotes []string) (*refAttachments, error) {
	att := &refAttachments{
		heads:   make(map[string][]string),
		remotes: make(map[string][]model.RemoteRef),
		tags:    make(map[string][]model.TagRef),
	}
	hidden := make(map[string]bool, len(hiddenRemotes))
	for _, r := range hiddenRemotes {
		hidden[r] = true
	}

	iter, err := repo.References()
	if err != nil {
		return nil, err
	}
	_ = iter.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name()
		switch {
		case name.IsBranch():
			h := ref.Hash().String()
			att.heads[h] = append(att.heads[h], name.Short())
		case name.IsRemote() && showRemotes:
			short := name.Short() // "origin/main"
			remote := short
			if i := strings.IndexByte(short, '/'); i > 0 {
				remote = short[:i]
			}
			if hidden[remote] || strings.HasSuffix(short, "/HEAD") {
				return nil
			}
			h := ref.Hash().String()
			att.remotes[h] = append(att.remotes[h], model.RemoteRef{Name: short, Remote: remote})
		case name.IsTag():
			tagName := name.Short()
			hash := ref.Hash()
			annotated := false
			if tagObj, err := repo.TagObject(hash); err == nil {
				annotated = true
				if commit, err := tagObj.Commit(); err == nil {
					hash = commit.Hash
				}
			}
			h := hash.String()
			att.tags[h] = append(att.tags[h], model.TagRef{Name: tagName, Annotated: annotated})
			att.tagList = append(att.tagList, tagName)
		}
		return nil
	})
	sort.Strings(att.tagList)
	return att, nil
}

func (s *Service) loadCommits(req protocol.LoadCommitsRequest) protocol.CommitsResponse {
	resp := protocol.CommitsResponse{Repo: req.Repo, Seq: req.Seq}

	repo, err := gogit.PlainOpen(req.Repo)
	if err != nil {
		resp.Error = friendlyGitError(err)
		return resp
	}

	att, err := collectRefs(repo, req.ShowRemoteBranches, req.HiddenRemotes)
	if err != nil {
		resp.Error = errString(err)
		return resp
	}
	resp.Tags = att.tagList

	headHash := ""
	if head, err := repo.Head(); err == nil {
		headHash = head.Hash().String()
	}
	// A repository with no commits yet has no HEAD hash; that is an empty
	// result, not an error.
	resp.Head = headHash

	tips, err := s.resolveTips(repo, req, headHash)
	if err != nil {
		resp.Error = errString(err)
		return resp
	}
	if len(tips) == 0 {
		return resp
	}

	commits, more, err := walkCommits(repo, tips, req.MaxCommits, req.Ordering, req.FirstParentOnly)
	if err != nil {
		resp.Error = errString(err)
		return resp
	}
	resp.MoreAvailable = more

	stashBy := make(map[string]*model.Stash, len(req.Stashes))
	for i := range req.Stashes {
		stashBy[req.Stashes[i].Hash] = &req.Stashes[i]
	}

	out := make([]model.Commit, 0, len(commits)+1)
	for _, c := range commits {
		h := c.Hash.String()
		mc := model.Commit{
			Hash:           h,
			Author:         c.Author.Name,
			AuthorEmail:    c.Author.Email,
			AuthorDate:     c.Author.When.Unix(),
			Committer:      c.Committer.Name,
			CommitterEmail: c.Committer.Email,
			CommitterDate:  c.Committer.When.Unix(),
			Message:        summaryLine(c.Message),
			Heads:          att.heads[h],
			Remotes:        att.remotes[h],
			Tags:           att.tags[h],
		}
		for _, p := range c.ParentHashes {
			mc.Parents = append(mc.Parents, p.String())
		}
		if st := stashBy[h]; st != nil {
			mc.Stash = &model.StashRef{
				Selector:      st.Selector,
				BaseHash:      st.BaseHash,
				UntrackedHash: st.UntrackedHash,
			}
			mc.Message = st.Message
		}
		out = append(out, mc)
	}

	if sentinel := s.uncommittedSentinel(repo, headHash); sentinel != nil {
		out = append([]model.Commit{*sentinel}, out...)
	}

	resp.Commits = out
	return resp
}

// resolveTips gathers the hashes commit walking starts from: the selected
// branches (or all branches plus visible remote refs when unfiltered),
// HEAD, reflog entries when requested, and stash commits so they appear in
// the graph next to their base.
func (s *Service) resolveTips(repo *gogit.Repository, req protocol.LoadCommitsRequest, headHash string) ([]plumbing.Hash, error) {
	seen := make(map[plumbing.Hash]bool)
	var tips []plumbing.Hash
	add := func(h plumbing.Hash) {
		if h != plumbing.ZeroHash && !seen[h] {
			seen[h] = true
			tips = append(tips, h)
		}
	}

	if headHash != "" {
		add(plumbing.NewHash(headHash))
	}

	if len(req.Branches) == 0 {
		iter, err := repo.References()
		if err != nil {
			return nil, err
		}
		hidden := make(map[string]bool, len(req.HiddenRemotes))
		for _, r := range req.HiddenRemotes {
			hidden[r] = true
		}
		_ = iter.ForEach(func(ref *plumbing.Reference) error {
			name := ref.Name()
			switch {
			case name.IsBranch():
				add(ref.Hash())
			case name.IsRemote() && req.ShowRemoteBranches:
				remote := name.Short()
				if i := strings.IndexByte(remote, '/'); i > 0 {
					remote = remote[:i]
				}
				if !hidden[remote] {
					add(ref.Hash())
				}
			}
			return nil
		})
	} else {
		for _, b := range req.Branches {
			ref, err := repo.Reference(plumbing.NewBranchReferenceName(b), true)
			if err != nil {
				continue // branch deleted since repo info resolved; skip
			}
			add(ref.Hash())
		}
	}

	if req.IncludeReflog {
		if out, err := runGit(req.Repo, "reflog", "--format=%H"); err == nil {
			for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
				if len(line) == 40 {
					add(plumbing.NewHash(line))
				}
			}
		}
	}

	for _, st := range req.Stashes {
		add(plumbing.NewHash(st.Hash))
	}

	return tips, nil
}

// walkCommits pops the frontier commit with the greatest ordering key until
// maxCommits are emitted or the frontier drains. Topological ordering
// prefers continuing the last-emitted commit's lineage before falling back
// to the date key, which keeps parallel branches contiguous.
func walkCommits(repo *gogit.Repository, tips []plumbing.Hash, maxCommits int, ordering model.CommitOrdering, firstParent bool) ([]*object.Commit, bool, error) {
	if maxCommits <= 0 {
		maxCommits = 300
	}

	key := func(c *object.Commit) int64 {
		if ordering == model.OrderAuthorDate {
			return c.Author.When.Unix()
		}
		return c.Committer.When.Unix()
	}

	var frontier []*object.Commit
	inFrontier := make(map[plumbing.Hash]bool)
	emitted := make(map[plumbing.Hash]bool)

	push := func(h plumbing.Hash) error {
		if emitted[h] || inFrontier[h] {
			return nil
		}
		c, err := repo.CommitObject(h)
		if err != nil {
			if err == plumbing.ErrObjectNotFound {
				return nil // shallow clone edge
			}
			return err
		}
		frontier = append(frontier, c)
		inFrontier[h] = true
		return nil
	}

	for _, t := range tips {
		if err := push(t); err != nil {
			return nil, false, err
		}
	}

	var out []*object.Commit
	var lastParents map[plumbing.Hash]bool

	for len(frontier) > 0 && len(out) <= maxCommits {
		best := 0
		for i := 1; i < len(frontier); i++ {
			if ordering == model.OrderTopo && lastParents != nil {
				bi, bb := lastParents[frontier[i].Hash], lastParents[frontier[best].Hash]
				if bi != bb {
					if bi {
						best = i
					}
					continue
				}
			}
			if key(frontier[i]) > key(frontier[best]) {
				best = i
			}
		}

		c := frontier[best]
		frontier = append(frontier[:best], frontier[best+1:]...)
		delete(inFrontier, c.Hash)
		emitted[c.Hash] = true
		out = append(out, c)

		lastParents = make(map[plumbing.Hash]bool, len(c.ParentHashes))
		parents := c.ParentHashes
		if firstParent && len(parents) > 1 {
			parents = parents[:1]
		}
		for _, p := range parents {
			lastParents[p] = true
			if err := push(p); err != nil {
				return nil, false, err
			}
		}
	}

	if len(out) > maxCommits {
		return out[:maxCommits], true, nil
	}
	return out, false, nil
}

func summaryLine(message string) string {
	if i := strings.IndexByte(message, '\n'); i >= 0 {
		return strings.TrimSpace(message[:i])
	}
	return strings.TrimSpace(message)
}

// uncommittedSentinel builds the index-0 pseudo-commit when the working
// tree is dirty, or nil when clean (or when the state cannot be read).
func (s *Service) uncommittedSentinel(repo *gogit.Repository, headHash string) *model.Commit {
	wt, err := repo.Worktree()
	if err != nil {
		return nil
	}
	status, err := wt.Status()
	if err != nil || status.IsClean() {
		return nil
	}
	changed := 0
	for _, fs := range status {
		if fs.Worktree != gogit.Unmodified || fs.Staging != gogit.Unmodified {
			changed++
		}
	}
	if changed == 0 {
		return nil
	}
	var parents []string
	if headHash != "" {
		parents = []string{headHash}
	}
	return &model.Commit{
		Hash:    model.UncommittedHash,
		Parents: parents,
		Author:  "*",
		Message: fmt.Sprintf("Uncommitted Changes (%d)", changed),
	}
}

func (s *Service) loadConfig(req protocol.LoadConfigRequest) protocol.ConfigResponse {
	resp := protocol.ConfigResponse{Repo: req.Repo}

	repo, err := gogit.PlainOpen(req.Repo)
	if err != nil {
		resp.Error = errString(err)
		return resp
	}
	cfg, err := repo.ConfigScoped(gitcfg.GlobalScope)
	if err != nil {
		resp.Error = errString(err)
		return resp
	}

	out := &model.RepoConfig{
		UserName:  cfg.User.Name,
		UserEmail: cfg.User.Email,
	}
	var names []string
	for name := range cfg.Remotes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		rc := cfg.Remotes[name]
		remote := model.RemoteConfig{Name: name}
		if len(rc.URLs) > 0 {
			remote.URL = rc.URLs[0]
		}
		if len(rc.URLs) > 1 {
			remote.PushURL = rc.URLs[1]
		}
		out.Remotes = append(out.Remotes, remote)
	}
	resp.Config = out
	return resp
}

func (s *Service) commitDetails(req protocol.CommitDetailsRequest) protocol.CommitDetailsResponse {
	resp := protocol.CommitDetailsResponse{Repo: req.Repo, Hash: req.Hash}
	resp.Review = s.storedReview(req.Repo, req.Hash, "")

	repo, err := gogit.PlainOpen(req.Repo)
	if err != nil {
		resp.Error = errString(err)
		return resp
	}

	if req.Hash == model.UncommittedHash {
		changes, err := worktreeChanges(repo)
		if err != nil {
			resp.Error = errString(err)
			return resp
		}
		resp.Details = &model.CommitDetails{
			Hash:    model.UncommittedHash,
			Body:    "Uncommitted Changes",
			Changes: changes,
		}
		return resp
	}

	commit, err := repo.CommitObject(plumbing.NewHash(req.Hash))
	if err != nil {
		resp.Error = errString(err)
		return resp
	}

	details := &model.CommitDetails{
		Hash:           commit.Hash.String(),
		Author:         commit.Author.Name,
		AuthorEmail:    commit.Author.Email,
		AuthorDate:     commit.Author.When.Unix(),
		Committer:      commit.Committer.Name,
		CommitterEmail: commit.Committer.Email,
		CommitterDate:  commit.Committer.When.Unix(),
		Body:           strings.TrimRight(commit.Message, "\n"),
	}
	for _, p := range commit.ParentHashes {
		details.Parents = append(details.Parents, p.String())
	}

	changes, err := commitFileChanges(repo, commit)
	if err != nil {
		resp.Error = errString(err)
		return resp
	}
	details.Changes = changes
	resp.Details = details
	return resp
}

// commitFileChanges diffs a commit against its first parent (or the empty
// tree for root commits), with rename detection.
func commitFileChanges(repo *gogit.Repository, commit *object.Commit) ([]model.FileChange, error) {
	tree, err := commit.Tree()
	if err != nil {
		return nil, err
	}
	var parentTree *object.Tree
	if commit.NumParents() > 0 {
		parent, err := commit.Parent(0)
		if err != nil {
			return nil, err
		}
		parentTree, err = parent.Tree()
		if err != nil {
			return nil, err
		}
	}
	return treeChanges(parentTree, tree)
}

func treeChanges(from, to *object.Tree) ([]model.FileChange, error) {
	changes, err := object.DiffTreeWithOptions(context.Background(), from, to, object.DefaultDiffTreeOptions)
	if err != nil {
		return nil, err
	}

	stats := make(map[string][2]int)
	if patch, err := changes.Patch(); err == nil {
		for _, fs := range patch.Stats() {
			stats[fs.Name] = [2]int{fs.Addition, fs.Deletion}
		}
	}

	out := make([]model.FileChange, 0, len(changes))
	for _, ch := range changes {
		fc := model.FileChange{
			OldPath: ch.From.Name,
			NewPath: ch.To.Name,
		}
		switch {
		case ch.From.Name == "":
			fc.Status = model.FileAdded
		case ch.To.Name == "":
			fc.Status = model.FileDeleted
		case ch.From.Name != ch.To.Name:
			fc.Status = model.FileRenamed
		default:
			fc.Status = model.FileModified
		}
		if st, ok := stats[fc.Path()]; ok {
			fc.Additions, fc.Deletions = st[0], st[1]
		}
		out = append(out, fc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path() < out[j].Path() })
	return out, nil
}

// worktreeChanges synthesizes the change list for the uncommitted sentinel
// from worktree status.
func worktreeChanges(repo *gogit.Repository) ([]model.FileChange, error) {
	wt, err := repo.Worktree()
	if err != nil {
		return nil, err
	}
	status, err := wt.Status()
	if err != nil {
		return nil, err
	}

	var out []model.FileChange
	for path, fs := range status {
		code := fs.Worktree
		if code == gogit.Unmodified {
			code = fs.Staging
		}
		if code == gogit.Unmodified {
			continue
		}
		fc := model.FileChange{NewPath: path, OldPath: path}
		switch code {
		case gogit.Untracked, gogit.Added:
			fc.Status = model.FileUntracked
			fc.OldPath = ""
			if code == gogit.Added {
				fc.Status = model.FileAdded
			}
		case gogit.Deleted:
			fc.Status = model.FileDeleted
			fc.NewPath = ""
		case gogit.Renamed:
			fc.Status = model.FileRenamed
		default:
			fc.Status = model.FileModified
		}
		out = append(out, fc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path() < out[j].Path() })
	return out, nil
}

func (s *Service) compareCommits(req protocol.CompareCommitsRequest) protocol.ComparisonResponse {
	resp := protocol.ComparisonResponse{Repo: req.Repo, FromHash: req.FromHash, ToHash: req.ToHash}
	resp.Review = s.storedReview(req.Repo, req.FromHash, req.ToHash)

	repo, err := gogit.PlainOpen(req.Repo)
	if err != nil {
		resp.Error = errString(err)
		return resp
	}

	if req.ToHash == model.UncommittedHash {
		// Comparing against the working tree needs index+worktree contents;
		// go-git only diffs committed trees, so this path shells out.
		changes, err := diffAgainstWorktree(req.Repo, req.FromHash)
		if err != nil {
			resp.Error = errString(err)
			return resp
		}
		resp.Changes = changes
		return resp
	}

	fromCommit, err := repo.CommitObject(plumbing.NewHash(req.FromHash))
	if err != nil {
		resp.Error = errString(err)
		return resp
	}
	toCommit, err := repo.CommitObject(plumbing.NewHash(req.ToHash))
	if err != nil {
		resp.Error = errString(err)
		return resp
	}
	fromTree, err := fromCommit.Tree()
	if err != nil {
		resp.Error = errString(err)
		return resp
	}
	toTree, err := toCommit.Tree()
	if err != nil {
		resp.Error = errString(err)
		return resp
	}

	changes, err := treeChanges(fromTree, toTree)
	if err != nil {
		resp.Error = errString(err)
		return resp
	}
	resp.Changes = changes
	return resp
}

func diffAgainstWorktree(repoPath, fromHash string) ([]model.FileChange, error) {
	out, err := runGit(repoPath, "diff", "--name-status", "-z", fromHash)
	if err != nil {
		return nil, err
	}
	return parseNameStatus(out), nil
}

// parseNameStatus parses `git diff --name-status -z` output.
func parseNameStatus(out string) []model.FileChange {
	fields := strings.Split(out, "\x00")
	var changes []model.FileChange
	for i := 0; i < len(fields); i++ {
		code := fields[i]
		if code == "" {
			continue
		}
		fc := model.FileChange{}
		switch code[0] {
		case 'A':
			fc.Status = model.FileAdded
		case 'D':
			fc.Status = model.FileDeleted
		case 'R':
			fc.Status = model.FileRenamed
		default:
			fc.Status = model.FileModified
		}
		if i+1 >= len(fields) {
			break
		}
		if fc.Status == model.FileRenamed {
			if i+2 >= len(fields) {
				break
			}
			fc.OldPath = fields[i+1]
			fc.NewPath = fields[i+2]
			i += 2
		} else {
			path := fields[i+1]
			i++
			switch fc.Status {
			case model.FileAdded:
				fc.NewPath = path
			case model.FileDeleted:
				fc.OldPath = path
			default:
				fc.OldPath, fc.NewPath = path, path
			}
		}
		changes = append(changes, fc)
	}
	return changes
}

func (s *Service) tagDetails(req protocol.TagDetailsRequest) protocol.TagDetailsResponse {
	resp := protocol.TagDetailsResponse{Repo: req.Repo, TagName: req.TagName}

	repo, err := gogit.PlainOpen(req.Repo)
	if err != nil {
		resp.Error = errString(err)
		return resp
	}
	ref, err := repo.Tag(req.TagName)
	if err != nil {
		resp.Error = errString(err)
		return resp
	}

	details := &model.TagDetails{Name: req.TagName, Hash: ref.Hash().String()}
	if tagObj, err := repo.TagObject(ref.Hash()); err == nil {
		details.TaggerName = tagObj.Tagger.Name
		details.TaggerEmail = tagObj.Tagger.Email
		details.TaggerDate = tagObj.Tagger.When.Unix()
		details.Message = strings.TrimRight(tagObj.Message, "\n")
	}
	resp.Details = details
	return resp
}

// avatar resolves an email to an inline initials placeholder. Fetching
// remote avatar images is deliberately not done here; the cache keyed by
// email keeps the contract identical if a networked resolver replaces this.
func (s *Service) avatar(req protocol.AvatarRequest) protocol.AvatarResponse {
	initials := ""
	local := req.Email
	if i := strings.IndexByte(local, '@'); i > 0 {
		local = local[:i]
	}
	for _, part := range strings.FieldsFunc(local, func(r rune) bool { return r == '.' || r == '-' || r == '_' }) {
		r, _ := utf8.DecodeRuneInString(part)
		initials += strings.ToUpper(string(r))
		if utf8.RuneCountInString(initials) == 2 {
			break
		}
	}
	if initials == "" {
		initials = "?"
	}
	return protocol.AvatarResponse{Email: req.Email, Image: "initials:" + initials}
}
