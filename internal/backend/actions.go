package backend

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/atotto/clipboard"

	"github.com/vanderheijden86/gitgraph/pkg/model"
	"github.com/vanderheijden86/gitgraph/pkg/protocol"
)

// runGit invokes the git CLI in the given repository and returns combined
// stdout. git's own stderr message is folded into the error so the UI can
// show it verbatim.
func runGit(repoPath string, args ...string) (string, error) {
	cmd := exec.Command("git", append([]string{"-C", repoPath}, args...)...)
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("git %s: %s", args[0], msg)
	}
	return stdout.String(), nil
}

// actionArgs maps each action to the git invocation it performs. Args from
// the request are appended positionally (branch names, hashes, flags), so
// the UI stays in charge of the exact variant (e.g. --hard vs --soft reset,
// -d vs -D branch delete).
var actionArgs = map[protocol.ActionKind][]string{
	protocol.ActionCheckout:     {"checkout"},
	protocol.ActionMerge:        {"merge"},
	protocol.ActionRebase:       {"rebase"},
	protocol.ActionReset:        {"reset"},
	protocol.ActionCherryPick:   {"cherry-pick"},
	protocol.ActionRevert:       {"revert"},
	protocol.ActionCreateTag:    {"tag"},
	protocol.ActionDeleteTag:    {"tag", "-d"},
	protocol.ActionCreateBranch: {"branch"},
	protocol.ActionDeleteBranch: {"branch", "-d"},
	protocol.ActionRenameBranch: {"branch", "-m"},
	protocol.ActionStashSave:    {"stash", "push"},
	protocol.ActionStashApply:   {"stash", "apply"},
	protocol.ActionStashPop:     {"stash", "pop"},
	protocol.ActionStashDrop:    {"stash", "drop"},
	protocol.ActionStashBranch:  {"stash", "branch"},
	protocol.ActionPush:         {"push"},
	protocol.ActionPull:         {"pull"},
	protocol.ActionFetch:        {"fetch"},
	protocol.ActionClean:        {"clean", "-fd"},
	protocol.ActionArchive:      {"archive"},
}

func (s *Service) runAction(req protocol.ActionRequest) protocol.ActionDoneResponse {
	resp := protocol.ActionDoneResponse{Repo: req.Repo, Action: req.Action}

	if req.Action == protocol.ActionPullRequest {
		// Creating a pull request is a browser hop, not a git command. The
		// UI precomputes the URL and passes it as the sole argument.
		if len(req.Args) != 1 {
			resp.Error = "pull-request action expects a URL argument"
			return resp
		}
		if err := openURL(req.Args[0]); err != nil {
			resp.Error = err.Error()
		}
		return resp
	}

	base, ok := actionArgs[req.Action]
	if !ok {
		resp.Error = fmt.Sprintf("unknown action %q", req.Action)
		return resp
	}
	if _, err := runGit(req.Repo, append(append([]string{}, base...), req.Args...)...); err != nil {
		resp.Error = err.Error()
	}
	return resp
}

func (s *Service) copyToClipboard(req protocol.CopyToClipboardRequest) protocol.ActionDoneResponse {
	resp := protocol.ActionDoneResponse{Repo: req.Repo, Action: "copy"}
	if err := clipboard.WriteAll(req.Text); err != nil {
		resp.Error = fmt.Sprintf("cannot copy to clipboard: %v", err)
	}
	return resp
}

func (s *Service) openExternalURL(req protocol.OpenExternalURLRequest) protocol.ActionDoneResponse {
	resp := protocol.ActionDoneResponse{Repo: req.Repo, Action: "open-url"}
	if err := openURL(req.URL); err != nil {
		resp.Error = err.Error()
	}
	return resp
}

func openURL(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("cannot open %s: %w", url, err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

func (s *Service) openTerminal(req protocol.OpenTerminalRequest) protocol.ActionDoneResponse {
	resp := protocol.ActionDoneResponse{Repo: req.Repo, Action: "open-terminal"}

	term := os.Getenv("GG_TERMINAL")
	if term == "" {
		switch runtime.GOOS {
		case "darwin":
			term = "open -a Terminal"
		default:
			term = "x-terminal-emulator"
		}
	}
	parts := strings.Fields(term)
	cmd := exec.Command(parts[0], append(parts[1:], req.Repo)...)
	cmd.Dir = req.Repo
	if err := cmd.Start(); err != nil {
		resp.Error = fmt.Sprintf("cannot open terminal: %v", err)
		return resp
	}
	go func() { _ = cmd.Wait() }()
	return resp
}

// viewDiff hands the file pair to `git difftool`, which resolves the user's
// configured diff viewer. Runs detached so a GUI tool does not stall the
// request worker.
func (s *Service) viewDiff(req protocol.ViewDiffRequest) protocol.ActionDoneResponse {
	resp := protocol.ActionDoneResponse{Repo: req.Repo, Action: "view-diff"}

	args := []string{"-C", req.Repo, "difftool", "--no-prompt"}
	if req.ToHash == "" || req.ToHash == req.FromHash {
		args = append(args, req.FromHash+"^", req.FromHash)
	} else {
		args = append(args, req.FromHash, req.ToHash)
	}
	args = append(args, "--")
	if req.OldPath != "" {
		args = append(args, req.OldPath)
	}
	if req.NewPath != "" && req.NewPath != req.OldPath {
		args = append(args, req.NewPath)
	}

	cmd := exec.Command("git", args...)
	if err := cmd.Start(); err != nil {
		resp.Error = fmt.Sprintf("cannot launch difftool: %v", err)
		return resp
	}
	go func() { _ = cmd.Wait() }()
	return resp
}

// openFile materializes the file at the requested revision into a temp file
// and opens it with the host's default handler. For the working-tree
// sentinel the on-disk file is opened directly.
func (s *Service) openFile(req protocol.OpenFileRequest) protocol.ActionDoneResponse {
	resp := protocol.ActionDoneResponse{Repo: req.Repo, Action: "open-file"}

	target := req.Repo + string(os.PathSeparator) + req.Path
	if req.Hash != "" && req.Hash != model.UncommittedHash {
		content, err := runGit(req.Repo, "show", req.Hash+":"+req.Path)
		if err != nil {
			resp.Error = err.Error()
			return resp
		}
		tmp, err := os.CreateTemp("", "gg-*-"+sanitizeBase(req.Path))
		if err != nil {
			resp.Error = fmt.Sprintf("cannot stage file: %v", err)
			return resp
		}
		if _, err := tmp.WriteString(content); err != nil {
			tmp.Close()
			resp.Error = fmt.Sprintf("cannot stage file: %v", err)
			return resp
		}
		tmp.Close()
		target = tmp.Name()
	}

	if err := openURL(target); err != nil {
		resp.Error = err.Error()
	}
	return resp
}

func sanitizeBase(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		path = path[i+1:]
	}
	return strings.Map(func(r rune) rune {
		if r == os.PathSeparator || r == ':' {
			return '-'
		}
		return r
	}, path)
}

// fileHistory renders the follow-log of one file into a temp file and opens
// it with the host's default text handler.
func (s *Service) fileHistory(req protocol.FileHistoryRequest) protocol.ActionDoneResponse {
	resp := protocol.ActionDoneResponse{Repo: req.Repo, Action: "file-history"}

	out, err := runGit(req.Repo, "log", "--follow", "--format=%h %ad %an  %s", "--date=short", "--", req.Path)
	if err != nil {
		resp.Error = err.Error()
		return resp
	}
	tmp, err := os.CreateTemp("", "gg-history-*.txt")
	if err != nil {
		resp.Error = fmt.Sprintf("cannot stage history: %v", err)
		return resp
	}
	if _, err := tmp.WriteString(out); err != nil {
		tmp.Close()
		resp.Error = fmt.Sprintf("cannot stage history: %v", err)
		return resp
	}
	tmp.Close()

	if err := openURL(tmp.Name()); err != nil {
		resp.Error = err.Error()
	}
	return resp
}
