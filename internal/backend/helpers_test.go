package backend

import (
	"errors"
	"fmt"
	"testing"
	"unicode/utf8"

	gogit "github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanderheijden86/gitgraph/pkg/config"
	"github.com/vanderheijden86/gitgraph/pkg/model"
	"github.com/vanderheijden86/gitgraph/pkg/protocol"
)

func TestParseNameStatus(t *testing.T) {
	out := "M\x00pkg/store/store.go\x00" +
		"A\x00cmd/gg/main.go\x00" +
		"D\x00old.go\x00" +
		"R100\x00before.go\x00after.go\x00"

	changes := parseNameStatus(out)
	require.Len(t, changes, 4)

	assert.Equal(t, model.FileModified, changes[0].Status)
	assert.Equal(t, "pkg/store/store.go", changes[0].NewPath)
	assert.Equal(t, "pkg/store/store.go", changes[0].OldPath)

	assert.Equal(t, model.FileAdded, changes[1].Status)
	assert.Equal(t, "cmd/gg/main.go", changes[1].NewPath)
	assert.Empty(t, changes[1].OldPath)

	assert.Equal(t, model.FileDeleted, changes[2].Status)
	assert.Equal(t, "old.go", changes[2].OldPath)
	assert.Empty(t, changes[2].NewPath)

	assert.Equal(t, model.FileRenamed, changes[3].Status)
	assert.Equal(t, "before.go", changes[3].OldPath)
	assert.Equal(t, "after.go", changes[3].NewPath)
	assert.Equal(t, "after.go", changes[3].Path())
}

func TestParseNameStatus_TruncatedInput(t *testing.T) {
	assert.Empty(t, parseNameStatus(""))
	// A status code with its path cut off must not panic or invent entries.
	assert.Empty(t, parseNameStatus("M"))
	assert.Len(t, parseNameStatus("R100\x00only-old.go"), 0)
}

func TestSummaryLine(t *testing.T) {
	assert.Equal(t, "fix parser", summaryLine("fix parser\n\nlong body here"))
	assert.Equal(t, "fix parser", summaryLine("fix parser  \n"))
	assert.Equal(t, "one liner", summaryLine("one liner"))
	assert.Equal(t, "", summaryLine(""))
}

func TestShortHash(t *testing.T) {
	assert.Equal(t, "deadbeef", shortHash("deadbeefcafe0123"))
	assert.Equal(t, "abc", shortHash("abc"))
	assert.Equal(t, "working tree", shortHash(model.UncommittedHash))
}

func TestFileKind(t *testing.T) {
	assert.Equal(t, "pkg/", fileKind("pkg/store/store.go"))
	assert.Equal(t, "*.go", fileKind("main.go"))
	assert.Equal(t, "Makefile", fileKind("Makefile"))
	assert.Equal(t, ".gitignore", fileKind(".gitignore"))
}

func TestSanitizeBase(t *testing.T) {
	assert.Equal(t, "file.go", sanitizeBase("pkg/store/file.go"))
	assert.Equal(t, "odd-name.go", sanitizeBase("odd:name.go"))
	assert.Equal(t, "plain", sanitizeBase("plain"))
}

func TestErrString(t *testing.T) {
	assert.Equal(t, "", errString(nil))
	assert.Equal(t, "boom", errString(errors.New("boom")))
}

func TestFriendlyGitError(t *testing.T) {
	assert.Equal(t, "", friendlyGitError(nil))
	assert.Equal(t, "not a git repository", friendlyGitError(gogit.ErrRepositoryNotExists))
	assert.Equal(t, "not a git repository",
		friendlyGitError(fmt.Errorf("open: %w", gogit.ErrRepositoryNotExists)))
	assert.Equal(t, "repository has no commits yet", friendlyGitError(errors.New("reference not found")))
	assert.Equal(t, "boom", friendlyGitError(errors.New("boom")))
}

func TestAvatarInitials(t *testing.T) {
	s := New(config.DefaultConfig(), nil, func(any) {})

	cases := []struct {
		email string
		want  string
	}{
		{"jane.doe@example.com", "initials:JD"},
		{"bob@example.com", "initials:B"},
		{"ömer@example.de", "initials:Ö"},
		{"élise.über@example.fr", "initials:ÉÜ"},
		{"a.b.c@example.com", "initials:AB"},
		{"._-@example.com", "initials:?"},
	}
	for _, tc := range cases {
		resp := s.avatar(protocol.AvatarRequest{Email: tc.email})
		assert.Equal(t, tc.want, resp.Image, "email %q", tc.email)
		assert.True(t, utf8.ValidString(resp.Image), "email %q yields invalid UTF-8", tc.email)
	}
}

type fakeRequest struct{}

func (fakeRequest) RequestRepo() string { return "/x" }

func TestSubmit_DropsWhenQueueFull(t *testing.T) {
	s := New(config.DefaultConfig(), nil, func(any) {})

	// Overfill the queue; Submit must drop the overflow instead of blocking
	// the caller's event loop.
	for i := 0; i < requestBuffer+5; i++ {
		s.Submit(fakeRequest{})
	}
	assert.Len(t, s.requests, requestBuffer)
}
