package store

import (
	"sort"
	"testing"

	"pgregory.net/rapid"

	"github.com/vanderheijden86/gitgraph/pkg/model"
)

func changesFromPaths(paths []string) []model.FileChange {
	changes := make([]model.FileChange, len(paths))
	for i, p := range paths {
		changes[i] = model.FileChange{NewPath: p, Status: model.FileModified}
	}
	return changes
}

func TestCreateFileTree_Structure(t *testing.T) {
	changes := changesFromPaths([]string{
		"cmd/gg/main.go",
		"pkg/store/store.go",
		"pkg/store/prefs.go",
		"README.md",
	})
	root := CreateFileTree(changes, nil, nil)

	cmd := root.Children["cmd"]
	if cmd == nil || cmd.Type != NodeFolder || !cmd.Open {
		t.Fatal("expected open cmd folder")
	}
	main := cmd.Children["gg"].Children["main.go"]
	if main == nil || main.Type != NodeFile || main.FileIndex != 0 {
		t.Fatalf("expected main.go leaf with index 0, got %+v", main)
	}
	readme := root.Children["README.md"]
	if readme == nil || readme.Type != NodeFile || readme.FileIndex != 3 {
		t.Fatalf("expected README.md leaf with index 3, got %+v", readme)
	}
	if len(root.Children["pkg"].Children["store"].Children) != 2 {
		t.Error("expected two files under pkg/store")
	}
}

// Building a tree from a change list and flattening it back yields exactly
// the original path set.
func TestFileTree_FlattenRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		segment := rapid.StringMatching(`[a-z]{1,6}(\.[a-z]{1,3})?`)
		pathGen := rapid.Custom(func(t *rapid.T) string {
			n := rapid.IntRange(1, 4).Draw(t, "depth")
			p := segment.Draw(t, "seg")
			for i := 1; i < n; i++ {
				p += "/" + segment.Draw(t, "seg")
			}
			return p
		})
		paths := rapid.SliceOfNDistinct(pathGen, 0, 30, rapid.ID[string]).Draw(t, "paths")

		// A path that is a strict prefix (directory) of another would make
		// the same name both a file and a folder; git never produces that.
		seen := map[string]bool{}
		for _, p := range paths {
			seen[p] = true
		}
		filtered := paths[:0]
		for _, p := range paths {
			conflict := false
			for q := range seen {
				if q != p && (hasDirPrefix(q, p) || hasDirPrefix(p, q)) {
					conflict = true
					break
				}
			}
			if !conflict {
				filtered = append(filtered, p)
			}
		}

		root := CreateFileTree(changesFromPaths(filtered), nil, nil)
		got := FlattenFilePaths(root)

		want := append([]string(nil), filtered...)
		sort.Strings(got)
		sort.Strings(want)
		if len(got) != len(want) {
			t.Fatalf("flatten returned %d paths, want %d", len(got), len(want))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("flatten mismatch at %d: %q != %q", i, got[i], want[i])
			}
		}
	})
}

func hasDirPrefix(long, short string) bool {
	return len(long) > len(short) && long[:len(short)] == short && long[len(short)] == '/'
}

func TestToggleFolderOpen_CopyOnWrite(t *testing.T) {
	root := CreateFileTree(changesFromPaths([]string{"a/b/file.go", "a/other.go"}), nil, nil)

	updated := ToggleFolderOpen(root, "a/b")
	if root.Children["a"].Children["b"].Open != true {
		t.Error("expected original tree untouched")
	}
	if updated.Children["a"].Children["b"].Open != false {
		t.Error("expected folder closed in updated tree")
	}
	if updated.Children["a"].Children["other.go"] != root.Children["a"].Children["other.go"] {
		t.Error("expected untouched siblings shared, not copied")
	}

	// Unresolvable paths leave the tree as-is.
	if ToggleFolderOpen(updated, "a/missing") != updated {
		t.Error("expected unknown path to return the same root")
	}
}

func TestSetFileReviewed_FolderAggregation(t *testing.T) {
	changes := changesFromPaths([]string{"a/one.go", "a/two.go", "b/three.go"})
	review := &model.CodeReview{ID: "r", RemainingFiles: []string{"a/one.go", "a/two.go", "b/three.go"}}
	root := CreateFileTree(changes, review, nil)

	if root.Children["a"].Reviewed {
		t.Fatal("expected folder a unreviewed while files remain")
	}

	root = SetFileReviewed(root, "a/one.go", true)
	if root.Children["a"].Reviewed {
		t.Error("expected folder a still unreviewed")
	}

	root = SetFileReviewed(root, "a/two.go", true)
	if !root.Children["a"].Reviewed {
		t.Error("expected folder a reviewed once both files are")
	}
	if root.Reviewed {
		t.Error("expected root unreviewed while b/three.go remains")
	}

	root = SetFileReviewed(root, "b/three.go", true)
	if !root.Reviewed {
		t.Error("expected root reviewed")
	}
}

func TestSetAllReviewed(t *testing.T) {
	review := &model.CodeReview{ID: "r", RemainingFiles: []string{"a/one.go"}}
	root := CreateFileTree(changesFromPaths([]string{"a/one.go", "a/two.go"}), review, nil)

	all := SetAllReviewed(root, true)
	if !all.Reviewed || !all.Children["a"].Children["one.go"].Reviewed {
		t.Error("expected every leaf reviewed")
	}

	none := SetAllReviewed(root, false)
	if none.Reviewed || none.Children["a"].Children["two.go"].Reviewed {
		t.Error("expected every leaf unreviewed")
	}
}

func TestCreateFileTree_NestedRepoLeaf(t *testing.T) {
	changes := changesFromPaths([]string{"vendor/lib/file.go", "own/file.go"})
	root := CreateFileTree(changes, nil, []string{"vendor/lib"})

	vendor := root.Children["vendor"]
	if vendor == nil {
		t.Fatal("expected vendor folder")
	}
	lib := vendor.Children["lib"]
	if lib == nil || lib.Type != NodeRepo || lib.RepoPath != "vendor/lib" {
		t.Fatalf("expected repo leaf for vendor/lib, got %+v", lib)
	}
	if len(lib.Children) != 0 {
		t.Error("expected descent stopped at the repo leaf")
	}

	// Repo leaves contribute nothing to the flat path list.
	paths := FlattenFilePaths(root)
	if len(paths) != 1 || paths[0] != "own/file.go" {
		t.Errorf("expected only own/file.go, got %v", paths)
	}
}

func TestFindFileNode(t *testing.T) {
	root := CreateFileTree(changesFromPaths([]string{"a/b/c.go"}), nil, nil)

	if n := FindFileNode(root, "a/b/c.go"); n == nil || n.Type != NodeFile {
		t.Error("expected to find the file leaf")
	}
	if n := FindFileNode(root, "a/b"); n == nil || n.Type != NodeFolder {
		t.Error("expected to find the folder")
	}
	if FindFileNode(root, "a/x") != nil {
		t.Error("expected nil for unknown path")
	}
	if FindFileNode(root, "") != root {
		t.Error("expected empty path to return the root")
	}
}

func TestSortedChildNames_FoldersFirst(t *testing.T) {
	root := CreateFileTree(changesFromPaths([]string{"z.go", "a/file.go", "m.go", "b/file.go"}), nil, nil)
	names := root.SortedChildNames()
	want := []string{"a", "b", "m.go", "z.go"}
	if len(names) != len(want) {
		t.Fatalf("got %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("got %v, want %v", names, want)
			break
		}
	}
}
