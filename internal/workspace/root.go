package workspace

import (
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/macbundler/internal/errors"
	git "github.com/go-git/go-git/v5"
)

// looksLikeRoot reports whether dir contains the three project
// subdirectories.
func looksLikeRoot(dir string) bool {
	for _, name := range []string{FrontendDirName, BackendDirName, WrapperDirName} {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil || !info.IsDir() {
			return false
		}
	}
	return true
}

// FindRoot locates the project root: the working directory if it qualifies,
// otherwise the nearest qualifying ancestor, otherwise the enclosing git
// worktree root.
func FindRoot() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", errors.FilesystemError("resolve working directory", err)
	}

	for dir := cwd; ; dir = filepath.Dir(dir) {
		if looksLikeRoot(dir) {
			return dir, nil
		}
		if filepath.Dir(dir) == dir {
			break
		}
	}

	if root, ok := gitWorktreeRoot(cwd); ok && looksLikeRoot(root) {
		return root, nil
	}

	return "", errors.ConfigError("root",
		"could not locate the project root; run from the repository or pass --root")
}

// gitWorktreeRoot returns the root of the git worktree enclosing dir.
func gitWorktreeRoot(dir string) (string, bool) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", false
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", false
	}
	return wt.Filesystem.Root(), true
}

// HeadCommit returns the abbreviated commit hash of the repository at root,
// or an empty string when the root is not a git worktree. Used to annotate
// build history rows; never fatal.
func HeadCommit(root string) string {
	repo, err := git.PlainOpenWithOptions(root, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return ""
	}
	head, err := repo.Head()
	if err != nil {
		return ""
	}
	return head.Hash().String()[:12]
}
