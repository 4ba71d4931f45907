// Package gitrepo fetches and inspects a Linux kernel git checkout by
// shelling out to the git binary, the way toolsupport/watchmanutil and
// friends wrap an external tool through os/exec rather than reimplementing
// its wire protocol.
package gitrepo

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/suse/f2c/internal/kbuild"
)

// Repo is a checked-out (or bare) clone of LINUX_GIT, rooted at Dir.
type Repo struct {
	Dir string
}

// Open returns a Repo rooted at dir without touching the filesystem; the
// directory is assumed to already be a git repository (LINUX_GIT itself,
// or a worktree cloned from it).
func Open(dir string) *Repo {
	return &Repo{Dir: dir}
}

func (r *Repo) git(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.Dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("gitrepo: git %s: %w: %s", strings.Join(args, " "), err, stderr.String())
	}
	return strings.TrimRight(stdout.String(), "\n"), nil
}

// ResolveBranch resolves branchName to its current head commit SHA.
func (r *Repo) ResolveBranch(ctx context.Context, branchName string) (headSHA string, err error) {
	return r.git(ctx, "rev-parse", branchName)
}

// Worktree checks out branchName into destDir (removing any prior contents
// there is the caller's job — this only runs the checkout), returning the
// worktree path.
func (r *Repo) Worktree(ctx context.Context, branchName, destDir string) (string, error) {
	if _, err := r.git(ctx, "worktree", "add", "--force", destDir, branchName); err != nil {
		return "", err
	}
	return destDir, nil
}

// RemoveWorktree detaches destDir from r's worktree list.
func (r *Repo) RemoveWorktree(ctx context.Context, destDir string) error {
	_, err := r.git(ctx, "worktree", "remove", "--force", destDir)
	return err
}

var versionLineRE = regexp.MustCompile(`(?m)^(VERSION|PATCHLEVEL|SUBLEVEL|EXTRAVERSION)\s*=\s*(.*)$`)

// VersionSum reads the VERSION/PATCHLEVEL/SUBLEVEL/EXTRAVERSION lines from
// the top-level Makefile at ref and returns a stable hash of them, used as
// the branch table's version_sum column.
func (r *Repo) VersionSum(ctx context.Context, ref string) (string, error) {
	content, err := r.git(ctx, "show", ref+":Makefile")
	if err != nil {
		return "", fmt.Errorf("gitrepo: reading Makefile at %s: %w", ref, err)
	}

	fields := map[string]string{}
	for _, m := range versionLineRE.FindAllStringSubmatch(content, -1) {
		if _, ok := fields[m[1]]; !ok { // first occurrence wins, matching make's line order
			fields[m[1]] = strings.TrimSpace(m[2])
		}
	}

	h := sha256.New()
	for _, key := range []string{"VERSION", "PATCHLEVEL", "SUBLEVEL", "EXTRAVERSION"} {
		fmt.Fprintf(h, "%s=%s\n", key, fields[key])
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Tags returns every repository tag whose name starts with "v" (release
// tags such as v6.1 as well as v6.1-rc1), sorted by release order rather than
// by refname. git's own "--list" order is alphabetical, which sorts "v6.10"
// before "v6.2"; release order requires comparing the numeric components,
// the way SlHelpers::CmpVersions does in the original implementation.
func (r *Repo) Tags(ctx context.Context) ([]string, error) {
	out, err := r.git(ctx, "tag", "--list", "v*")
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	tags := strings.Split(out, "\n")
	sort.Slice(tags, func(i, j int) bool {
		return compareVersions(tags[i], tags[j]) < 0
	})
	return tags, nil
}

// compareVersions compares two "vMAJOR.MINOR[.PATCH][-EXTRA]" tags
// component-by-component, treating each dot-separated run of digits as a
// number rather than a string, so "v6.2" sorts before "v6.10". Components
// that aren't purely numeric (e.g. a trailing "-rc1") fall back to a plain
// string comparison of that component only.
func compareVersions(a, b string) int {
	ca, cb := versionComponents(a), versionComponents(b)
	for i := 0; i < len(ca) || i < len(cb); i++ {
		var na, nb string
		if i < len(ca) {
			na = ca[i]
		}
		if i < len(cb) {
			nb = cb[i]
		}
		if na == nb {
			continue
		}
		ia, errA := strconv.Atoi(na)
		ib, errB := strconv.Atoi(nb)
		if errA == nil && errB == nil {
			if ia != ib {
				if ia < ib {
					return -1
				}
				return 1
			}
			continue
		}
		if na < nb {
			return -1
		}
		return 1
	}
	return 0
}

func versionComponents(tag string) []string {
	tag = strings.TrimPrefix(tag, "v")
	return strings.FieldsFunc(tag, func(r rune) bool {
		return r == '.' || r == '-'
	})
}

// ParentCount returns the number of parents sha has: 0 for a root commit,
// 1 for an ordinary commit, 2+ for a merge.
func (r *Repo) ParentCount(ctx context.Context, sha string) (int, error) {
	out, err := r.git(ctx, "show", "--no-patch", "--format=%P", sha)
	if err != nil {
		return 0, err
	}
	if out == "" {
		return 0, nil
	}
	return len(strings.Fields(out)), nil
}

// FilesChanged returns the set of paths touched by commit sha, via
// `git show --name-only --format=`. Per the design's MergeCommitOnQuery
// kind, a merge commit (more than one parent) is skipped rather than
// diffed against either parent.
func (r *Repo) FilesChanged(ctx context.Context, sha string) ([]string, error) {
	parents, err := r.ParentCount(ctx, sha)
	if err != nil {
		return nil, err
	}
	if parents > 1 {
		return nil, &kbuild.MergeCommitOnQuery{SHA: sha}
	}

	out, err := r.git(ctx, "show", "--name-only", "--format=", sha)
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

// ScratchPath joins base with a branch-derived subdirectory name, sanitizing
// slashes in branch names like "stable/6.1" into a flat, filesystem-safe
// directory name.
func ScratchPath(base, branch string) string {
	safe := strings.ReplaceAll(branch, "/", "_")
	return filepath.Join(base, safe)
}
