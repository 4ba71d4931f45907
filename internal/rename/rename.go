// Package rename mines "git log --find-renames --name-status" across a
// branch's release tags into (version, similarity, oldfile, newfile)
// triples for rename_file_version_map.
package rename

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os/exec"
	"path"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Entry is one detected rename between two adjacent tags.
type Entry struct {
	Version    string // the newer tag the rename was observed at
	Similarity int    // 0..100, as reported by git's -M detector
	OldFile    string
	NewFile    string

	// ContentMatch corroborates Similarity with a blake2b hash of both
	// blobs' actual content, independent of git's own line-based detector.
	ContentMatch bool
}

// renameLineRE matches a --name-status --find-renames "R<pct>\told\tnew"
// line, e.g. "R087\tdrivers/net/old.c\tdrivers/net/new.c".
var renameLineRE = regexp.MustCompile(`^R(\d+)\t([^\t]+)\t([^\t]+)$`)

// Mine runs, for each pair of adjacent tags in versions (oldest first),
// `git log --find-renames --name-status oldTag..newTag` and collects every
// reported rename, tagged with newTag as Version.
func Mine(ctx context.Context, repoDir string, versions []string) ([]Entry, error) {
	var all []Entry
	for i := 1; i < len(versions); i++ {
		oldTag, newTag := versions[i-1], versions[i]
		entries, err := mineRange(ctx, repoDir, oldTag, newTag)
		if err != nil {
			return nil, err
		}
		all = append(all, entries...)
	}
	return all, nil
}

func mineRange(ctx context.Context, repoDir, oldTag, newTag string) ([]Entry, error) {
	rangeSpec := oldTag + ".." + newTag
	cmd := exec.CommandContext(ctx, "git", "log", "--find-renames", "--name-status", "--format=", rangeSpec)
	cmd.Dir = repoDir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("rename: git log %s: %w: %s", rangeSpec, err, stderr.String())
	}
	entries, err := parseRenames(&stdout, newTag)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].ContentMatch = corroborate(ctx, repoDir, oldTag, newTag, entries[i])
	}
	return entries, nil
}

// corroborate independently checks a git-reported rename by hashing both
// blobs' content with blake2b: a false-positive rename detection (two
// unrelated files that happen to cross git's similarity threshold) hashes
// differently even when Similarity is reported high.
func corroborate(ctx context.Context, repoDir, oldTag, newTag string, e Entry) bool {
	oldContent, err := blobContent(ctx, repoDir, oldTag, e.OldFile)
	if err != nil {
		return false
	}
	newContent, err := blobContent(ctx, repoDir, newTag, e.NewFile)
	if err != nil {
		return false
	}
	return SameContent(oldContent, newContent)
}

func blobContent(ctx context.Context, repoDir, ref, path string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", "show", ref+":"+path)
	cmd.Dir = repoDir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("rename: git show %s:%s: %w: %s", ref, path, err, stderr.String())
	}
	return stdout.Bytes(), nil
}

var (
	renameFromRE      = regexp.MustCompile(`^rename from (.+)$`)
	renameToRE        = regexp.MustCompile(`^rename to (.+)$`)
	similarityIndexRE = regexp.MustCompile(`^similarity index (\d+)%$`)
)

// MineFromPatches reads each enabled patch out of patches (as returned by
// patch.Expand) and extracts unified-diff "rename from"/"rename to"
// header pairs, tagging every detected rename with the patch's own base
// name as Version — this is internal/patch's expanded series feeding
// internal/rename's version diffing directly from a patch's own diff
// headers, rather than from git tag ranges.
func MineFromPatches(fsys fs.FS, patches []string) ([]Entry, error) {
	var all []Entry
	for _, p := range patches {
		entries, err := mineOnePatch(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("rename: mining %s: %w", p, err)
		}
		all = append(all, entries...)
	}
	return all, nil
}

func mineOnePatch(fsys fs.FS, patchPath string) ([]Entry, error) {
	f, err := fsys.Open(patchPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	version := strings.TrimSuffix(path.Base(patchPath), path.Ext(patchPath))

	var entries []Entry
	var pendingOld string
	similarity := 100
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if m := similarityIndexRE.FindStringSubmatch(line); m != nil {
			similarity, _ = strconv.Atoi(m[1])
			continue
		}
		if m := renameFromRE.FindStringSubmatch(line); m != nil {
			pendingOld = m[1]
			continue
		}
		if m := renameToRE.FindStringSubmatch(line); m != nil && pendingOld != "" {
			entries = append(entries, Entry{
				Version:    version,
				Similarity: similarity,
				OldFile:    pendingOld,
				NewFile:    m[1],
			})
			pendingOld = ""
			similarity = 100
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func parseRenames(r io.Reader, version string) ([]Entry, error) {
	var entries []Entry
	seen := map[[2]string]bool{} // (old,new) already reported for this version
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		m := renameLineRE.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		similarity, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		key := [2]string{m[2], m[3]}
		if seen[key] {
			continue
		}
		seen[key] = true
		entries = append(entries, Entry{Version: normalizeVersion(version), Similarity: similarity, OldFile: m[2], NewFile: m[3]})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("rename: scanning git log output: %w", err)
	}
	return entries, nil
}

// ContentKey hashes a file's blob content into a fixed-size fingerprint
// used to corroborate a name-based rename detection with a content-based
// one when git's similarity index alone is ambiguous (e.g. two candidate
// old names above the same similarity threshold).
func ContentKey(content []byte) [32]byte {
	return blake2b.Sum256(content)
}

// SameContent reports whether two blobs hash identically under
// ContentKey, i.e. a pure rename with no edits.
func SameContent(a, b []byte) bool {
	ka, kb := ContentKey(a), ContentKey(b)
	return ka == kb
}

func normalizeVersion(v string) string {
	return strings.TrimPrefix(v, "v")
}
