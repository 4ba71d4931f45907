// Command f2c-create-db builds or updates the file→Kconfig/module/author
// index database for one or more kernel branches.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path"
	"path/filepath"

	"github.com/suse/f2c/internal/authors"
	"github.com/suse/f2c/internal/cliopts"
	"github.com/suse/f2c/internal/config"
	"github.com/suse/f2c/internal/gitrepo"
	"github.com/suse/f2c/internal/globpat"
	"github.com/suse/f2c/internal/kbuild"
	"github.com/suse/f2c/internal/kconfigtree"
	"github.com/suse/f2c/internal/patch"
	"github.com/suse/f2c/internal/rename"
	"github.com/suse/f2c/internal/store"
	"github.com/suse/f2c/internal/supportconf"
	"github.com/suse/f2c/internal/xlog"

	_ "modernc.org/sqlite"
)

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) int {
	cfg := config.FromEnv()

	var branches, appendBranches, seriesDefines []string
	var dest, sqlitePath, ignoredFilesPath, seriesConf string
	var force, sqliteCreate, sqliteCreateOnly bool
	var authorsDumpRefs, authorsReportUnhandled bool

	opts := cliopts.New(os.Stderr)
	opts.Repeated("branch", "NAME", &branches, "branch to (re-)index")
	opts.Repeated("append-branch", "NAME", &appendBranches, "branch to index without replacing an existing one")
	opts.String("dest", "DIR", &dest, "scratch directory for per-branch checkouts (default: $SCRATCH_AREA)")
	opts.Flag("force", &force, "replace an existing branch's facts")
	opts.String("sqlite", "PATH", &sqlitePath, "database file to write")
	opts.Flag("sqlite-create", &sqliteCreate, "create the schema if it does not exist")
	opts.Flag("sqlite-create-only", &sqliteCreateOnly, "create the schema and exit without walking any branch")
	opts.Flag("verbose", &cfg.Verbose, "enable debug logging")
	opts.Flag("quiet", &cfg.Quiet, "suppress informational logging")
	opts.String("ignored-files", "PATH", &ignoredFilesPath, "JSON list of glob patterns to exclude (optional)")
	opts.Flag("authors-dump-refs", &authorsDumpRefs, "accepted for command-line compatibility; has no effect")
	opts.Flag("authors-report-unhandled", &authorsReportUnhandled, "accepted for command-line compatibility; has no effect")
	opts.String("series-conf", "PATH", &seriesConf, "series.conf, relative to the branch worktree, to expand for patch-driven rename mining (optional)")
	opts.Repeated("series-define", "NAME", &seriesDefines, "symbol considered defined when evaluating series.conf %if blocks")

	if _, err := opts.Parse(args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		opts.Help("f2c-create-db --branch NAME [--branch NAME ...] --sqlite PATH [options]")
		return 1
	}

	log := xlog.New(os.Stderr, cfg.LogLevel())

	if dest != "" {
		cfg.ScratchArea = dest
	}
	if sqlitePath != "" {
		cfg.SqlitePath = sqlitePath
	}
	if cfg.SqlitePath == "" {
		log.Error("", 0, "--sqlite is required")
		return 1
	}

	ignored, err := loadIgnoredFiles(ignoredFilesPath)
	if err != nil {
		log.Error("", 0, "%v", err)
		return 1
	}

	db, err := sql.Open("sqlite", cfg.SqlitePath)
	if err != nil {
		log.Error("", 0, "opening %s: %v", cfg.SqlitePath, err)
		return 1
	}
	defer db.Close()

	if sqliteCreate || sqliteCreateOnly {
		if err := store.CreateSchema(db); err != nil {
			log.Error("", 0, "creating schema: %v", err)
			return 1
		}
	}
	if sqliteCreateOnly {
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	allBranches := append(append([]string{}, branches...), appendBranches...)
	forceFor := map[string]bool{}
	for _, b := range branches {
		forceFor[b] = force
	}

	defined := map[string]bool{}
	for _, name := range seriesDefines {
		defined[name] = true
	}
	series := seriesOptions{Path: seriesConf, Defined: defined}

	for _, branch := range allBranches {
		if err := indexBranch(ctx, cfg, db, branch, forceFor[branch], ignored, series, log); err != nil {
			log.Error("", 0, "branch %s: %v", branch, err)
			return 1
		}
	}

	xlog.PrintSummary(log, cfg.Quiet)
	errs, _ := log.Counts()
	if errs > 0 {
		return 1
	}
	return 0
}

func loadIgnoredFiles(path string) (*globpat.Set, error) {
	if path == "" {
		return globpat.CompileSet(nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading --ignored-files %s: %w", path, err)
	}
	var globs []string
	if err := json.Unmarshal(data, &globs); err != nil {
		return nil, fmt.Errorf("parsing --ignored-files %s: %w", path, err)
	}
	return globpat.CompileSet(globs)
}

// seriesOptions carries the optional SUSE series.conf location and its
// %if-block symbol set through to mineRenames.
type seriesOptions struct {
	Path    string
	Defined map[string]bool
}

func indexBranch(ctx context.Context, cfg config.Config, db *sql.DB, branch string, force bool, ignored *globpat.Set, series seriesOptions, log *xlog.Logger) error {
	if cfg.LinuxGit == "" {
		return fmt.Errorf("LINUX_GIT is not set")
	}
	repo := gitrepo.Open(cfg.LinuxGit)

	headSHA, err := repo.ResolveBranch(ctx, branch)
	if err != nil {
		return fmt.Errorf("resolving branch: %w", err)
	}
	versionSum, err := repo.VersionSum(ctx, headSHA)
	if err != nil {
		return fmt.Errorf("computing version sum: %w", err)
	}

	worktreeDir := gitrepo.ScratchPath(cfg.ScratchArea, branch)
	if _, err := repo.Worktree(ctx, branch, worktreeDir); err != nil {
		return fmt.Errorf("checking out worktree: %w", err)
	}
	defer repo.RemoveWorktree(ctx, worktreeDir)

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	branchID, err := store.UpsertBranch(tx, branch, headSHA, versionSum, force)
	if err == store.ErrBranchExists {
		log.Note("", 0, "branch %s already indexed, skipping (use --force to replace)", branch)
		return nil
	}
	if err != nil {
		return err
	}

	fsys := os.DirFS(worktreeDir)

	supported, err := loadSupportedConf(fsys)
	if err != nil {
		log.Warn("", 0, "reading supported.conf: %v", err)
	}

	visitor := store.NewVisitor(tx, branchID, supported, log)
	walker := kbuild.NewWalker(fsys, visitor, kbuild.WalkerOptions{
		Diagnostics: kbuild.DiagnosticFunc(func(d kbuild.Diagnostic) {
			log.Warn("", 0, "%s", d.String())
		}),
		Verbose: cfg.Verbose,
		Notef: func(format string, args ...interface{}) {
			log.Note("", 0, format, args...)
		},
	})
	walker.Run()

	if err := visitor.Err(); err != nil {
		return fmt.Errorf("aborting branch %s: %w", branch, err)
	}

	if err := recordIgnoredFiles(fsys, visitor, ignored, log); err != nil {
		log.Warn("", 0, "recording ignored files: %v", err)
	}
	if err := mineAuthors(ctx, visitor, branch, worktreeDir, ignored, log); err != nil {
		log.Warn("", 0, "authors mining: %v", err)
	}
	if err := mineRenames(ctx, visitor, repo, worktreeDir, fsys, series, log); err != nil {
		log.Warn("", 0, "rename mining: %v", err)
	}
	if err := collectConfigs(fsys, visitor); err != nil {
		log.Warn("", 0, "collecting configs: %v", err)
	}

	// A DatabaseIOFailure from any collaborator staged after the walk must
	// also abort the commit — a partially-written branch is worse than a
	// missing one.
	if err := visitor.Err(); err != nil {
		return fmt.Errorf("aborting branch %s: %w", branch, err)
	}

	return tx.Commit()
}

// loadSupportedConf reads supported.conf from the branch worktree, the way
// the original reads it out of the branch's commit directly rather than
// from a CLI-supplied path. A missing file means the branch carries no
// support classification; module_details_map is then left at
// supportconf.Unlisted for every module.
func loadSupportedConf(fsys fs.FS) (*supportconf.Conf, error) {
	f, err := fsys.Open("supported.conf")
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()
	return supportconf.Parse(f)
}

// collectConfigs walks the worktree's config/<arch>/<flavor> files and
// records every CONFIG_* value into conf_branch_map.
func collectConfigs(fsys fs.FS, visitor *store.Visitor) error {
	values, err := kconfigtree.Collect(fsys)
	if err != nil {
		return err
	}
	for _, val := range values {
		if err := visitor.RecordConfigValue(val.Arch, val.Flavor, val.Config, val.Value); err != nil {
			return err
		}
	}
	return nil
}

func recordIgnoredFiles(fsys fs.FS, visitor *store.Visitor, ignored *globpat.Set, log *xlog.Logger) error {
	if ignored == nil {
		return nil
	}
	return fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		if !ignored.Matches(p) {
			return nil
		}
		if err := visitor.RecordIgnoredFile(p); err != nil {
			log.Warn(p, 0, "%v", err)
		}
		return nil
	})
}

// mineAuthors is a best-effort pass: a git-log failure for one file does
// not invalidate the Kconfig/module facts already staged in the same
// transaction.
func mineAuthors(ctx context.Context, visitor *store.Visitor, branch, worktreeDir string, ignored *globpat.Set, log *xlog.Logger) error {
	return filepath.WalkDir(worktreeDir, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(worktreeDir, p)
		if err != nil {
			return nil
		}
		if ignored != nil && ignored.Matches(rel) {
			return nil
		}
		entries, err := authors.Mine(ctx, worktreeDir, branch, rel, 50)
		if err != nil {
			log.Warn(rel, 0, "authors: %v", err)
			return nil
		}
		for _, e := range entries {
			if err := visitor.RecordAuthor(e.Email, rel, e.Count, e.CountNoFixes); err != nil {
				log.Warn(rel, 0, "%v", err)
			}
		}
		return nil
	})
}

func mineRenames(ctx context.Context, visitor *store.Visitor, repo *gitrepo.Repo, worktreeDir string, fsys fs.FS, series seriesOptions, log *xlog.Logger) error {
	var entries []rename.Entry

	tags, err := repo.Tags(ctx)
	if err != nil {
		return fmt.Errorf("listing tags: %w", err)
	}
	if len(tags) >= 2 {
		tagEntries, err := rename.Mine(ctx, worktreeDir, tags)
		if err != nil {
			return fmt.Errorf("mining renames: %w", err)
		}
		entries = append(entries, tagEntries...)
	}
	tagEntryCount := len(entries)

	if series.Path != "" {
		patchEntries, err := minePatchRenames(fsys, series, log)
		if err != nil {
			log.Warn("", 0, "series.conf rename mining: %v", err)
		} else {
			entries = append(entries, patchEntries...)
		}
	}

	for i, e := range entries {
		// A rename below git's own high-confidence band that also fails
		// content corroboration is more likely two unrelated files than a
		// real rename; drop it rather than pollute rename_file_version_map.
		// Patch-derived entries come from an explicit diff header, not a
		// heuristic, so this filter never applies to them.
		if i < tagEntryCount && e.Similarity < 90 && !e.ContentMatch {
			log.Note(e.NewFile, 0, "dropping low-confidence rename from %s (similarity %d, content mismatch)", e.OldFile, e.Similarity)
			continue
		}
		if err := visitor.RecordRename(e.Version, e.Similarity, e.OldFile, e.NewFile); err != nil {
			log.Warn(e.NewFile, 0, "%v", err)
		}
	}
	return nil
}

// minePatchRenames expands series.Path via internal/patch and extracts
// rename headers from each enabled patch, feeding internal/rename's
// version diffing from the patch series instead of git tag ranges.
func minePatchRenames(fsys fs.FS, series seriesOptions, log *xlog.Logger) ([]rename.Entry, error) {
	enabled, err := patch.Expand(fsys, series.Path, series.Defined)
	if err != nil {
		return nil, err
	}
	log.Note("", 0, "series.conf %s: %d enabled patches", series.Path, len(enabled))

	seriesDir := path.Dir(series.Path)
	patches := make([]string, len(enabled))
	for i, p := range enabled {
		patches[i] = path.Join(seriesDir, p)
	}
	return rename.MineFromPatches(fsys, patches)
}
