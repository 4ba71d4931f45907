// Command f2c-query answers "which Kconfig symbol/module owns this file
// (or the file touched by this commit)" against a database built by
// f2c-create-db.
package main

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/suse/f2c/internal/cliopts"
	"github.com/suse/f2c/internal/config"
	"github.com/suse/f2c/internal/dbfetch"
	"github.com/suse/f2c/internal/gitrepo"
	"github.com/suse/f2c/internal/kbuild"
	"github.com/suse/f2c/internal/xlog"

	_ "modernc.org/sqlite"
)

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stdin))
}

func run(args []string, stdout, stdin *os.File) int {
	cfg := config.FromEnv()

	var branch, sqlitePath, kernelTree string
	var files, shas []string
	var showModule, refresh bool

	opts := cliopts.New(os.Stderr)
	opts.String("branch", "NAME", &branch, "branch to query (required)")
	opts.Repeated("file", "PATH", &files, "file to look up (repeatable)")
	opts.Repeated("sha", "SHA", &shas, "commit sha to look up files for (repeatable; '-' means stdin)")
	opts.Flag("module", &showModule, "include the module column when one exists")
	opts.String("kernel-tree", "PATH", &kernelTree, "kernel tree to resolve commit shas against")
	opts.String("sqlite", "PATH", &sqlitePath, "database file to read")
	opts.Flag("refresh", &refresh, "force re-download of the cached database")

	if _, err := opts.Parse(args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		opts.Help("f2c-query --branch NAME [--file PATH ...] [--sha SHA ...] [options]")
		return 1
	}

	log := xlog.New(os.Stderr, cfg.LogLevel())

	if branch == "" {
		log.Error("", 0, "--branch is required")
		return 1
	}
	if sqlitePath != "" {
		cfg.SqlitePath = sqlitePath
	}
	if cfg.SqlitePath == "" {
		log.Error("", 0, "--sqlite is required")
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if cfg.DatabaseURL != "" && dbfetch.ShouldRefresh(cfg.SqlitePath, refresh) {
		if err := dbfetch.Fetch(ctx, cfg.DatabaseURL, cfg.SqlitePath); err != nil {
			log.Error("", 0, "fetching database: %v", err)
			return 1
		}
	}

	db, err := sql.Open("sqlite", cfg.SqlitePath)
	if err != nil {
		log.Error("", 0, "opening %s: %v", cfg.SqlitePath, err)
		return 1
	}
	defer db.Close()

	targets := append([]string{}, files...)
	for _, sha := range shas {
		fromSHA, err := filesForSHA(sha, kernelTree, stdin, log)
		if err != nil {
			log.Error("", 0, "%v", err)
			return 1
		}
		targets = append(targets, fromSHA...)
	}

	if len(targets) == 0 {
		log.Error("", 0, "nothing to query: pass --file or --sha")
		return 1
	}

	w := bufio.NewWriter(stdout)
	defer w.Flush()

	found := true
	for _, file := range targets {
		if !queryOne(db, branch, file, showModule, w) {
			found = false
		}
	}
	if !found {
		return 1
	}
	return 0
}

func queryOne(db *sql.DB, branch, file string, showModule bool, w *bufio.Writer) bool {
	row := db.QueryRow(`
		SELECT c.symbol
		FROM conf_file_map cfm
		JOIN branch b ON b.id = cfm.branch_ref
		JOIN config c ON c.id = cfm.config_ref
		JOIN file f ON f.id = cfm.file_ref
		JOIN dir d ON d.id = f.dir_ref
		WHERE b.name = ? AND (d.path || '/' || f.name) = ?
	`, branch, file)

	var symbol string
	if err := row.Scan(&symbol); err != nil {
		fmt.Fprintf(w, "%s ?\n", file)
		return false
	}

	line := fmt.Sprintf("%s %s", file, symbol)
	if showModule {
		var moduleName, moduleDir string
		modRow := db.QueryRow(`
			SELECT d.path, m.name
			FROM module_file_map mfm
			JOIN branch b ON b.id = mfm.branch_ref
			JOIN module m ON m.id = mfm.module_ref
			JOIN dir d ON d.id = m.dir_ref
			JOIN file f ON f.id = mfm.file_ref
			JOIN dir fd ON fd.id = f.dir_ref
			WHERE b.name = ? AND (fd.path || '/' || f.name) = ?
		`, branch, file)
		if err := modRow.Scan(&moduleDir, &moduleName); err == nil {
			line += " " + moduleDir + "/" + moduleName
		}
	}
	fmt.Fprintln(w, line)
	return true
}

// filesForSHA resolves a commit sha to the list of files it touches, by
// invoking `git show --name-only` against kernelTree. sha == "-" reads
// newline-separated shas from stdin instead of taking a single argument.
// A merge commit is not an error: per §7's MergeCommitOnQuery recovery, it
// is logged as a warning and skipped.
func filesForSHA(sha, kernelTree string, stdin *os.File, log *xlog.Logger) ([]string, error) {
	if kernelTree == "" {
		return nil, fmt.Errorf("--kernel-tree is required to resolve --sha")
	}
	if sha == "-" {
		var shas []string
		scanner := bufio.NewScanner(stdin)
		for scanner.Scan() {
			line := scanner.Text()
			if line != "" {
				shas = append(shas, line)
			}
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("reading shas from stdin: %w", err)
		}
		var all []string
		for _, s := range shas {
			files, err := filesTouchedByOrSkip(kernelTree, s, log)
			if err != nil {
				return nil, err
			}
			all = append(all, files...)
		}
		return all, nil
	}
	return filesTouchedByOrSkip(kernelTree, sha, log)
}

// filesTouchedByOrSkip wraps filesTouchedBy, converting a MergeCommitOnQuery
// into a logged warning and an empty result instead of an error.
func filesTouchedByOrSkip(kernelTree, sha string, log *xlog.Logger) ([]string, error) {
	files, err := filesTouchedBy(kernelTree, sha)
	var merge *kbuild.MergeCommitOnQuery
	if errors.As(err, &merge) {
		log.Warn(sha, 0, "%v", merge)
		return nil, nil
	}
	return files, err
}

func filesTouchedBy(kernelTree, sha string) ([]string, error) {
	repo := gitrepo.Open(kernelTree)
	return repo.FilesChanged(context.Background(), sha)
}
