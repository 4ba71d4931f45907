package store

import (
	"database/sql"
	"fmt"
	"path"
	"strings"

	"github.com/suse/f2c/internal/kbuild"
	"github.com/suse/f2c/internal/supportconf"
	"github.com/suse/f2c/internal/xlog"
)

// excludedTopLevelDirs holds the first-path-component names the source
// filter drops even though they contain .c files, per the design's
// "no Documentation/samples/tools" rule.
var excludedTopLevelDirs = map[string]bool{
	"Documentation": true,
	"samples":       true,
	"tools":         true,
}

// interesting applies the source filter: only .c files outside the
// excluded top-level directories are persisted. Config and Module both
// apply it, so .S and .rs sources reach neither conf_file_map nor
// module_file_map, matching the filter's ".c only" rule.
func interesting(sourcePath string) bool {
	if !strings.HasSuffix(sourcePath, ".c") {
		return false
	}
	top := kbuild.TopLevelComponent(sourcePath)
	return !excludedTopLevelDirs[top]
}

// Visitor implements kbuild.Visitor against one branch's transaction. It
// resolves (and lazily creates) dir/file/config/module rows as facts
// arrive, and is not safe for concurrent use — one Visitor per branch's
// single-threaded walk, matching §5's "fresh resolver instance per branch."
type Visitor struct {
	tx       *sql.Tx
	log      *xlog.Logger
	branchID int64

	// supported classifies module paths for module_details_map. It is
	// nil when the branch has no supported.conf, matching --ignored-files'
	// "always optional" convention.
	supported *supportconf.Conf

	dirIDs    map[string]int64
	fileIDs   map[string]int64
	configIDs map[string]int64
	moduleIDs map[string]int64
	archIDs   map[string]int64
	flavorIDs map[string]int64

	// firstErr is set the first time a database operation returns a
	// DatabaseIOFailure. kbuild.Visitor's Config/Module methods have no
	// error return, so this is how that failure reaches indexBranch, which
	// must abort the transaction instead of committing over it (§7).
	firstErr error
}

// Err returns the first DatabaseIOFailure recorded by Config or Module, or
// nil if none occurred. Callers check this after Walker.Run to decide
// whether to commit or roll back the branch's transaction.
func (v *Visitor) Err() error { return v.firstErr }

// classifyDBErr maps a raw database/sql error to the closed error-kind
// taxonomy: a unique-constraint violation is an idempotent insert racing
// itself and is treated as success, everything else is a DatabaseIOFailure
// that must propagate.
func classifyDBErr(v *Visitor, op string, err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "UNIQUE constraint") {
		v.log.Warn("", 0, "%v", &kbuild.DatabaseConstraintViolation{Table: op, Err: err})
		return nil
	}
	return &kbuild.DatabaseIOFailure{Op: op, Err: err}
}

// NewVisitor returns a Visitor writing into tx on behalf of branchID.
// supported may be nil, in which case every module_details_map row for
// this branch is left at supportconf.Unlisted.
func NewVisitor(tx *sql.Tx, branchID int64, supported *supportconf.Conf, log *xlog.Logger) *Visitor {
	return &Visitor{
		tx:        tx,
		log:       log,
		branchID:  branchID,
		supported: supported,
		dirIDs:    map[string]int64{},
		fileIDs:   map[string]int64{},
		configIDs: map[string]int64{},
		moduleIDs: map[string]int64{},
		archIDs:   map[string]int64{},
		flavorIDs: map[string]int64{},
	}
}

func (v *Visitor) dirID(dirPath string) (int64, error) {
	if id, ok := v.dirIDs[dirPath]; ok {
		return id, nil
	}
	if _, err := v.tx.Exec(`INSERT OR IGNORE INTO dir(path) VALUES (?)`, dirPath); err != nil {
		if kerr := classifyDBErr(v, "dir", err); kerr != nil {
			return 0, kerr
		}
	}
	var id int64
	if err := v.tx.QueryRow(`SELECT id FROM dir WHERE path = ?`, dirPath).Scan(&id); err != nil {
		return 0, &kbuild.DatabaseIOFailure{Op: "dir lookup", Err: err}
	}
	v.dirIDs[dirPath] = id
	return id, nil
}

func (v *Visitor) fileID(filePath string) (int64, error) {
	if id, ok := v.fileIDs[filePath]; ok {
		return id, nil
	}
	dirID, err := v.dirID(path.Dir(filePath))
	if err != nil {
		return 0, err
	}
	name := path.Base(filePath)
	if _, err := v.tx.Exec(`INSERT OR IGNORE INTO file(name, dir_ref) VALUES (?, ?)`, name, dirID); err != nil {
		if kerr := classifyDBErr(v, "file", err); kerr != nil {
			return 0, kerr
		}
	}
	var id int64
	if err := v.tx.QueryRow(`SELECT id FROM file WHERE name = ? AND dir_ref = ?`, name, dirID).Scan(&id); err != nil {
		return 0, &kbuild.DatabaseIOFailure{Op: "file lookup", Err: err}
	}
	v.fileIDs[filePath] = id
	return id, nil
}

func (v *Visitor) configID(symbol string) (int64, error) {
	if id, ok := v.configIDs[symbol]; ok {
		return id, nil
	}
	if _, err := v.tx.Exec(`INSERT OR IGNORE INTO config(symbol) VALUES (?)`, symbol); err != nil {
		if kerr := classifyDBErr(v, "config", err); kerr != nil {
			return 0, kerr
		}
	}
	var id int64
	if err := v.tx.QueryRow(`SELECT id FROM config WHERE symbol = ?`, symbol).Scan(&id); err != nil {
		return 0, &kbuild.DatabaseIOFailure{Op: "config lookup", Err: err}
	}
	v.configIDs[symbol] = id
	return id, nil
}

func (v *Visitor) moduleID(moduleObject string) (int64, error) {
	if id, ok := v.moduleIDs[moduleObject]; ok {
		return id, nil
	}
	dirID, err := v.dirID(path.Dir(moduleObject))
	if err != nil {
		return 0, err
	}
	name := path.Base(moduleObject)
	if _, err := v.tx.Exec(`INSERT OR IGNORE INTO module(dir_ref, name) VALUES (?, ?)`, dirID, name); err != nil {
		if kerr := classifyDBErr(v, "module", err); kerr != nil {
			return 0, kerr
		}
	}
	var id int64
	if err := v.tx.QueryRow(`SELECT id FROM module WHERE dir_ref = ? AND name = ?`, dirID, name).Scan(&id); err != nil {
		return 0, &kbuild.DatabaseIOFailure{Op: "module lookup", Err: err}
	}
	v.moduleIDs[moduleObject] = id
	return id, nil
}

func (v *Visitor) archID(name string) (int64, error) {
	if id, ok := v.archIDs[name]; ok {
		return id, nil
	}
	if _, err := v.tx.Exec(`INSERT OR IGNORE INTO arch(name) VALUES (?)`, name); err != nil {
		if kerr := classifyDBErr(v, "arch", err); kerr != nil {
			return 0, kerr
		}
	}
	var id int64
	if err := v.tx.QueryRow(`SELECT id FROM arch WHERE name = ?`, name).Scan(&id); err != nil {
		return 0, &kbuild.DatabaseIOFailure{Op: "arch lookup", Err: err}
	}
	v.archIDs[name] = id
	return id, nil
}

func (v *Visitor) flavorID(name string) (int64, error) {
	if id, ok := v.flavorIDs[name]; ok {
		return id, nil
	}
	if _, err := v.tx.Exec(`INSERT OR IGNORE INTO flavor(name) VALUES (?)`, name); err != nil {
		if kerr := classifyDBErr(v, "flavor", err); kerr != nil {
			return 0, kerr
		}
	}
	var id int64
	if err := v.tx.QueryRow(`SELECT id FROM flavor WHERE name = ?`, name).Scan(&id); err != nil {
		return 0, &kbuild.DatabaseIOFailure{Op: "flavor lookup", Err: err}
	}
	v.flavorIDs[name] = id
	return id, nil
}

// Config implements kbuild.Visitor: it records (branch, config, file) in
// conf_file_map. Re-inserting the same tuple is a no-op, per the design's
// unique-constraint round-trip guarantee.
func (v *Visitor) Config(source, cond string) {
	if !interesting(source) {
		return
	}
	fileID, err := v.fileID(source)
	if err != nil {
		v.log.Error(source, 0, "%v", err)
		v.recordErr(err)
		return
	}
	configID, err := v.configID(cond)
	if err != nil {
		v.log.Error(source, 0, "%v", err)
		v.recordErr(err)
		return
	}
	if _, err := v.tx.Exec(
		`INSERT OR IGNORE INTO conf_file_map(branch_ref, config_ref, file_ref) VALUES (?, ?, ?)`,
		v.branchID, configID, fileID,
	); err != nil {
		if kerr := classifyDBErr(v, "conf_file_map", err); kerr != nil {
			v.log.Error(source, 0, "%v", kerr)
			v.recordErr(kerr)
		}
	}
}

// recordErr keeps the first DatabaseIOFailure seen; later ones are logged
// but do not overwrite it, so Err() always reports the failure that first
// made the branch's transaction unsafe to commit.
func (v *Visitor) recordErr(err error) {
	if v.firstErr == nil {
		v.firstErr = err
	}
}

// Module implements kbuild.Visitor: it records (branch, module, file) in
// module_file_map.
func (v *Visitor) Module(source, moduleObject string) {
	if !interesting(source) {
		return
	}
	fileID, err := v.fileID(source)
	if err != nil {
		v.log.Error(source, 0, "%v", err)
		v.recordErr(err)
		return
	}
	moduleID, err := v.moduleID(moduleObject)
	if err != nil {
		v.log.Error(source, 0, "%v", err)
		v.recordErr(err)
		return
	}
	if _, err := v.tx.Exec(
		`INSERT OR IGNORE INTO module_file_map(branch_ref, module_ref, file_ref) VALUES (?, ?, ?)`,
		v.branchID, moduleID, fileID,
	); err != nil {
		if kerr := classifyDBErr(v, "module_file_map", err); kerr != nil {
			v.log.Error(source, 0, "%v", kerr)
			v.recordErr(kerr)
		}
	}

	supportState := v.supported.State(moduleObject)
	if _, err := v.tx.Exec(
		`INSERT INTO module_details_map(branch_ref, module_ref, supported) VALUES (?, ?, ?)
		 ON CONFLICT(branch_ref, module_ref) DO UPDATE SET supported = excluded.supported`,
		v.branchID, moduleID, supportState,
	); err != nil {
		if kerr := classifyDBErr(v, "module_details_map", err); kerr != nil {
			v.log.Error(source, 0, "%v", kerr)
			v.recordErr(kerr)
		}
	}
}

// Ignored implements kbuild.Visitor: it is diagnostic-only, matching the
// design's VisitedCollision kind, which is logged but never persisted.
func (v *Visitor) Ignored(objectPath, cond string) {
	v.log.Warn(objectPath, 0, "%s (condition %q)", kbuild.VisitedCollision{Path: objectPath}, cond)
}

func (v *Visitor) userID(email string) (int64, error) {
	if _, err := v.tx.Exec(`INSERT OR IGNORE INTO user(email) VALUES (?)`, email); err != nil {
		return 0, fmt.Errorf("store: insert user %q: %w", email, err)
	}
	var id int64
	if err := v.tx.QueryRow(`SELECT id FROM user WHERE email = ?`, email).Scan(&id); err != nil {
		return 0, fmt.Errorf("store: lookup user %q: %w", email, err)
	}
	return id, nil
}

// RecordAuthor upserts one user_file_map row for filePath, unconditional
// of the .c-only source filter: authors mining covers every file kind a
// branch touches, not just Kconfig sources.
func (v *Visitor) RecordAuthor(email, filePath string, count, countNoFixes int) error {
	fileID, err := v.fileID(filePath)
	if err != nil {
		return err
	}
	userID, err := v.userID(email)
	if err != nil {
		return err
	}
	_, err = v.tx.Exec(
		`INSERT INTO user_file_map(branch_ref, user_ref, file_ref, count, count_no_fixes) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(branch_ref, user_ref, file_ref) DO UPDATE SET count = excluded.count, count_no_fixes = excluded.count_no_fixes`,
		v.branchID, userID, fileID, count, countNoFixes,
	)
	if err != nil {
		return fmt.Errorf("store: user_file_map insert for %s/%s: %w", email, filePath, err)
	}
	return nil
}

// RecordRename inserts one rename_file_version_map row. Re-inserting the
// same (version, oldfile, newfile) tuple is a no-op.
func (v *Visitor) RecordRename(version string, similarity int, oldFile, newFile string) error {
	oldID, err := v.fileID(oldFile)
	if err != nil {
		return err
	}
	newID, err := v.fileID(newFile)
	if err != nil {
		return err
	}
	_, err = v.tx.Exec(
		`INSERT OR IGNORE INTO rename_file_version_map(version, similarity, oldfile_ref, newfile_ref) VALUES (?, ?, ?, ?)`,
		version, similarity, oldID, newID,
	)
	if err != nil {
		return fmt.Errorf("store: rename_file_version_map insert %s->%s: %w", oldFile, newFile, err)
	}
	return nil
}

// RecordConfigValue upserts one conf_branch_map row: the value a given
// (arch, flavor) build's .config file assigns to config, for this branch.
func (v *Visitor) RecordConfigValue(arch, flavor, config, value string) error {
	archID, err := v.archID(arch)
	if err != nil {
		return err
	}
	flavorID, err := v.flavorID(flavor)
	if err != nil {
		return err
	}
	configID, err := v.configID(config)
	if err != nil {
		return err
	}
	_, err = v.tx.Exec(
		`INSERT INTO conf_branch_map(branch_ref, config_ref, arch_ref, flavor_ref, value) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(branch_ref, config_ref, arch_ref, flavor_ref) DO UPDATE SET value = excluded.value`,
		v.branchID, configID, archID, flavorID, value,
	)
	if err != nil {
		return fmt.Errorf("store: conf_branch_map insert %s/%s/%s: %w", arch, flavor, config, err)
	}
	return nil
}

// RecordIgnoredFile records that filePath was excluded from indexing for
// this branch by an --ignored-files pattern.
func (v *Visitor) RecordIgnoredFile(filePath string) error {
	fileID, err := v.fileID(filePath)
	if err != nil {
		return err
	}
	_, err = v.tx.Exec(
		`INSERT OR IGNORE INTO ignored_file_branch_map(branch_ref, file_ref) VALUES (?, ?)`,
		v.branchID, fileID,
	)
	if err != nil {
		return fmt.Errorf("store: ignored_file_branch_map insert %s: %w", filePath, err)
	}
	return nil
}

// UpsertBranch inserts or updates the branch row for name, returning its
// id. With force, an existing row is deleted (ON DELETE CASCADE drops the
// stale branch's facts with it) and a fresh row is inserted with the new
// head_sha/version_sum; without force, an existing row yields
// ErrBranchExists.
func UpsertBranch(tx *sql.Tx, name, headSHA, versionSum string, force bool) (int64, error) {
	var id int64
	err := tx.QueryRow(`SELECT id FROM branch WHERE name = ?`, name).Scan(&id)
	switch {
	case err == sql.ErrNoRows:
		res, err := tx.Exec(`INSERT INTO branch(name, head_sha, version_sum) VALUES (?, ?, ?)`, name, headSHA, versionSum)
		if err != nil {
			return 0, fmt.Errorf("store: insert branch %q: %w", name, err)
		}
		return res.LastInsertId()
	case err != nil:
		return 0, fmt.Errorf("store: lookup branch %q: %w", name, err)
	}
	if !force {
		return id, ErrBranchExists
	}
	if _, err := tx.Exec(`DELETE FROM branch WHERE id = ?`, id); err != nil {
		return 0, fmt.Errorf("store: delete stale branch %q: %w", name, err)
	}
	res, err := tx.Exec(`INSERT INTO branch(name, head_sha, version_sum) VALUES (?, ?, ?)`, name, headSHA, versionSum)
	if err != nil {
		return 0, fmt.Errorf("store: reinsert branch %q: %w", name, err)
	}
	return res.LastInsertId()
}

// ErrBranchExists is returned by UpsertBranch when name already has a row
// and force was not requested, matching the design's "running the builder
// twice without force skips the second run" invariant.
var ErrBranchExists = fmt.Errorf("store: branch already exists")
