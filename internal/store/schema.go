// Package store persists the resolver's facts into a SQLite database
// through database/sql, using modernc.org/sqlite as the driver.
package store

import "database/sql"

// schemaDDL creates every relation from the design's schema table, with
// foreign keys cascading on delete of the parent row so that dropping a
// branch purges every fact derived from it.
const schemaDDL = `
PRAGMA foreign_keys = ON;

CREATE TABLE IF NOT EXISTS branch (
	id         INTEGER PRIMARY KEY,
	name       TEXT NOT NULL UNIQUE,
	head_sha   TEXT NOT NULL,
	version_sum TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS config (
	id     INTEGER PRIMARY KEY,
	symbol TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS arch (
	id   INTEGER PRIMARY KEY,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS flavor (
	id   INTEGER PRIMARY KEY,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS dir (
	id   INTEGER PRIMARY KEY,
	path TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS file (
	id      INTEGER PRIMARY KEY,
	name    TEXT NOT NULL,
	dir_ref INTEGER NOT NULL REFERENCES dir(id) ON DELETE CASCADE,
	UNIQUE (name, dir_ref)
);

CREATE TABLE IF NOT EXISTS conf_branch_map (
	branch_ref INTEGER NOT NULL REFERENCES branch(id) ON DELETE CASCADE,
	config_ref INTEGER NOT NULL REFERENCES config(id) ON DELETE CASCADE,
	arch_ref   INTEGER NOT NULL REFERENCES arch(id) ON DELETE CASCADE,
	flavor_ref INTEGER NOT NULL REFERENCES flavor(id) ON DELETE CASCADE,
	value      TEXT NOT NULL,
	UNIQUE (branch_ref, config_ref, arch_ref, flavor_ref)
);

CREATE TABLE IF NOT EXISTS conf_file_map (
	branch_ref INTEGER NOT NULL REFERENCES branch(id) ON DELETE CASCADE,
	config_ref INTEGER NOT NULL REFERENCES config(id) ON DELETE CASCADE,
	file_ref   INTEGER NOT NULL REFERENCES file(id) ON DELETE CASCADE,
	UNIQUE (branch_ref, config_ref, file_ref)
);

CREATE TABLE IF NOT EXISTS conf_dep (
	branch_ref        INTEGER NOT NULL REFERENCES branch(id) ON DELETE CASCADE,
	parent_config_ref INTEGER NOT NULL REFERENCES config(id) ON DELETE CASCADE,
	child_config_ref  INTEGER NOT NULL REFERENCES config(id) ON DELETE CASCADE,
	PRIMARY KEY (branch_ref, parent_config_ref, child_config_ref),
	CHECK (parent_config_ref <> child_config_ref)
);

CREATE TABLE IF NOT EXISTS module (
	id      INTEGER PRIMARY KEY,
	dir_ref INTEGER NOT NULL REFERENCES dir(id) ON DELETE CASCADE,
	name    TEXT NOT NULL,
	UNIQUE (dir_ref, name)
);

CREATE TABLE IF NOT EXISTS module_details_map (
	branch_ref INTEGER NOT NULL REFERENCES branch(id) ON DELETE CASCADE,
	module_ref INTEGER NOT NULL REFERENCES module(id) ON DELETE CASCADE,
	supported  INTEGER NOT NULL,
	UNIQUE (branch_ref, module_ref),
	CHECK (supported BETWEEN -3 AND 4)
);

CREATE TABLE IF NOT EXISTS module_file_map (
	branch_ref INTEGER NOT NULL REFERENCES branch(id) ON DELETE CASCADE,
	module_ref INTEGER NOT NULL REFERENCES module(id) ON DELETE CASCADE,
	file_ref   INTEGER NOT NULL REFERENCES file(id) ON DELETE CASCADE,
	PRIMARY KEY (branch_ref, module_ref, file_ref)
);

CREATE TABLE IF NOT EXISTS user (
	id    INTEGER PRIMARY KEY,
	email TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS user_file_map (
	branch_ref     INTEGER NOT NULL REFERENCES branch(id) ON DELETE CASCADE,
	user_ref       INTEGER NOT NULL REFERENCES user(id) ON DELETE CASCADE,
	file_ref       INTEGER NOT NULL REFERENCES file(id) ON DELETE CASCADE,
	count          INTEGER NOT NULL,
	count_no_fixes INTEGER NOT NULL,
	UNIQUE (branch_ref, user_ref, file_ref)
);

CREATE TABLE IF NOT EXISTS ignored_file_branch_map (
	branch_ref INTEGER NOT NULL REFERENCES branch(id) ON DELETE CASCADE,
	file_ref   INTEGER NOT NULL REFERENCES file(id) ON DELETE CASCADE,
	PRIMARY KEY (branch_ref, file_ref)
);

CREATE TABLE IF NOT EXISTS rename_file_version_map (
	version    TEXT NOT NULL,
	similarity INTEGER NOT NULL,
	oldfile_ref INTEGER NOT NULL REFERENCES file(id) ON DELETE CASCADE,
	newfile_ref INTEGER NOT NULL REFERENCES file(id) ON DELETE CASCADE,
	PRIMARY KEY (version, oldfile_ref, newfile_ref),
	UNIQUE (version, oldfile_ref),
	UNIQUE (version, newfile_ref),
	CHECK (similarity BETWEEN 0 AND 100)
);
`

// CreateSchema executes the DDL against db. It is idempotent: every
// statement uses CREATE TABLE IF NOT EXISTS, matching --sqlite-create's
// "bootstrap, don't fail if already bootstrapped" contract.
func CreateSchema(db *sql.DB) error {
	_, err := db.Exec(schemaDDL)
	return err
}
