// Package file keeps bidwright's configuration directory on disk: the
// config.toml settings file and the editable stage prompts, which can be
// watched and reloaded while a server runs.
package file
