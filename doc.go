// Package aept provides a package manager for a Debian-derived binary
// package format: an AR container holding a control tarball and a data
// tarball, each optionally compressed with gzip, xz, bzip2, lz4, or zstd.
//
// aept fetches indexed repositories, resolves dependencies, and atomically
// installs, upgrades, and removes packages on a target root — either the
// live host or an offline root (an unprivileged chroot built via
// user-namespace mapping so non-root callers can construct root
// filesystems).
//
// # Core
//
// The transaction engine (pkg/transaction) is the core: it drives a
// SAT-style dependency solver (pkg/solver) over the union of repository
// indices and the installed-package database (pkg/status), then executes
// the resulting ordered step list with correct maintainer-script
// sequencing, file-list bookkeeping, conffile conflict resolution
// (pkg/conffile), auto-installed tracking, version pinning, and
// cross-step protection of files shared between packages.
//
// # Package layout
//
//   - pkg/transaction: the core install/remove/upgrade/autoremove engine
//   - pkg/solver: dependency resolution adapter and default resolver
//   - pkg/status: installed-package status DB, auto set, pin set
//   - pkg/archive: two-level AR→tar streaming extractor
//   - pkg/conffile: configuration-file conflict classification and resolution
//   - pkg/fetch: repository index download, verification, atomic install
//   - pkg/sandbox: offline-root user-namespace chroot wrapper
//   - pkg/mscript: maintainer script invocation
//   - pkg/query: read-only show/list/files/owns operations
//   - pkg/control: Debian control stanza and package identity model
//   - pkg/context: the engine context threaded through every operation
//   - cmd/aept: the command-line interface
//
// For detailed documentation, see SPEC_FULL.md in the repository root.
package aept
