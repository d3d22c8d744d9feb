package command

import "path/filepath"

// defaultConfigFile is consulted when --config is not given. aept has no
// upstream convention of its own to inherit, so this follows the same
// /etc/<name>/<name>.conf shape apt and opkg both use.
const defaultConfigFile = "/etc/aept/aept.conf"

// Default on-disk layout for every path spec §3/§6 names, used to fill in
// whatever a loaded aptconfig.Config leaves unset. Mirrors opkg's
// /var/lib + /var/cache split, the closest real-world analogue to this
// status/lists/info/auto/pin/cache/lock/tmp layout.
const (
	defaultStateDir = "/var/lib/aept"
	defaultCacheDir = "/var/cache/aept"
)

func defaultStatusFile() string { return filepath.Join(defaultStateDir, "status") }
func defaultListsDir() string   { return filepath.Join(defaultStateDir, "lists") }
func defaultInfoDir() string    { return filepath.Join(defaultStateDir, "info") }
func defaultAutoFile() string   { return filepath.Join(defaultStateDir, "auto") }
func defaultPinFile() string    { return filepath.Join(defaultStateDir, "pins") }
func defaultLockFile() string   { return filepath.Join(defaultStateDir, "lock") }
func defaultTmpDir() string     { return filepath.Join(defaultCacheDir, "tmp") }
