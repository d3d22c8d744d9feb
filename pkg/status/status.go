// Package status implements the installed-package status database: the
// Debian-style control file carrying a trailing `Status: install ok
// <state>` field, plus the flat `auto_file`/`pin_file` sidecar sets. Every
// mutating write goes through the write-to-temp-then-rename discipline
// spec §4.2 requires, generalized from the single-shot
// `utils.CreateWrite`/`ExistsMakeDir` idiom the teacher uses once per
// build into something safe to call on every transaction commit.
package status

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aept-pm/aept/pkg/aerrors"
	"github.com/aept-pm/aept/pkg/control"
	"github.com/aept-pm/aept/pkg/fileset"
	"github.com/aept-pm/aept/pkg/i18n"
	"github.com/aept-pm/aept/pkg/logger"
	"github.com/aept-pm/aept/pkg/pathsafety"
)

// StateInstalled marks a package whose postinst ran to completion.
const StateInstalled = "installed"

// StateUnpacked marks a package whose files are on disk but whose
// postinst failed or has not yet run.
const StateUnpacked = "unpacked"

// Record pairs a parsed control.Package with its on-disk install state.
type Record struct {
	Package  control.Package
	State    string
	RawState string
}

// Store is a handle on the status DB and its auto/pin sidecar files.
type Store struct {
	StatusFile string
	AutoFile   string
	PinFile    string
}

// NewStore constructs a Store for the given paths.
func NewStore(statusFile, autoFile, pinFile string) *Store {
	return &Store{StatusFile: statusFile, AutoFile: autoFile, PinFile: pinFile}
}

// Load reads the status file and normalizes unpacked→installed for the
// in-memory result; the on-disk form is left untouched.
func (s *Store) Load() ([]Record, error) {
	logger.Debug(i18n.T("logger.status.debug.load"), "path", s.StatusFile)

	f, err := os.Open(filepath.Clean(s.StatusFile))
	if os.IsNotExist(err) {
		return nil, nil
	}

	if err != nil {
		return nil, aerrors.Wrap(err, aerrors.Filesystem, "failed to open status file").
			WithOperation("status.Load")
	}
	defer f.Close() //nolint:errcheck

	stanzas, err := control.ParseStanzas(f)
	if err != nil {
		return nil, aerrors.Wrap(err, aerrors.Filesystem, "failed to parse status file").
			WithOperation("status.Load")
	}

	records := make([]Record, 0, len(stanzas))

	for _, st := range stanzas {
		rawState, ok := parseStatusField(st)
		if !ok {
			continue
		}

		state := rawState
		if state == StateUnpacked {
			logger.Debug(i18n.T("logger.status.warn.normalize"), "package", mustGetOrEmpty(st, "Package"))

			state = StateInstalled
		}

		records = append(records, Record{
			Package:  control.PackageFromStanza(st),
			State:    state,
			RawState: rawState,
		})
	}

	return records, nil
}

// mustGetOrEmpty is a convenience accessor used only for logging; it returns the
// empty string rather than panicking when the field is absent.
func mustGetOrEmpty(st control.Stanza, field string) string {
	v, _ := st.Get(field)
	return v
}

func parseStatusField(st control.Stanza) (state string, ok bool) {
	raw, present := st.Get("Status")
	if !present {
		return "", false
	}

	fields := strings.Fields(raw)
	if len(fields) != 3 { //nolint:mnd
		return "", false
	}

	return fields[2], true
}

// Add reads the control stanza at controlPath, stamps it with `Package:
// name` and `Status: install ok <state>`, and appends it to the status
// file atomically (write-to-temp, then rename).
func (s *Store) Add(controlPath, name, state string) error {
	if err := pathsafety.CheckName("status.Add", name); err != nil {
		return err
	}

	f, err := os.Open(filepath.Clean(controlPath))
	if err != nil {
		return aerrors.Wrap(err, aerrors.Filesystem, "failed to open control stanza").
			WithOperation("status.Add")
	}
	defer f.Close() //nolint:errcheck

	stanzas, err := control.ParseStanzas(f)
	if err != nil || len(stanzas) == 0 {
		return aerrors.New(aerrors.Filesystem, "control file has no stanza: "+controlPath).
			WithOperation("status.Add")
	}

	stanza := stanzas[0]
	stanza.Set("Package", name)
	stanza.Set("Status", fmt.Sprintf("install ok %s", state))

	existing, err := s.readAll()
	if err != nil {
		return err
	}

	kept := make([]control.Stanza, 0, len(existing)+1)

	for _, st := range existing {
		if mustGetOrEmpty(st, "Package") == name {
			continue
		}

		kept = append(kept, st)
	}

	kept = append(kept, stanza)

	return s.writeAll(kept)
}

// Remove drops the stanza whose Package field equals name.
func (s *Store) Remove(name string) error {
	existing, err := s.readAll()
	if err != nil {
		return err
	}

	kept := make([]control.Stanza, 0, len(existing))

	for _, st := range existing {
		if mustGetOrEmpty(st, "Package") == name {
			continue
		}

		kept = append(kept, st)
	}

	return s.writeAll(kept)
}

// InstalledVersion returns the EVR of the installed stanza for name, or
// ok=false if not present.
func (s *Store) InstalledVersion(name string) (version string, ok bool, err error) {
	records, err := s.Load()
	if err != nil {
		return "", false, err
	}

	for _, r := range records {
		if r.Package.Name == name {
			return r.Package.Version, true, nil
		}
	}

	return "", false, nil
}

func (s *Store) readAll() ([]control.Stanza, error) {
	f, err := os.Open(filepath.Clean(s.StatusFile))
	if os.IsNotExist(err) {
		return nil, nil
	}

	if err != nil {
		return nil, aerrors.Wrap(err, aerrors.Filesystem, "failed to open status file").
			WithOperation("status.readAll")
	}
	defer f.Close() //nolint:errcheck

	return control.ParseStanzas(f)
}

func (s *Store) writeAll(stanzas []control.Stanza) error {
	var buf strings.Builder

	for i, st := range stanzas {
		if i > 0 {
			buf.WriteString("\n")
		}

		if err := control.WriteStanza(&buf, st); err != nil {
			return err
		}
	}

	return writeAtomic(s.StatusFile, []byte(buf.String()))
}

// MarkAuto adds name to the auto-installed set.
func (s *Store) MarkAuto(name string) error {
	set, err := s.LoadAutoSet()
	if err != nil {
		return err
	}

	set.Add(name)

	return s.writeAutoSet(set)
}

// UnmarkAuto removes name from the auto-installed set. A no-op if absent,
// which makes mark_auto;mark_manual idempotent per spec §8.
func (s *Store) UnmarkAuto(name string) error {
	set, err := s.LoadAutoSet()
	if err != nil {
		return err
	}

	set.Remove(name)

	return s.writeAutoSet(set)
}

// IsAuto reports whether name is in the auto-installed set.
func (s *Store) IsAuto(name string) (bool, error) {
	set, err := s.LoadAutoSet()
	if err != nil {
		return false, err
	}

	return set.Contains(name), nil
}

// LoadAutoSet reads the auto_file into a Set. A missing file is an empty set.
func (s *Store) LoadAutoSet() (*fileset.Set, error) {
	lines, err := readLines(s.AutoFile)
	if err != nil {
		return nil, err
	}

	return fileset.FromSlice(lines), nil
}

// ClearAuto empties the auto-installed set.
func (s *Store) ClearAuto() error {
	return writeAtomic(s.AutoFile, nil)
}

func (s *Store) writeAutoSet(set *fileset.Set) error {
	lines := set.Sorted()

	var buf strings.Builder
	for _, l := range lines {
		buf.WriteString(l)
		buf.WriteString("\n")
	}

	return writeAtomic(s.AutoFile, []byte(buf.String()))
}

// Pins loads the pin_file into a name→version map.
func (s *Store) Pins() (map[string]string, error) {
	lines, err := readLines(s.PinFile)
	if err != nil {
		return nil, err
	}

	pins := make(map[string]string, len(lines))

	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) != 2 { //nolint:mnd
			continue
		}

		pins[fields[0]] = fields[1]
	}

	return pins, nil
}

// AddPin records (or replaces) a pin for name at version.
func (s *Store) AddPin(name, version string) error {
	pins, err := s.Pins()
	if err != nil {
		return err
	}

	pins[name] = version

	return s.writePins(pins)
}

// RemovePin deletes any pin for name. A no-op if absent.
func (s *Store) RemovePin(name string) error {
	pins, err := s.Pins()
	if err != nil {
		return err
	}

	delete(pins, name)

	return s.writePins(pins)
}

func (s *Store) writePins(pins map[string]string) error {
	names := make([]string, 0, len(pins))
	for name := range pins {
		names = append(names, name)
	}

	sort.Strings(names)

	var buf strings.Builder

	for _, name := range names {
		fmt.Fprintf(&buf, "%s %s\n", name, pins[name])
	}

	return writeAtomic(s.PinFile, []byte(buf.String()))
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(filepath.Clean(path))
	if os.IsNotExist(err) {
		return nil, nil
	}

	if err != nil {
		return nil, aerrors.Wrap(err, aerrors.Filesystem, "failed to open "+path).
			WithOperation("status.readLines")
	}
	defer f.Close() //nolint:errcheck

	var lines []string

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		lines = append(lines, line)
	}

	return lines, scanner.Err()
}

// writeAtomic writes data to path via a temp file in the same directory
// followed by a rename, so a crash leaves either the old file intact or a
// stray temp file — never a half-written status.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec
		return aerrors.Wrap(err, aerrors.Filesystem, "failed to create directory").
			WithOperation("status.writeAtomic")
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return aerrors.Wrap(err, aerrors.Filesystem, "failed to create temp file").
			WithOperation("status.writeAtomic")
	}

	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)

		return aerrors.Wrap(err, aerrors.Filesystem, "failed to write temp file").
			WithOperation("status.writeAtomic")
	}

	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)

		return aerrors.Wrap(err, aerrors.Filesystem, "failed to sync temp file").
			WithOperation("status.writeAtomic")
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return aerrors.Wrap(err, aerrors.Filesystem, "failed to close temp file").
			WithOperation("status.writeAtomic")
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return aerrors.Wrap(err, aerrors.Filesystem, "failed to rename temp file into place").
			WithOperation("status.writeAtomic")
	}

	return nil
}
