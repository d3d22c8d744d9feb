// Package aptconfig parses the line-oriented configuration file described
// in spec §6: "#"-comment lines, and directives "src/gz NAME URL",
// "src NAME URL", "arch NAME", "option KEY VALUE". Tokenization uses
// mvdan.cc/sh/v3/shell.Fields — the teacher's own shell-word-splitting
// dependency (used for PKGBUILD array parsing in pkg/parser/parser.go) —
// applied here so quoting in a URL or VALUE token is handled correctly.
package aptconfig

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"mvdan.cc/sh/v3/shell"

	"github.com/aept-pm/aept/pkg/aerrors"
	"github.com/aept-pm/aept/pkg/control"
	"github.com/aept-pm/aept/pkg/pathsafety"
)

// Config is the parsed contents of an aept configuration file.
type Config struct {
	Sources      []control.Source
	Architecture []string
	Options      map[string]string
}

// pathOptionKeys are the Options entries that config.ApplyOfflineRoot
// prefixes with OfflineRoot. usign_keydir is excluded per spec §6: the
// trusted-key directory is always resolved on the host.
var pathOptionKeys = []string{
	"lists_dir", "info_dir", "cache_dir", "status_file",
	"auto_file", "pin_file", "lock_file", "tmp_dir",
}

// Parse reads a configuration file from r.
func Parse(r io.Reader) (*Config, error) {
	cfg := &Config{Options: make(map[string]string)}

	scanner := bufio.NewScanner(r)

	lineNo := 0

	for scanner.Scan() {
		lineNo++

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields, err := shell.Fields(line, os.Getenv)
		if err != nil {
			return nil, aerrors.Wrap(err, aerrors.Safety, "cannot tokenize config line").
				WithOperation("aptconfig.Parse").WithContext("line", lineNo)
		}

		if len(fields) == 0 {
			continue
		}

		if err := cfg.applyDirective(fields, lineNo); err != nil {
			return nil, err
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyDirective(fields []string, lineNo int) error {
	switch fields[0] {
	case "src/gz":
		return c.addSource(fields, lineNo, true)
	case "src":
		return c.addSource(fields, lineNo, false)
	case "arch":
		if len(fields) != 2 {
			return fmt.Errorf("aptconfig: line %d: arch requires exactly one value", lineNo)
		}

		c.Architecture = append(c.Architecture, fields[1])
	case "option":
		if len(fields) != 3 {
			return fmt.Errorf("aptconfig: line %d: option requires KEY and VALUE", lineNo)
		}

		c.Options[fields[1]] = fields[2]
	default:
		// Unknown directives are skipped without a warning; this package
		// only surfaces structural errors.
	}

	return nil
}

func (c *Config) addSource(fields []string, lineNo int, gzip bool) error {
	if len(fields) != 3 {
		return fmt.Errorf("aptconfig: line %d: src requires NAME and URL", lineNo)
	}

	name, url := fields[1], fields[2]
	if err := pathsafety.CheckName("aptconfig.src", name); err != nil {
		return err
	}

	c.Sources = append(c.Sources, control.Source{Name: name, URL: url, Gzip: gzip})

	return nil
}

// ParseFile opens and parses path.
func ParseFile(path string) (*Config, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck

	return Parse(f)
}

// ApplyOfflineRoot prefixes every path-valued option (all but
// usign_keydir) with root, per spec §6 and the resolved Open Question in
// spec §9 (the OFFLINE_ROOT environment variable is never consulted; only
// this explicit call, driven by config/flag, is authoritative).
func (c *Config) ApplyOfflineRoot(root string) {
	if root == "" {
		return
	}

	for _, key := range pathOptionKeys {
		if v, ok := c.Options[key]; ok {
			c.Options[key] = filepath.Join(root, v)
		}
	}
}
