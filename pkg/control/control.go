// Package control models Debian control stanzas: the Package identity loaded
// from repository indices, the Source repository descriptor, and the
// stanza-level marshal/unmarshal shared by the status DB and the fetch
// pipeline. Grounded on the control-writing templating in
// pkg/dpkg/dpkg.go (createConfFiles/createScripts/specFile), generalized
// from "build a stanza to ship" to "parse a stanza already on disk or in a
// repository index".
package control

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/aept-pm/aept/pkg/pathsafety"
)

// Package is a package identity plus its dependency arrays, loaded verbatim
// from a repository index or a local control stanza (spec §3).
type Package struct {
	Name         string
	Version      string
	Architecture string
	Depends      []string
	PreDepends   []string
	Recommends   []string
	Suggests     []string
	Provides     []string
	Conflicts    []string
	Replaces     []string
	Conffiles    []string
	Filename     string
	SHA256       string

	// Fields holds every other control field verbatim, in first-seen order,
	// so a stanza round-trips fields this type does not model explicitly.
	Fields Stanza
}

// Source is a repository descriptor: {name, url, gzip_flag}.
type Source struct {
	Name string
	URL  string
	Gzip bool
}

// ValidateName checks Source.Name against the shared package/source name grammar.
func (s Source) ValidateName() error {
	return pathsafety.CheckName("source", s.Name)
}

// Stanza is an ordered Debian control stanza: Field -> value, continuation
// lines already joined with embedded newlines preserved.
type Stanza struct {
	order  []string
	values map[string]string
}

// NewStanza returns an empty Stanza.
func NewStanza() Stanza {
	return Stanza{values: make(map[string]string)}
}

// Set assigns a field, preserving first-seen order.
func (s *Stanza) Set(field, value string) {
	if s.values == nil {
		s.values = make(map[string]string)
	}

	if _, ok := s.values[field]; !ok {
		s.order = append(s.order, field)
	}

	s.values[field] = value
}

// Get returns a field's value and whether it was present.
func (s Stanza) Get(field string) (string, bool) {
	v, ok := s.values[field]
	return v, ok
}

// Fields returns the field names in first-seen order.
func (s Stanza) Fields() []string {
	return s.order
}

// ParseStanzas reads zero or more blank-line-separated Debian control
// stanzas from r: "Field: value" lines with space-prefixed continuations.
func ParseStanzas(r io.Reader) ([]Stanza, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var (
		stanzas    []Stanza
		cur        = NewStanza()
		lastField  string
		haveFields bool
	)

	flush := func() {
		if haveFields {
			stanzas = append(stanzas, cur)
		}

		cur = NewStanza()
		lastField = ""
		haveFields = false
	}

	for scanner.Scan() {
		line := scanner.Text()

		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}

		if (strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")) && lastField != "" {
			prev, _ := cur.Get(lastField)
			cur.Set(lastField, prev+"\n"+line)

			continue
		}

		idx := strings.IndexByte(line, ':')
		if idx == -1 {
			continue
		}

		field := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])
		cur.Set(field, value)
		lastField = field
		haveFields = true
	}

	flush()

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return stanzas, nil
}

// WriteStanza writes a single stanza in "Field: value" form followed by a
// blank line, in the stanza's field order.
func WriteStanza(w io.Writer, s Stanza) error {
	for _, field := range s.order {
		v, _ := s.Get(field)
		if _, err := fmt.Fprintf(w, "%s: %s\n", field, v); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintln(w)

	return err
}

// commaFields splits a comma-separated dependency field into trimmed,
// non-empty entries (alternatives joined by "|" are kept as one entry, as
// the solver adapter is responsible for expanding them).
func commaFields(value string) []string {
	if value == "" {
		return nil
	}

	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}

	return out
}

// joinFields is the inverse of commaFields, used when marshalling.
func joinFields(values []string) string {
	return strings.Join(values, ", ")
}

// PackageFromStanza builds a Package from a parsed control Stanza.
func PackageFromStanza(s Stanza) Package {
	p := Package{Fields: s}

	if v, ok := s.Get("Package"); ok {
		p.Name = v
	}

	if v, ok := s.Get("Version"); ok {
		p.Version = v
	}

	if v, ok := s.Get("Architecture"); ok {
		p.Architecture = v
	}

	if v, ok := s.Get("Depends"); ok {
		p.Depends = commaFields(v)
	}

	if v, ok := s.Get("Pre-Depends"); ok {
		p.PreDepends = commaFields(v)
	}

	if v, ok := s.Get("Recommends"); ok {
		p.Recommends = commaFields(v)
	}

	if v, ok := s.Get("Suggests"); ok {
		p.Suggests = commaFields(v)
	}

	if v, ok := s.Get("Provides"); ok {
		p.Provides = commaFields(v)
	}

	if v, ok := s.Get("Conflicts"); ok {
		p.Conflicts = commaFields(v)
	}

	if v, ok := s.Get("Replaces"); ok {
		p.Replaces = commaFields(v)
	}

	if v, ok := s.Get("Filename"); ok {
		p.Filename = v
	}

	if v, ok := s.Get("SHA256"); ok {
		p.SHA256 = v
	}

	return p
}

// ToStanza renders a Package back into a Stanza, using Fields as the base so
// unmodeled fields round-trip, then overlaying the modeled fields.
func (p Package) ToStanza() Stanza {
	s := p.Fields
	if s.values == nil {
		s = NewStanza()
	}

	s.Set("Package", p.Name)
	s.Set("Version", p.Version)

	if p.Architecture != "" {
		s.Set("Architecture", p.Architecture)
	}

	setIfNonEmpty(&s, "Depends", p.Depends)
	setIfNonEmpty(&s, "Pre-Depends", p.PreDepends)
	setIfNonEmpty(&s, "Recommends", p.Recommends)
	setIfNonEmpty(&s, "Suggests", p.Suggests)
	setIfNonEmpty(&s, "Provides", p.Provides)
	setIfNonEmpty(&s, "Conflicts", p.Conflicts)
	setIfNonEmpty(&s, "Replaces", p.Replaces)

	if p.Filename != "" {
		s.Set("Filename", p.Filename)
	}

	if p.SHA256 != "" {
		s.Set("SHA256", p.SHA256)
	}

	return s
}

func setIfNonEmpty(s *Stanza, field string, values []string) {
	if len(values) > 0 {
		s.Set(field, joinFields(values))
	}
}

// ProvidesNames returns the set of names p satisfies by provides, plus its
// own name, sorted.
func (p Package) ProvidesNames() []string {
	names := append([]string{p.Name}, p.Provides...)
	sort.Strings(names)

	return names
}
