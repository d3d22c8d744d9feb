// Package conffile implements the configuration-file conflict classifier
// and resolution policy of spec §4.3: given the md5 recorded at the end of
// the previous install, the md5 on disk now, and the md5 of the freshly
// extracted candidate, decide whether to install the new file, keep the
// old one, or ask. The interactive prompt is a pterm select, the same
// library pkg/logger already wraps for every other piece of terminal
// output in this module.
package conffile

import (
	"os"

	"github.com/pterm/pterm"

	"github.com/aept-pm/aept/pkg/i18n"
	"github.com/aept-pm/aept/pkg/logger"
)

// Decision is the outcome of resolving one conffile entry.
type Decision int

const (
	// InstallNew replaces the on-disk file with the package's candidate.
	InstallNew Decision = iota
	// KeepOld leaves the on-disk file untouched.
	KeepOld
)

// Entry is one conffile's state at the point of decision. CurMD5 is empty
// when the file is absent from disk; OldMD5 is empty when there was no
// previous install record for this path.
type Entry struct {
	Path   string
	OldMD5 string
	CurMD5 string
	NewMD5 string
}

// Flags carries the three behavior switches spec §4.3 names.
type Flags struct {
	ForceConfNew   bool
	ForceConfOld   bool
	NonInteractive bool
}

// Resolution is the result of Resolve: what to do, and what md5 to record
// in the rewritten .conffiles entry.
type Resolution struct {
	Decision      Decision
	RecordMD5     string
	WriteNewAside bool // write the candidate as Path+suffix for admin review
	Prompted      bool
}

// PromptOption is one of the five choices spec §4.3 describes.
type PromptOption int

const (
	// PromptInstallNew installs the package's candidate.
	PromptInstallNew PromptOption = iota
	// PromptKeepOld keeps the on-disk file.
	PromptKeepOld
	// PromptDiff shows a diff then re-prompts.
	PromptDiff
	// PromptShell drops to a shell then re-prompts.
	PromptShell
	// PromptDefaultKeep is the default selection (same outcome as PromptKeepOld).
	PromptDefaultKeep
)

// Prompter asks the five-option question for entry and returns the user's
// choice. InteractivePrompter's DiffFunc and ShellFunc let
// PromptDiff/PromptShell be exercised without leaving Resolve; a caller that wants scripted automation can
// supply a deterministic Prompter.
type Prompter interface {
	Ask(entry Entry) (PromptOption, error)
}

// InteractivePrompter drives the five-option question via pterm's
// interactive select, matching the teacher's pterm-for-everything logging
// idiom.
type InteractivePrompter struct {
	DiffFunc  func(entry Entry) (string, error)
	ShellFunc func(entry Entry) error
}

const (
	labelInstallNew  = "install the package maintainer's version"
	labelKeepOld     = "keep the currently installed version"
	labelDiff        = "show a diff between the two versions"
	labelShell       = "start a shell to examine the situation"
	labelDefaultKeep = "keep the currently installed version (default)"
)

// Ask presents the five-option prompt and loops on diff/shell until the
// user picks a terminal option.
func (p InteractivePrompter) Ask(entry Entry) (PromptOption, error) {
	options := []string{labelInstallNew, labelKeepOld, labelDiff, labelShell, labelDefaultKeep}

	for {
		pterm.Warning.Println(i18n.T("logger.conffile.prompt.title"), entry.Path)

		choice, err := pterm.DefaultInteractiveSelect.WithOptions(options).Show()
		if err != nil {
			return PromptDefaultKeep, err
		}

		switch choice {
		case labelInstallNew:
			return PromptInstallNew, nil
		case labelKeepOld:
			return PromptKeepOld, nil
		case labelDiff:
			if p.DiffFunc != nil {
				diff, err := p.DiffFunc(entry)
				if err != nil {
					logger.Warn("diff failed", "path", entry.Path, "error", err)
				} else {
					pterm.DefaultBasicText.Println(diff)
				}
			}

			continue
		case labelShell:
			if p.ShellFunc != nil {
				if err := p.ShellFunc(entry); err != nil {
					logger.Warn("shell exited with error", "path", entry.Path, "error", err)
				}
			}

			continue
		default:
			return PromptDefaultKeep, nil
		}
	}
}

// Resolve implements the classify-then-decide table of spec §4.3.
func Resolve(entry Entry, flags Flags, prompter Prompter) (Resolution, error) {
	switch {
	case entry.CurMD5 == "":
		return Resolution{Decision: InstallNew, RecordMD5: entry.NewMD5}, nil
	case entry.NewMD5 == "":
		return Resolution{Decision: KeepOld, RecordMD5: entry.CurMD5}, nil
	case entry.CurMD5 == entry.NewMD5:
		return Resolution{Decision: KeepOld, RecordMD5: entry.CurMD5}, nil
	case entry.OldMD5 == entry.CurMD5:
		return Resolution{Decision: InstallNew, RecordMD5: entry.NewMD5}, nil
	case entry.OldMD5 == entry.NewMD5:
		return Resolution{Decision: KeepOld, RecordMD5: entry.CurMD5}, nil
	}

	return resolveConflict(entry, flags, prompter)
}

func resolveConflict(entry Entry, flags Flags, prompter Prompter) (Resolution, error) {
	switch {
	case flags.ForceConfNew:
		return Resolution{Decision: InstallNew, RecordMD5: entry.NewMD5}, nil
	case flags.ForceConfOld:
		return Resolution{Decision: KeepOld, RecordMD5: entry.CurMD5}, nil
	case flags.NonInteractive:
		return Resolution{Decision: KeepOld, RecordMD5: entry.CurMD5, WriteNewAside: true}, nil
	}

	choice, err := prompter.Ask(entry)
	if err != nil {
		return Resolution{}, err
	}

	res := Resolution{Prompted: true}

	switch choice {
	case PromptInstallNew:
		res.Decision = InstallNew
		res.RecordMD5 = entry.NewMD5
	default:
		res.Decision = KeepOld
		res.RecordMD5 = entry.CurMD5
	}

	return res, nil
}

// AsideSuffix is the .aept-new suffix used for the non-interactive shadow
// copy spec §4.3 describes.
const AsideSuffix = ".aept-new"

// FileExists is a small helper used by callers building Entry.CurMD5.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
