package command

import (
	"bytes"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"

	ectx "github.com/aept-pm/aept/pkg/context"

	"github.com/aept-pm/aept/pkg/aerrors"
	"github.com/aept-pm/aept/pkg/aptconfig"
	"github.com/aept-pm/aept/pkg/archive"
	"github.com/aept-pm/aept/pkg/control"
	"github.com/aept-pm/aept/pkg/status"
)

// validate runs the struct-tag checks that reject malformed arguments
// (pin's NAME/VERSION pair) before they ever reach the store.
var validate = validator.New() //nolint:gochecknoglobals

// globalFlags holds the persistent flags every subcommand shares.
var globalFlags struct { //nolint:gochecknoglobals
	configFile  string
	offlineRoot string
	assumeYes   bool
	dryRun      bool
}

func registerGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&globalFlags.configFile, "config", defaultConfigFile,
		"path to the aept configuration file")
	cmd.PersistentFlags().StringVar(&globalFlags.offlineRoot, "offline-root", "",
		"run against an offline root instead of the live system")
	cmd.PersistentFlags().BoolVarP(&globalFlags.assumeYes, "yes", "y", false,
		"assume yes to the confirmation prompt")
	cmd.PersistentFlags().BoolVar(&globalFlags.dryRun, "dry-run", false,
		"resolve and print the plan without executing it")
}

// env bundles the objects every subcommand's RunE needs: an engine
// context, the loaded configuration, and a status store built from it.
type env struct {
	ec     *ectx.EngineContext
	cfg    *aptconfig.Config
	store  *status.Store
	closer func()
}

// loadEnv reads the configuration file, applies --offline-root, and
// builds the EngineContext/Store pair every mutating and query command
// sits on top of. txnFlags is nil for read-only query commands.
func loadEnv(txnFlags *ectx.Flags) (*env, error) {
	cfg, err := aptconfig.ParseFile(globalFlags.configFile)
	if err != nil {
		if os.IsNotExist(err) {
			cfg = &aptconfig.Config{Options: map[string]string{}}
		} else {
			return nil, err
		}
	}

	cfg.ApplyOfflineRoot(globalFlags.offlineRoot)

	paths := ectx.Paths{
		StatusFile: optOrDefault(cfg, "status_file", defaultStatusFile()),
		InfoDir:    optOrDefault(cfg, "info_dir", defaultInfoDir()),
		ListsDir:   optOrDefault(cfg, "lists_dir", defaultListsDir()),
		CacheDir:   optOrDefault(cfg, "cache_dir", defaultCacheDir),
		AutoFile:   optOrDefault(cfg, "auto_file", defaultAutoFile()),
		PinFile:    optOrDefault(cfg, "pin_file", defaultPinFile()),
		LockFile:   optOrDefault(cfg, "lock_file", defaultLockFile()),
		TmpDir:     optOrDefault(cfg, "tmp_dir", defaultTmpDir()),
	}

	arch := cfg.Architecture
	if len(arch) == 0 {
		arch = []string{"all"}
	}

	flags := ectx.Flags{AssumeYes: globalFlags.assumeYes, NoAction: globalFlags.dryRun}
	if txnFlags != nil {
		flags = *txnFlags
		flags.AssumeYes = flags.AssumeYes || globalFlags.assumeYes
		flags.NoAction = flags.NoAction || globalFlags.dryRun
	}

	ec := ectx.New(paths, arch, globalFlags.offlineRoot, flags)
	store := status.NewStore(paths.StatusFile, paths.AutoFile, paths.PinFile)

	return &env{ec: ec, cfg: cfg, store: store, closer: ec.Close}, nil
}

func (e *env) Close() {
	if e.closer != nil {
		e.closer()
	}
}

func optOrDefault(cfg *aptconfig.Config, key, fallback string) string {
	if v, ok := cfg.Options[key]; ok && v != "" {
		return v
	}

	return fallback
}

// pinArg is the NAME VERSION pair accepted by `aept pin`.
type pinArg struct {
	Name    string `validate:"required"`
	Version string `validate:"required"`
}

// packageNameFromFile extracts just enough of a local package's control
// stanza to know its name, for building ExplicitNames/solver jobs out of
// paths named directly on the command line. Duplicates pkg/transaction's
// unexported loadLocalFile in miniature since that helper isn't exported.
func packageNameFromFile(path string) (string, error) {
	pkgArchive := archive.Open(path)
	if err := pkgArchive.VerifyMagic(); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := pkgArchive.ExtractFileToStream("control", &buf); err != nil {
		return "", err
	}

	stanzas, err := control.ParseStanzas(&buf)
	if err != nil || len(stanzas) == 0 {
		return "", aerrors.New(aerrors.Extraction, "local package has no control stanza").
			WithOperation("command.packageNameFromFile").WithContext("path", path)
	}

	return control.PackageFromStanza(stanzas[0]).Name, nil
}

// isLocalFile reports whether arg names a file on disk rather than a
// package name, so install/upgrade can route it to LocalFiles.
func isLocalFile(arg string) bool {
	info, err := os.Stat(arg)
	return err == nil && !info.IsDir()
}
