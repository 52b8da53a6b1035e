package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/logport/internal/config"
	"github.com/blackwell-systems/logport/internal/output"
)

var (
	allowNote string

	allowCmd = &cobra.Command{
		Use:   "allow",
		Short: "Manage which log files may be watched",
		Long: `Manage the allow-list of log files clients may watch.

Paths are matched exactly and case-sensitively. Relative paths given on the
command line are made absolute first.

Entries can also come from the allow-list file (paths.allowlist_file in the
config), which the server mirrors into the database while it runs.`,
	}

	allowAddCmd = &cobra.Command{
		Use:   "add <path>...",
		Short: "Allow one or more log files",
		Example: `  logport allow add /var/log/syslog
  logport allow add --note "web tier" /srv/app/logs/app.log`,
		Args: cobra.MinimumNArgs(1),
		RunE: runAllowAdd,
	}

	allowRemoveCmd = &cobra.Command{
		Use:     "remove <path>...",
		Aliases: []string{"rm"},
		Short:   "Remove log files from the allow-list",
		Args:    cobra.MinimumNArgs(1),
		RunE:    runAllowRemove,
	}

	allowListCmd = &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List allowed log files",
		Args:    cobra.NoArgs,
		RunE:    runAllowList,
	}

	allowImportCmd = &cobra.Command{
		Use:   "import [file]",
		Short: "Add every path listed in an allow-list file",
		Long: `Add every path listed in an allow-list file to the database.

The file holds one absolute path per line; blank lines and lines starting
with # are ignored. Without an argument the configured allow-list file is
used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runAllowImport,
	}
)

func init() {
	allowAddCmd.Flags().StringVar(&allowNote, "note", "", "free-text note stored with the entry")

	allowCmd.AddCommand(allowAddCmd)
	allowCmd.AddCommand(allowRemoveCmd)
	allowCmd.AddCommand(allowListCmd)
	allowCmd.AddCommand(allowImportCmd)
}

func runAllowAdd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg, nil)
	if err != nil {
		return err
	}
	defer st.Close()

	for _, arg := range args {
		path, err := filepath.Abs(arg)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", arg, err)
		}
		if err := st.AddAllowedLog(path, allowNote); err != nil {
			return err
		}
		if _, err := os.Stat(path); err != nil {
			fmt.Printf("✓ Allowed %s (warning: %v)\n", path, err)
			continue
		}
		fmt.Printf("✓ Allowed %s\n", path)
	}
	return nil
}

func runAllowRemove(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg, nil)
	if err != nil {
		return err
	}
	defer st.Close()

	for _, arg := range args {
		path, err := filepath.Abs(arg)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", arg, err)
		}
		if err := st.RemoveAllowedLog(path); err != nil {
			return err
		}
		fmt.Printf("✓ Removed %s\n", path)
	}
	return nil
}

func runAllowList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg, nil)
	if err != nil {
		return err
	}
	defer st.Close()

	entries, err := st.ListAllowedLogs()
	if err != nil {
		return err
	}

	states := make(map[string]output.FileState, len(entries))
	for _, e := range entries {
		info, err := os.Stat(e.Path)
		if err != nil {
			states[e.Path] = output.FileState{}
			continue
		}
		states[e.Path] = output.FileState{Exists: true, Size: info.Size()}
	}

	fmt.Print(output.RenderAllowedTable(entries, states))
	return nil
}

func runAllowImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	file := cfg.Paths.AllowlistFile
	if len(args) == 1 {
		file = args[0]
	}
	entries, err := config.LoadAllowlistFile(file)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", file, err)
	}
	if len(entries) == 0 {
		fmt.Printf("No paths found in %s\n", file)
		return nil
	}

	st, err := openStore(cfg, nil)
	if err != nil {
		return err
	}
	defer st.Close()

	note := "imported from " + filepath.Base(file)
	progress := output.NewProgress(len(entries), "Importing allow-list...")
	for _, e := range entries {
		if err := st.AddAllowedLog(e.Path, note); err != nil {
			progress.Finish()
			return err
		}
		progress.Increment()
	}
	progress.Finish()

	fmt.Printf("✓ Imported %d paths from %s\n", len(entries), file)
	return nil
}
