package main

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/revmura/revmura-suite/app"
	"github.com/revmura/revmura-suite/core/formatter"
	"github.com/revmura/revmura-suite/domain/module"
	hostversion "github.com/revmura/revmura-suite/domain/version"
	"github.com/spf13/cobra"
)

var modulesCmd = &cobra.Command{
	Use:     "modules",
	Aliases: []string{"module", "mod"},
	Short:   "Manage modules",
	Long: `List registered modules and change which ones are enabled.

Changes are written to the settings store and take effect the next time
the host boots. Uninstall deletes a module's data and requires the module
to be disabled first.

Examples:
  revmura modules list
  revmura modules enable cpt
  revmura modules disable multilang
  revmura modules uninstall hello`,
}

var modulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered modules",
	Long: `List registered modules with their enabled flag, installed version and
whether they pass the version gate for the configured host.

--filter takes a boolean expression over the fields id, label, version,
state, enabled, installed, compatible and failing_axes.

Examples:
  revmura modules list
  revmura modules list --filter 'enabled && !compatible'
  revmura modules list --filter 'installed != "" && installed != version'`,
	RunE: runModulesList,
}

var modulesFilter string

var modulesEnableCmd = &cobra.Command{
	Use:   "enable <id>...",
	Short: "Add modules to the enabled set",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runModulesEnable,
}

var modulesDisableCmd = &cobra.Command{
	Use:   "disable <id>...",
	Short: "Remove modules from the enabled set",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runModulesDisable,
}

var modulesUninstallCmd = &cobra.Command{
	Use:   "uninstall <id>",
	Short: "Delete a disabled module's data",
	Args:  cobra.ExactArgs(1),
	RunE:  runModulesUninstall,
}

func init() {
	rootCmd.AddCommand(modulesCmd)
	modulesCmd.AddCommand(modulesListCmd)
	modulesCmd.AddCommand(modulesEnableCmd)
	modulesCmd.AddCommand(modulesDisableCmd)
	modulesCmd.AddCommand(modulesUninstallCmd)

	modulesListCmd.Flags().StringVar(&modulesFilter, "filter", "", "only list modules matching this expression")
}

// moduleRow is the list view of one module, including an offline gate check
// against the configured host versions.
type moduleRow struct {
	app.ModuleStatus
	Compatible  bool     `json:"compatible"`
	FailingAxes []string `json:"failing_axes,omitempty"`
}

func runModulesList(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	statuses, err := a.Lifecycle.Statuses(operatorContext(cmd))
	if err != nil {
		return fmt.Errorf("failed to list modules: %w", err)
	}

	match, err := compileFilter(modulesFilter)
	if err != nil {
		return err
	}

	host := a.Lifecycle.Host()
	rows := make([]moduleRow, 0, len(statuses))
	table := formatter.Table{Header: []string{"id", "label", "version", "enabled", "installed", "compatible"}}
	for _, s := range statuses {
		res := hostversion.Check(s.Descriptor.Requirements(), host)
		row := moduleRow{ModuleStatus: s, Compatible: res.OK()}
		if !row.Compatible {
			row.FailingAxes = res.Names()
		}
		ok, err := match(row)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		rows = append(rows, row)

		compat := "yes"
		if !row.Compatible {
			compat = "needs newer " + strings.Join(row.FailingAxes, ", ")
		}
		table.Rows = append(table.Rows, []string{
			s.ID, s.Label, s.Version, yesNo(s.Enabled), s.LedgerVersion, compat,
		})
	}
	return render(cmd, rows, table)
}

func runModulesEnable(cmd *cobra.Command, args []string) error {
	return changeEnabled(cmd, args, true)
}

func runModulesDisable(cmd *cobra.Command, args []string) error {
	return changeEnabled(cmd, args, false)
}

func changeEnabled(cmd *cobra.Command, ids []string, enable bool) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := operatorContext(cmd)
	for i, id := range ids {
		ids[i] = module.NormalizeID(id)
		if _, ok := a.Registry.Find(ids[i]); !ok {
			return fmt.Errorf("unknown module: %q", id)
		}
	}

	current, err := a.Lifecycle.Enabled(ctx)
	if err != nil {
		return fmt.Errorf("failed to load enabled modules: %w", err)
	}

	var target []string
	if enable {
		target = append(current, ids...)
	} else {
		for _, id := range current {
			if !containsID(ids, id) {
				target = append(target, id)
			}
		}
	}

	report, err := a.Lifecycle.Toggle(ctx, target)
	if err != nil {
		return fmt.Errorf("failed to update modules: %w", err)
	}

	out := cmd.OutOrStdout()
	for _, id := range report.EnabledNow {
		fmt.Fprintf(out, "%s Enabled %s\n", checkMark, id)
	}
	for _, id := range report.DisabledNow {
		fmt.Fprintf(out, "%s Disabled %s\n", checkMark, id)
	}
	for _, f := range report.Faults {
		fmt.Fprintf(out, "%s %v\n", crossMark, f)
	}
	if len(report.EnabledNow)+len(report.DisabledNow) == 0 {
		fmt.Fprintln(out, "No changes.")
		return nil
	}
	fmt.Fprintln(out, "Changes take effect at the next boot.")
	return nil
}

func runModulesUninstall(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.Lifecycle.Uninstall(operatorContext(cmd), args[0])
	if err != nil {
		return fmt.Errorf("failed to uninstall module: %w", err)
	}

	out := cmd.OutOrStdout()
	if report.Fault != nil {
		fmt.Fprintf(out, "%s %v\n", crossMark, report.Fault)
	}
	if !report.Registered {
		fmt.Fprintf(out, "Module %s is not registered", report.Module)
		if report.LedgerCleared {
			fmt.Fprint(out, "; cleared its version record")
		}
		fmt.Fprintln(out, ".")
		return nil
	}
	fmt.Fprintf(out, "%s Deleted data of %s\n", checkMark, report.Module)
	return nil
}

// compileFilter compiles a --filter expression. An empty expression
// matches every row.
func compileFilter(filter string) (func(moduleRow) (bool, error), error) {
	if strings.TrimSpace(filter) == "" {
		return func(moduleRow) (bool, error) { return true, nil }, nil
	}

	program, err := expr.Compile(filter, expr.Env(filterEnv(moduleRow{})), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("invalid filter: %w", err)
	}
	return func(row moduleRow) (bool, error) {
		out, err := expr.Run(program, filterEnv(row))
		if err != nil {
			return false, fmt.Errorf("filter %s: %w", row.ID, err)
		}
		return out.(bool), nil
	}, nil
}

func filterEnv(row moduleRow) map[string]any {
	axes := row.FailingAxes
	if axes == nil {
		axes = []string{}
	}
	return map[string]any{
		"id":           row.ID,
		"label":        row.Label,
		"version":      row.Version,
		"state":        string(row.State),
		"enabled":      row.Enabled,
		"installed":    row.LedgerVersion,
		"compatible":   row.Compatible,
		"failing_axes": axes,
	}
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
