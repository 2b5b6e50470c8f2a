package main

import (
	"encoding/json"
	"fmt"

	"github.com/revmura/revmura-suite/core/formatter"
	"github.com/revmura/revmura-suite/domain/settings"
	"github.com/spf13/cobra"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Inspect raw persisted settings",
	Long: `Inspect and edit the raw settings store.

Every setting is a JSON document stored under a namespaced key:
  modules.enabled     - the enabled module set
  modules.versions    - the last-seen version of each module
  cpt.schema          - the content-type schema snapshot
  multilang.settings  - multilingual module settings

Values passed to "set" are stored as-is when they are valid JSON and as a
JSON string otherwise.

Examples:
  revmura settings list
  revmura settings get modules.enabled -o json
  revmura settings set modules.enabled '["cpt","hello"]'
  revmura settings delete multilang.settings`,
}

var settingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all settings",
	RunE:  runSettingsList,
}

var settingsGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Show one setting",
	Args:  cobra.ExactArgs(1),
	RunE:  runSettingsGet,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Store a setting",
	Args:  cobra.ExactArgs(2),
	RunE:  runSettingsSet,
}

var settingsDeleteCmd = &cobra.Command{
	Use:   "delete <key>",
	Short: "Delete a setting",
	Args:  cobra.ExactArgs(1),
	RunE:  runSettingsDelete,
}

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsListCmd)
	settingsCmd.AddCommand(settingsGetCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsDeleteCmd)
}

// settingView is the structured form of a setting for json and yaml output.
type settingView struct {
	Key       string `json:"key"`
	Owner     string `json:"owner,omitempty"`
	Value     any    `json:"value"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

func viewOf(s settings.Setting) settingView {
	v := settingView{Key: s.Key, Owner: settings.Owner(s.Key)}
	if err := s.Decode(&v.Value); err != nil {
		v.Value = s.Value
	}
	if !s.UpdatedAt.IsZero() {
		v.UpdatedAt = s.UpdatedAt.Format("2006-01-02 15:04:05")
	}
	return v
}

func runSettingsList(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	all, err := a.Store.List(operatorContext(cmd))
	if err != nil {
		return fmt.Errorf("failed to list settings: %w", err)
	}

	views := make([]settingView, 0, len(all))
	table := formatter.Table{Header: []string{"key", "owner", "value", "updated"}}
	for _, s := range all {
		v := viewOf(s)
		views = append(views, v)
		table.Rows = append(table.Rows, []string{s.Key, v.Owner, s.Display(50), v.UpdatedAt})
	}
	return render(cmd, views, table)
}

func runSettingsGet(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	all, err := a.Store.List(operatorContext(cmd))
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	for _, s := range all {
		if s.Key != args[0] {
			continue
		}
		v := viewOf(s)
		table := formatter.Table{
			Header: []string{"key", "value"},
			Rows:   [][]string{{s.Key, s.Display(0)}},
		}
		return render(cmd, v, table)
	}
	return fmt.Errorf("setting not found: %s", args[0])
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	key, value := args[0], settings.EncodeValue(args[1])
	if err := a.Store.Save(operatorContext(cmd), key, json.RawMessage(value)); err != nil {
		return fmt.Errorf("failed to save setting: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s Saved %s\n", checkMark, key)
	return nil
}

func runSettingsDelete(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Store.Delete(operatorContext(cmd), args[0]); err != nil {
		return fmt.Errorf("failed to delete setting: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s Deleted %s\n", checkMark, args[0])
	return nil
}
