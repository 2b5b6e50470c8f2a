package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/revmura/revmura-suite/app"
	"github.com/revmura/revmura-suite/core/formatter"
	"github.com/revmura/revmura-suite/domain/schema"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Inspect and edit the content-type schema",
	Long: `Inspect and edit the persisted content-type schema.

The schema holds content types ("cpts") and the taxonomies ("taxes") that
classify them. Every change replaces the stored snapshot as a whole; the
running host registers the new entities at its next boot.

Examples:
  revmura schema show
  revmura schema show -o json
  revmura schema apply schema.yaml
  revmura schema export offer --file offer.json
  revmura schema delete offer`,
}

var schemaShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the stored schema",
	RunE:  runSchemaShow,
}

var schemaApplyCmd = &cobra.Command{
	Use:   "apply <file>",
	Short: "Replace the schema with a JSON or YAML document",
	Long: `Replace the stored schema with the document in file.

Files ending in .yaml or .yml are read as YAML, anything else as JSON.
Use "-" to read JSON from standard input. Missing or malformed entries
fall back to defaults; only a document that is not an object is rejected.`,
	Args: cobra.ExactArgs(1),
	RunE: runSchemaApply,
}

var schemaExportCmd = &cobra.Command{
	Use:   "export <key>",
	Short: "Export one content type with its taxonomies",
	Args:  cobra.ExactArgs(1),
	RunE:  runSchemaExport,
}

var schemaDeleteCmd = &cobra.Command{
	Use:   "delete <key>",
	Short: "Delete a content type and detach its taxonomies",
	Args:  cobra.ExactArgs(1),
	RunE:  runSchemaDelete,
}

var schemaExportFile string

func init() {
	rootCmd.AddCommand(schemaCmd)
	schemaCmd.AddCommand(schemaShowCmd)
	schemaCmd.AddCommand(schemaApplyCmd)
	schemaCmd.AddCommand(schemaExportCmd)
	schemaCmd.AddCommand(schemaDeleteCmd)

	schemaExportCmd.Flags().StringVarP(&schemaExportFile, "file", "f", "", "write the export to a file instead of stdout")
}

func runSchemaShow(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	snap, err := a.Schemas.Current(operatorContext(cmd))
	if err != nil {
		return fmt.Errorf("failed to load schema: %w", err)
	}
	return render(cmd, snap, schemaTable(snap))
}

func runSchemaApply(cmd *cobra.Command, args []string) error {
	raw, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := operatorContext(cmd)
	var result app.ApplyResult
	switch strings.ToLower(filepath.Ext(args[0])) {
	case ".yaml", ".yml":
		var doc map[string]any
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("failed to parse %s: %w", args[0], err)
		}
		if doc == nil {
			return schema.ErrInvalidSnapshot
		}
		result, err = a.Schemas.ApplyMap(ctx, doc)
	default:
		result, err = a.Schemas.Apply(ctx, raw)
	}
	if err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s Schema saved: %d content types, %d taxonomies\n",
		checkMark, len(result.Primaries), len(result.Secondaries))
	return nil
}

func runSchemaExport(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	snap, err := a.Schemas.ExportOne(operatorContext(cmd), args[0])
	if err != nil {
		return fmt.Errorf("failed to export schema: %w", err)
	}
	if len(snap.Primaries) == 0 {
		return fmt.Errorf("content type not found: %s", args[0])
	}

	data, err := app.MarshalSnapshot(snap)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	if schemaExportFile == "" {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(schemaExportFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", schemaExportFile, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s Exported %s to %s\n", checkMark, schema.NormalizeKey(args[0]), schemaExportFile)
	return nil
}

func runSchemaDelete(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	next, err := a.Schemas.DeletePrimary(operatorContext(cmd), args[0])
	if err != nil {
		return fmt.Errorf("failed to delete content type: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s Deleted %s (%d content types, %d taxonomies remain)\n",
		checkMark, schema.NormalizeKey(args[0]), len(next.Primaries), len(next.Secondaries))
	return nil
}

func schemaTable(snap schema.Snapshot) formatter.Table {
	t := formatter.Table{Header: []string{"kind", "key", "label", "slug", "object types"}}
	for _, key := range snap.PrimaryKeys() {
		p := snap.Primaries[key]
		t.Rows = append(t.Rows, []string{"cpt", key, p.Label, p.Rewrite.Slug, ""})
	}
	secs := append([]schema.Secondary(nil), snap.Secondaries...)
	sort.SliceStable(secs, func(i, j int) bool { return secs[i].Slug < secs[j].Slug })
	for _, s := range secs {
		t.Rows = append(t.Rows, []string{"tax", s.Slug, s.Label, s.Rewrite.Slug, strings.Join(s.ObjectTypes, ", ")})
	}
	return t
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}
