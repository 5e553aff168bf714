package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/pgEdge/pgedge-ecomload/internal/loader"
	"github.com/pgEdge/pgedge-ecomload/internal/tables"
)

var tablesOutput string

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List the table contracts",
	Long: `List every target table in load order with its source file and
dependencies. With --output yaml the full column contracts are printed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeTables(cmd.OutOrStdout(), tablesOutput, tables.All())
	},
}

func init() {
	tablesCmd.Flags().StringVarP(&tablesOutput, "output", "o", "text",
		"output format (text, yaml)")
}

type columnInfo struct {
	Name       string   `yaml:"name"`
	Type       string   `yaml:"type"`
	Field      string   `yaml:"field,omitempty"`
	Nullable   bool     `yaml:"nullable,omitempty"`
	References string   `yaml:"references,omitempty"`
	Layouts    []string `yaml:"layouts,omitempty"`
}

type tableInfo struct {
	Table        string       `yaml:"table"`
	Description  string       `yaml:"description,omitempty"`
	Source       string       `yaml:"source"`
	File         string       `yaml:"file"`
	PrimaryKey   string       `yaml:"primary_key"`
	Unique       []string     `yaml:"unique,omitempty"`
	Dependencies []string     `yaml:"dependencies,omitempty"`
	Columns      []columnInfo `yaml:"columns"`
}

func describeTable(c *loader.TableContract) tableInfo {
	info := tableInfo{
		Table:        c.Table,
		Description:  c.Description,
		Source:       c.Source.String(),
		File:         c.File,
		PrimaryKey:   c.PrimaryKey,
		Unique:       c.Unique,
		Dependencies: c.Dependencies(),
	}
	for _, col := range c.Columns {
		ci := columnInfo{
			Name:     col.Name,
			Type:     col.Type.String(),
			Field:    col.Field,
			Nullable: col.Nullable,
			Layouts:  col.Layouts,
		}
		if col.FK != nil {
			ci.References = fmt.Sprintf("%s.%s by %s", col.FK.Table, col.FK.TargetColumn, col.FK.MatchColumn)
		}
		info.Columns = append(info.Columns, ci)
	}
	return info
}

func writeTables(w io.Writer, format string, contracts []*loader.TableContract) error {
	switch format {
	case "yaml":
		infos := make([]tableInfo, 0, len(contracts))
		for _, c := range contracts {
			infos = append(infos, describeTable(c))
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(infos); err != nil {
			return fmt.Errorf("failed to encode tables: %w", err)
		}
		return enc.Close()
	case "text", "":
		for _, c := range contracts {
			deps := "-"
			if d := c.Dependencies(); len(d) > 0 {
				deps = strings.Join(d, ", ")
			}
			fmt.Fprintf(w, "%-14s %-10s %-32s depends on: %s\n", c.Table, c.Source, c.File, deps)
		}
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}
