/*
 * Copyright 2024 The Inkwell Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package document

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/inkwell-team/inkwell/api/types"
)

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List the notes owned by or shared with the caller",
		RunE: func(cmd *cobra.Command, args []string) error {
			var list types.DocumentList
			if err := call(cmd.Context(), "GET", "/api/notes", nil, &list); err != nil {
				return err
			}

			return printDocuments(cmd, viper.GetString("output"), &list)
		},
	}
}

func printDocuments(cmd *cobra.Command, output string, list *types.DocumentList) error {
	switch output {
	case "":
		tw := newTableWriter()
		tw.AppendHeader(table.Row{
			"ID",
			"TITLE",
			"OWNER",
			"VERSION",
			"LAST MODIFIED",
			"ACCESS",
		})
		appendRows := func(summaries []types.DocumentSummary, access string) {
			for _, summary := range summaries {
				tw.AppendRow(table.Row{
					summary.ID,
					summary.Title,
					summary.Owner,
					summary.Version,
					humanDuration(time.Since(summary.LastModified)),
					access,
				})
			}
		}
		appendRows(list.Owned, "owner")
		appendRows(list.Shared, "shared")
		cmd.Printf("%s\n", tw.Render())
	case "json":
		jsonOutput, err := json.MarshalIndent(list, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal JSON: %w", err)
		}
		cmd.Println(string(jsonOutput))
	case "yaml":
		yamlOutput, err := yaml.Marshal(list)
		if err != nil {
			return fmt.Errorf("marshal YAML: %w", err)
		}
		cmd.Println(string(yamlOutput))
	default:
		return errors.New("unknown output format")
	}

	return nil
}

func newTableWriter() table.Writer {
	tw := table.NewWriter()
	tw.Style().Options.DrawBorder = false
	tw.Style().Options.SeparateColumns = false
	tw.Style().Options.SeparateFooter = false
	tw.Style().Options.SeparateHeader = false
	tw.Style().Options.SeparateRows = false
	return tw
}

// humanDuration returns a short human readable age such as "3 minutes ago".
func humanDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "less than a minute ago"
	case d < time.Hour:
		return fmt.Sprintf("%d minutes ago", int(d.Minutes()))
	case d < 48*time.Hour:
		return fmt.Sprintf("%d hours ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%d days ago", int(d.Hours()/24))
	}
}
