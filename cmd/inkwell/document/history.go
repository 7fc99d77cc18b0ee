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
	"errors"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/inkwell-team/inkwell/api/types"
)

func newHistoryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "history [document id]",
		Short: "Show the saved versions of a note",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("document id is required")
			}

			var versions []types.VersionInfo
			if err := call(cmd.Context(), "GET", "/api/notes/"+args[0]+"/versions", nil, &versions); err != nil {
				return err
			}

			tw := newTableWriter()
			tw.AppendHeader(table.Row{"VERSION", "MODIFIED BY", "SAVED AT", "SIZE"})
			for _, v := range versions {
				tw.AppendRow(table.Row{v.Version, v.ModifiedBy, v.Timestamp.Format("2006-01-02 15:04:05"), len(v.Content)})
			}
			cmd.Printf("%s\n", tw.Render())
			return nil
		},
	}
}
