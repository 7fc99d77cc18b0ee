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

	"github.com/spf13/cobra"

	"github.com/inkwell-team/inkwell/api/types"
	"github.com/inkwell-team/inkwell/server/web"
)

var (
	title   string
	content string
)

func newCreateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a note owned by the caller",
		RunE: func(cmd *cobra.Command, args []string) error {
			var doc types.Document
			if err := call(cmd.Context(), "POST", "/api/notes", &web.CreateNoteRequest{
				Title:   title,
				Content: content,
			}, &doc); err != nil {
				return err
			}

			cmd.Printf("created %s\n", doc.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Title of the note")
	cmd.Flags().StringVar(&content, "content", "", "Initial content of the note")
	return cmd
}

func newShareCommand() *cobra.Command {
	var permission string
	cmd := &cobra.Command{
		Use:   "share [document id] [user id]",
		Short: "Grant a user access to a note",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 2 {
				return errors.New("document id and user id are required")
			}

			if err := call(cmd.Context(), "POST", "/api/notes/"+args[0]+"/share", &web.ShareNoteRequest{
				UserID:     args[1],
				Permission: types.Permission(permission),
			}, nil); err != nil {
				return err
			}

			cmd.Printf("shared %s with %s (%s)\n", args[0], args[1], permission)
			return nil
		},
	}
	cmd.Flags().StringVar(&permission, "permission", string(types.PermRead), "Permission to grant: read, write")
	return cmd
}
