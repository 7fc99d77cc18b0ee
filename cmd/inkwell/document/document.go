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

// Package document provides the document subcommands that call the REST API
// of a running server.
package document

import (
	"github.com/spf13/cobra"
)

var (
	// SubCmd represents the document command
	SubCmd = &cobra.Command{
		Use:     "document [command]",
		Short:   "Manage notes",
		Aliases: []string{"doc", "note"},
	}
)

func init() {
	SubCmd.AddCommand(newListCommand())
	SubCmd.AddCommand(newCreateCommand())
	SubCmd.AddCommand(newShareCommand())
	SubCmd.AddCommand(newHistoryCommand())
}
