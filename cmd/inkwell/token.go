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

package main

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/inkwell-team/inkwell/api/types"
	"github.com/inkwell-team/inkwell/server"
	"github.com/inkwell-team/inkwell/server/auth"
)

var (
	tokenSecretKey string
	tokenUsername  string
	tokenTTL       time.Duration
)

func newTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token [user id]",
		Short: "Mint an authentication token for a user",
		Long: "Mint an authentication token for a user. The secret key must be the one " +
			"the server was started with.",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindEnv(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("user id is required")
			}

			tokens := auth.NewTokenManager(tokenSecretKey, tokenTTL)
			token, err := tokens.Generate(types.Identity{UserID: args[0], Username: tokenUsername})
			if err != nil {
				return err
			}

			cmd.Println(token)
			return nil
		},
	}
}

func init() {
	cmd := newTokenCmd()
	cmd.Flags().StringVar(
		&tokenSecretKey,
		"secret-key",
		server.DefaultSecretKey,
		"The secret key the server signs tokens with.",
	)
	cmd.Flags().StringVar(
		&tokenUsername,
		"username",
		"",
		"Display name carried by the token",
	)
	cmd.Flags().DurationVar(
		&tokenTTL,
		"token-duration",
		server.DefaultTokenDuration,
		"The duration of the token.",
	)
	rootCmd.AddCommand(cmd)
}
