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

// Package main is the entry point of the Inkwell CLI.
package main

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/inkwell-team/inkwell/cmd/inkwell/document"
)

const envPrefix = "INKWELL"

var rootCmd = &cobra.Command{
	Use:   "inkwell",
	Short: "Realtime document sync server for collaborative notes",
}

// Run executes CLI.
func Run() int {
	if err := rootCmd.Execute(); err != nil {
		return 1
	}

	return 0
}

// bindEnv fills every flag the user did not set from the INKWELL_ prefixed
// environment, e.g. INKWELL_HTTP_PORT for --http-port.
func bindEnv(flags *pflag.FlagSet) error {
	env := viper.New()
	env.SetEnvPrefix(envPrefix)
	env.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	env.AutomaticEnv()

	var err error
	flags.VisitAll(func(f *pflag.Flag) {
		if err != nil || f.Changed || !env.IsSet(f.Name) {
			return
		}
		err = flags.Set(f.Name, env.GetString(f.Name))
	})
	return err
}

func init() {
	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv()

	rootCmd.AddCommand(document.SubCmd)
	rootCmd.PersistentFlags().String("addr", "localhost:8080", "Address of the Inkwell server")
	rootCmd.PersistentFlags().String("token", "", "Token used to call the REST API")
	rootCmd.PersistentFlags().StringP("output", "o", "", "One of 'yaml' or 'json'.")
	_ = viper.BindPFlag("addr", rootCmd.PersistentFlags().Lookup("addr"))
	_ = viper.BindPFlag("token", rootCmd.PersistentFlags().Lookup("token"))
	_ = viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
}
