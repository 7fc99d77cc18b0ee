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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/inkwell-team/inkwell/internal/version"
	"github.com/inkwell-team/inkwell/server/web"
)

var (
	clientOnly bool
)

// versionDetail is the version of one binary.
type versionDetail struct {
	InkwellVersion string `json:"inkwellVersion" yaml:"inkwellVersion"`
	GoVersion      string `json:"goVersion,omitempty" yaml:"goVersion,omitempty"`
	BuildDate      string `json:"buildDate,omitempty" yaml:"buildDate,omitempty"`
}

// versionInfo is the output of the version command.
type versionInfo struct {
	ClientVersion *versionDetail `json:"clientVersion" yaml:"clientVersion"`
	ServerVersion *versionDetail `json:"serverVersion,omitempty" yaml:"serverVersion,omitempty"`
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of Inkwell",
		RunE: func(cmd *cobra.Command, args []string) error {
			info := versionInfo{
				ClientVersion: &versionDetail{
					InkwellVersion: version.Version,
					GoVersion:      runtime.Version(),
					BuildDate:      version.BuildDate,
				},
			}

			var serverErr error
			if !clientOnly {
				info.ServerVersion, serverErr = fetchServerVersion(cmd.Context(), viper.GetString("addr"))
			}

			switch viper.GetString("output") {
			case "":
				cmd.Printf("Inkwell Client: %s\n", info.ClientVersion.InkwellVersion)
				cmd.Printf("Go: %s\n", info.ClientVersion.GoVersion)
				cmd.Printf("Build Date: %s\n", info.ClientVersion.BuildDate)
				if info.ServerVersion != nil {
					cmd.Printf("Inkwell Server: %s\n", info.ServerVersion.InkwellVersion)
				}
			case "yaml":
				marshalled, err := yaml.Marshal(&info)
				if err != nil {
					return errors.New("failed to marshal YAML")
				}
				cmd.Println(string(marshalled))
			case "json":
				marshalled, err := json.MarshalIndent(&info, "", "  ")
				if err != nil {
					return errors.New("failed to marshal JSON")
				}
				cmd.Println(string(marshalled))
			default:
				return errors.New("unknown output format")
			}

			if serverErr != nil {
				cmd.Printf("Error fetching server version: %v\n", serverErr)
			}
			return nil
		},
	}
}

// fetchServerVersion asks the health endpoint of the server for its version.
func fetchServerVersion(ctx context.Context, addr string) (*versionDetail, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("http://%s/", addr), nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get server version: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var health web.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return nil, fmt.Errorf("decode health: %w", err)
	}
	return &versionDetail{InkwellVersion: health.Version}, nil
}

func init() {
	cmd := newVersionCmd()
	cmd.Flags().BoolVar(
		&clientOnly,
		"client",
		false,
		"Shows client version only (no server required).",
	)
	rootCmd.AddCommand(cmd)
}
