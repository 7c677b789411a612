// Copyright 2025 the original author or authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"m4o.io/osmedit/internal/snapshot"
	"m4o.io/osmedit/queue"
)

const (
	envPrefix  = "OSMEDIT"
	configName = ".osmedit"
)

// Fs is the file system commands read and write. Tests swap in a MemMapFs.
var Fs = afero.NewOsFs()

// RootCmd is the osmedit command; subcommands register themselves on it.
var RootCmd = &cobra.Command{
	Use:           "osmedit",
	Short:         "Edit OSM snapshots with undo and redo",
	Long:          "Edit OSM snapshots with undo and redo",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.OnInitialize(InitConfig)

	flags := RootCmd.PersistentFlags()
	flags.String("config", "", "config file (default is ./.osmedit.yaml or $HOME/.osmedit.yaml)")
	flags.BoolP("verbose", "v", false, "log debug output")
	flags.Uint16P("cpu", "c", snapshot.DefaultNCpu(), "number of CPUs to use for reading and writing")

	_ = viper.BindPFlag("config", flags.Lookup("config"))
	_ = viper.BindPFlag("verbose", flags.Lookup("verbose"))
	_ = viper.BindPFlag("cpu", flags.Lookup("cpu"))

	setDefaults()
}

func setDefaults() {
	viper.SetDefault("undo.max", 0)
	viper.SetDefault("merge.moves", true)
	viper.SetDefault("snapshot.compression", snapshot.DefaultCompression.String())
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// InitConfig reads the config file and environment, then sets up logging.
func InitConfig() {
	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.SetFs(Fs)

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
		viper.SetConfigName(configName)
		viper.SetConfigType("yaml")
	}

	err := viper.ReadInConfig()

	level := slog.LevelInfo
	if viper.GetBool("verbose") {
		level = slog.LevelDebug
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	var notFound viper.ConfigFileNotFoundError

	switch {
	case err == nil:
		slog.Debug("using config file", "path", viper.ConfigFileUsed())
	case errors.As(err, &notFound):
	default:
		slog.Error("unable to read config file", "path", viper.ConfigFileUsed(), "error", err)
	}
}

// Config is the editing configuration gathered from flags, environment and
// config file.
type Config struct {
	MaxUndo     int
	MergeMoves  bool
	Compression snapshot.Compression
	NCpu        uint16
}

// LoadConfig reads the current configuration.
func LoadConfig() (*Config, error) {
	c, err := snapshot.ParseCompression(viper.GetString("snapshot.compression"))
	if err != nil {
		return nil, fmt.Errorf("snapshot.compression: %w", err)
	}

	ncpu := uint16(viper.GetUint("cpu"))
	if ncpu == 0 {
		ncpu = snapshot.DefaultNCpu()
	}

	return &Config{
		MaxUndo:     viper.GetInt("undo.max"),
		MergeMoves:  viper.GetBool("merge.moves"),
		Compression: c,
		NCpu:        ncpu,
	}, nil
}

// QueueOptions configures an undo/redo queue after c.
func (c *Config) QueueOptions() []queue.Option {
	return []queue.Option{
		queue.WithMaxUndo(c.MaxUndo),
		queue.WithMoveMerging(c.MergeMoves),
	}
}
