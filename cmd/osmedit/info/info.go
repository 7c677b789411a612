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


package info

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	humanize "github.com/dustin/go-humanize"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"m4o.io/osmedit/cmd/osmedit/cli"
	"m4o.io/osmedit/internal/snapshot"
	"m4o.io/osmedit/model"
)

var out io.Writer = os.Stdout

type extendedHeader struct {
	snapshot.Header

	NewCount     int64 `json:",omitempty"`
	DeletedCount int64 `json:",omitempty"`
}

func init() {
	cli.RootCmd.AddCommand(infoCmd)

	flags := infoCmd.Flags()
	flags.BoolP("json", "j", false, "format information in JSON")
	flags.BoolP("extended", "e", false, "provide extended information (scans entire file)")
}

var infoCmd = &cobra.Command{
	Use:   "info [<snapshot>]",
	Short: "Print information about a snapshot",
	Long:  "Print information about a snapshot",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var f afero.File
		var err error
		if len(args) == 1 {
			f, err = cli.Fs.Open(args[0])
			if err != nil {
				log.Fatal(err)
			}
		} else {
			f = os.Stdin
		}

		in, err := cli.WrapInputFile(f)
		if err != nil {
			log.Fatal(err)
		}

		cfg, err := cli.LoadConfig()
		if err != nil {
			log.Fatal(err)
		}

		flags := cmd.Flags()

		extended, err := flags.GetBool("extended")
		if err != nil {
			log.Fatal(err)
		}

		info, err := runInfo(in, cfg.NCpu, extended)
		if err != nil {
			log.Fatal(err)
		}

		if err := in.Close(); err != nil {
			log.Fatal(err)
		}

		jsonfmt, err := flags.GetBool("json")
		if err != nil {
			log.Fatal(err)
		}

		if jsonfmt {
			renderJSON(info, extended)
		} else {
			renderTxt(info, extended)
		}
	},
}

func runInfo(in io.Reader, ncpu uint16, extended bool) (*extendedHeader, error) {
	if !extended {
		hdr, err := snapshot.ReadHeader(in)
		if err != nil {
			return nil, err
		}

		return &extendedHeader{Header: *hdr}, nil
	}

	hdr, prims, err := snapshot.Read(in, snapshot.WithNCpus(ncpu))
	if err != nil {
		return nil, err
	}

	info := &extendedHeader{Header: *hdr}

	for _, p := range prims {
		switch p.GetState() {
		case model.New:
			info.NewCount++
		case model.Deleted:
			info.DeletedCount++
		}
	}

	return info, nil
}

func renderJSON(info *extendedHeader, extended bool) {
	// marshall the smallest struct needed
	var v any
	if extended {
		v = info
	} else {
		v = info.Header
	}

	b, err := json.Marshal(v)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Fprint(out, string(b))
}

func renderTxt(info *extendedHeader, extended bool) {
	bbox := "none"
	if info.BoundingBox != nil {
		bbox = info.BoundingBox.String()
	}

	fmt.Fprintf(out, "BoundingBox: %s\n", bbox)
	fmt.Fprintf(out, "RequiredFeatures: %s\n", strings.Join(info.RequiredFeatures, ", "))
	fmt.Fprintf(out, "WritingProgram: %s\n", info.WritingProgram)
	fmt.Fprintf(out, "Source: %s\n", info.Source)
	fmt.Fprintf(out, "Timestamp: %s\n", info.Timestamp.UTC().Format(time.RFC3339))
	fmt.Fprintf(out, "NodeCount: %s\n", humanize.Comma(info.Nodes))
	fmt.Fprintf(out, "WayCount: %s\n", humanize.Comma(info.Ways))
	fmt.Fprintf(out, "RelationCount: %s\n", humanize.Comma(info.Relations))
	if extended {
		fmt.Fprintf(out, "NewCount: %s\n", humanize.Comma(info.NewCount))
		fmt.Fprintf(out, "DeletedCount: %s\n", humanize.Comma(info.DeletedCount))
	}
}
