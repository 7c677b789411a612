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


package edit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"time"

	humanize "github.com/dustin/go-humanize"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"m4o.io/osmedit/cmd/osmedit/cli"
	"m4o.io/osmedit/internal/loader"
	"m4o.io/osmedit/internal/script"
	"m4o.io/osmedit/internal/snapshot"
	"m4o.io/osmedit/queue"
	"m4o.io/osmedit/session"
	"m4o.io/osmedit/store"
)

var out io.Writer = os.Stdout

var scriptFile afero.File

func init() {
	cli.RootCmd.AddCommand(editCmd)

	flags := editCmd.Flags()
	flags.VarP(cli.NewReaderValue(nil, &scriptFile, "file"), "script", "s", "edit script to run")
	flags.StringP("out", "o", "", "where to write the edited snapshot")
	flags.BoolP("quiet", "q", false, "do not show progress while loading")

	_ = editCmd.MarkFlagRequired("script")
}

var editCmd = &cobra.Command{
	Use:   "edit --script <script> [--out <snapshot>] [<snapshot>...]",
	Short: "Run an edit script over snapshots",
	Long: "Load the given snapshots as one undoable step, run an edit script on them, " +
		"print the resulting history and optionally write the edited snapshot",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := cli.LoadConfig()
		if err != nil {
			log.Fatal(err)
		}

		sc, err := script.Parse(scriptFile)
		if err != nil {
			log.Fatal(err)
		}

		if err := scriptFile.Close(); err != nil {
			log.Fatal(err)
		}

		flags := cmd.Flags()

		outPath, err := flags.GetString("out")
		if err != nil {
			log.Fatal(err)
		}

		quiet, err := flags.GetBool("quiet")
		if err != nil {
			log.Fatal(err)
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
		defer cancel()

		err = runEdit(ctx, &edit{
			fs:       cli.Fs,
			cfg:      cfg,
			inputs:   args,
			script:   sc,
			out:      outPath,
			progress: !quiet,
		})
		if err != nil {
			log.Fatal(err)
		}
	},
}

type edit struct {
	fs       afero.Fs
	cfg      *cli.Config
	inputs   []string
	script   *script.Script
	out      string
	progress bool
}

func runEdit(ctx context.Context, e *edit) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sess := session.New(session.WithQueueOptions(e.cfg.QueueOptions()...))

	stopped := make(chan error, 1)
	go func() { stopped <- sess.Run(ctx) }()

	defer func() {
		cancel()
		<-stopped
	}()

	slog.Debug("editing", "session", sess.ID(), "inputs", len(e.inputs), "steps", len(e.script.Steps))

	if err := load(ctx, sess, e); err != nil {
		return err
	}

	if err := e.script.Run(ctx, sess); err != nil {
		return err
	}

	return sess.Do(ctx, func(ds *store.DataSet, q *queue.Queue) error {
		printHistory(q)

		if e.out == "" {
			return nil
		}

		return write(e, ds)
	})
}

func load(ctx context.Context, sess *session.Session, e *edit) error {
	if len(e.inputs) == 0 {
		return nil
	}

	opts := []loader.Option{loader.WithNCpus(e.cfg.NCpu)}

	if e.progress {
		p, err := cli.StartProgress(e.fs, e.inputs)
		if err != nil {
			return err
		}

		defer p.Finish()

		opts = append(opts, loader.WithWrapper(p.Wrap))
	}

	return <-sess.Produce(ctx, loader.Producer(e.fs, e.inputs, opts...))
}

func printHistory(q *queue.Queue) {
	fmt.Fprintln(out, "History:")

	for i, c := range q.UndoCommands() {
		fmt.Fprintf(out, "%4d. %s\n", i+1, c.Description())
	}

	if redo := q.RedoCommands(); len(redo) > 0 {
		fmt.Fprintln(out, "Redo:")

		for i, c := range redo {
			fmt.Fprintf(out, "%4d. %s\n", i+1, c.Description())
		}
	}
}

func write(e *edit, ds *store.DataSet) (err error) {
	f, err := e.fs.Create(e.out)
	if err != nil {
		return err
	}

	defer func() {
		err = errors.Join(err, f.Close())
	}()

	err = snapshot.Write(f, ds,
		snapshot.WithCompression(e.cfg.Compression),
		snapshot.WithNCpus(e.cfg.NCpu),
		snapshot.WithTimestamp(time.Now()))
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Wrote %s primitives to %s\n", humanize.Comma(int64(ds.Len())), e.out)

	return nil
}
