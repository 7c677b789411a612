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
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"
	pb "gopkg.in/cheggaaa/pb.v1"
)

// progressBar is an instance of ReadCloser with an associated ProgressBar.
// Closing this instance closes the delegate and, if the bar belongs to it,
// clears the terminal line of progress output.
type progressBar struct {
	r     io.ReadCloser
	bar   *pb.ProgressBar
	owner bool
}

func newBar(total int64) *pb.ProgressBar {
	bar := pb.New64(total).SetUnits(pb.U_BYTES_DEC).SetWidth(79)
	bar.Output = os.Stderr
	bar.Start()

	return bar
}

func finish(bar *pb.ProgressBar) {
	// make sure newline is not printed by Finish()
	bar.Output = nil
	bar.NotPrint = true

	bar.Finish()

	fmt.Fprintf(os.Stderr, "\033[2K\r") // clear status bar
}

// WrapInputFile creates a reader of f with an associated ProgressBar that
// tracks the bytes read relative to the size of f.
func WrapInputFile(f afero.File) (io.ReadCloser, error) {
	if f == afero.File(os.Stdin) {
		// don't bother wrapping stdin
		return os.Stdin, nil
	}

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}

	bar := newBar(fi.Size())

	return progressBar{
		r:     bar.NewProxyReader(f),
		bar:   bar,
		owner: true,
	}, nil
}

// Read implements io.Reader.Read by simple delegation.
func (pb progressBar) Read(p []byte) (int, error) {
	return pb.r.Read(p)
}

// Close implements io.Closer.Close by closing the delegate instance of
// ReadCloser as well as clearing the terminal line of progress output.
func (pb progressBar) Close() error {
	if pb.owner {
		finish(pb.bar)
	}

	return pb.r.Close()
}

// Progress shows the bytes read from several inputs, read concurrently, on
// a single bar.
type Progress struct {
	bar *pb.ProgressBar
}

// StartProgress starts a bar for the files at paths.
func StartProgress(fs afero.Fs, paths []string) (*Progress, error) {
	var total int64

	for _, p := range paths {
		fi, err := fs.Stat(p)
		if err != nil {
			return nil, err
		}

		total += fi.Size()
	}

	return &Progress{bar: newBar(total)}, nil
}

// Wrap counts what is read from r on the shared bar. Its signature matches
// loader.Wrapper.
func (p *Progress) Wrap(_ string, _ int64, r io.ReadCloser) io.ReadCloser {
	return progressBar{r: p.bar.NewProxyReader(r), bar: p.bar}
}

// Finish clears the bar.
func (p *Progress) Finish() {
	finish(p.bar)
}
