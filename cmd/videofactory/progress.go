package main

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"github.com/bnema/videofactory/internal/service"
)

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// progressObserver renders pipeline checkpoints as a bar on terminals and
// as one line per checkpoint elsewhere. The returned func finishes the bar.
func progressObserver(w io.Writer, jobID string) (service.ProgressFunc, func()) {
	if !isTerminal(w) {
		return func(message string, progress int) {
			fmt.Fprintf(w, "%s [%3d%%] %s\n", jobID, progress, message)
		}, func() {}
	}

	bar := progressbar.NewOptions(100,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(jobID),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowDescriptionAtLineEnd(),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionSetPredictTime(false),
	)
	var mu sync.Mutex
	observe := func(message string, progress int) {
		mu.Lock()
		defer mu.Unlock()
		bar.Describe(message)
		_ = bar.Set(progress)
	}
	finish := func() {
		mu.Lock()
		defer mu.Unlock()
		_ = bar.Exit()
		fmt.Fprintln(w)
	}
	return observe, finish
}
