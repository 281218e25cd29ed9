package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/steveyegge/issuebridge/internal/tracker"
	"github.com/steveyegge/issuebridge/internal/trackerapi"
	"github.com/steveyegge/issuebridge/internal/ui"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root, a := newRootCmd()
	if err := a.execute(ctx, root); err != nil {
		printError(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// printError shows validation failures by their user message and
// everything else in full.
func printError(w io.Writer, err error) {
	var verr *tracker.ValidationError
	var cerr *trackerapi.CreationError
	switch {
	case errors.As(err, &verr):
		fmt.Fprintln(w, ui.RenderError(verr.Message))
		if verr.Err != nil {
			fmt.Fprintln(w, ui.RenderMuted("  "+verr.Err.Error()))
		}
	case errors.As(err, &cerr):
		fmt.Fprintln(w, ui.RenderError(fmt.Sprintf("unable to create tracker issue (status %d)", cerr.StatusCode)))
		for _, msg := range cerr.Errors {
			fmt.Fprintln(w, ui.RenderMuted("  - "+msg))
		}
	default:
		fmt.Fprintln(w, ui.RenderError(err.Error()))
	}
}
