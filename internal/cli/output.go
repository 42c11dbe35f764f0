package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"matchwatch/internal/notify"
	"matchwatch/internal/reconcile"
)

var (
	errorColor = color.New(color.FgRed, color.Bold)
	okColor    = color.New(color.FgGreen)
	newColor   = color.New(color.FgYellow, color.Bold)
	doneColor  = color.New(color.FgHiMagenta)
	dimColor   = color.New(color.Faint)
)

// printResult writes a one-line outcome followed by any new events
func printResult(w io.Writer, res *reconcile.Result, err error) {
	switch {
	case err != nil:
		fmt.Fprintf(w, "%s %s: %v\n", errorColor.Sprint("FAIL"), res.Key, err)
	case res.Completed:
		fmt.Fprintf(w, "%s %s: match completed, state removed\n", doneColor.Sprint("DONE"), res.Key)
	case res.FirstSeen:
		fmt.Fprintf(w, "%s %s: baseline saved\n", okColor.Sprint("NEW "), res.Key)
	case len(res.NewEvents) > 0:
		fmt.Fprintf(w, "%s %s: %d new event(s)\n", newColor.Sprint("EVNT"), res.Key, len(res.NewEvents))
		for _, e := range res.NewEvents {
			fmt.Fprintf(w, "     %s\n", notify.FormatEvent(e, res.URL))
		}
		if res.DeliveryErr != nil {
			fmt.Fprintf(w, "     %s %v\n", errorColor.Sprint("not delivered:"), res.DeliveryErr)
		}
	default:
		fmt.Fprintf(w, "%s %s: no new events\n", dimColor.Sprint("SAME"), res.Key)
	}
}
