package app

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// PrintRoutes writes the route table mounted by fns.
func PrintRoutes(w io.Writer, fns ...RouteFunc) error {
	r := NewRouter()
	for _, fn := range fns {
		fn(r)
	}

	infos := r.Routes()
	if len(infos) == 0 {
		fmt.Fprintln(w, "No routes registered.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "METHOD\tPATH\tNAME")
	fmt.Fprintln(tw, "------\t----\t----")
	for _, ri := range infos {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", ri.Method, ri.Path, ri.Name)
	}
	return tw.Flush()
}
