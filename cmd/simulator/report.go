package main

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/signalsfoundry/gene-expression-sim/core"
	"github.com/signalsfoundry/gene-expression-sim/model"
)

var reportKinds = []model.MoleculeKind{
	model.KindRnaPolymerase,
	model.KindTranscriptionFactor,
	model.KindRibosome,
	model.KindMessengerRnaDestroyer,
	model.KindMessengerRna,
	model.KindMessengerRnaFragment,
	model.KindProtein,
}

// writeReport prints the population and protein tallies of a snapshot.
func writeReport(out io.Writer, name string, snap core.Snapshot) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "scenario %q after %.2fs (%d frames)\n\n", name, snap.SimTime, snap.Frame)

	fmt.Fprintln(tw, "KIND\tLIVE\tSTATES")
	for _, kind := range reportKinds {
		states := snap.CountByState(kind)
		total := 0
		names := make([]string, 0, len(states))
		for state, n := range states {
			total += n
			names = append(names, state)
		}
		sort.Strings(names)
		line := ""
		for i, state := range names {
			if i > 0 {
				line += ", "
			}
			line += fmt.Sprintf("%s=%d", state, states[state])
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\n", kind, total, line)
	}

	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "PROTEIN\tCAPTURED\tLEVEL")
	proteins := make(map[model.ProteinKind]struct{})
	for p := range snap.Captured {
		proteins[p] = struct{}{}
	}
	for p := range snap.Levels {
		proteins[p] = struct{}{}
	}
	names := make([]string, 0, len(proteins))
	for p := range proteins {
		names = append(names, string(p))
	}
	sort.Strings(names)
	for _, p := range names {
		kind := model.ProteinKind(p)
		fmt.Fprintf(tw, "%s\t%d\t%.2f\n", p, snap.Captured[kind], snap.Levels[kind])
	}
	fmt.Fprintf(tw, "average\t\t%.2f\n", snap.AverageLevel)

	return tw.Flush()
}
