package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/popreader/popreader/internal/report"
)

const menuText = `
1) Look up a municipality
2) Rank by population
3) Show store records
4) Write population summary
5) Snapshot history
0) Exit
> `

// menu runs the interactive session. It ingests the census file, asks for
// one code, ranks and dumps the store and writes the summary, then offers
// the numbered options until the user exits or input ends.
func (c *cli) menu(ctx context.Context) error {
	in := bufio.NewScanner(c.stdin)

	if err := c.ingest(ctx); err != nil {
		return err
	}
	if err := c.promptLookup(in); err != nil {
		return err
	}
	if err := c.rankAndDump(ctx); err != nil {
		return err
	}
	if err := c.writeSummary(); err != nil {
		return err
	}

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		fmt.Fprint(c.stdout, menuText)
		if !in.Scan() {
			fmt.Fprintln(c.stdout)
			return in.Err()
		}

		var err error
		switch strings.TrimSpace(in.Text()) {
		case "1":
			err = c.promptLookup(in)
		case "2":
			err = c.rank(ctx, nil)
		case "3":
			err = c.dumpLoaded()
		case "4":
			err = c.writeSummary()
		case "5":
			err = c.history(ctx, nil)
		case "0", "q", "quit", "exit":
			return nil
		case "":
			continue
		default:
			fmt.Fprintln(c.stdout, "unknown option")
			continue
		}
		if err != nil {
			// Keep the session alive; the store in memory is still valid.
			fmt.Fprintf(c.stderr, "error: %v\n", err)
		}
	}
}

func (c *cli) promptLookup(in *bufio.Scanner) error {
	fmt.Fprint(c.stdout, "Municipality code: ")
	if !in.Scan() {
		fmt.Fprintln(c.stdout)
		return in.Err()
	}
	id, err := parseID(strings.TrimSpace(in.Text()))
	if err != nil {
		fmt.Fprintln(c.stdout, err)
		return nil
	}
	return c.show(id)
}

func (c *cli) rankAndDump(ctx context.Context) error {
	if _, err := c.ds.ListByPopulationDescending(ctx); err != nil {
		return err
	}
	return c.dumpLoaded()
}

func (c *cli) dumpLoaded() error {
	fmt.Fprintf(c.stdout, "Records in %s:\n", c.cfg.Store.Path)
	return report.WriteRecords(c.stdout, c.ds.Records())
}

func (c *cli) writeSummary() error {
	text, err := c.ds.Summarize()
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "Summary written to %s\n", c.cfg.Output.SummaryPath)
	fmt.Fprint(c.stdout, text)
	return nil
}
