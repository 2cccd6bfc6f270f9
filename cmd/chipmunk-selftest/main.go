// Command chipmunk-selftest runs the health check in package selftest
// against a chosen parameter preset and reports pass/fail, so a deployment
// or CI job can confirm the whole Chipmunk pipeline holds together in one
// shot (spec.md §6).
//
// Grounded on cmd/ntru_sign/main.go's flag.* configuration surface and
// cmd/keycheck's log.Fatal-on-hard-error, report-to-stdout-otherwise style.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"chipmunk/internal/clog"
	"chipmunk/params"
	"chipmunk/selftest"
)

func main() {
	signers := flag.Int("signers", 5, "number of participants in the self-test aggregate")
	verbose := flag.Bool("v", false, "log every stage at debug level")
	paramsPath := flag.String("params", "", "path to a JSON parameter table (default: built-in preset)")
	flag.Parse()

	table := params.Default()
	if *paramsPath != "" {
		f, err := os.Open(*paramsPath)
		if err != nil {
			log.Fatalf("chipmunk-selftest: open params: %v", err)
		}
		defer f.Close()
		t, err := params.FromJSON(f)
		if err != nil {
			log.Fatalf("chipmunk-selftest: load params: %v", err)
		}
		table = t
	}

	var logger clog.Logger = clog.Discard
	if *verbose {
		logger = clog.NewStd(os.Stderr, clog.Debug)
	}

	report, err := selftest.Run(table, *signers, logger)
	if err != nil {
		log.Fatalf("chipmunk-selftest: %v", err)
	}

	if !report.OK {
		fmt.Printf("FAIL at stage %s: %s\n", report.Stage, report.FailReason)
		os.Exit(1)
	}
	fmt.Printf("PASS: %d signers, N=%d Q=%d QHVC=%d\n", report.Signers, report.Table.N, report.Table.Q, report.Table.QHVC)
}
