// Command chipmunk-chart renders an HTML line chart of aggregate signature
// byte size against participant count, so a reader can see at a glance that
// the HOTS component of an aggregate (codec.EncodeAggregateSignature's
// trailing combined_sigma field) is constant while the per-participant
// entries still grow linearly (spec.md §4.6).
//
// Grounded on cmd/analysis/main.go's go-echarts line-chart setup, pointed at
// Chipmunk's own encoded sizes instead of that command's NTRU residual-norm
// sweep.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"chipmunk/aggregate"
	"chipmunk/codec"
	"chipmunk/hots"
	"chipmunk/hvc"
	"chipmunk/internal/clog"
	"chipmunk/params"
	"chipmunk/ringq"
)

func main() {
	outPath := flag.String("out", "aggregate-size.html", "output HTML path")
	flag.Parse()

	table := params.Default()
	hp, err := hots.Setup(table, clog.Discard)
	if err != nil {
		log.Fatalf("chipmunk-chart: hots.Setup: %v", err)
	}
	var hvcSeed [32]byte
	copy(hvcSeed[:], "chipmunk-chart-hvc-seed-fixed")
	hasher, err := hvc.Init(table, hvcSeed, clog.Discard)
	if err != nil {
		log.Fatalf("chipmunk-chart: hvc.Init: %v", err)
	}

	max := table.LeafCountMax()
	ns := make([]string, 0, max)
	sizes := make([]opts.LineData, 0, max)
	message := []byte("chipmunk-chart demonstration message")

	for n := 1; n <= max; n++ {
		size, err := aggregateSize(hp, hasher, n, message)
		if err != nil {
			log.Fatalf("chipmunk-chart: n=%d: %v", n, err)
		}
		ns = append(ns, fmt.Sprintf("%d", n))
		sizes = append(sizes, opts.LineData{Value: size})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Chipmunk aggregate signature size vs. participant count"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "participants"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "bytes"}),
	)
	line.SetXAxis(ns).AddSeries("encoded size", sizes)

	f, err := os.Create(*outPath)
	if err != nil {
		log.Fatalf("chipmunk-chart: create %s: %v", *outPath, err)
	}
	defer f.Close()
	if err := line.Render(f); err != nil {
		log.Fatalf("chipmunk-chart: render: %v", err)
	}
	fmt.Printf("wrote %s\n", *outPath)
}

// aggregateSize builds an n-participant aggregate and returns its encoded
// byte length.
func aggregateSize(hp *hots.Params, hasher *hvc.Hasher, n int, message []byte) (int, error) {
	pks := make([]*hots.PublicKey, n)
	sks := make([]*hots.SecretKey, n)
	leaves := make([]*ringq.Poly, n)
	for i := 0; i < n; i++ {
		var seed [32]byte
		copy(seed[:], fmt.Sprintf("chipmunk-chart-signer-%03d", i))
		pk, sk, err := hp.Keygen(seed, 0)
		if err != nil {
			return 0, err
		}
		pks[i], sks[i] = pk, sk
		v0n, v1n := pk.V0.Clone(), pk.V1.Clone()
		if err := v0n.FromNTT(); err != nil {
			return 0, err
		}
		if err := v1n.FromNTT(); err != nil {
			return 0, err
		}
		emb0, err := hasher.Embed(v0n)
		if err != nil {
			return 0, err
		}
		emb1, err := hasher.Embed(v1n)
		if err != nil {
			return 0, err
		}
		leaf, err := hasher.LeafFromEmbedding(emb0, emb1)
		if err != nil {
			return 0, err
		}
		leaves[i] = leaf
	}
	tree, err := hvc.Build(hasher, leaves, n, clog.Discard)
	if err != nil {
		return 0, err
	}
	individuals := make([]aggregate.IndividualSignature, n)
	for i := 0; i < n; i++ {
		sig, err := hp.Sign(sks[i], message)
		if err != nil {
			return 0, err
		}
		path, err := tree.GenProof(i)
		if err != nil {
			return 0, err
		}
		individuals[i] = aggregate.IndividualSignature{Sigma: sig, PK: pks[i], Path: path, Index: uint32(i)}
	}
	agg := aggregate.New(hp, hasher, clog.Discard)
	aggSig, err := agg.Aggregate(message, individuals, tree)
	if err != nil {
		return 0, err
	}
	return len(codec.EncodeAggregateSignature(aggSig, hasher)), nil
}
