// Package bedgraph merges strand-split coverage tracks into the single signed
// track published per sample.
package bedgraph
