package stage

import (
	"errors"
	"fmt"
	"io"

	"github.com/dominikbraun/graph"
	"github.com/dominikbraun/graph/draw"

	"promap/internal/sample"
)

// ErrInvalidChain marks a stage list that cannot run as a linear pipeline.
var ErrInvalidChain = errors.New("invalid stage chain")

const inputVertex = "input"

// ValidateChain checks that stages form a strictly linear chain: ordinals run
// 1..N in declared order, each role is produced once, and every consumed role
// is the raw reads or the product of an earlier stage.
func ValidateChain(stages []Stage) error {
	_, err := buildGraph(stages)
	return err
}

// WriteDOT renders the chain in Graphviz DOT form.
func WriteDOT(w io.Writer, stages []Stage) error {
	g, err := buildGraph(stages)
	if err != nil {
		return err
	}
	return draw.DOT(g, w, draw.GraphAttribute("rankdir", "LR"))
}

func buildGraph(stages []Stage) (graph.Graph[string, string], error) {
	g := graph.New(graph.StringHash, graph.Directed(), graph.PreventCycles())
	if len(stages) == 0 {
		return g, fmt.Errorf("%w: no stages", ErrInvalidChain)
	}
	if err := g.AddVertex(inputVertex, graph.VertexAttribute("shape", "box")); err != nil {
		return g, err
	}

	producer := map[sample.Role]string{sample.RoleReads: inputVertex}
	ordinal := map[string]int{inputVertex: 0}
	for i, st := range stages {
		if st.Name == "" || st.Output == nil || st.Commands == nil {
			return g, fmt.Errorf("%w: stage %d is incomplete", ErrInvalidChain, i+1)
		}
		if st.Ordinal != i+1 {
			return g, fmt.Errorf("%w: stage %s has ordinal %d, want %d", ErrInvalidChain, st.Name, st.Ordinal, i+1)
		}
		if !st.Produces.Valid() || st.Produces == sample.RoleReads {
			return g, fmt.Errorf("%w: stage %s produces invalid role %s", ErrInvalidChain, st.Name, st.Produces)
		}
		if prev, ok := producer[st.Produces]; ok {
			return g, fmt.Errorf("%w: role %s produced by both %s and %s", ErrInvalidChain, st.Produces, prev, st.Name)
		}
		from, ok := producer[st.Consumes]
		if !ok {
			return g, fmt.Errorf("%w: stage %s consumes %s before any stage produces it", ErrInvalidChain, st.Name, st.Consumes)
		}

		if err := g.AddVertex(st.Name, graph.VertexAttribute("label", fmt.Sprintf("%d. %s", st.Ordinal, st.Name))); err != nil {
			return g, fmt.Errorf("%w: stage %s: %w", ErrInvalidChain, st.Name, err)
		}
		if err := g.AddEdge(from, st.Name, graph.EdgeAttribute("label", st.Consumes.String())); err != nil {
			return g, fmt.Errorf("%w: edge %s -> %s: %w", ErrInvalidChain, from, st.Name, err)
		}
		producer[st.Produces] = st.Name
		ordinal[st.Name] = st.Ordinal
	}

	order, err := graph.StableTopologicalSort(g, func(a, b string) bool {
		return ordinal[a] < ordinal[b]
	})
	if err != nil {
		return g, fmt.Errorf("%w: %w", ErrInvalidChain, err)
	}
	for i, name := range order[1:] {
		if name != stages[i].Name {
			return g, fmt.Errorf("%w: dependency order places %s at position %d", ErrInvalidChain, name, i+1)
		}
	}
	return g, nil
}
