// Package trace builds the material -> batch -> lot traceability graph of a lot.
package trace

import (
	"fmt"
	"strconv"

	"github.com/kursadbilgin/batch-trace/internal/domain"
)

type NodeKind string

const (
	NodeKindMaterial NodeKind = "material"
	NodeKindBatch    NodeKind = "batch"
	NodeKindLot      NodeKind = "lot"
)

// Layout constants for the three-column graph.
const (
	MaterialColumnX = 50
	BatchColumnX    = 350
	LotColumnX      = 600
	CenterY         = 150
	RowHeight       = 100
)

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Node struct {
	ID       string   `json:"id"`
	Kind     NodeKind `json:"kind"`
	Label    string   `json:"label"`
	Column   int      `json:"column"`
	Position Position `json:"position"`
}

type Edge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
}

type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// BuildGraph returns the lot node, its batch node and one node per input. Each
// input gets an edge into the batch and the batch gets a single edge into the
// lot. Material node ids carry the input index so repeated material names stay
// distinct.
func BuildGraph(lot domain.Lot) Graph {
	n := len(lot.Inputs)
	g := Graph{
		Nodes: make([]Node, 0, n+2),
		Edges: make([]Edge, 0, n+1),
	}

	g.Nodes = append(g.Nodes,
		Node{
			ID:       lot.Lot,
			Kind:     NodeKindLot,
			Label:    fmt.Sprintf("%s\n%s\n%s", lot.Lot, lot.Product, quantity(lot.Yield, lot.Unit)),
			Column:   2,
			Position: Position{X: LotColumnX, Y: CenterY},
		},
		Node{
			ID:       lot.BatchID,
			Kind:     NodeKindBatch,
			Label:    "Batch\n" + lot.BatchID,
			Column:   1,
			Position: Position{X: BatchColumnX, Y: CenterY},
		},
	)

	offset := float64(n-1) * RowHeight / 2
	for i, in := range lot.Inputs {
		id := in.Material + "-" + strconv.Itoa(i)
		g.Nodes = append(g.Nodes, Node{
			ID:       id,
			Kind:     NodeKindMaterial,
			Label:    fmt.Sprintf("%s\n%s", in.Material, quantity(in.Qty, in.Unit)),
			Column:   0,
			Position: Position{X: MaterialColumnX, Y: CenterY + float64(i)*RowHeight - offset},
		})
		g.Edges = append(g.Edges, edge(id, lot.BatchID))
	}

	g.Edges = append(g.Edges, edge(lot.BatchID, lot.Lot))
	return g
}

func edge(source, target string) Edge {
	return Edge{ID: source + "-" + target, Source: source, Target: target}
}

func quantity(v float64, unit string) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if unit == "" {
		return s
	}
	return s + " " + unit
}
