/*
Package dot renders trees as Graphviz digraphs, one graph node per tree
node labeled with its state and class counts, and one edge per branch
labeled with the condition leading to it.
*/
package dot

import (
	"fmt"
	"io"
	"strconv"

	"github.com/ashenfad/hadooptree/tree"
	"github.com/awalterschulze/gographviz"
	"github.com/pkg/errors"
)

const graphName = "tree"

// Graph takes a tree and returns its Graphviz graph
func Graph(t *tree.Tree) (*gographviz.Graph, error) {
	g := gographviz.NewGraph()
	if err := g.SetName(graphName); err != nil {
		return nil, err
	}
	if err := g.SetDir(true); err != nil {
		return nil, err
	}
	err := t.Traverse(func(n *tree.Node) error {
		attrs := map[string]string{
			"shape": "box",
			"label": strconv.Quote(label(n)),
		}
		if n.State != tree.Internal {
			attrs["style"] = "rounded"
		}
		if err := g.AddNode(graphName, nodeName(n.ID), attrs); err != nil {
			return err
		}
		if n.Parent == tree.NoNode {
			return nil
		}
		p := t.Node(n.Parent)
		if p == nil || p.Split == nil {
			return fmt.Errorf("node %d has no split parent", n.ID)
		}
		cond := p.Split.String()
		if p.FalseChild == n.ID {
			cond = "not " + cond
		}
		return g.AddEdge(nodeName(p.ID), nodeName(n.ID), true, map[string]string{"label": strconv.Quote(cond)})
	})
	if err != nil {
		return nil, errors.Wrap(err, "building graph")
	}
	return g, nil
}

// Write takes a tree and a writer and writes the tree to the writer in
// the DOT language
func Write(t *tree.Tree, w io.Writer) error {
	g, err := Graph(t)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, g.String())
	return err
}

func nodeName(id tree.NodeID) string {
	return fmt.Sprintf("n%d", id)
}

func label(n *tree.Node) string {
	if n.State == tree.Internal {
		return fmt.Sprintf("[%d] %s\n%v", n.ID, n.Split, n.Counts)
	}
	return fmt.Sprintf("[%d] %s: %s\n%v", n.ID, n.State, n.PredictedClass(), n.Counts)
}
