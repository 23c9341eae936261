/*
Package json encodes trees into their canonical JSON document and
decodes them back.

A tree document is an object with the following fields:
  - "objectiveFieldIndex": the index of the field the tree predicts
  - "fields": the statistics of every field of the dataset
  - "root": the root node

A node is an object with an "id", an "isLeaf" flag and its
"classCounts" listed in lexical order of category. Internal nodes add
a "split" with the "fieldId", an "isCategorical" flag and either an
"equalTo" category or a "lessOrEqualTo" threshold, followed by their
"trueChild" and "falseChild" nodes.
*/
package json

import (
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"

	fjson "github.com/ashenfad/hadooptree/feature/json"
	"github.com/ashenfad/hadooptree/tree"
	"github.com/pkg/errors"
)

type document struct {
	ObjectiveFieldIndex int            `json:"objectiveFieldIndex"`
	Fields              []*fjson.Field `json:"fields"`
	Root                *node          `json:"root"`
}

/*
CorruptDocumentError is returned when a document cannot be parsed into a
tree or subtree. It carries the offending document.
*/
type CorruptDocumentError struct {
	Content string
	Err     error
}

func (e *CorruptDocumentError) Error() string {
	return fmt.Sprintf("corrupt tree document: %v\n%s", e.Err, e.Content)
}

// Cause returns the error that made the document unparseable
func (e *CorruptDocumentError) Cause() error {
	return e.Err
}

// Unwrap returns the error that made the document unparseable
func (e *CorruptDocumentError) Unwrap() error {
	return e.Err
}

type codec struct{}

// NewCodec returns a tree.Codec that encodes trees into their
// canonical JSON document.
func NewCodec() tree.Codec {
	return codec{}
}

func (codec) Encode(t *tree.Tree) ([]byte, error) {
	return Encode(t)
}

func (codec) Decode(data []byte) (*tree.Tree, error) {
	return Decode(data)
}

// Encode takes a tree and returns its JSON document
func Encode(t *tree.Tree) ([]byte, error) {
	root := t.Root()
	if root == nil {
		return nil, fmt.Errorf("encoding tree: root node %d not found", t.RootID)
	}
	jr, err := fromTreeNode(t, root)
	if err != nil {
		return nil, errors.Wrap(err, "encoding tree")
	}
	return json.Marshal(&document{
		ObjectiveFieldIndex: t.Objective,
		Fields:              fjson.FromFields(t.Fields),
		Root:                jr,
	})
}

/*
Decode parses a JSON document into a tree, rebuilding the parent links
of every node. Any failure, including a document that does not describe
a valid tree, results in a *CorruptDocumentError carrying the document.
*/
func Decode(data []byte) (*tree.Tree, error) {
	t, err := decode(data)
	if err != nil {
		return nil, &CorruptDocumentError{Content: string(data), Err: err}
	}
	return t, nil
}

func decode(data []byte) (*tree.Tree, error) {
	doc := &document{}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, err
	}
	if doc.Root == nil {
		return nil, fmt.Errorf("no root node")
	}
	fields, err := fjson.ToFields(doc.Fields)
	if err != nil {
		return nil, err
	}
	nodes, err := doc.Root.flatten(tree.NoNode, nil)
	if err != nil {
		return nil, err
	}
	return tree.Assemble(fields, doc.ObjectiveFieldIndex, tree.NodeID(doc.Root.ID), nodes)
}

/*
WriteTree takes a tree and an io.Writer and writes the JSON document of
the tree onto it.
*/
func WriteTree(t *tree.Tree, w io.Writer) error {
	doc, err := Encode(t)
	if err != nil {
		return err
	}
	_, err = w.Write(doc)
	return err
}

/*
ReadTree takes an io.Reader, reads a JSON document from it and returns
the tree it describes.
*/
func ReadTree(r io.Reader) (*tree.Tree, error) {
	data, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading tree document")
	}
	return Decode(data)
}
