package ocroverlay

import (
	"github.com/tsawler/ocroverlay/autosize"
	"github.com/tsawler/ocroverlay/cluster"
)

// pipelineOptions holds the configuration of a Pipeline.
type pipelineOptions struct {
	// Clustering
	merge   bool
	cluster cluster.Config

	// Autosizing
	policy   autosize.Policy
	measurer autosize.Measurer

	// Edits applied after layout, in order
	edits []editOp
}

type editKind int

const (
	editDelete editKind = iota
	editMerge
)

// editOp is one manual edit: a delete of every ID, or a merge of all of them.
type editOp struct {
	kind editKind
	ids  []string
}

// defaultOptions returns the default pipeline options.
func defaultOptions() pipelineOptions {
	return pipelineOptions{
		merge:   true,
		cluster: cluster.DefaultConfig(),
		policy:  autosize.DefaultPolicy(),
	}
}

// clone creates a deep copy of pipelineOptions.
func (o pipelineOptions) clone() pipelineOptions {
	newOpts := o
	if o.edits != nil {
		newOpts.edits = make([]editOp, len(o.edits))
		for i, op := range o.edits {
			newOpts.edits[i] = editOp{kind: op.kind, ids: append([]string(nil), op.ids...)}
		}
	}
	return newOpts
}
