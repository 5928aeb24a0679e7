// Package graph defines the operator graph: nodes carrying a kind tag and a
// parameter bag, and named-port edges between them. The graph must be a DAG;
// a target port accepts at most one incoming edge.
package graph
