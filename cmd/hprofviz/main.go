// Command hprofviz parses JVM hprof heap dumps and produces instance-count
// reports, class-hierarchy diagrams, out-of-core reference-count graphs,
// gc-root reachability paths, and single-object dumps.
package main

import "github.com/hprofgraph/hprofviz/cmd/hprofviz/cmd"

func main() {
	cmd.Execute()
}
