// lineage-lint is a custom static analyzer for lineage-core store access patterns.
package main

import (
	"golang.org/x/tools/go/analysis/multichecker"

	"github.com/ersonp/lineage-core/tools/lineage-lint/analyzers"
)

func main() {
	multichecker.Main(analyzers.All()...)
}
