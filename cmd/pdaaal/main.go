// Command pdaaal answers reachability queries on weighted pushdown systems
// described by JSON, YAML or CBOR documents.
package main

import (
	"context"

	"github.com/spf13/cobra"
)

func main() {
	cobra.CheckErr(NewCLI().ExecuteContext(context.Background()))
}
