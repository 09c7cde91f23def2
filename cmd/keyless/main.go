// Command keyless-server starts the Keyless SSL key server.
package main

import (
	"go.keyless.dev/server/cmd"
)

func main() {
	cmd.Execute()
}
