// The main package for the page-watcher executable.
package main

import (
	"os"

	"github.com/jakepage91/page-watcher/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
