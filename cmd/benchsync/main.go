package main

import (
	"benchsync/cmd/benchsync/commands"
	"benchsync/lib/osutil"
)

func main() {
	commands.ExecuteContext(osutil.SignalContext())
}
