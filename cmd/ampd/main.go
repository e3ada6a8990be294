// Package main is the entry point for ampd.
// ampd is a headless folder player: "ampd serve" runs the daemon, which owns
// the queue and the audio device, and the other subcommands drive it over
// its unix socket.
package main

import (
	"runtime/debug"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = ""

func main() {
	boa.CmdT[boa.NoParams]{
		Use:     "ampd",
		Short:   "Headless folder music player",
		Version: appVersion(),
		SubCmds: append([]*cobra.Command{serveCmd()}, clientCmds()...),
	}.Run()
}

func defaultParamEnricher() boa.ParamEnricher {
	return boa.ParamEnricherCombine(
		boa.ParamEnricherBool,
		boa.ParamEnricherName,
		boa.ParamEnricherShort,
	)
}

func appVersion() string {
	if Version != "" {
		return Version
	}
	bi, ok := debug.ReadBuildInfo()
	if !ok || bi.Main.Version == "" {
		return "dev"
	}
	return bi.Main.Version
}
