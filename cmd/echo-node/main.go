// Package main is the entrypoint for echo-node. It speaks the line-delimited
// JSON protocol on stdin/stdout.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/morezero/echo-node/internal/server"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const usage = `Usage: echo-node [command]
       echo-node              Serve requests on stdin, replies on stdout.
       echo-node version      Print the build version.

Other arguments are ignored.
Environment: LOG_LEVEL, LOG_FORMAT, LOG_FILE, COMMS_URL, TAP_SUBJECT, METRICS_FILE.
`

const (
	cmdServe   = "serve"
	cmdVersion = "version"
	cmdHelp    = "help"
)

// command picks what to do from the arguments after the program name.
// Unrecognised arguments fall back to serving.
func command(args []string) string {
	if len(args) == 0 {
		return cmdServe
	}
	switch args[0] {
	case "version":
		return cmdVersion
	case "help", "-h", "--help":
		return cmdHelp
	default:
		return cmdServe
	}
}

func main() {
	switch command(os.Args[1:]) {
	case cmdVersion:
		fmt.Println(version)
		return
	case cmdHelp:
		fmt.Fprint(os.Stderr, usage)
		return
	}

	if len(os.Args) > 1 {
		log.Printf("echo-node: ignoring arguments %q", os.Args[1:])
	}
	if err := server.Run(version); err != nil {
		log.Fatalf("echo-node: %v", err)
	}
}
