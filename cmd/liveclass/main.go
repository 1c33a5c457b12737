package main

import (
	"github.com/edumesh/liveclass/cmd/liveclass/cmd"
	"github.com/edumesh/liveclass/internal/logging"
)

func main() {
	// Initialize logging
	logging.Init()
	cmd.Execute()
}
