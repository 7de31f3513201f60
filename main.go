package main

import (
	"github.com/pubcask/pubcask/cmd"
	"github.com/pubcask/pubcask/pkg/version"
)

var (
	buildVersion = "dev"
	buildCommit  = "unknown"
	buildDate    = "unknown"
)

func main() {
	version.Set(buildVersion, buildCommit, buildDate)
	cmd.Execute()
}
