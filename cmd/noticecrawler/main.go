// Package main hosts the noticecrawler entrypoint.
//
// The binary is a batch job, not a service: one invocation of the crawl
// subcommand performs a full cycle over the configured boards and exits.
// Subcommands cover schema migration, webhook destination management and
// schedule refresh; configuration comes from a YAML file or NOTICE_* env
// vars via Viper.
package main

import (
	"github.com/campusfeed/notice-crawler/cmd"
)

func main() {
	cmd.Execute()
}
