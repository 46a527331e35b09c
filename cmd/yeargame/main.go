package main

import "github.com/mcoot/yeargame/internal/cli"

func main() {
	cli.Execute()
}
