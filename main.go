package main

import "github.com/hmcrab/bakeoff/internal/cli"

func main() {
	cli.Execute()
}
