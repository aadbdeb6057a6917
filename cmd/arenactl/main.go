package main

import "github.com/mcoot/arenasession/internal/cli"

func main() {
	cli.Execute()
}
