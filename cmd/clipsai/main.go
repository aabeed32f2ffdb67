package main

import "github.com/forPelevin/clipsai/internal/cli"

func main() {
	cli.Main()
}
