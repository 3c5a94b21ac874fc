package main

import "streamsight/internal/cli"

func main() {
	cli.Execute()
}
