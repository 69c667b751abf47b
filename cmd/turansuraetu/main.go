package main

import "turansuraetu/internal/cli"

func main() {
	cli.Execute()
}
