package main

import "github.com/taskmint/taskmint/internal/cli"

func main() {
	cli.Execute()
}
