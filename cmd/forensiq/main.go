package main

import "github.com/bryanwahyu/forensiq/internal/cli"

func main() {
	cli.Execute()
}
