package main

import "github.com/mverbruggen/rommelmarkt-zoeker/internal/cli"

func main() {
	cli.Execute()
}
