package main

import "github.com/vietddude/gqlclient/internal/cli"

func main() {
	cli.Execute()
}
