package main

import "github.com/vietddude/firstbuy/internal/cli"

func main() {
	cli.Execute()
}
