// lumi-notes/main.go
package main

import "github.com/ViniZap4/lumi-notes/cli"

func main() {
	cli.Execute()
}
