package main

import "github.com/javi11/huntarr/cmd/huntarr/cmd"

var version = "dev"

func main() {
	cmd.Execute(version)
}
