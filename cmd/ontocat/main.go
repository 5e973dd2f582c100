package main

import "github.com/ontocat/ontocat/cmd/ontocat/cmd"

func main() {
	cmd.Execute()
}
