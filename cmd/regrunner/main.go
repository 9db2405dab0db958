package main

import "github.com/accountforge/regrunner/pkg/cli"

func main() {
	cli.Execute()
}
