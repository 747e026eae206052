package main

import "github.com/will-rowe/skim/cmd"

func main() {
	cmd.Execute()
}
