package main

import "github.com/johannesne/govital/cmd"

func main() {
	cmd.Execute()
}
