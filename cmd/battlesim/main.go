package main

import "wego-server/cmd/battlesim/cmd"

func main() {
	cmd.Execute()
}
