package main

import "fetlife-adapter/cmd/fetlife-cli/cmd"

func main() {
	cmd.Execute()
}
