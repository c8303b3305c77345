package main

import "regen/cmd"

func main() {
	cmd.Execute()
}
