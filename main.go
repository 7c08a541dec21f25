package main

import "esgrag/cmd"

func main() {
	cmd.Execute()
}
