package main

import "cinema-core/cmd"

func main() {
	cmd.Execute()
}
