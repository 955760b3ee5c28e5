package main

import "rageddy/internal/cmd"

func main() {
	cmd.Execute()
}
