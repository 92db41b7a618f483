package main

import "github.com/tristendillon/diagify/cmd"

func main() {
	cmd.Execute()
}
