package main

import "github.com/wpembed/toolscope/cmd"

func main() {
	cmd.Execute()
}
