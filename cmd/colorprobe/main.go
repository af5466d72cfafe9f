package main

import "github.com/bryanchriswhite/ColorProbe/cmd/colorprobe/commands"

func main() {
	commands.Execute()
}
