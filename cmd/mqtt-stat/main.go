package main

import "github.com/oshokin/mqtt-stat/cmd/mqtt-stat/cmd"

func main() {
	cmd.Execute()
}
