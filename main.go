package main

import "layercast/cmd"

func main() {
	cmd.Execute()
}
