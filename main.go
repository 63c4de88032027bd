package main

import "github.com/klytics/fuelkit/cmd"

func main() {
	cmd.Execute()
}
