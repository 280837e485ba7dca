package main

import "github.com/raceiq/raceiq-console-go/cmd"

func main() {
	cmd.Execute()
}
