package main

import "github.com/tsundoku-app/tsundoku/cmd"

func main() {
	cmd.Execute()
}
