package main

import "github.com/nextlevelbuilder/tinystep/cmd"

func main() {
	cmd.Execute()
}
