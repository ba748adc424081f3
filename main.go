package main

import "github.com/pders01/docchat/cmd"

func main() {
	cmd.Execute()
}
